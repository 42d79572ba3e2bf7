package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue is an in-memory stand-in for the Redis lists.
type fakeQueue struct {
	mu    sync.Mutex
	lists map[string][]string
}

func newFakeQueue() *fakeQueue { return &fakeQueue{lists: map[string][]string{}} }

func (f *fakeQueue) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		var s string
		switch val := v.(type) {
		case []byte:
			s = string(val)
		case string:
			s = val
		}
		f.lists[key] = append([]string{s}, f.lists[key]...)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeQueue) pop(key string) (string, bool) {
	l := f.lists[key]
	if len(l) == 0 {
		return "", false
	}
	v := l[len(l)-1]
	f.lists[key] = l[:len(l)-1]
	return v, true
}

func (f *fakeQueue) BRPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringSliceCmd(ctx)
	for _, k := range keys {
		if v, ok := f.pop(k); ok {
			cmd.SetVal([]string{k, v})
			return cmd
		}
	}
	cmd.SetErr(redis.Nil)
	return cmd
}

func (f *fakeQueue) RPop(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringCmd(ctx)
	if v, ok := f.pop(key); ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeQueue) LLen(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeQueue) next(t *testing.T, key string) Job {
	t.Helper()
	raw, ok := f.pop(key)
	require.True(t, ok, "queue %s is empty", key)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	return job
}

func (f *fakeQueue) dlq(t *testing.T, key string) DLQEntry {
	t.Helper()
	raw, ok := f.pop(DLQPrefix + key)
	require.True(t, ok, "dlq %s is empty", key)
	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	return entry
}

func testPool(q *fakeQueue) *Pool {
	p := newPool(q, 1)
	p.backoff = func(int) time.Duration { return 0 }
	return p
}

func TestDispatcher_ShiftClosed(t *testing.T) {
	q := newFakeQueue()
	d := &Dispatcher{rdb: q}
	id := uuid.New()

	require.NoError(t, d.ShiftClosed(context.Background(), id))

	job := q.next(t, QueueShiftSummary)
	assert.Equal(t, JobShiftSummary, job.Type)
	var payload ShiftSummaryPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, id.String(), payload.ShiftID)
}

func TestPool_RetriesThenDeadLetters(t *testing.T) {
	q := newFakeQueue()
	p := testPool(q)
	calls := 0
	p.Handle(QueueShiftSummary, JobShiftSummary, func(context.Context, json.RawMessage) error {
		calls++
		return errors.New("smtp down")
	})
	ctx := context.Background()
	require.NoError(t, (&Dispatcher{rdb: q}).ShiftClosed(ctx, uuid.New()))

	for i := 0; i < MaxAttempts; i++ {
		raw, ok := q.pop(QueueShiftSummary)
		require.True(t, ok)
		p.process(ctx, QueueShiftSummary, raw)
	}

	assert.Equal(t, MaxAttempts, calls)
	n, err := DLQLength(ctx, q, QueueShiftSummary)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	entry := q.dlq(t, QueueShiftSummary)
	assert.Equal(t, MaxAttempts, entry.Attempts)
	assert.Equal(t, "smtp down", entry.Reason)
	assert.Empty(t, q.lists[QueueShiftSummary])
}

func TestPool_PermanentFailureSkipsRetries(t *testing.T) {
	q := newFakeQueue()
	p := testPool(q)
	p.Handle(QueueShiftSummary, JobShiftSummary, func(context.Context, json.RawMessage) error {
		return Permanent(errors.New("bad payload"))
	})
	ctx := context.Background()
	require.NoError(t, (&Dispatcher{rdb: q}).ShiftClosed(ctx, uuid.New()))

	raw, _ := q.pop(QueueShiftSummary)
	p.process(ctx, QueueShiftSummary, raw)

	entry := q.dlq(t, QueueShiftSummary)
	assert.Equal(t, 1, entry.Attempts)
	assert.Empty(t, q.lists[QueueShiftSummary])
}

func TestPool_UnknownTypeAndGarbage(t *testing.T) {
	q := newFakeQueue()
	p := testPool(q)
	ctx := context.Background()

	p.process(ctx, QueueShiftSummary, `{"type":"nope","payload":{}}`)
	p.process(ctx, QueueShiftSummary, `not json`)

	n, err := DLQLength(ctx, q, QueueShiftSummary)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPool_HandleRegistersQueueOnce(t *testing.T) {
	p := testPool(newFakeQueue())
	noop := func(context.Context, json.RawMessage) error { return nil }
	p.Handle(QueueShiftSummary, JobShiftSummary, noop)
	p.Handle(QueueShiftSummary, "other", noop)
	assert.Equal(t, []string{QueueShiftSummary}, p.queues)
}

func TestReplayDLQ(t *testing.T) {
	q := newFakeQueue()
	ctx := context.Background()
	payload := json.RawMessage(`{"shift_id":"x"}`)

	SendToDLQ(ctx, q, QueueShiftSummary, Job{Type: JobShiftSummary, Payload: payload, Attempts: 3}, "smtp down")
	SendToDLQ(ctx, q, QueueShiftSummary, Job{Type: JobShiftSummary, Payload: payload, Attempts: 3, Replays: maxReplays}, "smtp down")

	replayed, dropped := replayDLQ(ctx, q, QueueShiftSummary, 10)
	assert.Equal(t, 1, replayed)
	assert.Equal(t, 1, dropped)

	job := q.next(t, QueueShiftSummary)
	assert.Equal(t, 1, job.Replays)
	assert.Equal(t, 0, job.Attempts)
	assert.JSONEq(t, string(payload), string(job.Payload))
}
