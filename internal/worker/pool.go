package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueShiftSummary = "jobs:shift_summary"

	JobShiftSummary = "shift_summary"

	// MaxAttempts before a job is dead-lettered.
	MaxAttempts = 3
)

// ErrPermanent marks a job failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

// Permanent wraps err so the pool dead-letters the job without retrying.
func Permanent(err error) error { return fmt.Errorf("%w: %v", ErrPermanent, err) }

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	// Replays counts how many times the job came back from the DLQ.
	Replays  int             `json:"replays,omitempty"`
}

// queue is the subset of *redis.Client used by the dispatcher, the pool and the DLQ.
type queue interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPop(ctx context.Context, key string) *redis.StringCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb queue
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// ShiftClosed enqueues the close summary of a shift.
func (d *Dispatcher) ShiftClosed(ctx context.Context, shiftID uuid.UUID) error {
	return enqueue(ctx, d.rdb, QueueShiftSummary, Job{
		Type:    JobShiftSummary,
		Payload: mustJSON(ShiftSummaryPayload{ShiftID: shiftID.String()}),
	})
}

func enqueue(ctx context.Context, rdb queue, queueName string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queueName, encoded).Err()
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Handler processes one job payload. Returning an error retries the job
// unless it wraps ErrPermanent.
type Handler func(ctx context.Context, payload json.RawMessage) error

type route struct {
	queue   string
	handler Handler
}

// Pool runs a fixed number of goroutines consuming the registered queues.
type Pool struct {
	rdb      queue
	size     int
	handlers map[string]route
	queues   []string
	backoff  func(attempt int) time.Duration
}

func NewPool(rdb *redis.Client, size int) *Pool {
	return newPool(rdb, size)
}

func newPool(rdb queue, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		rdb:      rdb,
		size:     size,
		handlers: make(map[string]route),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
	}
}

// Handle registers the handler for jobType on queueName.
func (p *Pool) Handle(queueName, jobType string, h Handler) {
	if _, ok := p.handlers[jobType]; !ok {
		seen := false
		for _, q := range p.queues {
			if q == queueName {
				seen = true
			}
		}
		if !seen {
			p.queues = append(p.queues, queueName)
		}
	}
	p.handlers[jobType] = route{queue: queueName, handler: h}
}

// Start launches the workers. Each goroutine blocks on BRPOP, zero CPU when idle.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		go p.run(ctx, i)
	}
	log.Info().Int("workers", p.size).Strs("queues", p.queues).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) process(ctx context.Context, queueName, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queueName).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queueName, Job{Payload: mustJSON(raw)}, err.Error())
		return
	}
	r, ok := p.handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, p.rdb, queueName, job, "unknown job type")
		return
	}

	job.Attempts++
	err := r.handler(ctx, job.Payload)
	switch {
	case err == nil:
		log.Info().Str("type", job.Type).Int("attempt", job.Attempts).Msg("job done")
	case errors.Is(err, ErrPermanent) || job.Attempts >= MaxAttempts:
		SendToDLQ(ctx, p.rdb, queueName, job, err.Error())
	default:
		log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, retrying")
		select {
		case <-ctx.Done():
		case <-time.After(p.backoff(job.Attempts)):
		}
		// re-enqueue with a fresh context so a shutdown does not lose the job
		if err := enqueue(context.Background(), p.rdb, queueName, job); err != nil {
			log.Error().Err(err).Str("type", job.Type).Msg("failed to re-enqueue job")
		}
	}
}
