package worker

// replay_cron.go
// Background goroutine that periodically moves dead-lettered jobs back to
// their queue. Skips the tick while the downstream circuit breaker is open
// and gives up on a job after maxReplays round trips.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"restopos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	replayTickInterval = 5 * time.Minute
	replayBatchSize    = 10
	maxReplays         = 3
)

// ReplayCronConfig holds all dependencies for the replay goroutine.
type ReplayCronConfig struct {
	RDB    *redis.Client
	Queues []string
	// CB is optional; an open breaker skips the tick.
	CB *infra.CircuitBreaker
}

// StartReplayCron launches a goroutine that ticks every five minutes and
// re-enqueues up to replayBatchSize DLQ entries per queue.
func StartReplayCron(ctx context.Context, cfg ReplayCronConfig) {
	go func() {
		ticker := time.NewTicker(replayTickInterval)
		defer ticker.Stop()

		log.Info().Msg("replay_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("replay_cron: shutting down")
				return
			case <-ticker.C:
				if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
					log.Debug().Msg("replay_cron: circuit breaker is open, skipping tick")
					continue
				}
				for _, q := range cfg.Queues {
					replayDLQ(ctx, cfg.RDB, q, replayBatchSize)
				}
			}
		}
	}()
}

// replayDLQ pops the oldest entries of dlq:{queue} and re-enqueues them with
// a fresh attempt budget. Entries that already used every replay are dropped.
func replayDLQ(ctx context.Context, rdb queue, queueName string, batch int) (replayed, dropped int) {
	for i := 0; i < batch; i++ {
		raw, err := rdb.RPop(ctx, DLQPrefix+queueName).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			log.Error().Err(err).Str("queue", queueName).Msg("replay_cron: pop failed")
			break
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.JobType == "" {
			log.Error().Str("queue", queueName).Msg("replay_cron: dropping malformed entry")
			dropped++
			continue
		}
		if entry.Replays >= maxReplays {
			log.Error().
				Str("queue", queueName).
				Str("job_type", entry.JobType).
				Str("reason", entry.Reason).
				Msg("replay_cron: giving up on job")
			dropped++
			continue
		}

		job := Job{Type: entry.JobType, Payload: entry.Payload, Replays: entry.Replays + 1}
		if err := enqueue(ctx, rdb, queueName, job); err != nil {
			log.Error().Err(err).Str("queue", queueName).Msg("replay_cron: re-enqueue failed")
			pushDLQ(ctx, rdb, entry)
			break
		}
		replayed++
	}
	if replayed > 0 || dropped > 0 {
		log.Info().Str("queue", queueName).Int("replayed", replayed).Int("dropped", dropped).Msg("replay_cron: tick done")
	}
	return replayed, dropped
}
