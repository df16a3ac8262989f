package worker

// retry_cron.go
// Background goroutine that periodically moves dead-lettered email jobs back
// onto their queue once the SMTP circuit breaker has recovered. Each job is
// redriven at most maxRedrives times; after that it stays in the DLQ.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cashpos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redriveTickInterval = 5 * time.Minute
	redriveBatchSize    = 10
	maxRedrives         = 3
)

type RedriveCronConfig struct {
	RDB   Lists
	CB    *infra.CircuitBreaker // nil: always redrive
	Queue string
}

// StartRedriveCron ticks every redriveTickInterval until ctx is done.
func StartRedriveCron(ctx context.Context, cfg RedriveCronConfig) {
	go func() {
		ticker := time.NewTicker(redriveTickInterval)
		defer ticker.Stop()

		log.Info().Str("queue", cfg.Queue).Msg("redrive_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("redrive_cron: shutting down")
				return
			case <-ticker.C:
				if n := redrive(ctx, cfg); n > 0 {
					log.Info().Int("jobs", n).Str("queue", cfg.Queue).Msg("redrive_cron: jobs requeued")
				}
			}
		}
	}()
}

// redrive moves up to redriveBatchSize entries from the DLQ back to the queue.
func redrive(ctx context.Context, cfg RedriveCronConfig) int {
	// skip the whole tick while the SMTP breaker is open
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("redrive_cron: circuit breaker is open, skipping tick")
		return 0
	}

	moved := 0
	for i := 0; i < redriveBatchSize; i++ {
		raw, err := cfg.RDB.RPop(ctx, DLQPrefix+cfg.Queue).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			log.Error().Err(err).Msg("redrive_cron: pop failed")
			break
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Msg("redrive_cron: dropping unreadable DLQ entry")
			continue
		}
		if entry.Redrives >= maxRedrives {
			// park it at the head so the batch moves on to older entries next tick
			pushDLQ(ctx, cfg.RDB, entry)
			continue
		}

		job, err := json.Marshal(Job{Type: entry.JobType, Payload: entry.Payload, Redrives: entry.Redrives + 1})
		if err != nil {
			continue
		}
		if err := cfg.RDB.LPush(ctx, cfg.Queue, job).Err(); err != nil {
			log.Error().Err(err).Msg("redrive_cron: requeue failed")
			pushDLQ(ctx, cfg.RDB, entry)
			break
		}
		moved++
	}
	return moved
}
