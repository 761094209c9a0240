package worker

// retry_cron.go
// Failed jobs wait in a sorted set scored by their next attempt time. A
// background goroutine moves the due ones back onto their queue.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	RetryKey = "jobs:reintentos"

	retryTickInterval = 5 * time.Second
	retryBatchSize    = 50

	retryBaseDelay = 10 * time.Second
	retryMaxDelay  = 10 * time.Minute
)

// computeRetryBackoff doubles the delay per attempt: 10s, 20s, 40s ... capped.
func computeRetryBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := retryBaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return d
}

func scheduleRetry(ctx context.Context, rdb *redis.Client, job Job, at time.Time) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.ZAdd(context.WithoutCancel(ctx), RetryKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: encoded,
	}).Err()
}

// StartRetryCron launches the goroutine that re-queues due retries. It
// respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, rdb *redis.Client) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				if _, err := moverReintentos(ctx, rdb, time.Now()); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("retry_cron: failed to move due retries")
				}
			}
		}
	}()
}

// moverReintentos pushes every retry due at now back to its queue and
// returns how many moved. ZREM decides ownership so concurrent movers on
// several instances never duplicate a job.
func moverReintentos(ctx context.Context, rdb *redis.Client, now time.Time) (int, error) {
	due, err := rdb.ZRangeByScore(ctx, RetryKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, raw := range due {
		removed, err := rdb.ZRem(ctx, RetryKey, raw).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil || job.Queue == "" {
			job.Payload = json.RawMessage(raw)
			abandonar(ctx, rdb, "reintentos", job, "reintento ilegible")
			continue
		}
		if err := rdb.LPush(ctx, job.Queue, raw).Err(); err != nil {
			// put it back for the next tick
			_ = rdb.ZAdd(context.WithoutCancel(ctx), RetryKey, redis.Z{Score: float64(now.Unix()), Member: raw}).Err()
			return moved, err
		}
		moved++
		log.Debug().Str("queue", job.Queue).Str("job_id", job.ID).Int("attempts", job.Attempts).Msg("retry_cron: job re-queued")
	}
	if moved > 0 {
		log.Info().Int("count", moved).Msg("retry_cron: retries re-queued")
	}
	return moved, nil
}
