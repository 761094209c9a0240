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
	QueueEmailCierre    = "jobs:email_cierre"
	QueueTelegramCierre = "jobs:telegram_cierre"

	JobEmailCierre    = "email_cierre"
	JobTelegramCierre = "telegram_cierre"

	// MaxAttempts is how many times a job runs before it goes to the DLQ.
	MaxAttempts = 4
)

// ErrNoReintentar marks a failure that no retry can fix. The job goes
// straight to the DLQ.
var ErrNoReintentar = errors.New("fallo permanente")

// Job is the generic envelope for all async tasks.
type Job struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Queue    string          `json:"queue"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler runs one job payload. A nil error acknowledges the job.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// ── Dispatcher ───────────────────────────────────────────────────────────────

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EncolarEmailCierre queues the PDF report of a closing for mailing.
func (d *Dispatcher) EncolarEmailCierre(ctx context.Context, cierreID uuid.UUID, destinatario string) error {
	return d.enqueue(ctx, QueueEmailCierre, JobEmailCierre, EmailCierrePayload{
		CierreID:     cierreID.String(),
		Destinatario: destinatario,
	})
}

// EncolarTelegramCierre queues the text summary of a closing for the
// configured chat.
func (d *Dispatcher) EncolarTelegramCierre(ctx context.Context, cierreID uuid.UUID) error {
	return d.enqueue(ctx, QueueTelegramCierre, JobTelegramCierre, TelegramCierrePayload{
		CierreID: cierreID.String(),
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{ID: uuid.NewString(), Type: jobType, Queue: queue, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := d.rdb.LPush(ctx, queue, encoded).Err(); err != nil {
		return fmt.Errorf("encolar %s: %w", jobType, err)
	}
	log.Debug().Str("queue", queue).Str("job_id", job.ID).Msg("job enqueued")
	return nil
}

// ── Pool ─────────────────────────────────────────────────────────────────────

// Pool consumes the queues that have a registered handler.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]Handler
	queues   []string
	now      func() time.Time
}

func NewPool(rdb *redis.Client) *Pool {
	return &Pool{rdb: rdb, handlers: make(map[string]Handler), now: time.Now}
}

// Register binds a handler to a job type and the queue it arrives on.
func (p *Pool) Register(queue, jobType string, h Handler) {
	if _, ok := p.handlers[jobType]; !ok {
		p.queues = append(p.queues, queue)
	}
	p.handlers[jobType] = h
}

// Start launches numWorkers goroutines consuming every registered queue.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	if len(p.queues) == 0 {
		log.Info().Msg("worker pool: no handlers registered, not starting")
		return
	}
	for i := 0; i < numWorkers; i++ {
		go p.runWorker(ctx, i)
	}
	log.Info().Strs("queues", p.queues).Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
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
			p.processJob(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		abandonar(ctx, p.rdb, queue, Job{Payload: json.RawMessage(raw)}, "envelope ilegible: "+err.Error())
		return
	}
	if job.Queue == "" {
		job.Queue = queue
	}

	h, ok := p.handlers[job.Type]
	if !ok {
		abandonar(ctx, p.rdb, queue, job, "tipo de job sin handler")
		return
	}

	job.Attempts++
	logger := log.With().Str("queue", queue).Str("type", job.Type).Str("job_id", job.ID).Int("attempt", job.Attempts).Logger()
	logger.Info().Msg("processing job")

	err := h.Process(ctx, job.Payload)
	if err == nil {
		logger.Info().Msg("job done")
		return
	}

	switch {
	case errors.Is(err, ErrNoReintentar):
		abandonar(ctx, p.rdb, queue, job, err.Error())
	case job.Attempts >= MaxAttempts:
		abandonar(ctx, p.rdb, queue, job, fmt.Sprintf("max retries (%d) exceeded: %s", MaxAttempts, err))
	default:
		next := p.now().Add(computeRetryBackoff(job.Attempts))
		if serr := scheduleRetry(ctx, p.rdb, job, next); serr != nil {
			logger.Error().Err(serr).Msg("could not schedule retry, moving to DLQ")
			abandonar(ctx, p.rdb, queue, job, err.Error())
			return
		}
		logger.Warn().Err(err).Time("next_retry_at", next).Msg("job failed, retry scheduled")
	}
}
