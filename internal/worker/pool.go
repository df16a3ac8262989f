package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cashpos/internal/infra"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueCloseReport = "jobs:close_report"
	QueueEmail       = "jobs:email"

	maxAttempts = 3
)

// Lists is the subset of the Redis client the queue needs.
type Lists interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPop(ctx context.Context, key string) *redis.StringCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	// Redrives counts how many times the job came back from the DLQ.
	Redrives int `json:"redrives,omitempty"`
}

// CloseReportPayload is the body of a close_report job.
type CloseReportPayload struct {
	SessionID string `json:"session_id"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb Lists
}

func NewDispatcher(rdb Lists) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueCloseReport pushes a report job for a just-closed session.
func (d *Dispatcher) EnqueueCloseReport(ctx context.Context, sessionID uuid.UUID) error {
	return d.enqueue(ctx, QueueCloseReport, "close_report", CloseReportPayload{SessionID: sessionID.String()})
}

// EnqueueEmail pushes an email job.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handler processes one job payload. Returning a Permanent error skips the
// remaining attempts and sends the job straight to the DLQ.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error { return &permanentError{err: err} }

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Pool runs registered handlers against their queues.
type Pool struct {
	rdb      Lists
	handlers map[string]Handler
	metrics  *infra.Metrics
	backoff  func(attempt int) time.Duration
	// popRetry is the pause after a failed BRPOP, e.g. while Redis is down.
	popRetry time.Duration
}

func NewPool(rdb Lists, metrics *infra.Metrics) *Pool {
	return &Pool{
		rdb:      rdb,
		handlers: make(map[string]Handler),
		metrics:  metrics,
		// 1s, 2s … (exponential backoff)
		backoff:  func(attempt int) time.Duration { return time.Duration(1<<uint(attempt-1)) * time.Second },
		popRetry: time.Second,
	}
}

// Handle registers h for queue. Must be called before Start.
func (p *Pool) Handle(queue string, h Handler) { p.handlers[queue] = h }

// Start launches numWorkers goroutines consuming every registered queue.
// Each goroutine blocks on BRPOP while idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	queues := make([]string, 0, len(p.handlers))
	for q := range p.handlers {
		queues = append(queues, q)
	}
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i, queues)
	}
	log.Info().Int("workers", numWorkers).Strs("queues", queues).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, id int, queues []string) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil && !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Error().Err(err).Int("worker", id).Msg("queue pop failed")
				select {
				case <-ctx.Done():
				case <-time.After(p.popRetry):
				}
				continue
			}
			if err != nil || len(result) < 2 {
				continue // timeout or context cancelled
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

// process runs one raw job with up to maxAttempts tries and dead-letters it on failure.
func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, Job{Type: "unknown", Payload: json.RawMessage(`null`)}, "malformed envelope: "+err.Error(), 0)
		p.count(queue, "dead")
		return
	}
	h, ok := p.handlers[queue]
	if !ok {
		log.Error().Str("queue", queue).Msg("no handler for queue")
		return
	}

	attempts := 0
	err := withRetry(ctx, maxAttempts, p.backoff, func(attempt int) error {
		attempts = attempt + 1
		err := h.Process(ctx, job.Payload)
		if err != nil && !isPermanent(err) {
			log.Warn().Err(err).Str("queue", queue).Int("attempt", attempts).Msg("job attempt failed")
		}
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		SendToDLQ(ctx, p.rdb, queue, job, err.Error(), attempts)
		p.count(queue, "dead")
		return
	}
	p.count(queue, "ok")
}

func (p *Pool) count(queue, outcome string) {
	if p.metrics != nil {
		p.metrics.JobsProcessed.WithLabelValues(queue, outcome).Inc()
	}
}

// withRetry calls fn up to maxAttempts times, waiting backoff(i) before
// attempt i. Permanent errors stop immediately.
func withRetry(ctx context.Context, maxAttempts int, backoff func(int) time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(i)):
			}
		}
		err := fn(i)
		if err == nil {
			return nil
		}
		lastErr = err
		if isPermanent(err) {
			return err
		}
	}
	return lastErr
}
