package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueComprovante = "jobs:comprovante"
	QueueEmail       = "jobs:email"

	maxAttempts = 3
)

// ErrQueueUnavailable is returned by a Dispatcher built without Redis.
var ErrQueueUnavailable = errors.New("worker: fila indisponível")

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Processor handles one decoded job payload. A returned error is retried
// with backoff and, once attempts run out, the job goes to the DLQ.
type Processor interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueComprovante schedules the receipt PDF (and its e-mail) for a pedido.
func (d *Dispatcher) EnqueueComprovante(ctx context.Context, payload ComprovanteJobPayload) error {
	return d.enqueue(ctx, QueueComprovante, "comprovante", payload)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	if d == nil || d.rdb == nil {
		return ErrQueueUnavailable
	}
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

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb        *redis.Client
	processors map[string]Processor
}

// NewPool maps each queue to the processor that handles it.
func NewPool(rdb *redis.Client, processors map[string]Processor) *Pool {
	return &Pool{rdb: rdb, processors: processors}
}

// Start launches numWorkers goroutines consuming every registered queue.
// Each goroutine blocks on BRPOP while idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	queues := make([]string, 0, len(p.processors))
	for q := range p.processors {
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
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
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

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	proc, ok := p.processors[queue]
	if !ok {
		log.Warn().Str("queue", queue).Str("type", job.Type).Msg("no processor for queue")
		return
	}

	err := withRetry(ctx, maxAttempts, func(attempt int) error {
		err := proc.Process(ctx, job.Payload)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("type", job.Type).Msg("job attempt failed")
		}
		return err
	})
	if err != nil && p.rdb != nil {
		SendToDLQ(ctx, p.rdb, queue, job, err.Error(), maxAttempts)
	}
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			if errors.Is(err, errPermanent) {
				return err
			}
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// errPermanent marks failures that retrying cannot fix (bad payload, missing row).
var errPermanent = errors.New("permanent")
