package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueClosed is returned by operations on a closed MemoryQueue
	ErrQueueClosed = errors.New("queue closed")
	// ErrQueueFull is returned when a MemoryQueue has no free capacity
	ErrQueueFull = errors.New("queue full")
)

// MemoryQueue is an in-process JobQueue. Nacked jobs without requeue land in DeadLetters.
type MemoryQueue struct {
	mu       sync.Mutex
	jobs     chan *Job
	inflight map[uint64]*Job
	nextTag  uint64
	dead     []*Job
	closed   bool
}

// NewMemoryQueue creates a queue holding up to capacity pending jobs
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemoryQueue{
		jobs:     make(chan *Job, capacity),
		inflight: make(map[uint64]*Job),
	}
}

// Enqueue adds a job without blocking
func (q *MemoryQueue) Enqueue(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := job.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume delivers jobs until ctx is cancelled or the queue is closed
func (q *MemoryQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	if prefetchCount <= 0 {
		prefetchCount = 1
	}
	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				q.mu.Lock()
				if ctx.Err() != nil {
					q.mu.Unlock()
					q.requeue(job)
					return
				}
				q.nextTag++
				tag := q.nextTag
				q.inflight[tag] = job
				q.mu.Unlock()

				select {
				case msgChan <- &Message{Job: job, DeliveryTag: tag, Channel: q}:
				case <-ctx.Done():
					_ = q.Nack(tag, false, true)
					return
				}
			}
		}
	}()
	return msgChan, errChan, nil
}

func (q *MemoryQueue) requeue(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		select {
		case q.jobs <- job:
			return
		default:
		}
	}
	q.dead = append(q.dead, job)
}

// Pending returns the number of jobs waiting for delivery
func (q *MemoryQueue) Pending() int {
	return len(q.jobs)
}

// DeadLetters returns the jobs that were rejected without requeue
func (q *MemoryQueue) DeadLetters() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Job(nil), q.dead...)
}

// PurgeOlderThan drops dead letters whose job was created before now minus retention
func (q *MemoryQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-retention)

	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.dead[:0]
	for _, job := range q.dead {
		if job.CreatedAt.After(cutoff) {
			kept = append(kept, job)
		}
	}
	purged := len(q.dead) - len(kept)
	for i := len(kept); i < len(q.dead); i++ {
		q.dead[i] = nil
	}
	q.dead = kept
	return purged, nil
}

// Ack implements amqp.Acknowledger
func (q *MemoryQueue) Ack(tag uint64, _ bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, tag)
	return nil
}

// Nack implements amqp.Acknowledger
func (q *MemoryQueue) Nack(tag uint64, _ bool, requeue bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.inflight[tag]
	if !ok {
		return nil
	}
	delete(q.inflight, tag)
	if requeue && !q.closed {
		select {
		case q.jobs <- job:
			return nil
		default:
		}
	}
	q.dead = append(q.dead, job)
	return nil
}

// Reject implements amqp.Acknowledger
func (q *MemoryQueue) Reject(tag uint64, requeue bool) error {
	return q.Nack(tag, false, requeue)
}

// HealthCheck fails once the queue is closed
func (q *MemoryQueue) HealthCheck(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	return nil
}

// Close stops delivery. Pending jobs are discarded.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}

var (
	_ JobQueue  = (*MemoryQueue)(nil)
	_ DLQPurger = (*MemoryQueue)(nil)
)
