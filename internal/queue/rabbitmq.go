package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultQueueName is the default queue name
	DefaultQueueName = "place_index_jobs"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "place_index_jobs_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "place_jobs"
	// DefaultDelayedExchangeName is the default delayed exchange name (requires plugin)
	DefaultDelayedExchangeName = "place_jobs_delayed"

	jobsRoutingKey = "jobs"
	dlqRoutingKey  = "dlq"
)

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn                *amqp.Connection
	channel             *amqp.Channel
	queueName           string
	dlqName             string
	exchangeName        string
	delayedExchangeName string
	logger              *zap.Logger
}

// NewRabbitMQQueue dials amqpURL and declares the place index topology. logger may be nil.
func NewRabbitMQQueue(amqpURL string, logger *zap.Logger) (*RabbitMQQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:                conn,
		channel:             ch,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
		logger:              logger,
	}
	if err := q.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}
	return q, nil
}

type queueBinding struct {
	queue, key, exchange string
	// optional bindings target the delayed exchange, which only exists with the plugin
	optional bool
}

// setup declares the exchanges, the index queue and its dead letter queue.
// Retries go through the delayed exchange when the rabbitmq_delayed_message_exchange
// plugin is installed and fall back to immediate redelivery otherwise.
func (q *RabbitMQQueue) setup() error {
	if err := q.declareDelayedExchange(); err != nil {
		return err
	}
	if err := q.channel.ExchangeDeclare(q.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", q.exchangeName, err)
	}

	if _, err := q.channel.QueueDeclare(q.dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ %s: %w", q.dlqName, err)
	}
	if _, err := q.channel.QueueDeclare(q.queueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", q.queueName, err)
	}

	bindings := []queueBinding{
		{queue: q.dlqName, key: dlqRoutingKey, exchange: q.exchangeName},
		{queue: q.queueName, key: jobsRoutingKey, exchange: q.exchangeName},
		{queue: q.queueName, key: jobsRoutingKey, exchange: q.delayedExchangeName, optional: true},
	}
	for _, b := range bindings {
		err := q.channel.QueueBind(b.queue, b.key, b.exchange, false, nil)
		if err == nil {
			continue
		}
		if !b.optional {
			return fmt.Errorf("failed to bind %s to %s: %w", b.queue, b.exchange, err)
		}
		q.logger.Debug("optional_binding_skipped", zap.String("queue", b.queue), zap.String("exchange", b.exchange), zap.Error(err))
		if err := q.reopenChannel(); err != nil {
			return err
		}
	}
	return nil
}

// declareDelayedExchange tolerates a broker without the delayed message plugin
func (q *RabbitMQQueue) declareDelayedExchange() error {
	err := q.channel.ExchangeDeclare(q.delayedExchangeName, "x-delayed-message", true, false, false, false,
		amqp.Table{"x-delayed-type": "direct"})
	if err == nil {
		return nil
	}
	q.logger.Warn("delayed_exchange_unavailable", zap.Error(err))
	return q.reopenChannel()
}

// reopenChannel replaces the channel after the broker closed it on a failed declaration
func (q *RabbitMQQueue) reopenChannel() error {
	if !q.channel.IsClosed() {
		return nil
	}
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to reopen channel: %w", err)
	}
	q.channel = ch
	return nil
}

// Enqueue publishes a job. Jobs with a future NotBefore go through the delayed exchange;
// NotAfter becomes the message TTL.
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
		Type:         string(job.Type),
	}
	if job.NotAfter != nil {
		if ttl := time.Until(*job.NotAfter); ttl > 0 {
			publishing.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
		}
	}

	exchange := q.exchangeName
	if job.NotBefore != nil {
		if delay := time.Until(*job.NotBefore); delay > 0 {
			exchange = q.delayedExchangeName
			publishing.Headers = amqp.Table{"x-delay": delay.Milliseconds()}
		}
	}

	if err := q.channel.PublishWithContext(ctx, exchange, jobsRoutingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish %s job for %s: %w", job.Type, job.PlaceID, err)
	}
	return nil
}

// Consume delivers index jobs on a dedicated channel with the given prefetch.
// Undecodable, invalid and expired jobs are dead-lettered without reaching the caller.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	if prefetchCount <= 0 {
		prefetchCount = 1
	}
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}
	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	deliveries, err := consumeCh.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() { _ = consumeCh.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					q.reportError(errChan, fmt.Errorf("delivery channel closed"))
					return
				}
				job, err := decodeDelivery(delivery.Body)
				if err != nil {
					_ = delivery.Nack(false, false)
					q.reportError(errChan, err)
					continue
				}
				if job.IsExpired() {
					q.logger.Info("job_expired", zap.String("job_id", job.ID.String()), zap.String("place_id", job.PlaceID))
					_ = delivery.Nack(false, false)
					continue
				}
				if !job.ShouldProcess() {
					_ = delivery.Nack(false, true)
					continue
				}

				msg := &Message{Job: job, DeliveryTag: delivery.DeliveryTag, Channel: consumeCh}
				select {
				case <-ctx.Done():
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

func decodeDelivery(body []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job %s: %w", job.ID, err)
	}
	return &job, nil
}

// HealthCheck verifies the connection and publishing channel are open
func (q *RabbitMQQueue) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.conn == nil || q.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	if q.channel == nil || q.channel.IsClosed() {
		return fmt.Errorf("rabbitmq channel is closed")
	}
	return nil
}

// PurgeOlderThan drops dead-lettered jobs created before now minus retention.
// The DLQ is FIFO, so scanning stops at the first message inside the window.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return 0, fmt.Errorf("failed to open purge channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	cutoff := time.Now().Add(-retention)
	purged := 0
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		delivery, ok, err := ch.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			return purged, nil
		}

		created := delivery.Timestamp
		var job Job
		if json.Unmarshal(delivery.Body, &job) == nil && !job.CreatedAt.IsZero() {
			created = job.CreatedAt
		}
		if created.After(cutoff) {
			_ = delivery.Nack(false, true)
			return purged, nil
		}
		if err := delivery.Ack(false); err != nil {
			return purged, fmt.Errorf("failed to ack purged message: %w", err)
		}
		purged++
	}
}

func (q *RabbitMQQueue) reportError(errChan chan<- error, err error) {
	select {
	case errChan <- err:
	default:
		q.logger.Warn("queue_error_dropped", zap.Error(err))
	}
}

// Close closes the queue connection
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

var (
	_ JobQueue  = (*RabbitMQQueue)(nil)
	_ DLQPurger = (*RabbitMQQueue)(nil)
)
