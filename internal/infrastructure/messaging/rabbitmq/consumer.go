// Package rabbitmq carries deed completions in and finalized-period
// notices out over a topic exchange, with a DLX/DLQ pair for poison
// messages and a TTL retry queue for transient store failures.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/hasanat-app/deeds-service/internal/aggregate"
	"github.com/hasanat-app/deeds-service/internal/domain"
)

const (
	QueueName      = "deeds-service.deed-completions"
	retryQueueName = "deeds-service.deed-completions.retry"
	dlxName        = "deeds.dlx"
	dlqName        = "deeds-service.deed-completions.dlq"
	bindingKey     = "deed.completed"

	maxRetries = 3
	retryTTLms = 5000
)

// DeedCompletedMessage is the wire shape published by the community app when
// a user completes a deed.
type DeedCompletedMessage struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	DeedID     string    `json:"deed_id"`
	PointValue int64     `json:"point_value"`
	OccurredAt time.Time `json:"occurred_at"`
	TraceID    string    `json:"trace_id"`
}

// retryQueuer schedules a delivery for another attempt. Satisfied by
// *amqp.Channel; narrowed so the retry branch stays unit-testable.
type retryQueuer interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Consumer feeds deed completions into the scheduler. It is the message-queue
// twin of the HTTP ingest endpoint; both funnel into the same Apply path.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	retryQ  retryQueuer
	queue   string
	sched   *aggregate.Scheduler
}

func NewConsumer(rabbitURL, exchange string, sched *aggregate.Scheduler) (*Consumer, error) {
	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(dlxName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare dlx: %w", err)
	}

	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare dlq: %w", err)
	}
	if err := ch.QueueBind(dlqName, "", dlxName, false, nil); err != nil {
		return nil, fmt.Errorf("bind dlq: %w", err)
	}

	q, err := ch.QueueDeclare(QueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": dlxName,
	})
	if err != nil {
		return nil, fmt.Errorf("declare main queue: %w", err)
	}

	if _, err := ch.QueueDeclare(retryQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": QueueName,
		"x-message-ttl":             retryTTLms,
	}); err != nil {
		return nil, fmt.Errorf("declare retry queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &Consumer{conn: conn, channel: ch, retryQ: ch, queue: q.Name, sched: sched}, nil
}

func (c *Consumer) Start(ctx context.Context) {
	go c.consume(ctx)
	log.Info().Str("queue", c.queue).Msg("deed completions consumer started")
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to start consuming")
		return
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("consumer shutting down")
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Warn().Msg("consumer channel closed")
				return
			}
			c.handleMessage(msg)
		}
	}
}

func (c *Consumer) handleMessage(msg amqp.Delivery) {
	var dm DeedCompletedMessage
	if err := json.Unmarshal(msg.Body, &dm); err != nil {
		log.Error().Err(err).Str("message_id", msg.MessageId).Msg("unparseable deed completion")
		_ = msg.Nack(false, false) // poison -> DLQ
		return
	}

	e := &domain.DeedEvent{
		ID:         dm.EventID,
		UserID:     dm.UserID,
		DeedID:     dm.DeedID,
		PointValue: dm.PointValue,
		OccurredAt: dm.OccurredAt.UTC(),
		RecordedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := c.sched.OnEvent(ctx, e)
	if err == nil {
		if res.ClockSkew {
			log.Warn().
				Str("event_id", e.ID).
				Str("trace_id", dm.TraceID).
				Msg("late deed accepted into finalized period")
		}
		_ = msg.Ack(false)
		return
	}

	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Code == domain.CodeValidation {
		log.Error().Err(err).Str("event_id", dm.EventID).Msg("invalid deed completion, dead-lettering")
		_ = msg.Nack(false, false)
		return
	}

	// Transient failure: park the message on the retry queue, DLQ after the
	// retry budget is spent.
	retryCount := 0
	if val, ok := msg.Headers["x-retry-count"].(int32); ok {
		retryCount = int(val)
	}
	if retryCount >= maxRetries {
		log.Error().Err(err).Str("event_id", dm.EventID).Msg("max retries reached, dead-lettering")
		_ = msg.Nack(false, false)
		return
	}

	headers := make(amqp.Table, len(msg.Headers)+1)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retry-count"] = int32(retryCount + 1)

	if pubErr := c.retryQ.PublishWithContext(ctx, "", retryQueueName, false, false, amqp.Publishing{
		ContentType: msg.ContentType,
		Body:        msg.Body,
		Headers:     headers,
		MessageId:   msg.MessageId,
	}); pubErr != nil {
		log.Error().Err(pubErr).Msg("failed to schedule retry")
		_ = msg.Nack(false, false)
		return
	}

	log.Warn().Err(err).Int("retry", retryCount+1).Str("event_id", dm.EventID).Msg("deed completion retry scheduled")
	_ = msg.Ack(false)
}
