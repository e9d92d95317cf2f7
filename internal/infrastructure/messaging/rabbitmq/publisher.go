package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hasanat-app/deeds-service/internal/domain"
)

const (
	DefaultExchange = "community.deeds"

	finalizedRoutingKey = "period.finalized"

	// wait window for a broker Return / Confirm
	publishWait = 150 * time.Millisecond
)

// PeriodFinalizedMessage announces a closed aggregation window so downstream
// consumers (notifications, archival) can react.
type PeriodFinalizedMessage struct {
	PeriodKind  string    `json:"period_kind"`
	PeriodKey   string    `json:"period_key"`
	FinalizedAt time.Time `json:"finalized_at"`
}

// Publisher emits period.finalized notices with publisher confirms.
type Publisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch
	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil
}

// PublishFinalized implements aggregate.FinalizePublisher. The message id is
// the period identity, stable across retries, so consumers can dedupe.
func (p *Publisher) PublishFinalized(ctx context.Context, period domain.Period, finalizedAt time.Time) error {
	body, err := json.Marshal(PeriodFinalizedMessage{
		PeriodKind:  string(period.Kind),
		PeriodKey:   period.Key,
		FinalizedAt: finalizedAt.UTC(),
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return errors.New("publisher channel not ready")
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, finalizedRoutingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:   period.String(),
			ContentType: "application/json",
			Timestamp:   time.Now().UTC(),
			Body:        body,
		},
	)
	if err != nil {
		return err
	}

	select {
	case ret := <-p.returnCh:
		return errors.New("NO_ROUTE: " + ret.RoutingKey)
	case conf := <-p.confirmCh:
		if !conf.Ack {
			return errors.New("publish nack")
		}
		return nil
	case <-time.After(publishWait):
		// Best-effort window; finalize notices are advisory.
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
