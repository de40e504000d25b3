package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/types"
)

// DefaultAMQPQueue receives published ledger records.
const DefaultAMQPQueue = "iagent-pay.ledger"

// Publisher sends an encoded record to a broker.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
	Close() error
}

// AMQPPublisher decorates a Store and publishes every appended record.
// Publishing is best effort: a broker failure is logged and the record stays
// in the underlying store.
type AMQPPublisher struct {
	Store
	publisher Publisher
	logger    logger.Logger
}

func NewAMQPPublisher(store Store, publisher Publisher, log logger.Logger) *AMQPPublisher {
	return &AMQPPublisher{Store: store, publisher: publisher, logger: logger.Or(log)}
}

func (p *AMQPPublisher) Append(ctx context.Context, rec types.TransactionRecord) error {
	if err := p.Store.Append(ctx, rec); err != nil {
		return err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode ledger record: %w", err)
	}
	if err := p.publisher.Publish(ctx, body); err != nil {
		p.logger.Warn("failed to publish ledger record", map[string]any{
			"tx":     rec.TxID,
			"status": string(rec.Status),
			"error":  err.Error(),
		})
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	pubErr := p.publisher.Close()
	if err := p.Store.Close(); err != nil {
		return err
	}
	return pubErr
}

// RabbitMQPublisher publishes to a durable queue on the default exchange.
type RabbitMQPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewRabbitMQPublisher(url, queue string) (*RabbitMQPublisher, error) {
	if url == "" {
		return nil, types.NewError(types.ErrConfigError, "AMQP publisher requires a URL")
	}
	if queue == "" {
		queue = DefaultAMQPQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &RabbitMQPublisher{conn: conn, ch: ch, queue: queue}, nil
}

func (q *RabbitMQPublisher) Publish(ctx context.Context, body []byte) error {
	return q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (q *RabbitMQPublisher) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
