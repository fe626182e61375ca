package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/adilzhm/tably/internal/interfaces"
)

type publisher struct {
	conn     Connection
	exchange string
}

// NewPublisher publishes events on a durable topic exchange. The topic
// string (e.g. "acropolis-street-food/orders/preparing") is used as the
// routing key unchanged, so printer bridges and other consumers can
// bind per-store queues.
func NewPublisher(conn Connection, exchange string) interfaces.BrokerPublisher {
	return &publisher{conn: conn, exchange: exchange}
}

func (p *publisher) Publish(ctx context.Context, topic string, body []byte) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	err = ch.Publish(p.exchange, topic, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
