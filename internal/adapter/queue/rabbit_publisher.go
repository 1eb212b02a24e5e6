package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aq2208/bookstore-api/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExportRoutingKey = "cart.export.requested"
	ExportQueue      = "cart.export.q"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// DeclareTopology sets up the topic exchange and the export command queue once at startup.
// Book events are published to the exchange for whoever binds to book.*.
func DeclareTopology(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		ExportQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, ExportRoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

// RabbitPublisher implements usecase.EventPublisher.
type RabbitPublisher struct {
	ch       publishChannel
	exchange string
}

func NewRabbitPublisher(ch publishChannel, exchange string) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, exchange: exchange}
}

// PublishBookEvent routes on the event type, e.g. book.created.
func (p *RabbitPublisher) PublishBookEvent(ctx context.Context, ev usecase.BookEventMsg) error {
	return p.publish(ctx, string(ev.Type), ev.EventID, ev)
}

func (p *RabbitPublisher) PublishExportRequested(ctx context.Context, msg usecase.ExportCartRequestedMsg) error {
	return p.publish(ctx, ExportRoutingKey, "", msg)
}

func (p *RabbitPublisher) publish(ctx context.Context, key, msgID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		MessageId:    msgID,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

var _ usecase.EventPublisher = (*RabbitPublisher)(nil)
