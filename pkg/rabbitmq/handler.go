package rabbitmq

import (
	"context"

	"github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery. A nil error acks it, an error nacks it
// without requeue.
type Handler interface {
	Handle(ctx context.Context, msg amqp091.Delivery) error
}

type HandlerFunc func(ctx context.Context, msg amqp091.Delivery) error

func (f HandlerFunc) Handle(ctx context.Context, msg amqp091.Delivery) error {
	return f(ctx, msg)
}
