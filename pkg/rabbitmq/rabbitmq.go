package rabbitmq

import (
	"fmt"
	"time"

	"keepalive/config"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const dialAttempts = 5

func NewConnection(rmqCfg *config.RabbitMQConfig, log *zerolog.Logger) (*amqp091.Connection, error) {
	var conn *amqp091.Connection
	var err error
	for i := range dialAttempts {
		conn, err = amqp091.Dial(rmqCfg.URL)
		if err == nil {
			return conn, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("rabbitmq connection attempt failed")
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", dialAttempts, err)
}

// SetupTopology declares the exchange and, when account events are
// consumed, the durable queue bound to the user events key.
func SetupTopology(conn *amqp091.Connection, rmqCfg *config.RabbitMQConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		rmqCfg.ExchangeName,
		rmqCfg.ExchangeType,
		true, false, false, false, nil,
	); err != nil {
		return err
	}

	if rmqCfg.UserEventsQueue == "" {
		return nil
	}

	if _, err := ch.QueueDeclare(
		rmqCfg.UserEventsQueue,
		true, false, false, false, nil,
	); err != nil {
		return err
	}

	return ch.QueueBind(
		rmqCfg.UserEventsQueue,
		rmqCfg.UserEventsKey,
		rmqCfg.ExchangeName,
		false, nil,
	)
}
