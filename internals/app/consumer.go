package app

import (
	"context"
)

func StartConsumer(ctx context.Context, c *Container) {
	c.wg.Add(1)

	// Consume ranges over the delivery channel, so it gets its own goroutine
	go func() {
		defer c.wg.Done()
		if err := c.Consumer.Consume(ctx, c.eventHandler); err != nil {
			c.Logger.Error().
				Err(err).
				Msg("rabbitmq consumer stopped")
		}
	}()
}
