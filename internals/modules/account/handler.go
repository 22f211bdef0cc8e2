package account

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"keepalive/pkg/rabbitmq"
)

const EventUserDeleted = "user.deleted"

type UserDeleted struct {
	UserID string `json:"user_id"`
}

type RegistryService interface {
	RemoveUser(ctx context.Context, userID string) (int, error)
}

// EventHandler consumes account lifecycle events. Only user.deleted is
// acted on; other types are acknowledged and skipped.
type EventHandler struct {
	registry RegistryService
	log      zerolog.Logger
}

func NewEventHandler(registry RegistryService, log *zerolog.Logger) *EventHandler {
	return &EventHandler{
		registry: registry,
		log:      log.With().Str("component", "account_events").Logger(),
	}
}

func (h *EventHandler) Handle(ctx context.Context, msg amqp091.Delivery) error {
	var event rabbitmq.EventPayload
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return err
	}

	if event.Type != EventUserDeleted {
		return nil // ignore unknown events
	}

	var payload UserDeleted
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	if payload.UserID == "" {
		return errors.New("user.deleted without user_id")
	}

	removed, err := h.registry.RemoveUser(ctx, payload.UserID)
	if err != nil {
		return err
	}

	h.log.Info().
		Str("event_id", event.ID.String()).
		Str("user_id", payload.UserID).
		Int("removed", removed).
		Msg("user deleted, urls removed")
	return nil
}
