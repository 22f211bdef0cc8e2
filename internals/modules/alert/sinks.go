package alert

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// LogPublisher writes events to the log. It is the default sink.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log *zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "alert_sink").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	lvl := p.log.Warn()
	if ev.Type == TypeURLRecovered {
		lvl = p.log.Info()
	}
	lvl.Str("event_id", ev.ID.String()).
		Str("type", ev.Type).
		Str("user_id", ev.UserID).
		Str("url", ev.URL).
		Str("error_kind", ev.ErrorKind).
		Int("http_status", ev.HTTPStatus).
		Msg("url status changed")
	return nil
}

type bodyPublisher interface {
	Publish(ctx context.Context, body []byte) error
}

// AMQPPublisher sends events as JSON through a confirming rabbitmq publisher.
type AMQPPublisher struct {
	pub bodyPublisher
}

func NewAMQPPublisher(pub bodyPublisher) *AMQPPublisher {
	return &AMQPPublisher{pub: pub}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.pub.Publish(ctx, body)
}

type keyedPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// KafkaPublisher sends events as JSON keyed by url, so events for one url
// land on one partition in order.
type KafkaPublisher struct {
	pub keyedPublisher
}

func NewKafkaPublisher(pub keyedPublisher) *KafkaPublisher {
	return &KafkaPublisher{pub: pub}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.pub.Publish(ctx, ev.URL, body)
}
