package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"keepalive/config"
)

// NewAsyncProducer builds a sarama producer that waits for all in-sync
// replicas and reports successes.
func NewAsyncProducer(cfg *config.KafkaConfig) (sarama.AsyncProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.ClientID = cfg.ClientID

	return sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
}

type Producer struct {
	asyncProducer sarama.AsyncProducer
	topic         string
	log           zerolog.Logger
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

func NewProducer(asyncProducer sarama.AsyncProducer, topic string, log *zerolog.Logger) *Producer {
	return &Producer{
		asyncProducer: asyncProducer,
		topic:         topic,
		log:           log.With().Str("component", "kafka_producer").Str("topic", topic).Logger(),
	}
}

// Start drains the success and error channels until Close.
func (p *Producer) Start() {
	p.wg.Add(2)
	go p.handleSuccess()
	go p.handleErrors()
}

func (p *Producer) handleSuccess() {
	defer p.wg.Done()
	for msg := range p.asyncProducer.Successes() {
		key, _ := msg.Key.Encode()
		p.log.Debug().
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Str("key", string(key)).
			Msg("message delivered")
	}
}

func (p *Producer) handleErrors() {
	defer p.wg.Done()
	for perr := range p.asyncProducer.Errors() {
		p.log.Error().Err(perr.Err).Msg("message delivery failed")
	}
}

// Publish queues value under key. Delivery is reported asynchronously.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now(),
	}

	select {
	case p.asyncProducer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending messages and waits for the handlers.
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		p.asyncProducer.AsyncClose()
		p.wg.Wait()
		p.log.Info().Msg("kafka producer closed")
	})
}
