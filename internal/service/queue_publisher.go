// Package service publishes order events to the configured broker.
// Publishing is best effort: failures are logged and counted, never
// returned to the request that triggered them.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/apparel-storefront/internal/config"
	"github.com/iliyamo/apparel-storefront/internal/metrics"
	"github.com/iliyamo/apparel-storefront/internal/queue"
)

// Publisher sends order events to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev queue.OrderEvent) error
	Close() error
}

// NewPublisher returns the publisher selected by cfg.Driver. Unknown
// drivers fall back to NopPublisher.
func NewPublisher(cfg config.EventsConfig) Publisher {
	switch cfg.Driver {
	case "rabbitmq":
		return &RabbitPublisher{url: cfg.RabbitURL, queue: cfg.Queue}
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.Topic)
	case "", "none":
		return NopPublisher{}
	}
	log.Warn().Str("driver", cfg.Driver).Msg("unknown events driver, events disabled")
	return NopPublisher{}
}

// Emit publishes ev with a short timeout, detached from the request so a
// client disconnect does not drop the event. Errors are only logged.
func Emit(ctx context.Context, p Publisher, ev queue.OrderEvent) {
	if p == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.Publish(pctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues(ev.Type, "failed").Inc()
		zerolog.Ctx(ctx).Warn().Err(err).Str("type", ev.Type).Uint64("order_id", ev.OrderID).Msg("publish order event failed")
		return
	}
	metrics.EventsPublished.WithLabelValues(ev.Type, "ok").Inc()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.OrderEvent) error { return nil }
func (NopPublisher) Close() error                                    { return nil }

// RabbitPublisher sends persistent JSON messages to a durable queue on the
// default exchange. The connection is opened lazily and reopened after a
// failure.
type RabbitPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev queue.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Type:         ev.Type,
		MessageId:    ev.Key(),
		Body:         body,
	})
	if err != nil {
		p.reset()
	}
	return err
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// KafkaPublisher writes events keyed by order so they stay ordered within
// a partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev queue.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Key()),
		Value: body,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
