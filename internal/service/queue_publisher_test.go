package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/apparel-storefront/internal/config"
	"github.com/iliyamo/apparel-storefront/internal/metrics"
	"github.com/iliyamo/apparel-storefront/internal/queue"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, queue.OrderEvent) error {
	f.calls++
	return errors.New("broker down")
}
func (f *failingPublisher) Close() error { return nil }

func TestNewPublisherDrivers(t *testing.T) {
	assert.IsType(t, NopPublisher{}, NewPublisher(config.EventsConfig{Driver: "none"}))
	assert.IsType(t, NopPublisher{}, NewPublisher(config.EventsConfig{Driver: "carrier-pigeon"}))
	assert.IsType(t, &RabbitPublisher{}, NewPublisher(config.EventsConfig{Driver: "rabbitmq", Queue: "q"}))

	kp := NewPublisher(config.EventsConfig{Driver: "kafka", KafkaBrokers: []string{"localhost:9092"}, Topic: "t"})
	assert.IsType(t, &KafkaPublisher{}, kp)
	assert.NoError(t, kp.Close())
}

func TestEmitSwallowsErrors(t *testing.T) {
	p := &failingPublisher{}
	ev := queue.OrderEvent{Type: "test.emit", OrderID: 1}
	before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("test.emit", "failed"))

	Emit(context.Background(), p, ev)

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("test.emit", "failed")))

	Emit(context.Background(), NopPublisher{}, ev)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("test.emit", "ok")))
	Emit(context.Background(), nil, ev)
}
