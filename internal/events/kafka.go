package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/delivro/shipment/pkg/shipment"
)

// Writer is the subset of kafka.Writer the publisher needs. Tests inject
// a fake.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes notifications and blueprint events to one
// Kafka topic, keyed by order ID so events of the same order stay
// ordered. Publish failures are logged and swallowed: event delivery
// must never fail the shipment operation that triggered it.
type KafkaPublisher struct {
	writer Writer
	logger *otelzap.Logger
}

var (
	_ shipment.Notifier          = (*KafkaPublisher)(nil)
	_ shipment.BlueprintObserver = (*KafkaPublisher)(nil)
)

// NewKafkaPublisher creates a publisher writing to the given brokers and
// topic.
func NewKafkaPublisher(brokers []string, topic string, logger *otelzap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

// NewKafkaPublisherWithWriter allows injecting a test writer.
func NewKafkaPublisherWithWriter(w Writer, logger *otelzap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger}
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type notificationEvent struct {
	Event      string    `json:"event"`
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

type blueprintEvent struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"orderId"`
	CarrierName string    `json:"carrierName"`
	IsReturn    bool      `json:"isReturn"`
	Parcels     int       `json:"parcels"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func (p *KafkaPublisher) Notify(ctx context.Context, n shipment.Notification) {
	p.publish(ctx, n.OrderID, notificationEvent{
		Event:      "notification",
		Type:       string(n.Type),
		OrderID:    n.OrderID,
		Message:    n.Message,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *KafkaPublisher) BlueprintCreated(ctx context.Context, orderID string, bp shipment.ShipmentBlueprint) {
	p.publish(ctx, orderID, blueprintEvent{
		Event:       "blueprint-created",
		OrderID:     orderID,
		CarrierName: bp.CarrierName,
		IsReturn:    bp.IsReturn,
		Parcels:     len(bp.Parcels),
		OccurredAt:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, key string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Ctx(ctx).Error("Marshalling event payload failed", zap.Error(err))
		return
	}
	msg := kafka.Message{Key: []byte(key), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Ctx(ctx).Error("Publishing event failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
