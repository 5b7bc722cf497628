// Package events distributes business notifications and blueprint
// lifecycle events to in-process handlers and to Kafka.
package events

import (
	"context"
	"sync"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/delivro/shipment/pkg/shipment"
)

// Bus fans notifications and blueprint events out to every subscribed
// handler. It satisfies both collaborator interfaces of the shipment
// package, so one bus can be wired into the builder for both concerns.
type Bus struct {
	mu        sync.RWMutex
	notifiers []shipment.Notifier
	observers []shipment.BlueprintObserver
}

var (
	_ shipment.Notifier          = (*Bus)(nil)
	_ shipment.BlueprintObserver = (*Bus)(nil)
)

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeNotifier adds a notification handler.
func (b *Bus) SubscribeNotifier(n shipment.Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifiers = append(b.notifiers, n)
}

// SubscribeObserver adds a blueprint observer.
func (b *Bus) SubscribeObserver(o shipment.BlueprintObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

func (b *Bus) Notify(ctx context.Context, n shipment.Notification) {
	b.mu.RLock()
	handlers := append([]shipment.Notifier(nil), b.notifiers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h.Notify(ctx, n)
	}
}

func (b *Bus) BlueprintCreated(ctx context.Context, orderID string, bp shipment.ShipmentBlueprint) {
	b.mu.RLock()
	handlers := append([]shipment.BlueprintObserver(nil), b.observers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h.BlueprintCreated(ctx, orderID, bp)
	}
}

// LogNotifier writes notifications to the structured log. Always
// subscribed, so notifications show up even without Kafka.
type LogNotifier struct {
	Logger *otelzap.Logger
}

var _ shipment.Notifier = LogNotifier{}

func (l LogNotifier) Notify(ctx context.Context, n shipment.Notification) {
	l.Logger.Ctx(ctx).Info("Business notification",
		zap.String("type", string(n.Type)),
		zap.String("order_id", n.OrderID),
		zap.String("message", n.Message),
	)
}
