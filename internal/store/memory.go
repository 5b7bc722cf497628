// Package store provides the persistence implementations behind the
// shipment package's store interfaces: an in-memory variant for local
// development and tests, and a PostgreSQL variant for production.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/delivro/shipment/pkg/shipment"
)

// MemoryShipmentStore is an in-memory shipment.ShipmentStore. Safe for
// concurrent use.
type MemoryShipmentStore struct {
	mu        sync.RWMutex
	shipments map[string]*shipment.Shipment
}

var _ shipment.ShipmentStore = (*MemoryShipmentStore)(nil)

// NewMemoryShipmentStore creates an empty store.
func NewMemoryShipmentStore() *MemoryShipmentStore {
	return &MemoryShipmentStore{shipments: make(map[string]*shipment.Shipment)}
}

func (s *MemoryShipmentStore) FindShipment(ctx context.Context, shipmentID string) (*shipment.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shipments[shipmentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shipment.ErrShipmentNotFound, shipmentID)
	}
	clone := *sh
	return &clone, nil
}

func (s *MemoryShipmentStore) FindShipmentsByOrder(ctx context.Context, orderID string) ([]*shipment.Shipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*shipment.Shipment
	for _, sh := range s.shipments {
		for _, id := range sh.OrderIDs {
			if id == orderID {
				clone := *sh
				out = append(out, &clone)
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryShipmentStore) CreateShipment(ctx context.Context, sh *shipment.Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.shipments[sh.ID]; exists {
		return fmt.Errorf("shipment %s already exists", sh.ID)
	}
	clone := *sh
	s.shipments[sh.ID] = &clone
	return nil
}

func (s *MemoryShipmentStore) UpdateShipment(ctx context.Context, sh *shipment.Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.shipments[sh.ID]; !exists {
		return fmt.Errorf("%w: %s", shipment.ErrShipmentNotFound, sh.ID)
	}
	clone := *sh
	s.shipments[sh.ID] = &clone
	return nil
}

func (s *MemoryShipmentStore) DeleteShipments(ctx context.Context, shipmentIDs ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range shipmentIDs {
		delete(s.shipments, id)
	}
	return nil
}

// MemoryOrderStore is an in-memory shipment.OrderStore. Tracking-code
// writes enforce the elevated system scope the way the production store
// does.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*shipment.Order
}

var _ shipment.OrderStore = (*MemoryOrderStore)(nil)

// NewMemoryOrderStore creates a store seeded with the given orders.
func NewMemoryOrderStore(orders ...*shipment.Order) *MemoryOrderStore {
	s := &MemoryOrderStore{orders: make(map[string]*shipment.Order, len(orders))}
	for _, o := range orders {
		clone := *o
		s.orders[o.ID] = &clone
	}
	return s
}

// Put inserts or replaces an order.
func (s *MemoryOrderStore) Put(o *shipment.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *o
	s.orders[o.ID] = &clone
}

func (s *MemoryOrderStore) FindOrder(ctx context.Context, orderID string) (*shipment.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shipment.ErrOrderNotFound, orderID)
	}
	clone := *o
	if o.PrimaryDelivery != nil {
		delivery := *o.PrimaryDelivery
		clone.PrimaryDelivery = &delivery
	}
	return &clone, nil
}

func (s *MemoryOrderStore) UpdateDeliveryTrackingCodes(ctx context.Context, scope shipment.WriteScope, orderID string, codes []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if scope != shipment.ScopeSystem {
		return shipment.ErrElevatedScopeRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", shipment.ErrOrderNotFound, orderID)
	}
	if o.PrimaryDelivery == nil {
		return fmt.Errorf("order %s has no primary delivery", orderID)
	}
	o.PrimaryDelivery.TrackingCodes = append([]string(nil), codes...)
	return nil
}

func (s *MemoryOrderStore) UpdateReturnTrackingCodes(ctx context.Context, scope shipment.WriteScope, orderID string, joined string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if scope != shipment.ScopeSystem {
		return shipment.ErrElevatedScopeRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", shipment.ErrOrderNotFound, orderID)
	}
	o.ReturnTrackingCodes = joined
	return nil
}

// PassthroughTx is a shipment.TxRunner without transactional semantics,
// paired with the in-memory stores.
type PassthroughTx struct{}

var _ shipment.TxRunner = PassthroughTx{}

func (PassthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
