package shipment

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered carrier integrations and resolves their
// optional capabilities once, instead of scattering type assertions across
// call sites.
type Registry struct {
	carriers map[string]Carrier
	mu       sync.RWMutex
}

// Capabilities is the set of optional interfaces a carrier may implement.
// Unsupported capabilities are nil.
type Capabilities struct {
	Returns        ReturnShipmentCarrier
	CashOnDelivery CashOnDeliveryCarrier
	TrackingURL    TrackingURLProvider
	Health         HealthChecker
}

// NewRegistry creates a new carrier registry.
func NewRegistry() *Registry {
	return &Registry{
		carriers: make(map[string]Carrier),
	}
}

// Register adds a carrier to the registry.
func (r *Registry) Register(c Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers[c.Name()] = c
}

// Get returns a carrier by name.
func (r *Registry) Get(name string) (Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.carriers[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// Capabilities resolves the optional capability interfaces of a carrier.
func (r *Registry) Capabilities(name string) (Capabilities, error) {
	c, err := r.Get(name)
	if err != nil {
		return Capabilities{}, err
	}
	caps := Capabilities{}
	if v, ok := c.(ReturnShipmentCarrier); ok {
		caps.Returns = v
	}
	if v, ok := c.(CashOnDeliveryCarrier); ok {
		caps.CashOnDelivery = v
	}
	if v, ok := c.(TrackingURLProvider); ok {
		caps.TrackingURL = v
	}
	if v, ok := c.(HealthChecker); ok {
		caps.Health = v
	}
	return caps, nil
}

// All returns all registered carriers.
func (r *Registry) All() []Carrier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Carrier, 0, len(r.carriers))
	for _, c := range r.carriers {
		result = append(result, c)
	}
	return result
}

// Names returns the names of all registered carriers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.carriers))
	for name := range r.carriers {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered carriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carriers)
}

// PingAll checks the health of every carrier implementing HealthChecker, in
// parallel. The returned map holds one entry per pinged carrier; a nil
// value means healthy.
func (r *Registry) PingAll(ctx context.Context) map[string]error {
	carriers := r.All()

	results := make(map[string]error)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, c := range carriers {
		hc, ok := c.(HealthChecker)
		if !ok {
			continue
		}
		name := c.Name()
		g.Go(func() error {
			err := hc.Ping(ctx)
			mu.Lock()
			defer mu.Unlock()
			results[name] = err
			return nil // one unhealthy carrier must not stop the rest
		})
	}

	g.Wait()
	return results
}
