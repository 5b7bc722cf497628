// Package mock provides a scriptable carrier integration for local
// development and tests. It implements every optional capability.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/delivro/shipment/pkg/shipment"
)

const codConfigKey = "cashOnDelivery"

// Client is a scriptable carrier. By default every operation succeeds
// and registration writes a deterministic tracking code onto the
// shipment row. Tests script failures per shipment ID or a whole-call
// error.
type Client struct {
	name      string
	shipments shipment.ShipmentStore

	mu sync.Mutex

	// FailIDs maps shipment IDs to an error message; their operations
	// are recorded as failed results.
	FailIDs map[string]string

	// OmitIDs are dropped from the result set entirely, which violates
	// the carrier contract. Used to test contract enforcement.
	OmitIDs map[string]bool

	// FailFunc, when set, is consulted per loaded shipment; a non-empty
	// return is recorded as that shipment's failure message. Useful when
	// shipment IDs are generated and unknown up front.
	FailFunc func(sh *shipment.Shipment) string

	// OmitFunc is the predicate form of OmitIDs.
	OmitFunc func(sh *shipment.Shipment) bool

	// Err, when set, fails the whole operation before any result is
	// produced.
	Err error

	// PingErr is returned from Ping.
	PingErr error

	registered []string
	cancelled  []string
}

var (
	_ shipment.Carrier               = (*Client)(nil)
	_ shipment.ReturnShipmentCarrier = (*Client)(nil)
	_ shipment.CashOnDeliveryCarrier = (*Client)(nil)
	_ shipment.TrackingURLProvider   = (*Client)(nil)
	_ shipment.HealthChecker         = (*Client)(nil)
)

// New creates a new mock carrier. The store receives the tracking codes
// written during registration.
func New(name string, shipments shipment.ShipmentStore) *Client {
	return &Client{
		name:      name,
		shipments: shipments,
		FailIDs:   make(map[string]string),
		OmitIDs:   make(map[string]bool),
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// Registered returns the IDs of all successfully registered shipments.
func (c *Client) Registered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.registered...)
}

// Cancelled returns the IDs of all successfully cancelled shipments.
func (c *Client) Cancelled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cancelled...)
}

// RegisterShipments books the given shipments.
func (c *Client) RegisterShipments(ctx context.Context, shipmentIDs []string, cfg shipment.CarrierConfig) (*shipment.OperationResultSet, error) {
	return c.register(ctx, shipmentIDs, shipment.TrackingOutgoing)
}

// CancelShipments cancels the given shipments.
func (c *Client) CancelShipments(ctx context.Context, shipmentIDs []string, cfg shipment.CarrierConfig) (*shipment.OperationResultSet, error) {
	return c.cancel(ctx, shipmentIDs)
}

// RegisterReturnShipments books the given return shipments.
func (c *Client) RegisterReturnShipments(ctx context.Context, shipmentIDs []string, cfg shipment.CarrierConfig) (*shipment.OperationResultSet, error) {
	return c.register(ctx, shipmentIDs, shipment.TrackingIncoming)
}

// CancelReturnShipments cancels the given return shipments.
func (c *Client) CancelReturnShipments(ctx context.Context, shipmentIDs []string, cfg shipment.CarrierConfig) (*shipment.OperationResultSet, error) {
	return c.cancel(ctx, shipmentIDs)
}

func (c *Client) register(ctx context.Context, shipmentIDs []string, dir shipment.TrackingDirection) (*shipment.OperationResultSet, error) {
	if c.Err != nil {
		return nil, c.Err
	}

	set := shipment.NewOperationResultSet()
	for _, id := range shipmentIDs {
		sh, err := c.shipments.FindShipment(ctx, id)
		if err != nil {
			return nil, err
		}
		if c.OmitIDs[id] || (c.OmitFunc != nil && c.OmitFunc(sh)) {
			continue
		}
		if msg := c.failureFor(id, sh); msg != "" {
			set.Add(shipment.NewFailureResult("Registering shipment failed", []string{msg}, id))
			continue
		}

		sh.TrackingCodes = append(sh.TrackingCodes, shipment.TrackingCode{
			Code:      "MOCK-" + id,
			Direction: dir,
		})
		if err := c.shipments.UpdateShipment(ctx, sh); err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.registered = append(c.registered, id)
		c.mu.Unlock()
		set.Add(shipment.NewSuccessResult("Shipment registered", id))
	}
	return set, nil
}

func (c *Client) cancel(ctx context.Context, shipmentIDs []string) (*shipment.OperationResultSet, error) {
	if c.Err != nil {
		return nil, c.Err
	}

	set := shipment.NewOperationResultSet()
	for _, id := range shipmentIDs {
		sh, err := c.shipments.FindShipment(ctx, id)
		if err != nil {
			return nil, err
		}
		if c.OmitIDs[id] || (c.OmitFunc != nil && c.OmitFunc(sh)) {
			continue
		}
		if msg := c.failureFor(id, sh); msg != "" {
			set.Add(shipment.NewFailureResult("Cancelling shipment failed", []string{msg}, id))
			continue
		}
		if sh.Cancelled {
			set.Add(shipment.NoOperationResult(id))
			continue
		}

		c.mu.Lock()
		c.cancelled = append(c.cancelled, id)
		c.mu.Unlock()
		set.Add(shipment.NewSuccessResult("Shipment cancelled", id))
	}
	return set, nil
}

func (c *Client) failureFor(id string, sh *shipment.Shipment) string {
	if msg, fail := c.FailIDs[id]; fail {
		return msg
	}
	if c.FailFunc != nil {
		return c.FailFunc(sh)
	}
	return ""
}

// EnableCashOnDelivery returns a configuration copy with COD enabled.
func (c *Client) EnableCashOnDelivery(cfg shipment.ShipmentConfig, amount shipment.Money) shipment.ShipmentConfig {
	out := cfg.Clone()
	if out == nil {
		out = shipment.ShipmentConfig{}
	}
	out[codConfigKey] = map[string]any{
		"amount":   amount.Amount,
		"currency": amount.Currency,
	}
	return out
}

// CashOnDeliveryEnabled reports whether COD is enabled in the
// configuration.
func (c *Client) CashOnDeliveryEnabled(cfg shipment.ShipmentConfig) bool {
	_, ok := cfg[codConfigKey]
	return ok
}

// TrackingURL builds a single tracking URL covering all codes.
func (c *Client) TrackingURL(codes []string) (string, bool) {
	if len(codes) == 0 {
		return "", false
	}
	return fmt.Sprintf("https://track.%s.mock/%s", c.name, codes[0]), true
}

// Ping reports the scripted health state.
func (c *Client) Ping(ctx context.Context) error {
	return c.PingErr
}
