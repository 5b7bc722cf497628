// Package shipment turns orders into carrier-agnostic shipment blueprints,
// dispatches them to pluggable carrier integrations, and reconciles the
// outcome back into persisted state and order-level tracking data.
package shipment

import (
	"context"
)

// ShipmentDirection distinguishes forward (customer-bound) from return
// shipments when resolving carrier configuration.
type ShipmentDirection int

const (
	DirectionForward ShipmentDirection = iota
	DirectionReturn
)

func (d ShipmentDirection) String() string {
	if d == DirectionReturn {
		return "return"
	}
	return "forward"
}

// CarrierConfig is the resolved configuration passed into every carrier
// operation.
type CarrierConfig struct {
	Direction ShipmentDirection
	Settings  ShipmentConfig
}

// Carrier defines the contract every carrier integration must implement.
// Every operation MUST return a result set that classifies every shipment
// ID passed to it; an omitted ID is a contract violation, not a failure.
type Carrier interface {
	// Name returns the carrier technical name (e.g. "canadapost", "mock").
	Name() string

	// RegisterShipments books the given shipments with the carrier.
	RegisterShipments(ctx context.Context, shipmentIDs []string, cfg CarrierConfig) (*OperationResultSet, error)

	// CancelShipments cancels the given shipments with the carrier.
	CancelShipments(ctx context.Context, shipmentIDs []string, cfg CarrierConfig) (*OperationResultSet, error)
}

// ReturnShipmentCarrier is the optional capability for the return direction.
type ReturnShipmentCarrier interface {
	RegisterReturnShipments(ctx context.Context, shipmentIDs []string, cfg CarrierConfig) (*OperationResultSet, error)
	CancelReturnShipments(ctx context.Context, shipmentIDs []string, cfg CarrierConfig) (*OperationResultSet, error)
}

// CashOnDeliveryCarrier is the optional capability for carriers supporting
// payment on receipt.
type CashOnDeliveryCarrier interface {
	// EnableCashOnDelivery returns a configuration copy with COD enabled
	// for the given amount.
	EnableCashOnDelivery(cfg ShipmentConfig, amount Money) ShipmentConfig

	// CashOnDeliveryEnabled reports whether COD is enabled in the
	// configuration.
	CashOnDeliveryEnabled(cfg ShipmentConfig) bool
}

// TrackingURLProvider is the optional capability for carriers that can
// build one tracking URL covering multiple tracking codes.
type TrackingURLProvider interface {
	TrackingURL(codes []string) (string, bool)
}

// HealthChecker is the optional capability for carriers that can verify
// their upstream connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// PackingConfig describes the carrier's parcel-packing policy. The packing
// algorithm itself is an external capability consumed via ParcelPacker.
type PackingConfig struct {
	MaxParcelWeight float64
	BoxLength       float64
	BoxWidth        float64
	BoxHeight       float64
	FillerWeight    float64
}

// CarrierConfigurationService resolves shop- and carrier-level settings.
// It is an external collaborator of the builder and the service.
type CarrierConfigurationService interface {
	// IsActive reports whether the carrier is activated for the shop.
	IsActive(carrierName string) bool

	// ShippingMethod resolves a shipping method by ID.
	ShippingMethod(ctx context.Context, methodID string) (*ShippingMethod, error)

	// ShipmentConfig resolves the carrier shipment configuration for the
	// given direction.
	ShipmentConfig(ctx context.Context, carrierName string, dir ShipmentDirection) (ShipmentConfig, error)

	// PackingConfig resolves the carrier parcel-packing configuration.
	PackingConfig(ctx context.Context, carrierName string) (PackingConfig, error)

	// AlternativeSenderAddress returns the carrier-specific sender
	// address, or nil when the shop's common sender address applies.
	AlternativeSenderAddress(ctx context.Context, carrierName string) (*Address, error)

	// ImporterOfRecord returns the configured importer-of-record address,
	// or nil.
	ImporterOfRecord(ctx context.Context, carrierName string) (*Address, error)

	// CashOnDeliveryPaymentMethods returns the payment method IDs for
	// which COD may be auto-enabled.
	CashOnDeliveryPaymentMethods(ctx context.Context, carrierName string) ([]string, error)

	// CommonSenderAddress returns the shop's default sender address.
	CommonSenderAddress(ctx context.Context) (Address, error)

	// CustomsDefaults returns the shop-level customs declaration defaults.
	CustomsDefaults(ctx context.Context) (CustomsInfo, error)
}

// ShippingMethod links a delivery to a carrier.
type ShippingMethod struct {
	ID          string
	Name        string
	CarrierName string
}
