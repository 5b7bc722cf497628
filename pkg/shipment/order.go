package shipment

import (
	"context"
	"time"
)

// TrackingDirection tags a tracking code as customer-bound or return-bound.
type TrackingDirection int

const (
	TrackingOutgoing TrackingDirection = iota
	TrackingIncoming
)

// TrackingCode is a carrier tracking code with its direction.
type TrackingCode struct {
	Code      string
	Direction TrackingDirection
}

// Shipment is the persisted shipment row owned by the persistence
// collaborator.
type Shipment struct {
	ID                  string
	CarrierName         string
	Cancelled           bool
	CashOnDelivery      bool
	IsReturn            bool
	EnclosedReturnLabel bool
	SalesChannelID      string
	OrderIDs            []string
	Sender              Address
	Receiver            Address
	Parcels             []Parcel
	TrackingCodes       []TrackingCode
	Config              ShipmentConfig
}

// CodesFor returns the tracking codes of one direction, in insertion order.
func (s *Shipment) CodesFor(dir TrackingDirection) []string {
	var codes []string
	for _, tc := range s.TrackingCodes {
		if tc.Direction == dir {
			codes = append(codes, tc.Code)
		}
	}
	return codes
}

// Delivery is an order's delivery with its tracking-code list.
type Delivery struct {
	ID               string
	ShippingMethodID string
	TrackingCodes    []string
}

// Invoice is an order invoice; the most recent one feeds the customs
// declaration.
type Invoice struct {
	Number    string
	Date      string // YYYY-MM-DD
	CreatedAt time.Time
}

// OrderItem is an order line item, the input to parcel hydration.
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	Weight    float64
	UnitPrice float64
}

// Order is the order entity as seen by this subsystem.
type Order struct {
	ID              string
	SalesChannelID  string
	Currency        string
	ShippingTotal   float64
	AmountTotal     float64
	PaymentMethodID string
	DeliveryAddress Address
	PrimaryDelivery *Delivery
	Invoices        []Invoice
	Items           []OrderItem

	// ReturnTrackingCodes is the legacy comma-joined custom field holding
	// return-bound codes. Empty string means empty list, exactly.
	ReturnTrackingCodes string
}

// LatestInvoice returns the invoice with the latest creation timestamp, or
// nil when the order has none.
func (o *Order) LatestInvoice() *Invoice {
	var latest *Invoice
	for i := range o.Invoices {
		inv := &o.Invoices[i]
		if latest == nil || inv.CreatedAt.After(latest.CreatedAt) {
			latest = inv
		}
	}
	return latest
}

// WriteScope makes permission elevation explicit on persistence calls.
// Tracking-code synchronization runs with ScopeSystem so that callers
// without delivery-write permission can still trigger it as a side effect
// of shipment operations.
type WriteScope int

const (
	ScopeUser WriteScope = iota
	ScopeSystem
)

func (s WriteScope) String() string {
	if s == ScopeSystem {
		return "system"
	}
	return "user"
}

// OrderStore is the order persistence collaborator.
type OrderStore interface {
	FindOrder(ctx context.Context, orderID string) (*Order, error)

	// UpdateDeliveryTrackingCodes replaces the tracking-code list of the
	// order's primary delivery. Requires ScopeSystem.
	UpdateDeliveryTrackingCodes(ctx context.Context, scope WriteScope, orderID string, codes []string) error

	// UpdateReturnTrackingCodes replaces the comma-joined return
	// tracking-code field. Requires ScopeSystem.
	UpdateReturnTrackingCodes(ctx context.Context, scope WriteScope, orderID string, joined string) error
}

// ShipmentStore is the shipment persistence collaborator.
type ShipmentStore interface {
	FindShipment(ctx context.Context, shipmentID string) (*Shipment, error)
	FindShipmentsByOrder(ctx context.Context, orderID string) ([]*Shipment, error)
	CreateShipment(ctx context.Context, s *Shipment) error
	UpdateShipment(ctx context.Context, s *Shipment) error
	DeleteShipments(ctx context.Context, shipmentIDs ...string) error
}

// TxRunner executes a function within a database transaction. Nested calls
// join the outer transaction; retry logic lives only at the outermost
// handle.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
