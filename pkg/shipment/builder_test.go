package shipment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delivro/shipment/internal/store"
	"github.com/delivro/shipment/pkg/shipment"
	"github.com/delivro/shipment/pkg/shipment/carriers/mock"
)

// recordingNotifier captures business notifications for assertions.
type recordingNotifier struct {
	notifications []shipment.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification shipment.Notification) {
	n.notifications = append(n.notifications, notification)
}

// recordingObserver captures observed blueprints for assertions.
type recordingObserver struct {
	orderIDs []string
}

func (o *recordingObserver) BlueprintCreated(_ context.Context, orderID string, _ shipment.ShipmentBlueprint) {
	o.orderIDs = append(o.orderIDs, orderID)
}

type builderFixture struct {
	builder   *shipment.BlueprintBuilder
	orders    *store.MemoryOrderStore
	shipments *store.MemoryShipmentStore
	config    *shipment.StaticConfiguration
	notifier  *recordingNotifier
	observer  *recordingObserver
}

func newBuilderFixture(t *testing.T, orders ...*shipment.Order) *builderFixture {
	t.Helper()

	f := &builderFixture{
		orders:    store.NewMemoryOrderStore(orders...),
		shipments: store.NewMemoryShipmentStore(),
		notifier:  &recordingNotifier{},
		observer:  &recordingObserver{},
	}
	f.config = &shipment.StaticConfiguration{
		Carriers: map[string]shipment.CarrierSettings{
			"mock": {
				Active:            true,
				ForwardConfig:     shipment.ShipmentConfig{"serviceCode": "standard"},
				ReturnConfig:      shipment.ShipmentConfig{"serviceCode": "return"},
				CODPaymentMethods: []string{"cash-on-delivery"},
			},
		},
		ShippingMethods: map[string]shipment.ShippingMethod{
			"mock-standard": {ID: "mock-standard", Name: "Standard", CarrierName: "mock"},
		},
		SenderAddress: shipment.Address{
			Company:     "Delivro",
			Street:      "Warehouse Way",
			HouseNumber: "1",
			City:        "Toronto",
			Zip:         "M5V 2T6",
			CountryCode: "CA",
			Phone:       "+1 416 555 0100",
			Email:       "warehouse@delivro.example",
		},
	}
	registry := shipment.NewRegistry()
	registry.Register(mock.New("mock", f.shipments))

	f.builder = shipment.NewBlueprintBuilder(shipment.BlueprintBuilderDeps{
		Orders:    f.orders,
		Shipments: f.shipments,
		Registry:  registry,
		Config:    f.config,
		Corrector: shipment.NopAddressCorrector{},
		Redactor:  shipment.ContactInfoRedactor{RedactPhone: true, RedactEmail: true},
		Hydrator:  shipment.OrderItemHydrator{},
		Packer:    shipment.WeightLimitPacker{},
		Notifier:  f.notifier,
		Observers: []shipment.BlueprintObserver{f.observer},
		Logger:    testLogger(),
	})
	return f
}

func mustTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return ts
}

func testOrder() *shipment.Order {
	return &shipment.Order{
		ID:              "order-1",
		SalesChannelID:  "channel-1",
		Currency:        "CAD",
		ShippingTotal:   4.99,
		AmountTotal:     54.98,
		PaymentMethodID: "credit-card",
		DeliveryAddress: shipment.Address{
			Name:        " Jamie Doe ",
			Street:      "Queen St W",
			HouseNumber: "220",
			City:        "Toronto",
			Zip:         "M5V 1Z5",
			CountryCode: "CA",
			Phone:       "+1 416 555 0199",
			Email:       "jamie@example.com",
		},
		PrimaryDelivery: &shipment.Delivery{ID: "delivery-1", ShippingMethodID: "mock-standard"},
		Invoices: []shipment.Invoice{
			{Number: "INV-1", Date: "2026-08-01", CreatedAt: mustTime("2026-08-01T10:00:00Z")},
			{Number: "INV-2", Date: "2026-08-15", CreatedAt: mustTime("2026-08-15T10:00:00Z")},
		},
		Items: []shipment.OrderItem{
			{ProductID: "p-1", Name: "Mug", Quantity: 2, Weight: 0.4, UnitPrice: 12.50},
			{ProductID: "p-2", Name: "Poster", Quantity: 1, Weight: 0.1, UnitPrice: 24.99},
		},
	}
}

func TestBlueprintBuilder_Build_Forward(t *testing.T) {
	f := newBuilderFixture(t, testOrder())

	results, err := f.builder.Build(context.Background(), []string{"order-1"}, shipment.CreationConfig{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	require.NoError(t, result.Err)
	assert.Equal(t, shipment.BlueprintCreated, result.Status)

	bp := result.Blueprint
	assert.Equal(t, "mock", bp.CarrierName)
	assert.Equal(t, "standard", bp.Config["serviceCode"])
	assert.Equal(t, "order-1", bp.CustomerReference)
	assert.False(t, bp.IsReturn)

	// Sender is the configured common address, receiver the corrected and
	// redacted order delivery address.
	assert.Equal(t, "Delivro", bp.Sender.Company)
	assert.Equal(t, "Jamie Doe", bp.Receiver.Name)
	assert.Empty(t, bp.Receiver.Phone)
	assert.Empty(t, bp.Receiver.Email)
	assert.ElementsMatch(t, []string{"receiver.phone", "receiver.email"}, result.RedactedFields)

	// Single hydrated parcel with all items.
	require.Len(t, bp.Parcels, 1)
	assert.Len(t, bp.Parcels[0].Items, 2)
	assert.InDelta(t, 0.9, bp.Parcels[0].Weight, 0.0001)

	// Shipping fee mirrors the order's shipping total.
	require.Len(t, bp.Fees, 1)
	assert.Equal(t, shipment.FeeShippingCosts, bp.Fees[0].Type)
	assert.InDelta(t, 4.99, bp.Fees[0].Amount.Amount, 0.0001)
	assert.Equal(t, "CAD", bp.Fees[0].Amount.Currency)

	// Customs declaration carries the latest invoice.
	assert.Equal(t, "INV-2", bp.Customs.InvoiceNumber)
	assert.Equal(t, "2026-08-15", bp.Customs.InvoiceDate)

	assert.Equal(t, []string{"order-1"}, f.observer.orderIDs)
}

func TestBlueprintBuilder_Build_MethodOverride(t *testing.T) {
	f := newBuilderFixture(t, testOrder())
	f.config.ShippingMethods["mock-express"] = shipment.ShippingMethod{
		ID: "mock-express", Name: "Express", CarrierName: "mock",
	}

	results, err := f.builder.Build(context.Background(), []string{"order-1"}, shipment.CreationConfig{
		ShippingMethodID: "mock-express",
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "mock", results[0].Blueprint.CarrierName)
}

func TestBlueprintBuilder_Build_InactiveCarrier(t *testing.T) {
	f := newBuilderFixture(t, testOrder())
	settings := f.config.Carriers["mock"]
	settings.Active = false
	f.config.Carriers["mock"] = settings

	results, err := f.builder.Build(context.Background(), []string{"order-1"}, shipment.CreationConfig{})
	require.NoError(t, err)

	result := results[0]
	require.NoError(t, result.Err)
	assert.Equal(t, shipment.BlueprintCreatedWithoutCarrier, result.Status)
	assert.Empty(t, result.Blueprint.CarrierName)
	// The parcel is still hydrated so the caller can inspect the blueprint.
	assert.Len(t, result.Blueprint.Parcels, 1)
}

func TestBlueprintBuilder_Build_Return(t *testing.T) {
	f := newBuilderFixture(t, testOrder())

	results, err := f.builder.Build(context.Background(), []string{"order-1"}, shipment.CreationConfig{
		IsReturn: true,
	})
	require.NoError(t, err)

	result := results[0]
	require.NoError(t, result.Err)
	bp := result.Blueprint

	assert.True(t, bp.IsReturn)
	assert.Equal(t, "return", bp.Config["serviceCode"])

	// Roles swap: the customer ships back to the warehouse. The customer
	// address keeps its contact info, the warehouse address is redacted.
	assert.Equal(t, "Jamie Doe", bp.Sender.Name)
	assert.Equal(t, "jamie@example.com", bp.Sender.Email)
	assert.Equal(t, "Delivro", bp.Receiver.Company)
	assert.Empty(t, bp.Receiver.Phone)
	assert.Empty(t, bp.Receiver.Email)
	assert.ElementsMatch(t, []string{"receiver.phone", "receiver.email"}, result.RedactedFields)
}

func TestBlueprintBuilder_Build_CashOnDelivery(t *testing.T) {
	order := testOrder()
	order.PaymentMethodID = "cash-on-delivery"
	f := newBuilderFixture(t, order)

	results, err := f.builder.Build(context.Background(), []string{"order-1"}, shipment.CreationConfig{})
	require.NoError(t, err)

	result := results[0]
	require.NoError(t, result.Err)
	cod, ok := result.Blueprint.Config["cashOnDelivery"].(map[string]any)
	require.True(t, ok, "COD settings should be written into the carrier config")
	assert.InDelta(t, 54.98, cod["amount"].(float64), 0.0001)
	assert.Equal(t, "CAD", cod["currency"])
	assert.Empty(t, f.notifier.notifications)
}

func TestBlueprintBuilder_Build_CashOnDeliveryAlreadyCollected(t *testing.T) {
	order := testOrder()
	order.PaymentMethodID = "cash-on-delivery"
	f := newBuilderFixture(t, order)

	require.NoError(t, f.shipments.CreateShipment(context.Background(), &shipment.Shipment{
		ID:             "existing",
		OrderIDs:       []string{"order-1"},
		CashOnDelivery: true,
	}))

	results, err := f.builder.Build(context.Background(), []string{"order-1"}, shipment.CreationConfig{})
	require.NoError(t, err)

	result := results[0]
	require.NoError(t, result.Err)
	_, ok := result.Blueprint.Config["cashOnDelivery"]
	assert.False(t, ok, "COD must not be enabled twice for one order")

	require.Len(t, f.notifier.notifications, 1)
	assert.Equal(t, shipment.NotificationCashOnDeliveryExists, f.notifier.notifications[0].Type)
	assert.Equal(t, "order-1", f.notifier.notifications[0].OrderID)
}

func TestBlueprintBuilder_Build_CashOnDeliveryCollapsesParcels(t *testing.T) {
	order := testOrder()
	order.PaymentMethodID = "cash-on-delivery"
	order.Items = []shipment.OrderItem{
		{ProductID: "p-1", Name: "Dumbbell", Quantity: 1, Weight: 1, UnitPrice: 30},
		{ProductID: "p-2", Name: "Kettlebell", Quantity: 1, Weight: 1, UnitPrice: 40},
	}
	f := newBuilderFixture(t, order)
	settings := f.config.Carriers["mock"]
	settings.Packing = shipment.PackingConfig{MaxParcelWeight: 1}
	f.config.Carriers["mock"] = settings

	results, err := f.builder.Build(context.Background(), []string{"order-1"}, shipment.CreationConfig{})
	require.NoError(t, err)

	result := results[0]
	require.NoError(t, result.Err)

	// The packer would split into two parcels; COD forces them back into one.
	require.Len(t, result.Blueprint.Parcels, 1)
	assert.Len(t, result.Blueprint.Parcels[0].Items, 2)
	assert.InDelta(t, 2, result.Blueprint.Parcels[0].Weight, 0.0001)

	require.Len(t, f.notifier.notifications, 1)
	assert.Equal(t, shipment.NotificationParcelPackingSkipped, f.notifier.notifications[0].Type)
}

func TestBlueprintBuilder_Build_ItemFilter(t *testing.T) {
	f := newBuilderFixture(t, testOrder())

	results, err := f.builder.Build(context.Background(), []string{"order-1"}, shipment.CreationConfig{
		Filter: func(item shipment.OrderItem) bool { return item.ProductID == "p-2" },
	})
	require.NoError(t, err)

	result := results[0]
	require.NoError(t, result.Err)
	require.Len(t, result.Blueprint.Parcels, 1)
	require.Len(t, result.Blueprint.Parcels[0].Items, 1)
	assert.Equal(t, "p-2", result.Blueprint.Parcels[0].Items[0].ProductID)
}

func TestBlueprintBuilder_Build_UnknownOrderDoesNotStopBatch(t *testing.T) {
	f := newBuilderFixture(t, testOrder())

	results, err := f.builder.Build(context.Background(), []string{"missing", "order-1"}, shipment.CreationConfig{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, shipment.BlueprintFailed, results[0].Status)
	assert.Error(t, results[0].Err)
	assert.Equal(t, "missing", results[0].OrderID)

	assert.Equal(t, shipment.BlueprintCreated, results[1].Status)
	require.NoError(t, results[1].Err)
}

func TestBlueprintBuilder_Build_AlternativeSenderAddress(t *testing.T) {
	f := newBuilderFixture(t, testOrder())
	settings := f.config.Carriers["mock"]
	settings.SenderAddress = &shipment.Address{
		Company:     "Delivro East",
		Street:      "Depot Rd",
		HouseNumber: "9",
		City:        "Montreal",
		Zip:         "H2Y 1C6",
		CountryCode: "CA",
	}
	f.config.Carriers["mock"] = settings

	results, err := f.builder.Build(context.Background(), []string{"order-1"}, shipment.CreationConfig{})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "Delivro East", results[0].Blueprint.Sender.Company)
}
