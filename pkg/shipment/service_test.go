package shipment_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delivro/shipment/internal/store"
	"github.com/delivro/shipment/pkg/shipment"
	"github.com/delivro/shipment/pkg/shipment/carriers/mock"
)

type serviceFixture struct {
	service   *shipment.ShipmentService
	carrier   *mock.Client
	registry  *shipment.Registry
	config    *shipment.StaticConfiguration
	orders    *store.MemoryOrderStore
	shipments *store.MemoryShipmentStore
}

func newServiceFixture(t *testing.T, orders ...*shipment.Order) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		orders:    store.NewMemoryOrderStore(orders...),
		shipments: store.NewMemoryShipmentStore(),
	}
	f.carrier = mock.New("mock", f.shipments)
	f.registry = shipment.NewRegistry()
	f.registry.Register(f.carrier)

	f.config = &shipment.StaticConfiguration{
		Carriers: map[string]shipment.CarrierSettings{
			"mock": {
				Active:        true,
				ForwardConfig: shipment.ShipmentConfig{"serviceCode": "standard"},
				ReturnConfig:  shipment.ShipmentConfig{"serviceCode": "return"},
			},
			"inactive": {Active: false},
		},
	}

	f.service = shipment.NewShipmentService(shipment.ShipmentServiceDeps{
		Shipments: f.shipments,
		Orders:    f.orders,
		Registry:  f.registry,
		Config:    f.config,
		Tracking:  shipment.NewTrackingCodeUpdater(f.orders, testLogger()),
		Tx:        store.PassthroughTx{},
		Logger:    testLogger(),
	})
	return f
}

func serviceOrder(id string) *shipment.Order {
	return &shipment.Order{
		ID:              id,
		SalesChannelID:  "channel-1",
		Currency:        "CAD",
		PrimaryDelivery: &shipment.Delivery{ID: "delivery-" + id, ShippingMethodID: "mock-standard"},
	}
}

func createItem(orderID string) shipment.CreateShipmentItem {
	return shipment.CreateShipmentItem{
		OrderID: orderID,
		Blueprint: shipment.ShipmentBlueprint{
			CarrierName: "mock",
			Config:      shipment.ShipmentConfig{"serviceCode": "standard"},
			Sender:      shipment.Address{Company: "Delivro", City: "Toronto", CountryCode: "CA"},
			Receiver:    shipment.Address{Name: "Jamie Doe", City: "Ottawa", CountryCode: "CA"},
		},
	}
}

func TestShipmentService_CreateShipments_Success(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, serviceOrder("o1"), serviceOrder("o2"))

	set, err := f.service.CreateShipments(ctx, []shipment.CreateShipmentItem{
		createItem("o1"),
		createItem("o2"),
	})
	require.NoError(t, err)
	require.Len(t, f.carrier.Registered(), 2)

	for _, orderID := range []string{"o1", "o2"} {
		rows, err := f.shipments.FindShipmentsByOrder(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, rows, 1, "one persisted shipment per order")

		sh := rows[0]
		assert.Equal(t, shipment.OutcomeSuccessful, set.ResultFor(sh.ID))
		assert.Equal(t, "mock", sh.CarrierName)
		assert.Equal(t, "channel-1", sh.SalesChannelID)
		require.Len(t, sh.TrackingCodes, 1)
		assert.Equal(t, "MOCK-"+sh.ID, sh.TrackingCodes[0].Code)

		order, err := f.orders.FindOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, []string{"MOCK-" + sh.ID}, order.PrimaryDelivery.TrackingCodes)
	}
}

func TestShipmentService_CreateShipments_AdapterErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, serviceOrder("o1"), serviceOrder("o2"))

	adapterErr := errors.New("carrier API unreachable")
	f.carrier.Err = adapterErr

	set, err := f.service.CreateShipments(ctx, []shipment.CreateShipmentItem{
		createItem("o1"),
		createItem("o2"),
	})
	assert.Nil(t, set)
	assert.ErrorIs(t, err, adapterErr, "adapter errors are re-raised unchanged")

	for _, orderID := range []string{"o1", "o2"} {
		rows, findErr := f.shipments.FindShipmentsByOrder(ctx, orderID)
		require.NoError(t, findErr)
		assert.Empty(t, rows, "draft rows must not survive an adapter error")
	}
}

func TestShipmentService_CreateShipments_PartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, serviceOrder("o1"), serviceOrder("o2"))

	f.carrier.FailFunc = func(sh *shipment.Shipment) string {
		if sh.OrderIDs[0] == "o2" {
			return "address rejected"
		}
		return ""
	}

	set, err := f.service.CreateShipments(ctx, []shipment.CreateShipmentItem{
		createItem("o1"),
		createItem("o2"),
	})
	require.NoError(t, err, "per-shipment failures do not fail the batch")

	// The successful shipment keeps its row and tracking code.
	rows, err := f.shipments.FindShipmentsByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, shipment.OutcomeSuccessful, set.ResultFor(rows[0].ID))

	order, err := f.orders.FindOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, order.PrimaryDelivery.TrackingCodes, 1)

	// The fully-failed draft is deleted again.
	rows, err = f.shipments.FindShipmentsByOrder(ctx, "o2")
	require.NoError(t, err)
	assert.Empty(t, rows)

	order, err = f.orders.FindOrder(ctx, "o2")
	require.NoError(t, err)
	assert.Empty(t, order.PrimaryDelivery.TrackingCodes)
}

func TestShipmentService_CreateShipments_ContractViolation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, serviceOrder("o1"), serviceOrder("o2"))

	f.carrier.OmitFunc = func(sh *shipment.Shipment) bool {
		return sh.OrderIDs[0] == "o2"
	}

	set, err := f.service.CreateShipments(ctx, []shipment.CreateShipmentItem{
		createItem("o1"),
		createItem("o2"),
	})
	assert.Nil(t, set)
	assert.ErrorIs(t, err, shipment.ErrAdapterContract)

	var violation *shipment.ContractViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "mock", violation.Carrier)
	assert.Len(t, violation.MissingIDs, 1)

	// A contract violation rolls back every draft, including processed ones.
	for _, orderID := range []string{"o1", "o2"} {
		rows, findErr := f.shipments.FindShipmentsByOrder(ctx, orderID)
		require.NoError(t, findErr)
		assert.Empty(t, rows)
	}
}

func TestShipmentService_CreateShipments_MixedCarriers(t *testing.T) {
	f := newServiceFixture(t, serviceOrder("o1"), serviceOrder("o2"))

	other := createItem("o2")
	other.Blueprint.CarrierName = "other"

	_, err := f.service.CreateShipments(context.Background(), []shipment.CreateShipmentItem{
		createItem("o1"),
		other,
	})
	assert.ErrorIs(t, err, shipment.ErrMixedCarriers)
}

func TestShipmentService_CreateShipments_CarrierNotSelected(t *testing.T) {
	f := newServiceFixture(t, serviceOrder("o1"))

	item := createItem("o1")
	item.Blueprint.CarrierName = ""

	_, err := f.service.CreateShipments(context.Background(), []shipment.CreateShipmentItem{item})
	assert.ErrorIs(t, err, shipment.ErrCarrierNotSelected)
}

func TestShipmentService_CreateShipments_CarrierNotActive(t *testing.T) {
	f := newServiceFixture(t, serviceOrder("o1"))

	item := createItem("o1")
	item.Blueprint.CarrierName = "inactive"

	_, err := f.service.CreateShipments(context.Background(), []shipment.CreateShipmentItem{item})
	assert.ErrorIs(t, err, shipment.ErrCarrierNotActive)
}

func TestShipmentService_CreateShipments_MixedSalesChannels(t *testing.T) {
	other := serviceOrder("o2")
	other.SalesChannelID = "channel-2"
	f := newServiceFixture(t, serviceOrder("o1"), other)

	_, err := f.service.CreateShipments(context.Background(), []shipment.CreateShipmentItem{
		createItem("o1"),
		createItem("o2"),
	})
	assert.ErrorIs(t, err, shipment.ErrMixedSalesChannels)
}

func TestShipmentService_CreateShipments_Return(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, serviceOrder("o1"))

	item := createItem("o1")
	item.Blueprint.IsReturn = true

	set, err := f.service.CreateShipments(ctx, []shipment.CreateShipmentItem{item})
	require.NoError(t, err)

	rows, err := f.shipments.FindShipmentsByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	sh := rows[0]
	assert.True(t, sh.IsReturn)
	assert.True(t, set.Succeeded(sh.ID))
	require.Len(t, sh.TrackingCodes, 1)
	assert.Equal(t, shipment.TrackingIncoming, sh.TrackingCodes[0].Direction)

	// Return codes land in the comma-joined order field, not the delivery.
	order, err := f.orders.FindOrder(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.ReturnTrackingCodes, "MOCK-"))
	assert.Empty(t, order.PrimaryDelivery.TrackingCodes)
}

func TestShipmentService_CreateShipments_ReturnNotSupported(t *testing.T) {
	f := newServiceFixture(t, serviceOrder("o1"))
	f.registry.Register(bareCarrier{name: "bare"})
	f.config.Carriers["bare"] = shipment.CarrierSettings{Active: true}

	item := createItem("o1")
	item.Blueprint.CarrierName = "bare"
	item.Blueprint.IsReturn = true

	_, err := f.service.CreateShipments(context.Background(), []shipment.CreateShipmentItem{item})
	assert.ErrorIs(t, err, shipment.ErrReturnNotSupported)
}

func TestShipmentService_CreateShipment_SingleForm(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, serviceOrder("o1"))

	item := createItem("o1")
	set, err := f.service.CreateShipment(ctx, item.Blueprint, item.OrderID)
	require.NoError(t, err)

	rows, err := f.shipments.FindShipmentsByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, set.Succeeded(rows[0].ID))
}

func TestShipmentService_CancelShipment_Success(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, &shipment.Order{
		ID:              "o1",
		SalesChannelID:  "channel-1",
		PrimaryDelivery: &shipment.Delivery{ID: "d1", TrackingCodes: []string{"MOCK-s1", "other"}},
	})

	require.NoError(t, f.shipments.CreateShipment(ctx, &shipment.Shipment{
		ID:          "s1",
		CarrierName: "mock",
		OrderIDs:    []string{"o1"},
		TrackingCodes: []shipment.TrackingCode{
			{Code: "MOCK-s1", Direction: shipment.TrackingOutgoing},
		},
	}))

	set, err := f.service.CancelShipment(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, shipment.OutcomeSuccessful, set.ResultFor("s1"))
	assert.Equal(t, []string{"s1"}, f.carrier.Cancelled())

	sh, err := f.shipments.FindShipment(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, sh.Cancelled)

	order, err := f.orders.FindOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, order.PrimaryDelivery.TrackingCodes)
}

func TestShipmentService_CancelShipment_FailedResultUntouched(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, serviceOrder("o1"))

	require.NoError(t, f.shipments.CreateShipment(ctx, &shipment.Shipment{
		ID:          "s1",
		CarrierName: "mock",
		OrderIDs:    []string{"o1"},
	}))
	f.carrier.FailIDs["s1"] = "labels already printed"

	set, err := f.service.CancelShipment(ctx, "s1")
	require.NoError(t, err, "a failed carrier result is not an error")
	assert.Equal(t, shipment.OutcomeNoneSuccessful, set.ResultFor("s1"))

	sh, err := f.shipments.FindShipment(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, sh.Cancelled, "state must not change on a failed cancellation")
}

func TestShipmentService_CancelShipment_AlreadyCancelled(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, serviceOrder("o1"))

	require.NoError(t, f.shipments.CreateShipment(ctx, &shipment.Shipment{
		ID:          "s1",
		CarrierName: "mock",
		Cancelled:   true,
		OrderIDs:    []string{"o1"},
	}))

	set, err := f.service.CancelShipment(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, shipment.OutcomeSuccessful, set.ResultFor("s1"))
	assert.Empty(t, f.carrier.Cancelled(), "no second cancellation call reaches the carrier")
}

func TestShipmentService_CancelShipment_ContractViolation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, serviceOrder("o1"))

	require.NoError(t, f.shipments.CreateShipment(ctx, &shipment.Shipment{
		ID:          "s1",
		CarrierName: "mock",
		OrderIDs:    []string{"o1"},
	}))
	f.carrier.OmitIDs["s1"] = true

	_, err := f.service.CancelShipment(ctx, "s1")
	assert.ErrorIs(t, err, shipment.ErrAdapterContract)
}

func TestShipmentService_CancelShipment_NotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CancelShipment(context.Background(), "missing")
	assert.ErrorIs(t, err, shipment.ErrShipmentNotFound)
}

func TestShipmentService_CancelShipment_Return(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, &shipment.Order{
		ID:                  "o1",
		SalesChannelID:      "channel-1",
		ReturnTrackingCodes: "MOCK-s1,keep",
	})

	require.NoError(t, f.shipments.CreateShipment(ctx, &shipment.Shipment{
		ID:          "s1",
		CarrierName: "mock",
		IsReturn:    true,
		OrderIDs:    []string{"o1"},
		TrackingCodes: []shipment.TrackingCode{
			{Code: "MOCK-s1", Direction: shipment.TrackingIncoming},
		},
	}))

	set, err := f.service.CancelShipment(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, shipment.OutcomeSuccessful, set.ResultFor("s1"))

	order, err := f.orders.FindOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "keep", order.ReturnTrackingCodes)
}
