package shipment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/delivro/shipment/internal/store"
	"github.com/delivro/shipment/pkg/shipment"
)

func testLogger() *otelzap.Logger {
	return otelzap.New(zap.NewNop())
}

func TestSynchronizeTrackingCodes_Union(t *testing.T) {
	got := shipment.SynchronizeTrackingCodes([]string{"a", "b"}, []string{"b", "c"}, false)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSynchronizeTrackingCodes_Idempotent(t *testing.T) {
	once := shipment.SynchronizeTrackingCodes([]string{"a"}, []string{"b"}, false)
	twice := shipment.SynchronizeTrackingCodes(once, []string{"b"}, false)
	assert.Equal(t, once, twice)
}

func TestSynchronizeTrackingCodes_CancelledRemoves(t *testing.T) {
	got := shipment.SynchronizeTrackingCodes([]string{"a", "b", "c"}, []string{"b"}, true)
	assert.Equal(t, []string{"a", "c"}, got)

	// removing an absent code leaves the list untouched
	got = shipment.SynchronizeTrackingCodes([]string{"a"}, []string{"x"}, true)
	assert.Equal(t, []string{"a"}, got)
}

func TestSplitReturnTrackingCodes(t *testing.T) {
	assert.Equal(t, []string{}, shipment.SplitReturnTrackingCodes(""))
	assert.Equal(t, []string{"a"}, shipment.SplitReturnTrackingCodes("a"))
	assert.Equal(t, []string{"a", "b"}, shipment.SplitReturnTrackingCodes("a,b"))
	assert.Equal(t, []string{"a", "b"}, shipment.SplitReturnTrackingCodes("a, b"))
}

func TestJoinReturnTrackingCodes(t *testing.T) {
	assert.Equal(t, "", shipment.JoinReturnTrackingCodes(nil))
	assert.Equal(t, "", shipment.JoinReturnTrackingCodes([]string{}))
	assert.Equal(t, "a,b", shipment.JoinReturnTrackingCodes([]string{"a", "b"}))
}

func TestTrackingCodeUpdater_Apply_Outgoing(t *testing.T) {
	ctx := context.Background()
	orders := store.NewMemoryOrderStore(&shipment.Order{
		ID:              "o1",
		PrimaryDelivery: &shipment.Delivery{ID: "d1", TrackingCodes: []string{"old"}},
	})
	updater := shipment.NewTrackingCodeUpdater(orders, testLogger())

	sh := &shipment.Shipment{
		ID:       "s1",
		OrderIDs: []string{"o1"},
		TrackingCodes: []shipment.TrackingCode{
			{Code: "new-1", Direction: shipment.TrackingOutgoing},
			{Code: "new-2", Direction: shipment.TrackingOutgoing},
		},
	}

	require.NoError(t, updater.Apply(ctx, sh))

	order, err := orders.FindOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new-1", "new-2"}, order.PrimaryDelivery.TrackingCodes)
	assert.Equal(t, "", order.ReturnTrackingCodes)
}

func TestTrackingCodeUpdater_Apply_Incoming(t *testing.T) {
	ctx := context.Background()
	orders := store.NewMemoryOrderStore(&shipment.Order{
		ID:                  "o1",
		ReturnTrackingCodes: "r-old",
	})
	updater := shipment.NewTrackingCodeUpdater(orders, testLogger())

	sh := &shipment.Shipment{
		ID:       "s1",
		IsReturn: true,
		OrderIDs: []string{"o1"},
		TrackingCodes: []shipment.TrackingCode{
			{Code: "r-new", Direction: shipment.TrackingIncoming},
		},
	}

	require.NoError(t, updater.Apply(ctx, sh))

	order, err := orders.FindOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "r-old,r-new", order.ReturnTrackingCodes)
}

func TestTrackingCodeUpdater_Apply_CancelledRemovesCodes(t *testing.T) {
	ctx := context.Background()
	orders := store.NewMemoryOrderStore(&shipment.Order{
		ID:                  "o1",
		PrimaryDelivery:     &shipment.Delivery{ID: "d1", TrackingCodes: []string{"keep", "drop"}},
		ReturnTrackingCodes: "r-drop,r-keep",
	})
	updater := shipment.NewTrackingCodeUpdater(orders, testLogger())

	sh := &shipment.Shipment{
		ID:        "s1",
		IsReturn:  true,
		Cancelled: true,
		OrderIDs:  []string{"o1"},
		TrackingCodes: []shipment.TrackingCode{
			{Code: "drop", Direction: shipment.TrackingOutgoing},
			{Code: "r-drop", Direction: shipment.TrackingIncoming},
		},
	}

	require.NoError(t, updater.Apply(ctx, sh))

	order, err := orders.FindOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, order.PrimaryDelivery.TrackingCodes)
	assert.Equal(t, "r-keep", order.ReturnTrackingCodes)
}

func TestTrackingCodeUpdater_Apply_NoCodesNoWrite(t *testing.T) {
	ctx := context.Background()
	orders := store.NewMemoryOrderStore(&shipment.Order{
		ID:              "o1",
		PrimaryDelivery: &shipment.Delivery{ID: "d1", TrackingCodes: []string{"old"}},
	})
	updater := shipment.NewTrackingCodeUpdater(orders, testLogger())

	sh := &shipment.Shipment{ID: "s1", OrderIDs: []string{"o1"}}

	require.NoError(t, updater.Apply(ctx, sh))

	order, err := orders.FindOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, order.PrimaryDelivery.TrackingCodes)
}

func TestShipment_CodesFor(t *testing.T) {
	sh := &shipment.Shipment{TrackingCodes: []shipment.TrackingCode{
		{Code: "out-1", Direction: shipment.TrackingOutgoing},
		{Code: "in-1", Direction: shipment.TrackingIncoming},
		{Code: "out-2", Direction: shipment.TrackingOutgoing},
	}}

	assert.Equal(t, []string{"out-1", "out-2"}, sh.CodesFor(shipment.TrackingOutgoing))
	assert.Equal(t, []string{"in-1"}, sh.CodesFor(shipment.TrackingIncoming))
}
