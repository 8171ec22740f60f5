package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/erp/channelsync/internal/domain/shipping"
	"github.com/erp/channelsync/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type shipmentFixture struct {
	orders    *memOrders
	shipments *memShipments
	carrier   *shipping.ShippingCarrier
	tracker   *MockCarrierTracker
	sync      *ShipmentSynchronizer
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newShipmentFixture(t *testing.T, throttle time.Duration) *shipmentFixture {
	t.Helper()
	f := &shipmentFixture{
		orders:    newMemOrders(),
		shipments: newMemShipments(),
		carrier: &shipping.ShippingCarrier{
			BaseEntity: shared.NewBaseEntity(),
			Code:       "test",
			Name:       "Test Express",
			Active:     true,
		},
		tracker: new(MockCarrierTracker),
	}
	tx := NewNoOpTransactionScope(nil, f.orders, f.shipments)
	f.sync = NewShipmentSynchronizer(f.orders, f.shipments, newMemCarriers(f.carrier), f.tracker,
		newStaticMapper(), tx, ShipmentSyncConfig{BatchSize: 10, Throttle: throttle}, zap.NewNop())
	f.sync.now = func() time.Time { return fixedNow }
	return f
}

// addShipment stores an order in orderStatus with one shipment in status.
func (f *shipmentFixture) addShipment(t *testing.T, tracking string, orderStatus trade.OrderStatus, status shipping.ShipmentStatus) *shipping.Shipment {
	t.Helper()
	order, err := trade.NewOrder("shop", "R-"+tracking, "cust-1")
	require.NoError(t, err)
	order.Status = orderStatus
	require.NoError(t, f.orders.Create(context.Background(), order))

	s, err := shipping.NewShipment(order.ID, f.carrier.ID, tracking)
	require.NoError(t, err)
	s.Status = status
	require.NoError(t, f.shipments.Save(context.Background(), s))
	return s
}

func (f *shipmentFixture) reports(tracking, code string, at time.Time) {
	f.tracker.On("Track", mock.Anything, f.carrier, tracking).Return(&integration.TrackingStatus{
		TrackingNumber: tracking,
		Code:           code,
		Location:       "Hub 7",
		OccurredAt:     at,
	}, nil).Once()
}

func TestShipmentSynchronizer_AdvancesShipmentAndOrder(t *testing.T) {
	f := newShipmentFixture(t, 0)
	s := f.addShipment(t, "TRK1", trade.OrderStatusShipped, shipping.StatusPickedUp)
	at := time.Date(2025, 2, 28, 8, 30, 0, 0, time.UTC)
	f.reports("TRK1", "in-transit", at)

	status, err := f.sync.SyncShipment(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, shipping.StatusInTransit, *status)
	assert.Equal(t, shipping.StatusInTransit, s.Status)

	stored, err := f.shipments.FindByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, shipping.StatusInTransit, stored.Status)
	require.NotNil(t, stored.InTransitAt)
	assert.Equal(t, at, *stored.InTransitAt)
	require.Len(t, stored.Events, 1)
	assert.Equal(t, "Hub 7", stored.Events[0].Location)

	order, err := f.orders.FindByID(context.Background(), s.OrderID)
	require.NoError(t, err)
	require.NotNil(t, order.ShippedAt)
	assert.Equal(t, at, *order.ShippedAt)
}

func TestShipmentSynchronizer_StaleThenDelivered(t *testing.T) {
	f := newShipmentFixture(t, 0)
	s := f.addShipment(t, "TRK2", trade.OrderStatusShipped, shipping.StatusInTransit)
	s.CashOnDelivery = true
	s.CODAmount = decimal.RequireFromString("25.00")
	require.NoError(t, f.shipments.Save(context.Background(), s))

	f.reports("TRK2", "PICKED_UP", time.Time{})
	status, err := f.sync.SyncShipment(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, status, "stale status never regresses the shipment")
	assert.Equal(t, shipping.StatusInTransit, s.Status)

	f.reports("TRK2", "DELIVERED", time.Time{})
	status, err = f.sync.SyncShipment(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, shipping.StatusDelivered, *status)
	assert.True(t, s.CODCollected)
	require.NotNil(t, s.DeliveredAt)
	assert.Equal(t, fixedNow, *s.DeliveredAt, "missing carrier timestamp falls back to now")

	order, err := f.orders.FindByID(context.Background(), s.OrderID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusDelivered, order.Status)
	require.NotNil(t, order.DeliveredAt)
	assert.Equal(t, fixedNow, *order.DeliveredAt)

	stored, err := f.shipments.FindByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Events, 1)
	f.tracker.AssertExpectations(t)
}

func TestShipmentSynchronizer_RepeatedStatusIsNoop(t *testing.T) {
	f := newShipmentFixture(t, 0)
	s := f.addShipment(t, "TRK3", trade.OrderStatusShipped, shipping.StatusOutForDelivery)
	f.reports("TRK3", "OUT_FOR_DELIVERY", time.Time{})

	status, err := f.sync.SyncShipment(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, status)
	stored, _ := f.shipments.FindByID(context.Background(), s.ID)
	assert.Empty(t, stored.Events)
}

func TestShipmentSynchronizer_UnknownCode(t *testing.T) {
	f := newShipmentFixture(t, 0)
	s := f.addShipment(t, "TRK4", trade.OrderStatusShipped, shipping.StatusPickedUp)
	f.reports("TRK4", "CUSTOMS_HOLD", time.Time{})

	status, err := f.sync.SyncShipment(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, status)
	assert.Equal(t, shipping.StatusPickedUp, s.Status)
}

func TestShipmentSynchronizer_OrderNotEligible(t *testing.T) {
	f := newShipmentFixture(t, 0)
	s := f.addShipment(t, "TRK5", trade.OrderStatusProcessing, shipping.StatusPending)

	status, err := f.sync.SyncShipment(context.Background(), s)
	assert.Nil(t, status)
	assert.ErrorIs(t, err, integration.ErrShipmentNotEligible)
	f.tracker.AssertNotCalled(t, "Track", mock.Anything, mock.Anything, mock.Anything)
}

func TestShipmentSynchronizer_SyncActive(t *testing.T) {
	f := newShipmentFixture(t, 0)
	f.addShipment(t, "A-UPD", trade.OrderStatusShipped, shipping.StatusPickedUp)
	f.addShipment(t, "A-SKIP", trade.OrderStatusPending, shipping.StatusPending)
	f.addShipment(t, "A-UNK", trade.OrderStatusShipped, shipping.StatusPickedUp)
	f.addShipment(t, "A-ERR", trade.OrderStatusShipped, shipping.StatusPickedUp)
	f.addShipment(t, "A-SAME", trade.OrderStatusShipped, shipping.StatusInTransit)
	f.addShipment(t, "A-DONE", trade.OrderStatusDelivered, shipping.StatusDelivered)

	f.reports("A-UPD", "IN_TRANSIT", time.Time{})
	f.reports("A-UNK", "???", time.Time{})
	f.reports("A-SAME", "IN_TRANSIT", time.Time{})
	f.tracker.On("Track", mock.Anything, f.carrier, "A-ERR").Return(nil, integration.ErrRemoteUnavailable).Once()

	result, err := f.sync.SyncActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Checked, "terminal shipments are not polled")
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.UnknownStatus)
	assert.Equal(t, 1, result.Unchanged)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.ErrorSamples, 1)
	assert.Contains(t, result.ErrorSamples[0], "A-ERR")
	assert.Equal(t, integration.SyncStatusPartial, result.Outcome())
	f.tracker.AssertExpectations(t)
}

func TestShipmentSynchronizer_SyncActive_PagesPastBatchSize(t *testing.T) {
	f := newShipmentFixture(t, 0)
	f.sync.config.BatchSize = 2

	for _, tn := range []string{"P-1", "P-2", "P-3"} {
		f.addShipment(t, tn, trade.OrderStatusPending, shipping.StatusPending)
	}
	for _, tn := range []string{"S-1", "S-2"} {
		f.addShipment(t, tn, trade.OrderStatusShipped, shipping.StatusPickedUp)
		f.reports(tn, "IN_TRANSIT", time.Time{})
	}

	result, err := f.sync.SyncActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Checked)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 3, f.shipments.activeCalls, "five shipments are read two at a time")
	f.tracker.AssertExpectations(t)

	// the next pass still reaches every active shipment
	for _, tn := range []string{"S-1", "S-2"} {
		f.reports(tn, "IN_TRANSIT", time.Time{})
	}
	again, err := f.sync.SyncActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, again.Checked)
	assert.Equal(t, 2, again.Unchanged)
	f.tracker.AssertExpectations(t)
}

func TestShipmentSynchronizer_ThrottlesCarrierCalls(t *testing.T) {
	f := newShipmentFixture(t, 40*time.Millisecond)
	for _, tn := range []string{"T-1", "T-2", "T-3"} {
		f.addShipment(t, tn, trade.OrderStatusShipped, shipping.StatusPickedUp)
		f.reports(tn, "PICKED_UP", time.Time{})
	}

	start := time.Now()
	result, err := f.sync.SyncActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.GreaterOrEqual(t, time.Since(start), 75*time.Millisecond)
}

func TestShipmentSynchronizer_CancelledContext(t *testing.T) {
	f := newShipmentFixture(t, 0)
	f.addShipment(t, "C-1", trade.OrderStatusShipped, shipping.StatusPickedUp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := f.sync.SyncActive(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Checked)
}
