package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/erp/channelsync/internal/domain/shipping"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormShipmentRepository_SaveAndFind(t *testing.T) {
	repo := NewGormShipmentRepository(newTestDB(t))
	ctx := context.Background()

	s, err := shipping.NewShipment(uuid.New(), uuid.New(), "TRK-1")
	require.NoError(t, err)
	s.CashOnDelivery = true
	s.CODAmount = decimal.RequireFromString("49.90")
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NotNil(t, s.Advance(shipping.StatusPickedUp, at, "", "Depot"))
	require.NoError(t, repo.Save(ctx, s))

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, shipping.StatusPickedUp, found.Status)
	assert.True(t, found.CODAmount.Equal(decimal.RequireFromString("49.9")))
	require.NotNil(t, found.PickedUpAt)
	require.Len(t, found.Events, 1)
	assert.Equal(t, "Depot", found.Events[0].Location)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormShipmentRepository_UpdateAndAppendEvent(t *testing.T) {
	repo := NewGormShipmentRepository(newTestDB(t))
	ctx := context.Background()

	s, err := shipping.NewShipment(uuid.New(), uuid.New(), "TRK-2")
	require.NoError(t, err)
	s.CashOnDelivery = true
	require.NoError(t, repo.Save(ctx, s))

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, status := range []shipping.ShipmentStatus{shipping.StatusInTransit, shipping.StatusDelivered} {
		event := s.Advance(status, base.Add(time.Duration(i)*time.Hour), "", "")
		require.NotNil(t, event)
		require.NoError(t, repo.Update(ctx, s))
		require.NoError(t, repo.AppendEvent(ctx, event))
	}

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, shipping.StatusDelivered, found.Status)
	assert.True(t, found.CODCollected)
	require.NotNil(t, found.InTransitAt)
	require.NotNil(t, found.DeliveredAt)
	require.Len(t, found.Events, 2)
	assert.Equal(t, shipping.StatusInTransit, found.Events[0].Status)
	assert.Equal(t, shipping.StatusDelivered, found.Events[1].Status)
}

func TestGormShipmentRepository_FindActive(t *testing.T) {
	repo := NewGormShipmentRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	statuses := []shipping.ShipmentStatus{
		shipping.StatusPending, shipping.StatusInTransit, shipping.StatusFailed,
		shipping.StatusDelivered, shipping.StatusReturned,
	}
	for _, status := range statuses {
		s, err := shipping.NewShipment(uuid.New(), uuid.New(), "TRK-"+status.String())
		require.NoError(t, err)
		if status != shipping.StatusPending {
			if status == shipping.StatusReturned {
				s.Advance(shipping.StatusInTransit, now, "", "")
			}
			require.NotNil(t, s.Advance(status, now, "", ""))
		}
		require.NoError(t, repo.Save(ctx, s))
	}

	active, err := repo.FindActive(ctx, uuid.Nil, 10)
	require.NoError(t, err)
	require.Len(t, active, 3)
	for _, s := range active {
		assert.False(t, s.Status.IsTerminal())
	}

	first, err := repo.FindActive(ctx, uuid.Nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, active[0].ID, first[0].ID)

	rest, err := repo.FindActive(ctx, first[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, active[2].ID, rest[0].ID)

	done, err := repo.FindActive(ctx, rest[0].ID, 2)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestGormCarrierRepository(t *testing.T) {
	repo := NewGormCarrierRepository(newTestDB(t))
	ctx := context.Background()

	c := &shipping.ShippingCarrier{
		BaseEntity:     shared.NewBaseEntity(),
		Code:           "swiftpost",
		Name:           "Swift Post",
		APIBaseURL:     "https://api.swiftpost.test",
		ResponseFormat: shipping.FormatXML,
		BaseRate:       decimal.RequireFromString("4.5"),
		Active:         true,
	}
	require.NoError(t, repo.Save(ctx, c))

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, shipping.FormatXML, found.ResponseFormat)
	assert.Equal(t, "https://api.swiftpost.test", found.APIBaseURL)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
