package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/erp/channelsync/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, ref string) *trade.Order {
	t.Helper()
	o, err := trade.NewOrder("marketplace", ref, "cust-42")
	require.NoError(t, err)
	o.CustomerEmail = "jane@example.com"
	o.Totals = trade.Totals{Currency: "EUR", Subtotal: decimal.RequireFromString("30"), Total: decimal.RequireFromString("34.9")}
	o.ShippingAddress = trade.Address{Name: "Jane", Line1: "1 Main St", City: "Lyon", PostalCode: "69001", Country: "FR"}
	o.SourceMetadata = []byte(`{"id":"` + ref + `"}`)
	require.NoError(t, o.AddItem(trade.OrderItem{RemoteLineID: "1", SKU: "SKU-1", Quantity: 2, UnitPrice: decimal.RequireFromString("10")}))
	require.NoError(t, o.AddItem(trade.OrderItem{RemoteLineID: "2", SKU: "SKU-2", Quantity: 1, UnitPrice: decimal.RequireFromString("10")}))
	return o
}

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	ctx := context.Background()

	o := newTestOrder(t, "5001")
	require.NoError(t, repo.Create(ctx, o))

	found, err := repo.FindBySourceReference(ctx, "marketplace", "5001")
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)
	assert.Equal(t, o.OrderNumber, found.OrderNumber)
	assert.Equal(t, "Lyon", found.ShippingAddress.City)
	assert.True(t, found.BillingAddress.IsZero())
	assert.JSONEq(t, `{"id":"5001"}`, string(found.SourceMetadata))
	require.Len(t, found.Items, 2)
	assert.Equal(t, "SKU-1", found.Items[0].SKU)
	assert.True(t, found.Items[0].Total.Equal(decimal.NewFromInt(20)))

	byID, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "5001", byID.SourceReference)

	_, err = repo.FindBySourceReference(ctx, "other-market", "5001")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindBySourceReference(ctx, "marketplace", "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_UpdateKeepsItems(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	ctx := context.Background()

	o := newTestOrder(t, "5002")
	require.NoError(t, repo.Create(ctx, o))

	changed := o.ApplyRemoteUpdate(trade.RemoteUpdate{
		Status:          trade.OrderStatusProcessing,
		ShippingAddress: trade.Address{Name: "Jane", Line1: "2 Side St", City: "Paris", PostalCode: "75001", Country: "FR"},
	})
	require.True(t, changed)
	o.CustomerName = "ignored on update"
	require.NoError(t, repo.Update(ctx, o))
	require.NoError(t, repo.Update(ctx, o))

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusProcessing, found.Status)
	assert.Equal(t, "Paris", found.ShippingAddress.City)
	assert.Empty(t, found.CustomerName)
	assert.Len(t, found.Items, 2)
}

func TestGormOrderRepository_UpdateTimestamps(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	ctx := context.Background()

	o := newTestOrder(t, "5003")
	require.NoError(t, repo.Create(ctx, o))

	at := time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)
	require.True(t, o.MarkDelivered(at))
	require.NoError(t, repo.Update(ctx, o))

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusDelivered, found.Status)
	require.NotNil(t, found.DeliveredAt)
	assert.True(t, found.DeliveredAt.Equal(at))
	require.NotNil(t, found.ShippedAt)
}

func TestGormOrderRepository_UpdateMissing(t *testing.T) {
	repo := NewGormOrderRepository(newTestDB(t))
	o := newTestOrder(t, "5004")
	o.ID = uuid.New()
	assert.ErrorIs(t, repo.Update(context.Background(), o), shared.ErrNotFound)
}
