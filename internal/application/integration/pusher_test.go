package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pushFor(sku string) interface{} {
	return mock.MatchedBy(func(u integration.StockUpdate) bool { return u.SKU == sku })
}

func TestInventoryPusher_SyncInventory(t *testing.T) {
	mapped := newProduct(t, "MAPPED", "5.00", 8)
	mapped.RemoteProductID = "rp-1"
	mapped.AddVariation("MAPPED-RED", "rv-red", decimal.Zero, decimal.Zero, 2)
	mapped.AddVariation("MAPPED-BLUE", "", decimal.Zero, decimal.Zero, 1)
	unmapped := newProduct(t, "LOCAL-ONLY", "5.00", 1)
	failing := newProduct(t, "FAILS", "5.00", 1)
	failing.RemoteProductID = "rp-3"

	products := newMemProducts(mapped, unmapped, failing)
	mp := new(MockMarketplace)
	mp.On("PushStock", mock.Anything, integration.StockUpdate{SKU: "MAPPED", RemoteProductID: "rp-1", StockQuantity: 8}).Return(nil)
	mp.On("PushStock", mock.Anything, integration.StockUpdate{SKU: "MAPPED-RED", RemoteProductID: "rp-1", RemoteVariationID: "rv-red", StockQuantity: 2}).Return(nil)
	mp.On("PushStock", mock.Anything, pushFor("FAILS")).Return(errors.New("rejected: unknown product"))

	sink := &recordingSink{}
	pusher := NewInventoryPusher(mp, products, PushConfig{BatchSize: 2}, zap.NewNop())
	result, err := pusher.SyncInventory(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, 3, result.ProductsProcessed)
	assert.Equal(t, 1, result.ProductsUpdated)
	assert.Equal(t, 2, result.VariationsProcessed)
	assert.Equal(t, 1, result.VariationsUpdated)
	assert.Equal(t, 2, result.Skipped)
	assert.ElementsMatch(t, []string{"LOCAL-ONLY", "MAPPED-BLUE"}, result.SkippedSKUs)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.ErrorSamples, 1)
	assert.Contains(t, result.ErrorSamples[0], "FAILS")
	assert.Equal(t, integration.SyncStatusPartial, result.Outcome())

	errs := sink.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, ScopeProduct, errs[0].Scope)
	assert.Equal(t, "FAILS", errs[0].SKU)
	assert.Len(t, sink.events, 3, "one error plus a progress event per batch")
	mp.AssertExpectations(t)
}

func TestInventoryPusher_NoProducts(t *testing.T) {
	mp := new(MockMarketplace)
	result, err := NewInventoryPusher(mp, newMemProducts(), PushConfig{}, zap.NewNop()).
		SyncInventory(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProductsProcessed)
	assert.Empty(t, result.SkippedSKUs)
	mp.AssertNotCalled(t, "PushStock", mock.Anything, mock.Anything)
}

func TestInventoryPusher_UnauthorizedOnFirstCallFails(t *testing.T) {
	p := newProduct(t, "A1", "1.00", 1)
	p.RemoteProductID = "rp-1"
	mp := new(MockMarketplace)
	mp.On("PushStock", mock.Anything, mock.Anything).Return(integration.ErrRemoteUnauthorized)

	result, err := NewInventoryPusher(mp, newMemProducts(p), PushConfig{}, zap.NewNop()).
		SyncInventory(context.Background(), nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, integration.ErrRemoteUnauthorized)
}

func TestInventoryPusher_UnauthorizedAfterFirstCallIsCounted(t *testing.T) {
	a := newProduct(t, "A1", "1.00", 1)
	a.RemoteProductID = "rp-1"
	a.AddVariation("A1-V", "rv-1", decimal.Zero, decimal.Zero, 1)
	mp := new(MockMarketplace)
	mp.On("PushStock", mock.Anything, pushFor("A1")).Return(nil)
	mp.On("PushStock", mock.Anything, pushFor("A1-V")).Return(integration.ErrRemoteUnauthorized)

	result, err := NewInventoryPusher(mp, newMemProducts(a), PushConfig{}, zap.NewNop()).
		SyncInventory(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProductsUpdated)
	assert.Equal(t, 1, result.Errors)
}
