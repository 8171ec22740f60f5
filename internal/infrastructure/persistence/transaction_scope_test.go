package persistence

import (
	"context"
	"errors"
	"testing"

	appintegration "github.com/erp/channelsync/internal/application/integration"
	"github.com/erp/channelsync/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope(t *testing.T) {
	db := newTestDB(t)
	products := NewGormProductRepository(db)
	ctx := context.Background()
	p := seedProduct(t, products, "TX-1", 10, "")
	scope := NewGormTransactionScope(db)

	t.Run("commits on success", func(t *testing.T) {
		stock := 3
		err := scope.Execute(ctx, func(repos appintegration.TransactionalRepositories) error {
			return repos.ProductRepo().UpdateInventory(ctx, p.ID, catalog.InventoryChanges{StockQuantity: &stock})
		})
		require.NoError(t, err)

		found, err := products.FindBySKU(ctx, "TX-1")
		require.NoError(t, err)
		assert.Equal(t, 3, found.StockQuantity)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		price := decimal.NewFromInt(99)
		err := scope.Execute(ctx, func(repos appintegration.TransactionalRepositories) error {
			if err := repos.ProductRepo().UpdateInventory(ctx, p.ID, catalog.InventoryChanges{Price: &price}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		found, err := products.FindBySKU(ctx, "TX-1")
		require.NoError(t, err)
		assert.True(t, found.Price.Equal(decimal.RequireFromString("19.99")))
	})
}
