package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/channelsync/internal/domain/catalog"
	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, repo *GormProductRepository, sku string, stock int, remoteID string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Product "+sku, decimal.RequireFromString("19.99"), decimal.RequireFromString("8.50"), stock)
	require.NoError(t, err)
	p.RemoteProductID = remoteID
	require.NoError(t, repo.Save(context.Background(), p))
	return p
}

func TestGormProductRepository_SaveAndFindBySKU(t *testing.T) {
	repo := NewGormProductRepository(newTestDB(t))
	ctx := context.Background()

	p, err := catalog.NewProduct(" TSHIRT-01 ", "T-shirt", decimal.RequireFromString("25"), decimal.RequireFromString("9.1234"), 12)
	require.NoError(t, err)
	p.SetSitePrice("site-eu", catalog.SitePrice{Price: decimal.RequireFromString("27.5"), Enabled: true})
	p.AddVariation("TSHIRT-01-S", "991", decimal.RequireFromString("25"), decimal.RequireFromString("9"), 4)
	p.AddVariation("TSHIRT-01-M", "992", decimal.RequireFromString("25"), decimal.RequireFromString("9"), 8)
	require.NoError(t, repo.Save(ctx, p))

	found, err := repo.FindBySKU(ctx, "TSHIRT-01")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, 12, found.StockQuantity)
	assert.True(t, found.CostPrice.Equal(decimal.RequireFromString("9.1234")))
	assert.True(t, found.PriceForSite("site-eu").Equal(decimal.RequireFromString("27.5")))
	require.Len(t, found.Variations, 2)

	_, err = repo.FindBySKU(ctx, "tshirt-01")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProductRepository_FindVariationByRemoteID(t *testing.T) {
	repo := NewGormProductRepository(newTestDB(t))
	ctx := context.Background()

	p, err := catalog.NewProduct("MUG", "Mug", decimal.NewFromInt(10), decimal.NewFromInt(4), 0)
	require.NoError(t, err)
	v := p.AddVariation("MUG-RED", "555", decimal.NewFromInt(10), decimal.NewFromInt(4), 3)
	require.NoError(t, repo.Save(ctx, p))

	other := seedProduct(t, repo, "OTHER", 1, "")

	found, err := repo.FindVariationByRemoteID(ctx, p.ID, "555")
	require.NoError(t, err)
	assert.Equal(t, v.ID, found.ID)
	assert.Equal(t, 3, found.StockQuantity)

	// scoped under the parent product
	_, err = repo.FindVariationByRemoteID(ctx, other.ID, "555")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindVariationByRemoteID(ctx, p.ID, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProductRepository_ListBatch(t *testing.T) {
	repo := NewGormProductRepository(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedProduct(t, repo, uuid.NewString()[:8], i, "")
	}

	var seen []uuid.UUID
	after := uuid.Nil
	for {
		batch, err := repo.ListBatch(ctx, after, 2)
		require.NoError(t, err)
		if len(batch) == 0 {
			break
		}
		assert.LessOrEqual(t, len(batch), 2)
		for _, p := range batch {
			seen = append(seen, p.ID)
		}
		after = batch[len(batch)-1].ID
	}

	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i-1].String(), seen[i].String())
	}
}

func TestGormProductRepository_UpdateInventory(t *testing.T) {
	repo := NewGormProductRepository(newTestDB(t))
	ctx := context.Background()
	p := seedProduct(t, repo, "SKU-1", 10, "r-1")

	stock := 7
	require.NoError(t, repo.UpdateInventory(ctx, p.ID, catalog.InventoryChanges{StockQuantity: &stock}))

	found, err := repo.FindBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 7, found.StockQuantity)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("19.99")))

	assert.NoError(t, repo.UpdateInventory(ctx, p.ID, catalog.InventoryChanges{}))
	assert.ErrorIs(t, repo.UpdateInventory(ctx, uuid.New(), catalog.InventoryChanges{StockQuantity: &stock}), shared.ErrNotFound)
}

func TestGormProductRepository_UpdateInventory_WritesChangedColumnsOnly(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(db)

	id := uuid.New()
	price := decimal.RequireFromString("12.5")
	mock.ExpectExec(`UPDATE "products" SET "price"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(price, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateInventory(context.Background(), id, catalog.InventoryChanges{Price: &price})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_UpdateVariationInventory(t *testing.T) {
	repo := NewGormProductRepository(newTestDB(t))
	ctx := context.Background()

	p, err := catalog.NewProduct("CAP", "Cap", decimal.NewFromInt(15), decimal.NewFromInt(5), 0)
	require.NoError(t, err)
	v := p.AddVariation("CAP-BLK", "77", decimal.NewFromInt(15), decimal.NewFromInt(5), 2)
	require.NoError(t, repo.Save(ctx, p))

	cost := decimal.RequireFromString("5.75")
	require.NoError(t, repo.UpdateVariationInventory(ctx, v.ID, catalog.InventoryChanges{CostPrice: &cost}))

	found, err := repo.FindVariationByRemoteID(ctx, p.ID, "77")
	require.NoError(t, err)
	assert.True(t, found.CostPrice.Equal(cost))
	assert.Equal(t, 2, found.StockQuantity)
}

func TestGormMerchantSiteRepository(t *testing.T) {
	repo := NewGormMerchantSiteRepository(newTestDB(t))
	ctx := context.Background()

	site, err := catalog.NewMerchantSite("site-eu", "EU shop", "https://eu.example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, site))

	found, err := repo.FindByReference(ctx, "site-eu")
	require.NoError(t, err)
	assert.Equal(t, site.ID, found.ID)
	assert.True(t, found.Active)

	_, err = repo.FindByReference(ctx, "site-us")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
