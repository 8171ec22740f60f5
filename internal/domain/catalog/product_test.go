package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(i int) *int { return &i }

func newTestProduct(t *testing.T) *Product {
	t.Helper()
	p, err := NewProduct(" A1 ", "Widget", decimal.RequireFromString("19.99"), decimal.RequireFromString("7.5"), 5)
	require.NoError(t, err)
	return p
}

func TestNewProduct(t *testing.T) {
	p := newTestProduct(t)
	assert.Equal(t, "A1", p.SKU)
	assert.False(t, p.HasRemoteMapping())

	_, err := NewProduct("  ", "x", decimal.Zero, decimal.Zero, 0)
	assert.Error(t, err)

	_, err = NewProduct("B", "x", decimal.Zero, decimal.Zero, -1)
	assert.Error(t, err)
}

func TestProduct_DiffInventory(t *testing.T) {
	tests := []struct {
		name   string
		remote InventoryValues
		fields []string
	}{
		{
			name:   "identical values",
			remote: InventoryValues{Price: decPtr("19.99"), CostPrice: decPtr("7.50"), StockQuantity: intPtr(5)},
			fields: []string{},
		},
		{
			name:   "equal after normalization",
			remote: InventoryValues{Price: decPtr("19.990000"), CostPrice: decPtr("7.50001")},
			fields: []string{},
		},
		{
			name:   "absent fields are ignored",
			remote: InventoryValues{},
			fields: []string{},
		},
		{
			name:   "stock only",
			remote: InventoryValues{Price: decPtr("19.99"), StockQuantity: intPtr(7)},
			fields: []string{"stock_quantity"},
		},
		{
			name:   "all fields",
			remote: InventoryValues{Price: decPtr("21"), CostPrice: decPtr("8"), StockQuantity: intPtr(0)},
			fields: []string{"price", "cost_price", "stock_quantity"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProduct(t)
			changes := p.DiffInventory(tt.remote)
			assert.Equal(t, tt.fields, changes.Fields())
			assert.Equal(t, len(tt.fields) == 0, changes.IsEmpty())
		})
	}
}

func TestProduct_ApplyInventory(t *testing.T) {
	p := newTestProduct(t)
	changes := p.DiffInventory(InventoryValues{Price: decPtr("25.00"), StockQuantity: intPtr(9)})
	p.ApplyInventory(changes)

	assert.True(t, p.Price.Equal(decimal.RequireFromString("25")))
	assert.Equal(t, 9, p.StockQuantity)
	assert.True(t, p.DiffInventory(InventoryValues{Price: decPtr("25"), StockQuantity: intPtr(9)}).IsEmpty())
}

func TestProductVariation_DiffInventory(t *testing.T) {
	p := newTestProduct(t)
	v := p.AddVariation("A1-RED", " 991 ", decimal.RequireFromString("20"), decimal.Zero, 2)

	assert.Equal(t, "991", v.RemoteVariationID)
	assert.Equal(t, p.ID, v.ProductID)
	assert.True(t, v.HasRemoteMapping())

	changes := v.DiffInventory(InventoryValues{StockQuantity: intPtr(2), CostPrice: decPtr("1")})
	assert.Equal(t, []string{"cost_price"}, changes.Fields())
	v.ApplyInventory(changes)
	assert.True(t, v.CostPrice.Equal(decimal.NewFromInt(1)))
}

func TestProduct_PriceForSite(t *testing.T) {
	p := newTestProduct(t)
	p.SetSitePrice("shop-eu", SitePrice{Price: decimal.RequireFromString("17.5"), Enabled: true, DisplayName: "EU"})
	p.SetSitePrice("shop-us", SitePrice{Price: decimal.RequireFromString("30"), Enabled: false})

	assert.True(t, p.PriceForSite("shop-eu").Equal(decimal.RequireFromString("17.5")))
	assert.True(t, p.PriceForSite("shop-us").Equal(p.Price))
	assert.True(t, p.PriceForSite("unknown").Equal(p.Price))
}

func TestInventoryValues_Problems(t *testing.T) {
	price := decimal.RequireFromString("-0.50")
	stock := -2
	zero := 0

	assert.Nil(t, InventoryValues{}.Problems())
	assert.Nil(t, InventoryValues{StockQuantity: &zero}.Problems())
	assert.Equal(t,
		[]string{"negative price -0.5", "negative stock_quantity -2"},
		InventoryValues{Price: &price, StockQuantity: &stock}.Problems())
}
