//go:build property
// +build property

package catalog

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// TestInventoryDiffProperties checks diff suppression and idempotence for
// arbitrary price and stock pairs.
func TestInventoryDiffProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	// cents with up to two extra digits beyond PriceScale
	price := gen.Int64Range(0, 10_000_000_000).Map(func(v int64) decimal.Decimal {
		return decimal.New(v, -(PriceScale + 2))
	})
	stock := gen.IntRange(0, 100_000)

	properties.Property("values equal after normalization produce no change", prop.ForAll(
		func(p decimal.Decimal, q int) bool {
			product, err := NewProduct("SKU-1", "Widget", p, p, q)
			if err != nil {
				return true
			}
			rp := NormalizePrice(p)
			rq := q
			changes := product.DiffInventory(InventoryValues{Price: &rp, CostPrice: &rp, StockQuantity: &rq})
			return changes.IsEmpty()
		},
		price, stock,
	))

	properties.Property("applying a diff makes the next diff empty", prop.ForAll(
		func(local, remote decimal.Decimal, localStock, remoteStock int) bool {
			product, err := NewProduct("SKU-1", "Widget", local, local, localStock)
			if err != nil {
				return true
			}
			values := InventoryValues{Price: &remote, CostPrice: &remote, StockQuantity: &remoteStock}
			product.ApplyInventory(product.DiffInventory(values))
			return product.DiffInventory(values).IsEmpty()
		},
		price, price, stock, stock,
	))

	properties.Property("absent remote fields never change", prop.ForAll(
		func(p decimal.Decimal, q int) bool {
			product, err := NewProduct("SKU-1", "Widget", p, p, q)
			if err != nil {
				return true
			}
			return product.DiffInventory(InventoryValues{}).IsEmpty()
		},
		price, stock,
	))

	properties.TestingRun(t)
}
