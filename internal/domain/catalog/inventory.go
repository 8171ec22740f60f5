package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InventoryValues are the inventory fields reported by a remote system.
// A nil field was absent from the remote record and is left untouched.
type InventoryValues struct {
	Price         *decimal.Decimal
	CostPrice     *decimal.Decimal
	StockQuantity *int
}

// InventoryChanges holds only the fields whose remote value differs from the
// local one.
type InventoryChanges struct {
	Price         *decimal.Decimal
	CostPrice     *decimal.Decimal
	StockQuantity *int
}

// IsEmpty reports whether no field changed.
func (c InventoryChanges) IsEmpty() bool {
	return c.Price == nil && c.CostPrice == nil && c.StockQuantity == nil
}

// Fields lists the names of the changed fields, in a fixed order.
func (c InventoryChanges) Fields() []string {
	fields := make([]string, 0, 3)
	if c.Price != nil {
		fields = append(fields, "price")
	}
	if c.CostPrice != nil {
		fields = append(fields, "cost_price")
	}
	if c.StockQuantity != nil {
		fields = append(fields, "stock_quantity")
	}
	return fields
}

// Problems lists the reported values no local record may hold: negative
// prices or stock. It returns nil for usable values.
func (v InventoryValues) Problems() []string {
	var problems []string
	if v.Price != nil && v.Price.IsNegative() {
		problems = append(problems, "negative price "+v.Price.String())
	}
	if v.CostPrice != nil && v.CostPrice.IsNegative() {
		problems = append(problems, "negative cost_price "+v.CostPrice.String())
	}
	if v.StockQuantity != nil && *v.StockQuantity < 0 {
		problems = append(problems, fmt.Sprintf("negative stock_quantity %d", *v.StockQuantity))
	}
	return problems
}

func diffInventory(price, cost decimal.Decimal, stock int, remote InventoryValues) InventoryChanges {
	var c InventoryChanges
	if remote.Price != nil {
		if p := NormalizePrice(*remote.Price); !p.Equal(NormalizePrice(price)) {
			c.Price = &p
		}
	}
	if remote.CostPrice != nil {
		if p := NormalizePrice(*remote.CostPrice); !p.Equal(NormalizePrice(cost)) {
			c.CostPrice = &p
		}
	}
	if remote.StockQuantity != nil && *remote.StockQuantity != stock {
		q := *remote.StockQuantity
		c.StockQuantity = &q
	}
	return c
}

func applyInventory(price, cost *decimal.Decimal, stock *int, c InventoryChanges) {
	if c.Price != nil {
		*price = *c.Price
	}
	if c.CostPrice != nil {
		*cost = *c.CostPrice
	}
	if c.StockQuantity != nil {
		*stock = *c.StockQuantity
	}
}
