package catalog

import (
	"strings"

	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits prices are stored with.
// Remote and local values are compared after rounding to this scale.
const PriceScale = 4

// SitePrice is the price a product carries on one merchant site.
type SitePrice struct {
	Price       decimal.Decimal `json:"price"`
	Enabled     bool            `json:"enabled"`
	DisplayName string          `json:"display_name"`
}

// Product is a sellable item identified by a merchant-unique SKU.
type Product struct {
	shared.BaseEntity
	SKU             string
	Name            string
	Price           decimal.Decimal
	CostPrice       decimal.Decimal
	StockQuantity   int
	RemoteProductID string
	SitePrices      map[string]SitePrice
	Variations      []ProductVariation
}

// ProductVariation is a variant of a product (size, colour...). It is matched
// against the marketplace by RemoteVariationID under the parent SKU.
type ProductVariation struct {
	shared.BaseEntity
	ProductID         uuid.UUID
	SKU               string
	RemoteVariationID string
	Price             decimal.Decimal
	CostPrice         decimal.Decimal
	StockQuantity     int
}

// NewProduct creates a product with a normalized SKU.
func NewProduct(sku, name string, price, costPrice decimal.Decimal, stock int) (*Product, error) {
	sku = NormalizeSKU(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_STOCK", "Stock quantity cannot be negative")
	}
	return &Product{
		BaseEntity:    shared.NewBaseEntity(),
		SKU:           sku,
		Name:          name,
		Price:         NormalizePrice(price),
		CostPrice:     NormalizePrice(costPrice),
		StockQuantity: stock,
		SitePrices:    map[string]SitePrice{},
	}, nil
}

// AddVariation attaches a variation to the product.
func (p *Product) AddVariation(sku, remoteVariationID string, price, costPrice decimal.Decimal, stock int) *ProductVariation {
	v := ProductVariation{
		BaseEntity:        shared.NewBaseEntity(),
		ProductID:         p.ID,
		SKU:               NormalizeSKU(sku),
		RemoteVariationID: strings.TrimSpace(remoteVariationID),
		Price:             NormalizePrice(price),
		CostPrice:         NormalizePrice(costPrice),
		StockQuantity:     stock,
	}
	p.Variations = append(p.Variations, v)
	return &p.Variations[len(p.Variations)-1]
}

// HasRemoteMapping reports whether local stock can be pushed for the product.
func (p *Product) HasRemoteMapping() bool {
	return p.RemoteProductID != ""
}

// HasRemoteMapping reports whether local stock can be pushed for the variation.
func (v *ProductVariation) HasRemoteMapping() bool {
	return v.RemoteVariationID != ""
}

// PriceForSite returns the site-specific price when one is enabled, and the
// base price otherwise.
func (p *Product) PriceForSite(siteReference string) decimal.Decimal {
	if sp, ok := p.SitePrices[siteReference]; ok && sp.Enabled {
		return sp.Price
	}
	return p.Price
}

// SetSitePrice registers or replaces the price of the product on a site.
func (p *Product) SetSitePrice(siteReference string, price SitePrice) {
	if p.SitePrices == nil {
		p.SitePrices = map[string]SitePrice{}
	}
	price.Price = NormalizePrice(price.Price)
	p.SitePrices[siteReference] = price
}

// DiffInventory compares remote inventory values against the product.
func (p *Product) DiffInventory(remote InventoryValues) InventoryChanges {
	return diffInventory(p.Price, p.CostPrice, p.StockQuantity, remote)
}

// ApplyInventory writes the changed fields onto the product.
func (p *Product) ApplyInventory(c InventoryChanges) {
	applyInventory(&p.Price, &p.CostPrice, &p.StockQuantity, c)
	if !c.IsEmpty() {
		p.Touch()
	}
}

// DiffInventory compares remote inventory values against the variation.
func (v *ProductVariation) DiffInventory(remote InventoryValues) InventoryChanges {
	return diffInventory(v.Price, v.CostPrice, v.StockQuantity, remote)
}

// ApplyInventory writes the changed fields onto the variation.
func (v *ProductVariation) ApplyInventory(c InventoryChanges) {
	applyInventory(&v.Price, &v.CostPrice, &v.StockQuantity, c)
	if !c.IsEmpty() {
		v.Touch()
	}
}

// NormalizeSKU trims surrounding whitespace. SKUs are case sensitive.
func NormalizeSKU(sku string) string {
	return strings.TrimSpace(sku)
}

// NormalizePrice rounds a price to PriceScale digits.
func NormalizePrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PriceScale)
}
