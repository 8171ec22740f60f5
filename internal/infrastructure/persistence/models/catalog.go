package models

import (
	"encoding/json"

	"github.com/erp/channelsync/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	BaseModel
	SKU             string                  `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name            string                  `gorm:"type:varchar(200);not null"`
	Price           decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	CostPrice       decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	StockQuantity   int                     `gorm:"not null;default:0"`
	RemoteProductID string                  `gorm:"type:varchar(100);index"`
	SitePrices      string                  `gorm:"type:jsonb"`
	Variations      []ProductVariationModel `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseEntity:      m.BaseModel.ToDomain(),
		SKU:             m.SKU,
		Name:            m.Name,
		Price:           m.Price,
		CostPrice:       m.CostPrice,
		StockQuantity:   m.StockQuantity,
		RemoteProductID: m.RemoteProductID,
		SitePrices:      map[string]catalog.SitePrice{},
	}
	if m.SitePrices != "" {
		_ = json.Unmarshal([]byte(m.SitePrices), &p.SitePrices)
	}
	if len(m.Variations) > 0 {
		p.Variations = make([]catalog.ProductVariation, len(m.Variations))
		for i := range m.Variations {
			p.Variations[i] = *m.Variations[i].ToDomain()
		}
	}
	return p
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.SKU = p.SKU
	m.Name = p.Name
	m.Price = p.Price
	m.CostPrice = p.CostPrice
	m.StockQuantity = p.StockQuantity
	m.RemoteProductID = p.RemoteProductID
	m.SitePrices = "{}"
	if len(p.SitePrices) > 0 {
		if raw, err := json.Marshal(p.SitePrices); err == nil {
			m.SitePrices = string(raw)
		}
	}
	m.Variations = make([]ProductVariationModel, len(p.Variations))
	for i := range p.Variations {
		m.Variations[i].FromDomain(&p.Variations[i])
		m.Variations[i].ProductID = p.ID
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// ProductVariationModel is the persistence model for a product variation.
type ProductVariationModel struct {
	BaseModel
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_variation_product_remote,priority:1"`
	SKU               string          `gorm:"type:varchar(100);not null"`
	RemoteVariationID string          `gorm:"type:varchar(100);index:idx_variation_product_remote,priority:2"`
	Price             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CostPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	StockQuantity     int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductVariationModel) TableName() string {
	return "product_variations"
}

// ToDomain converts the persistence model to a domain ProductVariation.
func (m *ProductVariationModel) ToDomain() *catalog.ProductVariation {
	return &catalog.ProductVariation{
		BaseEntity:        m.BaseModel.ToDomain(),
		ProductID:         m.ProductID,
		SKU:               m.SKU,
		RemoteVariationID: m.RemoteVariationID,
		Price:             m.Price,
		CostPrice:         m.CostPrice,
		StockQuantity:     m.StockQuantity,
	}
}

// FromDomain populates the persistence model from a domain ProductVariation.
func (m *ProductVariationModel) FromDomain(v *catalog.ProductVariation) {
	m.FromDomainBaseEntity(v.BaseEntity)
	m.ProductID = v.ProductID
	m.SKU = v.SKU
	m.RemoteVariationID = v.RemoteVariationID
	m.Price = v.Price
	m.CostPrice = v.CostPrice
	m.StockQuantity = v.StockQuantity
}

// MerchantSiteModel is the persistence model for the MerchantSite entity.
type MerchantSiteModel struct {
	BaseModel
	Reference string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name      string `gorm:"type:varchar(200)"`
	URL       string `gorm:"type:varchar(500)"`
	Active    bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (MerchantSiteModel) TableName() string {
	return "merchant_sites"
}

// ToDomain converts the persistence model to a domain MerchantSite.
func (m *MerchantSiteModel) ToDomain() *catalog.MerchantSite {
	return &catalog.MerchantSite{
		BaseEntity: m.BaseModel.ToDomain(),
		Reference:  m.Reference,
		Name:       m.Name,
		URL:        m.URL,
		Active:     m.Active,
	}
}

// FromDomain populates the persistence model from a domain MerchantSite.
func (m *MerchantSiteModel) FromDomain(s *catalog.MerchantSite) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.Reference = s.Reference
	m.Name = s.Name
	m.URL = s.URL
	m.Active = s.Active
}
