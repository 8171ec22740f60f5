// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and the model list used by AutoMigrate
//   - catalog.go: products, product variations, merchant sites
//   - trade.go: orders and order items
//   - shipping.go: shipments, tracking events, shipping carriers
//   - integration.go: sync run history
package models
