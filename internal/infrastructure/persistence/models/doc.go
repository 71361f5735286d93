// Package models contains GORM persistence models that map to database tables.
// They are kept separate from domain entities so the domain stays free of
// ORM tags; repositories convert with ToDomain and the
// <Model>FromDomain constructors.
//
// Structure:
//   - base.go: shared columns (BaseModel, VersionedModel)
//   - catalog.go: products
//   - partner.go: customers
//   - trade.go: sales orders, items, taxes, auto-workflows
//   - integration.go: storefront instances, product mappings, data queues, log lines
package models
