// Package models contains GORM persistence models that map to database tables.
// Domain types stay free of ORM tags; each model converts with ToDomain and FromDomain.
//
// Layout:
//   - accounting.go: chart of accounts, journal entries and lines
//   - escrow.go: network orders, payments, seller ledger, payment webhook inbox
//   - shipping.go: shipments, shipment audit trail, carrier webhook inbox
//   - reconciliation.go: external request log and sales invoices
//   - sales.go: marketplace orders, stock batches, product mappings
//   - receipt.go: per-handler event receipts
//   - outbox.go: transactional outbox
package models
