// Package integration contains the storefront integration bounded context.
// It turns storefront (Magento 2 REST) order and customer exports into ERP records.
//
// Key concepts:
//   - StorefrontInstance: a connected store with its pricing configuration
//   - OrderPayload / OrderLinePayload: the inbound order export shape
//   - Unit-price resolution: tax-excluded unit prices in fixed or proportional mode
//   - DataQueue / QueueLine: persisted units of inbound work with a draft/done/failed/cancelled lifecycle
//   - ProductMapping: storefront product (instance, external id, SKU) to local product
//   - LogLine: structured import log written against a queue line
//
// Design Pattern: Ports & Adapters
//   - Ports (repository interfaces) are defined here in the domain layer
//   - Adapters (GORM, Redis, REST client, AMQP) are in the infrastructure layer
package integration
