// Package provisioner defines the storage provisioning port (interface).
package provisioner

import "context"

// Gateway is the external capability that materialises a wiki's backing
// storage. CreateStorage and PopulateStorage are idempotent by contract: a
// retried approval must either succeed or report a definite failure, never
// leave storage half-applied.
type Gateway interface {
	// CreateStorage creates the wiki's database. Returns
	// domain.ErrAlreadyExists when it is already present.
	CreateStorage(ctx context.Context, dbname string) error

	// PopulateStorage applies the tenant schema to an existing database.
	PopulateStorage(ctx context.Context, dbname string) error

	// DropStorage removes the wiki's database. Best-effort: callers log
	// failures and carry on.
	DropStorage(ctx context.Context, dbname string) error
}
