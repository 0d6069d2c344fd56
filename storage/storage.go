// Package storage defines the persistence contract of a catalog service.
package storage

import (
	"context"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
)

// Repository is the CRUD capability set a domain service delegates to. One
// Repository serves exactly one entity kind.
//
// Absence is reported as an error satisfying errors.IsNotFound from Get only;
// Update and Delete report absence through a zero row count. Storage faults are
// returned classified as fatal and are never retried.
//
// Implementations must be safe for concurrent use.
type Repository interface {
	// Schema returns the descriptor of the kind this repository stores.
	Schema() catalog.Schema

	// Create inserts a new entity and returns its store-assigned identity.
	Create(ctx context.Context, fields map[string]string) (int64, error)

	// Get returns the entity with the given identity.
	Get(ctx context.Context, id int64) (catalog.Record, error)

	// List returns every entity of the kind ordered by identity.
	List(ctx context.Context) ([]catalog.Record, error)

	// Update replaces every mutable field of the entity and returns the
	// number of rows affected (0 or 1).
	Update(ctx context.Context, id int64, fields map[string]string) (int64, error)

	// Delete removes the entity and returns the number of rows affected (0 or 1).
	Delete(ctx context.Context, id int64) (int64, error)
}
