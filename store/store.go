// Package store defines the aggregate persistence interface.
// The composite Store composes the job subsystem store with lifecycle
// operations. Backends: Redis and Memory.
package store

import (
	"context"

	"github.com/xraph/seeker/job"
)

// Store is the aggregate persistence interface. A single backend
// (memory, redis) implements all of it.
type Store interface {
	job.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
