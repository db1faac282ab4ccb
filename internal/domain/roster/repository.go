// Package roster derives the live set of valid class identifiers from a
// mutable per-grade class-count configuration.
package roster

import (
	"context"
)

// Repository defines the interface for the single roster settings record.
// Implemented by the infrastructure layer.
type Repository interface {
	// Load returns the current class-count configuration.
	// Returns ErrSettingsNotFound when the record has never been written;
	// callers fall back to DefaultClassCounts.
	Load(ctx context.Context) (ClassCounts, error)

	// Save upserts the settings record with the given configuration.
	// Grades absent from the candidate keep their stored counts (merge
	// semantics, matching the settings document the original record had).
	Save(ctx context.Context, counts ClassCounts) error
}
