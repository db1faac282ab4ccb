// Package jobs contains the concrete scheduled jobs of the score service.
package jobs

import (
	"context"
	"time"
)

// Reloader is the slice of the projection service the reconcile job needs.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReconcileProjection periodically reloads the projection from the store.
// Change signals over pub/sub are best-effort; this job bounds how stale an
// instance can get when a signal is lost or Redis is down.
type ReconcileProjection struct {
	projection Reloader
	timeout    time.Duration
}

// NewReconcileProjection creates the reconcile job. A zero timeout defaults
// to 30 seconds per run.
func NewReconcileProjection(projection Reloader, timeout time.Duration) *ReconcileProjection {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReconcileProjection{projection: projection, timeout: timeout}
}

// Name returns the unique name of the job.
func (j *ReconcileProjection) Name() string {
	return "reconcile-projection"
}

// Description returns a human-readable description of the job.
func (j *ReconcileProjection) Description() string {
	return "Reload the in-memory read model from the event store"
}

// Run executes one reconcile pass.
func (j *ReconcileProjection) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	return j.projection.Reload(ctx)
}
