package ports

import (
	"context"

	"github.com/aretw0/warp/pkg/domain"
)

// RunStore persists model snapshots of finished executions.
// This lets a controller render a run again after the request that produced it.
type RunStore interface {
	// Save persists the model for a given run ID.
	Save(ctx context.Context, runID string, model *domain.Model) error

	// Load retrieves the model for a given run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Model, error)

	// Delete removes the snapshot for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of the stored runs.
	List(ctx context.Context) ([]string, error)
}
