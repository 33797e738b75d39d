package interfaces

import (
	"context"

	"github.com/ternarybob/sellersync/internal/models"
)

// ProfileController starts and stops isolated browser profiles through the local control plane
type ProfileController interface {
	// Start launches the profile. Errors wrap models.ErrControlPlaneConflict,
	// models.ErrControlPlaneDenied or models.ErrControlPlaneTransient.
	Start(ctx context.Context, profileID string) (models.ProfileHandle, error)

	// Stop is best-effort; failures are logged, never returned
	Stop(ctx context.Context, profileID string)

	// Status returns the debug port of a running profile
	Status(ctx context.Context, profileID string) (int, error)

	// List returns the profiles known to the control plane
	List(ctx context.Context) ([]models.ProfileDescriptor, error)
}
