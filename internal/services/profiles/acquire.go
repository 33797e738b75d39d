package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

// Acquire starts a profile, recovering the port through Status when the
// profile is already running. Denied and transient errors are returned as-is.
func Acquire(ctx context.Context, controller interfaces.ProfileController, logger arbor.ILogger, profileID string) (models.ProfileHandle, error) {
	handle, err := controller.Start(ctx, profileID)
	if err == nil {
		return handle, nil
	}
	if !errors.Is(err, models.ErrControlPlaneConflict) {
		return models.ProfileHandle{}, err
	}

	logger.Debug().
		Str("profile_id", profileID).
		Msg("Profile already running, recovering port from status")

	port, statusErr := controller.Status(ctx, profileID)
	if statusErr != nil {
		return models.ProfileHandle{}, fmt.Errorf("recover running profile %s: %w", profileID, statusErr)
	}

	return models.ProfileHandle{ProfileID: profileID, DebugPort: port}, nil
}
