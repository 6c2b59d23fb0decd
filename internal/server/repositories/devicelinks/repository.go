package devicelinks

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository is the device-session-to-voter binding: one voter per device id
// at a time, rewritten by the reconciliation engine at the end of a sign-in.
type Repository interface {
	Get(ctx context.Context, deviceID string) (*models.DeviceLink, error)
	Bind(ctx context.Context, deviceID, voterWeVoteID string) error
}
