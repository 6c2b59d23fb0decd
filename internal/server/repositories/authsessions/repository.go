package authsessions

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository stores pre-voter provider OAuth state, keyed by device.
type Repository interface {
	Get(ctx context.Context, provider models.Provider, deviceID string) (*models.AuthSession, error)
	Create(ctx context.Context, session *models.AuthSession) (*models.AuthSession, error)
	Update(ctx context.Context, session *models.AuthSession) error
}
