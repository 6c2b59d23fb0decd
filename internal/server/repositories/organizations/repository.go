package organizations

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository stores organizations and the cache maintenance queries used by
// caching repair and the organization merge.
type Repository interface {
	Create(ctx context.Context, org *models.Organization) (*models.Organization, error)
	GetByWeVoteID(ctx context.Context, weVoteID string) (*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error

	// ListByTwitterCache returns organizations whose cached twitter id
	// references the given identity.
	ListByTwitterCache(ctx context.Context, twitterID int64) ([]*models.Organization, error)

	// ClearTwitterCache empties the cached twitter fields on an organization
	// that turned out not to own the identity.
	ClearTwitterCache(ctx context.Context, weVoteID string) error
}
