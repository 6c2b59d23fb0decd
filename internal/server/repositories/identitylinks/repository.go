package identitylinks

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository stores the authoritative provider-identity-to-voter bindings.
type Repository interface {
	Find(ctx context.Context, provider models.Provider, providerUserID int64) (*models.IdentityLink, error)
	FindByVoter(ctx context.Context, provider models.Provider, voterWeVoteID string) (*models.IdentityLink, error)
	Create(ctx context.Context, link *models.IdentityLink) (*models.IdentityLink, error)
	MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error)
}
