package emails

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository stores master email records and moves them between voters. The
// address string is the natural key for de-duplication.
type Repository interface {
	Create(ctx context.Context, entry *models.EmailEntry) (*models.EmailEntry, error)
	FindVerifiedByAddress(ctx context.Context, address string) (*models.EmailEntry, error)
	MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error)
}
