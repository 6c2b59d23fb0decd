package follows

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository moves follow relationships. The followed entity's permanent id
// is the natural key: when both voters follow the same entity the source
// entry is dropped, not merged further.
type Repository interface {
	CountForVoter(ctx context.Context, voterWeVoteID string) (int64, error)
	MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error)

	// RetargetFollowed repoints entries following one entity at another,
	// used when two organizations merge.
	RetargetFollowed(ctx context.Context, fromWeVoteID, toWeVoteID string) (models.MoveResult, error)
}
