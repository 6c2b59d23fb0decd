package friends

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository moves friendship records. Links and invitations are two
// separate movers with the same contract; the natural key is the other
// party's permanent id.
type Repository interface {
	MoveLinksToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error)
	MoveInvitationsToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error)
}
