package donations

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository moves donation records. Every donation is a distinct charge, so
// there is no de-duplication: all source rows transfer.
type Repository interface {
	MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error)
}
