package analytics

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository moves analytics events. Events are append-only observations, so
// all source rows transfer without de-duplication.
type Repository interface {
	MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error)
}
