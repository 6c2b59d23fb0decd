package bookmarks

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository moves voter-owned bookmarks and detects bookmarks attached to
// an object. Bookmarks on an organization being merged are the hard-stop
// condition: the automatic workflow refuses to touch them.
type Repository interface {
	CountForObject(ctx context.Context, objectWeVoteID string) (int64, error)
	MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error)
}
