package positions

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository moves and repairs position records. Positions are deduplicated
// by (subject, election) before any transfer.
type Repository interface {
	CountForVoter(ctx context.Context, voterWeVoteID string) (int64, error)
	ListByVoter(ctx context.Context, voterWeVoteID string) ([]*models.Position, error)

	// MoveToVoter transfers positions between voters, rewriting both the
	// voter and the denormalized organization owner.
	MoveToVoter(ctx context.Context, from, to models.OwnerRef) (models.MoveResult, error)

	// MoveToOrganization transfers org-attributed positions during an
	// organization merge.
	MoveToOrganization(ctx context.Context, fromOrgWeVoteID, toOrgWeVoteID, toVoterWeVoteID string) (models.MoveResult, error)

	// RepairForVoter fixes dangling or missing organization references on a
	// voter's positions, pointing them at the voter's linked organization.
	RepairForVoter(ctx context.Context, voterWeVoteID, linkedOrganizationWeVoteID string) (int64, error)
}
