package voterguides

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository moves voter guide ownership. A guide is deduplicated per
// election: if the destination already publishes a guide for the same
// election, the source guide is dropped.
type Repository interface {
	MoveToVoter(ctx context.Context, from, to models.OwnerRef) (models.MoveResult, error)
}
