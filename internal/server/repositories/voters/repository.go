package voters

import (
	"context"

	"github.com/wevote/reconcile/internal/server/models"
)

// Repository is the voter record store. Cached provider fields on the voter
// row are a derived projection; list methods exist so caching repair can find
// stale copies.
type Repository interface {
	Create(ctx context.Context, voter *models.Voter) (*models.Voter, error)
	GetByWeVoteID(ctx context.Context, weVoteID string) (*models.Voter, error)
	Update(ctx context.Context, voter *models.Voter) error

	// FindByCachedProviderID returns the first voter whose cached provider id
	// matches, for healing legacy rows that predate identity links.
	FindByCachedProviderID(ctx context.Context, provider models.Provider, providerUserID int64) (*models.Voter, error)

	// ListByTwitterCache returns voters whose cached twitter id or screen
	// name reference the given identity.
	ListByTwitterCache(ctx context.Context, twitterID int64, screenName string) ([]*models.Voter, error)

	// ListByFacebookCache returns voters whose cached facebook id references
	// the given identity.
	ListByFacebookCache(ctx context.Context, facebookID int64) ([]*models.Voter, error)

	// ClearProviderCache empties the voter's cached fields for one provider.
	// Used by caching repair when the cache references an identity the voter
	// does not own.
	ClearProviderCache(ctx context.Context, provider models.Provider, weVoteID string) error

	// ClearEmailCache empties the voter's cached email fields so a later
	// merge does not trip the unique verified-address constraint.
	ClearEmailCache(ctx context.Context, weVoteID string) error

	// ClearLinkedOrganization removes the voter's organization pointer.
	ClearLinkedOrganization(ctx context.Context, weVoteID string) error
}
