// Package identity is the identity link store: the authoritative answer to
// "which voter owns this provider identity". It has no side effects outside
// its own tables; resolving collisions between owners is the reconciliation
// engine's job.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/wevote/reconcile/internal/common"
	"github.com/wevote/reconcile/internal/server/models"
	"github.com/wevote/reconcile/internal/server/repositories/authsessions"
	"github.com/wevote/reconcile/internal/server/repositories/identitylinks"
	"github.com/wevote/reconcile/internal/server/repositories/voters"
)

type Service struct {
	links    identitylinks.Repository
	sessions authsessions.Repository
	voters   voters.Repository
}

func NewService(links identitylinks.Repository, sessions authsessions.Repository, voterRepo voters.Repository) *Service {
	return &Service{
		links:    links,
		sessions: sessions,
		voters:   voterRepo,
	}
}

// FindOwner returns the voter that owns the given provider identity, along
// with the link's secret key. common.ErrorNotFound when no link exists.
func (s *Service) FindOwner(ctx context.Context, provider models.Provider, providerUserID int64) (string, string, error) {
	link, err := s.links.Find(ctx, provider, providerUserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", "", common.ErrorNotFound
		}
		return "", "", fmt.Errorf("error finding identity link: %w", err)
	}
	return link.VoterWeVoteID, link.SecretKey, nil
}

// CreateLink binds a provider identity to a voter. Calling it again for the
// same voter is a no-op returning the existing link; a link owned by a
// different voter yields common.ErrIdentityConflict and must be resolved by
// a merge, never by overwriting.
func (s *Service) CreateLink(ctx context.Context, provider models.Provider, providerUserID int64, voterWeVoteID string) (*models.IdentityLink, error) {
	existing, err := s.links.Find(ctx, provider, providerUserID)
	if err == nil {
		if existing.VoterWeVoteID == voterWeVoteID {
			return existing, nil
		}
		return nil, common.ErrIdentityConflict
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error finding identity link: %w", err)
	}

	secret, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("error generating secret key: %w", err)
	}

	link := &models.IdentityLink{
		Provider:       provider,
		ProviderUserID: providerUserID,
		VoterWeVoteID:  voterWeVoteID,
		SecretKey:      secret,
	}

	link, err = s.links.Create(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("error creating identity link: %w", err)
	}

	return link, nil
}

// FindOwnerWithHealing resolves the owner like FindOwner, but when no link
// row exists it scans the voter table for a legacy cached provider id and
// promotes that cache into a real link. Rows written before the link store
// existed become authoritative this way, on first contact.
func (s *Service) FindOwnerWithHealing(ctx context.Context, provider models.Provider, providerUserID int64) (*models.IdentityLink, error) {
	link, err := s.links.Find(ctx, provider, providerUserID)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error finding identity link: %w", err)
	}

	voter, err := s.voters.FindByCachedProviderID(ctx, provider, providerUserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error scanning legacy voter cache: %w", err)
	}

	return s.CreateLink(ctx, provider, providerUserID, voter.WeVoteID)
}

// RetrieveOrCreateAuthSession returns the pre-voter OAuth state for a device,
// creating an empty row when the device has none yet.
func (s *Service) RetrieveOrCreateAuthSession(ctx context.Context, provider models.Provider, deviceID string) (*models.AuthSession, error) {
	session, err := s.sessions.Get(ctx, provider, deviceID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error retrieving auth session: %w", err)
	}

	session, err = s.sessions.Create(ctx, &models.AuthSession{Provider: provider, DeviceID: deviceID})
	if err != nil {
		return nil, fmt.Errorf("error creating auth session: %w", err)
	}

	return session, nil
}

// SaveAuthSession persists updated OAuth state for a device.
func (s *Service) SaveAuthSession(ctx context.Context, session *models.AuthSession) error {
	if err := s.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("error saving auth session: %w", err)
	}
	return nil
}
