// Package cachingrepair reconciles cached provider fields with the identity
// link store. Cached copies of provider attributes go stale after partial
// merges or legacy writes; repair clears every copy that is not held by the
// link's owner and refreshes the owner's copy from the latest profile.
package cachingrepair

import (
	"context"
	"errors"
	"fmt"

	"github.com/wevote/reconcile/internal/common"
	"github.com/wevote/reconcile/internal/logging"
	"github.com/wevote/reconcile/internal/server/models"
	"github.com/wevote/reconcile/internal/server/repositories/identitylinks"
	"github.com/wevote/reconcile/internal/server/repositories/organizations"
	"github.com/wevote/reconcile/internal/server/repositories/voters"
)

type Service struct {
	links  identitylinks.Repository
	voters voters.Repository
	orgs   organizations.Repository
	logger logging.Logger
}

func NewService(links identitylinks.Repository, voterRepo voters.Repository, orgs organizations.Repository, logger logging.Logger) *Service {
	return &Service{
		links:  links,
		voters: voterRepo,
		orgs:   orgs,
		logger: logger,
	}
}

// RepairVoterCache makes exactly one voter's cache reflect the given provider
// identity: the owner named by the identity link. Every other voter whose
// cache references the identity is cleared; the owner's cached fields are
// refreshed from profile when one is supplied.
//
// Without an authoritative link there is nothing to repair against, so the
// call is a no-op. Idempotent.
func (s *Service) RepairVoterCache(ctx context.Context, provider models.Provider, providerUserID int64, profile *models.ProviderProfile) error {
	link, err := s.links.Find(ctx, provider, providerUserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "no identity link, skipping cache repair",
				"provider", string(provider), "provider_user_id", providerUserID)
			return nil
		}
		return fmt.Errorf("error finding identity link: %w", err)
	}

	var stale []*models.Voter
	switch provider {
	case models.ProviderTwitter:
		screenName := ""
		if profile != nil {
			screenName = profile.ScreenName
		}
		stale, err = s.voters.ListByTwitterCache(ctx, providerUserID, screenName)
	case models.ProviderFacebook:
		stale, err = s.voters.ListByFacebookCache(ctx, providerUserID)
	}
	if err != nil {
		return fmt.Errorf("error listing cached voters: %w", err)
	}

	for _, v := range stale {
		if v.WeVoteID == link.VoterWeVoteID {
			continue
		}
		if err := s.voters.ClearProviderCache(ctx, provider, v.WeVoteID); err != nil {
			return fmt.Errorf("error clearing voter cache: %w", err)
		}
		s.logger.Info(ctx, "cleared stale provider cache",
			"provider", string(provider), "voter", v.WeVoteID, "owner", link.VoterWeVoteID)
	}

	if profile == nil {
		return nil
	}

	owner, err := s.voters.GetByWeVoteID(ctx, link.VoterWeVoteID)
	if err != nil {
		return fmt.Errorf("error loading link owner: %w", err)
	}
	if s.refreshVoter(owner, provider, profile) {
		if err := s.voters.Update(ctx, owner); err != nil {
			return fmt.Errorf("error refreshing owner cache: %w", err)
		}
	}
	return nil
}

// refreshVoter overwrites the owner's cached fields with the latest provider
// profile. Reports whether anything changed.
func (s *Service) refreshVoter(v *models.Voter, provider models.Provider, profile *models.ProviderProfile) bool {
	changed := false
	switch provider {
	case models.ProviderTwitter:
		if v.TwitterID != profile.UserID || v.TwitterScreenName != profile.ScreenName ||
			v.TwitterName != profile.DisplayName || v.TwitterProfileImageURL != profile.ProfileImageURL {
			v.TwitterID = profile.UserID
			v.TwitterScreenName = profile.ScreenName
			v.TwitterName = profile.DisplayName
			v.TwitterProfileImageURL = profile.ProfileImageURL
			changed = true
		}
	case models.ProviderFacebook:
		if v.FacebookID != profile.UserID || v.FacebookEmail != profile.Email ||
			v.FacebookProfileImageURL != profile.ProfileImageURL {
			v.FacebookID = profile.UserID
			v.FacebookEmail = profile.Email
			v.FacebookProfileImageURL = profile.ProfileImageURL
			changed = true
		}
	}
	return changed
}

// RepairOrganizationCache runs the same pass over organizations: only the
// organization linked to the identity's owner may cache the twitter
// identity. Applies to twitter only; organizations carry no facebook cache.
func (s *Service) RepairOrganizationCache(ctx context.Context, twitterID int64, profile *models.ProviderProfile) error {
	link, err := s.links.Find(ctx, models.ProviderTwitter, twitterID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error finding identity link: %w", err)
	}

	owner, err := s.voters.GetByWeVoteID(ctx, link.VoterWeVoteID)
	if err != nil {
		return fmt.Errorf("error loading link owner: %w", err)
	}

	cached, err := s.orgs.ListByTwitterCache(ctx, twitterID)
	if err != nil {
		return fmt.Errorf("error listing cached organizations: %w", err)
	}

	for _, org := range cached {
		if org.WeVoteID == owner.LinkedOrganizationWeVoteID {
			continue
		}
		if err := s.orgs.ClearTwitterCache(ctx, org.WeVoteID); err != nil {
			return fmt.Errorf("error clearing organization cache: %w", err)
		}
		s.logger.Info(ctx, "cleared stale organization cache",
			"organization", org.WeVoteID, "owner_organization", owner.LinkedOrganizationWeVoteID)
	}

	if profile == nil || owner.LinkedOrganizationWeVoteID == "" {
		return nil
	}

	org, err := s.orgs.GetByWeVoteID(ctx, owner.LinkedOrganizationWeVoteID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// dangling pointer; position repair handles it on next merge
			return nil
		}
		return fmt.Errorf("error loading owner organization: %w", err)
	}
	if org.TwitterID != profile.UserID || org.TwitterScreenName != profile.ScreenName {
		org.TwitterID = profile.UserID
		org.TwitterScreenName = profile.ScreenName
		if profile.ProfileImageURL != "" {
			org.ProfileImageURL = profile.ProfileImageURL
		}
		if err := s.orgs.Update(ctx, org); err != nil {
			return fmt.Errorf("error refreshing organization cache: %w", err)
		}
	}
	return nil
}
