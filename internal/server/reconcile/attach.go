package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/wevote/reconcile/internal/common"
	"github.com/wevote/reconcile/internal/server/models"
)

// AttachRequest asks for an authenticated provider identity to be attached
// to the voter a device currently acts as, without going through the full
// sign-in resolution.
type AttachRequest struct {
	DeviceID       string
	Provider       models.Provider
	ProviderUserID int64
	Profile        models.ProviderProfile
}

// AttachToCurrent binds the provider identity to the device's current voter.
// Unlike SignIn it never merges: if the identity already belongs to another
// voter the call fails with common.ErrIdentityConflict and the caller must
// run a real sign-in. Attaching an identity the voter already owns is a
// no-op.
//
// On success the voter's cached provider fields are refreshed and, for
// twitter, a provider-linked organization is created if the voter has none.
// The writes land in a single transaction when the engine is database-backed.
func (e *Engine) AttachToCurrent(ctx context.Context, req AttachRequest) (string, error) {
	current, err := e.resolveDeviceVoter(ctx, req.DeviceID)
	if err != nil {
		return "", err
	}

	ownerWeVoteID, _, err := e.deps.Identity.FindOwner(ctx, req.Provider, req.ProviderUserID)
	switch {
	case err == nil && ownerWeVoteID == current.WeVoteID:
		return current.WeVoteID, nil
	case err == nil:
		return "", common.ErrIdentityConflict
	case !errors.Is(err, common.ErrorNotFound):
		return "", fmt.Errorf("error resolving identity owner: %w", err)
	}

	err = e.inTx(ctx, func(ctx context.Context, deps Deps) error {
		if _, err := deps.Identity.CreateLink(ctx, req.Provider, req.ProviderUserID, current.WeVoteID); err != nil {
			return fmt.Errorf("error creating identity link: %w", err)
		}

		switch req.Provider {
		case models.ProviderTwitter:
			current.TwitterID = req.Profile.UserID
			current.TwitterScreenName = req.Profile.ScreenName
			current.TwitterName = req.Profile.DisplayName
			current.TwitterProfileImageURL = req.Profile.ProfileImageURL
		case models.ProviderFacebook:
			current.FacebookID = req.Profile.UserID
			current.FacebookEmail = req.Profile.Email
			current.FacebookProfileImageURL = req.Profile.ProfileImageURL
		}
		if err := deps.Voters.Update(ctx, current); err != nil {
			return fmt.Errorf("error updating voter cache: %w", err)
		}

		if req.Provider == models.ProviderTwitter && current.LinkedOrganizationWeVoteID == "" {
			org := &models.Organization{
				WeVoteID:          common.MakeWeVoteID("org"),
				Name:              common.FirstNonEmpty(req.Profile.DisplayName, current.FullName()),
				TwitterID:         req.Profile.UserID,
				TwitterScreenName: req.Profile.ScreenName,
				ProfileImageURL:   req.Profile.ProfileImageURL,
			}
			if _, err := deps.Organizations.Create(ctx, org); err != nil {
				return fmt.Errorf("error creating organization: %w", err)
			}
			current.LinkedOrganizationWeVoteID = org.WeVoteID
			if err := deps.Voters.Update(ctx, current); err != nil {
				return fmt.Errorf("error linking organization: %w", err)
			}
			e.logger.Info(ctx, "created provider-linked organization",
				"voter", current.WeVoteID, "organization", org.WeVoteID)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return current.WeVoteID, nil
}
