// Package reconcile is the sign-in reconciliation engine. Given the output
// of an external OAuth dance it resolves which voter the device should act
// as, merging accounts when the provider identity or verified email already
// belongs to someone else.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wevote/reconcile/internal/common"
	"github.com/wevote/reconcile/internal/logging"
	"github.com/wevote/reconcile/internal/server/auth"
	"github.com/wevote/reconcile/internal/server/cachingrepair"
	"github.com/wevote/reconcile/internal/server/config"
	"github.com/wevote/reconcile/internal/server/identity"
	"github.com/wevote/reconcile/internal/server/merge"
	"github.com/wevote/reconcile/internal/server/models"
	"github.com/wevote/reconcile/internal/server/repositories/devicelinks"
	"github.com/wevote/reconcile/internal/server/repositories/emails"
	"github.com/wevote/reconcile/internal/server/repositories/organizations"
	"github.com/wevote/reconcile/internal/server/repositories/voters"
)

// SignInRequest is what the OAuth collaborator hands over after a completed
// provider dance: the confirmed identity plus the profile attributes it
// returned. VerifiedEmail is set only when the provider asserts ownership.
type SignInRequest struct {
	DeviceID       string
	Provider       models.Provider
	ProviderUserID int64
	VerifiedEmail  string
	Profile        models.ProviderProfile
}

// SignInResult reports the resolved voter and what happened on the way.
type SignInResult struct {
	VoterWeVoteID        string
	ExistingAccountFound bool
	HasDataToPreserve    bool
	SessionToken         string
	MergeLog             merge.Log
}

// TxRunner executes fn against a Deps view bound to a single database
// transaction. When nil the engine runs fn against its own Deps, which is
// what unit fixtures want.
type TxRunner func(ctx context.Context, fn func(ctx context.Context, deps Deps) error) error

// Deps bundles the collaborators the engine drives.
type Deps struct {
	Identity      *identity.Service
	Merge         *merge.Workflow
	Repair        *cachingrepair.Service
	Voters        voters.Repository
	Organizations organizations.Repository
	Devices       devicelinks.Repository
	Emails        emails.Repository

	// InTx is used by operations whose writes must land atomically, such as
	// attaching an identity. The merge workflow deliberately does not run in
	// a transaction: its per-step progress must survive a later failure.
	InTx TxRunner
}

type Engine struct {
	deps          Deps
	logger        logging.Logger
	secretKey     []byte
	tokenValidity time.Duration
	precedence    Precedence
}

func NewEngine(deps Deps, cfg *config.Config, logger logging.Logger) (*Engine, error) {
	precedence, err := ParsePrecedence(cfg.MergePrecedence)
	if err != nil {
		return nil, err
	}
	return &Engine{
		deps:          deps,
		logger:        logger,
		secretKey:     []byte(cfg.SecretKey),
		tokenValidity: cfg.SessionTokenValidityDuration,
		precedence:    precedence,
	}, nil
}

// SignIn resolves a completed provider sign-in to the voter the device
// should act as from now on.
//
// Store failures during the merge are logged and the sign-in still succeeds
// with whatever progress was made; re-running the same sign-in resumes the
// merge. Only a manual-intervention halt leaves records behind on the source
// voter, and even then the device is bound to the winner.
func (e *Engine) SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error) {
	current, err := e.resolveDeviceVoter(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}

	e.recordAuthSession(ctx, req)

	result := &SignInResult{}

	winnerWeVoteID := current.WeVoteID

	link, err := e.deps.Identity.FindOwnerWithHealing(ctx, req.Provider, req.ProviderUserID)
	switch {
	case err == nil && link.VoterWeVoteID == current.WeVoteID:
		result.ExistingAccountFound = true

	case err == nil:
		// Identity belongs to another voter: the device's current voter is
		// folded into the owner.
		result.ExistingAccountFound = true
		result.HasDataToPreserve = current.HasDataToPreserve()
		winnerWeVoteID = link.VoterWeVoteID

		mergeLog, mergeErr := e.deps.Merge.Run(ctx, current.WeVoteID, winnerWeVoteID)
		result.MergeLog = append(result.MergeLog, mergeLog...)
		if mergeErr != nil && !errors.Is(mergeErr, common.ErrManualInterventionRequired) {
			e.logger.Error(ctx, "merge into identity owner failed",
				"from", current.WeVoteID, "to", winnerWeVoteID, "error", mergeErr.Error())
		}

	case errors.Is(err, common.ErrorNotFound):
		// First sign-in with this identity anywhere: the current voter
		// becomes the owner.
		if _, err := e.deps.Identity.CreateLink(ctx, req.Provider, req.ProviderUserID, current.WeVoteID); err != nil {
			return nil, fmt.Errorf("error creating identity link: %w", err)
		}

	default:
		return nil, fmt.Errorf("error resolving identity owner: %w", err)
	}

	winnerWeVoteID, emailLog := e.applyEmailPrecedence(ctx, req.VerifiedEmail, winnerWeVoteID)
	result.MergeLog = append(result.MergeLog, emailLog...)

	if err := e.deps.Devices.Bind(ctx, req.DeviceID, winnerWeVoteID); err != nil {
		return nil, fmt.Errorf("error binding device: %w", err)
	}

	if err := e.deps.Repair.RepairVoterCache(ctx, req.Provider, req.ProviderUserID, &req.Profile); err != nil {
		e.logger.Error(ctx, "voter cache repair failed", "error", err.Error())
	}
	if req.Provider == models.ProviderTwitter {
		if err := e.deps.Repair.RepairOrganizationCache(ctx, req.ProviderUserID, &req.Profile); err != nil {
			e.logger.Error(ctx, "organization cache repair failed", "error", err.Error())
		}
	}

	token, err := auth.GenerateToken(winnerWeVoteID, e.secretKey, e.tokenValidity)
	if err != nil {
		return nil, fmt.Errorf("error generating session token: %w", err)
	}

	result.VoterWeVoteID = winnerWeVoteID
	result.SessionToken = token

	e.logger.Info(ctx, "sign-in resolved",
		"device", req.DeviceID, "provider", string(req.Provider),
		"voter", winnerWeVoteID, "existing_account", result.ExistingAccountFound)
	return result, nil
}

// recordAuthSession keeps the device's pre-voter OAuth state current: the
// confirmed provider identity and the profile attributes it arrived with.
// Losing the record never fails a sign-in.
func (e *Engine) recordAuthSession(ctx context.Context, req SignInRequest) {
	session, err := e.deps.Identity.RetrieveOrCreateAuthSession(ctx, req.Provider, req.DeviceID)
	if err != nil {
		e.logger.Error(ctx, "auth session retrieve failed", "error", err.Error())
		return
	}
	session.ProviderUserID = req.ProviderUserID
	session.ScreenName = req.Profile.ScreenName
	session.DisplayName = req.Profile.DisplayName
	session.Email = common.FirstNonEmpty(req.VerifiedEmail, req.Profile.Email)
	session.ProfileImageURL = req.Profile.ProfileImageURL
	if err := e.deps.Identity.SaveAuthSession(ctx, session); err != nil {
		e.logger.Error(ctx, "auth session save failed", "error", err.Error())
	}
}

// applyEmailPrecedence chains a second merge when the verified email's owner
// differs from the provider-link winner. The configured precedence decides
// which of the two canonical voters survives.
func (e *Engine) applyEmailPrecedence(ctx context.Context, verifiedEmail, winnerWeVoteID string) (string, merge.Log) {
	if verifiedEmail == "" {
		return winnerWeVoteID, nil
	}

	entry, err := e.deps.Emails.FindVerifiedByAddress(ctx, verifiedEmail)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			e.logger.Error(ctx, "verified email lookup failed", "error", err.Error())
		}
		return winnerWeVoteID, nil
	}
	if entry.VoterWeVoteID == winnerWeVoteID {
		return winnerWeVoteID, nil
	}

	from, to := entry.VoterWeVoteID, winnerWeVoteID
	if e.precedence == PreferVerifiedEmail {
		from, to = winnerWeVoteID, entry.VoterWeVoteID
	}

	mergeLog, err := e.deps.Merge.Run(ctx, from, to)
	if err != nil && !errors.Is(err, common.ErrManualInterventionRequired) {
		e.logger.Error(ctx, "email owner merge failed",
			"from", from, "to", to, "error", err.Error())
	}
	return to, mergeLog
}

// resolveDeviceVoter returns the voter the device currently acts as,
// creating an anonymous voter when the device is unbound or its binding
// points at a voter that no longer resolves.
func (e *Engine) resolveDeviceVoter(ctx context.Context, deviceID string) (*models.Voter, error) {
	link, err := e.deps.Devices.Get(ctx, deviceID)
	if err == nil {
		voter, err := e.deps.Voters.GetByWeVoteID(ctx, link.VoterWeVoteID)
		if err == nil {
			return voter, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error loading device voter: %w", err)
		}
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error loading device link: %w", err)
	}

	voter, err := e.createAnonymousVoter(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.deps.Devices.Bind(ctx, deviceID, voter.WeVoteID); err != nil {
		return nil, fmt.Errorf("error binding device: %w", err)
	}
	e.logger.Info(ctx, "created anonymous voter for device",
		"device", deviceID, "voter", voter.WeVoteID)
	return voter, nil
}

func (e *Engine) inTx(ctx context.Context, fn func(ctx context.Context, deps Deps) error) error {
	if e.deps.InTx == nil {
		return fn(ctx, e.deps)
	}
	return e.deps.InTx(ctx, fn)
}

func (e *Engine) createAnonymousVoter(ctx context.Context) (*models.Voter, error) {
	voter := &models.Voter{WeVoteID: common.MakeWeVoteID("voter")}
	voter, err := e.deps.Voters.Create(ctx, voter)
	if err != nil {
		return nil, fmt.Errorf("error creating voter: %w", err)
	}
	return voter, nil
}
