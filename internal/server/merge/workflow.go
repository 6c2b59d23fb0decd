package merge

import (
	"context"
	"fmt"

	"github.com/wevote/reconcile/internal/common"
	"github.com/wevote/reconcile/internal/logging"
	"github.com/wevote/reconcile/internal/server/models"
	"github.com/wevote/reconcile/internal/server/repositories/analytics"
	"github.com/wevote/reconcile/internal/server/repositories/bookmarks"
	"github.com/wevote/reconcile/internal/server/repositories/donations"
	"github.com/wevote/reconcile/internal/server/repositories/emails"
	"github.com/wevote/reconcile/internal/server/repositories/follows"
	"github.com/wevote/reconcile/internal/server/repositories/friends"
	"github.com/wevote/reconcile/internal/server/repositories/identitylinks"
	"github.com/wevote/reconcile/internal/server/repositories/organizations"
	"github.com/wevote/reconcile/internal/server/repositories/positions"
	"github.com/wevote/reconcile/internal/server/repositories/voterguides"
	"github.com/wevote/reconcile/internal/server/repositories/voters"
)

// Repos bundles every store the merge workflow writes to.
type Repos struct {
	Voters        voters.Repository
	IdentityLinks identitylinks.Repository
	Organizations organizations.Repository
	Positions     positions.Repository
	Follows       follows.Repository
	Friends       friends.Repository
	Emails        emails.Repository
	Donations     donations.Repository
	VoterGuides   voterguides.Repository
	Analytics     analytics.Repository
	Bookmarks     bookmarks.Repository
}

// Workflow runs account merges. A single Workflow is shared by all sign-ins;
// its lock table serializes concurrent merges into the same destination.
type Workflow struct {
	repos  Repos
	logger logging.Logger
	locks  *lockTable
}

func NewWorkflow(repos Repos, logger logging.Logger) *Workflow {
	return &Workflow{
		repos:  repos,
		logger: logger,
		locks:  newLockTable(),
	}
}

// Context is the shared state of one merge run: the resolved source and
// destination voters. Steps mutate To in memory and persist it explicitly.
type Context struct {
	From *models.Voter
	To   *models.Voter

	log Log
}

type step struct {
	name string
	fn   func(context.Context, *Context) StepResult
}

// Run merges every dependent record and scalar field of the from voter into
// the to voter. The step order is fixed. A failed step is recorded as
// WriteFailure and the run continues; a ManualIntervention outcome halts the
// run and returns common.ErrManualInterventionRequired. Running twice after
// a partial failure does not duplicate records.
//
// The from voter is left behind as an emptied husk, never deleted: its
// permanent id may still be referenced externally.
func (w *Workflow) Run(ctx context.Context, fromWeVoteID, toWeVoteID string) (Log, error) {
	if fromWeVoteID == toWeVoteID {
		return Log{{Step: "resolve_voters", Outcome: OutcomeSkipped, Detail: "source and destination are the same voter"}}, nil
	}

	release := w.locks.acquire(toWeVoteID)
	defer release()

	from, err := w.repos.Voters.GetByWeVoteID(ctx, fromWeVoteID)
	if err != nil {
		return nil, fmt.Errorf("error loading source voter: %w", err)
	}
	to, err := w.repos.Voters.GetByWeVoteID(ctx, toWeVoteID)
	if err != nil {
		return nil, fmt.Errorf("error loading destination voter: %w", err)
	}

	m := &Context{From: from, To: to}

	steps := []step{
		{"repair_positions", w.repairPositions},
		{"move_follows", w.moveFollows},
		{"resolve_organizations", w.resolveOrganizations},
		{"move_positions", w.movePositions},
		{"move_friend_links", w.moveFriendLinks},
		{"move_friend_invitations", w.moveFriendInvitations},
		{"move_emails", w.moveEmails},
		{"clear_source_organization", w.clearSourceOrganization},
		{"copy_provider_cache", w.copyProviderCache},
		{"move_identity_links", w.moveIdentityLinks},
		{"move_donations", w.moveDonations},
		{"move_voter_guides", w.moveVoterGuides},
		{"move_analytics", w.moveAnalytics},
		{"union_scalars", w.unionScalars},
		{"repair_positions_final", w.repairPositionsFinal},
	}

	for _, s := range steps {
		r := s.fn(ctx, m)
		r.Step = s.name
		m.log = append(m.log, r)

		switch r.Outcome {
		case OutcomeWriteFailure:
			w.logger.Error(ctx, "merge step failed",
				"step", s.name, "from", fromWeVoteID, "to", toWeVoteID, "detail", r.Detail)
		case OutcomeManualIntervention:
			w.logger.Warn(ctx, "merge halted, manual intervention required",
				"step", s.name, "from", fromWeVoteID, "to", toWeVoteID, "detail", r.Detail)
			return m.log, common.ErrManualInterventionRequired
		}
	}

	w.logger.Info(ctx, "merge complete",
		"from", fromWeVoteID, "to", toWeVoteID, "result", m.log.String())
	return m.log, nil
}

func moveOutcome(res models.MoveResult) Outcome {
	if res.Moved == 0 && res.Skipped == 0 {
		return OutcomeSkipped
	}
	return OutcomeOK
}

func writeFailure(err error) StepResult {
	return StepResult{Outcome: OutcomeWriteFailure, Detail: err.Error()}
}

func (w *Workflow) repairPositions(ctx context.Context, m *Context) StepResult {
	var repaired int64
	for _, v := range []*models.Voter{m.From, m.To} {
		if v.LinkedOrganizationWeVoteID == "" {
			continue
		}
		n, err := w.repos.Positions.RepairForVoter(ctx, v.WeVoteID, v.LinkedOrganizationWeVoteID)
		if err != nil {
			return writeFailure(err)
		}
		repaired += n
	}
	if repaired == 0 {
		return StepResult{Outcome: OutcomeSkipped}
	}
	return StepResult{Outcome: OutcomeOK, Moved: repaired}
}

func (w *Workflow) moveFollows(ctx context.Context, m *Context) StepResult {
	res, err := w.repos.Follows.MoveToVoter(ctx, m.From.WeVoteID, m.To.WeVoteID)
	if err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: moveOutcome(res), Moved: res.Moved, Skipped: res.Skipped}
}

// resolveOrganizations decides what happens to the two linked organizations:
// both present and different triggers a full organization merge; a source-only
// organization is adopted by the destination; a destination that holds
// positions but no organization gets one created.
func (w *Workflow) resolveOrganizations(ctx context.Context, m *Context) StepResult {
	fromOrg := m.From.LinkedOrganizationWeVoteID
	toOrg := m.To.LinkedOrganizationWeVoteID

	switch {
	case fromOrg != "" && toOrg != "" && fromOrg != toOrg:
		return w.mergeOrganizations(ctx, m, fromOrg, toOrg)

	case fromOrg != "" && toOrg == "":
		// only one voter may hold an organization pointer (partial unique
		// index on linked_organization_we_vote_id), so the source must
		// release it before the destination adopts it
		if err := w.repos.Voters.ClearLinkedOrganization(ctx, m.From.WeVoteID); err != nil {
			return writeFailure(err)
		}
		m.From.LinkedOrganizationWeVoteID = ""
		m.To.LinkedOrganizationWeVoteID = fromOrg
		if err := w.repos.Voters.Update(ctx, m.To); err != nil {
			m.To.LinkedOrganizationWeVoteID = ""
			return writeFailure(err)
		}
		return StepResult{Outcome: OutcomeOK, Detail: "destination adopted source organization " + fromOrg}

	case toOrg == "":
		n, err := w.repos.Positions.CountForVoter(ctx, m.To.WeVoteID)
		if err != nil {
			return writeFailure(err)
		}
		if n == 0 {
			return StepResult{Outcome: OutcomeSkipped}
		}
		org := &models.Organization{
			WeVoteID:          common.MakeWeVoteID("org"),
			Name:              m.To.FullName(),
			TwitterID:         m.To.TwitterID,
			TwitterScreenName: m.To.TwitterScreenName,
			ProfileImageURL:   m.To.PhotoURL(),
		}
		if _, err := w.repos.Organizations.Create(ctx, org); err != nil {
			return writeFailure(err)
		}
		m.To.LinkedOrganizationWeVoteID = org.WeVoteID
		if err := w.repos.Voters.Update(ctx, m.To); err != nil {
			return writeFailure(err)
		}
		return StepResult{Outcome: OutcomeOK, Detail: "created organization " + org.WeVoteID + " for destination"}

	default:
		return StepResult{Outcome: OutcomeSkipped}
	}
}

func (w *Workflow) movePositions(ctx context.Context, m *Context) StepResult {
	res, err := w.repos.Positions.MoveToVoter(ctx,
		models.OwnerRef{VoterWeVoteID: m.From.WeVoteID, OrganizationWeVoteID: m.From.LinkedOrganizationWeVoteID},
		models.OwnerRef{VoterWeVoteID: m.To.WeVoteID, OrganizationWeVoteID: m.To.LinkedOrganizationWeVoteID})
	if err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: moveOutcome(res), Moved: res.Moved, Skipped: res.Skipped}
}

func (w *Workflow) moveFriendLinks(ctx context.Context, m *Context) StepResult {
	res, err := w.repos.Friends.MoveLinksToVoter(ctx, m.From.WeVoteID, m.To.WeVoteID)
	if err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: moveOutcome(res), Moved: res.Moved, Skipped: res.Skipped}
}

func (w *Workflow) moveFriendInvitations(ctx context.Context, m *Context) StepResult {
	res, err := w.repos.Friends.MoveInvitationsToVoter(ctx, m.From.WeVoteID, m.To.WeVoteID)
	if err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: moveOutcome(res), Moved: res.Moved, Skipped: res.Skipped}
}

// moveEmails transfers the master email records, then clears the source
// voter's cached copies so the unique verified-address constraint cannot
// trip on a later run.
func (w *Workflow) moveEmails(ctx context.Context, m *Context) StepResult {
	res, err := w.repos.Emails.MoveToVoter(ctx, m.From.WeVoteID, m.To.WeVoteID)
	if err != nil {
		return writeFailure(err)
	}
	if err := w.repos.Voters.ClearEmailCache(ctx, m.From.WeVoteID); err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: moveOutcome(res), Moved: res.Moved, Skipped: res.Skipped}
}

func (w *Workflow) clearSourceOrganization(ctx context.Context, m *Context) StepResult {
	if m.From.LinkedOrganizationWeVoteID == "" {
		return StepResult{Outcome: OutcomeSkipped}
	}
	if err := w.repos.Voters.ClearLinkedOrganization(ctx, m.From.WeVoteID); err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: OutcomeOK}
}

// copyProviderCache transfers the cached provider profile fields. The
// destination wins every non-empty conflict; afterwards the source caches
// are cleared so only the authoritative owner's copy survives.
func (w *Workflow) copyProviderCache(ctx context.Context, m *Context) StepResult {
	from, to := m.From, m.To

	if to.TwitterID == 0 {
		to.TwitterID = from.TwitterID
	}
	to.TwitterName = common.FirstNonEmpty(to.TwitterName, from.TwitterName)
	to.TwitterScreenName = common.FirstNonEmpty(to.TwitterScreenName, from.TwitterScreenName)
	to.TwitterProfileImageURL = common.FirstNonEmpty(to.TwitterProfileImageURL, from.TwitterProfileImageURL)

	if to.FacebookID == 0 {
		to.FacebookID = from.FacebookID
	}
	to.FacebookEmail = common.FirstNonEmpty(to.FacebookEmail, from.FacebookEmail)
	to.FacebookProfileImageURL = common.FirstNonEmpty(to.FacebookProfileImageURL, from.FacebookProfileImageURL)

	to.ProfileImageURLLarge = common.FirstNonEmpty(to.ProfileImageURLLarge, from.ProfileImageURLLarge)
	to.ProfileImageURLMedium = common.FirstNonEmpty(to.ProfileImageURLMedium, from.ProfileImageURLMedium)
	to.ProfileImageURLTiny = common.FirstNonEmpty(to.ProfileImageURLTiny, from.ProfileImageURLTiny)

	if err := w.repos.Voters.Update(ctx, to); err != nil {
		return writeFailure(err)
	}

	for _, p := range []models.Provider{models.ProviderTwitter, models.ProviderFacebook} {
		if err := w.repos.Voters.ClearProviderCache(ctx, p, from.WeVoteID); err != nil {
			return writeFailure(err)
		}
	}
	return StepResult{Outcome: OutcomeOK}
}

// moveIdentityLinks repoints the authoritative provider-identity links at
// the winner. Without this a later sign-in with the same identity would
// resolve to the husk and re-run the merge.
func (w *Workflow) moveIdentityLinks(ctx context.Context, m *Context) StepResult {
	res, err := w.repos.IdentityLinks.MoveToVoter(ctx, m.From.WeVoteID, m.To.WeVoteID)
	if err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: moveOutcome(res), Moved: res.Moved, Skipped: res.Skipped}
}

func (w *Workflow) moveDonations(ctx context.Context, m *Context) StepResult {
	res, err := w.repos.Donations.MoveToVoter(ctx, m.From.WeVoteID, m.To.WeVoteID)
	if err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: moveOutcome(res), Moved: res.Moved, Skipped: res.Skipped}
}

func (w *Workflow) moveVoterGuides(ctx context.Context, m *Context) StepResult {
	res, err := w.repos.VoterGuides.MoveToVoter(ctx,
		models.OwnerRef{VoterWeVoteID: m.From.WeVoteID, OrganizationWeVoteID: m.From.LinkedOrganizationWeVoteID},
		models.OwnerRef{VoterWeVoteID: m.To.WeVoteID, OrganizationWeVoteID: m.To.LinkedOrganizationWeVoteID})
	if err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: moveOutcome(res), Moved: res.Moved, Skipped: res.Skipped}
}

func (w *Workflow) moveAnalytics(ctx context.Context, m *Context) StepResult {
	res, err := w.repos.Analytics.MoveToVoter(ctx, m.From.WeVoteID, m.To.WeVoteID)
	if err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: moveOutcome(res), Moved: res.Moved, Skipped: res.Skipped}
}

// unionScalars folds the remaining scalar fields of the source into the
// destination. The union is non-destructive: flag bits only turn on, and a
// non-empty destination field is never overwritten.
func (w *Workflow) unionScalars(ctx context.Context, m *Context) StepResult {
	from, to := m.From, m.To

	to.FirstName = common.FirstNonEmpty(to.FirstName, from.FirstName)
	to.MiddleName = common.FirstNonEmpty(to.MiddleName, from.MiddleName)
	to.LastName = common.FirstNonEmpty(to.LastName, from.LastName)

	to.Email = common.FirstNonEmpty(to.Email, from.Email)
	to.PrimaryEmailWeVoteID = common.FirstNonEmpty(to.PrimaryEmailWeVoteID, from.PrimaryEmailWeVoteID)
	if from.EmailOwnershipVerified {
		to.EmailOwnershipVerified = true
	}

	to.SetNotificationSettingsFlags(from.NotificationSettingsFlags)
	to.SetInterfaceStatusFlags(from.InterfaceStatusFlags)

	if err := w.repos.Voters.Update(ctx, to); err != nil {
		return writeFailure(err)
	}
	return StepResult{Outcome: OutcomeOK}
}

func (w *Workflow) repairPositionsFinal(ctx context.Context, m *Context) StepResult {
	if m.To.LinkedOrganizationWeVoteID == "" {
		return StepResult{Outcome: OutcomeSkipped}
	}
	n, err := w.repos.Positions.RepairForVoter(ctx, m.To.WeVoteID, m.To.LinkedOrganizationWeVoteID)
	if err != nil {
		return writeFailure(err)
	}
	if n == 0 {
		return StepResult{Outcome: OutcomeSkipped}
	}
	return StepResult{Outcome: OutcomeOK, Moved: n}
}
