package merge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/wevote/reconcile/internal/common"
	"github.com/wevote/reconcile/internal/logging"
	"github.com/wevote/reconcile/internal/server/models"
)

func newTestLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

// fakeStore is an in-memory stand-in for the whole database, shared by the
// per-domain fakes below so cross-domain effects stay visible.
type fakeStore struct {
	voters      map[string]*models.Voter
	orgs        map[string]*models.Organization
	links       []*models.IdentityLink
	positions   []*models.Position
	follows     []*models.FollowEntry
	friendLinks []*models.FriendLink
	invitations []*models.FriendInvitation
	emails      []*models.EmailEntry
	donations   []*models.Donation
	guides      []*models.VoterGuide
	analytics   []*models.AnalyticsEvent
	bookmarks   []*models.Bookmark
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		voters: make(map[string]*models.Voter),
		orgs:   make(map[string]*models.Organization),
	}
}

func (s *fakeStore) repos() Repos {
	return Repos{
		Voters:        &fakeVoters{s},
		IdentityLinks: &fakeIdentityLinks{s},
		Organizations: &fakeOrgs{s},
		Positions:     &fakePositions{s},
		Follows:       &fakeFollows{s},
		Friends:       &fakeFriends{s},
		Emails:        &fakeEmails{s},
		Donations:     &fakeDonations{s},
		VoterGuides:   &fakeVoterGuides{s},
		Analytics:     &fakeAnalytics{s},
		Bookmarks:     &fakeBookmarks{s},
	}
}

type fakeVoters struct{ s *fakeStore }

// checkLinkedOrganizationUnique mirrors the voters_linked_organization_uq
// partial unique index: at most one voter may point at an organization.
func (f *fakeVoters) checkLinkedOrganizationUnique(v *models.Voter) error {
	if v.LinkedOrganizationWeVoteID == "" {
		return nil
	}
	for id, other := range f.s.voters {
		if id != v.WeVoteID && other.LinkedOrganizationWeVoteID == v.LinkedOrganizationWeVoteID {
			return fmt.Errorf("db error: duplicate key value violates unique constraint %q", "voters_linked_organization_uq")
		}
	}
	return nil
}

func (f *fakeVoters) Create(_ context.Context, v *models.Voter) (*models.Voter, error) {
	if err := f.checkLinkedOrganizationUnique(v); err != nil {
		return nil, err
	}
	v.ID = int64(len(f.s.voters) + 1)
	f.s.voters[v.WeVoteID] = v
	return v, nil
}

func (f *fakeVoters) GetByWeVoteID(_ context.Context, weVoteID string) (*models.Voter, error) {
	v, ok := f.s.voters[weVoteID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVoters) Update(_ context.Context, v *models.Voter) error {
	if err := f.checkLinkedOrganizationUnique(v); err != nil {
		return err
	}
	copied := *v
	f.s.voters[v.WeVoteID] = &copied
	return nil
}

func (f *fakeVoters) FindByCachedProviderID(_ context.Context, provider models.Provider, providerUserID int64) (*models.Voter, error) {
	for _, v := range f.s.voters {
		if provider == models.ProviderTwitter && v.TwitterID == providerUserID {
			copied := *v
			return &copied, nil
		}
		if provider == models.ProviderFacebook && v.FacebookID == providerUserID {
			copied := *v
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeVoters) ListByTwitterCache(_ context.Context, twitterID int64, screenName string) ([]*models.Voter, error) {
	var out []*models.Voter
	for _, v := range f.s.voters {
		if v.TwitterID == twitterID ||
			(v.TwitterScreenName != "" && strings.EqualFold(v.TwitterScreenName, screenName)) {
			copied := *v
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeVoters) ListByFacebookCache(_ context.Context, facebookID int64) ([]*models.Voter, error) {
	var out []*models.Voter
	for _, v := range f.s.voters {
		if v.FacebookID == facebookID {
			copied := *v
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeVoters) ClearProviderCache(_ context.Context, provider models.Provider, weVoteID string) error {
	v, ok := f.s.voters[weVoteID]
	if !ok {
		return nil
	}
	if provider == models.ProviderTwitter {
		v.TwitterID, v.TwitterName, v.TwitterScreenName, v.TwitterProfileImageURL = 0, "", "", ""
	} else {
		v.FacebookID, v.FacebookEmail, v.FacebookProfileImageURL = 0, "", ""
	}
	return nil
}

func (f *fakeVoters) ClearEmailCache(_ context.Context, weVoteID string) error {
	if v, ok := f.s.voters[weVoteID]; ok {
		v.Email, v.PrimaryEmailWeVoteID, v.EmailOwnershipVerified = "", "", false
	}
	return nil
}

func (f *fakeVoters) ClearLinkedOrganization(_ context.Context, weVoteID string) error {
	if v, ok := f.s.voters[weVoteID]; ok {
		v.LinkedOrganizationWeVoteID = ""
	}
	return nil
}

type fakeIdentityLinks struct{ s *fakeStore }

func (f *fakeIdentityLinks) Find(_ context.Context, provider models.Provider, providerUserID int64) (*models.IdentityLink, error) {
	for _, l := range f.s.links {
		if l.Provider == provider && l.ProviderUserID == providerUserID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeIdentityLinks) FindByVoter(_ context.Context, provider models.Provider, voterWeVoteID string) (*models.IdentityLink, error) {
	for _, l := range f.s.links {
		if l.Provider == provider && l.VoterWeVoteID == voterWeVoteID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeIdentityLinks) Create(_ context.Context, link *models.IdentityLink) (*models.IdentityLink, error) {
	link.ID = int64(len(f.s.links) + 1)
	f.s.links = append(f.s.links, link)
	return link, nil
}

func (f *fakeIdentityLinks) MoveToVoter(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	for _, l := range f.s.links {
		if l.VoterWeVoteID == from {
			l.VoterWeVoteID = to
			result.Moved++
		}
	}
	return result, nil
}

type fakeOrgs struct{ s *fakeStore }

func (f *fakeOrgs) Create(_ context.Context, org *models.Organization) (*models.Organization, error) {
	org.ID = int64(len(f.s.orgs) + 1)
	f.s.orgs[org.WeVoteID] = org
	return org, nil
}

func (f *fakeOrgs) GetByWeVoteID(_ context.Context, weVoteID string) (*models.Organization, error) {
	org, ok := f.s.orgs[weVoteID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *org
	return &copied, nil
}

func (f *fakeOrgs) Update(_ context.Context, org *models.Organization) error {
	copied := *org
	f.s.orgs[org.WeVoteID] = &copied
	return nil
}

func (f *fakeOrgs) ListByTwitterCache(_ context.Context, twitterID int64) ([]*models.Organization, error) {
	var out []*models.Organization
	for _, org := range f.s.orgs {
		if org.TwitterID == twitterID {
			copied := *org
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeOrgs) ClearTwitterCache(_ context.Context, weVoteID string) error {
	if org, ok := f.s.orgs[weVoteID]; ok {
		org.TwitterID, org.TwitterScreenName = 0, ""
	}
	return nil
}

type fakePositions struct{ s *fakeStore }

func (f *fakePositions) CountForVoter(_ context.Context, voterWeVoteID string) (int64, error) {
	var n int64
	for _, p := range f.s.positions {
		if p.VoterWeVoteID == voterWeVoteID {
			n++
		}
	}
	return n, nil
}

func (f *fakePositions) ListByVoter(_ context.Context, voterWeVoteID string) ([]*models.Position, error) {
	var out []*models.Position
	for _, p := range f.s.positions {
		if p.VoterWeVoteID == voterWeVoteID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePositions) MoveToVoter(_ context.Context, from, to models.OwnerRef) (models.MoveResult, error) {
	var result models.MoveResult
	if from.VoterWeVoteID == to.VoterWeVoteID {
		return result, nil
	}
	taken := make(map[[2]any]bool)
	for _, p := range f.s.positions {
		if p.VoterWeVoteID == to.VoterWeVoteID {
			taken[[2]any{p.SubjectWeVoteID, p.ElectionID}] = true
		}
	}
	var kept []*models.Position
	for _, p := range f.s.positions {
		if p.VoterWeVoteID != from.VoterWeVoteID {
			kept = append(kept, p)
			continue
		}
		if taken[[2]any{p.SubjectWeVoteID, p.ElectionID}] {
			result.Skipped++
			continue
		}
		p.VoterWeVoteID = to.VoterWeVoteID
		p.OrganizationWeVoteID = to.OrganizationWeVoteID
		result.Moved++
		kept = append(kept, p)
	}
	f.s.positions = kept
	return result, nil
}

func (f *fakePositions) MoveToOrganization(_ context.Context, fromOrg, toOrg, toVoter string) (models.MoveResult, error) {
	var result models.MoveResult
	if fromOrg == toOrg {
		return result, nil
	}
	taken := make(map[[2]any]bool)
	for _, p := range f.s.positions {
		if p.OrganizationWeVoteID == toOrg {
			taken[[2]any{p.SubjectWeVoteID, p.ElectionID}] = true
		}
	}
	var kept []*models.Position
	for _, p := range f.s.positions {
		if p.OrganizationWeVoteID != fromOrg {
			kept = append(kept, p)
			continue
		}
		if taken[[2]any{p.SubjectWeVoteID, p.ElectionID}] {
			result.Skipped++
			continue
		}
		p.OrganizationWeVoteID = toOrg
		p.VoterWeVoteID = toVoter
		result.Moved++
		kept = append(kept, p)
	}
	f.s.positions = kept
	return result, nil
}

func (f *fakePositions) RepairForVoter(_ context.Context, voterWeVoteID, linkedOrg string) (int64, error) {
	var n int64
	for _, p := range f.s.positions {
		if p.VoterWeVoteID != voterWeVoteID || p.OrganizationWeVoteID == linkedOrg {
			continue
		}
		if _, exists := f.s.orgs[p.OrganizationWeVoteID]; p.OrganizationWeVoteID == "" || !exists {
			p.OrganizationWeVoteID = linkedOrg
			n++
		}
	}
	return n, nil
}

type fakeFollows struct{ s *fakeStore }

func (f *fakeFollows) CountForVoter(_ context.Context, voterWeVoteID string) (int64, error) {
	var n int64
	for _, e := range f.s.follows {
		if e.VoterWeVoteID == voterWeVoteID {
			n++
		}
	}
	return n, nil
}

func (f *fakeFollows) MoveToVoter(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	taken := make(map[string]bool)
	for _, e := range f.s.follows {
		if e.VoterWeVoteID == to {
			taken[e.FollowedWeVoteID] = true
		}
	}
	var kept []*models.FollowEntry
	for _, e := range f.s.follows {
		if e.VoterWeVoteID != from {
			kept = append(kept, e)
			continue
		}
		if taken[e.FollowedWeVoteID] {
			result.Skipped++
			continue
		}
		e.VoterWeVoteID = to
		result.Moved++
		kept = append(kept, e)
	}
	f.s.follows = kept
	return result, nil
}

func (f *fakeFollows) RetargetFollowed(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	taken := make(map[string]bool)
	for _, e := range f.s.follows {
		if e.FollowedWeVoteID == to {
			taken[e.VoterWeVoteID] = true
		}
	}
	var kept []*models.FollowEntry
	for _, e := range f.s.follows {
		if e.FollowedWeVoteID != from {
			kept = append(kept, e)
			continue
		}
		if taken[e.VoterWeVoteID] {
			result.Skipped++
			continue
		}
		e.FollowedWeVoteID = to
		result.Moved++
		kept = append(kept, e)
	}
	f.s.follows = kept
	return result, nil
}

type fakeFriends struct{ s *fakeStore }

func (f *fakeFriends) MoveLinksToVoter(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	other := func(l *models.FriendLink, voter string) (string, bool) {
		if l.ViewerVoterWeVoteID == voter {
			return l.FriendVoterWeVoteID, true
		}
		if l.FriendVoterWeVoteID == voter {
			return l.ViewerVoterWeVoteID, true
		}
		return "", false
	}
	taken := make(map[string]bool)
	for _, l := range f.s.friendLinks {
		if o, ok := other(l, to); ok {
			taken[o] = true
		}
	}
	var kept []*models.FriendLink
	for _, l := range f.s.friendLinks {
		o, ok := other(l, from)
		if !ok {
			kept = append(kept, l)
			continue
		}
		// a mutual from<->to link collapses into nothing
		if o == to || taken[o] {
			result.Skipped++
			continue
		}
		if l.ViewerVoterWeVoteID == from {
			l.ViewerVoterWeVoteID = to
		} else {
			l.FriendVoterWeVoteID = to
		}
		result.Moved++
		kept = append(kept, l)
	}
	f.s.friendLinks = kept
	return result, nil
}

func (f *fakeFriends) MoveInvitationsToVoter(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	for _, inv := range f.s.invitations {
		if inv.SenderVoterWeVoteID == from {
			inv.SenderVoterWeVoteID = to
			result.Moved++
		}
		if inv.RecipientVoterWeVoteID == from {
			inv.RecipientVoterWeVoteID = to
			result.Moved++
		}
	}
	return result, nil
}

type fakeEmails struct{ s *fakeStore }

func (f *fakeEmails) Create(_ context.Context, e *models.EmailEntry) (*models.EmailEntry, error) {
	// email_entries_verified_address_uq: one verified row per address
	if e.OwnershipVerified {
		for _, other := range f.s.emails {
			if other.OwnershipVerified && strings.EqualFold(other.Address, e.Address) {
				return nil, fmt.Errorf("db error: duplicate key value violates unique constraint %q", "email_entries_verified_address_uq")
			}
		}
	}
	e.ID = int64(len(f.s.emails) + 1)
	f.s.emails = append(f.s.emails, e)
	return e, nil
}

func (f *fakeEmails) FindVerifiedByAddress(_ context.Context, address string) (*models.EmailEntry, error) {
	for _, e := range f.s.emails {
		if e.OwnershipVerified && strings.EqualFold(e.Address, address) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeEmails) MoveToVoter(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	taken := make(map[string]bool)
	for _, e := range f.s.emails {
		if e.VoterWeVoteID == to {
			taken[strings.ToLower(e.Address)] = true
		}
	}
	var kept []*models.EmailEntry
	for _, e := range f.s.emails {
		if e.VoterWeVoteID != from {
			kept = append(kept, e)
			continue
		}
		if taken[strings.ToLower(e.Address)] {
			result.Skipped++
			continue
		}
		e.VoterWeVoteID = to
		result.Moved++
		kept = append(kept, e)
	}
	f.s.emails = kept
	return result, nil
}

type fakeDonations struct{ s *fakeStore }

func (f *fakeDonations) MoveToVoter(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	for _, d := range f.s.donations {
		if d.VoterWeVoteID == from {
			d.VoterWeVoteID = to
			result.Moved++
		}
	}
	return result, nil
}

type fakeVoterGuides struct{ s *fakeStore }

func (f *fakeVoterGuides) MoveToVoter(_ context.Context, from, to models.OwnerRef) (models.MoveResult, error) {
	var result models.MoveResult
	if from.VoterWeVoteID == to.VoterWeVoteID {
		return result, nil
	}
	taken := make(map[int64]bool)
	for _, g := range f.s.guides {
		if g.OwnerVoterWeVoteID == to.VoterWeVoteID {
			taken[g.ElectionID] = true
		}
	}
	var kept []*models.VoterGuide
	for _, g := range f.s.guides {
		if g.OwnerVoterWeVoteID != from.VoterWeVoteID {
			kept = append(kept, g)
			continue
		}
		if taken[g.ElectionID] {
			result.Skipped++
			continue
		}
		g.OwnerVoterWeVoteID = to.VoterWeVoteID
		g.OrganizationWeVoteID = to.OrganizationWeVoteID
		result.Moved++
		kept = append(kept, g)
	}
	f.s.guides = kept
	return result, nil
}

type fakeAnalytics struct{ s *fakeStore }

func (f *fakeAnalytics) MoveToVoter(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	for _, e := range f.s.analytics {
		if e.VoterWeVoteID == from {
			e.VoterWeVoteID = to
			result.Moved++
		}
	}
	return result, nil
}

type fakeBookmarks struct{ s *fakeStore }

func (f *fakeBookmarks) CountForObject(_ context.Context, objectWeVoteID string) (int64, error) {
	var n int64
	for _, b := range f.s.bookmarks {
		if b.ObjectWeVoteID == objectWeVoteID {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookmarks) MoveToVoter(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	taken := make(map[string]bool)
	for _, b := range f.s.bookmarks {
		if b.VoterWeVoteID == to {
			taken[b.ObjectWeVoteID] = true
		}
	}
	var kept []*models.Bookmark
	for _, b := range f.s.bookmarks {
		if b.VoterWeVoteID != from {
			kept = append(kept, b)
			continue
		}
		if taken[b.ObjectWeVoteID] {
			result.Skipped++
			continue
		}
		b.VoterWeVoteID = to
		result.Moved++
		kept = append(kept, b)
	}
	f.s.bookmarks = kept
	return result, nil
}
