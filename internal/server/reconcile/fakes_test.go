package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/wevote/reconcile/internal/common"
	"github.com/wevote/reconcile/internal/logging"
	"github.com/wevote/reconcile/internal/server/cachingrepair"
	"github.com/wevote/reconcile/internal/server/config"
	"github.com/wevote/reconcile/internal/server/identity"
	"github.com/wevote/reconcile/internal/server/merge"
	"github.com/wevote/reconcile/internal/server/models"
)

func newTestLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func testConfig(precedence string) *config.Config {
	return &config.Config{
		SecretKey:                    "test-secret",
		SessionTokenValidityDuration: time.Minute,
		MergePrecedence:              precedence,
	}
}

// fakeStore backs every repository fake below so the engine's cross-store
// effects stay observable from one place.
type fakeStore struct {
	voters    map[string]*models.Voter
	orgs      map[string]*models.Organization
	links     map[linkKey]*models.IdentityLink
	sessions  map[sessionKey]*models.AuthSession
	devices   map[string]string
	positions []*models.Position
	follows   []*models.FollowEntry
	emails    []*models.EmailEntry
	nextID    int64
}

type linkKey struct {
	provider models.Provider
	userID   int64
}

type sessionKey struct {
	provider models.Provider
	deviceID string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		voters:   make(map[string]*models.Voter),
		orgs:     make(map[string]*models.Organization),
		links:    make(map[linkKey]*models.IdentityLink),
		sessions: make(map[sessionKey]*models.AuthSession),
		devices:  make(map[string]string),
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

// newEngine wires a real identity service, merge workflow, and caching
// repair over the fakes, the same way the app does over PostgreSQL.
func newEngine(s *fakeStore, precedence string) *Engine {
	logger := newTestLogger()
	voterRepo := &fakeVoters{s}
	orgRepo := &fakeOrgs{s}
	linkRepo := &fakeLinks{s}

	identitySvc := identity.NewService(linkRepo, &fakeSessions{s}, voterRepo)
	workflow := merge.NewWorkflow(merge.Repos{
		Voters:        voterRepo,
		IdentityLinks: linkRepo,
		Organizations: orgRepo,
		Positions:     &fakePositions{s},
		Follows:       &fakeFollows{s},
		Friends:       &fakeFriends{},
		Emails:        &fakeEmails{s},
		Donations:     &fakeDonations{},
		VoterGuides:   &fakeVoterGuides{},
		Analytics:     &fakeAnalytics{},
		Bookmarks:     &fakeBookmarks{},
	}, logger)
	repair := cachingrepair.NewService(linkRepo, voterRepo, orgRepo, logger)

	engine, err := NewEngine(Deps{
		Identity:      identitySvc,
		Merge:         workflow,
		Repair:        repair,
		Voters:        voterRepo,
		Organizations: orgRepo,
		Devices:       &fakeDevices{s},
		Emails:        &fakeEmails{s},
	}, testConfig(precedence), logger)
	if err != nil {
		panic(err)
	}
	return engine
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
	v.ID = f.s.id()
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

type fakeOrgs struct{ s *fakeStore }

func (f *fakeOrgs) Create(_ context.Context, org *models.Organization) (*models.Organization, error) {
	org.ID = f.s.id()
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

type fakeLinks struct{ s *fakeStore }

func (f *fakeLinks) Find(_ context.Context, provider models.Provider, providerUserID int64) (*models.IdentityLink, error) {
	link, ok := f.s.links[linkKey{provider, providerUserID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *link
	return &copied, nil
}

func (f *fakeLinks) FindByVoter(_ context.Context, provider models.Provider, voterWeVoteID string) (*models.IdentityLink, error) {
	for _, link := range f.s.links {
		if link.Provider == provider && link.VoterWeVoteID == voterWeVoteID {
			copied := *link
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeLinks) Create(_ context.Context, link *models.IdentityLink) (*models.IdentityLink, error) {
	link.ID = f.s.id()
	f.s.links[linkKey{link.Provider, link.ProviderUserID}] = link
	return link, nil
}

func (f *fakeLinks) MoveToVoter(_ context.Context, from, to string) (models.MoveResult, error) {
	var result models.MoveResult
	if from == to {
		return result, nil
	}
	for _, link := range f.s.links {
		if link.VoterWeVoteID == from {
			link.VoterWeVoteID = to
			result.Moved++
		}
	}
	return result, nil
}

type fakeSessions struct{ s *fakeStore }

func (f *fakeSessions) Get(_ context.Context, provider models.Provider, deviceID string) (*models.AuthSession, error) {
	session, ok := f.s.sessions[sessionKey{provider, deviceID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessions) Create(_ context.Context, session *models.AuthSession) (*models.AuthSession, error) {
	session.ID = f.s.id()
	f.s.sessions[sessionKey{session.Provider, session.DeviceID}] = session
	return session, nil
}

func (f *fakeSessions) Update(_ context.Context, session *models.AuthSession) error {
	copied := *session
	f.s.sessions[sessionKey{session.Provider, session.DeviceID}] = &copied
	return nil
}

type fakeDevices struct{ s *fakeStore }

func (f *fakeDevices) Get(_ context.Context, deviceID string) (*models.DeviceLink, error) {
	voter, ok := f.s.devices[deviceID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.DeviceLink{DeviceID: deviceID, VoterWeVoteID: voter}, nil
}

func (f *fakeDevices) Bind(_ context.Context, deviceID, voterWeVoteID string) error {
	f.s.devices[deviceID] = voterWeVoteID
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

func (f *fakePositions) MoveToOrganization(context.Context, string, string, string) (models.MoveResult, error) {
	return models.MoveResult{}, nil
}

func (f *fakePositions) RepairForVoter(context.Context, string, string) (int64, error) {
	return 0, nil
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

func (f *fakeFollows) RetargetFollowed(context.Context, string, string) (models.MoveResult, error) {
	return models.MoveResult{}, nil
}

type fakeEmails struct{ s *fakeStore }

func (f *fakeEmails) Create(_ context.Context, e *models.EmailEntry) (*models.EmailEntry, error) {
	e.ID = f.s.id()
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
	for _, e := range f.s.emails {
		if e.VoterWeVoteID == from {
			e.VoterWeVoteID = to
			result.Moved++
		}
	}
	return result, nil
}

type fakeFriends struct{}

func (f *fakeFriends) MoveLinksToVoter(context.Context, string, string) (models.MoveResult, error) {
	return models.MoveResult{}, nil
}
func (f *fakeFriends) MoveInvitationsToVoter(context.Context, string, string) (models.MoveResult, error) {
	return models.MoveResult{}, nil
}

type fakeDonations struct{}

func (f *fakeDonations) MoveToVoter(context.Context, string, string) (models.MoveResult, error) {
	return models.MoveResult{}, nil
}

type fakeVoterGuides struct{}

func (f *fakeVoterGuides) MoveToVoter(context.Context, models.OwnerRef, models.OwnerRef) (models.MoveResult, error) {
	return models.MoveResult{}, nil
}

type fakeAnalytics struct{}

func (f *fakeAnalytics) MoveToVoter(context.Context, string, string) (models.MoveResult, error) {
	return models.MoveResult{}, nil
}

type fakeBookmarks struct{}

func (f *fakeBookmarks) CountForObject(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeBookmarks) MoveToVoter(context.Context, string, string) (models.MoveResult, error) {
	return models.MoveResult{}, nil
}
