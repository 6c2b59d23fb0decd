package repomanager

import (
	"context"
	"database/sql"

	"github.com/wevote/reconcile/internal/dbx"
	"github.com/wevote/reconcile/internal/server/repositories/analytics"
	"github.com/wevote/reconcile/internal/server/repositories/authsessions"
	"github.com/wevote/reconcile/internal/server/repositories/bookmarks"
	"github.com/wevote/reconcile/internal/server/repositories/devicelinks"
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

// RepositoryManager vends per-domain repositories bound to a DBTX and
// exposes the schema migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error

	Voters(db dbx.DBTX) voters.Repository
	IdentityLinks(db dbx.DBTX) identitylinks.Repository
	AuthSessions(db dbx.DBTX) authsessions.Repository
	DeviceLinks(db dbx.DBTX) devicelinks.Repository
	Organizations(db dbx.DBTX) organizations.Repository
	Positions(db dbx.DBTX) positions.Repository
	Follows(db dbx.DBTX) follows.Repository
	Friends(db dbx.DBTX) friends.Repository
	Emails(db dbx.DBTX) emails.Repository
	Donations(db dbx.DBTX) donations.Repository
	VoterGuides(db dbx.DBTX) voterguides.Repository
	Analytics(db dbx.DBTX) analytics.Repository
	Bookmarks(db dbx.DBTX) bookmarks.Repository
}
