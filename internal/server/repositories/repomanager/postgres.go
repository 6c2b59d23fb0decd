// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/wevote/reconcile/internal/dbx"
	"github.com/wevote/reconcile/internal/server/migrations"
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

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Voters(db dbx.DBTX) voters.Repository {
	return voters.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) IdentityLinks(db dbx.DBTX) identitylinks.Repository {
	return identitylinks.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AuthSessions(db dbx.DBTX) authsessions.Repository {
	return authsessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) DeviceLinks(db dbx.DBTX) devicelinks.Repository {
	return devicelinks.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Organizations(db dbx.DBTX) organizations.Repository {
	return organizations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Positions(db dbx.DBTX) positions.Repository {
	return positions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Follows(db dbx.DBTX) follows.Repository {
	return follows.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Friends(db dbx.DBTX) friends.Repository {
	return friends.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Emails(db dbx.DBTX) emails.Repository {
	return emails.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Donations(db dbx.DBTX) donations.Repository {
	return donations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) VoterGuides(db dbx.DBTX) voterguides.Repository {
	return voterguides.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Analytics(db dbx.DBTX) analytics.Repository {
	return analytics.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Bookmarks(db dbx.DBTX) bookmarks.Repository {
	return bookmarks.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
