// Package identitylinks provides the PostgreSQL-backed identity link store.
// One row per (provider, provider user id); the unique constraint is the
// final backstop against two voters owning the same external identity.
package identitylinks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wevote/reconcile/internal/common"
	"github.com/wevote/reconcile/internal/dbx"
	"github.com/wevote/reconcile/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Find(ctx context.Context, provider models.Provider, providerUserID int64) (*models.IdentityLink, error) {
	query := `
		SELECT id, provider, provider_user_id, voter_we_vote_id, secret_key, created_at
		FROM identity_links
		WHERE provider = $1 AND provider_user_id = $2
	`
	link := &models.IdentityLink{}
	err := r.db.QueryRowContext(ctx, query, provider, providerUserID).Scan(
		&link.ID, &link.Provider, &link.ProviderUserID, &link.VoterWeVoteID,
		&link.SecretKey, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

func (r *PostgresRepository) FindByVoter(ctx context.Context, provider models.Provider, voterWeVoteID string) (*models.IdentityLink, error) {
	query := `
		SELECT id, provider, provider_user_id, voter_we_vote_id, secret_key, created_at
		FROM identity_links
		WHERE provider = $1 AND voter_we_vote_id = $2
	`
	link := &models.IdentityLink{}
	err := r.db.QueryRowContext(ctx, query, provider, voterWeVoteID).Scan(
		&link.ID, &link.Provider, &link.ProviderUserID, &link.VoterWeVoteID,
		&link.SecretKey, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

// MoveToVoter repoints every link owned by the source voter at the
// destination. The (provider, provider_user_id) key is untouched, so
// uniqueness holds and a re-run moves nothing.
func (r *PostgresRepository) MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error) {
	var result models.MoveResult
	if fromVoterWeVoteID == toVoterWeVoteID {
		return result, nil
	}
	query := `UPDATE identity_links SET voter_we_vote_id = $2 WHERE voter_we_vote_id = $1`
	res, err := r.db.ExecContext(ctx, query, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, link *models.IdentityLink) (*models.IdentityLink, error) {
	query := `
		INSERT INTO identity_links (provider, provider_user_id, voter_we_vote_id, secret_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		link.Provider, link.ProviderUserID, link.VoterWeVoteID, link.SecretKey).Scan(
		&link.ID, &link.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}
