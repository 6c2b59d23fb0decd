// Package emails provides the PostgreSQL-backed email record store and mover.
package emails

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

func (r *PostgresRepository) Create(ctx context.Context, entry *models.EmailEntry) (*models.EmailEntry, error) {
	query := `
		INSERT INTO email_entries (we_vote_id, voter_we_vote_id, address, ownership_verified)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.WeVoteID, entry.VoterWeVoteID, entry.Address,
		entry.OwnershipVerified).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) FindVerifiedByAddress(ctx context.Context, address string) (*models.EmailEntry, error) {
	query := `
		SELECT id, we_vote_id, voter_we_vote_id, address, ownership_verified, created_at
		FROM email_entries
		WHERE lower(address) = lower($1) AND ownership_verified
	`
	entry := &models.EmailEntry{}
	err := r.db.QueryRowContext(ctx, query, address).Scan(
		&entry.ID, &entry.WeVoteID, &entry.VoterWeVoteID, &entry.Address,
		&entry.OwnershipVerified, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error) {
	var result models.MoveResult
	if fromVoterWeVoteID == toVoterWeVoteID {
		return result, nil
	}

	dedupe := `
		DELETE FROM email_entries e
		WHERE e.voter_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM email_entries t
			WHERE t.voter_we_vote_id = $2
			  AND lower(t.address) = lower(e.address)
		  )
	`
	res, err := r.db.ExecContext(ctx, dedupe, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Skipped, _ = res.RowsAffected()

	move := `
		UPDATE email_entries SET voter_we_vote_id = $2
		WHERE voter_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, move, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()
	return result, nil
}
