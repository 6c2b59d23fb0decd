// Package bookmarks provides the PostgreSQL-backed bookmark mover.
package bookmarks

import (
	"context"
	"fmt"

	"github.com/wevote/reconcile/internal/dbx"
	"github.com/wevote/reconcile/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CountForObject(ctx context.Context, objectWeVoteID string) (int64, error) {
	var count int64
	query := `SELECT count(*) FROM bookmarks WHERE object_we_vote_id = $1`
	if err := r.db.QueryRowContext(ctx, query, objectWeVoteID).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error) {
	var result models.MoveResult
	if fromVoterWeVoteID == toVoterWeVoteID {
		return result, nil
	}

	dedupe := `
		DELETE FROM bookmarks b
		WHERE b.voter_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM bookmarks t
			WHERE t.voter_we_vote_id = $2
			  AND t.object_we_vote_id = b.object_we_vote_id
		  )
	`
	res, err := r.db.ExecContext(ctx, dedupe, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Skipped, _ = res.RowsAffected()

	move := `
		UPDATE bookmarks SET voter_we_vote_id = $2
		WHERE voter_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, move, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()
	return result, nil
}
