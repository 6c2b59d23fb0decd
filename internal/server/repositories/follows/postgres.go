// Package follows provides the PostgreSQL-backed follow-relationship mover.
package follows

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

func (r *PostgresRepository) CountForVoter(ctx context.Context, voterWeVoteID string) (int64, error) {
	var count int64
	query := `SELECT count(*) FROM follow_entries WHERE voter_we_vote_id = $1`
	if err := r.db.QueryRowContext(ctx, query, voterWeVoteID).Scan(&count); err != nil {
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
		DELETE FROM follow_entries f
		WHERE f.voter_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM follow_entries t
			WHERE t.voter_we_vote_id = $2
			  AND t.followed_we_vote_id = f.followed_we_vote_id
		  )
	`
	res, err := r.db.ExecContext(ctx, dedupe, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Skipped, _ = res.RowsAffected()

	move := `
		UPDATE follow_entries SET voter_we_vote_id = $2
		WHERE voter_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, move, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()
	return result, nil
}

func (r *PostgresRepository) RetargetFollowed(ctx context.Context, fromWeVoteID, toWeVoteID string) (models.MoveResult, error) {
	var result models.MoveResult
	if fromWeVoteID == toWeVoteID {
		return result, nil
	}

	dedupe := `
		DELETE FROM follow_entries f
		WHERE f.followed_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM follow_entries t
			WHERE t.followed_we_vote_id = $2
			  AND t.voter_we_vote_id = f.voter_we_vote_id
		  )
	`
	res, err := r.db.ExecContext(ctx, dedupe, fromWeVoteID, toWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Skipped, _ = res.RowsAffected()

	move := `
		UPDATE follow_entries SET followed_we_vote_id = $2
		WHERE followed_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, move, fromWeVoteID, toWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()
	return result, nil
}
