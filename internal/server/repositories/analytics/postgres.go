// Package analytics provides the PostgreSQL-backed analytics event mover.
package analytics

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

func (r *PostgresRepository) MoveToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error) {
	var result models.MoveResult
	if fromVoterWeVoteID == toVoterWeVoteID {
		return result, nil
	}

	query := `
		UPDATE analytics_events SET voter_we_vote_id = $2
		WHERE voter_we_vote_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()
	return result, nil
}
