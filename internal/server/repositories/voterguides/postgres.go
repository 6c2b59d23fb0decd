// Package voterguides provides the PostgreSQL-backed voter guide mover.
package voterguides

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

func (r *PostgresRepository) MoveToVoter(ctx context.Context, from, to models.OwnerRef) (models.MoveResult, error) {
	var result models.MoveResult
	if from.VoterWeVoteID == to.VoterWeVoteID {
		return result, nil
	}

	dedupe := `
		DELETE FROM voter_guides g
		WHERE g.owner_voter_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM voter_guides t
			WHERE t.owner_voter_we_vote_id = $2
			  AND t.election_id = g.election_id
		  )
	`
	res, err := r.db.ExecContext(ctx, dedupe, from.VoterWeVoteID, to.VoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Skipped, _ = res.RowsAffected()

	move := `
		UPDATE voter_guides
		SET owner_voter_we_vote_id = $2, organization_we_vote_id = $3
		WHERE owner_voter_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, move, from.VoterWeVoteID, to.VoterWeVoteID, to.OrganizationWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()
	return result, nil
}
