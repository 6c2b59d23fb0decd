// Package positions provides the PostgreSQL-backed position mover.
package positions

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
	query := `SELECT count(*) FROM positions WHERE voter_we_vote_id = $1`
	if err := r.db.QueryRowContext(ctx, query, voterWeVoteID).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) ListByVoter(ctx context.Context, voterWeVoteID string) ([]*models.Position, error) {
	query := `
		SELECT id, we_vote_id, voter_we_vote_id, organization_we_vote_id,
			subject_we_vote_id, election_id, stance, created_at
		FROM positions
		WHERE voter_we_vote_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, voterWeVoteID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Position
	for rows.Next() {
		p := &models.Position{}
		if err := rows.Scan(&p.ID, &p.WeVoteID, &p.VoterWeVoteID,
			&p.OrganizationWeVoteID, &p.SubjectWeVoteID, &p.ElectionID,
			&p.Stance, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// MoveToVoter first drops source positions whose (subject, election) key
// already exists on the destination, then rewrites ownership on the rest.
// Safe to re-run after a partial failure.
func (r *PostgresRepository) MoveToVoter(ctx context.Context, from, to models.OwnerRef) (models.MoveResult, error) {
	var result models.MoveResult
	if from.VoterWeVoteID == to.VoterWeVoteID {
		return result, nil
	}

	dedupe := `
		DELETE FROM positions p
		WHERE p.voter_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM positions t
			WHERE t.voter_we_vote_id = $2
			  AND t.subject_we_vote_id = p.subject_we_vote_id
			  AND t.election_id = p.election_id
		  )
	`
	res, err := r.db.ExecContext(ctx, dedupe, from.VoterWeVoteID, to.VoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Skipped, _ = res.RowsAffected()

	move := `
		UPDATE positions
		SET voter_we_vote_id = $2, organization_we_vote_id = $3
		WHERE voter_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, move, from.VoterWeVoteID, to.VoterWeVoteID, to.OrganizationWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()
	return result, nil
}

func (r *PostgresRepository) MoveToOrganization(ctx context.Context, fromOrgWeVoteID, toOrgWeVoteID, toVoterWeVoteID string) (models.MoveResult, error) {
	var result models.MoveResult
	if fromOrgWeVoteID == toOrgWeVoteID {
		return result, nil
	}

	dedupe := `
		DELETE FROM positions p
		WHERE p.organization_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM positions t
			WHERE t.organization_we_vote_id = $2
			  AND t.subject_we_vote_id = p.subject_we_vote_id
			  AND t.election_id = p.election_id
		  )
	`
	res, err := r.db.ExecContext(ctx, dedupe, fromOrgWeVoteID, toOrgWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Skipped, _ = res.RowsAffected()

	move := `
		UPDATE positions
		SET organization_we_vote_id = $2, voter_we_vote_id = $3
		WHERE organization_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, move, fromOrgWeVoteID, toOrgWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()
	return result, nil
}

// RepairForVoter points positions whose organization reference is empty or
// dangling at the voter's linked organization. With no linked organization
// the dangling references are cleared instead.
func (r *PostgresRepository) RepairForVoter(ctx context.Context, voterWeVoteID, linkedOrganizationWeVoteID string) (int64, error) {
	query := `
		UPDATE positions
		SET organization_we_vote_id = $2
		WHERE voter_we_vote_id = $1
		  AND organization_we_vote_id <> $2
		  AND (organization_we_vote_id = ''
			OR NOT EXISTS (
				SELECT 1 FROM organizations o
				WHERE o.we_vote_id = positions.organization_we_vote_id
			))
	`
	res, err := r.db.ExecContext(ctx, query, voterWeVoteID, linkedOrganizationWeVoteID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	repaired, _ := res.RowsAffected()
	return repaired, nil
}
