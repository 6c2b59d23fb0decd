// Package friends provides the PostgreSQL-backed movers for friend links and
// pending friend invitations.
package friends

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

// MoveLinksToVoter rewrites both sides of friend links. A link between the
// two merging voters themselves is dropped first: it would otherwise become
// a self-friendship.
func (r *PostgresRepository) MoveLinksToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error) {
	var result models.MoveResult
	if fromVoterWeVoteID == toVoterWeVoteID {
		return result, nil
	}

	dropMutual := `
		DELETE FROM friend_links
		WHERE (viewer_voter_we_vote_id = $1 AND friend_voter_we_vote_id = $2)
		   OR (viewer_voter_we_vote_id = $2 AND friend_voter_we_vote_id = $1)
	`
	res, err := r.db.ExecContext(ctx, dropMutual, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Skipped, _ = res.RowsAffected()

	dedupeViewer := `
		DELETE FROM friend_links f
		WHERE f.viewer_voter_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM friend_links t
			WHERE t.viewer_voter_we_vote_id = $2
			  AND t.friend_voter_we_vote_id = f.friend_voter_we_vote_id
		  )
	`
	res, err = r.db.ExecContext(ctx, dedupeViewer, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	n, _ := res.RowsAffected()
	result.Skipped += n

	dedupeFriend := `
		DELETE FROM friend_links f
		WHERE f.friend_voter_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM friend_links t
			WHERE t.friend_voter_we_vote_id = $2
			  AND t.viewer_voter_we_vote_id = f.viewer_voter_we_vote_id
		  )
	`
	res, err = r.db.ExecContext(ctx, dedupeFriend, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	n, _ = res.RowsAffected()
	result.Skipped += n

	moveViewer := `
		UPDATE friend_links SET viewer_voter_we_vote_id = $2
		WHERE viewer_voter_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, moveViewer, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()

	moveFriend := `
		UPDATE friend_links SET friend_voter_we_vote_id = $2
		WHERE friend_voter_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, moveFriend, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	n, _ = res.RowsAffected()
	result.Moved += n
	return result, nil
}

func (r *PostgresRepository) MoveInvitationsToVoter(ctx context.Context, fromVoterWeVoteID, toVoterWeVoteID string) (models.MoveResult, error) {
	var result models.MoveResult
	if fromVoterWeVoteID == toVoterWeVoteID {
		return result, nil
	}

	dedupeSender := `
		DELETE FROM friend_invitations f
		WHERE f.sender_voter_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM friend_invitations t
			WHERE t.sender_voter_we_vote_id = $2
			  AND t.recipient_voter_we_vote_id = f.recipient_voter_we_vote_id
			  AND t.recipient_email = f.recipient_email
		  )
	`
	res, err := r.db.ExecContext(ctx, dedupeSender, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Skipped, _ = res.RowsAffected()

	dedupeRecipient := `
		DELETE FROM friend_invitations f
		WHERE f.recipient_voter_we_vote_id = $1
		  AND EXISTS (
			SELECT 1 FROM friend_invitations t
			WHERE t.recipient_voter_we_vote_id = $2
			  AND t.sender_voter_we_vote_id = f.sender_voter_we_vote_id
		  )
	`
	res, err = r.db.ExecContext(ctx, dedupeRecipient, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	n, _ := res.RowsAffected()
	result.Skipped += n

	moveSender := `
		UPDATE friend_invitations SET sender_voter_we_vote_id = $2
		WHERE sender_voter_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, moveSender, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	result.Moved, _ = res.RowsAffected()

	moveRecipient := `
		UPDATE friend_invitations SET recipient_voter_we_vote_id = $2
		WHERE recipient_voter_we_vote_id = $1
	`
	res, err = r.db.ExecContext(ctx, moveRecipient, fromVoterWeVoteID, toVoterWeVoteID)
	if err != nil {
		return result, fmt.Errorf("db error: %w", err)
	}
	n, _ = res.RowsAffected()
	result.Moved += n
	return result, nil
}
