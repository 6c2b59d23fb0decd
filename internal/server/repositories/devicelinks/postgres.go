// Package devicelinks provides the PostgreSQL-backed device session binding.
package devicelinks

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

func (r *PostgresRepository) Get(ctx context.Context, deviceID string) (*models.DeviceLink, error) {
	query := `
		SELECT id, device_id, voter_we_vote_id, updated_at
		FROM device_links
		WHERE device_id = $1
	`
	link := &models.DeviceLink{}
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&link.ID, &link.DeviceID, &link.VoterWeVoteID, &link.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

// Bind points the device at a voter, inserting or rewriting the binding.
func (r *PostgresRepository) Bind(ctx context.Context, deviceID, voterWeVoteID string) error {
	query := `
		INSERT INTO device_links (device_id, voter_we_vote_id)
		VALUES ($1, $2)
		ON CONFLICT (device_id)
		DO UPDATE SET voter_we_vote_id = EXCLUDED.voter_we_vote_id, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, deviceID, voterWeVoteID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
