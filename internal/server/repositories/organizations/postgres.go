// Package organizations provides the PostgreSQL-backed organization store.
package organizations

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

const orgColumns = `id, we_vote_id, name, website, twitter_id,
	twitter_screen_name, twitter_followers_count, profile_image_url, created_at`

func scanOrganization(row interface{ Scan(dest ...any) error }) (*models.Organization, error) {
	o := &models.Organization{}
	err := row.Scan(&o.ID, &o.WeVoteID, &o.Name, &o.Website, &o.TwitterID,
		&o.TwitterScreenName, &o.TwitterFollowersCount, &o.ProfileImageURL,
		&o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) Create(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	query := `
		INSERT INTO organizations (we_vote_id, name, website, twitter_id,
			twitter_screen_name, twitter_followers_count, profile_image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		org.WeVoteID, org.Name, org.Website, org.TwitterID,
		org.TwitterScreenName, org.TwitterFollowersCount,
		org.ProfileImageURL).Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return org, nil
}

func (r *PostgresRepository) GetByWeVoteID(ctx context.Context, weVoteID string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE we_vote_id = $1`
	o, err := scanOrganization(r.db.QueryRowContext(ctx, query, weVoteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE organizations SET name = $2, website = $3, twitter_id = $4,
			twitter_screen_name = $5, twitter_followers_count = $6,
			profile_image_url = $7
		WHERE we_vote_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query,
		org.WeVoteID, org.Name, org.Website, org.TwitterID,
		org.TwitterScreenName, org.TwitterFollowersCount,
		org.ProfileImageURL); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByTwitterCache(ctx context.Context, twitterID int64) ([]*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE twitter_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, twitterID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ClearTwitterCache(ctx context.Context, weVoteID string) error {
	query := `
		UPDATE organizations SET twitter_id = 0, twitter_screen_name = '',
			twitter_followers_count = 0
		WHERE we_vote_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, weVoteID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
