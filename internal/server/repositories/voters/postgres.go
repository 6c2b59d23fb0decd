// Package voters provides the PostgreSQL-backed voter record store.
package voters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wevote/reconcile/internal/common"
	"github.com/wevote/reconcile/internal/dbx"
	"github.com/wevote/reconcile/internal/server/models"
)

// PostgresRepository implements voter storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const voterColumns = `id, we_vote_id, linked_organization_we_vote_id,
	email, primary_email_we_vote_id, email_ownership_verified,
	first_name, middle_name, last_name,
	twitter_id, twitter_name, twitter_screen_name, twitter_profile_image_url,
	facebook_id, facebook_email, facebook_profile_image_url,
	profile_image_url_large, profile_image_url_medium, profile_image_url_tiny,
	notification_settings_flags, interface_status_flags,
	date_joined, date_last_changed`

func scanVoter(row interface{ Scan(dest ...any) error }) (*models.Voter, error) {
	v := &models.Voter{}
	err := row.Scan(&v.ID, &v.WeVoteID, &v.LinkedOrganizationWeVoteID,
		&v.Email, &v.PrimaryEmailWeVoteID, &v.EmailOwnershipVerified,
		&v.FirstName, &v.MiddleName, &v.LastName,
		&v.TwitterID, &v.TwitterName, &v.TwitterScreenName, &v.TwitterProfileImageURL,
		&v.FacebookID, &v.FacebookEmail, &v.FacebookProfileImageURL,
		&v.ProfileImageURLLarge, &v.ProfileImageURLMedium, &v.ProfileImageURLTiny,
		&v.NotificationSettingsFlags, &v.InterfaceStatusFlags,
		&v.DateJoined, &v.DateLastChanged)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PostgresRepository) Create(ctx context.Context, voter *models.Voter) (*models.Voter, error) {
	query := `
		INSERT INTO voters (we_vote_id, linked_organization_we_vote_id,
			email, primary_email_we_vote_id, email_ownership_verified,
			first_name, middle_name, last_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		voter.WeVoteID, voter.LinkedOrganizationWeVoteID,
		voter.Email, voter.PrimaryEmailWeVoteID, voter.EmailOwnershipVerified,
		voter.FirstName, voter.MiddleName, voter.LastName).Scan(&voter.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return voter, nil
}

func (r *PostgresRepository) GetByWeVoteID(ctx context.Context, weVoteID string) (*models.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE we_vote_id = $1`
	v, err := scanVoter(r.db.QueryRowContext(ctx, query, weVoteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

// Update persists every mutable field of the voter row.
func (r *PostgresRepository) Update(ctx context.Context, voter *models.Voter) error {
	query := `
		UPDATE voters SET
			linked_organization_we_vote_id = $2,
			email = $3, primary_email_we_vote_id = $4, email_ownership_verified = $5,
			first_name = $6, middle_name = $7, last_name = $8,
			twitter_id = $9, twitter_name = $10, twitter_screen_name = $11,
			twitter_profile_image_url = $12,
			facebook_id = $13, facebook_email = $14, facebook_profile_image_url = $15,
			profile_image_url_large = $16, profile_image_url_medium = $17,
			profile_image_url_tiny = $18,
			notification_settings_flags = $19, interface_status_flags = $20,
			date_last_changed = now()
		WHERE we_vote_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query,
		voter.WeVoteID, voter.LinkedOrganizationWeVoteID,
		voter.Email, voter.PrimaryEmailWeVoteID, voter.EmailOwnershipVerified,
		voter.FirstName, voter.MiddleName, voter.LastName,
		voter.TwitterID, voter.TwitterName, voter.TwitterScreenName,
		voter.TwitterProfileImageURL,
		voter.FacebookID, voter.FacebookEmail, voter.FacebookProfileImageURL,
		voter.ProfileImageURLLarge, voter.ProfileImageURLMedium,
		voter.ProfileImageURLTiny,
		voter.NotificationSettingsFlags, voter.InterfaceStatusFlags); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByCachedProviderID(ctx context.Context, provider models.Provider, providerUserID int64) (*models.Voter, error) {
	column := "twitter_id"
	if provider == models.ProviderFacebook {
		column = "facebook_id"
	}
	query := `SELECT ` + voterColumns + ` FROM voters WHERE ` + column + ` = $1 ORDER BY id LIMIT 1`
	v, err := scanVoter(r.db.QueryRowContext(ctx, query, providerUserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) ListByTwitterCache(ctx context.Context, twitterID int64, screenName string) ([]*models.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters
		WHERE twitter_id = $1 OR (twitter_screen_name <> '' AND lower(twitter_screen_name) = lower($2))
		ORDER BY id`
	return r.list(ctx, query, twitterID, screenName)
}

func (r *PostgresRepository) ListByFacebookCache(ctx context.Context, facebookID int64) ([]*models.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE facebook_id = $1 ORDER BY id`
	return r.list(ctx, query, facebookID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Voter, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Voter
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ClearProviderCache(ctx context.Context, provider models.Provider, weVoteID string) error {
	query := `
		UPDATE voters SET twitter_id = 0, twitter_name = '', twitter_screen_name = '',
			twitter_profile_image_url = '', date_last_changed = now()
		WHERE we_vote_id = $1
	`
	if provider == models.ProviderFacebook {
		query = `
			UPDATE voters SET facebook_id = 0, facebook_email = '',
				facebook_profile_image_url = '', date_last_changed = now()
			WHERE we_vote_id = $1
		`
	}
	if _, err := r.db.ExecContext(ctx, query, weVoteID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearEmailCache(ctx context.Context, weVoteID string) error {
	query := `
		UPDATE voters SET email = '', primary_email_we_vote_id = '',
			email_ownership_verified = FALSE, date_last_changed = now()
		WHERE we_vote_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, weVoteID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearLinkedOrganization(ctx context.Context, weVoteID string) error {
	query := `
		UPDATE voters SET linked_organization_we_vote_id = '', date_last_changed = now()
		WHERE we_vote_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, weVoteID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
