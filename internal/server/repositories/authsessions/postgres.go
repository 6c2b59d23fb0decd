// Package authsessions provides PostgreSQL-backed storage for provider OAuth
// state captured before a voter is confirmed.
package authsessions

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

const sessionColumns = `id, provider, device_id, request_token, request_secret,
	access_token, access_secret, provider_user_id, screen_name, display_name,
	email, profile_image_url, created_at`

func (r *PostgresRepository) Get(ctx context.Context, provider models.Provider, deviceID string) (*models.AuthSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM auth_sessions WHERE provider = $1 AND device_id = $2`
	s := &models.AuthSession{}
	err := r.db.QueryRowContext(ctx, query, provider, deviceID).Scan(
		&s.ID, &s.Provider, &s.DeviceID, &s.RequestToken, &s.RequestSecret,
		&s.AccessToken, &s.AccessSecret, &s.ProviderUserID, &s.ScreenName,
		&s.DisplayName, &s.Email, &s.ProfileImageURL, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, session *models.AuthSession) (*models.AuthSession, error) {
	query := `
		INSERT INTO auth_sessions (provider, device_id, request_token, request_secret,
			access_token, access_secret, provider_user_id, screen_name, display_name,
			email, profile_image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		session.Provider, session.DeviceID, session.RequestToken, session.RequestSecret,
		session.AccessToken, session.AccessSecret, session.ProviderUserID,
		session.ScreenName, session.DisplayName, session.Email,
		session.ProfileImageURL).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) Update(ctx context.Context, session *models.AuthSession) error {
	query := `
		UPDATE auth_sessions SET request_token = $3, request_secret = $4,
			access_token = $5, access_secret = $6, provider_user_id = $7,
			screen_name = $8, display_name = $9, email = $10, profile_image_url = $11
		WHERE provider = $1 AND device_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query,
		session.Provider, session.DeviceID, session.RequestToken, session.RequestSecret,
		session.AccessToken, session.AccessSecret, session.ProviderUserID,
		session.ScreenName, session.DisplayName, session.Email,
		session.ProfileImageURL); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
