package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/inkwell/inkwell-backend/internal/models"
)

// UserSessionRepository handles auth session data access
type UserSessionRepository struct {
	db *sqlx.DB
}

// NewUserSessionRepository creates a new session repository
func NewUserSessionRepository(db *sqlx.DB) *UserSessionRepository {
	return &UserSessionRepository{db: db}
}

// Create creates a new session
func (r *UserSessionRepository) Create(ctx context.Context, session *models.UserSession) error {
	query := `
		INSERT INTO user_sessions (
			id, user_id, token_hash, refresh_token_hash,
			expires_at, refresh_expires_at, ip_address, user_agent,
			created_at, last_activity
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.TokenHash, session.RefreshTokenHash,
		session.ExpiresAt, session.RefreshExpiresAt, session.IPAddress, session.UserAgent,
		session.CreatedAt, session.LastActivity,
	)
	return err
}

// GetByID retrieves a session by ID
func (r *UserSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UserSession, error) {
	var session models.UserSession
	query := `
		SELECT
			id, user_id, token_hash, refresh_token_hash,
			expires_at, refresh_expires_at, ip_address, user_agent,
			created_at, last_activity, revoked_at
		FROM user_sessions
		WHERE id = $1`

	err := r.db.GetContext(ctx, &session, query, id)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Update updates a session
func (r *UserSessionRepository) Update(ctx context.Context, session *models.UserSession) error {
	query := `
		UPDATE user_sessions SET
			token_hash = $2,
			refresh_token_hash = $3,
			expires_at = $4,
			refresh_expires_at = $5,
			last_activity = $6,
			revoked_at = $7
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.TokenHash, session.RefreshTokenHash,
		session.ExpiresAt, session.RefreshExpiresAt, session.LastActivity,
		session.RevokedAt,
	)
	return err
}

// Delete deletes a session
func (r *UserSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM user_sessions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteExpired removes sessions whose refresh window has passed
func (r *UserSessionRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM user_sessions WHERE refresh_expires_at < $1 OR revoked_at IS NOT NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now())
	return err
}
