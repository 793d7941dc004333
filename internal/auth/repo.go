package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists registered devices and refresh tokens.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertDevice ensures a device record exists with the given role.
func (r *Repository) UpsertDevice(ctx context.Context, deviceID, role string) error {
	if deviceID == "" {
		return errors.New("device id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (device_id, role)
		VALUES ($1, $2)
		ON CONFLICT (device_id) DO UPDATE SET role = EXCLUDED.role
	`, deviceID, role)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, deviceID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (device_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, deviceID, token, expiresAt)
	return err
}

// RefreshToken is a stored refresh token row.
type RefreshToken struct {
	DeviceID  string
	Token     string
	ExpiresAt time.Time
	Revoked   bool
}

// GetRefreshToken looks up a stored refresh token. Returns nil when the
// token was never issued.
func (r *Repository) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	var rt RefreshToken
	err := r.db.QueryRowContext(ctx, `
		SELECT device_id, token, expires_at, revoked
		FROM refresh_tokens
		WHERE token = $1
	`, token).Scan(&rt.DeviceID, &rt.Token, &rt.ExpiresAt, &rt.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
