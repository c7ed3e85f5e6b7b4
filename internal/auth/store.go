package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/postgres"
)

// ErrDuplicateToken surfaces a unique violation on insert so the service
// can run its bounded retry.
var ErrDuplicateToken = errors.New("refresh token row already exists")

type Repo struct {
	DB postgres.DB
}

func (r *Repo) FindByUser(ctx context.Context, userID uuid.UUID) (*RefreshToken, error) {
	return r.find(ctx, `SELECT id, user_id, token, expiry_date FROM refresh_tokens WHERE user_id=$1`, userID)
}

func (r *Repo) FindByToken(ctx context.Context, token string) (*RefreshToken, error) {
	return r.find(ctx, `SELECT id, user_id, token, expiry_date FROM refresh_tokens WHERE token=$1`, token)
}

func (r *Repo) Insert(ctx context.Context, t *RefreshToken) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token, expiry_date)
		VALUES ($1, $2, $3)
		RETURNING id`,
		t.UserID, t.Token, t.ExpiryDate).Scan(&t.ID)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", t.UserID, ErrDuplicateToken)
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Rotate swaps the token value on the user's existing row. Returns false
// when the user has no row yet.
func (r *Repo) Rotate(ctx context.Context, t *RefreshToken) (bool, error) {
	err := r.DB.QueryRow(ctx, `
		UPDATE refresh_tokens SET token=$2, expiry_date=$3
		WHERE user_id=$1
		RETURNING id`,
		t.UserID, t.Token, t.ExpiryDate).Scan(&t.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return true, nil
}

func (r *Repo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *Repo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM refresh_tokens WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *Repo) find(ctx context.Context, sql string, arg any) (*RefreshToken, error) {
	var t RefreshToken
	err := r.DB.QueryRow(ctx, sql, arg).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiryDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("refresh token", arg)
		}
		return nil, fmt.Errorf("select refresh token: %w", err)
	}
	return &t, nil
}
