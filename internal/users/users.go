// Package users is the thin user lookup collaborator. Profile CRUD proper
// lives outside this core; services here only need existence checks and
// credential rows.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/postgres"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Repo struct {
	DB postgres.DB
}

const userCols = `id, email, password_hash, first_name, last_name, phone, role, created_at`

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.get(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email)
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = "BUYER"
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.Role)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("email %s already registered: %w", u.Email, apperr.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repo) get(ctx context.Context, sql string, arg any) (*User, error) {
	var u User
	err := r.DB.QueryRow(ctx, sql, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user", arg)
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}
