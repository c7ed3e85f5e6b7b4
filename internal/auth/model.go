package auth

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the single long lived credential per user. Rotation
// replaces the token value in place; the user_id unique constraint keeps
// concurrent logins from ever producing two live rows.
type RefreshToken struct {
	ID         int64     `json:"-"`
	UserID     uuid.UUID `json:"userId"`
	Token      string    `json:"token"`
	ExpiryDate time.Time `json:"expiryDate"`
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiryDate.After(now)
}
