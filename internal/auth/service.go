package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/metrics"
	"github.com/mkulima/sokoni/internal/users"
)

// rotateAttempts bounds the retry loop when concurrent logins race on the
// refresh_tokens unique constraints.
const rotateAttempts = 3

type TokenStore interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*RefreshToken, error)
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	Insert(ctx context.Context, t *RefreshToken) error
	Rotate(ctx context.Context, t *RefreshToken) (bool, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteByToken(ctx context.Context, token string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	Create(ctx context.Context, u *users.User) error
}

// AccessIssuer mints the short lived access token returned next to the
// refresh token. The concrete signer lives outside this service.
type AccessIssuer interface {
	Issue(u *users.User) (string, error)
}

type Service struct {
	Tokens TokenStore
	Users  UserStore
	Issuer AccessIssuer
	TTL    time.Duration

	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type TokenPair struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         users.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenPair, error) {
	if req.Email == "" || req.Password == "" {
		return nil, apperr.InvalidArgument("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &users.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issuePair(ctx, u)
}

func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, error) {
	u, err := s.Users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("bad credentials: %w", apperr.ErrForbidden)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)) != nil {
		return nil, fmt.Errorf("bad credentials: %w", apperr.ErrForbidden)
	}
	return s.issuePair(ctx, u)
}

// CreateOrRotate gives the user a fresh refresh token, replacing any
// existing row. Two concurrent calls can both see no row and both insert;
// the loser hits the unique constraint, deletes the stray state and retries
// a bounded number of times.
func (s *Service) CreateOrRotate(ctx context.Context, userID uuid.UUID) (*RefreshToken, error) {
	var lastErr error
	for attempt := 0; attempt < rotateAttempts; attempt++ {
		t := &RefreshToken{
			UserID:     userID,
			Token:      newTokenValue(),
			ExpiryDate: s.clock().Add(s.TTL),
		}
		rotated, err := s.Tokens.Rotate(ctx, t)
		if err != nil {
			return nil, err
		}
		if rotated {
			return t, nil
		}
		err = s.Tokens.Insert(ctx, t)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrDuplicateToken) {
			return nil, err
		}
		metrics.TokenRotationConflicts.Inc()
		lastErr = err
		if err := s.Tokens.DeleteByUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("refresh token rotation kept conflicting: %w (%w)", apperr.ErrConflict, lastErr)
}

// Verify resolves a refresh token to its user. Expired tokens are removed
// on sight so the caller must log in again.
func (s *Service) Verify(ctx context.Context, token string) (*users.User, error) {
	t, err := s.Tokens.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t.Expired(s.clock()) {
		if err := s.Tokens.DeleteByToken(ctx, token); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("refresh token for user %s: %w", t.UserID, apperr.ErrExpired)
	}
	return s.Users.GetByID(ctx, t.UserID)
}

// Refresh exchanges a valid refresh token for a new token pair, rotating
// the refresh token in the same motion.
func (s *Service) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	u, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, u)
}

// Logout revokes the presented refresh token. Possession of the token is
// the authority to revoke it; no other caller identity is consulted.
// Revoking an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperr.InvalidArgument("refresh token is required")
	}
	return s.Tokens.DeleteByToken(ctx, token)
}

func (s *Service) issuePair(ctx context.Context, u *users.User) (*TokenPair, error) {
	refresh, err := s.CreateOrRotate(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	access, err := s.Issuer.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	out := &TokenPair{AccessToken: access, RefreshToken: refresh.Token, User: *u}
	out.User.PasswordHash = ""
	return out, nil
}

func newTokenValue() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	return hex.EncodeToString(buf)
}

// OpaqueIssuer is the default access token signer: random bearer values
// with no embedded claims. Swap in a JWT signer at wiring time if the
// deployment calls for stateless verification.
type OpaqueIssuer struct{}

func (OpaqueIssuer) Issue(u *users.User) (string, error) {
	return "at_" + newTokenValue(), nil
}
