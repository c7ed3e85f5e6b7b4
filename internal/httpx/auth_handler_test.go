package httpx

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkulima/sokoni/internal/apperr"
	"github.com/mkulima/sokoni/internal/auth"
	"github.com/mkulima/sokoni/internal/users"
)

type memTokens struct {
	byToken map[string]*auth.RefreshToken
}

func (m *memTokens) FindByUser(ctx context.Context, userID uuid.UUID) (*auth.RefreshToken, error) {
	for _, t := range m.byToken {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, apperr.NotFound("refresh token", userID)
}

func (m *memTokens) FindByToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	if t, ok := m.byToken[token]; ok {
		return t, nil
	}
	return nil, apperr.NotFound("refresh token", token)
}

func (m *memTokens) Insert(ctx context.Context, t *auth.RefreshToken) error {
	m.byToken[t.Token] = t
	return nil
}

func (m *memTokens) Rotate(ctx context.Context, t *auth.RefreshToken) (bool, error) {
	for tok, old := range m.byToken {
		if old.UserID == t.UserID {
			delete(m.byToken, tok)
			m.byToken[t.Token] = t
			return true, nil
		}
	}
	return false, nil
}

func (m *memTokens) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	for tok, t := range m.byToken {
		if t.UserID == userID {
			delete(m.byToken, tok)
		}
	}
	return nil
}

func (m *memTokens) DeleteByToken(ctx context.Context, token string) error {
	delete(m.byToken, token)
	return nil
}

type memUsers struct {
	byID map[uuid.UUID]*users.User
}

func (m *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user", id)
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user", email)
}

func (m *memUsers) Create(ctx context.Context, u *users.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.byID[u.ID] = u
	return nil
}

type authEnv struct {
	*testEnv
	tokens *memTokens
}

func newAuthEnv() *authEnv {
	tokens := &memTokens{byToken: map[string]*auth.RefreshToken{}}
	svc := &auth.Service{
		Tokens: tokens,
		Users:  &memUsers{byID: map[uuid.UUID]*users.User{}},
		Issuer: auth.OpaqueIssuer{},
		TTL:    time.Hour,
	}
	env := &testEnv{router: NewRouter(&AuthHandler{Auth: svc})}
	return &authEnv{testEnv: env, tokens: tokens}
}

func TestLogoutRequiresTheTokenItself(t *testing.T) {
	env := newAuthEnv()
	userID := uuid.New()
	env.tokens.byToken["live"] = &auth.RefreshToken{
		UserID:     userID,
		Token:      "live",
		ExpiryDate: time.Now().Add(time.Hour),
	}

	// a userId body no longer revokes anything
	w := env.do(t, http.MethodPost, "/api/v1/auth/logout", `{"userId":"`+userID.String()+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.tokens.byToken, "live")

	// guessing wrong token values revokes nothing either
	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", `{"refreshToken":"guess"}`, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, env.tokens.byToken, "live")

	// presenting the token is what revokes it
	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", `{"refreshToken":"live"}`, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, env.tokens.byToken, "live")
}

func TestRegisterLoginRefreshFlow(t *testing.T) {
	env := newAuthEnv()

	body := `{"email":"wanjiku@example.com","password":"hunter2secret","firstName":"Wanjiku"}`
	w := env.do(t, http.MethodPost, "/api/v1/auth/register", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"wanjiku@example.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/refresh", `{"refreshToken":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/refresh", `{"refreshToken":"stale"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
