package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjenou/5000React/internal/users"
)

type memUsers struct {
	byID map[string]users.AdminUser
	err  error
}

func (m *memUsers) GetByID(_ context.Context, id string) (users.AdminUser, error) {
	if m.err != nil {
		return users.AdminUser{}, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return users.AdminUser{}, users.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (users.AdminUser, error) {
	if m.err != nil {
		return users.AdminUser{}, m.err
	}
	for _, u := range m.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return users.AdminUser{}, users.ErrNotFound
}

func newStore(list ...users.AdminUser) *memUsers {
	m := &memUsers{byID: map[string]users.AdminUser{}}
	for _, u := range list {
		m.byID[u.ID] = u
	}
	return m
}

func TestTokenShape(t *testing.T) {
	m := NewManager("secret", 24*time.Hour)
	token, err := m.NewToken("u-1", "alice")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "u-1", payload["userId"])
	assert.Equal(t, "alice", payload["username"])
	assert.NotNil(t, payload["exp"])

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
}

func TestTokenRejectsTamperingAndExpiry(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &Manager{Secret: []byte("secret"), TTL: 24 * time.Hour, Now: func() time.Time { return issued }}
	token, err := m.NewToken("u-1", "alice")
	require.NoError(t, err)

	other := &Manager{Secret: []byte("other"), TTL: time.Hour, Now: m.Now}
	_, err = other.Parse(token)
	require.Error(t, err)

	m.Now = func() time.Time { return issued.Add(25 * time.Hour) }
	_, err = m.Parse(token)
	require.Error(t, err)

	_, err = m.Parse("not-a-token")
	require.Error(t, err)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))

	assert.True(t, CheckPassword("plain", "plain"))
	assert.False(t, CheckPassword("plain", "Plain"))
	assert.False(t, CheckPassword("", ""))

	_, err = HashPassword("")
	require.Error(t, err)
}

func TestAuthenticateRequiresLiveUser(t *testing.T) {
	store := newStore(users.AdminUser{ID: "u-1", Username: "alice", Role: "admin"})
	m := NewManager("secret", time.Hour)
	a := NewAuthenticator(m, store, false)

	token, err := m.NewToken("u-1", "alice")
	require.NoError(t, err)

	u, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	delete(store.byID, "u-1")
	_, err = a.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestBypassTokenGatedByTestMode(t *testing.T) {
	m := NewManager("secret", time.Hour)

	strict := NewAuthenticator(m, newStore(), false)
	_, err := strict.Authenticate(context.Background(), TestToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	lenient := NewAuthenticator(m, nil, true)
	u, err := lenient.Authenticate(context.Background(), TestToken)
	require.NoError(t, err)
	assert.Equal(t, TestUser, u)
}

func TestLogin(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	store := newStore(
		users.AdminUser{ID: "u-1", Username: "alice", PasswordHash: hash, Role: "admin"},
		users.AdminUser{ID: "u-2", Username: "legacy", PasswordHash: "plaintext", Role: "admin"},
	)
	m := NewManager("secret", time.Hour)
	a := NewAuthenticator(m, store, false)
	ctx := context.Background()

	token, u, err := a.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	_, _, err = a.Login(ctx, "legacy", "plaintext")
	require.NoError(t, err)

	_, _, err = a.Login(ctx, "alice", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = a.Login(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = a.Login(ctx, "admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	store.err = errors.New("connection refused")
	_, _, err = a.Login(ctx, "alice", "correct horse")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginTestMode(t *testing.T) {
	a := NewAuthenticator(NewManager("secret", time.Hour), nil, true)

	token, u, err := a.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, TestToken, token)
	assert.Equal(t, "admin", u.Role)

	_, _, err = a.Login(context.Background(), "editor", "admin123")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
