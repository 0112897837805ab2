package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/arjenou/5000React/internal/users"
)

// Test-mode credentials. Only honoured when the Authenticator is built with
// testMode enabled (AUTH_TEST_MODE=true).
const (
	TestToken    = "test-admin-token"
	TestUsername = "admin"
)

var testPasswords = []string{"admin123", "admin"}

// TestUser is the synthetic identity behind TestToken.
var TestUser = users.AdminUser{
	ID:       "test-admin",
	Username: TestUsername,
	Email:    "admin@test.com",
	Role:     users.RoleAdmin,
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStoreUnavailable   = errors.New("user store unavailable")
)

type UserStore interface {
	GetByID(ctx context.Context, id string) (users.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (users.AdminUser, error)
}

type Authenticator struct {
	tokens   *Manager
	users    UserStore
	testMode bool
}

// NewAuthenticator wires token verification to the user store. store may be
// nil, in which case only test-mode credentials can succeed.
func NewAuthenticator(tokens *Manager, store UserStore, testMode bool) *Authenticator {
	return &Authenticator{tokens: tokens, users: store, testMode: testMode}
}

func (a *Authenticator) TestMode() bool {
	return a.testMode
}

// Authenticate resolves a bearer token to the admin it was issued for. The
// user is re-read from the store so a deleted account stops authenticating
// even while its token is unexpired.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (users.AdminUser, error) {
	if token == "" {
		return users.AdminUser{}, ErrUnauthorized
	}
	if a.testMode && token == TestToken {
		return TestUser, nil
	}

	claims, err := a.tokens.Parse(token)
	if err != nil {
		return users.AdminUser{}, ErrUnauthorized
	}
	if a.users == nil {
		return users.AdminUser{}, ErrUnauthorized
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return users.AdminUser{}, ErrUnauthorized
	}
	return user, nil
}

// Login checks credentials and returns a bearer token for the matching admin.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, users.AdminUser, error) {
	if a.testMode && username == TestUsername && isTestPassword(password) {
		return TestToken, TestUser, nil
	}
	if a.users == nil {
		return "", users.AdminUser{}, ErrStoreUnavailable
	}

	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return "", users.AdminUser{}, ErrInvalidCredentials
		}
		return "", users.AdminUser{}, fmt.Errorf("lookup admin user: %w", err)
	}

	ok := a.testMode && isTestPassword(password)
	if !ok {
		ok = CheckPassword(user.PasswordHash, password)
	}
	if !ok {
		return "", users.AdminUser{}, ErrInvalidCredentials
	}

	token, err := a.tokens.NewToken(user.ID, user.Username)
	if err != nil {
		return "", users.AdminUser{}, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}

func isTestPassword(password string) bool {
	for _, p := range testPasswords {
		if p == password {
			return true
		}
	}
	return false
}
