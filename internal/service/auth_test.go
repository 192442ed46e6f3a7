package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	return &AuthService{
		Repo:      &repo.GormRepo{DB: testutil.NewDB(t)},
		JWTSecret: []byte("test-jwt-secret"),
		TokenTTL:  15 * time.Minute,
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	tok, err := svc.Register(ctx, transport.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.NotEmpty(t, tok.AccessToken)

	userID, err := svc.Authenticate(tok.AccessToken)
	require.NoError(t, err)

	user, err := svc.Repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.NotEqual(t, "secret", user.PasswordHash)

	tok, err = svc.Login(ctx, transport.LoginRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	userID, err = svc.Authenticate(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  transport.RegisterRequest
	}{
		{name: "empty username", req: transport.RegisterRequest{Email: "a@example.com", Password: "secret"}},
		{name: "empty password", req: transport.RegisterRequest{Username: "user", Email: "a@example.com"}},
		{name: "bad email", req: transport.RegisterRequest{Username: "user", Email: "nope", Password: "secret"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Register_Duplicates(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, transport.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, transport.RegisterRequest{Username: "alice", Email: "other@example.com", Password: "secret"})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "username")

	_, err = svc.Register(ctx, transport.RegisterRequest{Username: "carol", Email: "alice@example.com", Password: "secret"})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "email")
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, transport.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, transport.LoginRequest{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, transport.LoginRequest{Username: "nobody", Password: "secret"})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Authenticate("garbage")
	require.ErrorIs(t, err, ErrUnauthorized)
}
