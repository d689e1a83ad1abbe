package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/service/token"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

func newAuthService(t *testing.T) (*AuthService, *token.Service) {
	t.Helper()
	r := newTestRepo(t)
	tokens := &token.Service{DB: r.DB, JWTSecret: []byte("test-access"), RefreshSecret: []byte("test-refresh")}
	return &AuthService{Repo: r, Tokens: tokens}, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, transport.RegisterRequest{
		Username: "meihua",
		Email:    "meihua@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, models.RoleUser, user.Role)
	require.NotEqual(t, "correct horse", user.PasswordHash)

	access, refresh, err := svc.Login(ctx, transport.LoginRequest{Username: "meihua", Password: "correct horse"})
	require.NoError(t, err)

	claims, err := tokens.ValidateAccess(access)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, models.RoleUser, claims.Role)

	_, err = tokens.ValidateRefresh(refresh)
	require.NoError(t, err)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, transport.RegisterRequest{Username: "meihua", Email: "meihua@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, transport.RegisterRequest{Username: "meihua", Email: "other@example.com", Password: "password1"})
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Register(ctx, transport.RegisterRequest{Username: "other", Email: "meihua@example.com", Password: "password1"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, transport.RegisterRequest{Username: "meihua", Email: "meihua@example.com", Password: "password1"})
	require.NoError(t, err)

	_, _, errWrongPW := svc.Login(ctx, transport.LoginRequest{Username: "meihua", Password: "wrong"})
	_, _, errNoUser := svc.Login(ctx, transport.LoginRequest{Username: "nobody", Password: "wrong"})

	require.ErrorIs(t, errWrongPW, ErrValidation)
	require.ErrorIs(t, errNoUser, ErrValidation)
	require.Equal(t, errWrongPW.Error(), errNoUser.Error())
}

func TestLogoutRevokesRefresh(t *testing.T) {
	svc, tokens := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, transport.RegisterRequest{Username: "meihua", Email: "meihua@example.com", Password: "password1"})
	require.NoError(t, err)

	_, refresh, err := svc.Login(ctx, transport.LoginRequest{Username: "meihua", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, refresh))

	_, err = tokens.ValidateRefresh(refresh)
	require.Error(t, err)

	// Logging out with no cookie is a no-op.
	require.NoError(t, svc.Logout(ctx, ""))
}
