package service

import (
	"testing"

	"maintech_backend/internal/config"
	"maintech_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthEnv(t *testing.T) (*testEnv, *AuthService, *UserService) {
	t.Helper()
	env := newTestEnv(t)
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-for-unit-tests-only"
	cfg.JWT.ExpireTime = 3600000000000 // 1h
	cfg.Quiz.ApplyDefaults()

	auth := NewAuthService(env.repos.user, cfg)
	users := NewUserService(env.repos.user, env.db)
	return env, auth, users
}

func TestRegisterAndLogin(t *testing.T) {
	_, auth, _ := newAuthEnv(t)

	resp, err := auth.Register(&RegisterRequest{
		Name:     "Juan Pérez",
		Email:    "juan@test.dev",
		Password: "secret-password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "juan@test.dev", resp.User.Email)
	// 密码已哈希
	assert.NotEqual(t, "secret-password", resp.User.Password)

	login, err := auth.Login(&LoginRequest{Email: "juan@test.dev", Password: "secret-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)

	_, err = auth.Login(&LoginRequest{Email: "juan@test.dev", Password: "wrong"})
	assert.ErrorIs(t, err, util.ErrUnauthorized)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, auth, _ := newAuthEnv(t)

	req := &RegisterRequest{Name: "Ana", Email: "ana@test.dev", Password: "secret-password"}
	_, err := auth.Register(req)
	require.NoError(t, err)

	_, err = auth.Register(req)
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestLoginDisabledUser(t *testing.T) {
	_, auth, users := newAuthEnv(t)

	resp, err := auth.Register(&RegisterRequest{
		Name:     "Bloqueado",
		Email:    "blocked@test.dev",
		Password: "secret-password",
	})
	require.NoError(t, err)

	require.NoError(t, users.SetDisabled(resp.User.ID, true))

	_, err = auth.Login(&LoginRequest{Email: "blocked@test.dev", Password: "secret-password"})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestChangePassword(t *testing.T) {
	_, auth, users := newAuthEnv(t)

	resp, err := auth.Register(&RegisterRequest{
		Name:     "Cambio",
		Email:    "change@test.dev",
		Password: "old-password1",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, users.ChangePassword(resp.User.ID, "wrong", "new-password1"), util.ErrUnauthorized)
	require.NoError(t, users.ChangePassword(resp.User.ID, "old-password1", "new-password1"))

	_, err = auth.Login(&LoginRequest{Email: "change@test.dev", Password: "new-password1"})
	assert.NoError(t, err)
}
