package mockapi_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/taskup/internal/mockapi"
	"github.com/aretw0/taskup/pkg/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, opts ...mockapi.Option) (*mockapi.Server, *gateway.Client) {
	t.Helper()
	srv := mockapi.New(opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, gateway.New(ts.URL + mockapi.BasePath)
}

type authResp struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	User         map[string]any `json:"user"`
	ExpiresIn    int            `json:"expiresIn"`
}

func TestServer_LoginAndMe(t *testing.T) {
	ctx := context.Background()
	srv, gw := newClient(t, mockapi.WithTokenTTL(10*time.Minute))
	require.NoError(t, srv.AddUser("alice@example.com", "secret", map[string]any{"firstName": "Alice"}))

	var bad authResp
	err := gw.Post(ctx, gateway.Endpoints.Auth.Login, map[string]any{"email": "alice@example.com", "password": "nope"}, &bad)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err))

	var resp authResp
	require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.Login,
		map[string]any{"email": "Alice@example.com", "password": "secret"}, &resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, 600, resp.ExpiresIn)
	assert.Equal(t, "Alice", resp.User["firstName"])

	var me map[string]any
	err = gw.Get(ctx, gateway.Endpoints.Auth.Me, &me)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err))

	gw.SetAuthToken(resp.Token)
	require.NoError(t, gw.Get(ctx, gateway.Endpoints.Auth.Me, &me))
	assert.Equal(t, "alice@example.com", me["email"])

	require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.Logout, nil, nil))
	err = gw.Get(ctx, gateway.Endpoints.Auth.Me, &me)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err), "logout revokes the access token")

	var refreshed authResp
	err = gw.Post(ctx, gateway.Endpoints.Auth.RefreshToken, map[string]any{"refreshToken": resp.RefreshToken}, &refreshed)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err), "logout revokes refresh tokens")
}

func TestServer_RefreshRotates(t *testing.T) {
	ctx := context.Background()
	srv, gw := newClient(t)
	require.NoError(t, srv.AddUser("bob@example.com", "pw", nil))

	var login authResp
	require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.Login, map[string]any{"email": "bob@example.com", "password": "pw"}, &login))

	var next authResp
	require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.RefreshToken, map[string]any{"refreshToken": login.RefreshToken}, &next))
	assert.NotEqual(t, login.RefreshToken, next.RefreshToken)
	assert.Nil(t, next.User)

	err := gw.Post(ctx, gateway.Endpoints.Auth.RefreshToken, map[string]any{"refreshToken": login.RefreshToken}, &next)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err))

	srv.RevokeRefreshTokens()
	err = gw.Post(ctx, gateway.Endpoints.Auth.RefreshToken, map[string]any{"refreshToken": next.RefreshToken}, &next)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err))
}

func TestServer_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Immediate Token", func(t *testing.T) {
		_, gw := newClient(t)
		var resp authResp
		require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.Register,
			map[string]any{"email": "c@example.com", "password": "pw", "firstName": "Cy"}, &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "Cy", resp.User["firstName"])
		assert.NotContains(t, resp.User, "password")

		err := gw.Post(ctx, gateway.Endpoints.Auth.Register, map[string]any{"email": "c@example.com", "password": "pw"}, nil)
		var apiErr *gateway.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusConflict, apiErr.Status)
		assert.Equal(t, "Email already registered", apiErr.DataMessage())
	})

	t.Run("Verification Required", func(t *testing.T) {
		_, gw := newClient(t, mockapi.WithEmailVerification())
		var resp authResp
		require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.Register,
			map[string]any{"email": "d@example.com", "password": "pw"}, &resp))
		assert.Empty(t, resp.Token)

		err := gw.Post(ctx, gateway.Endpoints.Auth.Login, map[string]any{"email": "d@example.com", "password": "pw"}, nil)
		assert.Equal(t, http.StatusForbidden, gateway.StatusOf(err))

		require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.VerifyEmail, map[string]any{"token": "d@example.com"}, nil))
		require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.Login, map[string]any{"email": "d@example.com", "password": "pw"}, &resp))
		assert.NotEmpty(t, resp.Token)
	})
}

func TestServer_ProfileEndpoints(t *testing.T) {
	ctx := context.Background()
	srv, gw := newClient(t)
	require.NoError(t, srv.AddUser("e@example.com", "old", nil))

	var login authResp
	require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.Login, map[string]any{"email": "e@example.com", "password": "old"}, &login))
	gw.SetAuthToken(login.Token)

	var user map[string]any
	require.NoError(t, gw.Put(ctx, gateway.Endpoints.Users.Profile, map[string]any{"lastName": "Eve", "role": "admin"}, &user))
	assert.Equal(t, "Eve", user["lastName"])
	assert.Equal(t, "member", user["role"], "role cannot be self-assigned")

	err := gw.Put(ctx, gateway.Endpoints.Users.Password, map[string]any{"currentPassword": "wrong", "newPassword": "new"}, nil)
	assert.Equal(t, http.StatusBadRequest, gateway.StatusOf(err))
	require.NoError(t, gw.Put(ctx, gateway.Endpoints.Users.Password, map[string]any{"currentPassword": "old", "newPassword": "new"}, nil))

	var uploaded map[string]any
	require.NoError(t, gw.Upload(ctx, gateway.Endpoints.Users.Avatar, "avatar", "me.png", bytes.NewReader([]byte("png")), &uploaded))
	u := uploaded["user"].(map[string]any)
	assert.Contains(t, u["avatar"], "me.png")

	users := srv.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "Eve", users[0].LastName)
}

func TestServer_PasswordReset(t *testing.T) {
	ctx := context.Background()
	_, gw := newClient(t)

	require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.ResetPassword, map[string]any{"email": "x@example.com"}, nil))
	err := gw.Post(ctx, gateway.Endpoints.Auth.ResetPasswordConfirm,
		map[string]any{"token": "t", "password": "a", "confirmPassword": "b"}, nil)
	assert.Equal(t, http.StatusBadRequest, gateway.StatusOf(err))
	require.NoError(t, gw.Post(ctx, gateway.Endpoints.Auth.ResetPasswordConfirm,
		map[string]any{"token": "t", "password": "a", "confirmPassword": "a"}, nil))
}
