package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/mockapi"
	"github.com/aretw0/taskup/pkg/auth"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/router"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *taskup.App) {
	t.Helper()
	backend := mockapi.New()
	require.NoError(t, backend.AddUser("alice@example.com", "secret", map[string]any{"firstName": "Alice", "role": "admin"}))
	api := httptest.NewServer(backend.Handler())
	t.Cleanup(api.Close)

	app, err := taskup.New(taskup.WithBaseURL(api.URL + mockapi.BasePath))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, app.Init(ctx))
	_, _ = app.Router.Wait(ctx)

	return NewServer(app, WithNavigateTimeout(2*time.Second)), app
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestNavigate(t *testing.T) {
	s, app := newTestServer(t)
	ctx := context.Background()

	args := map[string]any{"path": "/app/tasks/t-1"}
	resp, err := s.handleNavigate(ctx, call(args), args)
	require.NoError(t, err)
	assert.Equal(t, router.OutcomeDenied, resp.Navigation.Status)
	assert.Equal(t, "/auth/sign-in", resp.Location.Path)

	_, err = app.Auth.Login(ctx, "alice@example.com", "secret", false)
	require.NoError(t, err)

	resp, err = s.handleNavigate(ctx, call(args), args)
	require.NoError(t, err)
	assert.Equal(t, router.OutcomeResolved, resp.Navigation.Status)
	assert.Equal(t, router.StatusResolved, resp.Status)
	assert.Equal(t, "t-1", resp.Current.Params["id"])

	cur, err := s.handleCurrentRoute(ctx, call(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "/app/tasks/:id", cur.Current.Pattern)

	_, err = s.handleNavigate(ctx, call(map[string]any{}), map[string]any{})
	assert.Error(t, err)
}

func TestSessionStatus(t *testing.T) {
	s, app := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleSessionStatus(ctx, call(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, auth.StateAnonymous, resp.State)
	assert.False(t, resp.IsAuthenticated)

	_, err = app.Auth.Login(ctx, "alice@example.com", "secret", false)
	require.NoError(t, err)

	resp, err = s.handleSessionStatus(ctx, call(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, auth.StateAuthenticated, resp.State)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.False(t, resp.TokenExpiry.IsZero())
}

func TestDispatch(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleDispatch(ctx, call(map[string]any{"type": "NOT_AN_ACTION"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleDispatch(ctx, call(map[string]any{"type": "UI_SIDEBAR_TOGGLE", "payload": "{nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleDispatch(ctx, call(map[string]any{"type": "UI_SIDEBAR_TOGGLE", "payload": "true"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Changed map[string]json.RawMessage `json:"changed"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Contains(t, out.Changed, domain.SliceUI)
	assert.NotContains(t, out.Changed, domain.SliceTasks)
}

func TestGetState(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleGetState(ctx, call(nil))
	require.NoError(t, err)
	var tree map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &tree))
	assert.Len(t, tree, len(domain.SliceNames))

	result, err = s.handleGetState(ctx, call(map[string]any{"slice": domain.SliceApp}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `"initialized":true`)

	result, err = s.handleGetState(ctx, call(map[string]any{"slice": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
