// Package mcp exposes a running App to MCP clients: route navigation,
// action dispatch and read access to the session and the state tree.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/auth"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/router"
	"github.com/aretw0/taskup/pkg/store"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StateURI is the resource serving the state tree.
const StateURI = "taskup://state"

// RouteResponse is the structured result of navigate and current_route.
type RouteResponse struct {
	Status     router.Status           `json:"status" jsonschema_description:"Router resolution status"`
	Title      string                  `json:"title" jsonschema_description:"Document title"`
	Location   router.Location         `json:"location" jsonschema_description:"History location the router is at"`
	Current    *router.CurrentRoute    `json:"current,omitempty" jsonschema_description:"Last route whose guard passed"`
	Navigation *domain.NavigationEvent `json:"navigation,omitempty" jsonschema_description:"How the requested navigation settled"`
	Error      string                  `json:"error,omitempty" jsonschema_description:"View handler failure, if any"`
}

// SessionResponse is the structured result of session_status. Tokens are never exposed.
type SessionResponse struct {
	State           auth.State   `json:"state" jsonschema_description:"ANONYMOUS, AUTHENTICATED or REFRESHING"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *domain.User `json:"user,omitempty"`
	TokenExpiry     time.Time    `json:"tokenExpiry,omitzero"`
}

// Server wraps an App and exposes it as an MCP server.
type Server struct {
	app       *taskup.App
	mcpServer *server.MCPServer
	logger    *slog.Logger
	timeout   time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithNavigateTimeout bounds how long the navigate tool waits for the view.
func WithNavigateTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// NewServer creates an MCP server for app.
func NewServer(app *taskup.App, opts ...Option) *Server {
	s := &Server{
		app:       app,
		mcpServer: server.NewMCPServer("taskup-mcp", strings.TrimSpace(taskup.Version)),
		logger:    logging.NewNop(),
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	mux := http.NewServeMux()
	mux.Handle("/sse", c.Handler(sseServer.SSEHandler()))
	mux.Handle("/message", c.Handler(sseServer.MessageHandler()))

	httpServer := &http.Server{Addr: addr, Handler: mux}
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("navigate",
		mcp.WithDescription("Navigate the router to a path and wait for the view to load."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Target path, e.g. /app/projects/42")),
		mcp.WithBoolean("replace", mcp.Description("Replace the current history entry instead of pushing")),
		mcp.WithOutputSchema[RouteResponse](),
	), mcp.NewStructuredToolHandler(s.handleNavigate))

	s.mcpServer.AddTool(mcp.NewTool("current_route",
		mcp.WithDescription("Get the route the router is currently on."),
		mcp.WithOutputSchema[RouteResponse](),
	), mcp.NewStructuredToolHandler(s.handleCurrentRoute))

	s.mcpServer.AddTool(mcp.NewTool("dispatch",
		mcp.WithDescription("Dispatch an action to the state store and return the changed slices."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Action type, e.g. UI_SIDEBAR_TOGGLE")),
		mcp.WithString("payload", mcp.Description("JSON encoded action payload")),
	), s.handleDispatch)

	s.mcpServer.AddTool(mcp.NewTool("session_status",
		mcp.WithDescription("Get the authentication state and the signed-in user."),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleSessionStatus))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the state tree, or a single slice of it."),
		mcp.WithString("slice", mcp.Description("Slice name: app, user, projects, tasks, teams, notifications or ui")),
	), s.handleGetState)
}

func (s *Server) routeResponse() RouteResponse {
	return RouteResponse{
		Status:   s.app.Router.Status(),
		Title:    s.app.Router.Title(),
		Location: s.app.Router.Location(),
		Current:  s.app.Router.Current(),
	}
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RouteResponse, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return RouteResponse{}, fmt.Errorf("path is required")
	}
	var opts []router.NavigateOption
	if replace, _ := args["replace"].(bool); replace {
		opts = append(opts, router.WithReplace())
	}

	nav := s.app.Router.Navigate(context.WithoutCancel(ctx), path, opts...)
	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ev, err := nav.Wait(wctx)
	if err != nil && wctx.Err() != nil {
		return RouteResponse{}, fmt.Errorf("navigation did not settle: %w", err)
	}
	_, _ = s.app.Router.Wait(wctx)

	resp := s.routeResponse()
	resp.Navigation = ev
	if err != nil {
		s.logger.Warn("MCP navigate: view failed", "path", path, "err", err)
		resp.Error = err.Error()
	}
	return resp, nil
}

func (s *Server) handleCurrentRoute(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RouteResponse, error) {
	return s.routeResponse(), nil
}

func (s *Server) handleSessionStatus(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SessionResponse, error) {
	sess := s.app.Auth.Session()
	return SessionResponse{
		State:           s.app.Auth.State(),
		IsAuthenticated: sess.IsAuthenticated,
		User:            sess.User,
		TokenExpiry:     sess.TokenExpiry,
	}, nil
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: type"), nil
	}
	t := domain.ActionType(typ)
	if !t.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown action type: %s", typ)), nil
	}

	var payload any
	if raw := request.GetString("payload", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("payload is not valid JSON: %v", err)), nil
		}
	}

	before := s.app.Store.GetState()
	action := s.app.Store.Dispatch(domain.NewAction(t, payload))
	after := s.app.Store.GetState()

	changed := make(map[string]any)
	for _, name := range store.Diff(before, after) {
		changed[name], _ = after.Get(name)
	}
	return jsonResult(map[string]any{"action": action, "changed": changed})
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.app.Store.GetState()
	name := request.GetString("slice", "")
	if name == "" {
		return jsonResult(st)
	}
	slice, ok := st.Get(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown slice: %s", name)), nil
	}
	return jsonResult(slice)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StateURI, "Application state tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		raw, err := json.Marshal(s.app.Store.GetState())
		if err != nil {
			return nil, fmt.Errorf("failed to encode state: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      StateURI,
				MIMEType: "application/json",
				Text:     string(raw),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
