package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/presentation/tui"
)

// Output is where command results go.
type Output struct {
	W      io.Writer
	Render tui.Renderer
	Now    func() time.Time
}

func (o Output) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Restore loads the persisted session without resolving any route.
func Restore(ctx context.Context, app *taskup.App) error {
	if err := app.Auth.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	return nil
}

// Login signs in and prints the resulting session.
func Login(ctx context.Context, app *taskup.App, out Output, email, password string, remember bool) error {
	if _, err := app.Auth.Login(ctx, email, password, remember); err != nil {
		return err
	}
	return Status(app, out)
}

// Logout ends the session; local skips the server call.
func Logout(ctx context.Context, app *taskup.App, out Output, local bool) error {
	if err := Restore(ctx, app); err != nil {
		return err
	}
	if !app.Auth.IsAuthenticated() {
		_, err := fmt.Fprintln(out.W, "Not signed in.")
		return err
	}
	if err := app.Auth.Logout(ctx, !local); err != nil {
		return err
	}
	return Status(app, out)
}

// Refresh exchanges the refresh token for a new access token.
func Refresh(ctx context.Context, app *taskup.App, out Output) error {
	if err := Restore(ctx, app); err != nil {
		return err
	}
	if _, err := app.Auth.RefreshToken(ctx); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return Status(app, out)
}

// Status prints the current session.
func Status(app *taskup.App, out Output) error {
	md := tui.SessionSummary(string(app.Auth.State()), app.Auth.Session(), out.now())
	return printMarkdown(out.W, out.Render, md)
}
