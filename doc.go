/*
Package taskup is the client core of the TaskUp project manager: a state
store, a path router with access guards, and a session manager with token
refresh, wired together behind a single App.

# Components

  - store: one tree of named slices, replaced only by reducers in response to
    dispatched actions. Listeners see every new tree in subscription order.
  - router: ordered route table with ':name' parameters, auth/guest/admin
    guards and asynchronous view handlers. The last navigation wins.
  - auth: login, logout, registration and profile operations over the backend
    gateway, plus a background check that refreshes tokens before they expire.

The App mirrors session events into the store's user slice and sends an
expired session to the sign-in page with a returnTo hint.

# Usage

	app, err := taskup.New(
		taskup.WithBaseURL("https://api.example.com/api/v1"),
		taskup.WithKVStore(file.New(".taskup/storage")),
		taskup.WithViews(map[string]router.Handler{
			"dashboard": renderDashboard,
		}),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	ctx := context.Background()
	if err := app.Init(ctx); err != nil {
		log.Fatal(err)
	}

	if _, err := app.Auth.Login(ctx, "alice@example.com", "secret", true); err != nil {
		log.Println(auth.ErrorMessage(err, auth.MsgLoginFailed))
	}
	app.Navigate(ctx, "/app/dashboard")
*/
package taskup
