package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/taskup/internal/cli"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the persisted login session",
	Long:  `Sign in, sign out, inspect and refresh the session stored by the configured storage driver.`,
}

var sessionLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		remember, _ := cmd.Flags().GetBool("remember")

		var err error
		if email == "" {
			if email, err = (&promptui.Prompt{Label: "Email", Validate: required("email")}).Run(); err != nil {
				return fmt.Errorf("email: %w", err)
			}
		}
		if password == "" {
			if password, err = (&promptui.Prompt{Label: "Password", Mask: '*', Validate: required("password")}).Run(); err != nil {
				return fmt.Errorf("password: %w", err)
			}
		}

		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.Login(cmd.Context(), app, stdout(), email, password, remember)
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the persisted session",
	RunE: func(cmd *cobra.Command, args []string) error {
		local, _ := cmd.Flags().GetBool("local")
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.Logout(cmd.Context(), app, stdout(), local)
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted session",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		if err := cli.Restore(cmd.Context(), app); err != nil {
			return err
		}
		return cli.Status(app, stdout())
	},
}

var sessionRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.Refresh(cmd.Context(), app, stdout())
	},
}

func required(field string) promptui.ValidateFunc {
	return func(s string) error {
		if s == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLoginCmd, sessionLogoutCmd, sessionStatusCmd, sessionRefreshCmd)

	sessionLoginCmd.Flags().String("email", "", "Account email (prompted when empty)")
	sessionLoginCmd.Flags().String("password", "", "Account password (prompted when empty)")
	sessionLoginCmd.Flags().Bool("remember", false, "Ask the backend for a long-lived session")
	sessionLogoutCmd.Flags().Bool("local", false, "Skip the server-side logout call")
}
