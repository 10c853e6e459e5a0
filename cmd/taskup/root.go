package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/cli"
	"github.com/aretw0/taskup/internal/config"
	"github.com/aretw0/taskup/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "taskup",
	Short:         "TaskUp is a project management client core",
	Long:          `TaskUp manages the session, routes and state of a TaskUp client against a TaskUp backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("api", "", "Backend base URL (overrides api.base_url)")
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		cfg.API.BaseURL = api
	}
	debug, _ := cmd.Flags().GetBool("debug")
	return cfg, cli.NewLogger(cfg.Log, debug), nil
}

// openApp builds an App that reports notices on stderr.
func openApp(ctx context.Context, cmd *cobra.Command) (*taskup.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(ctx, cfg, logger, taskup.WithNotifier(cli.ConsoleNotifier(os.Stderr)))
}

func stdout() cli.Output {
	return cli.Output{W: os.Stdout, Render: tui.NewRenderer(os.Stdout)}
}
