package main

import (
	"context"
	"os"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/cli"
	"github.com/aretw0/taskup/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control API",
	Long: `Builds a TaskUp client core and exposes it over HTTP:

  GET  /api/state, /api/route, /api/session
  POST /api/navigate, /api/dispatch, /api/session (login)
  GET  /api/events (websocket, CloudEvents)
  GET  /metrics (Prometheus)

With --mock an in-process backend is started and seeded with a demo account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		mock, _ := cmd.Flags().GetBool("mock")

		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, taskup.Version)
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		return cli.Serve(ctx, cfg, logger, cli.ServeOptions{Mock: mock})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().Bool("mock", false, "Run against an in-process mock backend")
}
