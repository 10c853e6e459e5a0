package main

import (
	"os"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/cli"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Inspect the route table",
}

var routesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every route with its guard and title",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.ListRoutes(app.Router, stdout())
	},
}

var routesResolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Show which route a path matches and its parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.ResolveRoute(app.Router, stdout(), args[0])
	},
}

var routesGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the route table as a Mermaid flowchart",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetString("at")
		m, err := taskup.DefaultManifest()
		if err != nil {
			return err
		}
		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.RouteGraph(app.Router, m, os.Stdout, at)
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.AddCommand(routesListCmd, routesResolveCmd, routesGraphCmd)
	routesGraphCmd.Flags().String("at", "", "Highlight the route this path resolves to")
}
