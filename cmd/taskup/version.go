package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/taskup"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of taskup",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("taskup version %s\n", strings.TrimSpace(taskup.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
