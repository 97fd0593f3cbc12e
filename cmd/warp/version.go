package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/warp"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of warp",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "warp version %s\n", strings.TrimSpace(warp.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
