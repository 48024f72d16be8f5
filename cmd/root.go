package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "meshcluster",
	Short: "Graph-coloring clustering for multi-hop wireless networks",
	Long: `A self-stabilizing distributed clustering protocol: nodes color
themselves from their 1-hop neighborhood, derive cluster-head, member
and gateway roles from the coloring, and route best-effort data
traffic over the resulting backbone.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
