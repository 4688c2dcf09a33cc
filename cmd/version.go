package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set with -ldflags "-X github.com/gnolang/asymptote/cmd.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "asymptote %s\n", version)
	},
}
