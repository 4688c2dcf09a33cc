package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnolang/asymptote/internal/config"
)

// initCmd: asymptote init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultFileName
		}
		if err := config.WriteDefault(path); err != nil {
			return fmt.Errorf("error initializing config file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", path)
		return nil
	},
}
