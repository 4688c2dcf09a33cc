package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/asymptote/internal/config"
	applog "github.com/gnolang/asymptote/internal/logger"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile  string
	timeout  time.Duration
	logLevel string

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:              "asymptote [paths...]",
	Short:            "asymptote - cost tables and asymptotic bounds for algorithms",
	TraverseChildren: true, // Prioritize subcommands
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// no subcommand
		if len(args) == 0 {
			return cmd.Help()
		}
		// Format: asymptote [path1 path2 ...] => behaves like the analyze subcommand
		return analyzeCmd.RunE(cmd, args)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file (default "+config.DefaultFileName+" when present)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for a batch analysis")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and builds the logger.
func setup() error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(config.DefaultFileName); err == nil {
			path = config.DefaultFileName
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error accessing %s: %w", config.DefaultFileName, err)
		}
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}

	l, err := applog.New(loaded.Logging)
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}

	cfg = loaded
	logger = l
	logger.Debug("configuration loaded", zap.String("path", path))
	return nil
}
