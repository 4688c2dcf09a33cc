package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/asymptote/analyze"
	"github.com/gnolang/asymptote/internal"
)

var (
	treeProcedure string
	treeDepth     int
	treeOutput    string
)

// treeCmd: asymptote tree <file>
var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Render the recursion tree of a procedure as GraphViz DOT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]
		if !internal.Supported(filename) {
			return fmt.Errorf("unsupported file: %s", filename)
		}
		src, err := os.ReadFile(filename)
		if err != nil {
			return err
		}

		engine, err := analyze.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize analysis engine: %w", err)
		}

		dot, err := engine.Tree(filename, src, treeProcedure, treeDepth)
		if err != nil {
			return err
		}
		logger.Debug("rendered recursion tree", zap.String("file", filename), zap.Int("depth", treeDepth))

		if treeOutput == "" {
			_, err = fmt.Fprint(cmd.OutOrStdout(), dot)
			return err
		}
		return os.WriteFile(treeOutput, []byte(dot), 0o644)
	},
}

func init() {
	treeCmd.Flags().StringVarP(&treeProcedure, "procedure", "p", "", "Procedure to render (default: the first recursive one)")
	treeCmd.Flags().IntVarP(&treeDepth, "depth", "d", internal.DefaultTreeDepth, "Number of tree levels to expand")
	treeCmd.Flags().StringVarP(&treeOutput, "output", "o", "", "Write the DOT graph to a file")
}
