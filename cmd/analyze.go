package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/asymptote/analyze"
	"github.com/gnolang/asymptote/formatter"
	"github.com/gnolang/asymptote/internal"
	"github.com/gnolang/asymptote/internal/types"
)

var (
	modeFlag   string
	methodFlag string
	jsonOutput bool
	outPath    string
	watch      bool
	noCache    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Analyze .json ASTs and .go sources",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if modeFlag != "" {
			cfg.Mode = modeFlag
		}
		if methodFlag != "" {
			cfg.PreferredMethod = methodFlag
		}
		mode, err := types.ParseMode(cfg.Mode)
		if err != nil {
			return err
		}

		engine, err := analyze.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize analysis engine: %w", err)
		}

		processor, err := newProcessor()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		results, err := analyze.ProcessFiles(ctx, logger, engine, args, mode, processor)
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			return err
		}
		if err := printResults(cmd.OutOrStdout(), results, jsonOutput, outPath); err != nil {
			return err
		}

		if watch {
			return watchPaths(cmd, engine, mode, args)
		}

		if n := countFailures(results); n > 0 {
			return fmt.Errorf("%d analyses failed", n)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&modeFlag, "mode", "", "Case to analyze: worst, best, avg or all")
	analyzeCmd.Flags().StringVar(&methodFlag, "method", "", "Recurrence method: auto, master, iteration, tree or characteristic")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	analyzeCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	analyzeCmd.Flags().BoolVar(&watch, "watch", false, "Re-analyze files when they change")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the result cache")
}

func newProcessor() (analyze.Processor, error) {
	if noCache || !cfg.Cache.Enabled {
		return analyze.ProcessFile, nil
	}
	cache, err := internal.NewCache(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	cache.SetMaxAge(cfg.Cache.MaxAge)
	if n, err := cache.Prune(); err != nil {
		logger.Warn("cache prune failed", zap.Error(err))
	} else if n > 0 {
		logger.Debug("pruned cache entries", zap.Int("count", n))
	}

	// everything that changes a result is part of the key
	return analyze.CachedProcessor(cache,
		cfg.PreferredMethod,
		cfg.SizeVariable,
		strings.Join(cfg.SizeAliases, ","),
		cfg.Probability.Model,
		strings.Join(cfg.Probability.Symbols, ","),
	), nil
}

func printResults(w io.Writer, results []*types.AnalysisResult, isJSON bool, path string) error {
	if isJSON {
		if path == "" {
			return formatter.WriteJSON(w, results)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("error creating JSON output file: %w", err)
		}
		defer f.Close()
		return formatter.WriteJSON(f, results)
	}

	// text output, one block per file in input order
	var files []string
	byFile := make(map[string][]*types.AnalysisResult)
	for _, r := range results {
		if _, ok := byFile[r.File]; !ok {
			files = append(files, r.File)
		}
		byFile[r.File] = append(byFile[r.File], r)
	}
	for _, file := range files {
		var src *formatter.SourceCode
		if strings.EqualFold(filepath.Ext(file), ".go") {
			s, err := formatter.ReadSourceCode(file)
			if err != nil {
				logger.Error("Error reading source file", zap.String("file", file), zap.Error(err))
			} else {
				src = s
			}
		}
		fmt.Fprint(w, formatter.GenerateFormattedResult(byFile[file], src))
	}
	return nil
}

func watchPaths(cmd *cobra.Command, engine *internal.Engine, mode types.Mode, paths []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	w := internal.NewWatcher(engine, mode, func(filename string, results []*types.AnalysisResult, err error) {
		if err != nil {
			fmt.Fprintf(out, "error: %s: %v\n", filename, err)
			return
		}
		if err := printResults(out, results, jsonOutput, ""); err != nil {
			logger.Error("Error printing results", zap.Error(err))
		}
	})
	if err := w.Start(paths...); err != nil {
		return err
	}
	logger.Info("watching for changes", zap.Strings("paths", paths))

	<-ctx.Done()
	return w.Stop()
}

func countFailures(results []*types.AnalysisResult) int {
	n := 0
	for _, r := range results {
		if r.Failure != nil {
			n++
		}
	}
	return n
}
