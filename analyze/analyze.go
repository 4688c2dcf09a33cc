// Package analyze is the batch facade over the analysis engine: it walks
// paths, analyzes supported files in parallel and keeps results in file
// order.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/asymptote/internal"
	"github.com/gnolang/asymptote/internal/ast"
	"github.com/gnolang/asymptote/internal/config"
	"github.com/gnolang/asymptote/internal/probability"
	"github.com/gnolang/asymptote/internal/types"
)

// ProgressWriter receives the progress bar drawn while a directory is analyzed.
var ProgressWriter io.Writer = os.Stderr

type Engine interface {
	Run(filename string, mode types.Mode) ([]*types.AnalysisResult, error)
	RunSource(filename string, src []byte, mode types.Mode) ([]*types.AnalysisResult, error)
}

// Processor analyzes one file.
type Processor func(engine Engine, path string, mode types.Mode) ([]*types.AnalysisResult, error)

// Options converts configuration into engine options.
func Options(cfg *config.Config, logger *zap.Logger) (internal.Options, error) {
	method, err := types.ParseMethod(cfg.PreferredMethod)
	if err != nil {
		return internal.Options{}, err
	}
	model, err := probability.Parse(cfg.Probability.Model, cfg.Probability.Symbols)
	if err != nil {
		return internal.Options{}, err
	}
	return internal.Options{
		Symbols: ast.Symbols{
			SizeVar: cfg.SizeVariable,
			Aliases: cfg.SizeAliases,
		},
		Probability:     model,
		PreferredMethod: method,
		Logger:          logger,
	}, nil
}

// New builds an engine from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*internal.Engine, error) {
	opts, err := Options(cfg, logger)
	if err != nil {
		return nil, err
	}
	return internal.NewEngine(opts), nil
}

func ProcessFile(engine Engine, path string, mode types.Mode) ([]*types.AnalysisResult, error) {
	return engine.Run(path, mode)
}

// CachedProcessor serves results from cache when the file content, the
// mode and every variant string match an earlier run.
func CachedProcessor(cache *internal.Cache, variant ...string) Processor {
	return func(engine Engine, path string, mode types.Mode) ([]*types.AnalysisResult, error) {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading file: %w", err)
		}
		key := internal.CacheKey(src, append([]string{filepath.Ext(path), string(mode)}, variant...)...)
		if results, ok := cache.Get(key); ok {
			setFile(results, path)
			return results, nil
		}

		results, err := engine.RunSource(path, src, mode)
		if err != nil {
			return nil, err
		}
		setFile(results, path)
		if err := cache.Set(key, results); err != nil {
			return nil, err
		}
		return results, nil
	}
}

func setFile(results []*types.AnalysisResult, path string) {
	for _, r := range results {
		r.File = path
	}
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine Engine,
	paths []string,
	mode types.Mode,
	processor Processor,
) ([]*types.AnalysisResult, error) {
	var all []*types.AnalysisResult
	for _, path := range paths {
		results, err := ProcessPath(ctx, logger, engine, path, mode, processor)
		all = append(all, results...)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return all, err
		}
	}

	return all, nil
}

// ProcessPath analyzes a file or every supported file under a directory.
// A file whose analysis fails with an AnalysisError contributes a result
// carrying the failure; other per-file errors are logged and skipped. On
// cancellation the results gathered so far are returned with ctx.Err().
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine Engine,
	path string,
	mode types.Mode,
	processor Processor,
) ([]*types.AnalysisResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		if !internal.Supported(path) {
			return nil, nil
		}
		results, err := processor(engine, path, mode)
		if err != nil {
			if failed := failure(path, mode, err); failed != nil {
				return []*types.AnalysisResult{failed}, nil
			}
			return nil, err
		}
		return results, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && internal.Supported(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", path, err)
	}

	perFile := make([][]*types.AnalysisResult, len(files))
	bar := newProgressBar(path, len(files))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, fp := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results, err := processor(engine, fp, mode)
			if err != nil {
				logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
				if failed := failure(fp, mode, err); failed != nil {
					results = []*types.AnalysisResult{failed}
				}
			}
			perFile[i] = results
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	out := make([]*types.AnalysisResult, 0, len(files))
	for _, results := range perFile {
		out = append(out, results...)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func failure(path string, mode types.Mode, err error) *types.AnalysisResult {
	var ae *types.AnalysisError
	if !errors.As(err, &ae) {
		return nil
	}
	return &types.AnalysisResult{File: path, Mode: mode, Failure: ae}
}

func newProgressBar(description string, total int) *progressbar.ProgressBar {
	if total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(ProgressWriter),
		progressbar.OptionSetDescription(description),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
