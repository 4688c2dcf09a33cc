package analyze

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gnolang/asymptote/internal"
	"github.com/gnolang/asymptote/internal/config"
	"github.com/gnolang/asymptote/internal/probability"
	"github.com/gnolang/asymptote/internal/types"
)

func TestMain(m *testing.M) {
	ProgressWriter = io.Discard
	goleak.VerifyTestMain(m)
}

const fibJSON = `{
  "kind": "recursive",
  "procedure": "fib",
  "ast": {"type": "Program", "body": [
    {"type": "ProcDef", "name": "fib", "params": ["n"], "line": 1, "body": [
      {"type": "If", "line": 2,
       "cond": {"type": "Binary", "op": "<=", "left": {"type": "Identifier", "name": "n"}, "right": {"type": "Number", "value": 1}},
       "then": [{"type": "Return", "line": 3, "value": {"type": "Identifier", "name": "n"}}]},
      {"type": "Return", "line": 4, "value": {"type": "Binary", "op": "+",
        "left": {"type": "Call", "name": "fib", "args": [{"type": "Binary", "op": "-", "left": {"type": "Identifier", "name": "n"}, "right": {"type": "Number", "value": 1}}]},
        "right": {"type": "Call", "name": "fib", "args": [{"type": "Binary", "op": "-", "left": {"type": "Identifier", "name": "n"}, "right": {"type": "Number", "value": 2}}]}}}
    ]}
  ]}
}`

const scanGo = `package scan

func sum(a []int) int {
	s := 0
	for i := 0; i < len(a); i++ {
		s += a[i]
	}
	return s
}

func pairs(n int) int {
	c := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c++
		}
	}
	return c
}
`

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"broken.json":    `{"type": `,
		"fib.json":       fibJSON,
		"notes.txt":      "not analyzed",
		"sub/scan.go":    scanGo,
		"sub/README.md":  "# ignored",
		"sub/const.json": `{"type": "Program", "body": [{"type": "Assign", "target": {"type": "Identifier", "name": "x"}, "value": {"type": "Number", "value": 1}}]}`,
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func newEngine(t *testing.T) *internal.Engine {
	t.Helper()
	engine, err := New(config.DefaultConfig(), nil)
	require.NoError(t, err)
	return engine
}

func TestOptions(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.SizeVariable = "m"
	cfg.PreferredMethod = "tree"
	cfg.Probability = config.ProbabilityConfig{Model: "symbolic", Symbols: []string{"q"}}

	opts, err := Options(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "m", opts.Symbols.SizeVar)
	assert.Equal(t, types.MethodRecursionTree, opts.PreferredMethod)
	assert.Equal(t, probability.Symbolic, opts.Probability.Kind)
	assert.Equal(t, []string{"q"}, opts.Probability.Symbols)

	cfg.PreferredMethod = "guess"
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, types.ErrInvalidPreferredMethod)
}

func TestProcessPathDirectory(t *testing.T) {
	t.Parallel()

	dir := writeFixtures(t)
	results, err := ProcessPath(context.Background(), nil, newEngine(t), dir, types.Worst, ProcessFile)
	require.NoError(t, err)

	// broken.json, fib.json, sub/const.json, sub/scan.go (sum, pairs)
	require.Len(t, results, 5)

	require.NotNil(t, results[0].Failure)
	assert.Equal(t, types.CodeInvalidInput, results[0].Failure.Code)
	assert.Equal(t, filepath.Join(dir, "broken.json"), results[0].File)

	assert.Equal(t, "1.618ⁿ", results[1].Totals.BigTheta)
	assert.Equal(t, "1", results[2].Totals.BigTheta)
	assert.Equal(t, "sum", results[3].Procedure)
	assert.Equal(t, "n", results[3].Totals.BigTheta)
	assert.Equal(t, "pairs", results[4].Procedure)
	assert.Equal(t, "n²", results[4].Totals.BigTheta)
}

func TestProcessPathSingleFile(t *testing.T) {
	t.Parallel()

	dir := writeFixtures(t)
	engine := newEngine(t)

	results, err := ProcessPath(context.Background(), nil, engine, filepath.Join(dir, "fib.json"), types.Worst, ProcessFile)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = ProcessPath(context.Background(), nil, engine, filepath.Join(dir, "notes.txt"), types.Worst, ProcessFile)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = ProcessPath(context.Background(), nil, engine, filepath.Join(dir, "missing.json"), types.Worst, ProcessFile)
	assert.Error(t, err)
}

func TestProcessPathContextCancellation(t *testing.T) {
	t.Parallel()

	dir := writeFixtures(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := ProcessPath(ctx, nil, newEngine(t), dir, types.Worst, ProcessFile)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()

	dir := writeFixtures(t)
	engine := newEngine(t)
	paths := []string{filepath.Join(dir, "sub", "scan.go"), filepath.Join(dir, "fib.json")}

	results, err := ProcessFiles(context.Background(), nil, engine, paths, types.Worst, ProcessFile)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "sum", results[0].Procedure)
	assert.Equal(t, "fib", results[2].Procedure)

	paths = append(paths, filepath.Join(dir, "missing"))
	results, err = ProcessFiles(context.Background(), nil, engine, paths, types.Worst, ProcessFile)
	assert.Error(t, err)
	assert.Len(t, results, 3)
}

func TestCachedProcessor(t *testing.T) {
	t.Parallel()

	dir := writeFixtures(t)
	cache, err := internal.NewCache(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	engine := newEngine(t)
	process := CachedProcessor(cache, "auto")
	path := filepath.Join(dir, "fib.json")

	first, err := process(engine, path, types.Worst)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	second, err := process(engine, path, types.Worst)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
	require.Len(t, second, 1)
	assert.Equal(t, path, second[0].File)
	assert.Equal(t, first[0].Totals.BigTheta, second[0].Totals.BigTheta)
	assert.Equal(t, first[0].Totals.Recurrence.String(), second[0].Totals.Recurrence.String())

	_, err = process(engine, path, types.Best)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
}
