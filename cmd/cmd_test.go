package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/asymptote/analyze"
	"github.com/gnolang/asymptote/internal/config"
	"github.com/gnolang/asymptote/internal/types"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	analyze.ProgressWriter = io.Discard
	os.Exit(m.Run())
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

// run executes the root command in a fresh temporary working directory
// with the given files and returns its output.
func run(t *testing.T, files map[string]string, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	for name, content := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	}

	cfgFile, logLevel = "", "error"
	timeout = defaultTimeout
	modeFlag, methodFlag, outPath = "", "", ""
	jsonOutput, watch, noCache = false, false, false
	treeProcedure, treeDepth, treeOutput = "", 4, ""
	serveAddr = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Equal(t, "asymptote dev\n", out)
}

func TestInit(t *testing.T) {
	out, err := run(t, nil, "init")
	require.NoError(t, err)
	assert.Contains(t, out, config.DefaultFileName)

	loaded, err := config.Load(config.DefaultFileName)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Mode, loaded.Mode)

	_, err = rootCmd.ExecuteC()
	assert.Error(t, err, "init must not overwrite an existing file")
}

func TestAnalyzeText(t *testing.T) {
	out, err := run(t, map[string]string{"fib.json": fibJSON}, "analyze", "--no-cache", "fib.json")
	require.NoError(t, err)
	assert.Contains(t, out, "recursive: fib [worst]")
	assert.Contains(t, out, " --> fib.json")
	assert.Contains(t, out, "Θ(1.618ⁿ)")
	assert.Contains(t, out, "Method: Characteristic Equation")
}

func TestRootRunsAnalyze(t *testing.T) {
	out, err := run(t, map[string]string{"fib.json": fibJSON}, "fib.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Θ(1.618ⁿ)")

	_, err = os.Stat(filepath.Join(config.DefaultConfig().Cache.Dir, "analysis_cache.gob"))
	assert.NoError(t, err, "cache is enabled by default")
}

func TestAnalyzeJSONOutput(t *testing.T) {
	out, err := run(t, map[string]string{"algos/fib.json": fibJSON},
		"analyze", "--no-cache", "--json", "-o", "out.json", "algos")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile("out.json")
	require.NoError(t, err)
	results, err := types.DecodeResults(data)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join("algos", "fib.json"), results[0].File)
	assert.Equal(t, "1.618ⁿ", results[0].Totals.BigTheta)
}

func TestAnalyzeFailures(t *testing.T) {
	out, err := run(t, map[string]string{"broken.json": `{"type": `}, "analyze", "--no-cache", "broken.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 analyses failed")
	assert.Contains(t, out, "error[InvalidInput]")
}

func TestAnalyzeFlagValidation(t *testing.T) {
	_, err := run(t, map[string]string{"fib.json": fibJSON}, "analyze", "--mode", "median", "fib.json")
	assert.Error(t, err)

	_, err = run(t, map[string]string{"fib.json": fibJSON}, "analyze", "--method", "guess", "fib.json")
	assert.Error(t, err)

	_, err = run(t, nil, "analyze", "missing.json")
	assert.Error(t, err)
}

func TestAnalyzeMethodFlag(t *testing.T) {
	out, err := run(t, map[string]string{"fib.json": fibJSON}, "analyze", "--no-cache", "--method", "master", "fib.json")
	require.Error(t, err)
	assert.Contains(t, out, "error[InvalidPreferredMethod]")
}

func TestConfigFile(t *testing.T) {
	files := map[string]string{
		"fib.json":    fibJSON,
		"custom.yaml": "mode: best\ncache:\n  enabled: false\n",
	}
	out, err := run(t, files, "--config", "custom.yaml", "analyze", "fib.json")
	require.NoError(t, err)
	assert.Contains(t, out, "recursive: fib [best]")

	_, err = os.Stat(config.DefaultConfig().Cache.Dir)
	assert.True(t, os.IsNotExist(err))

	_, err = run(t, map[string]string{"bad.yaml": "mode: median\n"}, "--config", "bad.yaml", "version")
	assert.Error(t, err)
}

func TestTreeCommand(t *testing.T) {
	out, err := run(t, map[string]string{"fib.json": fibJSON}, "tree", "-d", "3", "fib.json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph recursion {"))
	assert.Equal(t, 2+4, strings.Count(out, "->"))

	_, err = run(t, map[string]string{"fib.json": fibJSON}, "tree", "-p", "other", "fib.json")
	assert.ErrorIs(t, err, types.ErrNoRecursiveCallFound)

	_, err = run(t, map[string]string{"fib.txt": "x"}, "tree", "fib.txt")
	assert.Error(t, err)
}

func TestTimeoutFlag(t *testing.T) {
	_, err := run(t, map[string]string{"algos/fib.json": fibJSON}, "--timeout", time.Nanosecond.String(), "analyze", "algos")
	assert.Error(t, err)
}
