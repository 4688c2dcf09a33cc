package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "worst", cfg.Mode)
	assert.Equal(t, "n", cfg.SizeVariable)
	assert.Equal(t, []string{"length", "len", "size"}, cfg.SizeAliases)
	assert.Equal(t, 24*time.Hour, cfg.Cache.MaxAge)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	content := `mode: all
size_variable: m
preferred_method: tree
probability:
  model: symbolic
  symbols: [q]
logging:
  level: debug
cache:
  max_age: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "all", cfg.Mode)
	assert.Equal(t, "m", cfg.SizeVariable)
	assert.Equal(t, "tree", cfg.PreferredMethod)
	assert.Equal(t, "symbolic", cfg.Probability.Model)
	assert.Equal(t, []string{"q"}, cfg.Probability.Symbols)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ASYMPTOTE_MODE", "best")
	t.Setenv("ASYMPTOTE_SERVER_ADDR", "127.0.0.1:9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "best", cfg.Mode)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: sideways\npreferred_method: guess\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Equal(t, "mode", verrs[0].Field)
	assert.Equal(t, "preferred_method", verrs[1].Field)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
