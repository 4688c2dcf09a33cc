package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/asymptote/internal/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	log.Debug("solved")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "solved", entry["msg"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "info", parseLevel("").String())
	assert.Equal(t, "info", parseLevel("verbose").String())
	assert.Equal(t, "error", parseLevel("error").String())
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asymptote.log")
	log, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	log.Info("written")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
}
