package internal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/asymptote/internal/types"
)

type recorder struct {
	mu    sync.Mutex
	files []string
	theta []string
	seen  chan struct{}
}

func (r *recorder) report(filename string, results []*types.AnalysisResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, filepath.Base(filename))
	if err == nil && len(results) > 0 {
		r.theta = append(r.theta, results[0].Totals.BigTheta)
	}
	select {
	case r.seen <- struct{}{}:
	default:
	}
}

func (r *recorder) saw(theta string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.theta {
		if s == theta {
			return true
		}
	}
	return false
}

func TestWatcher(t *testing.T) {
	dir := createTempDir(t, "watch_test")
	rec := &recorder{seen: make(chan struct{}, 1)}

	w := NewWatcher(NewEngine(Options{}), types.Worst, rec.report)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start(dir))
	assert.Error(t, w.Start(dir))

	// unsupported files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	target := filepath.Join(dir, "fib.json")
	require.NoError(t, os.WriteFile(target, []byte(fibJSON), 0o644))

	deadline := time.After(5 * time.Second)
	for !rec.saw("1.618ⁿ") {
		select {
		case <-rec.seen:
		case <-deadline:
			t.Fatal("no analysis reported")
		}
	}

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.NotContains(t, rec.files, "notes.txt")
	assert.Contains(t, rec.files, "fib.json")
}

func TestWatcherMissingDir(t *testing.T) {
	w := NewWatcher(NewEngine(Options{}), types.Worst, nil)
	assert.Error(t, w.Start(filepath.Join(os.TempDir(), "asymptote-does-not-exist")))
	assert.NoError(t, w.Stop())
}
