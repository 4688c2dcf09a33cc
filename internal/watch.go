package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gnolang/asymptote/internal/types"
)

// DefaultDebounce groups bursts of writes to one file into one analysis.
const DefaultDebounce = 100 * time.Millisecond

// ReportFunc receives the results of re-analyzing a changed file.
type ReportFunc func(filename string, results []*types.AnalysisResult, err error)

// Watcher re-runs the engine on supported files when they are written.
type Watcher struct {
	engine   *Engine
	mode     types.Mode
	report   ReportFunc
	log      *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timers   map[string]*time.Timer
	pending  sync.WaitGroup
	done     chan struct{}
	stopped  chan struct{}
	watching bool
}

func NewWatcher(engine *Engine, mode types.Mode, report ReportFunc) *Watcher {
	return &Watcher{
		engine:   engine,
		mode:     mode,
		report:   report,
		log:      engine.log,
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
	}
}

// SetDebounce changes the quiet period; it must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Start watches every directory under dirs. Single files are watched
// through their parent directory.
func (w *Watcher) Start(dirs ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return errors.New("already watching")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}

	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			fw.Close()
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
		if !info.IsDir() {
			dir = filepath.Dir(dir)
		}
		err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fw.Add(path)
			}
			return nil
		})
		if err != nil {
			fw.Close()
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	w.watcher = fw
	w.done = make(chan struct{})
	w.stopped = make(chan struct{})
	w.watching = true
	go w.loop(fw, w.done, w.stopped)
	return nil
}

// Stop closes the watcher and waits for pending analyses to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.watching {
		w.mu.Unlock()
		w.log.Debug("not watching")
		return nil
	}
	w.watching = false
	close(w.done)
	for name, t := range w.timers {
		if t.Stop() {
			w.pending.Done()
		}
		delete(w.timers, name)
	}
	err := w.watcher.Close()
	stopped := w.stopped
	w.mu.Unlock()

	<-stopped
	w.pending.Wait()
	return err
}

func (w *Watcher) loop(fw *fsnotify.Watcher, done, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case <-done:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !Supported(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return
	}

	if t, ok := w.timers[event.Name]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}
	w.pending.Add(1)
	name := event.Name
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.pending.Done()
		w.mu.Lock()
		if w.timers[name] == t {
			delete(w.timers, name)
		}
		w.mu.Unlock()
		w.analyze(name)
	})
	w.timers[name] = t
}

func (w *Watcher) analyze(filename string) {
	w.log.Debug("file changed", zap.String("file", filename))
	results, err := w.engine.Run(filename, w.mode)
	if err != nil {
		w.log.Error("analysis failed", zap.String("file", filename), zap.Error(err))
	} else {
		w.log.Info("analyzed", zap.String("file", filename), zap.Int("procedures", len(results)))
	}
	if w.report != nil {
		w.report(filename, results, err)
	}
}
