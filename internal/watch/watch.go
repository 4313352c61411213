// Package watch re-runs a job whenever one of a set of input files changes.
package watch

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/msageha/temporal_planner/internal/model"
)

// Job is one run triggered by a change. Its context is cancelled when a
// newer change supersedes it or the watcher stops.
type Job func(ctx context.Context)

type Watcher struct {
	files    map[string]bool
	dirs     []string
	debounce time.Duration
	logger   *log.Logger
	logLevel model.LogLevel

	mu      sync.Mutex
	cancel  context.CancelFunc
	running sync.WaitGroup
	runs    int
}

// New watches the given files. Their directories are watched rather than
// the files themselves so that editors that save by rename are noticed.
func New(files []string, debounce time.Duration, logger *log.Logger, level model.LogLevel) (*Watcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("watch: no files given")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w := &Watcher{
		files:    map[string]bool{},
		debounce: debounce,
		logger:   logger,
		logLevel: level,
	}
	seen := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		w.files[abs] = true
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Runs is the number of times the job has been started.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Run starts job once, then again after every debounced change, until ctx
// is cancelled. It returns after the last job has finished.
func (w *Watcher) Run(ctx context.Context, job Job) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()
	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.log(model.LogLevelInfo, "watching %d files in %d directories", len(w.files), len(w.dirs))

	w.trigger(ctx, job)
	defer w.stop()

	// a stopped timer with a drained channel
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log(model.LogLevelInfo, "watch stopped")
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log(model.LogLevelDebug, "fsnotify event=%s file=%s", event.Op, event.Name)
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log(model.LogLevelError, "fsnotify error=%v", err)
		case <-timer.C:
			w.log(model.LogLevelInfo, "inputs changed, re-running")
			w.trigger(ctx, job)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

// trigger cancels the running job, waits for it, and starts a new one.
func (w *Watcher) trigger(ctx context.Context, job Job) {
	w.stop()

	jobCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.runs++
	w.mu.Unlock()

	w.running.Add(1)
	go func() {
		defer w.running.Done()
		job(jobCtx)
	}()
}

func (w *Watcher) stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	w.running.Wait()
}

func (w *Watcher) log(level model.LogLevel, format string, args ...any) {
	if level < w.logLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	w.logger.Printf("%s %s watch: %s", time.Now().Format(time.RFC3339), level, msg)
}
