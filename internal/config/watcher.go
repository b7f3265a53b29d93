package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultDebounce coalesces the burst of write events editors emit when
// saving a file (truncate + write + chmod, or atomic rename).
const defaultDebounce = 300 * time.Millisecond

// Watcher reloads a profile file whenever it changes on disk and hands
// the result to a callback. The control UI uses it to pick up profile
// edits without a restart.
//
// The watcher monitors the profile's parent directory rather than the
// file itself, because editors that save via rename replace the inode
// and would silently detach a file-level watch.
type Watcher struct {
	path     string
	onChange func(*Config)
	log      *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the profile at path. onChange is
// called from the watcher goroutine with each successfully reloaded
// configuration; reload failures are logged and skipped, keeping the
// last good configuration in effect.
func NewWatcher(path string, onChange func(*Config), log *zap.Logger) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		log:      log,
	}
}

// Start begins watching. It is a no-op if the watcher is already running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.loop(fsw, w.stopCh, w.doneCh)
	return nil
}

// Stop halts the watcher and waits for its goroutine to exit.
// Safe to call when not running.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh, fsw := w.stopCh, w.doneCh, w.fsw
	w.mu.Unlock()

	close(stopCh)
	_ = fsw.Close()
	<-doneCh
}

// loop consumes fsnotify events until stopped, debouncing writes to the
// watched profile and reloading it after each settled burst.
func (w *Watcher) loop(fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	var timer *time.Timer
	var timerCh <-chan time.Time

	target := filepath.Clean(w.path)
	for {
		select {
		case <-stopCh:
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(defaultDebounce)
			} else {
				timer.Reset(defaultDebounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Warn("profile reload failed, keeping previous", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.log.Info("profile reloaded", zap.String("path", w.path))
			w.onChange(cfg)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("profile watcher error", zap.Error(err))
		}
	}
}
