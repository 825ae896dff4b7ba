package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rxserver/rxserver/logger"
)

// ReloadCallback is invoked with the newly loaded config after a watched
// file changes. Per §4.14, a reload only affects future client setup
// replies — it never resizes a running virtual display; that authority
// belongs to the UI thread alone.
type ReloadCallback func(*Config) error

// Watcher debounces filesystem edits to a config file and re-runs Load,
// notifying registered callbacks with the result.
type Watcher struct {
	configPath string
	watcher    *fsnotify.Watcher
	callbacks  []ReloadCallback
	mu         sync.RWMutex

	debouncePeriod time.Duration
	debounceTimer  *time.Timer

	ownWriteMu sync.Mutex
	ownWrite   bool
}

// NewWatcher creates a watcher for configPath. The file must already exist.
func NewWatcher(configPath string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(configPath); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		configPath:     configPath,
		watcher:        fw,
		debouncePeriod: 500 * time.Millisecond,
	}, nil
}

// OnReload registers a callback fired after every successful reload.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// MarkOwnWrite suppresses the next detected change, for callers that
// rewrite the config file themselves and don't want to trigger a
// self-induced reload.
func (w *Watcher) MarkOwnWrite() {
	w.ownWriteMu.Lock()
	defer w.ownWriteMu.Unlock()
	w.ownWrite = true
}

func (w *Watcher) consumeOwnWrite() bool {
	w.ownWriteMu.Lock()
	defer w.ownWriteMu.Unlock()
	if w.ownWrite {
		w.ownWrite = false
		return true
	}
	return false
}

// Start launches the watch loop in its own goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if isBackupFile(ev.Name) {
				continue
			}
			if w.consumeOwnWrite() {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, w.reload)
}

func (w *Watcher) reload() {
	Reset()
	cfg, err := Load(w.configPath)
	if err != nil {
		logger.Errorw("config reload failed", "error", err)
		return
	}
	logger.Infow("config reloaded", "path", w.configPath)

	w.mu.RLock()
	callbacks := append([]ReloadCallback(nil), w.callbacks...)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			logger.Warnw("config reload callback error", "error", err)
		}
	}
}

// Stop closes the underlying filesystem watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func isBackupFile(path string) bool {
	base := filepath.Base(path)
	return base == "rxserver.toml.back1" ||
		base == "rxserver.toml.back2" ||
		base == "rxserver.toml.back3"
}
