// Package watcher reloads the config file when it changes on disk.
package watcher

import (
	"os"
	"sync"
	"time"

	"github.com/muqeet1001/shikshasetu/internal/config"
	"github.com/muqeet1001/shikshasetu/internal/logger"
)

// ConfigWatcher polls the config file's modification time and invokes a
// callback with the freshly loaded config when it changes. Polling
// keeps it portable; the interval is coarse because config edits are
// rare.
type ConfigWatcher struct {
	path     string
	interval time.Duration
	onChange func(*config.Config)
	log      *logger.Logger
	lastMod  time.Time
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
}

// New creates a watcher for the config file at path
func New(path string, interval time.Duration, onChange func(*config.Config)) *ConfigWatcher {
	return &ConfigWatcher{
		path:     path,
		interval: interval,
		onChange: onChange,
		log:      logger.New("info", "watcher"),
	}
}

// Start begins watching in the background. Starting a running watcher
// is a no-op.
func (w *ConfigWatcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopChan = make(chan struct{})

	// Baseline so an existing file doesn't fire an immediate reload.
	if info, err := os.Stat(w.path); err == nil {
		w.lastMod = info.ModTime()
	}
	w.mu.Unlock()

	go w.loop()
}

// Stop halts watching
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopChan)
}

// IsRunning returns whether the watch loop is active
func (w *ConfigWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ConfigWatcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *ConfigWatcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}

	w.mu.Lock()
	changed := info.ModTime().After(w.lastMod)
	if changed {
		w.lastMod = info.ModTime()
	}
	w.mu.Unlock()

	if !changed {
		return
	}

	cfg, err := config.LoadFrom(w.path)
	if err != nil {
		w.log.Warn("config changed but failed to load: %v", err)
		return
	}

	if result := cfg.Validate(); !result.IsValid() {
		w.log.Warn("config changed but is invalid: %v", result.Errors)
		return
	}

	w.log.Info("config reloaded from %s", w.path)
	w.onChange(cfg)
}
