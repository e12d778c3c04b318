package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	domainconfig "mirror-backend/domain/config"
)

// DynamicLimits is the runtime-changeable subset of the domain limits,
// loaded from a YAML file and applied without restarting
type DynamicLimits struct {
	MaxContentLength        int `yaml:"maxContentLength"`
	MaxTagsPerReflection    int `yaml:"maxTagsPerReflection"`
	MaxReflectionsPerThread int `yaml:"maxReflectionsPerThread"`
	UndoHistoryDepth        int `yaml:"undoHistoryDepth"`

	UndoDebounceMillis     int `yaml:"undoDebounceMillis"`
	SnapshotDebounceMillis int `yaml:"snapshotDebounceMillis"`
	AutosaveMillis         int `yaml:"autosaveMillis"`
}

// Apply overlays the non-zero limits onto a domain config
func (l DynamicLimits) Apply(cfg *domainconfig.DomainConfig) {
	if l.MaxContentLength > 0 {
		cfg.MaxContentLength = l.MaxContentLength
	}
	if l.MaxTagsPerReflection > 0 {
		cfg.MaxTagsPerReflection = l.MaxTagsPerReflection
	}
	if l.MaxReflectionsPerThread > 0 {
		cfg.MaxReflectionsPerThread = l.MaxReflectionsPerThread
	}
	if l.UndoHistoryDepth > 0 {
		cfg.UndoHistoryDepth = l.UndoHistoryDepth
	}
	if l.UndoDebounceMillis > 0 {
		cfg.UndoDebounceWindow = time.Duration(l.UndoDebounceMillis) * time.Millisecond
	}
	if l.SnapshotDebounceMillis > 0 {
		cfg.SnapshotDebounceWindow = time.Duration(l.SnapshotDebounceMillis) * time.Millisecond
	}
	if l.AutosaveMillis > 0 {
		cfg.AutosaveWindow = time.Duration(l.AutosaveMillis) * time.Millisecond
	}
}

// LimitsWatcher watches the limits file and reloads it on change
type LimitsWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu       sync.RWMutex
	current  DynamicLimits
	onChange []func(DynamicLimits)

	stopCh chan struct{}
}

// NewLimitsWatcher loads the limits file and starts watching it. The file
// must exist and parse at startup; later parse failures keep the current
// limits.
func NewLimitsWatcher(path string, logger *zap.Logger) (*LimitsWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	limits, err := loadLimitsFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial limits: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch limits file: %w", err)
	}

	// Watch the directory too; editors often replace the file atomically
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("Failed to watch limits directory", zap.Error(err))
	}

	return &LimitsWatcher{
		path:    path,
		watcher: watcher,
		logger:  logger,
		current: limits,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for limit changes
func (w *LimitsWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Limits watcher started", zap.String("path", w.path))
}

// Stop stops watching
func (w *LimitsWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

// Current returns the most recently loaded limits
func (w *LimitsWatcher) Current() DynamicLimits {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a handler invoked after every successful reload
func (w *LimitsWatcher) OnChange(fn func(DynamicLimits)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

func (w *LimitsWatcher) watchLoop() {
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Limits watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the limits file, keeping the current limits on failure
func (w *LimitsWatcher) reload() {
	limits, err := loadLimitsFile(w.path)
	if err != nil {
		w.logger.Error("Failed to reload limits, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = limits
	handlers := make([]func(DynamicLimits), len(w.onChange))
	copy(handlers, w.onChange)
	w.mu.Unlock()

	w.logger.Info("Limits reloaded", zap.String("path", w.path))

	for _, handler := range handlers {
		go handler(limits)
	}
}

// loadLimitsFile reads and validates a limits YAML file
func loadLimitsFile(path string) (DynamicLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DynamicLimits{}, err
	}

	var limits DynamicLimits
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return DynamicLimits{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if limits.MaxContentLength < 0 ||
		limits.MaxTagsPerReflection < 0 ||
		limits.MaxReflectionsPerThread < 0 ||
		limits.UndoHistoryDepth < 0 {
		return DynamicLimits{}, fmt.Errorf("limits cannot be negative")
	}

	return limits, nil
}
