package config

import (
	"context"
	"os"
	"sync"
	"time"

	"chatsync/internal/models"

	"github.com/sirupsen/logrus"
)

// Watcher polls the configuration file for changes and notifies
// registered callbacks with the reloaded configuration. Used to pick
// up sync tuning (poll interval, thresholds) without a restart.
type Watcher struct {
	configPath string
	logger     *logrus.Logger
	mu         sync.RWMutex
	config     *models.Config
	callbacks  []func(*models.Config)
}

func NewWatcher(configPath string, logger *logrus.Logger) *Watcher {
	return &Watcher{
		configPath: configPath,
		logger:     logger,
	}
}

// OnReload registers a callback invoked with each successfully
// reloaded configuration. Must be called before Start.
func (w *Watcher) OnReload(cb func(*models.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *models.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Start loads the configuration and then watches the file's
// modification time until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	config, err := LoadConfig(w.configPath)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.config = config
	w.mu.Unlock()

	stat, err := os.Stat(w.configPath)
	if err != nil {
		return err
	}
	lastModTime := stat.ModTime()

	w.logger.WithField("path", w.configPath).Info("Configuration watcher started")

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Configuration watcher stopping")
			return nil

		case <-ticker.C:
			stat, err := os.Stat(w.configPath)
			if err != nil {
				w.logger.WithError(err).Error("Failed to stat configuration file")
				continue
			}

			if stat.ModTime().After(lastModTime) {
				lastModTime = stat.ModTime()
				// Small delay so a writer can finish the file
				time.Sleep(100 * time.Millisecond)
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	config, err := LoadConfig(w.configPath)
	if err != nil {
		w.logger.WithError(err).Error("Failed to reload configuration, keeping previous")
		return
	}

	w.mu.Lock()
	w.config = config
	callbacks := make([]func(*models.Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded")
	for _, cb := range callbacks {
		cb(config)
	}
}
