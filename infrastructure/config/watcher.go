package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const debounceDelay = 500 * time.Millisecond

// LogLevelWatcher re-reads the YAML overlay when it changes and applies its
// log_level to a zap.AtomicLevel. Other settings need a restart.
type LogLevelWatcher struct {
	path    string
	level   zap.AtomicLevel
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatchLogLevel starts watching path. The directory is watched so editors
// that replace the file are handled.
func WatchLogLevel(path string, level zap.AtomicLevel, logger *zap.Logger) (*LogLevelWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &LogLevelWatcher{
		path:    filepath.Clean(path),
		level:   level,
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Watching configuration file", zap.String("file", path))
	return w, nil
}

func (w *LogLevelWatcher) watchLoop() {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

func (w *LogLevelWatcher) reload() {
	if err := ApplyLogLevel(w.path, w.level); err != nil {
		w.logger.Error("Failed to reload log level", zap.String("file", w.path), zap.Error(err))
		return
	}
	w.logger.Info("Log level reloaded", zap.String("level", w.level.String()))
}

// ApplyLogLevel reads log_level from the YAML file at path and sets it on
// level. A file without log_level leaves level unchanged.
func ApplyLogLevel(path string, level zap.AtomicLevel) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overlay struct {
		LogLevel string `yaml:"log_level"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	if overlay.LogLevel == "" {
		return nil
	}
	return level.UnmarshalText([]byte(overlay.LogLevel))
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *LogLevelWatcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}
