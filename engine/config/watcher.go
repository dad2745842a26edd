package config

import (
	"errors"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/aurora/engine/core"
)

/**
 * @brief Watcher re-loads the configuration file whenever it changes on
 * disk. The frame loop polls Changed once per frame and reconfigures the
 * swapchain when the renderer settings moved under it.
 */
type Watcher struct {
	path string

	mutex    sync.RWMutex
	current  *Config
	changed  bool
	isClosed bool

	fsnotify *fsnotify.Watcher
	done     chan struct{}
}

func NewWatcher(path string, initial *Config) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     path,
		current:  initial,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}

	if err := fsWatch.Add(path); err != nil {
		fsWatch.Close()
		return nil, err
	}

	go w.start()
	return w, nil
}

func (w *Watcher) start() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				core.LogWarn("ignoring configuration change: %v", err)
				continue
			}
			w.mutex.Lock()
			w.current = cfg
			w.changed = true
			w.mutex.Unlock()
			core.LogInfo("configuration reloaded from %s", w.path)
		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("configuration watcher: %v", err)
		}
	}
}

// Changed reports whether the configuration was reloaded since the last
// call, handing out the fresh configuration when it was.
func (w *Watcher) Changed() (*Config, bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if !w.changed {
		return nil, false
	}
	w.changed = false
	return w.current, true
}

// Current returns the latest valid configuration.
func (w *Watcher) Current() *Config {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.current
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.isClosed {
		return errors.New("configuration watcher already closed")
	}
	w.isClosed = true
	close(w.done)
	return w.fsnotify.Close()
}
