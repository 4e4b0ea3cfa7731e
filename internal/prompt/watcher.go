// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits after the last write before
// reloading. Editors often emit several events per save.
const DefaultDebounce = 200 * time.Millisecond

// =============================================================================
// TEMPLATE FILE WATCHER
// =============================================================================

// Watcher reloads a Catalog when its override file changes.
type Watcher struct {
	catalog  *Catalog
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	pending time.Time // zero when nothing is pending

	// OnReload, when set, is called after every reload attempt.
	OnReload func(err error)

	ctx    context.Context
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// Watch starts reloading c from path whenever the file changes. The parent
// directory is watched so that rename-on-save editors are picked up.
func (c *Catalog) Watch(path string, logger zerolog.Logger) (*Watcher, error) {
	w, err := NewWatcher(c, path, DefaultDebounce, logger)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// NewWatcher creates a watcher without starting it.
func NewWatcher(c *Catalog, path string, debounce time.Duration, logger zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve templates path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		catalog:  c,
		path:     abs,
		watcher:  fw,
		debounce: debounce,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins processing file events.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.done.Add(2)
	go w.processEvents()
	go w.processPending()
	return nil
}

// Close stops watching and waits for the goroutines to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.done.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.done.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Str("path", w.path).Msg("TEMPLATE_WATCH_ERROR")
		}
	}
}

// processPending reloads once events have been quiet for the debounce period.
func (w *Watcher) processPending() {
	defer w.done.Done()
	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case now := <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && now.Sub(w.pending) >= w.debounce
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()
			if due {
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	err := w.catalog.LoadFile(w.path)
	if err != nil {
		// The previous table stays in effect.
		w.logger.Error().Err(err).Str("path", w.path).Msg("TEMPLATE_RELOAD_FAILED")
	} else {
		w.logger.Info().Str("path", w.path).Msg("TEMPLATE_RELOADED")
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}
