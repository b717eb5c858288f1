package persona

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileSource serves a prompt loaded from disk and reloads it when the file
// changes. A failed reload keeps the previous prompt.
type FileSource struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	prompt string
}

// NewFileSource loads path once. The file must exist and be non-empty.
func NewFileSource(path string, logger *slog.Logger) (*FileSource, error) {
	prompt, err := ReadPromptFile(path)
	if err != nil {
		return nil, err
	}

	return &FileSource{
		path:   path,
		logger: logger,
		prompt: prompt,
	}, nil
}

// Prompt returns the most recently loaded prompt.
func (f *FileSource) Prompt() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.prompt
}

// Reload re-reads the file. On error the current prompt is kept.
func (f *FileSource) Reload() error {
	prompt, err := ReadPromptFile(f.path)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.prompt = prompt
	f.mu.Unlock()

	return nil
}

// Watch reloads the prompt on every write to the file until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are picked up.
func (f *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watching prompt dir: %w", err)
	}

	return f.watchLoop(ctx, watcher.Events, watcher.Errors)
}

// watchLoop applies file events until ctx is done or the watcher closes.
// Watcher errors are logged and do not stop reloading.
func (f *FileSource) watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := f.Reload(); err != nil {
				f.logger.Warn("persona prompt reload failed, keeping previous prompt",
					"path", f.path,
					"error", err,
				)
				continue
			}
			f.logger.Info("persona prompt reloaded", "path", f.path)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			f.logger.Warn("persona prompt watcher error", "path", f.path, "error", err)
		}
	}
}
