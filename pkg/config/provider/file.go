package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces editor write bursts into one change signal.
const debounce = 100 * time.Millisecond

// File reads configuration from a local file and can watch it for changes.
type File struct {
	path string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// NewFile returns a provider for the given path, resolved to absolute so
// watch events compare cleanly.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	return &File{path: abs}, nil
}

func (f *File) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", f.path, err)
	}
	return data, nil
}

// Watch signals on the returned channel whenever the file is written or
// recreated. The watch is on the parent directory: editors replace files
// rather than write them in place, and a direct file watch would die with
// the old inode.
func (f *File) Watch(ctx context.Context) (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, fmt.Errorf("provider is closed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(f.path), err)
	}
	f.watcher = watcher

	ch := make(chan struct{}, 1)
	go f.run(ctx, watcher, ch)

	slog.Info("watching config file", "path", f.path)
	return ch, nil
}

func (f *File) run(ctx context.Context, watcher *fsnotify.Watcher, ch chan struct{}) {
	defer close(ch)
	defer watcher.Close()

	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(f.path) {
				continue
			}

			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(debounce, func() { signal(ch) })

			case event.Has(fsnotify.Remove):
				slog.Warn("config file removed, waiting for it to return", "path", f.path)
				go f.awaitReturn(ctx, ch)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}

// awaitReturn polls for a removed config file to reappear. The directory
// watch itself survives the removal, so this only needs to emit one signal
// once the file is back.
func (f *File) awaitReturn(ctx context.Context, ch chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; i < 10; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(f.path); err == nil {
				slog.Info("config file restored", "path", f.path)
				signal(ch)
				return
			}
		}
	}
	slog.Warn("config file did not return", "path", f.path)
}

// signal is a non-blocking send; a pending change already covers this one.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	if f.watcher != nil {
		err := f.watcher.Close()
		f.watcher = nil
		return err
	}
	return nil
}

var _ Provider = (*File)(nil)
