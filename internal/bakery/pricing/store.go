package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store holds the catalog in effect and swaps it atomically on reload.
type Store struct {
	path    string
	current atomic.Pointer[Catalog]
}

// NewStore loads path, or the embedded catalog when path is empty.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		s.current.Store(Default())
		return s, nil
	}
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	s.current.Store(c)
	return s, nil
}

func (s *Store) Current() *Catalog { return s.current.Load() }

// Reload re-reads the catalog file. A broken file leaves the previous
// catalog in place.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	c, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.current.Store(c)
	return nil
}

// Watch reloads the catalog whenever its file is written or replaced, until
// ctx is done. The parent directory is watched so editors that rename over
// the file are noticed too.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("pricing: create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("pricing: watch %q: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := s.Reload(); err != nil {
					slog.WarnContext(ctx, "catalog reload failed, keeping previous catalog", "path", s.path, "error", err)
					continue
				}
				slog.InfoContext(ctx, "catalog reloaded", "path", s.path)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "catalog watcher error", "error", err)
			}
		}
	}()
	return nil
}
