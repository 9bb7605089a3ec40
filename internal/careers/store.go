package careers

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Store serves the catalog to the scorer. Without Watch every call reads the
// file; with Watch the last good catalog is cached and refreshed on change.
type Store struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	catalog  *Catalog
	watching bool
}

// NewStore creates a store for the catalog file at path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   filepath.Clean(path),
		logger: logger.With(zap.String("careers_file", path)),
	}
}

// Path returns the catalog file location.
func (s *Store) Path() string {
	return s.path
}

// Catalog returns the current catalog.
func (s *Store) Catalog(_ context.Context) (*Catalog, error) {
	s.mu.RLock()
	cached, watching := s.catalog, s.watching
	s.mu.RUnlock()

	if watching && cached != nil {
		return cached, nil
	}

	catalog, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.report(catalog)

	if watching {
		s.mu.Lock()
		s.catalog = catalog
		s.mu.Unlock()
	}

	return catalog, nil
}

// Reload reads the file and replaces the cached catalog. A failed reload keeps
// the previous catalog.
func (s *Store) Reload() error {
	catalog, err := Load(s.path)
	if err != nil {
		return err
	}
	s.report(catalog)

	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()
	return nil
}

// Watch loads the catalog and keeps it fresh until ctx is done. The returned
// channel is closed when the watcher stops.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create careers watcher: %w", err)
	}

	// Watch the directory: editors usually replace files instead of writing in place.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	s.mu.Lock()
	s.watching = true
	s.mu.Unlock()

	if err := s.Reload(); err != nil {
		s.logger.Warn("initial careers load failed, will retry on change", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Warn("careers reload failed, keeping previous catalog",
						zap.String("event", event.Op.String()),
						zap.Error(err),
					)
					continue
				}
				s.logger.Info("careers catalog reloaded", zap.String("event", event.Op.String()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("careers watcher error", zap.Error(err))
			}
		}
	}()

	return done, nil
}

func (s *Store) report(catalog *Catalog) {
	for _, skipped := range catalog.Skipped {
		s.logger.Warn("skipping malformed career profile",
			zap.Int("index", skipped.Index),
			zap.String("reason", skipped.Reason),
		)
	}
	s.logger.Debug("careers catalog loaded",
		zap.Int("profiles", catalog.Len()),
		zap.Int("skipped", len(catalog.Skipped)),
	)
}
