package policy

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/logger"
)

// Store holds the active policy model behind an atomic pointer so readers
// never block on a reload. Swaps are whole-model: a half-applied policy is
// never observable.
type Store struct {
	current atomic.Value // *Model
	log     *logger.Logger
}

// NewStore creates a store seeded with the given model.
func NewStore(m *Model, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{log: log.WithComponent("policy-store")}
	s.current.Store(m)
	return s
}

// Current returns the active model.
func (s *Store) Current() *Model {
	return s.current.Load().(*Model)
}

// Swap installs a new model and returns the one it replaced.
func (s *Store) Swap(m *Model) *Model {
	old := s.Current()
	s.current.Store(m)
	s.log.Info("policy swapped",
		zap.String("old", old.Fingerprint()),
		zap.String("new", m.Fingerprint()))
	return old
}

// Watch reloads the policy file whenever it changes on disk. A file that
// fails to parse or validate leaves the previous model in place. The watch
// runs until stop is closed. Watching the directory rather than the file
// keeps the watch alive across editors and mounts that replace the file.
func (s *Store) Watch(path string, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				s.reload(path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("policy watcher error", zap.Error(err))
			case <-stop:
				return
			}
		}
	}()
	return nil
}

func (s *Store) reload(path string) {
	m, err := Load(path)
	if err != nil {
		s.log.Error("policy reload failed, keeping previous model",
			zap.String("path", path),
			zap.String("active", s.Current().Fingerprint()),
			zap.Error(err))
		return
	}
	s.Swap(m)
}
