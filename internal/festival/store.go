package festival

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "festsched/internal/log"
	"festsched/internal/model"
)

const defaultDebounce = 500 * time.Millisecond

// Store holds the currently loaded festival. The snapshot is never mutated;
// a reload swaps the whole pointer.
type Store struct {
	path     string
	debounce time.Duration
	current  atomic.Pointer[model.Festival]

	listenersMu sync.RWMutex
	listeners   []func(*model.Festival)
}

// Open loads the festival from path, or from the bundled document when path
// is empty. A load failure here is a startup failure for the caller.
func Open(path string) (*Store, error) {
	s := &Store{path: path, debounce: defaultDebounce}
	fest, err := s.read()
	if err != nil {
		return nil, err
	}
	s.current.Store(fest)
	appLog.Info("festival loaded",
		"source", s.sourceName(),
		"shows", len(fest.Shows),
		"instances", InstanceCount(fest),
		"year", fest.Year,
	)
	return s, nil
}

// NewStatic wraps an already decoded festival. It cannot be reloaded.
func NewStatic(f *model.Festival) *Store {
	s := &Store{debounce: defaultDebounce}
	s.current.Store(f)
	return s
}

// Current returns the live snapshot.
func (s *Store) Current() *model.Festival {
	return s.current.Load()
}

// Shows is a shorthand for Current().Shows.
func (s *Store) Shows() []model.ShowRecord {
	f := s.current.Load()
	if f == nil {
		return nil
	}
	return f.Shows
}

// Path returns the file the store reads, or "" for the bundled document.
func (s *Store) Path() string {
	return s.path
}

// OnReload registers fn to be called with every successfully reloaded
// snapshot.
func (s *Store) OnReload(fn func(*model.Festival)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// Reload re-reads the source. On failure the previous snapshot stays live
// and the error is returned.
func (s *Store) Reload() error {
	fest, err := s.read()
	if err != nil {
		return err
	}
	s.current.Store(fest)

	appLog.Info("festival reloaded",
		"source", s.sourceName(),
		"shows", len(fest.Shows),
		"instances", InstanceCount(fest),
	)

	s.listenersMu.RLock()
	fns := append([]func(*model.Festival){}, s.listeners...)
	s.listenersMu.RUnlock()
	for _, fn := range fns {
		fn(fest)
	}
	return nil
}

// Watch reloads the store whenever the schedule file changes, until ctx is
// canceled. The parent directory is watched so editors that replace the file
// are picked up. Watch is a no-op for the bundled document.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		appLog.Info("festival watcher disabled", "reason", "bundled document")
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("festival: create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("festival: resolve path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("festival: watch %s: %w", filepath.Dir(abs), err)
	}
	appLog.Info("festival watcher started", "path", abs)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			appLog.Info("festival watcher stopped", "path", abs)
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			appLog.Debug("festival file changed", "op", ev.Op.String(), "path", ev.Name)
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			if err := s.Reload(); err != nil {
				appLog.Error("festival reload failed; keeping previous schedule", err, "path", abs)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			appLog.Error("festival watcher error", err, "path", abs)
		}
	}
}

func (s *Store) read() (*model.Festival, error) {
	if s.path == "" {
		return Decode(defaultDocument)
	}
	body, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("festival: read %s: %w", s.path, err)
	}
	return Decode(body)
}

func (s *Store) sourceName() string {
	if s.path == "" {
		return "bundled"
	}
	return s.path
}
