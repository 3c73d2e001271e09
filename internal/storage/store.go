// Package storage is the persistence boundary: each entity family is one
// independent keyed JSON document. Writes are last-writer-wins; external
// changes from other workspace instances sharing the same directory are
// detected and reported so callers can reload wholesale.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/quiverhq/quiver/internal/core"
)

// Document keys, one per entity family.
const (
	KeyCollections  = "collections"
	KeyEnvironments = "environments"
	KeyHistory      = "history"
	KeyNotes        = "notes"
	KeyTasks        = "tasks"
	KeySettings     = "settings"
)

// Keys lists every document family the store manages.
var Keys = []string{KeyCollections, KeyEnvironments, KeyHistory, KeyNotes, KeyTasks, KeySettings}

// ChangeHandler is invoked with the document key when an
// externally-originated change is detected.
type ChangeHandler func(key string)

// Store persists keyed JSON documents under one directory.
type Store struct {
	mu     sync.Mutex
	fs     afero.Fs
	dir    string
	logger hclog.Logger

	// lastWritten maps key to the checksum of our own most recent
	// write, so change detection can ignore self-originated events.
	lastWritten map[string]string
	modTimes    map[string]time.Time
	onChange    ChangeHandler

	pollInterval time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithPollInterval overrides the polling fallback interval. Non-positive
// values keep the default.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// New creates a store rooted at dir on the given filesystem.
func New(fsys afero.Fs, dir string, logger hclog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, core.PersistenceErr("create data directory", err)
	}

	s := &Store{
		fs:           fsys,
		dir:          dir,
		logger:       logger.Named("store"),
		lastWritten:  make(map[string]string),
		modTimes:     make(map[string]time.Time),
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load unmarshals the document under key into v. A missing document
// leaves v at its default and returns nil.
func (s *Store) Load(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return core.PersistenceErr("read "+key, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.PersistenceErr("decode "+key, err)
	}

	s.modTimes[key] = s.modTime(key)
	s.lastWritten[key] = checksum(data)
	return nil
}

// Save marshals v and replaces the document under key. The write is
// atomic (temp file + rename) and retried briefly on transient failure;
// on persistent failure the in-memory state stays authoritative.
func (s *Store) Save(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return core.PersistenceErr("encode "+key, err)
	}

	write := func() error {
		tmp := s.path(key) + ".tmp"
		if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
			return err
		}
		return s.fs.Rename(tmp, s.path(key))
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
	), 3)
	if err := backoff.Retry(write, policy); err != nil {
		s.logger.Error("document write failed", "key", key, "error", err)
		return core.PersistenceErr("write "+key, err)
	}

	s.lastWritten[key] = checksum(data)
	s.modTimes[key] = s.modTime(key)
	s.logger.Debug("document saved", "key", key, "bytes", len(data))
	return nil
}

// OnChange registers the handler for externally-originated changes.
func (s *Store) OnChange(fn ChangeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Watch observes the data directory until ctx is done. Filesystem
// notification is used when the underlying filesystem supports it;
// timer polling runs as the fallback and covers filesystems (such as
// the in-memory one used in tests) that emit no events.
func (s *Store) Watch(ctx context.Context) {
	if _, ok := s.fs.(*afero.OsFs); ok {
		if err := s.watchNotify(ctx); err == nil {
			return
		}
		s.logger.Warn("filesystem notification unavailable, falling back to polling")
	}
	s.watchPoll(ctx)
}

func (s *Store) watchNotify(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		// Polling keeps running at a long interval as a safety net for
		// editors that replace files in ways the watcher misses.
		ticker := time.NewTicker(10 * s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				key := keyFromPath(event.Name)
				if key == "" {
					continue
				}
				s.checkExternal(key)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watch error", "error", err)
			case <-ticker.C:
				s.pollOnce()
			}
		}
	}()
	return nil
}

func (s *Store) watchPoll(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pollOnce()
			}
		}
	}()
}

func (s *Store) pollOnce() {
	for _, key := range Keys {
		s.checkExternal(key)
	}
}

// checkExternal fires the change handler when the on-disk document
// differs from our own last write.
func (s *Store) checkExternal(key string) {
	s.mu.Lock()

	mod := s.modTime(key)
	if mod.IsZero() || mod.Equal(s.modTimes[key]) {
		s.mu.Unlock()
		return
	}
	s.modTimes[key] = mod

	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		s.mu.Unlock()
		return
	}
	sum := checksum(data)
	if sum == s.lastWritten[key] {
		s.mu.Unlock()
		return
	}
	s.lastWritten[key] = sum
	handler := s.onChange
	s.mu.Unlock()

	s.logger.Info("external change detected", "key", key)
	if handler != nil {
		handler(key)
	}
}

func (s *Store) modTime(key string) time.Time {
	info, err := s.fs.Stat(s.path(key))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func keyFromPath(path string) string {
	base := filepath.Base(path)
	for _, key := range Keys {
		if base == key+".json" {
			return key
		}
	}
	return ""
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
