// Package storage implements spec §6.4's model persistence: one JSON file
// per collection at <base>/<db>/<name>.json, written atomically via a
// temp-file-then-rename, fronted by an LRU cache of the most recently used
// models (spec §5, default 100).
package storage

import (
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/mongtap/mongtap/internal/logging"
	"github.com/mongtap/mongtap/internal/model"
)

// Store owns the on-disk model directory tree and an in-memory LRU front
// for it.
type Store struct {
	mu     sync.Mutex
	base   string
	cache  *lru.Cache
	logger *logging.Logger
}

// DefaultCacheSize is spec §5's default LRU population.
const DefaultCacheSize = 100

// New builds a Store rooted at base, creating it if necessary.
func New(base string, cacheSize int, logger *logging.Logger) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = logging.Default
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, errors.Wrapf(err, "storage: creating base directory %s", base)
	}
	c, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "storage: constructing LRU cache")
	}
	return &Store{base: base, cache: c, logger: logger}, nil
}

func (s *Store) path(db, collection string) string {
	return filepath.Join(s.base, db, collection+".json")
}

func cacheKey(db, collection string) string {
	return db + "." + collection
}

// Load reads the model for db.collection, consulting the LRU cache first.
// It returns (nil, false, nil) when no model file exists yet.
func (s *Store) Load(db, collection string) (*model.Model, bool, error) {
	key := cacheKey(db, collection)

	s.mu.Lock()
	if v, ok := s.cache.Get(key); ok {
		s.mu.Unlock()
		return v.(*model.Model), true, nil
	}
	s.mu.Unlock()

	p := s.path(db, collection)
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "storage: reading %s", p)
	}

	m, err := model.UnmarshalRootJSON(data)
	if err != nil {
		return nil, false, errors.Wrapf(err, "storage: parsing %s", p)
	}

	s.mu.Lock()
	s.cache.Add(key, m)
	s.mu.Unlock()
	s.logger.Logf(logging.DebugLow, "storage: loaded %s.%s from %s", db, collection, p)
	return m, true, nil
}

// Save persists m for db.collection, writing to a temp file in the same
// directory and renaming over the target so a reader never observes a
// partially-written file.
func (s *Store) Save(db, collection string, m *model.Model) error {
	dir := filepath.Join(s.base, db)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "storage: creating %s", dir)
	}

	data, err := model.MarshalRootJSON(m)
	if err != nil {
		return errors.Wrap(err, "storage: marshaling model")
	}

	target := s.path(db, collection)
	tmp, err := os.CreateTemp(dir, collection+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "storage: creating temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "storage: writing %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "storage: closing %s", tmpPath)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "storage: renaming %s to %s", tmpPath, target)
	}

	s.mu.Lock()
	s.cache.Add(cacheKey(db, collection), m)
	s.mu.Unlock()
	s.logger.Logf(logging.DebugLow, "storage: saved %s.%s to %s", db, collection, target)
	return nil
}

// Drop removes the persisted model file for db.collection and evicts it
// from the cache.
func (s *Store) Drop(db, collection string) error {
	s.mu.Lock()
	s.cache.Remove(cacheKey(db, collection))
	s.mu.Unlock()

	p := s.path(db, collection)
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "storage: removing %s", p)
	}
	return nil
}

// ListCollections returns the collection names with persisted model files
// under db.
func (s *Store) ListCollections(db string) ([]string, error) {
	dir := filepath.Join(s.base, db)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "storage: listing %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".json" {
			continue
		}
		names = append(names, name[:len(name)-len(ext)])
	}
	return names, nil
}

// ListDatabases returns every database directory under the store's base.
func (s *Store) ListDatabases() ([]string, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "storage: listing %s", s.base)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// CacheLen reports the current LRU population, for metrics/tests.
func (s *Store) CacheLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
