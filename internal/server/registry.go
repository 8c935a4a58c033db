package server

import (
	"sync"

	"github.com/mongtap/mongtap/internal/collection"
	"github.com/mongtap/mongtap/internal/logging"
	"github.com/mongtap/mongtap/internal/storage"
)

// Registry owns every live collection.Collection, keyed by "db.collection",
// and keeps each one's trained model in sync with the storage layer: a
// freshly requested collection loads its model from disk (if one exists)
// before being handed back, and a collection that just (re)trained is
// flushed to disk immediately after.
type Registry struct {
	mu          sync.RWMutex
	store       *storage.Store
	collections map[string]*collection.Collection
	colOpts     collection.Options
	logger      *logging.Logger
}

// NewRegistry builds a Registry backed by store, with colOpts applied to
// every collection it constructs.
func NewRegistry(store *storage.Store, colOpts collection.Options, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default
	}
	return &Registry{
		store:       store,
		collections: map[string]*collection.Collection{},
		colOpts:     colOpts,
		logger:      logger,
	}
}

func namespaceKey(db, name string) string { return db + "." + name }

// Get returns the collection for db.name, constructing it (and loading any
// persisted model) on first use.
func (r *Registry) Get(db, name string) *collection.Collection {
	key := namespaceKey(db, name)

	r.mu.RLock()
	c, ok := r.collections[key]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.collections[key]; ok {
		return c
	}

	c = collection.New(db, name, r.colOpts)
	if m, found, err := r.store.Load(db, name); err == nil && found {
		c.SetSchema(m)
	} else if err != nil {
		r.logger.Logf(logging.Info, "registry: loading %s.%s: %v", db, name, err)
	}
	r.collections[key] = c
	return c
}

// Persist flushes db.name's current trained model to disk, if any. Command
// handlers call this after any operation that may have (re)trained the
// model (insert).
func (r *Registry) Persist(db, name string) error {
	c := r.Get(db, name)
	schema := c.Schema()
	if schema == nil {
		return nil
	}
	return r.store.Save(db, name, schema)
}

// Drop removes db.name from both the live registry and the storage layer.
func (r *Registry) Drop(db, name string) error {
	key := namespaceKey(db, name)
	r.mu.Lock()
	delete(r.collections, key)
	r.mu.Unlock()
	return r.store.Drop(db, name)
}

// ListCollections reports every collection name known for db, whether live
// in memory or only persisted on disk.
func (r *Registry) ListCollections(db string) ([]string, error) {
	seen := map[string]bool{}
	var names []string

	r.mu.RLock()
	prefix := db + "."
	for key := range r.collections {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			name := key[len(prefix):]
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	r.mu.RUnlock()

	persisted, err := r.store.ListCollections(db)
	if err != nil {
		return nil, err
	}
	for _, name := range persisted {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// ListDatabases reports every database name with at least one persisted
// collection.
func (r *Registry) ListDatabases() ([]string, error) {
	return r.store.ListDatabases()
}
