// Package collection implements spec §4.8: a MongoDB-collection-shaped
// interface backed not by stored documents but by a trained model.Model
// and a small document cache used only to make update/delete observable
// within a session.
package collection

import (
	"sync"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/inference"
	"github.com/mongtap/mongtap/internal/merge"
	"github.com/mongtap/mongtap/internal/model"
)

// DefaultSurrogateCount is the default value Count returns once a model exists
// (spec §4.8, design note (c)): exposed as a policy knob rather than a
// hardcoded magic number, per SPEC_FULL.md's Open Question decision.
const DefaultSurrogateCount = 100

// IndexSpec is index metadata only; no actual index structure backs it.
type IndexSpec struct {
	Name   string
	Keys   bsonx.D
	Unique bool
}

// Collection is one (db, name) pair's model, pending-training buffer,
// and document cache, all protected by a single mutex per spec §5.
type Collection struct {
	mu sync.RWMutex

	DB   string
	Name string

	opts           Options
	schema         *model.Model
	pendingBuffer  []bsonx.D
	trainThreshold int

	// cache holds documents materialized by find/insert so that update
	// and delete have something concrete to mutate or evict within a
	// session; it is never persisted (spec §4.8: "does not persist the
	// documents themselves").
	cache          map[string]bsonx.D
	cacheOrder     []string
	documentCount  int
	indexes        map[string]IndexSpec

	queryCount      int64
	generationCount int64
}

// Options tunes a Collection's behavior.
type Options struct {
	TrainThreshold   int
	SurrogateCount   int
	InferenceOptions inference.Options
}

// DefaultOptions returns the spec's defaults.
func DefaultOptions() Options {
	return Options{
		TrainThreshold:   10,
		SurrogateCount:   DefaultSurrogateCount,
		InferenceOptions: inference.DefaultOptions(),
	}
}

// New builds an empty Collection with the default `_id_` index.
func New(db, name string, opts Options) *Collection {
	if opts.TrainThreshold <= 0 {
		opts.TrainThreshold = 10
	}
	if opts.SurrogateCount <= 0 {
		opts.SurrogateCount = DefaultSurrogateCount
	}
	c := &Collection{
		DB:             db,
		Name:           name,
		opts:           opts,
		trainThreshold: opts.TrainThreshold,
		cache:          map[string]bsonx.D{},
		indexes:        map[string]IndexSpec{},
	}
	c.indexes["_id_"] = IndexSpec{Name: "_id_", Keys: bsonx.D{{Key: "_id", Value: int32(1)}}, Unique: true}
	return c
}

// Schema returns the collection's current trained model, or nil if it has
// never trained.
func (c *Collection) Schema() *model.Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schema
}

func (c *Collection) SetSchema(m *model.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schema = m
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case bsonx.ObjectID:
		return id.Hex()
	default:
		return ""
	}
}

// Insert implements spec §4.8's insert: assigns _id where missing, buffers
// for training, and trains (infer on first call, merge thereafter) once
// the buffer crosses trainThreshold.
func (c *Collection) Insert(docs []bsonx.D) (int, []interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		hasID := false
		for _, e := range d {
			if e.Key == "_id" {
				hasID = true
				ids = append(ids, e.Value)
				break
			}
		}
		if !hasID {
			oid := bsonx.NewObjectID()
			d = append(bsonx.D{{Key: "_id", Value: oid}}, d...)
			ids = append(ids, oid)
		}
		c.pendingBuffer = append(c.pendingBuffer, d)
		c.documentCount++

		key := idString(d[0].Value)
		if key != "" {
			if _, exists := c.cache[key]; !exists {
				c.cacheOrder = append(c.cacheOrder, key)
			}
			c.cache[key] = d
		}
	}

	if len(c.pendingBuffer) >= c.trainThreshold {
		c.trainLocked()
	}

	return len(docs), ids, nil
}

func (c *Collection) trainLocked() {
	inferred := inference.InferSchema(c.pendingBuffer, c.opts.InferenceOptions)
	if c.schema == nil {
		c.schema = inferred
	} else {
		c.schema = merge.Models(c.schema, inferred)
	}
	c.pendingBuffer = nil
}

// Flush forces training on whatever is in the pending buffer, regardless
// of threshold.
func (c *Collection) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pendingBuffer) > 0 {
		c.trainLocked()
	}
}

// Count implements spec §4.8's count: a fixed surrogate when a model
// exists, else 0 — there is no document store to count.
func (c *Collection) Count(query bsonx.D) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.schema == nil {
		return 0
	}
	return c.opts.SurrogateCount
}

// Drop removes the model and resets state, recreating the default _id_
// index, per spec §4.8.
func (c *Collection) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schema = nil
	c.pendingBuffer = nil
	c.cache = map[string]bsonx.D{}
	c.cacheOrder = nil
	c.documentCount = 0
	c.indexes = map[string]IndexSpec{"_id_": {Name: "_id_", Keys: bsonx.D{{Key: "_id", Value: int32(1)}}, Unique: true}}
}

// CreateIndex registers index metadata only; no structure backs it.
func (c *Collection) CreateIndex(spec IndexSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if spec.Name == "" {
		spec.Name = defaultIndexName(spec.Keys)
	}
	c.indexes[spec.Name] = spec
}

func defaultIndexName(keys bsonx.D) string {
	name := ""
	for _, e := range keys {
		if name != "" {
			name += "_"
		}
		name += e.Key + "_1"
	}
	if name == "" {
		name = "index"
	}
	return name
}

// DropIndex removes index metadata; `_id_` is undroppable.
func (c *Collection) DropIndex(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "_id_" {
		return false
	}
	if _, ok := c.indexes[name]; !ok {
		return false
	}
	delete(c.indexes, name)
	return true
}

// Indexes returns a snapshot of index metadata.
func (c *Collection) Indexes() []IndexSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]IndexSpec, 0, len(c.indexes))
	for _, idx := range c.indexes {
		out = append(out, idx)
	}
	return out
}

// DocumentCount reports the running count insert/delete maintain, used by
// listCollections-style introspection.
func (c *Collection) DocumentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.documentCount
}

func (c *Collection) bumpQueryCount() {
	c.queryCount++
}

func (c *Collection) bumpGenerationCount(n int) {
	c.generationCount += int64(n)
}

// Stats reports the query/generation counters spec §4.8 asks find to
// increment.
func (c *Collection) Stats() (queries, generated int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queryCount, c.generationCount
}
