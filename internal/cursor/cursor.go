// Package cursor implements server-side cursor management, spec §4.9:
// a cursor streams a generated result set in batches, backed by an
// internal buffer that refills from its source collection in chunks.
package cursor

import (
	"sync"
	"time"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// Source supplies more documents to a cursor on demand, in chunks of
// bufferSize, honoring the cursor's remaining limit. It is implemented by
// the collection layer.
type Source interface {
	Pull(skip, n int) ([]bsonx.D, error)
}

// Cursor is one server-side iterator, addressed by a non-zero 64-bit id.
type Cursor struct {
	mu sync.Mutex

	ID         int64
	DB         string
	Collection string

	source     Source
	buffer     []bsonx.D
	bufferSize int
	limit      int // 0 = unlimited

	pulled        int
	documentsSent int
	lastAccessed  time.Time
	closed        bool
}

// NewCursor builds a cursor around source, seeded with an initial batch
// already produced by the find that created it.
func NewCursor(id int64, db, collection string, source Source, initial []bsonx.D, bufferSize, limit int, now time.Time) *Cursor {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &Cursor{
		ID:            id,
		DB:            db,
		Collection:    collection,
		source:        source,
		buffer:        append([]bsonx.D{}, initial...),
		bufferSize:    bufferSize,
		limit:         limit,
		pulled:        len(initial),
		documentsSent: 0,
		lastAccessed:  now,
	}
}

// GetNextBatch implements spec §4.9: drain the internal buffer first,
// then pull more from the source in bufferSize chunks, respecting limit.
// Returns the batch and whether the cursor is now exhausted.
func (c *Cursor) GetNextBatch(size int, now time.Time) ([]bsonx.D, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAccessed = now

	if size <= 0 {
		size = c.bufferSize
	}

	dry := false
	for len(c.buffer) < size && !c.limitReached() {
		toPull := c.bufferSize
		if c.limit > 0 {
			remaining := c.limit - c.pulled
			if remaining <= 0 {
				break
			}
			if toPull > remaining {
				toPull = remaining
			}
		}
		more, err := c.source.Pull(c.pulled, toPull)
		if err != nil {
			return nil, false, err
		}
		c.buffer = append(c.buffer, more...)
		c.pulled += len(more)
		if len(more) == 0 {
			dry = true
			break
		}
	}

	n := size
	if n > len(c.buffer) {
		n = len(c.buffer)
	}
	batch := c.buffer[:n]
	c.buffer = c.buffer[n:]
	c.documentsSent += len(batch)

	exhausted := len(c.buffer) == 0 && (c.limitReached() || dry)
	if exhausted {
		c.closed = true
	}
	return batch, exhausted, nil
}

func (c *Cursor) limitReached() bool {
	return c.limit > 0 && c.pulled >= c.limit
}

// Idle reports whether now - lastAccessed >= timeout.
func (c *Cursor) Idle(now time.Time, timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastAccessed) >= timeout
}

func (c *Cursor) Touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAccessed = now
}

func (c *Cursor) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
