package cursor

import (
	"sync"
	"time"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// ManagerOptions tunes Manager's population cap, idle timeout, and
// sweep cadence, spec §4.9.
type ManagerOptions struct {
	MaxPopulation int
	Timeout       time.Duration
	SweepInterval time.Duration
	BufferSize    int
}

// DefaultManagerOptions returns the spec's defaults.
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		MaxPopulation: 1000,
		Timeout:       10 * time.Minute,
		SweepInterval: time.Minute,
		BufferSize:    1000,
	}
}

// Manager owns every open cursor across all collections, enforcing a
// maximum population with oldest-first eviction and a periodic idle
// sweep.
type Manager struct {
	mu      sync.Mutex
	opts    ManagerOptions
	nextID  int64
	cursors map[int64]*Cursor
	order   []int64 // admission order, oldest first

	lastSweep time.Time
}

// NewManager builds a Manager. The id allocator starts from a
// process-unique base so cursor ids are unpredictable across restarts
// without requiring true randomness on every allocation.
func NewManager(opts ManagerOptions) *Manager {
	if opts.MaxPopulation <= 0 {
		opts.MaxPopulation = 1000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	return &Manager{
		opts:    opts,
		nextID:  time.Now().UnixNano(),
		cursors: map[int64]*Cursor{},
	}
}

// Admit registers a new cursor around source/initial, evicting the
// oldest open cursor first if the population cap would be exceeded.
func (m *Manager) Admit(db, collection string, source Source, initial []bsonx.D, bufferSize, limit int, now time.Time) *Cursor {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.cursors) >= m.opts.MaxPopulation && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.cursors, oldest)
	}

	m.nextID++
	id := m.nextID
	if id == 0 {
		id = 1
	}
	c := NewCursor(id, db, collection, source, initial, bufferSize, limit, now)
	m.cursors[id] = c
	m.order = append(m.order, id)
	return c
}

// Get looks up an open cursor by id.
func (m *Manager) Get(id int64) (*Cursor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cursors[id]
	return c, ok
}

// Kill closes and removes cursor ids, per the killCursors command. It is
// obeyed synchronously, per spec §5.
func (m *Manager) Kill(ids []int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	killed := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.cursors[id]; ok {
			delete(m.cursors, id)
			killed = append(killed, id)
		}
	}
	if len(killed) > 0 {
		m.removeFromOrder(killed)
	}
	return killed
}

// KillAllFor closes every cursor owned by one connection context; the
// wire layer calls this when a TCP connection closes, per spec §5.
func (m *Manager) KillAllFor(ids []int64) {
	m.Kill(ids)
}

func (m *Manager) removeFromOrder(removed []int64) {
	removedSet := map[int64]bool{}
	for _, id := range removed {
		removedSet[id] = true
	}
	out := m.order[:0]
	for _, id := range m.order {
		if !removedSet[id] {
			out = append(out, id)
		}
	}
	m.order = out
}

// Sweep closes every cursor idle for at least opts.Timeout and returns
// how many it closed. A call made less than opts.SweepInterval after the
// previous sweep returns 0 without sweeping (spec §4.9).
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	if now.Sub(m.lastSweep) < m.opts.SweepInterval {
		m.mu.Unlock()
		return 0
	}
	m.lastSweep = now
	var expired []int64
	for id, c := range m.cursors {
		if c.Idle(now, m.opts.Timeout) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.cursors, id)
	}
	m.removeFromOrder(expired)
	m.mu.Unlock()
	return len(expired)
}

// Population reports the current open-cursor count.
func (m *Manager) Population() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cursors)
}
