package cursor

import (
	"testing"
	"time"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	docs []bsonx.D
}

func (f *fakeSource) Pull(skip, n int) ([]bsonx.D, error) {
	if skip >= len(f.docs) {
		return nil, nil
	}
	end := skip + n
	if end > len(f.docs) {
		end = len(f.docs)
	}
	return f.docs[skip:end], nil
}

func docsOf(n int) []bsonx.D {
	out := make([]bsonx.D, n)
	for i := range out {
		out[i] = bsonx.D{{Key: "i", Value: i}}
	}
	return out
}

// TestCursorStreamingBatches mirrors spec scenario S5's shape: an initial
// batch of 50, then getMore calls of 50/50/50/37, the last of which reports
// the cursor exhausted.
func TestCursorStreamingBatches(t *testing.T) {
	all := docsOf(237)
	src := &fakeSource{docs: all}
	now := time.Now()

	initial := all[:50]
	c := NewCursor(99, "db", "coll", src, initial, 1000, 237, now)

	batch, _, err := c.GetNextBatch(50, now)
	require.NoError(t, err)
	assert.Len(t, batch, 50)

	for i := 0; i < 3; i++ {
		batch, _, err = c.GetNextBatch(50, now)
		require.NoError(t, err)
		assert.Len(t, batch, 50)
	}

	batch, exhausted, err := c.GetNextBatch(50, now)
	require.NoError(t, err)
	assert.Len(t, batch, 37)
	assert.True(t, exhausted)
}

func TestManagerEvictsOldestOnOverflow(t *testing.T) {
	m := NewManager(ManagerOptions{MaxPopulation: 2, Timeout: time.Minute, SweepInterval: time.Second})
	now := time.Now()
	src := &fakeSource{}

	c1 := m.Admit("db", "a", src, nil, 10, 0, now)
	_ = m.Admit("db", "b", src, nil, 10, 0, now)
	assert.Equal(t, 2, m.Population())

	_ = m.Admit("db", "c", src, nil, 10, 0, now)
	assert.Equal(t, 2, m.Population())

	_, ok := m.Get(c1.ID)
	assert.False(t, ok)
}

func TestManagerSweepClosesIdleCursors(t *testing.T) {
	m := NewManager(ManagerOptions{MaxPopulation: 10, Timeout: time.Minute, SweepInterval: 0})
	now := time.Now()
	src := &fakeSource{}
	c := m.Admit("db", "a", src, nil, 10, 0, now)

	later := now.Add(2 * time.Minute)
	n := m.Sweep(later)
	assert.Equal(t, 1, n)
	_, ok := m.Get(c.ID)
	assert.False(t, ok)
}
