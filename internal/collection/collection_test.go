package collection

import (
	"testing"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedCollection(t *testing.T) *Collection {
	t.Helper()
	opts := DefaultOptions()
	opts.TrainThreshold = 1
	c := New("testdb", "stocks", opts)
	_, _, err := c.Insert([]bsonx.D{
		{{Key: "sector", Value: "Tech"}, {Key: "price", Value: int32(100)}},
		{{Key: "sector", Value: "Energy"}, {Key: "price", Value: int32(50)}},
	})
	require.NoError(t, err)
	return c
}

func TestInsertTrainsModelAfterThreshold(t *testing.T) {
	c := trainedCollection(t)
	assert.NotNil(t, c.Schema())
}

func TestCountReturnsSurrogateOnceTrained(t *testing.T) {
	c := trainedCollection(t)
	assert.Equal(t, DefaultSurrogateCount, c.Count(bsonx.D{}))
}

func TestFindWithSeedIsDeterministic(t *testing.T) {
	c := trainedCollection(t)
	query := bsonx.D{{Key: "sector", Value: "Tech"}, {Key: "$seed", Value: int32(7)}}

	first, err := c.Find(query, FindOptions{Limit: 3})
	require.NoError(t, err)
	second, err := c.Find(query, FindOptions{Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, d := range first {
		v, ok := fieldOf(d, "sector")
		assert.True(t, ok)
		assert.Equal(t, "Tech", v)
	}
}

func TestProjectionInclusionKeepsOnlyListedFields(t *testing.T) {
	doc := bsonx.D{{Key: "_id", Value: "1"}, {Key: "a", Value: 1}, {Key: "b", Value: 2}}
	out := Project(doc, bsonx.D{{Key: "a", Value: 1}})
	assert.Len(t, out, 2)
	v, ok := fieldOf(out, "a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = fieldOf(out, "b")
	assert.False(t, ok)
}

func TestApplyUpdateSet(t *testing.T) {
	doc := bsonx.D{{Key: "_id", Value: "1"}, {Key: "a", Value: 1}}
	updated, changed := ApplyUpdate(doc, bsonx.D{{Key: "$set", Value: bsonx.D{{Key: "a", Value: 2}}}})
	assert.True(t, changed)
	v, _ := fieldOf(updated, "a")
	assert.Equal(t, 2, v)
}

func TestMatchesOperatorDocument(t *testing.T) {
	doc := bsonx.D{{Key: "age", Value: int32(30)}}
	assert.True(t, Matches(doc, bsonx.D{{Key: "age", Value: bsonx.D{{Key: "$gte", Value: int32(18)}}}}))
	assert.False(t, Matches(doc, bsonx.D{{Key: "age", Value: bsonx.D{{Key: "$lt", Value: int32(18)}}}}))
}

func TestDropResetsState(t *testing.T) {
	c := trainedCollection(t)
	c.Drop()
	assert.Nil(t, c.Schema())
	assert.Equal(t, 0, c.DocumentCount())
	idx := c.Indexes()
	require.Len(t, idx, 1)
	assert.Equal(t, "_id_", idx[0].Name)
}
