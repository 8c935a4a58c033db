package aggregation

import (
	"testing"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocs() []bsonx.D {
	return []bsonx.D{
		{{Key: "_id", Value: int64(1)}, {Key: "sector", Value: "Tech"}, {Key: "price", Value: 10.0}},
		{{Key: "_id", Value: int64(2)}, {Key: "sector", Value: "Tech"}, {Key: "price", Value: 20.0}},
		{{Key: "_id", Value: int64(3)}, {Key: "sector", Value: "Energy"}, {Key: "price", Value: 5.0}},
	}
}

func TestExecuteMatchThenSort(t *testing.T) {
	pipeline := []bsonx.D{
		{{Key: "$match", Value: bsonx.D{{Key: "sector", Value: "Tech"}}}},
		{{Key: "$sort", Value: bsonx.D{{Key: "price", Value: -1}}}},
	}
	out, err := Execute(sampleDocs(), pipeline, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 20.0, out[0][2].Value)
}

func TestExecuteGroupSumByField(t *testing.T) {
	pipeline := []bsonx.D{
		{{Key: "$group", Value: bsonx.D{
			{Key: "_id", Value: "$sector"},
			{Key: "total", Value: bsonx.D{{Key: "$sum", Value: "$price"}}},
			{Key: "count", Value: bsonx.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	out, err := Execute(sampleDocs(), pipeline, 0)
	require.NoError(t, err)
	totals := map[string]float64{}
	for _, d := range out {
		id, _ := resolveDotted(d, "_id")
		total, _ := resolveDotted(d, "total")
		totals[id.(string)] = total.(float64)
	}
	assert.Equal(t, 30.0, totals["Tech"])
	assert.Equal(t, 5.0, totals["Energy"])
}

func TestExecuteProjectExpression(t *testing.T) {
	pipeline := []bsonx.D{
		{{Key: "$project", Value: bsonx.D{
			{Key: "sector", Value: int64(1)},
			{Key: "doublePrice", Value: bsonx.D{{Key: "$multiply", Value: bsonx.A{"$price", 2}}}},
		}}},
	}
	out, err := Execute(sampleDocs(), pipeline, 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	v, ok := resolveDotted(out[0], "doublePrice")
	require.True(t, ok)
	assert.Equal(t, 20.0, v)
}

func TestExecuteCountStage(t *testing.T) {
	pipeline := []bsonx.D{
		{{Key: "$match", Value: bsonx.D{{Key: "sector", Value: "Tech"}}}},
		{{Key: "$count", Value: "n"}},
	}
	out, err := Execute(sampleDocs(), pipeline, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0][0].Value)
}

func TestExecuteCeilingExceeded(t *testing.T) {
	docs := make([]bsonx.D, 10)
	for i := range docs {
		docs[i] = bsonx.D{{Key: "i", Value: i}}
	}
	_, err := Execute(docs, []bsonx.D{{{Key: "$match", Value: bsonx.D{}}}}, 5)
	assert.Error(t, err)
}

func TestExecuteUnwindExpandsArray(t *testing.T) {
	docs := []bsonx.D{
		{{Key: "_id", Value: int64(1)}, {Key: "tags", Value: bsonx.A{"a", "b", "c"}}},
	}
	out, err := Execute(docs, []bsonx.D{{{Key: "$unwind", Value: "$tags"}}}, 0)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}
