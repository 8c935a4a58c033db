package inference

import (
	"testing"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferSchemaTwoDocuments(t *testing.T) {
	// spec scenario S1
	docs := []bsonx.D{
		{{Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}},
		{{Key: "a", Value: int32(2)}, {Key: "b", Value: "y"}, {Key: "c", Value: true}},
	}

	m := InferSchema(docs, DefaultOptions())
	require.Equal(t, "object", string(m.Type))
	require.Contains(t, m.Properties, "a")
	require.Contains(t, m.Properties, "b")
	require.Contains(t, m.Properties, "c")

	a := m.Properties["a"]
	assert.Equal(t, "integer", string(a.Type))
	require.NotNil(t, a.Minimum)
	require.NotNil(t, a.Maximum)
	assert.Equal(t, 1.0, *a.Minimum)
	assert.Equal(t, 2.0, *a.Maximum)

	b := m.Properties["b"]
	assert.Equal(t, "string", string(b.Type))
	require.NotNil(t, b.MinLength)
	require.NotNil(t, b.MaxLength)
	assert.Equal(t, 1, *b.MinLength)
	assert.Equal(t, 1, *b.MaxLength)

	c := m.Properties["c"]
	assert.Equal(t, "boolean", string(c.Type))

	assert.ElementsMatch(t, []string{"a", "b"}, m.Required)
}

func TestInferSchemaNestedArrayAndObject(t *testing.T) {
	docs := []bsonx.D{
		{
			{Key: "tags", Value: bsonOf("x", "y")},
			{Key: "address", Value: bsonx.D{{Key: "city", Value: "Austin"}}},
		},
		{
			{Key: "tags", Value: bsonOf("z")},
			{Key: "address", Value: bsonx.D{{Key: "city", Value: "Denver"}}},
		},
	}

	m := InferSchema(docs, DefaultOptions())
	tags := m.Properties["tags"]
	assert.Equal(t, "array", string(tags.Type))
	require.NotNil(t, tags.Items)
	assert.Equal(t, "string", string(tags.Items.Type))

	addr := m.Properties["address"]
	assert.Equal(t, "object", string(addr.Type))
	assert.Equal(t, "string", string(addr.Properties["city"].Type))
}

func bsonOf(values ...string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
