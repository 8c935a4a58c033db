package generator

import (
	"testing"

	"github.com/mongtap/mongtap/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModel() *model.Model {
	return &model.Model{
		Type:     model.TypeObject,
		Required: []string{"age"},
		Properties: map[string]*model.Model{
			"age":    {Type: model.TypeInteger, Minimum: model.Float64Ptr(1), Maximum: model.Float64Ptr(10)},
			"active": {Type: model.TypeBoolean},
		},
	}
}

func TestGenerateSameSeedIsDeterministic(t *testing.T) {
	m := sampleModel()
	opts := Options{Seed: 42, Seeded: true}

	d1, err := Generate(m, opts)
	require.NoError(t, err)
	d2, err := Generate(m, opts)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
}

func TestGenerateRespectsEqualsConstraint(t *testing.T) {
	m := sampleModel()
	opts := Options{
		Seed:   7,
		Seeded: true,
		Constraints: Constraints{
			"age": {Equals: int64(5), HasEquals: true},
		},
	}
	d, err := Generate(m, opts)
	require.NoError(t, err)

	found := false
	for _, e := range d {
		if e.Key == "age" {
			found = true
			assert.Equal(t, int64(5), e.Value)
		}
	}
	assert.True(t, found)
}

func TestGenerateHistogramStaysInBounds(t *testing.T) {
	bins := []model.HistogramBin{
		{RangeStart: 1, RangeEnd: 10, Count: 10, FreqStart: 0, FreqEnd: 100},
	}
	m := &model.Model{
		Type:      model.TypeInteger,
		Minimum:   model.Float64Ptr(1),
		Maximum:   model.Float64Ptr(10),
		Histogram: &model.Histogram{Bins: bins, MinValue: 1, MaxValue: 10},
	}
	for i := 0; i < 50; i++ {
		v := generateByType(m, "x", NewSource(int64(i), true), Options{})
		iv := v.(int64)
		assert.GreaterOrEqual(t, iv, int64(1))
		assert.LessOrEqual(t, iv, int64(10))
	}
}
