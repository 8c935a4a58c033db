package merge

import (
	"testing"

	"github.com/mongtap/mongtap/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelsMergeNumericBounds(t *testing.T) {
	existing := &model.Model{Type: model.TypeInteger, Minimum: model.Float64Ptr(1), Maximum: model.Float64Ptr(5)}
	incoming := &model.Model{Type: model.TypeInteger, Minimum: model.Float64Ptr(-2), Maximum: model.Float64Ptr(10)}

	merged := Models(existing, incoming)
	require.Equal(t, model.TypeInteger, merged.Type)
	assert.Equal(t, -2.0, *merged.Minimum)
	assert.Equal(t, 10.0, *merged.Maximum)
}

func TestModelsMergeObjectRequiredIntersects(t *testing.T) {
	existing := &model.Model{
		Type:       model.TypeObject,
		Properties: map[string]*model.Model{"a": {Type: model.TypeInteger}, "b": {Type: model.TypeString}},
		Required:   []string{"a", "b"},
	}
	incoming := &model.Model{
		Type:       model.TypeObject,
		Properties: map[string]*model.Model{"a": {Type: model.TypeInteger}, "c": {Type: model.TypeBoolean}},
		Required:   []string{"a"},
	}

	merged := Models(existing, incoming)
	assert.ElementsMatch(t, []string{"a"}, merged.Required)
	assert.Contains(t, merged.Properties, "b")
	assert.Contains(t, merged.Properties, "c")
}

func TestModelsMergeDisagreeingTypesProducesAnyOf(t *testing.T) {
	existing := &model.Model{Type: model.TypeString}
	incoming := &model.Model{Type: model.TypeInteger}

	merged := Models(existing, incoming)
	assert.Equal(t, model.ShapeAnyOf, merged.Shape())
	assert.Len(t, merged.AnyOf, 2)
}

func TestModelsMergeEnumUnion(t *testing.T) {
	existing := &model.Model{Type: model.TypeString, Enum: []interface{}{"a", "b"}}
	incoming := &model.Model{Type: model.TypeString, Enum: []interface{}{"b", "c"}}

	merged := Models(existing, incoming)
	assert.ElementsMatch(t, []interface{}{"a", "b", "c"}, merged.Enum)
}

func TestModelsMergeFormatFirstWins(t *testing.T) {
	existing := &model.Model{Type: model.TypeString, Format: "email"}
	incoming := &model.Model{Type: model.TypeString, Format: "uri"}

	merged := Models(existing, incoming)
	assert.Equal(t, "email", merged.Format)
}

func TestMergeHistogramMergesOverlappingBins(t *testing.T) {
	a := &model.Histogram{
		TotalCount: 10,
		MinValue:   0,
		MaxValue:   10,
		Bins: []model.HistogramBin{
			{RangeStart: 0, RangeEnd: 5, Count: 6},
			{RangeStart: 5, RangeEnd: 10, Count: 4},
		},
	}
	b := &model.Histogram{
		TotalCount: 5,
		MinValue:   3,
		MaxValue:   8,
		Bins: []model.HistogramBin{
			{RangeStart: 3, RangeEnd: 8, Count: 5},
		},
	}

	merged := mergeHistogram(a, b)
	require.Equal(t, 15, merged.TotalCount)
	// b's [3,8) bin overlaps both of a's bins and should coalesce them into one.
	require.Len(t, merged.Bins, 1)
	assert.Equal(t, 0.0, merged.Bins[0].RangeStart)
	assert.Equal(t, 10.0, merged.Bins[0].RangeEnd)
	assert.Equal(t, 15, merged.Bins[0].Count)
	assert.Equal(t, 0.0, merged.Bins[0].FreqStart)
	assert.Equal(t, 100.0, merged.Bins[0].FreqEnd)
}

func TestMergeHistogramCapsAtTwentyBins(t *testing.T) {
	mk := func(n int, start float64) *model.Histogram {
		h := &model.Histogram{MinValue: start, MaxValue: start + float64(n)}
		for i := 0; i < n; i++ {
			h.Bins = append(h.Bins, model.HistogramBin{
				RangeStart: start + float64(i),
				RangeEnd:   start + float64(i) + 1,
				Count:      1,
			})
			h.TotalCount++
		}
		return h
	}
	a := mk(15, 0)
	b := mk(15, 100)

	merged := mergeHistogram(a, b)
	assert.LessOrEqual(t, len(merged.Bins), 20)
	assert.Equal(t, 30, merged.TotalCount)

	total := 0
	for i, bin := range merged.Bins {
		total += bin.Count
		if i > 0 {
			assert.GreaterOrEqual(t, bin.RangeStart, merged.Bins[i-1].RangeStart)
			assert.GreaterOrEqual(t, bin.FreqStart, merged.Bins[i-1].FreqEnd)
		}
	}
	assert.Equal(t, merged.TotalCount, total)
	assert.InDelta(t, 100.0, merged.Bins[len(merged.Bins)-1].FreqEnd, 0.0001)
}

func TestMergeHistogramNilOperand(t *testing.T) {
	h := &model.Histogram{Bins: []model.HistogramBin{{RangeStart: 0, RangeEnd: 1, Count: 1}}, TotalCount: 1}
	assert.Same(t, h, mergeHistogram(nil, h))
	assert.Same(t, h, mergeHistogram(h, nil))
}
