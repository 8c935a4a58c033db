package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogramEntropyUniform(t *testing.T) {
	// 10 bins, each count 1 (spec §8 S2): H = log2(10) ≈ 3.3219, and since
	// the distribution is uniform, entropyScore == maxEntropy.
	bins := make([]HistogramBin, 10)
	for i := range bins {
		bins[i] = HistogramBin{Count: 1}
	}
	h := HistogramEntropy(bins)
	maxH := HistogramMaxEntropy(len(bins))
	assert.InDelta(t, 3.3219, h, 0.0001)
	assert.Equal(t, maxH, h)
}

func TestHistogramEntropyNeverExceedsMax(t *testing.T) {
	bins := []HistogramBin{{Count: 9}, {Count: 1}}
	h := HistogramEntropy(bins)
	maxH := HistogramMaxEntropy(len(bins))
	assert.LessOrEqual(t, h, maxH)
}

func TestHistogramComplexityClamped(t *testing.T) {
	bins := make([]HistogramBin, 10)
	for i := range bins {
		bins[i] = HistogramBin{Count: 1}
	}
	c := HistogramComplexity(bins, 2.87, 1, 10)
	assert.GreaterOrEqual(t, c, 0.0)
	assert.LessOrEqual(t, c, 1.0)
}

func TestStringModelEntropyAndComplexityBounds(t *testing.T) {
	sm := &StringModel{
		MinLength:        3,
		MaxLength:        8,
		UniqueCharacters: []string{"a", "b", "c"},
		Patterns:         map[string]int{"LLL": 5, "LLd": 2},
		TotalSamples:     10,
		UniqueValueCount: 4,
	}
	sm.EntropyScore = StringModelEntropy(map[string]int{"x": 3, "y": 7})
	sm.MaxEntropy = StringModelMaxEntropy(sm.EntropyScore, []string{"xyz"}, sm.UniqueCharacters)
	sm.Complexity = StringModelComplexity(sm)

	assert.GreaterOrEqual(t, sm.Complexity, 0.0)
	assert.LessOrEqual(t, sm.Complexity, 1.0)
	assert.LessOrEqual(t, sm.EntropyScore, sm.MaxEntropy)
}

func TestBinContaining(t *testing.T) {
	h := &Histogram{Bins: []HistogramBin{
		{FreqStart: 0, FreqEnd: 50},
		{FreqStart: 50, FreqEnd: 100},
	}}
	assert.Equal(t, 0, h.BinContaining(0))
	assert.Equal(t, 0, h.BinContaining(49.9))
	assert.Equal(t, 1, h.BinContaining(50))
	assert.Equal(t, 1, h.BinContaining(100))
}
