package model

import (
	"math"

	"github.com/montanaflynn/stats"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// round4 rounds entropy/maxEntropy/complexity scores to 4 decimals. round2
// has no caller: histogram bin ranges and freqStart/freqEnd are stored and
// marshaled without rounding.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func round2(v float64) float64 {
	return math.Round(v*1e2) / 1e2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// HistogramEntropy computes H = -Σ (c_i/N) log2(c_i/N) over bins with
// count > 0, per spec §4.3.
func HistogramEntropy(bins []HistogramBin) float64 {
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, b := range bins {
		if b.Count <= 0 {
			continue
		}
		p := float64(b.Count) / float64(total)
		h -= p * math.Log2(p)
	}
	return round4(h)
}

// HistogramMaxEntropy is log2(B) for B bins.
func HistogramMaxEntropy(binCount int) float64 {
	if binCount <= 0 {
		return 0
	}
	return round4(math.Log2(float64(binCount)))
}

// HistogramComplexity implements spec §4.3's weighted formula exactly:
//
//	0.4·H + 0.2·min(B/min(N,100), 1) + 0.2·min(σ/(max-min), 1) + 0.2·uniformity
//
// where uniformity = max(0, 1 - min(var(c_i/expected - 1), 1)) and
// expected = N/B. A factor that cannot be computed (e.g. max == min)
// contributes 0. The weighted sum is clamped to [0, 1] as specified, even
// though the raw entropy term alone can exceed 1 for wide histograms —
// that saturation is the spec's literal formula, not a bug in this
// implementation.
func HistogramComplexity(bins []HistogramBin, stdDev, minValue, maxValue float64) float64 {
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	h := HistogramEntropy(bins)
	binTerm := 0.0
	if total > 0 && len(bins) > 0 {
		denom := float64(total)
		if denom > 100 {
			denom = 100
		}
		binTerm = clamp01(float64(len(bins)) / denom)
	}

	rangeTerm := 0.0
	if maxValue > minValue {
		rangeTerm = clamp01(stdDev / (maxValue - minValue))
	}

	uniformity := 0.0
	if len(bins) > 0 && total > 0 {
		expected := float64(total) / float64(len(bins))
		if expected > 0 {
			ratios := make([]float64, 0, len(bins))
			for _, b := range bins {
				ratios = append(ratios, float64(b.Count)/expected-1)
			}
			v, err := stats.PopulationVariance(stats.Float64Data(ratios))
			if err == nil {
				uniformity = math.Max(0, 1-math.Min(v, 1))
			}
		}
	}

	c := 0.4*h + 0.2*binTerm + 0.2*rangeTerm + 0.2*uniformity
	return round4(clamp01(c))
}

// PopulationStdDev computes the population standard deviation of values
// using montanaflynn/stats, matching spec §3's StandardDeviation field.
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sd, err := stats.StandardDeviationPopulation(stats.Float64Data(values))
	if err != nil {
		return 0
	}
	return sd
}

// shannonEntropy computes Shannon entropy (base 2) over a frequency table.
func shannonEntropy(freq map[string]int) float64 {
	total := 0
	for _, c := range freq {
		total += c
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range freq {
		if c <= 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// perCharacterEntropy computes the Shannon entropy of a single string's own
// character distribution, used by StringModelMaxEntropy's "max over sample
// values of their per-character Shannon entropy" clause.
func perCharacterEntropy(s string) float64 {
	freq := map[string]int{}
	for _, r := range s {
		freq[string(r)]++
	}
	return shannonEntropy(freq)
}

// StringModelEntropy is Shannon entropy over valueFrequency, spec §4.3.
func StringModelEntropy(valueFrequency map[string]int) float64 {
	return round4(shannonEntropy(valueFrequency))
}

// StringModelMaxEntropy is
// max(entropyScore, max over sample values of their per-character Shannon
// entropy, log2(|uniqueCharacters|)), spec §4.3.
func StringModelMaxEntropy(entropyScore float64, sampleValues []string, uniqueCharacters []string) float64 {
	maxE := entropyScore
	for _, s := range sampleValues {
		if e := perCharacterEntropy(s); e > maxE {
			maxE = e
		}
	}
	if len(uniqueCharacters) > 0 {
		if e := math.Log2(float64(len(uniqueCharacters))); e > maxE {
			maxE = e
		}
	}
	return round4(maxE)
}

// StringModelComplexity implements spec §4.3's weighted formula:
//
//	0.3·normalizedEntropy + 0.2·lengthVariability + 0.2·charDiversity +
//	  0.15·patternDiversity + 0.15·uniquenessRatio
//
// Each term is clamped into [0, 1] before weighting; the sum is clamped
// into [0, 1] again. The spec names the five terms without pinning their
// exact sub-formula, so the definitions below are this implementation's
// decision (recorded in DESIGN.md):
//
//   - normalizedEntropy = entropyScore / maxEntropy
//   - lengthVariability = (maxLength - minLength) / max(maxLength, 1)
//   - charDiversity     = |uniqueCharacters| / 64 (a practical alphabet
//     saturation point: lower+upper+digit+common punctuation)
//   - patternDiversity  = |patterns| / 10 (patterns are capped at top 10)
//   - uniquenessRatio   = uniqueValueCount / totalSamples
func StringModelComplexity(sm *StringModel) float64 {
	normalizedEntropy := 0.0
	if sm.MaxEntropy > 0 {
		normalizedEntropy = clamp01(sm.EntropyScore / sm.MaxEntropy)
	}

	lengthVariability := 0.0
	if sm.MaxLength > 0 {
		lengthVariability = clamp01(float64(sm.MaxLength-sm.MinLength) / float64(sm.MaxLength))
	}

	charDiversity := clamp01(float64(len(sm.UniqueCharacters)) / 64)
	patternDiversity := clamp01(float64(len(sm.Patterns)) / 10)

	uniquenessRatio := 0.0
	if sm.TotalSamples > 0 {
		uniquenessRatio = clamp01(float64(sm.UniqueValueCount) / float64(sm.TotalSamples))
	}

	c := 0.3*normalizedEntropy + 0.2*lengthVariability + 0.2*charDiversity +
		0.15*patternDiversity + 0.15*uniquenessRatio
	return round4(clamp01(c))
}

// sortedKeys returns the keys of freq sorted ascending, used wherever a
// deterministic iteration order over a frequency map is needed (e.g. top-N
// truncation, JSON serialization).
func sortedKeys(freq map[string]int) []string {
	keys := maps.Keys(freq)
	slices.Sort(keys)
	return keys
}
