package inference

import (
	"math"
	"regexp"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

// sampleMetrics bundles the quantities spec §4.5 step 2 asks enum detection
// to compute over a value multiset.
type sampleMetrics struct {
	total        int
	frequency    map[string]int
	uniqueValues []string
	uniqueCount  int
	uniqueRatio  float64

	meanLength float64
	maxLength  float64
	minLength  float64
	lengthVar  float64

	shannonEntropy   float64
	powerLawExponent float64
	concentration    float64

	isStandardSet      bool
	standardSetName    string
	standardSetOverlap float64
	isCodePattern      bool
	isNaturalLanguage  bool
	hasStructuredFormat bool
}

var codePatternRegexes = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z_]+$`),
	regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`),
	regexp.MustCompile(`^\w+_\w+$`),
	regexp.MustCompile(`^[A-Z][a-z]+(?:[A-Z][a-z]+)*$`),
}

var naturalLanguageRegex = regexp.MustCompile(`^[\p{L}\s]+$`)

func computeSampleMetrics(values []string) sampleMetrics {
	m := sampleMetrics{total: len(values)}
	if m.total == 0 {
		return m
	}

	m.frequency = lo.CountValuesBy(values, func(s string) string { return s })
	set := mapset.NewThreadUnsafeSet[string]()
	for _, v := range values {
		set.Add(v)
	}
	m.uniqueValues = set.ToSlice()
	sort.Strings(m.uniqueValues)
	m.uniqueCount = set.Cardinality()
	m.uniqueRatio = float64(m.uniqueCount) / float64(m.total)

	lengths := make([]float64, len(values))
	for i, v := range values {
		lengths[i] = float64(len([]rune(v)))
	}
	m.meanLength, _ = stats.Mean(stats.Float64Data(lengths))
	m.maxLength, _ = stats.Max(stats.Float64Data(lengths))
	m.minLength, _ = stats.Min(stats.Float64Data(lengths))
	m.lengthVar, _ = stats.Variance(stats.Float64Data(lengths))

	m.shannonEntropy = frequencyEntropy(m.frequency)
	m.powerLawExponent = powerLawExponent(m.frequency)
	m.concentration = concentrationRatio(m.frequency, m.total)

	m.standardSetName, m.standardSetOverlap = standardSetOverlap(m.uniqueValues)
	m.isStandardSet = m.standardSetOverlap >= 0.5

	codeMatches := 0
	naturalMatches := 0
	for _, v := range values {
		if matchesAny(codePatternRegexes, v) {
			codeMatches++
		}
		if naturalLanguageRegex.MatchString(v) && strings.Contains(v, " ") {
			naturalMatches++
		}
	}
	m.isCodePattern = float64(codeMatches)/float64(m.total) >= 0.7
	m.isNaturalLanguage = float64(naturalMatches)/float64(m.total) >= 0.5
	m.hasStructuredFormat = structuredFormatFlag(values)

	return m
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// frequencyEntropy is Shannon entropy (base 2) over a value frequency
// table, shared with model.StringModelEntropy's formula.
func frequencyEntropy(freq map[string]int) float64 {
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

// powerLawExponent is |slope| of a log-rank vs log-frequency regression
// over the top 100 most frequent values (spec §4.5 step 2), computed via
// montanaflynn/stats.LinearRegression over the two endpoint-fitted series.
func powerLawExponent(freq map[string]int) float64 {
	type rf struct {
		value string
		count int
	}
	ranked := make([]rf, 0, len(freq))
	for v, c := range freq {
		ranked = append(ranked, rf{v, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].value < ranked[j].value
	})
	if len(ranked) > 100 {
		ranked = ranked[:100]
	}
	if len(ranked) < 2 {
		return 0
	}

	series := make(stats.Series, 0, len(ranked))
	for i, r := range ranked {
		if r.count <= 0 {
			continue
		}
		series = append(series, stats.Coordinate{
			X: math.Log2(float64(i + 1)),
			Y: math.Log2(float64(r.count)),
		})
	}
	if len(series) < 2 {
		return 0
	}
	fitted, err := stats.LinearRegression(series)
	if err != nil || len(fitted) < 2 {
		return 0
	}
	dx := fitted[len(fitted)-1].X - fitted[0].X
	if dx == 0 {
		return 0
	}
	slope := (fitted[len(fitted)-1].Y - fitted[0].Y) / dx
	return math.Abs(slope)
}

// concentrationRatio is the fraction of distinct values needed to cover
// 80% of observations (spec §4.5 step 2).
func concentrationRatio(freq map[string]int, total int) float64 {
	if total == 0 || len(freq) == 0 {
		return 0
	}
	counts := make([]int, 0, len(freq))
	for _, c := range freq {
		counts = append(counts, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	target := 0.8 * float64(total)
	cumulative := 0
	needed := 0
	for _, c := range counts {
		cumulative += c
		needed++
		if float64(cumulative) >= target {
			break
		}
	}
	return float64(needed) / float64(len(freq))
}

// structuredFormatFlag implements spec §4.5 step 2's hasStructuredFormat:
// mapping letters to A/a and digits to 0 yields ≤3 distinct classes, or a
// class-to-value ratio < 0.2.
func structuredFormatFlag(values []string) bool {
	if len(values) == 0 {
		return false
	}
	classes := mapset.NewThreadUnsafeSet[string]()
	for _, v := range values {
		classes.Add(structuralClass(v))
	}
	n := classes.Cardinality()
	if n <= 3 {
		return true
	}
	return float64(n)/float64(len(values)) < 0.2
}

func structuralClass(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteByte('A')
		case r >= 'a' && r <= 'z':
			b.WriteByte('a')
		case r >= '0' && r <= '9':
			b.WriteByte('0')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
