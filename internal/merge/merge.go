// Package merge implements incremental model training (spec §4.6):
// combining an existing model.Model with freshly inferred observations
// without discarding what earlier training learned.
package merge

import (
	"sort"

	"github.com/mongtap/mongtap/internal/model"
	mapset "github.com/deckarep/golang-set/v2"
)

// Models combines existing and incoming into a single model node,
// following spec §4.6: type union, numeric bounds/histogram merge,
// string model merge, enum union, object property union with required
// intersection, array item merge, anyOf append-and-dedupe, and
// first-non-null-wins for format/pattern.
func Models(existing, incoming *model.Model) *model.Model {
	if existing == nil {
		return incoming
	}
	if incoming == nil {
		return existing
	}

	if existing.Shape() == model.ShapeAnyOf || incoming.Shape() == model.ShapeAnyOf ||
		(existing.Type != "" && incoming.Type != "" && existing.Type != incoming.Type) {
		return mergeAsAnyOf(existing, incoming)
	}

	out := &model.Model{Type: existing.Type}
	if out.Type == "" {
		out.Type = incoming.Type
	}

	out.Enum = mergeEnum(existing.Enum, incoming.Enum)
	out.Format = firstNonEmpty(existing.Format, incoming.Format)
	out.Pattern = firstNonEmpty(existing.Pattern, incoming.Pattern)

	switch out.Type {
	case model.TypeObject:
		mergeObject(out, existing, incoming)
	case model.TypeArray:
		mergeArray(out, existing, incoming)
	case model.TypeString:
		mergeString(out, existing, incoming)
	case model.TypeInteger, model.TypeNumber:
		mergeNumeric(out, existing, incoming)
	}

	return out
}

// mergeAsAnyOf handles the case where the two sides disagree on type (or
// either is already a union): flatten both into one deduplicated anyOf,
// matching branches of the same type into a single merged branch.
func mergeAsAnyOf(existing, incoming *model.Model) *model.Model {
	branches := append(expandToBranches(existing), expandToBranches(incoming)...)

	byType := map[model.Type][]*model.Model{}
	var order []model.Type
	for _, b := range branches {
		if _, ok := byType[b.Type]; !ok {
			order = append(order, b.Type)
		}
		byType[b.Type] = append(byType[b.Type], b)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	merged := make([]*model.Model, 0, len(order))
	for _, t := range order {
		bucket := byType[t]
		acc := bucket[0]
		for _, b := range bucket[1:] {
			acc = Models(acc, b)
		}
		merged = append(merged, acc)
	}
	if len(merged) == 1 {
		return merged[0]
	}
	return &model.Model{AnyOf: merged}
}

func expandToBranches(m *model.Model) []*model.Model {
	if m.Shape() == model.ShapeAnyOf {
		return m.AnyOf
	}
	return []*model.Model{m}
}

func mergeObject(out, existing, incoming *model.Model) {
	out.Properties = map[string]*model.Model{}
	names := mapset.NewThreadUnsafeSet[string]()
	for name := range existing.Properties {
		names.Add(name)
	}
	for name := range incoming.Properties {
		names.Add(name)
	}

	requiredBoth := mapset.NewThreadUnsafeSet[string]()
	for _, n := range existing.Required {
		requiredBoth.Add(n)
	}
	requiredIncoming := mapset.NewThreadUnsafeSet[string]()
	for _, n := range incoming.Required {
		requiredIncoming.Add(n)
	}
	requiredIntersection := requiredBoth.Intersect(requiredIncoming)

	for _, name := range names.ToSlice() {
		ep, eok := existing.Properties[name]
		ip, iok := incoming.Properties[name]
		switch {
		case eok && iok:
			out.Properties[name] = Models(ep, ip)
		case eok:
			out.Properties[name] = ep
		default:
			out.Properties[name] = ip
		}
		if out.Properties[name].Relationship == nil {
			if ep != nil && ep.Relationship != nil {
				out.Properties[name].Relationship = ep.Relationship
			} else if ip != nil && ip.Relationship != nil {
				out.Properties[name].Relationship = ip.Relationship
			}
		}
	}

	required := requiredIntersection.ToSlice()
	sort.Strings(required)
	out.Required = required
}

func mergeArray(out, existing, incoming *model.Model) {
	out.Items = Models(existing.Items, incoming.Items)
	out.MinItems = mergeIntPtr(existing.MinItems, incoming.MinItems, minInt)
	out.MaxItems = mergeIntPtr(existing.MaxItems, incoming.MaxItems, maxInt)
}

func mergeNumeric(out, existing, incoming *model.Model) {
	out.Minimum = mergeFloatPtr(existing.Minimum, incoming.Minimum, minFloat)
	out.Maximum = mergeFloatPtr(existing.Maximum, incoming.Maximum, maxFloat)
	if existing.MultipleOf != nil && incoming.MultipleOf != nil {
		out.MultipleOf = model.Float64Ptr(gcdFloat(*existing.MultipleOf, *incoming.MultipleOf))
	} else if existing.MultipleOf != nil {
		out.MultipleOf = existing.MultipleOf
	} else {
		out.MultipleOf = incoming.MultipleOf
	}
	out.Histogram = mergeHistogram(existing.Histogram, incoming.Histogram)
}

// mergeHistogram implements spec §4.6's literal procedure: concatenate both
// histograms' bins, sort by rangeStart, merge overlapping bins (summing
// counts, widening to the union range), then cap the result at 20 bins by
// repeatedly coalescing the closest adjacent pair. freqStart/freqEnd are
// recomputed from scratch afterward as a running cumulative percentage.
func mergeHistogram(a, b *model.Histogram) *model.Histogram {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	bins := make([]model.HistogramBin, 0, len(a.Bins)+len(b.Bins))
	bins = append(bins, a.Bins...)
	bins = append(bins, b.Bins...)
	sort.Slice(bins, func(i, j int) bool { return bins[i].RangeStart < bins[j].RangeStart })

	bins = mergeOverlappingBins(bins)
	for len(bins) > 20 {
		bins = mergeClosestPair(bins)
	}

	total := a.TotalCount + b.TotalCount
	recomputeCumulativeFrequency(bins, total)

	minV := minFloat(a.MinValue, b.MinValue)
	maxV := maxFloat(a.MaxValue, b.MaxValue)
	h := &model.Histogram{Bins: bins, TotalCount: total, MinValue: minV, MaxValue: maxV}
	h.StandardDeviation = weightedStdDev(a, b, minV, maxV)
	h.EntropyScore = model.HistogramEntropy(bins)
	h.MaxEntropy = model.HistogramMaxEntropy(len(bins))
	h.Complexity = model.HistogramComplexity(bins, h.StandardDeviation, minV, maxV)
	return h
}

// mergeOverlappingBins folds adjacent bins whose ranges intersect into one,
// summing counts and widening to the union of the two ranges. bins must
// already be sorted by RangeStart.
func mergeOverlappingBins(bins []model.HistogramBin) []model.HistogramBin {
	if len(bins) == 0 {
		return bins
	}
	out := make([]model.HistogramBin, 0, len(bins))
	out = append(out, bins[0])
	for _, b := range bins[1:] {
		last := &out[len(out)-1]
		if b.RangeStart < last.RangeEnd {
			last.Count += b.Count
			if b.RangeEnd > last.RangeEnd {
				last.RangeEnd = b.RangeEnd
			}
			continue
		}
		out = append(out, b)
	}
	return out
}

// mergeClosestPair coalesces the two adjacent bins with the smallest gap
// between their range starts, used to cap an already overlap-merged bin
// list down to the spec's 20-bin ceiling.
func mergeClosestPair(bins []model.HistogramBin) []model.HistogramBin {
	if len(bins) <= 1 {
		return bins
	}
	bestIdx := 0
	bestGap := bins[1].RangeStart - bins[0].RangeStart
	for i := 1; i < len(bins)-1; i++ {
		gap := bins[i+1].RangeStart - bins[i].RangeStart
		if gap < bestGap {
			bestGap = gap
			bestIdx = i
		}
	}
	merged := model.HistogramBin{
		RangeStart: bins[bestIdx].RangeStart,
		RangeEnd:   maxFloat(bins[bestIdx].RangeEnd, bins[bestIdx+1].RangeEnd),
		Count:      bins[bestIdx].Count + bins[bestIdx+1].Count,
	}
	out := make([]model.HistogramBin, 0, len(bins)-1)
	out = append(out, bins[:bestIdx]...)
	out = append(out, merged)
	out = append(out, bins[bestIdx+2:]...)
	return out
}

// recomputeCumulativeFrequency rebuilds freqStart/freqEnd as a running
// cumulative percentage over bins in order, pinning the final bin's
// freqEnd to 100 regardless of rounding drift.
func recomputeCumulativeFrequency(bins []model.HistogramBin, total int) {
	cumulative := 0.0
	for i := range bins {
		freqStart := cumulative
		freqEnd := freqStart
		if total > 0 {
			freqEnd = freqStart + 100*float64(bins[i].Count)/float64(total)
		}
		bins[i].FreqStart = freqStart
		bins[i].FreqEnd = freqEnd
		cumulative = freqEnd
	}
	if len(bins) > 0 {
		bins[len(bins)-1].FreqEnd = 100
	}
}

// weightedStdDev combines two population standard deviations by a
// count-weighted average, a practical approximation since the underlying
// samples are no longer available at merge time.
func weightedStdDev(a, b *model.Histogram, _, _ float64) float64 {
	total := a.TotalCount + b.TotalCount
	if total == 0 {
		return 0
	}
	return (a.StandardDeviation*float64(a.TotalCount) + b.StandardDeviation*float64(b.TotalCount)) / float64(total)
}

func mergeString(out, existing, incoming *model.Model) {
	out.MinLength = mergeIntPtr(existing.MinLength, incoming.MinLength, minInt)
	out.MaxLength = mergeIntPtr(existing.MaxLength, incoming.MaxLength, maxInt)
	out.StringModel = mergeStringModel(existing.StringModel, incoming.StringModel)
}

// mergeStringModel implements spec §4.6's string model merge: sum
// frequencies, union characters, cap sampleValues at 20.
func mergeStringModel(a, b *model.StringModel) *model.StringModel {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	sm := &model.StringModel{
		MinLength: minInt(a.MinLength, b.MinLength),
		MaxLength: maxInt(a.MaxLength, b.MaxLength),
	}
	sm.TotalSamples = a.TotalSamples + b.TotalSamples
	if sm.TotalSamples > 0 {
		sm.AverageLength = (a.AverageLength*float64(a.TotalSamples) + b.AverageLength*float64(b.TotalSamples)) / float64(sm.TotalSamples)
	}

	sm.CharacterFrequency = sumIntMaps(a.CharacterFrequency, b.CharacterFrequency)
	sm.UniqueCharacters = unionSortedKeys(sm.CharacterFrequency)
	sm.CharacterProbability = probabilityOf(sm.CharacterFrequency)

	sm.Patterns = topNInt(sumIntMaps(a.Patterns, b.Patterns), 10)
	sm.NGrams = topNRepeated(sumIntMaps(a.NGrams, b.NGrams), 20)
	sm.CommonPrefixes = topNInt(sumIntMaps(a.CommonPrefixes, b.CommonPrefixes), 10)
	sm.CommonSuffixes = topNInt(sumIntMaps(a.CommonSuffixes, b.CommonSuffixes), 10)

	sm.ValueFrequency = sumIntMaps(a.ValueFrequency, b.ValueFrequency)
	sm.UniqueValues = unionSortedKeys(sm.ValueFrequency)
	sm.UniqueValueCount = len(sm.UniqueValues)
	sm.SampleValues = topFrequencyValues(sm.ValueFrequency, 20)

	sm.EntropyScore = model.StringModelEntropy(sm.ValueFrequency)
	sm.MaxEntropy = model.StringModelMaxEntropy(sm.EntropyScore, sm.SampleValues, sm.UniqueCharacters)
	sm.Complexity = model.StringModelComplexity(sm)
	return sm
}

// mergeEnum unions two enum value lists, deduplicated, preserving
// existing's order then appending incoming's novel values.
func mergeEnum(a, b []interface{}) []interface{} {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := map[interface{}]bool{}
	out := make([]interface{}, 0, len(a)+len(b))
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func mergeIntPtr(a, b *int, pick func(x, y int) int) *int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	v := pick(*a, *b)
	return &v
}

func mergeFloatPtr(a, b *float64, pick func(x, y float64) float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	v := pick(*a, *b)
	return &v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func gcdFloat(a, b float64) float64 {
	ai, bi := int64(a), int64(b)
	for bi != 0 {
		ai, bi = bi, ai%bi
	}
	if ai == 0 {
		return a
	}
	return float64(ai)
}

func sumIntMaps(a, b map[string]int) map[string]int {
	out := make(map[string]int, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}

func unionSortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func probabilityOf(freq map[string]int) map[string]float64 {
	total := 0
	for _, c := range freq {
		total += c
	}
	out := make(map[string]float64, len(freq))
	if total == 0 {
		return out
	}
	for k, c := range freq {
		out[k] = float64(c) / float64(total)
	}
	return out
}

func topNInt(freq map[string]int, n int) map[string]int {
	type kv struct {
		k string
		v int
	}
	items := make([]kv, 0, len(freq))
	for k, v := range freq {
		items = append(items, kv{k, v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].v != items[j].v {
			return items[i].v > items[j].v
		}
		return items[i].k < items[j].k
	})
	if len(items) > n {
		items = items[:n]
	}
	out := make(map[string]int, len(items))
	for _, it := range items {
		out[it.k] = it.v
	}
	return out
}

func topNRepeated(freq map[string]int, n int) map[string]int {
	repeated := map[string]int{}
	for k, v := range freq {
		if v > 1 {
			repeated[k] = v
		}
	}
	return topNInt(repeated, n)
}

func topFrequencyValues(freq map[string]int, n int) []string {
	type kv struct {
		k string
		v int
	}
	items := make([]kv, 0, len(freq))
	for k, v := range freq {
		items = append(items, kv{k, v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].v != items[j].v {
			return items[i].v > items[j].v
		}
		return items[i].k < items[j].k
	})
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.k
	}
	return out
}
