package inference

import (
	"math"
	"sort"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/model"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// InferSchema implements spec §4.4: given a sample of decoded documents,
// build a root object Model describing their shape, value distributions,
// and (optionally) enum/format/pattern/foreign-key annotations.
func InferSchema(docs []bsonx.D, opts Options) *model.Model {
	values := make([]interface{}, len(docs))
	for i, d := range docs {
		values[i] = d
	}
	return inferNode(values, opts)
}

// inferNode implements steps 1-2: detect the type(s) present among values
// and either build a single-type node or an anyOf union of per-type nodes.
func inferNode(values []interface{}, opts Options) *model.Model {
	nonNull := make([]interface{}, 0, len(values))
	sawNull := false
	for _, v := range values {
		if v == nil {
			sawNull = true
			continue
		}
		nonNull = append(nonNull, v)
	}

	byType := map[model.Type][]interface{}{}
	var order []model.Type
	for _, v := range nonNull {
		t, format := classifyValue(v)
		if _, ok := byType[t]; !ok {
			order = append(order, t)
		}
		byType[t] = append(byType[t], v)
		_ = format
	}

	if len(order) == 0 {
		m := &model.Model{Type: model.TypeNull}
		return m
	}

	if len(order) == 1 {
		m := buildTypedNode(order[0], byType[order[0]], opts)
		if sawNull {
			typed := *m
			return &model.Model{AnyOf: []*model.Model{&typed, {Type: model.TypeNull}}}
		}
		return m
	}

	slices.Sort(order)
	anyOf := make([]*model.Model, 0, len(order)+1)
	for _, t := range order {
		anyOf = append(anyOf, buildTypedNode(t, byType[t], opts))
	}
	if sawNull {
		anyOf = append(anyOf, &model.Model{Type: model.TypeNull})
	}
	return &model.Model{AnyOf: anyOf}
}

func buildTypedNode(t model.Type, values []interface{}, opts Options) *model.Model {
	switch t {
	case model.TypeObject:
		return inferObject(values, opts)
	case model.TypeArray:
		return inferArray(values, opts)
	case model.TypeString:
		return inferString(values, opts)
	case model.TypeInteger, model.TypeNumber:
		return inferNumeric(t, values, opts)
	case model.TypeBoolean:
		return &model.Model{Type: model.TypeBoolean}
	default:
		return &model.Model{Type: t}
	}
}

// inferObject implements step 3: union of observed property names, with
// required limited to properties present on every sampled document.
func inferObject(values []interface{}, opts Options) *model.Model {
	m := model.NewObject()
	fieldValues := map[string][]interface{}{}
	var fieldOrder []string
	presence := map[string]int{}

	for _, v := range values {
		d, ok := asDocument(v)
		if !ok {
			continue
		}
		for _, e := range d {
			if _, seen := fieldValues[e.Key]; !seen {
				fieldOrder = append(fieldOrder, e.Key)
			}
			fieldValues[e.Key] = append(fieldValues[e.Key], e.Value)
			presence[e.Key]++
		}
	}

	total := len(values)
	required := make([]string, 0, len(fieldOrder))
	for _, name := range fieldOrder {
		m.Properties[name] = inferNode(fieldValues[name], opts)
		if opts.EnableForeignKeyHints {
			if rel := DetectForeignKey(name); rel != nil {
				m.Properties[name].Relationship = rel
			}
		}
		if presence[name] == total {
			required = append(required, name)
		}
	}
	slices.Sort(required)
	m.Required = required
	return m
}

// inferArray implements step 4: flatten every element across every
// sampled array into one pool and infer a single element model from it.
func inferArray(values []interface{}, opts Options) *model.Model {
	var elements []interface{}
	lengths := make([]int, 0, len(values))
	for _, v := range values {
		arr, ok := asArray(v)
		if !ok {
			continue
		}
		lengths = append(lengths, len(arr))
		elements = append(elements, arr...)
	}

	m := &model.Model{Type: model.TypeArray}
	if len(lengths) > 0 {
		minL, maxL := lengths[0], lengths[0]
		for _, l := range lengths {
			if l < minL {
				minL = l
			}
			if l > maxL {
				maxL = l
			}
		}
		m.MinItems = model.IntPtr(minL)
		m.MaxItems = model.IntPtr(maxL)
	}
	if len(elements) > 0 {
		m.Items = inferNode(elements, opts)
	} else {
		m.Items = &model.Model{Type: model.TypeNull}
	}
	return m
}

// inferString implements step 5: enum decision, then format/pattern
// detection, then stringModel construction for whatever remains non-enum.
func inferString(values []interface{}, opts Options) *model.Model {
	strs := make([]string, 0, len(values))
	var extFormat string
	for _, v := range values {
		s, f, ok := stringValueOf(v)
		if !ok {
			continue
		}
		strs = append(strs, s)
		if f != "" {
			extFormat = f
		}
	}
	m := &model.Model{Type: model.TypeString}
	if extFormat != "" {
		m.Format = extFormat
	}

	sampled := strs
	if opts.Enum.ReservoirThreshold > 0 && len(strs) > opts.Enum.ReservoirThreshold {
		sampled = reservoirSample(strs, opts.Enum.ReservoirThreshold)
	}
	enumResult := DetectEnum(sampled, opts.Enum)
	if enumResult.ShouldCreateEnum {
		m.Enum = lo.Map(enumResult.EnumValues, func(v string, _ int) interface{} { return v })
	}

	if m.Format == "" && opts.EnableFormatDetection {
		if f := DetectFormat(strs); f != "" {
			m.Format = f
		}
	}
	if m.Format == "" && opts.EnablePatternDetection {
		if p := DetectPattern(strs); p != "" {
			m.Pattern = p
		}
	}

	if len(strs) > 0 {
		minLen, maxLen := len([]rune(strs[0])), len([]rune(strs[0]))
		for _, s := range strs {
			l := len([]rune(s))
			if l < minLen {
				minLen = l
			}
			if l > maxLen {
				maxLen = l
			}
		}
		m.MinLength = model.IntPtr(minLen)
		m.MaxLength = model.IntPtr(maxLen)
		m.StringModel = buildStringModel(strs, opts)
	}
	return m
}

// inferNumeric implements step 6: bounds, multipleOf via GCD over integer
// samples, and a 10-bin equal-width histogram once sample size allows it.
func inferNumeric(t model.Type, values []interface{}, opts Options) *model.Model {
	floats := make([]float64, 0, len(values))
	allIntegral := t == model.TypeInteger
	for _, v := range values {
		f := toFloat64Value(v)
		floats = append(floats, f)
	}
	m := &model.Model{Type: t}
	if len(floats) == 0 {
		return m
	}

	minV, maxV := floats[0], floats[0]
	for _, f := range floats {
		if f < minV {
			minV = f
		}
		if f > maxV {
			maxV = f
		}
	}
	m.Minimum = model.Float64Ptr(minV)
	m.Maximum = model.Float64Ptr(maxV)

	if allIntegral {
		ints := make([]int64, len(floats))
		for i, f := range floats {
			ints[i] = int64(f)
		}
		if g := gcdOfInts(ints); g > 1 {
			m.MultipleOf = model.Float64Ptr(float64(g))
		}
	}

	if len(floats) >= opts.HistogramMinSamples {
		m.Histogram = buildHistogram(floats, opts.HistogramBinCount)
	}
	return m
}

func toFloat64Value(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}

func gcdOfInts(values []int64) int64 {
	abs := func(x int64) int64 {
		if x < 0 {
			return -x
		}
		return x
	}
	gcd2 := func(a, b int64) int64 {
		for b != 0 {
			a, b = b, a%b
		}
		return a
	}
	result := int64(0)
	for _, v := range values {
		result = gcd2(result, abs(v))
	}
	return result
}

func asDocument(v interface{}) (bsonx.D, bool) {
	switch d := v.(type) {
	case bsonx.D:
		return d, true
	case primitive.M:
		out := make(bsonx.D, 0, len(d))
		for k, val := range d {
			out = append(out, bsonx.E{Key: k, Value: val})
		}
		return out, true
	default:
		return nil, false
	}
}

func asArray(v interface{}) (primitive.A, bool) {
	switch a := v.(type) {
	case primitive.A:
		return a, true
	case []interface{}:
		return primitive.A(a), true
	default:
		return nil, false
	}
}

// classifyValue maps a decoded BSON value to its model.Type, and (for
// types beyond the seven JSON-Schema scalars, such as ObjectID or
// DateTime) the format string that tags the extra precision. Those
// extended BSON types are folded into TypeString with a format hint
// rather than given their own Model.Type, since the DataFlood schema
// only defines the seven listed in spec §3.
func classifyValue(v interface{}) (model.Type, string) {
	switch v.(type) {
	case bool:
		return model.TypeBoolean, ""
	case int, int32, int64:
		return model.TypeInteger, ""
	case float64, float32:
		return model.TypeNumber, ""
	case string:
		return model.TypeString, ""
	case bsonx.D, primitive.M:
		return model.TypeObject, ""
	case primitive.A, []interface{}:
		return model.TypeArray, ""
	case primitive.ObjectID:
		return model.TypeString, "objectId"
	case primitive.DateTime:
		return model.TypeString, "date-time"
	case primitive.Regex:
		return model.TypeString, "regex"
	case primitive.Binary:
		return model.TypeString, "binary"
	case primitive.Decimal128:
		return model.TypeString, "decimal128"
	case primitive.Timestamp:
		return model.TypeString, "timestamp"
	default:
		return model.TypeNull, ""
	}
}

// stringValueOf renders v (a Go string, or one of the extended BSON types
// folded into TypeString by classifyValue) as the text the string model
// and format/pattern detectors operate on, alongside the format hint that
// extended type implies, if any.
func stringValueOf(v interface{}) (value, format string, ok bool) {
	switch t := v.(type) {
	case string:
		return t, "", true
	case primitive.ObjectID:
		return t.Hex(), "objectId", true
	case primitive.DateTime:
		return t.Time().Format("2006-01-02T15:04:05.000Z07:00"), "date-time", true
	case primitive.Regex:
		return t.Pattern, "regex", true
	case primitive.Decimal128:
		return t.String(), "decimal128", true
	default:
		return "", "", false
	}
}

// reservoirSample implements spec §4.5 step 1's reservoir sampling used
// whenever a field's observed value count exceeds the enum reservoir
// threshold.
func reservoirSample(values []string, k int) []string {
	if len(values) <= k {
		return values
	}
	out := make([]string, k)
	copy(out, values[:k])
	for i := k; i < len(values); i++ {
		j := deterministicIndex(i, i+1)
		if j < k {
			out[j] = values[i]
		}
	}
	return out
}

// deterministicIndex replaces math/rand in reservoir sampling with a
// cheap deterministic hash so schema inference stays side-effect free
// and reproducible across runs over the same sample.
func deterministicIndex(i, mod int) int {
	h := uint64(i)*2654435761 + 1
	return int(h % uint64(mod))
}

func buildHistogram(values []float64, binCount int) *model.Histogram {
	if binCount <= 0 {
		binCount = 10
	}
	minV, maxV := values[0], values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	width := (maxV - minV) / float64(binCount)
	bins := make([]model.HistogramBin, binCount)
	if width == 0 {
		bins[0] = model.HistogramBin{RangeStart: minV, RangeEnd: maxV, Count: len(values)}
		for i := 1; i < binCount; i++ {
			bins[i] = model.HistogramBin{RangeStart: maxV, RangeEnd: maxV}
		}
	} else {
		for i := range bins {
			start := minV + float64(i)*width
			end := start + width
			if i == binCount-1 {
				end = maxV
			}
			bins[i] = model.HistogramBin{RangeStart: start, RangeEnd: end}
		}
		for _, v := range values {
			idx := int(math.Floor((v - minV) / width))
			if idx >= binCount {
				idx = binCount - 1
			}
			if idx < 0 {
				idx = 0
			}
			bins[idx].Count++
		}
	}

	total := len(values)
	cumulative := 0.0
	for i := range bins {
		freqStart := cumulative
		freqEnd := freqStart + 100*float64(bins[i].Count)/float64(total)
		bins[i].FreqStart = freqStart
		bins[i].FreqEnd = freqEnd
		cumulative = freqEnd
	}
	if len(bins) > 0 {
		bins[len(bins)-1].FreqEnd = 100
	}

	h := &model.Histogram{Bins: bins, TotalCount: total, MinValue: minV, MaxValue: maxV}
	h.StandardDeviation = model.PopulationStdDev(values)
	h.EntropyScore = model.HistogramEntropy(bins)
	h.MaxEntropy = model.HistogramMaxEntropy(len(bins))
	h.Complexity = model.HistogramComplexity(bins, h.StandardDeviation, minV, maxV)
	return h
}

// buildStringModel implements the per-field string model construction of
// spec §4.4 step 5: character/value frequency tables, pattern classes,
// n-grams, and the derived entropy/complexity scores.
func buildStringModel(strs []string, opts Options) *model.StringModel {
	sm := &model.StringModel{
		ValueFrequency: map[string]int{},
		TotalSamples:   len(strs),
	}

	charFreq := map[string]int{}
	patternFreq := map[string]int{}
	ngramFreq := map[string]int{}
	prefixFreq := map[string]int{}
	suffixFreq := map[string]int{}

	minLen, maxLen := len([]rune(strs[0])), len([]rune(strs[0]))
	totalLen := 0
	for _, s := range strs {
		runes := []rune(s)
		l := len(runes)
		totalLen += l
		if l < minLen {
			minLen = l
		}
		if l > maxLen {
			maxLen = l
		}
		sm.ValueFrequency[s]++
		patternFreq[CharacterClass(s)]++
		for _, r := range runes {
			charFreq[string(r)]++
		}
		for i := 0; i+1 < len(runes); i++ {
			ngramFreq[string(runes[i:i+2])]++
		}
		for i := 0; i+2 < len(runes); i++ {
			ngramFreq[string(runes[i:i+3])]++
		}
		if l >= 2 {
			prefixFreq[string(runes[:2])]++
			suffixFreq[string(runes[l-2:])]++
		}
	}

	sm.MinLength = minLen
	sm.MaxLength = maxLen
	sm.AverageLength = float64(totalLen) / float64(len(strs))
	sm.CharacterFrequency = charFreq
	sm.UniqueCharacters = sortedKeysOf(charFreq)
	sm.CharacterProbability = toProbability(charFreq)
	sm.Patterns = topN(patternFreq, 10)
	sm.NGrams = topNRepeated(ngramFreq, 20)
	sm.CommonPrefixes = topN(prefixFreq, 10)
	sm.CommonSuffixes = topN(suffixFreq, 10)
	sm.UniqueValues = sortedKeysOf(sm.ValueFrequency)
	sm.UniqueValueCount = len(sm.UniqueValues)

	sampleCap := opts.StringModelSampleCap
	if sampleCap <= 0 {
		sampleCap = 20
	}
	sm.SampleValues = topFrequencyValues(sm.ValueFrequency, sampleCap)

	sm.EntropyScore = model.StringModelEntropy(sm.ValueFrequency)
	sm.MaxEntropy = model.StringModelMaxEntropy(sm.EntropyScore, sm.SampleValues, sm.UniqueCharacters)
	sm.Complexity = model.StringModelComplexity(sm)
	return sm
}

func sortedKeysOf(freq map[string]int) []string {
	keys := maps.Keys(freq)
	slices.Sort(keys)
	return keys
}

func toProbability(freq map[string]int) map[string]float64 {
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

func topN(freq map[string]int, n int) map[string]int {
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
	return topN(repeated, n)
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
