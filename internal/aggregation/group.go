package aggregation

import (
	"fmt"
	"math"
	"sort"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// accumState tracks one accumulator's running state across a group's
// documents. Not every field is used by every accumulator.
type accumState struct {
	sum      float64
	count    int64
	min      interface{}
	max      interface{}
	first    interface{}
	last     interface{}
	hasFirst bool
	values   []interface{}
	seen     map[string]bool
	uniques  bsonx.A
	sqSum    float64
}

func stageGroup(docs []bsonx.D, spec bsonx.D) ([]bsonx.D, error) {
	var idExpr interface{}
	fields := bsonx.D{}
	for _, e := range spec {
		if e.Key == "_id" {
			idExpr = e.Value
			continue
		}
		fields = append(fields, e)
	}

	type bucket struct {
		id    interface{}
		state map[string]*accumState
	}
	order := []string{}
	buckets := map[string]*bucket{}

	for _, d := range docs {
		idVal := Eval(idExpr, d, d)
		key := fmt.Sprintf("%v", idVal)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{id: idVal, state: map[string]*accumState{}}
			for _, f := range fields {
				b.state[f.Key] = &accumState{seen: map[string]bool{}}
			}
			buckets[key] = b
			order = append(order, key)
		}
		for _, f := range fields {
			applyAccumulator(b.state[f.Key], f.Value, d)
		}
	}

	out := make([]bsonx.D, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		row := bsonx.D{{Key: "_id", Value: b.id}}
		for _, f := range fields {
			row = append(row, bsonx.E{Key: f.Key, Value: finalizeAccumulator(f.Value, b.state[f.Key])})
		}
		out = append(out, row)
	}
	return out, nil
}

func applyAccumulator(st *accumState, expr interface{}, doc bsonx.D) {
	d, ok := expr.(bsonx.D)
	if !ok || len(d) != 1 {
		return
	}
	op, arg := d[0].Key, d[0].Value
	v := Eval(arg, doc, doc)
	st.count++
	switch op {
	case "$sum":
		st.sum += toFloatLoose(v)
	case "$avg":
		st.sum += toFloatLoose(v)
	case "$min":
		if st.min == nil || compareValues(v, st.min) < 0 {
			st.min = v
		}
	case "$max":
		if st.max == nil || compareValues(v, st.max) > 0 {
			st.max = v
		}
	case "$first":
		if !st.hasFirst {
			st.first = v
			st.hasFirst = true
		}
	case "$last":
		st.last = v
	case "$push":
		st.values = append(st.values, v)
	case "$addToSet":
		key := fmt.Sprintf("%v", v)
		if !st.seen[key] {
			st.seen[key] = true
			st.uniques = append(st.uniques, v)
		}
	case "$stdDevPop", "$stdDevSamp":
		f := toFloatLoose(v)
		st.sum += f
		st.sqSum += f * f
	}
}

func finalizeAccumulator(expr interface{}, st *accumState) interface{} {
	d, ok := expr.(bsonx.D)
	if !ok || len(d) != 1 {
		return nil
	}
	op := d[0].Key
	switch op {
	case "$sum":
		return st.sum
	case "$avg":
		if st.count == 0 {
			return nil
		}
		return st.sum / float64(st.count)
	case "$min":
		return st.min
	case "$max":
		return st.max
	case "$first":
		return st.first
	case "$last":
		return st.last
	case "$push":
		return bsonx.A(st.values)
	case "$addToSet":
		return st.uniques
	case "$stdDevPop", "$stdDevSamp":
		if st.count == 0 {
			return nil
		}
		mean := st.sum / float64(st.count)
		variance := st.sqSum/float64(st.count) - mean*mean
		if op == "$stdDevSamp" && st.count > 1 {
			variance = variance * float64(st.count) / float64(st.count-1)
		}
		if variance < 0 {
			variance = 0
		}
		return math.Sqrt(variance)
	default:
		return nil
	}
}

func stageLookup(docs []bsonx.D, spec bsonx.D) []bsonx.D {
	var as string
	for _, e := range spec {
		if e.Key == "as" {
			if s, ok := e.Value.(string); ok {
				as = s
			}
		}
	}
	// mongtap has no foreign collection to join against at the storage
	// layer (spec §4.8: collections synthesize documents on demand, they
	// are not backed by a shared store another collection could read),
	// so $lookup attaches an empty array under `as` rather than omitting
	// the stage outright.
	out := make([]bsonx.D, len(docs))
	for i, d := range docs {
		clone := make(bsonx.D, len(d))
		copy(clone, d)
		if as != "" {
			clone = upsert(clone, as, bsonx.A{})
		}
		out[i] = clone
	}
	return out
}

func stageFacet(docs []bsonx.D, spec bsonx.D) ([]bsonx.D, error) {
	result := bsonx.D{}
	for _, e := range spec {
		sub, ok := e.Value.(bsonx.A)
		if !ok {
			continue
		}
		stages := make([]bsonx.D, 0, len(sub))
		for _, s := range sub {
			if sd, ok := s.(bsonx.D); ok {
				stages = append(stages, sd)
			}
		}
		branch, err := Execute(docs, stages, 0)
		if err != nil {
			return nil, err
		}
		arr := make(bsonx.A, len(branch))
		for i, d := range branch {
			arr[i] = d
		}
		result = append(result, bsonx.E{Key: e.Key, Value: arr})
	}
	return []bsonx.D{result}, nil
}

func stageBucket(docs []bsonx.D, spec bsonx.D) ([]bsonx.D, error) {
	var groupBy interface{}
	var boundaries []interface{}
	var defaultKey interface{}
	output := bsonx.D{{Key: "count", Value: bsonx.D{{Key: "$sum", Value: 1}}}}
	for _, e := range spec {
		switch e.Key {
		case "groupBy":
			groupBy = e.Value
		case "boundaries":
			if a, ok := toSliceAny(e.Value); ok {
				boundaries = a
			}
		case "default":
			defaultKey = e.Value
		case "output":
			if o, ok := e.Value.(bsonx.D); ok {
				output = o
			}
		}
	}
	sort.Slice(boundaries, func(i, j int) bool { return compareValues(boundaries[i], boundaries[j]) < 0 })

	type bucketAgg struct {
		id   interface{}
		docs []bsonx.D
	}
	var order []interface{}
	agg := map[string]*bucketAgg{}
	keyFor := func(v interface{}) (interface{}, bool) {
		for i := 0; i < len(boundaries)-1; i++ {
			if compareValues(v, boundaries[i]) >= 0 && compareValues(v, boundaries[i+1]) < 0 {
				return boundaries[i], true
			}
		}
		return nil, false
	}

	for _, d := range docs {
		v := Eval(groupBy, d, d)
		bk, ok := keyFor(v)
		if !ok {
			if defaultKey == nil {
				continue
			}
			bk = defaultKey
		}
		key := fmt.Sprintf("%v", bk)
		b, exists := agg[key]
		if !exists {
			b = &bucketAgg{id: bk}
			agg[key] = b
			order = append(order, bk)
		}
		b.docs = append(b.docs, d)
	}

	out := make([]bsonx.D, 0, len(order))
	for _, bk := range order {
		key := fmt.Sprintf("%v", bk)
		b := agg[key]
		grouped, err := stageGroup(b.docs, append(bsonx.D{{Key: "_id", Value: nil}}, output...))
		if err != nil {
			return nil, err
		}
		row := bsonx.D{{Key: "_id", Value: bk}}
		if len(grouped) > 0 {
			for _, e := range grouped[0] {
				if e.Key != "_id" {
					row = append(row, e)
				}
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func stageBucketAuto(docs []bsonx.D, spec bsonx.D) ([]bsonx.D, error) {
	var groupBy interface{}
	buckets := 1
	for _, e := range spec {
		switch e.Key {
		case "groupBy":
			groupBy = e.Value
		case "buckets":
			buckets = int(toFloatLoose(e.Value))
		}
	}
	if buckets <= 0 {
		buckets = 1
	}

	type scored struct {
		doc bsonx.D
		val interface{}
	}
	items := make([]scored, len(docs))
	for i, d := range docs {
		items[i] = scored{doc: d, val: Eval(groupBy, d, d)}
	}
	sort.Slice(items, func(i, j int) bool { return compareValues(items[i].val, items[j].val) < 0 })

	if len(items) == 0 {
		return []bsonx.D{}, nil
	}
	perBucket := int(math.Ceil(float64(len(items)) / float64(buckets)))
	if perBucket == 0 {
		perBucket = 1
	}

	out := []bsonx.D{}
	for i := 0; i < len(items); i += perBucket {
		end := i + perBucket
		if end > len(items) {
			end = len(items)
		}
		chunk := items[i:end]
		minV := chunk[0].val
		maxV := chunk[len(chunk)-1].val
		row := bsonx.D{
			{Key: "_id", Value: bsonx.D{{Key: "min", Value: minV}, {Key: "max", Value: maxV}}},
			{Key: "count", Value: int64(len(chunk))},
		}
		out = append(out, row)
	}
	return out, nil
}

func toSliceAny(v interface{}) ([]interface{}, bool) {
	switch a := v.(type) {
	case bsonx.A:
		return a, true
	case []interface{}:
		return a, true
	default:
		return nil, false
	}
}
