package aggregation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/collection"
)

// DefaultCeiling is the default cap on any intermediate stage's output
// count, spec §4.10.
const DefaultCeiling = 100000

// Execute runs pipeline over docs, aborting if any intermediate stage's
// output count exceeds ceiling (0 uses DefaultCeiling).
func Execute(docs []bsonx.D, pipeline []bsonx.D, ceiling int) ([]bsonx.D, error) {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	current := docs
	for _, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("aggregation stage must have exactly one operator")
		}
		name, arg := stage[0].Key, stage[0].Value
		next, err := runStage(name, arg, current)
		if err != nil {
			return nil, err
		}
		if len(next) > ceiling {
			return nil, fmt.Errorf("aggregation stage %s exceeded the %d document ceiling", name, ceiling)
		}
		current = next
	}
	return current, nil
}

func runStage(name string, arg interface{}, docs []bsonx.D) ([]bsonx.D, error) {
	switch name {
	case "$match":
		spec, _ := arg.(bsonx.D)
		return stageMatch(docs, spec), nil
	case "$project":
		spec, _ := arg.(bsonx.D)
		return stageProject(docs, spec), nil
	case "$addFields", "$set":
		spec, _ := arg.(bsonx.D)
		return stageAddFields(docs, spec), nil
	case "$unset":
		return stageUnset(docs, arg), nil
	case "$group":
		spec, _ := arg.(bsonx.D)
		return stageGroup(docs, spec)
	case "$sort":
		spec, _ := arg.(bsonx.D)
		return stageSort(docs, spec), nil
	case "$limit":
		n := int(toFloatLoose(arg))
		if n < len(docs) {
			return docs[:n], nil
		}
		return docs, nil
	case "$skip":
		n := int(toFloatLoose(arg))
		if n >= len(docs) {
			return []bsonx.D{}, nil
		}
		return docs[n:], nil
	case "$unwind":
		return stageUnwind(docs, arg), nil
	case "$replaceRoot", "$replaceWith":
		return stageReplaceRoot(docs, arg, name), nil
	case "$count":
		field, _ := arg.(string)
		if field == "" {
			field = "count"
		}
		return []bsonx.D{{{Key: field, Value: int64(len(docs))}}}, nil
	case "$sample":
		spec, _ := arg.(bsonx.D)
		return stageSample(docs, spec), nil
	case "$lookup":
		spec, _ := arg.(bsonx.D)
		return stageLookup(docs, spec), nil
	case "$facet":
		spec, _ := arg.(bsonx.D)
		return stageFacet(docs, spec)
	case "$bucket":
		spec, _ := arg.(bsonx.D)
		return stageBucket(docs, spec)
	case "$bucketAuto":
		spec, _ := arg.(bsonx.D)
		return stageBucketAuto(docs, spec)
	case "$merge", "$out":
		// Both stages write the pipeline's result into a named
		// collection. Since mongtap has no persisted document store to
		// write into (spec §4.8: collections never persist documents),
		// these are accepted as pass-throughs: the result flows on
		// unchanged rather than landing anywhere durable.
		return docs, nil
	default:
		return nil, fmt.Errorf("unsupported aggregation stage %q", name)
	}
}

func stageMatch(docs []bsonx.D, spec bsonx.D) []bsonx.D {
	out := make([]bsonx.D, 0, len(docs))
	for _, d := range docs {
		if collection.Matches(d, spec) {
			out = append(out, d)
		}
	}
	return out
}

func stageProject(docs []bsonx.D, spec bsonx.D) []bsonx.D {
	out := make([]bsonx.D, len(docs))
	for i, d := range docs {
		projected := bsonx.D{}
		for _, e := range spec {
			if dv, ok := e.Value.(bsonx.D); ok && isExpressionDoc(dv) {
				projected = append(projected, bsonx.E{Key: e.Key, Value: Eval(dv, d, d)})
				continue
			}
			if s, ok := e.Value.(string); ok && strings.HasPrefix(s, "$") {
				projected = append(projected, bsonx.E{Key: e.Key, Value: Eval(s, d, d)})
				continue
			}
			if truthyValue(e.Value) {
				if v, ok := resolveDotted(d, e.Key); ok {
					projected = append(projected, bsonx.E{Key: e.Key, Value: v})
				}
			}
		}
		out[i] = projected
	}
	return out
}

func isExpressionDoc(d bsonx.D) bool {
	return len(d) == 1 && strings.HasPrefix(d[0].Key, "$")
}

func stageAddFields(docs []bsonx.D, spec bsonx.D) []bsonx.D {
	out := make([]bsonx.D, len(docs))
	for i, d := range docs {
		merged := make(bsonx.D, len(d))
		copy(merged, d)
		for _, e := range spec {
			v := Eval(e.Value, d, d)
			merged = upsert(merged, e.Key, v)
		}
		out[i] = merged
	}
	return out
}

func upsert(doc bsonx.D, key string, value interface{}) bsonx.D {
	for i, e := range doc {
		if e.Key == key {
			doc[i].Value = value
			return doc
		}
	}
	return append(doc, bsonx.E{Key: key, Value: value})
}

func stageUnset(docs []bsonx.D, arg interface{}) []bsonx.D {
	var fields []string
	switch a := arg.(type) {
	case string:
		fields = []string{a}
	case bsonx.A:
		for _, v := range a {
			if s, ok := v.(string); ok {
				fields = append(fields, s)
			}
		}
	}
	out := make([]bsonx.D, len(docs))
	for i, d := range docs {
		filtered := make(bsonx.D, 0, len(d))
		for _, e := range d {
			if !contains(fields, e.Key) {
				filtered = append(filtered, e)
			}
		}
		out[i] = filtered
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func stageSort(docs []bsonx.D, spec bsonx.D) []bsonx.D {
	out := make([]bsonx.D, len(docs))
	copy(out, docs)
	sort.SliceStable(out, func(i, j int) bool {
		for _, e := range spec {
			dir := 1
			if f, ok := toFloatLooseOK(e.Value); ok && f < 0 {
				dir = -1
			}
			vi, _ := resolveDotted(out[i], e.Key)
			vj, _ := resolveDotted(out[j], e.Key)
			c := compareValues(vi, vj)
			if c == 0 {
				continue
			}
			return (c < 0) == (dir > 0)
		}
		return false
	})
	return out
}

func stageUnwind(docs []bsonx.D, arg interface{}) []bsonx.D {
	var path string
	switch a := arg.(type) {
	case string:
		path = strings.TrimPrefix(a, "$")
	case bsonx.D:
		for _, e := range a {
			if e.Key == "path" {
				if s, ok := e.Value.(string); ok {
					path = strings.TrimPrefix(s, "$")
				}
			}
		}
	}
	out := make([]bsonx.D, 0, len(docs))
	for _, d := range docs {
		v, ok := resolveDotted(d, path)
		arr, isArr := toSlice(v)
		if !ok || !isArr {
			out = append(out, d)
			continue
		}
		for _, item := range arr {
			clone := make(bsonx.D, len(d))
			copy(clone, d)
			clone = upsert(clone, path, item)
			out = append(out, clone)
		}
	}
	return out
}

func stageReplaceRoot(docs []bsonx.D, arg interface{}, stageName string) []bsonx.D {
	var expr interface{} = arg
	if stageName == "$replaceRoot" {
		if d, ok := arg.(bsonx.D); ok {
			for _, e := range d {
				if e.Key == "newRoot" {
					expr = e.Value
				}
			}
		}
	}
	out := make([]bsonx.D, 0, len(docs))
	for _, d := range docs {
		v := Eval(expr, d, d)
		if nd, ok := v.(bsonx.D); ok {
			out = append(out, nd)
		}
	}
	return out
}

func stageSample(docs []bsonx.D, spec bsonx.D) []bsonx.D {
	n := len(docs)
	for _, e := range spec {
		if e.Key == "size" {
			n = int(toFloatLoose(e.Value))
		}
	}
	if n > len(docs) {
		n = len(docs)
	}
	return docs[:n]
}
