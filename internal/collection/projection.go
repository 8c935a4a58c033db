package collection

import (
	"strings"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// projectionKind classifies a projection document per spec §4.8.2.
type projectionKind int

const (
	projectionNone projectionKind = iota
	projectionInclusion
	projectionExclusion
)

func classifyProjection(proj bsonx.D) projectionKind {
	for _, e := range proj {
		if e.Key == "_id" {
			continue
		}
		if truthy(e.Value) {
			return projectionInclusion
		}
		return projectionExclusion
	}
	return projectionNone
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return false
	}
}

// Project implements spec §4.8.2: inclusion starts empty and walks
// dotted paths in; exclusion starts from a shallow copy and deletes
// listed fields.
func Project(doc bsonx.D, proj bsonx.D) bsonx.D {
	kind := classifyProjection(proj)
	switch kind {
	case projectionInclusion:
		return projectInclusion(doc, proj)
	case projectionExclusion:
		return projectExclusion(doc, proj)
	default:
		return doc
	}
}

func projectInclusion(doc bsonx.D, proj bsonx.D) bsonx.D {
	out := bsonx.D{}
	includeID := true
	for _, e := range proj {
		if e.Key == "_id" && !truthy(e.Value) {
			includeID = false
		}
	}
	if includeID {
		if v, ok := fieldOf(doc, "_id"); ok {
			out = append(out, bsonx.E{Key: "_id", Value: v})
		}
	}
	for _, e := range proj {
		if e.Key == "_id" {
			continue
		}
		if !truthy(e.Value) {
			continue
		}
		if v, ok := resolveDotted(doc, e.Key); ok {
			setDotted(&out, e.Key, v)
		}
	}
	return out
}

func projectExclusion(doc bsonx.D, proj bsonx.D) bsonx.D {
	out := make(bsonx.D, len(doc))
	copy(out, doc)
	for _, e := range proj {
		if truthy(e.Value) {
			continue
		}
		out = deleteDotted(out, e.Key)
	}
	return out
}

func fieldOf(doc bsonx.D, key string) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// setDotted sets a possibly-nested path in out, creating intermediate
// sub-documents as needed.
func setDotted(out *bsonx.D, path string, value interface{}) {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) == 1 {
		*out = upsertField(*out, parts[0], value)
		return
	}
	existing, ok := fieldOf(*out, parts[0])
	var sub bsonx.D
	if ok {
		if d, ok := existing.(bsonx.D); ok {
			sub = d
		}
	}
	setDotted(&sub, parts[1], value)
	*out = upsertField(*out, parts[0], sub)
}

func upsertField(doc bsonx.D, key string, value interface{}) bsonx.D {
	for i, e := range doc {
		if e.Key == key {
			doc[i].Value = value
			return doc
		}
	}
	return append(doc, bsonx.E{Key: key, Value: value})
}

func deleteDotted(doc bsonx.D, path string) bsonx.D {
	parts := strings.SplitN(path, ".", 2)
	out := make(bsonx.D, 0, len(doc))
	for _, e := range doc {
		if e.Key != parts[0] {
			out = append(out, e)
			continue
		}
		if len(parts) == 1 {
			continue
		}
		if sub, ok := e.Value.(bsonx.D); ok {
			out = append(out, bsonx.E{Key: e.Key, Value: deleteDotted(sub, parts[1])})
		} else {
			out = append(out, e)
		}
	}
	return out
}
