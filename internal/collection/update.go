package collection

import (
	"strings"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// ApplyUpdate implements spec §4.8.3: a document with any $-prefixed key
// is an operator update; otherwise it's a full replacement preserving
// _id. Returns the updated document and whether anything changed.
func ApplyUpdate(doc bsonx.D, update bsonx.D) (bsonx.D, bool) {
	if !isOperatorUpdate(update) {
		return replaceDocument(doc, update), true
	}

	out := make(bsonx.D, len(doc))
	copy(out, doc)
	changed := false

	for _, e := range update {
		switch e.Key {
		case "$set":
			if ops, ok := e.Value.(bsonx.D); ok {
				for _, f := range ops {
					if !fieldEquals(out, f.Key, f.Value) {
						setDotted(&out, f.Key, f.Value)
						changed = true
					}
				}
			}
		case "$unset":
			if ops, ok := e.Value.(bsonx.D); ok {
				for _, f := range ops {
					if _, ok := fieldOf(out, f.Key); ok {
						out = deleteDotted(out, f.Key)
						changed = true
					}
				}
			}
		case "$inc":
			if ops, ok := e.Value.(bsonx.D); ok {
				for _, f := range ops {
					cur, _ := resolveDotted(out, f.Key)
					curF, _ := numericOf(cur)
					incF, _ := numericOf(f.Value)
					setDotted(&out, f.Key, curF+incF)
					changed = true
				}
			}
		case "$push":
			if ops, ok := e.Value.(bsonx.D); ok {
				for _, f := range ops {
					cur, _ := resolveDotted(out, f.Key)
					arr, _ := toSlice(cur)
					arr = append(arr, f.Value)
					setDotted(&out, f.Key, bsonx.A(arr))
					changed = true
				}
			}
		case "$pull":
			if ops, ok := e.Value.(bsonx.D); ok {
				for _, f := range ops {
					cur, ok := resolveDotted(out, f.Key)
					if !ok {
						continue
					}
					arr, ok := toSlice(cur)
					if !ok {
						continue
					}
					filtered := make([]interface{}, 0, len(arr))
					for _, v := range arr {
						if !looseEqual(v, f.Value) {
							filtered = append(filtered, v)
						}
					}
					if len(filtered) != len(arr) {
						changed = true
					}
					setDotted(&out, f.Key, bsonx.A(filtered))
				}
			}
		}
	}

	return out, changed
}

func isOperatorUpdate(update bsonx.D) bool {
	for _, e := range update {
		if strings.HasPrefix(e.Key, "$") {
			return true
		}
	}
	return false
}

func replaceDocument(doc bsonx.D, replacement bsonx.D) bsonx.D {
	out := make(bsonx.D, 0, len(replacement)+1)
	if id, ok := fieldOf(doc, "_id"); ok {
		out = append(out, bsonx.E{Key: "_id", Value: id})
	}
	for _, e := range replacement {
		if e.Key == "_id" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func fieldEquals(doc bsonx.D, key string, value interface{}) bool {
	cur, ok := resolveDotted(doc, key)
	return ok && looseEqual(cur, value)
}

// ApplyUpdateToEmpty builds an upsert document by applying update to an
// empty object, per spec §4.8's upsert clause.
func ApplyUpdateToEmpty(update bsonx.D) bsonx.D {
	doc, _ := ApplyUpdate(bsonx.D{}, update)
	return doc
}
