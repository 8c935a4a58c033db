package collection

import (
	"strings"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/generator"
)

// GenerationParams is the $seed/$entropy pair spec §4.8 lifts from the
// top level of a query before deriving constraints.
type GenerationParams struct {
	Seed            int64
	Seeded          bool
	EntropyOverride *float64
}

// ExtractGenerationParams pulls $seed/_seed and $entropy/_entropy out of
// query, returning the params and the query with those keys removed.
func ExtractGenerationParams(query bsonx.D) (GenerationParams, bsonx.D) {
	var params GenerationParams
	rest := make(bsonx.D, 0, len(query))
	for _, e := range query {
		switch e.Key {
		case "$seed", "_seed":
			if f, ok := numericOf(e.Value); ok {
				params.Seed = int64(f)
				params.Seeded = true
			}
		case "$entropy", "_entropy":
			if f, ok := numericOf(e.Value); ok {
				params.EntropyOverride = &f
			}
		default:
			rest = append(rest, e)
		}
	}
	return params, rest
}

// DeriveConstraints implements spec §4.8's constraint extraction: per
// top-level field, `$eq`→equals, `$gt`/`$gte`→min (with exclusive flag),
// `$lt`/`$lte`→max (with exclusive flag), `$in`→enum, `$nin`→notIn,
// scalar→equals.
func DeriveConstraints(query bsonx.D) generator.Constraints {
	out := generator.Constraints{}
	for _, e := range query {
		if strings.HasPrefix(e.Key, "$") {
			continue
		}
		c := deriveFieldConstraint(e.Value)
		out[e.Key] = c
	}
	return out
}

func deriveFieldConstraint(condition interface{}) generator.Constraint {
	var c generator.Constraint
	opDoc, isOpDoc := condition.(bsonx.D)
	if !isOpDoc {
		c.Equals = condition
		c.HasEquals = true
		return c
	}
	if len(opDoc) == 0 {
		c.Equals = condition
		c.HasEquals = true
		return c
	}
	onlyOperators := true
	for _, f := range opDoc {
		if !strings.HasPrefix(f.Key, "$") {
			onlyOperators = false
			break
		}
	}
	if !onlyOperators {
		c.Equals = condition
		c.HasEquals = true
		return c
	}

	for _, f := range opDoc {
		switch f.Key {
		case "$eq":
			c.Equals = f.Value
			c.HasEquals = true
		case "$gt":
			if v, ok := numericOf(f.Value); ok {
				c.Min = &v
				c.MinExclusive = true
			}
		case "$gte":
			if v, ok := numericOf(f.Value); ok {
				c.Min = &v
				c.MinExclusive = false
			}
		case "$lt":
			if v, ok := numericOf(f.Value); ok {
				c.Max = &v
				c.MaxExclusive = true
			}
		case "$lte":
			if v, ok := numericOf(f.Value); ok {
				c.Max = &v
				c.MaxExclusive = false
			}
		case "$in":
			if arr, ok := toSlice(f.Value); ok {
				c.Enum = arr
			}
		case "$nin":
			if arr, ok := toSlice(f.Value); ok {
				c.NotIn = arr
			}
		}
	}
	return c
}
