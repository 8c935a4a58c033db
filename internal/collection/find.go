package collection

import (
	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/generator"
)

// DefaultFindLimit bounds how many documents Find generates when the
// caller supplies no limit, avoiding an unbounded generation loop.
const DefaultFindLimit = 1000

// FindOptions carries the non-query parts of a find command.
type FindOptions struct {
	Skip       int
	Limit      int
	Sort       bsonx.D
	Projection bsonx.D
}

// Find implements spec §4.8's find: extract generation parameters,
// derive per-field constraints, ask the generator for skip+limit
// documents, post-filter with the full query, sort, slice, project.
func (c *Collection) Find(query bsonx.D, opts FindOptions) ([]bsonx.D, error) {
	params, filterQuery := ExtractGenerationParams(query)
	constraints := DeriveConstraints(filterQuery)

	c.mu.Lock()
	schema := c.schema
	c.bumpQueryCount()
	c.mu.Unlock()

	if schema == nil {
		return []bsonx.D{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultFindLimit
	}
	want := opts.Skip + limit

	genOpts := generator.Options{
		Seed:            params.Seed,
		Seeded:          params.Seeded,
		EntropyOverride: params.EntropyOverride,
		Constraints:     constraints,
	}

	matched := make([]bsonx.D, 0, want)
	// Generation is deterministic given (schema, seed, step index), so
	// stepping the seed per attempt still reproduces the same sequence
	// across two calls with the same top-level seed.
	attempt := int64(0)
	maxAttempts := want * 20
	if maxAttempts < 100 {
		maxAttempts = 100
	}
	for len(matched) < want && attempt < int64(maxAttempts) {
		stepOpts := genOpts
		stepOpts.Seed = genOpts.Seed + attempt
		doc, err := generator.Generate(schema, stepOpts)
		attempt++
		if err != nil {
			continue
		}
		c.bumpGenerationCount(1)
		if Matches(doc, filterQuery) {
			matched = append(matched, doc)
		}
	}

	if len(opts.Sort) > 0 {
		SortDocs(matched, opts.Sort)
	}

	start := opts.Skip
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[start:end]

	out := make([]bsonx.D, len(page))
	for i, d := range page {
		out[i] = Project(d, opts.Projection)
	}
	return out, nil
}

// FindOne implements spec §4.8's findOne: find with limit 1, first
// element or nil.
func (c *Collection) FindOne(query bsonx.D, projection bsonx.D) (bsonx.D, bool, error) {
	docs, err := c.Find(query, FindOptions{Limit: 1, Projection: projection})
	if err != nil {
		return nil, false, err
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return docs[0], true, nil
}
