package collection

import (
	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/generator"
	"github.com/mongtap/mongtap/internal/model"
)

// source adapts a Collection's deterministic (schema, seed, filter) draw
// into the cursor package's Source interface, so a Cursor can keep
// pulling further pages from the same generation stream a Find started.
type source struct {
	collection *Collection
	schema     *model.Model
	genOpts    generator.Options
	filter     bsonx.D
}

// Pull implements cursor.Source: it re-walks the deterministic generation
// stream from the beginning and returns the n matching documents
// starting at position skip, the same technique Find itself uses for a
// single page.
func (s *source) Pull(skip, n int) ([]bsonx.D, error) {
	want := skip + n
	matched := make([]bsonx.D, 0, want)
	attempt := int64(0)
	maxAttempts := want * 20
	if maxAttempts < 100 {
		maxAttempts = 100
	}
	for len(matched) < want && attempt < int64(maxAttempts) {
		stepOpts := s.genOpts
		stepOpts.Seed = s.genOpts.Seed + attempt
		doc, err := generator.Generate(s.schema, stepOpts)
		attempt++
		if err != nil {
			continue
		}
		if Matches(doc, s.filter) {
			matched = append(matched, doc)
		}
	}
	s.collection.mu.Lock()
	s.collection.bumpGenerationCount(len(matched))
	s.collection.mu.Unlock()

	if skip >= len(matched) {
		return nil, nil
	}
	end := skip + n
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], nil
}

// NewSource builds the cursor.Source for query, for use once an initial
// Find's result exceeds the requested batch size (spec §4.9).
func (c *Collection) NewSource(query bsonx.D) (*source, bsonx.D, bool) {
	params, filterQuery := ExtractGenerationParams(query)
	constraints := DeriveConstraints(filterQuery)

	c.mu.RLock()
	schema := c.schema
	c.mu.RUnlock()
	if schema == nil {
		return nil, filterQuery, false
	}

	genOpts := generator.Options{
		Seed:            params.Seed,
		Seeded:          params.Seeded,
		EntropyOverride: params.EntropyOverride,
		Constraints:     constraints,
	}
	return &source{collection: c, schema: schema, genOpts: genOpts, filter: filterQuery}, filterQuery, true
}
