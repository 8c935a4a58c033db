package generator

import (
	"math"
	"sort"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/model"
)

// Options configures one call to Generate, spec §4.7.
type Options struct {
	Seed            int64
	Seeded          bool
	EntropyOverride *float64
	Constraints     Constraints
}

// undefined marks a "no value" result: generateObject and generateArray
// skip any value of this type. No generator in this package currently
// returns it.
type undefinedType struct{}

var undefined = undefinedType{}

// Generate produces one document from m, following spec §4.7's dispatch.
// m must describe an object (directly, or as one branch of an anyOf);
// any other top-level shape is still accepted and wrapped in an empty
// document for robustness, though the collection layer never does this.
func Generate(m *model.Model, opts Options) (bsonx.D, error) {
	src := NewSource(opts.Seed, opts.Seeded)
	v := generateNode(m, "", src, opts)
	if d, ok := v.(bsonx.D); ok {
		return d, nil
	}
	return bsonx.D{}, nil
}

func generateNode(m *model.Model, path string, src *Source, opts Options) interface{} {
	if m == nil {
		return nil
	}

	if c, ok := opts.Constraints[path]; ok && c.HasEquals {
		return c.Equals
	}

	switch m.Shape() {
	case model.ShapeEnum:
		return pickEnum(m, path, src, opts)
	case model.ShapeAnyOf:
		branch := m.AnyOf[src.IntN(len(m.AnyOf))]
		return generateNode(branch, path, src, opts)
	default:
		return generateByType(m, path, src, opts)
	}
}

func pickEnum(m *model.Model, path string, src *Source, opts Options) interface{} {
	candidates := m.Enum
	if c, ok := opts.Constraints[path]; ok && len(c.Enum) > 0 {
		candidates = intersectInterfaces(candidates, c.Enum)
	}
	if c, ok := opts.Constraints[path]; ok && len(c.NotIn) > 0 {
		candidates = filterOutInterfaces(candidates, c.NotIn)
	}
	if len(candidates) == 0 {
		candidates = m.Enum
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[src.IntN(len(candidates))]
}

func generateByType(m *model.Model, path string, src *Source, opts Options) interface{} {
	switch m.Type {
	case model.TypeObject:
		return generateObject(m, path, src, opts)
	case model.TypeArray:
		return generateArray(m, path, src, opts)
	case model.TypeInteger:
		return int64(generateNumeric(m, path, src, opts, true).(float64))
	case model.TypeNumber:
		return generateNumeric(m, path, src, opts, false)
	case model.TypeBoolean:
		return src.Bool()
	case model.TypeString:
		return generateString(m, src, opts)
	case model.TypeNull:
		return nil
	default:
		return nil
	}
}

func generateObject(m *model.Model, path string, src *Source, opts Options) interface{} {
	required := map[string]bool{}
	for _, r := range m.Required {
		required[r] = true
	}
	names := make([]string, 0, len(m.Properties))
	for name := range m.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	out := bsonx.D{}
	for _, name := range names {
		prop := m.Properties[name]
		childPath := name
		if path != "" {
			childPath = path + "." + name
		}
		childSrc := src.Child(childPath)
		if !required[name] && childSrc.Float64() >= 0.8 {
			continue
		}
		v := generateNode(prop, childPath, childSrc, opts)
		if _, isUndefined := v.(undefinedType); isUndefined {
			continue
		}
		out = append(out, bsonx.E{Key: name, Value: v})
	}
	return out
}

func generateArray(m *model.Model, path string, src *Source, opts Options) interface{} {
	minItems, maxItems := 1, 5
	if m.MinItems != nil {
		minItems = *m.MinItems
	}
	if m.MaxItems != nil {
		maxItems = *m.MaxItems
	}
	if maxItems < minItems {
		maxItems = minItems
	}
	n := minItems
	if maxItems > minItems {
		n = minItems + src.IntN(maxItems-minItems+1)
	}

	out := make(bsonx.A, 0, n)
	for i := 0; i < n; i++ {
		childSrc := src.Child(path + "[]")
		v := generateNode(m.Items, path+"[]", childSrc, opts)
		if _, isUndefined := v.(undefinedType); isUndefined {
			continue
		}
		out = append(out, v)
	}
	return out
}

func generateNumeric(m *model.Model, path string, src *Source, opts Options, integral bool) interface{} {
	minV, maxV := 0.0, 100.0
	if m.Minimum != nil {
		minV = *m.Minimum
	}
	if m.Maximum != nil {
		maxV = *m.Maximum
	}
	if c, ok := opts.Constraints[path]; ok {
		if c.Min != nil && *c.Min > minV {
			minV = *c.Min
		}
		if c.Max != nil && *c.Max < maxV {
			maxV = *c.Max
		}
	}
	if maxV < minV {
		maxV = minV
	}

	var v float64
	if m.Histogram != nil && len(m.Histogram.Bins) > 0 {
		u := src.Float64() * 100
		idx := m.Histogram.BinContaining(u)
		if idx < 0 {
			idx = 0
		}
		bin := m.Histogram.Bins[idx]
		v = bin.RangeStart + src.Float64()*(bin.RangeEnd-bin.RangeStart)
	} else {
		v = minV + src.Float64()*(maxV-minV)
	}

	if m.MultipleOf != nil && *m.MultipleOf > 0 {
		v = math.Round(v / *m.MultipleOf) * *m.MultipleOf
		if v < minV {
			v += *m.MultipleOf
		}
		if v > maxV {
			v -= *m.MultipleOf
		}
	}
	if integral {
		v = math.Floor(v)
	}
	return v
}

func generateString(m *model.Model, src *Source, opts Options) interface{} {
	if gen, ok := formatGenerators[m.Format]; ok {
		return gen(src)
	}
	if m.Pattern != "" {
		if _, ok := namedPatternLibrary[m.Pattern]; ok {
			return namedPatternLibrary[m.Pattern](src)
		}
		return genPattern(m.Pattern, src)
	}
	if m.StringModel != nil {
		return generateFromStringModel(m.StringModel, src, opts.EntropyOverride)
	}
	return genPattern(`\w{8}`, src)
}

func intersectInterfaces(a, b []interface{}) []interface{} {
	var out []interface{}
	for _, x := range a {
		for _, y := range b {
			if looseEqual(x, y) {
				out = append(out, x)
				break
			}
		}
	}
	return out
}

func filterOutInterfaces(a, notIn []interface{}) []interface{} {
	var out []interface{}
	for _, x := range a {
		if !excluded(x, notIn) {
			out = append(out, x)
		}
	}
	return out
}
