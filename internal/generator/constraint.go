package generator

// Constraint is per-field generation guidance derived from a query (spec
// §4.8, glossary "Constraint"): equals pins the value outright; min/max
// bound numeric draws; enum/notIn restrict or exclude a value set.
type Constraint struct {
	Equals       interface{}
	HasEquals    bool
	Min          *float64
	MinExclusive bool
	Max          *float64
	MaxExclusive bool
	Enum         []interface{}
	NotIn        []interface{}
}

// Constraints maps a field path to its Constraint. Keys are the field
// names written at the top level of the query; a dotted key such as
// "a.b" applies to the nested field generated under that path.
type Constraints map[string]Constraint

func excluded(v interface{}, notIn []interface{}) bool {
	for _, n := range notIn {
		if looseEqual(v, n) {
			return true
		}
	}
	return false
}

func looseEqual(a, b interface{}) bool {
	switch x := a.(type) {
	case int:
		return float64(x) == toFloatLoose(b)
	case int32:
		return float64(x) == toFloatLoose(b)
	case int64:
		return float64(x) == toFloatLoose(b)
	case float64:
		return x == toFloatLoose(b)
	default:
		return a == b
	}
}

func toFloatLoose(v interface{}) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}
