package collection

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// Matches implements spec §4.8.1's match semantics over a decoded
// document.
func Matches(doc bsonx.D, query bsonx.D) bool {
	for _, e := range query {
		switch e.Key {
		case "$and":
			if !matchLogical(doc, e.Value, all) {
				return false
			}
		case "$or":
			if !matchLogical(doc, e.Value, any) {
				return false
			}
		case "$nor":
			if matchLogical(doc, e.Value, any) {
				return false
			}
		case "$not":
			sub, ok := e.Value.(bsonx.D)
			if ok && Matches(doc, sub) {
				return false
			}
		default:
			if strings.HasPrefix(e.Key, "$") {
				continue // generation parameters ($seed, $entropy) are not filter conditions
			}
			fieldValue, _ := resolveDotted(doc, e.Key)
			if !matchField(fieldValue, e.Value) {
				return false
			}
		}
	}
	return true
}

func all(fn func(bsonx.D) bool, clauses []interface{}) bool {
	for _, c := range clauses {
		sub, ok := c.(bsonx.D)
		if !ok || !fn(sub) {
			return false
		}
	}
	return true
}

func any(fn func(bsonx.D) bool, clauses []interface{}) bool {
	for _, c := range clauses {
		sub, ok := c.(bsonx.D)
		if ok && fn(sub) {
			return true
		}
	}
	return false
}

func matchLogical(doc bsonx.D, raw interface{}, combine func(func(bsonx.D) bool, []interface{}) bool) bool {
	arr, ok := raw.(bsonx.A)
	if !ok {
		if a, ok2 := raw.([]interface{}); ok2 {
			arr = bsonx.A(a)
		} else {
			return true
		}
	}
	return combine(func(sub bsonx.D) bool { return Matches(doc, sub) }, arr)
}

// matchField implements the scalar-vs-operator-object branching of
// spec §4.8.1.
func matchField(value interface{}, condition interface{}) bool {
	opDoc, isOpDoc := condition.(bsonx.D)
	if !isOpDoc {
		return looseEqual(value, condition)
	}
	if len(opDoc) == 0 {
		return looseEqual(value, condition)
	}
	for _, e := range opDoc {
		if !strings.HasPrefix(e.Key, "$") {
			// Not actually an operator document; treat the whole thing as
			// an equality target (a sub-document condition).
			return looseEqual(value, condition)
		}
		if !evalOperator(value, e.Key, e.Value) {
			return false
		}
	}
	return true
}

func evalOperator(value interface{}, op string, arg interface{}) bool {
	switch op {
	case "$eq":
		return looseEqual(value, arg)
	case "$ne":
		return !looseEqual(value, arg)
	case "$gt":
		return compareLoose(value, arg) > 0
	case "$gte":
		return compareLoose(value, arg) >= 0
	case "$lt":
		return compareLoose(value, arg) < 0
	case "$lte":
		return compareLoose(value, arg) <= 0
	case "$in":
		return containsLoose(arg, value)
	case "$nin":
		return !containsLoose(arg, value)
	case "$exists":
		want, _ := arg.(bool)
		return (value != nil) == want
	case "$type":
		return bsonTypeName(value) == fmt.Sprintf("%v", arg)
	case "$regex":
		pattern, _ := arg.(string)
		s, ok := value.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case "$size":
		arr, ok := toSlice(value)
		if !ok {
			return false
		}
		return int64(len(arr)) == toInt64Loose(arg)
	case "$all":
		arr, ok := toSlice(value)
		if !ok {
			return false
		}
		wanted, ok := toSlice(arg)
		if !ok {
			return false
		}
		for _, w := range wanted {
			if !sliceContains(arr, w) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func toSlice(v interface{}) ([]interface{}, bool) {
	switch a := v.(type) {
	case bsonx.A:
		return a, true
	case []interface{}:
		return a, true
	default:
		return nil, false
	}
}

func sliceContains(arr []interface{}, target interface{}) bool {
	for _, v := range arr {
		if looseEqual(v, target) {
			return true
		}
	}
	return false
}

func containsLoose(set interface{}, value interface{}) bool {
	arr, ok := toSlice(set)
	if !ok {
		return false
	}
	return sliceContains(arr, value)
}

// resolveDotted walks a dotted path ("a.b.c") through nested documents
// and arrays, returning the value found and whether the path resolved.
func resolveDotted(doc bsonx.D, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = doc
	for _, p := range parts {
		switch v := cur.(type) {
		case bsonx.D:
			found := false
			for _, e := range v {
				if e.Key == p {
					cur = e.Value
					found = true
					break
				}
			}
			if !found {
				return nil, false
			}
		case bsonx.A:
			idx, err := parseIndex(p)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func parseIndex(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not an index")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func looseEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	af, aok := numericOf(a)
	bf, bok := numericOf(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func compareLoose(a, b interface{}) int {
	af, aok := numericOf(a)
	bf, bok := numericOf(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	return 0
}

func numericOf(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt64Loose(v interface{}) int64 {
	f, _ := numericOf(v)
	return int64(f)
}

func bsonTypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int, int32:
		return "int"
	case int64:
		return "long"
	case float64, float32:
		return "double"
	case string:
		return "string"
	case bsonx.D:
		return "object"
	case bsonx.A:
		return "array"
	default:
		return "unknown"
	}
}
