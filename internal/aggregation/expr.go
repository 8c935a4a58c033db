// Package aggregation implements spec §4.10's pipeline executor: an
// ordered list of stage objects operating on a slice of generated
// documents (there is no persisted collection to stream from).
package aggregation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// Eval evaluates an aggregation expression against doc, with root
// available for `$$ROOT`/`$$CURRENT` references.
func Eval(expr interface{}, doc bsonx.D, root bsonx.D) interface{} {
	switch e := expr.(type) {
	case string:
		return evalFieldRef(e, doc, root)
	case bsonx.D:
		return evalOperatorOrLiteralDoc(e, doc, root)
	case bsonx.A:
		out := make(bsonx.A, len(e))
		for i, v := range e {
			out[i] = Eval(v, doc, root)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(e))
		for i, v := range e {
			out[i] = Eval(v, doc, root)
		}
		return out
	default:
		return expr
	}
}

func evalFieldRef(s string, doc bsonx.D, root bsonx.D) interface{} {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	switch s {
	case "$$ROOT":
		return root
	case "$$CURRENT":
		return doc
	}
	path := strings.TrimPrefix(s, "$")
	v, _ := resolveDotted(doc, path)
	return v
}

func evalOperatorOrLiteralDoc(d bsonx.D, doc bsonx.D, root bsonx.D) interface{} {
	if len(d) == 1 && strings.HasPrefix(d[0].Key, "$") {
		return evalOperator(d[0].Key, d[0].Value, doc, root)
	}
	out := bsonx.D{}
	for _, e := range d {
		out = append(out, bsonx.E{Key: e.Key, Value: Eval(e.Value, doc, root)})
	}
	return out
}

func evalOperator(op string, arg interface{}, doc bsonx.D, root bsonx.D) interface{} {
	switch op {
	case "$add":
		return reduceNumeric(arg, doc, root, 0, func(a, b float64) float64 { return a + b })
	case "$subtract":
		return binaryNumeric(arg, doc, root, func(a, b float64) float64 { return a - b })
	case "$multiply":
		return reduceNumeric(arg, doc, root, 1, func(a, b float64) float64 { return a * b })
	case "$divide":
		return binaryNumeric(arg, doc, root, func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return a / b
		})
	case "$mod":
		return binaryNumeric(arg, doc, root, func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return math.Mod(a, b)
		})
	case "$concat":
		items := evalArgs(arg, doc, root)
		var b strings.Builder
		for _, v := range items {
			b.WriteString(fmt.Sprintf("%v", v))
		}
		return b.String()
	case "$toUpper":
		return strings.ToUpper(fmt.Sprintf("%v", Eval(arg, doc, root)))
	case "$toLower":
		return strings.ToLower(fmt.Sprintf("%v", Eval(arg, doc, root)))
	case "$eq", "$ne", "$gt", "$gte", "$lt", "$lte":
		items := evalArgs(arg, doc, root)
		if len(items) != 2 {
			return false
		}
		return compareOp(op, items[0], items[1])
	case "$and":
		for _, v := range evalArgs(arg, doc, root) {
			if !truthyValue(v) {
				return false
			}
		}
		return true
	case "$or":
		for _, v := range evalArgs(arg, doc, root) {
			if truthyValue(v) {
				return true
			}
		}
		return false
	case "$not":
		items := evalArgs(arg, doc, root)
		if len(items) != 1 {
			return false
		}
		return !truthyValue(items[0])
	case "$cond":
		return evalCond(arg, doc, root)
	case "$literal":
		return arg
	case "$ifNull":
		items := evalArgs(arg, doc, root)
		for _, v := range items {
			if v != nil {
				return v
			}
		}
		if len(items) > 0 {
			return items[len(items)-1]
		}
		return nil
	case "$size":
		v := Eval(arg, doc, root)
		if arr, ok := toSlice(v); ok {
			return int64(len(arr))
		}
		return int64(0)
	case "$arrayElemAt":
		items := evalArgs(arg, doc, root)
		if len(items) != 2 {
			return nil
		}
		arr, ok := toSlice(items[0])
		if !ok {
			return nil
		}
		idx := int(toFloatLoose(items[1]))
		if idx < 0 {
			idx = len(arr) + idx
		}
		if idx < 0 || idx >= len(arr) {
			return nil
		}
		return arr[idx]
	case "$year", "$month", "$dayOfMonth", "$hour", "$minute", "$second":
		return dateComponent(op, Eval(arg, doc, root))
	default:
		return nil
	}
}

func evalCond(arg interface{}, doc bsonx.D, root bsonx.D) interface{} {
	switch a := arg.(type) {
	case bsonx.D:
		var ifV, thenV, elseV interface{}
		for _, e := range a {
			switch e.Key {
			case "if":
				ifV = e.Value
			case "then":
				thenV = e.Value
			case "else":
				elseV = e.Value
			}
		}
		if truthyValue(Eval(ifV, doc, root)) {
			return Eval(thenV, doc, root)
		}
		return Eval(elseV, doc, root)
	default:
		items := evalArgs(arg, doc, root)
		if len(items) != 3 {
			return nil
		}
		if truthyValue(items[0]) {
			return items[1]
		}
		return items[2]
	}
}

func evalArgs(arg interface{}, doc bsonx.D, root bsonx.D) []interface{} {
	if arr, ok := toSlice(arg); ok {
		out := make([]interface{}, len(arr))
		for i, v := range arr {
			out[i] = Eval(v, doc, root)
		}
		return out
	}
	return []interface{}{Eval(arg, doc, root)}
}

func reduceNumeric(arg interface{}, doc bsonx.D, root bsonx.D, initial float64, fn func(a, b float64) float64) float64 {
	acc := initial
	for _, v := range evalArgs(arg, doc, root) {
		acc = fn(acc, toFloatLoose(v))
	}
	return acc
}

func binaryNumeric(arg interface{}, doc bsonx.D, root bsonx.D, fn func(a, b float64) float64) float64 {
	items := evalArgs(arg, doc, root)
	if len(items) != 2 {
		return 0
	}
	return fn(toFloatLoose(items[0]), toFloatLoose(items[1]))
}

func compareOp(op string, a, b interface{}) bool {
	c := compareValues(a, b)
	switch op {
	case "$eq":
		return c == 0
	case "$ne":
		return c != 0
	case "$gt":
		return c > 0
	case "$gte":
		return c >= 0
	case "$lt":
		return c < 0
	case "$lte":
		return c <= 0
	default:
		return false
	}
}

func compareValues(a, b interface{}) int {
	af, aok := toFloatLooseOK(a)
	bf, bok := toFloatLooseOK(b)
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
	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	return strings.Compare(as, bs)
}

func truthyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int, int32, int64, float64:
		return toFloatLoose(t) != 0
	case string:
		return true
	default:
		return true
	}
}

func dateComponent(op string, v interface{}) interface{} {
	t, ok := v.(bsonx.DateTime)
	if !ok {
		return nil
	}
	tm := t.Time()
	switch op {
	case "$year":
		return int64(tm.Year())
	case "$month":
		return int64(tm.Month())
	case "$dayOfMonth":
		return int64(tm.Day())
	case "$hour":
		return int64(tm.Hour())
	case "$minute":
		return int64(tm.Minute())
	case "$second":
		return int64(tm.Second())
	default:
		return nil
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

func toFloatLoose(v interface{}) float64 {
	f, _ := toFloatLooseOK(v)
	return f
}

func toFloatLooseOK(v interface{}) (float64, bool) {
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
		default:
			return nil, false
		}
	}
	return cur, true
}

func sortedFields(d bsonx.D) []string {
	keys := make([]string, 0, len(d))
	for _, e := range d {
		keys = append(keys, e.Key)
	}
	sort.Strings(keys)
	return keys
}
