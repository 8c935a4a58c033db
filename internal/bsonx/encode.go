package bsonx

import (
	"fmt"

	"github.com/pkg/errors"
)

// Marshal encodes a document as described in spec §4.1: an int32 size,
// followed by (type byte, cstring key, value)* elements, followed by a
// trailing NUL.
func Marshal(doc D) ([]byte, error) {
	var buf []byte
	buf, err := appendDocument(buf, doc)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// appendDocument writes a full document (size prefix + elements + trailing
// NUL) to buf and returns the extended slice.
func appendDocument(buf []byte, doc D) ([]byte, error) {
	start := len(buf)
	buf = append(buf, 0, 0, 0, 0) // size placeholder

	for _, el := range doc {
		var err error
		buf, err = appendElement(buf, el.Key, el.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "bsonx: encoding field %q", el.Key)
		}
	}
	buf = append(buf, 0x00) // trailing NUL

	size := len(buf) - start
	putInt32(buf, start, int32(size))
	return buf, nil
}

// appendArray writes a full array value (size prefix + ASCII-index keyed
// elements + trailing NUL).
func appendArray(buf []byte, arr A) ([]byte, error) {
	start := len(buf)
	buf = append(buf, 0, 0, 0, 0)

	for i, v := range arr {
		var err error
		buf, err = appendElement(buf, fmt.Sprintf("%d", i), v)
		if err != nil {
			return nil, errors.Wrapf(err, "bsonx: encoding array index %d", i)
		}
	}
	buf = append(buf, 0x00)

	size := len(buf) - start
	putInt32(buf, start, int32(size))
	return buf, nil
}

func appendCString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, 0x00)
}

func appendString(buf []byte, s string) []byte {
	// int32 size-with-null || bytes || 0
	buf = append(buf, 0, 0, 0, 0)
	start := len(buf)
	buf = append(buf, s...)
	buf = append(buf, 0x00)
	putInt32(buf, start-4, int32(len(buf)-start))
	return buf
}

// appendElement writes the type byte, cstring key, and value for one
// element, dispatching on the dynamic Go type of v per spec §6.1.
func appendElement(buf []byte, key string, v interface{}) ([]byte, error) {
	t, err := typeOf(v)
	if err != nil {
		return nil, err
	}
	buf = append(buf, byte(t))
	buf = appendCString(buf, key)
	return appendValue(buf, t, v)
}

func appendValue(buf []byte, t Type, v interface{}) ([]byte, error) {
	switch t {
	case TypeDouble:
		buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 0)
		putFloat64(buf, len(buf)-8, toFloat64(v))
		return buf, nil

	case TypeString:
		return appendString(buf, v.(string)), nil

	case TypeDocument:
		switch d := v.(type) {
		case D:
			return appendDocument(buf, d)
		case M:
			return appendDocument(buf, mapToD(d))
		case *D:
			return appendDocument(buf, *d)
		default:
			return nil, errors.Errorf("bsonx: unsupported document value %T", v)
		}

	case TypeArray:
		switch a := v.(type) {
		case A:
			return appendArray(buf, a)
		case []interface{}:
			return appendArray(buf, A(a))
		default:
			return nil, errors.Errorf("bsonx: unsupported array value %T", v)
		}

	case TypeBinary:
		b := v.(Binary)
		buf = append(buf, 0, 0, 0, 0)
		start := len(buf) - 4
		buf = append(buf, b.Subtype)
		buf = append(buf, b.Data...)
		putInt32(buf, start, int32(len(b.Data)))
		return buf, nil

	case TypeUndefined:
		return buf, nil

	case TypeObjectID:
		oid := v.(ObjectID)
		buf = append(buf, oid[:]...)
		return buf, nil

	case TypeBoolean:
		if v.(bool) {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		return buf, nil

	case TypeDateTime:
		dt := v.(DateTime)
		buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 0)
		putInt64(buf, len(buf)-8, int64(dt))
		return buf, nil

	case TypeNull:
		return buf, nil

	case TypeRegex:
		r := v.(Regex)
		buf = appendCString(buf, r.Pattern)
		buf = appendCString(buf, r.Options)
		return buf, nil

	case TypeCode:
		return appendString(buf, string(v.(JavaScript))), nil

	case TypeCodeScope:
		cws := v.(CodeWithScope)
		start := len(buf)
		buf = append(buf, 0, 0, 0, 0)
		buf = appendString(buf, string(cws.Code))
		scope, ok := cws.Scope.(D)
		if !ok {
			if m, mok := cws.Scope.(M); mok {
				scope = mapToD(m)
			}
		}
		var err error
		buf, err = appendDocument(buf, scope)
		if err != nil {
			return nil, err
		}
		putInt32(buf, start, int32(len(buf)-start))
		return buf, nil

	case TypeInt32:
		buf = append(buf, 0, 0, 0, 0)
		putInt32(buf, len(buf)-4, toInt32(v))
		return buf, nil

	case TypeTimestamp:
		ts := v.(Timestamp)
		buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 0)
		putUint32(buf, len(buf)-8, ts.I)
		putUint32(buf, len(buf)-4, ts.T)
		return buf, nil

	case TypeInt64:
		buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 0)
		putInt64(buf, len(buf)-8, toInt64(v))
		return buf, nil

	case TypeDecimal128:
		d := v.(Decimal128)
		hi, lo := d.GetBytes()
		buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
		putUint64(buf, len(buf)-16, lo)
		putUint64(buf, len(buf)-8, hi)
		return buf, nil

	case TypeMinKey, TypeMaxKey:
		return buf, nil

	default:
		return nil, errors.Errorf("bsonx: unsupported type byte 0x%02X", byte(t))
	}
}

// typeOf maps a Go value to its BSON type byte. Integer/float Go types that
// aren't already one of int32/int64/float64 are narrowed first so callers
// can build documents from ordinary literals.
func typeOf(v interface{}) (Type, error) {
	switch x := v.(type) {
	case nil, Null:
		return TypeNull, nil
	case float64, float32:
		return TypeDouble, nil
	case string:
		return TypeString, nil
	case D, M, *D:
		return TypeDocument, nil
	case A, []interface{}:
		return TypeArray, nil
	case Binary:
		return TypeBinary, nil
	case Undefined:
		return TypeUndefined, nil
	case ObjectID:
		return TypeObjectID, nil
	case bool:
		return TypeBoolean, nil
	case DateTime:
		return TypeDateTime, nil
	case Regex:
		return TypeRegex, nil
	case JavaScript:
		return TypeCode, nil
	case CodeWithScope:
		return TypeCodeScope, nil
	case int32:
		return TypeInt32, nil
	case int:
		if int64(x) >= -(1<<31) && int64(x) <= (1<<31-1) {
			return TypeInt32, nil
		}
		return TypeInt64, nil
	case Timestamp:
		return TypeTimestamp, nil
	case int64:
		return TypeInt64, nil
	case Decimal128:
		return TypeDecimal128, nil
	case MinKey:
		return TypeMinKey, nil
	case MaxKey:
		return TypeMaxKey, nil
	default:
		return 0, errors.Errorf("bsonx: cannot encode Go value of type %T", v)
	}
}

func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	}
	return 0
}

func toInt32(v interface{}) int32 {
	switch x := v.(type) {
	case int32:
		return x
	case int:
		return int32(x)
	}
	return 0
}

func toInt64(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	}
	return 0
}

func mapToD(m M) D {
	d := make(D, 0, len(m))
	for k, v := range m {
		d = append(d, E{Key: k, Value: v})
	}
	return d
}
