package bsonx

import (
	"github.com/pkg/errors"
)

// ErrTruncated is returned when a buffer ends before a declared size is
// satisfied.
var ErrTruncated = errors.New("bsonx: truncated document")

// DecodeOptions controls Unmarshal's handling of ambiguous wire values.
type DecodeOptions struct {
	// PromoteInt64 converts an int64 value to a native Go int when it fits
	// in a 53-bit safe-integer range, matching the "promote 64-bit to
	// native number if safe-integer" policy named in spec §4.1. Off by
	// default so round-tripping int64 values stays exact.
	PromoteInt64 bool
}

const safeIntegerBound = int64(1) << 53

// Unmarshal decodes a single document using default options (no int64
// promotion).
func Unmarshal(b []byte) (D, error) {
	return UnmarshalWithOptions(b, DecodeOptions{})
}

// UnmarshalWithOptions decodes a single document, applying opts.
func UnmarshalWithOptions(b []byte, opts DecodeOptions) (D, error) {
	if len(b) < 5 {
		return nil, ErrTruncated
	}
	size := getInt32(b, 0)
	if size < 5 || int(size) > len(b) {
		return nil, errors.Wrapf(ErrTruncated, "declared size %d, buffer %d", size, len(b))
	}
	doc, pos, err := readDocument(b[:size], 0, opts)
	if err != nil {
		return nil, err
	}
	if pos != int(size) {
		return nil, errors.Errorf("bsonx: document consumed %d bytes, declared %d", pos, size)
	}
	return doc, nil
}

// readDocument reads a document starting at pos (pointing at its size
// prefix) and returns it plus the offset just past its trailing NUL.
func readDocument(b []byte, pos int, opts DecodeOptions) (D, int, error) {
	if pos+4 > len(b) {
		return nil, 0, ErrTruncated
	}
	size := int(getInt32(b, pos))
	if size < 5 || pos+size > len(b) {
		return nil, 0, errors.Wrapf(ErrTruncated, "nested document declares %d bytes", size)
	}
	end := pos + size - 1 // position of the trailing NUL
	i := pos + 4
	var doc D
	for i < end {
		t := Type(b[i])
		i++
		key, next, err := readCString(b, i)
		if err != nil {
			return nil, 0, err
		}
		i = next
		val, next, err := readValue(b, i, t, opts)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "bsonx: decoding field %q", key)
		}
		i = next
		doc = append(doc, E{Key: key, Value: val})
	}
	if i != end || b[end] != 0x00 {
		return nil, 0, errors.New("bsonx: document missing trailing NUL")
	}
	return doc, end + 1, nil
}

func readArray(b []byte, pos int, opts DecodeOptions) (A, int, error) {
	if pos+4 > len(b) {
		return nil, 0, ErrTruncated
	}
	size := int(getInt32(b, pos))
	if size < 5 || pos+size > len(b) {
		return nil, 0, errors.Wrapf(ErrTruncated, "array declares %d bytes", size)
	}
	end := pos + size - 1
	i := pos + 4
	var arr A
	for i < end {
		t := Type(b[i])
		i++
		_, next, err := readCString(b, i) // index key, discarded
		if err != nil {
			return nil, 0, err
		}
		i = next
		val, next, err := readValue(b, i, t, opts)
		if err != nil {
			return nil, 0, err
		}
		i = next
		arr = append(arr, val)
	}
	if i != end || b[end] != 0x00 {
		return nil, 0, errors.New("bsonx: array missing trailing NUL")
	}
	return arr, end + 1, nil
}

func readCString(b []byte, pos int) (string, int, error) {
	for i := pos; i < len(b); i++ {
		if b[i] == 0x00 {
			return string(b[pos:i]), i + 1, nil
		}
	}
	return "", 0, ErrTruncated
}

func readValue(b []byte, pos int, t Type, opts DecodeOptions) (interface{}, int, error) {
	switch t {
	case TypeDouble:
		if pos+8 > len(b) {
			return nil, 0, ErrTruncated
		}
		return getFloat64(b, pos), pos + 8, nil

	case TypeString:
		return readLengthPrefixedString(b, pos)

	case TypeDocument:
		return readDocument(b, pos, opts)

	case TypeArray:
		return readArray(b, pos, opts)

	case TypeBinary:
		if pos+5 > len(b) {
			return nil, 0, ErrTruncated
		}
		n := int(getInt32(b, pos))
		subtype := b[pos+4]
		start := pos + 5
		if n < 0 || start+n > len(b) {
			return nil, 0, ErrTruncated
		}
		data := make([]byte, n)
		copy(data, b[start:start+n])
		return Binary{Subtype: subtype, Data: data}, start + n, nil

	case TypeUndefined:
		return Undefined{}, pos, nil

	case TypeObjectID:
		if pos+12 > len(b) {
			return nil, 0, ErrTruncated
		}
		var oid ObjectID
		copy(oid[:], b[pos:pos+12])
		return oid, pos + 12, nil

	case TypeBoolean:
		if pos+1 > len(b) {
			return nil, 0, ErrTruncated
		}
		return b[pos] != 0, pos + 1, nil

	case TypeDateTime:
		if pos+8 > len(b) {
			return nil, 0, ErrTruncated
		}
		return DateTime(getInt64(b, pos)), pos + 8, nil

	case TypeNull:
		return nil, pos, nil

	case TypeRegex:
		pattern, next, err := readCString(b, pos)
		if err != nil {
			return nil, 0, err
		}
		options, next2, err := readCString(b, next)
		if err != nil {
			return nil, 0, err
		}
		return Regex{Pattern: pattern, Options: options}, next2, nil

	case TypeCode:
		s, next, err := readLengthPrefixedString(b, pos)
		if err != nil {
			return nil, 0, err
		}
		return JavaScript(s.(string)), next, nil

	case TypeCodeScope:
		if pos+4 > len(b) {
			return nil, 0, ErrTruncated
		}
		total := int(getInt32(b, pos))
		if total < 0 || pos+total > len(b) {
			return nil, 0, ErrTruncated
		}
		end := pos + total
		codeVal, next, err := readLengthPrefixedString(b, pos+4)
		if err != nil {
			return nil, 0, err
		}
		scope, next2, err := readDocument(b, next, opts)
		if err != nil {
			return nil, 0, err
		}
		if next2 != end {
			return nil, 0, errors.New("bsonx: code_w_scope length mismatch")
		}
		return CodeWithScope{Code: JavaScript(codeVal.(string)), Scope: scope}, end, nil

	case TypeInt32:
		if pos+4 > len(b) {
			return nil, 0, ErrTruncated
		}
		return getInt32(b, pos), pos + 4, nil

	case TypeTimestamp:
		if pos+8 > len(b) {
			return nil, 0, ErrTruncated
		}
		inc := getUint32(b, pos)
		sec := getUint32(b, pos+4)
		return Timestamp{T: sec, I: inc}, pos + 8, nil

	case TypeInt64:
		if pos+8 > len(b) {
			return nil, 0, ErrTruncated
		}
		v := getInt64(b, pos)
		if opts.PromoteInt64 && v > -safeIntegerBound && v < safeIntegerBound {
			return int(v), pos + 8, nil
		}
		return v, pos + 8, nil

	case TypeDecimal128:
		if pos+16 > len(b) {
			return nil, 0, ErrTruncated
		}
		lo := getUint64(b, pos)
		hi := getUint64(b, pos+8)
		return NewDecimal128(hi, lo), pos + 16, nil

	case TypeMinKey:
		return MinKey{}, pos, nil

	case TypeMaxKey:
		return MaxKey{}, pos, nil

	default:
		return nil, 0, errors.Errorf("bsonx: unknown type byte 0x%02X", byte(t))
	}
}

func readLengthPrefixedString(b []byte, pos int) (interface{}, int, error) {
	if pos+4 > len(b) {
		return nil, 0, ErrTruncated
	}
	n := int(getInt32(b, pos))
	start := pos + 4
	if n < 1 || start+n > len(b) {
		return nil, 0, ErrTruncated
	}
	if b[start+n-1] != 0x00 {
		return nil, 0, errors.New("bsonx: string missing trailing NUL")
	}
	return string(b[start : start+n-1]), start + n, nil
}

// NewDecimal128 constructs a Decimal128 from its high/low 64-bit halves.
func NewDecimal128(hi, lo uint64) Decimal128 {
	return decimal128New(hi, lo)
}
