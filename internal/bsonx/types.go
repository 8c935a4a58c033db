// Package bsonx implements the BSON binary codec described in spec §4.1 and
// §6.1: a little-endian, length-prefixed document format with 19 scalar and
// composite value types.
//
// Documents are represented as primitive.D (an ordered slice of key/value
// pairs) so that field order round-trips exactly, matching the wire format's
// invariant that a document is a sequence, not a map. Scalar and composite
// values reuse the go.mongodb.org/mongo-driver primitive types (ObjectID,
// DateTime, Regex, Timestamp, Decimal128, Binary, MinKey, MaxKey,
// Undefined, JavaScript, CodeWithScope) for their in-memory shape; the
// encode/decode traversal itself is hand-written here rather than delegated
// to the driver's own marshaller, since that traversal is the component
// this spec asks to be built (see SPEC_FULL.md §3).
package bsonx

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Type is a BSON element type byte.
type Type byte

// The 19 type bytes named in spec §6.1.
const (
	TypeDouble     Type = 0x01
	TypeString     Type = 0x02
	TypeDocument   Type = 0x03
	TypeArray      Type = 0x04
	TypeBinary     Type = 0x05
	TypeUndefined  Type = 0x06 // deprecated, decode-only
	TypeObjectID   Type = 0x07
	TypeBoolean    Type = 0x08
	TypeDateTime   Type = 0x09
	TypeNull       Type = 0x0A
	TypeRegex      Type = 0x0B
	TypeCode       Type = 0x0D
	TypeCodeScope  Type = 0x0F
	TypeInt32      Type = 0x10
	TypeTimestamp  Type = 0x11
	TypeInt64      Type = 0x12
	TypeDecimal128 Type = 0x13
	TypeMinKey     Type = 0xFF
	TypeMaxKey     Type = 0x7F
)

// D is a mongtap document: an ordered sequence of key/value pairs. It is
// an alias of primitive.D so callers can use bson.D literals directly.
type D = primitive.D

// E is a single document element.
type E = primitive.E

// A is a BSON array value.
type A = primitive.A

// M is an unordered document view, used only at call sites that don't care
// about field order (e.g. query predicates built in Go code).
type M = primitive.M

// Re-exported composite value types so callers need not import the driver
// package directly.
type (
	ObjectID      = primitive.ObjectID
	DateTime      = primitive.DateTime
	Regex         = primitive.Regex
	Timestamp     = primitive.Timestamp
	Decimal128    = primitive.Decimal128
	Binary        = primitive.Binary
	MinKey        = primitive.MinKey
	MaxKey        = primitive.MaxKey
	Undefined     = primitive.Undefined
	JavaScript    = primitive.JavaScript
	CodeWithScope = primitive.CodeWithScope
	Null          = primitive.Null
)

// NewObjectID mints a fresh ObjectID using the driver's generator, which
// already implements spec §4.1's 4-byte timestamp + 5-byte random +
// 3-byte counter layout.
func NewObjectID() ObjectID {
	return primitive.NewObjectID()
}

// ObjectIDFromHex parses a 24-hex-character ObjectID.
func ObjectIDFromHex(s string) (ObjectID, error) {
	return primitive.ObjectIDFromHex(s)
}

// decimal128New constructs a Decimal128 from its high/low 64-bit halves via
// the driver's own constructor.
func decimal128New(hi, lo uint64) Decimal128 {
	return primitive.NewDecimal128(hi, lo)
}
