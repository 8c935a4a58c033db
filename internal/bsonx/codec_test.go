package bsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripScalars(t *testing.T) {
	oid := NewObjectID()
	doc := D{
		{Key: "_id", Value: oid},
		{Key: "name", Value: "ada"},
		{Key: "age", Value: int32(36)},
		{Key: "big", Value: int64(1) << 40},
		{Key: "score", Value: 3.14},
		{Key: "active", Value: true},
		{Key: "nothing", Value: nil},
		{Key: "when", Value: DateTime(1700000000000)},
		{Key: "re", Value: Regex{Pattern: "^a.*z$", Options: "i"}},
		{Key: "ts", Value: Timestamp{T: 1234, I: 1}},
		{Key: "bin", Value: Binary{Subtype: 0, Data: []byte{1, 2, 3}}},
		{Key: "min", Value: MinKey{}},
		{Key: "max", Value: MaxKey{}},
		{Key: "sub", Value: D{{Key: "x", Value: int32(1)}}},
		{Key: "arr", Value: A{int32(1), "two", 3.0}},
	}

	encoded, err := Marshal(doc)
	require.NoError(t, err)

	decoded, err := Unmarshal(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, len(doc))

	for i, el := range doc {
		assert.Equal(t, el.Key, decoded[i].Key)
	}
	assert.Equal(t, oid, decoded[0].Value)
	assert.Equal(t, "ada", decoded[1].Value)
	assert.Equal(t, int32(36), decoded[2].Value)
	assert.Equal(t, int64(1)<<40, decoded[3].Value)
	assert.Equal(t, 3.14, decoded[4].Value)
	assert.Equal(t, true, decoded[5].Value)
	assert.Nil(t, decoded[6].Value)
}

func TestMarshalSizeIsExact(t *testing.T) {
	doc := D{{Key: "a", Value: int32(1)}}
	b, err := Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, int32(len(b)), getInt32(b, 0))
	assert.Equal(t, byte(0x00), b[len(b)-1])
}

func TestUnmarshalRejectsOversizedDeclaration(t *testing.T) {
	doc := D{{Key: "a", Value: int32(1)}}
	b, err := Marshal(doc)
	require.NoError(t, err)

	putInt32(b, 0, int32(len(b)+100))
	_, err = Unmarshal(b)
	assert.Error(t, err)
}

func TestPromoteInt64(t *testing.T) {
	doc := D{{Key: "n", Value: int64(42)}}
	b, err := Marshal(doc)
	require.NoError(t, err)

	decoded, err := UnmarshalWithOptions(b, DecodeOptions{PromoteInt64: true})
	require.NoError(t, err)
	assert.Equal(t, 42, decoded[0].Value)

	decoded2, err := UnmarshalWithOptions(b, DecodeOptions{PromoteInt64: false})
	require.NoError(t, err)
	assert.Equal(t, int64(42), decoded2[0].Value)
}

func TestObjectIDRoundTrip(t *testing.T) {
	oid := NewObjectID()
	hex := oid.Hex()
	require.Len(t, hex, 24)

	parsed, err := ObjectIDFromHex(hex)
	require.NoError(t, err)
	assert.Equal(t, oid, parsed)
}
