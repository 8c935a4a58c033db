package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongtap/mongtap/internal/bsonx"
)

func TestOpMsgRoundTrip(t *testing.T) {
	doc := bsonx.D{{Key: "hello", Value: int32(1)}}
	body, err := NewReplyMsg(doc)
	require.NoError(t, err)

	decoded, err := DecodeMsg(body)
	require.NoError(t, err)
	require.Len(t, decoded.Sections, 1)
	assert.Equal(t, SectionKindBody, decoded.Sections[0].Kind)
	require.Len(t, decoded.Sections[0].Documents, 1)
	assert.Equal(t, doc, decoded.Sections[0].Documents[0])
}

func TestOpMsgDocSequenceSection(t *testing.T) {
	docs := []bsonx.D{
		{{Key: "a", Value: int32(1)}},
		{{Key: "b", Value: int32(2)}},
	}
	body, err := EncodeMsg(Msg{Sections: []Section{
		{Kind: SectionKindDocSequence, Identifier: "documents", Documents: docs},
	}})
	require.NoError(t, err)

	decoded, err := DecodeMsg(body)
	require.NoError(t, err)
	require.Len(t, decoded.Sections, 1)
	assert.Equal(t, "documents", decoded.Sections[0].Identifier)
	assert.Equal(t, docs, decoded.Sections[0].Documents)
}

func TestFrameRoundTrip(t *testing.T) {
	doc := bsonx.D{{Key: "ping", Value: int32(1)}}
	body, err := NewReplyMsg(doc)
	require.NoError(t, err)

	var buf bytes.Buffer
	h := Header{RequestID: 7, ResponseTo: 3, OpCode: OpCodeMsg}
	require.NoError(t, WriteFrame(&buf, h, body))

	frame, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, OpCodeMsg, frame.Header.OpCode)
	assert.Equal(t, int32(7), frame.Header.RequestID)
	assert.Equal(t, int32(3), frame.Header.ResponseTo)
	assert.Equal(t, body, frame.Body)
}

func TestLegacyQueryOpRoundTrip(t *testing.T) {
	query := bsonx.D{{Key: "find", Value: "widgets"}}
	body := buildQueryBody(t, "test.widgets", 5, 10, query, nil)

	op, err := DecodeQueryOp(body)
	require.NoError(t, err)
	assert.Equal(t, "test.widgets", op.Collection)
	assert.Equal(t, int32(5), op.Skip)
	assert.Equal(t, int32(10), op.Limit)
	assert.Equal(t, query, op.Query)
}

func TestKillCursorsOp(t *testing.T) {
	body := make([]byte, 8)
	putInt32(body, 4, 2)
	body = append(body, make([]byte, 16)...)
	putInt64(body, 8, 111)
	putInt64(body, 16, 222)

	op, err := DecodeKillCursorsOp(body)
	require.NoError(t, err)
	assert.Equal(t, []int64{111, 222}, op.CursorIDs)
}

func buildQueryBody(t *testing.T, coll string, skip, limit int32, query, selector bsonx.D) []byte {
	t.Helper()
	body := make([]byte, 4)
	body = appendCString(body, coll)
	skipLimit := make([]byte, 8)
	putInt32(skipLimit, 0, skip)
	putInt32(skipLimit, 4, limit)
	body = append(body, skipLimit...)
	enc, err := bsonx.Marshal(query)
	require.NoError(t, err)
	body = append(body, enc...)
	if selector != nil {
		enc2, err := bsonx.Marshal(selector)
		require.NoError(t, err)
		body = append(body, enc2...)
	}
	return body
}
