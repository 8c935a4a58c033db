package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongtap/mongtap/internal/bsonx"
	"github.com/mongtap/mongtap/internal/storage"
)

func testServer(t *testing.T) *Server {
	store, err := storage.New(t.TempDir(), 10, nil)
	require.NoError(t, err)
	return New(store, DefaultOptions(), nil)
}

func TestHandleCommandPing(t *testing.T) {
	s := testServer(t)
	reply := s.HandleCommand("test", bsonx.D{{Key: "ping", Value: int32(1)}}, "c1")
	assert.Equal(t, 1.0, reply[0].Value)
}

func TestHandleCommandUnknownReturnsError(t *testing.T) {
	s := testServer(t)
	reply := s.HandleCommand("test", bsonx.D{{Key: "bogus", Value: int32(1)}}, "c1")
	okVal, _ := reply[0].Value.(float64)
	assert.Equal(t, 0.0, okVal)
}

func TestHandleCommandInsertThenFind(t *testing.T) {
	s := testServer(t)
	docs := bsonx.A{}
	for i := 0; i < 20; i++ {
		docs = append(docs, bsonx.D{{Key: "sector", Value: "Tech"}, {Key: "price", Value: float64(i)}})
	}
	insertReply := s.HandleCommand("testdb", bsonx.D{
		{Key: "insert", Value: "widgets"},
		{Key: "documents", Value: docs},
	}, "c1")
	require.Equal(t, 1.0, insertReply[0].Value)

	findReply := s.HandleCommand("testdb", bsonx.D{
		{Key: "find", Value: "widgets"},
		{Key: "filter", Value: bsonx.D{{Key: "sector", Value: "Tech"}}},
		{Key: "limit", Value: int32(5)},
	}, "c1")
	require.Equal(t, 1.0, findReply[0].Value)

	var cursorDoc bsonx.D
	for _, e := range findReply {
		if e.Key == "cursor" {
			cursorDoc = e.Value.(bsonx.D)
		}
	}
	require.NotNil(t, cursorDoc)
	for _, e := range cursorDoc {
		if e.Key == "firstBatch" {
			batch := e.Value.(bsonx.A)
			assert.LessOrEqual(t, len(batch), 5)
		}
	}
}

func TestHandleCommandHelloReportsIsMaster(t *testing.T) {
	s := testServer(t)
	reply := s.HandleCommand("test", bsonx.D{{Key: "hello", Value: int32(1)}}, "c1")
	found := false
	for _, e := range reply {
		if e.Key == "ismaster" {
			found = true
			assert.Equal(t, true, e.Value)
		}
	}
	assert.True(t, found)
}

func TestHandleCommandDropRemovesCollection(t *testing.T) {
	s := testServer(t)
	s.HandleCommand("testdb", bsonx.D{
		{Key: "insert", Value: "widgets"},
		{Key: "documents", Value: bsonx.A{bsonx.D{{Key: "a", Value: int32(1)}}}},
	}, "c1")

	dropReply := s.HandleCommand("testdb", bsonx.D{{Key: "drop", Value: "widgets"}}, "c1")
	assert.Equal(t, 1.0, dropReply[0].Value)
}
