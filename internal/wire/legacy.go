package wire

import (
	"github.com/pkg/errors"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// QueryOp is OP_QUERY: a legacy find/command, spec §4.2. Grounded on
// mongoproto.QueryOp's field shape (Flags, Collection, Skip, Limit, Query,
// Selector) but decoded with bsonx.
type QueryOp struct {
	Flags     uint32
	Collection string
	Skip      int32
	Limit     int32
	Query     bsonx.D
	// Selector carries a projection/returnFieldsSelector when present; nil
	// when the client omitted it.
	Selector bsonx.D
}

func DecodeQueryOp(body []byte) (QueryOp, error) {
	if len(body) < 4 {
		return QueryOp{}, errors.New("wire: OP_QUERY body too short")
	}
	var op QueryOp
	op.Flags = getUint32(body, 0)
	pos := 4

	coll, next, err := readCString(body, pos)
	if err != nil {
		return QueryOp{}, err
	}
	op.Collection = coll
	pos = next

	if pos+8 > len(body) {
		return QueryOp{}, errors.New("wire: OP_QUERY missing skip/limit")
	}
	op.Skip = getInt32(body, pos)
	op.Limit = getInt32(body, pos+4)
	pos += 8

	query, n, err := decodeOneDoc(body[pos:])
	if err != nil {
		return QueryOp{}, errors.Wrap(err, "wire: decoding OP_QUERY query document")
	}
	op.Query = query
	pos += n

	if pos < len(body) {
		sel, _, err := decodeOneDoc(body[pos:])
		if err != nil {
			return QueryOp{}, errors.Wrap(err, "wire: decoding OP_QUERY selector document")
		}
		op.Selector = sel
	}
	return op, nil
}

// OP_REPLY response flags, spec §7's "cursorNotFound flag ... in the legacy
// path".
const (
	ReplyFlagCursorNotFound   int32 = 1 << 0
	ReplyFlagQueryFailure     int32 = 1 << 1
	ReplyFlagShardConfigStale int32 = 1 << 2
	ReplyFlagAwaitCapable     int32 = 1 << 3
)

// ReplyOp is OP_REPLY: the legacy server response to OP_QUERY/OP_GET_MORE.
type ReplyOp struct {
	Flags          int32
	CursorID       int64
	StartingFrom   int32
	NumberReturned int32
	Documents      []bsonx.D
}

// EncodeReplyOp serializes an OP_REPLY body: flags, cursorID, startingFrom,
// numberReturned, then each document.
func EncodeReplyOp(op ReplyOp) ([]byte, error) {
	body := make([]byte, 20)
	putInt32(body, 0, op.Flags)
	putInt64(body, 4, op.CursorID)
	putInt32(body, 12, op.StartingFrom)
	putInt32(body, 16, int32(len(op.Documents)))

	for _, doc := range op.Documents {
		enc, err := bsonx.Marshal(doc)
		if err != nil {
			return nil, err
		}
		body = append(body, enc...)
	}
	return body, nil
}

func putInt64(b []byte, pos int, v int64) {
	for i := 0; i < 8; i++ {
		b[pos+i] = byte(v >> (8 * i))
	}
}

func getInt64(b []byte, pos int) int64 {
	var v int64
	for i := 0; i < 8; i++ {
		v |= int64(b[pos+i]) << (8 * i)
	}
	return v
}

// InsertOp is OP_INSERT: one or more documents inserted into a collection.
type InsertOp struct {
	Flags      uint32
	Collection string
	Documents  []bsonx.D
}

const InsertFlagContinueOnError uint32 = 0x1

func DecodeInsertOp(body []byte) (InsertOp, error) {
	if len(body) < 4 {
		return InsertOp{}, errors.New("wire: OP_INSERT body too short")
	}
	var op InsertOp
	op.Flags = getUint32(body, 0)
	pos := 4

	coll, next, err := readCString(body, pos)
	if err != nil {
		return InsertOp{}, err
	}
	op.Collection = coll
	pos = next

	for pos < len(body) {
		doc, n, err := decodeOneDoc(body[pos:])
		if err != nil {
			return InsertOp{}, errors.Wrap(err, "wire: decoding OP_INSERT document")
		}
		op.Documents = append(op.Documents, doc)
		pos += n
	}
	return op, nil
}

// UpdateOp is OP_UPDATE.
type UpdateOp struct {
	Collection string
	Flags      uint32
	Selector   bsonx.D
	Update     bsonx.D
}

const (
	UpdateFlagUpsert uint32 = 0x1
	UpdateFlagMulti  uint32 = 0x2
)

func DecodeUpdateOp(body []byte) (UpdateOp, error) {
	if len(body) < 4 {
		return UpdateOp{}, errors.New("wire: OP_UPDATE body too short")
	}
	var op UpdateOp
	pos := 4 // first int32 is reserved/zero

	coll, next, err := readCString(body, pos)
	if err != nil {
		return UpdateOp{}, err
	}
	op.Collection = coll
	pos = next

	if pos+4 > len(body) {
		return UpdateOp{}, errors.New("wire: OP_UPDATE missing flags")
	}
	op.Flags = getUint32(body, pos)
	pos += 4

	sel, n, err := decodeOneDoc(body[pos:])
	if err != nil {
		return UpdateOp{}, errors.Wrap(err, "wire: decoding OP_UPDATE selector")
	}
	op.Selector = sel
	pos += n

	upd, _, err := decodeOneDoc(body[pos:])
	if err != nil {
		return UpdateOp{}, errors.Wrap(err, "wire: decoding OP_UPDATE update document")
	}
	op.Update = upd
	return op, nil
}

// DeleteOp is OP_DELETE.
type DeleteOp struct {
	Collection string
	Flags      uint32
	Selector   bsonx.D
}

const DeleteFlagSingleRemove uint32 = 0x1

func DecodeDeleteOp(body []byte) (DeleteOp, error) {
	if len(body) < 4 {
		return DeleteOp{}, errors.New("wire: OP_DELETE body too short")
	}
	var op DeleteOp
	pos := 4

	coll, next, err := readCString(body, pos)
	if err != nil {
		return DeleteOp{}, err
	}
	op.Collection = coll
	pos = next

	if pos+4 > len(body) {
		return DeleteOp{}, errors.New("wire: OP_DELETE missing flags")
	}
	op.Flags = getUint32(body, pos)
	pos += 4

	sel, _, err := decodeOneDoc(body[pos:])
	if err != nil {
		return DeleteOp{}, errors.Wrap(err, "wire: decoding OP_DELETE selector")
	}
	op.Selector = sel
	return op, nil
}

// GetMoreOp is OP_GET_MORE.
type GetMoreOp struct {
	Collection string
	NumToReturn int32
	CursorID    int64
}

func DecodeGetMoreOp(body []byte) (GetMoreOp, error) {
	if len(body) < 4 {
		return GetMoreOp{}, errors.New("wire: OP_GET_MORE body too short")
	}
	var op GetMoreOp
	pos := 4

	coll, next, err := readCString(body, pos)
	if err != nil {
		return GetMoreOp{}, err
	}
	op.Collection = coll
	pos = next

	if pos+12 > len(body) {
		return GetMoreOp{}, errors.New("wire: OP_GET_MORE missing numToReturn/cursorID")
	}
	op.NumToReturn = getInt32(body, pos)
	op.CursorID = getInt64(body, pos+4)
	return op, nil
}

// KillCursorsOp is OP_KILL_CURSORS.
type KillCursorsOp struct {
	CursorIDs []int64
}

func DecodeKillCursorsOp(body []byte) (KillCursorsOp, error) {
	if len(body) < 8 {
		return KillCursorsOp{}, errors.New("wire: OP_KILL_CURSORS body too short")
	}
	n := int(getInt32(body, 4))
	pos := 8
	if n < 0 || pos+n*8 > len(body) {
		return KillCursorsOp{}, errors.Errorf("wire: OP_KILL_CURSORS declares %d ids past body end", n)
	}
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = getInt64(body, pos+i*8)
	}
	return KillCursorsOp{CursorIDs: ids}, nil
}
