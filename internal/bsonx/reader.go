package bsonx

import (
	"io"

	"github.com/pkg/errors"
)

// MaxDocumentSize is the largest document mongtap will accept off the
// wire, matching MongoDB's 16MB document limit with headroom for the
// command envelope (mirrors mongoproto's maximumDocumentSize guard).
const MaxDocumentSize = 16*1024*1024 + 16*1024

// ReadRawDocument reads one complete BSON document (size prefix included)
// from r without decoding it, for callers that want to buffer raw bytes
// before parsing (e.g. OP_MSG section framing).
func ReadRawDocument(r io.Reader) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := getInt32(sizeBuf[:], 0)
	if size < 5 {
		return nil, errors.Errorf("bsonx: invalid document size %d", size)
	}
	if int(size) > MaxDocumentSize {
		return nil, errors.Errorf("bsonx: document size %d exceeds maximum %d", size, MaxDocumentSize)
	}
	doc := make([]byte, size)
	putInt32(doc, 0, size)
	if _, err := io.ReadFull(r, doc[4:]); err != nil {
		return nil, err
	}
	return doc, nil
}

// PeekDocumentSize reads the int32 size prefix from the start of b without
// requiring the full document to be present.
func PeekDocumentSize(b []byte) (int32, error) {
	if len(b) < 4 {
		return 0, ErrTruncated
	}
	return getInt32(b, 0), nil
}
