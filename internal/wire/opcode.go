// Package wire implements the MongoDB wire protocol framing described in
// spec §4.2/§6.2: message headers, the 8 recognized opcodes, and OP_MSG
// section parsing. It is grounded on mongoproto's header/opcode dispatch
// shape (github.com/mongodb/mongo-tools/mongoproto) but decodes documents
// with internal/bsonx instead of an external mgo/bson dependency.
package wire

import "fmt"

// OpCode identifies the kind of operation a wire frame carries.
type OpCode int32

// The opcodes recognized by spec §6.2. OP_COMPRESSED is recognized for
// dispatch but decompression is out of scope (spec §4.2).
const (
	OpCodeReply       OpCode = 1
	OpCodeUpdate      OpCode = 2001
	OpCodeInsert      OpCode = 2002
	OpCodeQuery       OpCode = 2004
	OpCodeGetMore     OpCode = 2005
	OpCodeDelete      OpCode = 2006
	OpCodeKillCursors OpCode = 2007
	OpCodeCompressed  OpCode = 2012
	OpCodeMsg         OpCode = 2013
)

func (c OpCode) String() string {
	switch c {
	case OpCodeReply:
		return "OP_REPLY"
	case OpCodeUpdate:
		return "OP_UPDATE"
	case OpCodeInsert:
		return "OP_INSERT"
	case OpCodeQuery:
		return "OP_QUERY"
	case OpCodeGetMore:
		return "OP_GET_MORE"
	case OpCodeDelete:
		return "OP_DELETE"
	case OpCodeKillCursors:
		return "OP_KILL_CURSORS"
	case OpCodeCompressed:
		return "OP_COMPRESSED"
	case OpCodeMsg:
		return "OP_MSG"
	default:
		return fmt.Sprintf("OP_UNKNOWN(%d)", int32(c))
	}
}

// ErrUnknownOpcode reports a frame whose opcode mongtap does not recognize.
type ErrUnknownOpcode int32

func (e ErrUnknownOpcode) Error() string {
	return fmt.Sprintf("wire: unknown opcode %d", int32(e))
}
