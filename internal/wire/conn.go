package wire

import (
	"bufio"
	"io"
	"net"
	"sync/atomic"

	"github.com/google/uuid"
)

// Conn wraps a net.Conn with a buffered reader, accumulating bytes until a
// full frame is available before handing it to the caller (spec §4.2: "a
// connection accumulates a read buffer until messageLength bytes are
// present, parses one frame, dispatches it, then repeats").
type Conn struct {
	net.Conn
	reader *bufio.Reader

	// id is a process-local connection identifier, used for logging and
	// passed to the command handler as the client id. Built from a UUID to stay unique across listener restarts
	// without a shared counter.
	id string
}

// NewConn wraps raw in a buffered Conn.
func NewConn(raw net.Conn) *Conn {
	return &Conn{
		Conn:   raw,
		reader: bufio.NewReaderSize(raw, 64*1024),
		id:     uuid.NewString(),
	}
}

// ID returns this connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// ReadFrame reads the next complete frame off the connection, blocking
// until MessageLength bytes are available.
func (c *Conn) ReadFrame() (Frame, error) {
	return ReadFrame(c.reader)
}

// WriteFrame writes a complete frame to the connection.
func (c *Conn) WriteFrame(h Header, body []byte) error {
	return WriteFrame(c.Conn, h, body)
}

var _ io.ReadWriteCloser = (*Conn)(nil)

// RequestIDAllocator hands out monotonically increasing requestIDs for
// server-initiated replies, spec §4.2: "The server assigns monotonically
// increasing requestIDs to replies".
type RequestIDAllocator struct {
	next int32
}

// Next returns the next requestID, starting at 1.
func (a *RequestIDAllocator) Next() int32 {
	return atomic.AddInt32(&a.next, 1)
}
