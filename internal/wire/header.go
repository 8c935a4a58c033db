package wire

import (
	"io"

	"github.com/pkg/errors"
)

// HeaderLen is the fixed size, in bytes, of a wire protocol message header.
const HeaderLen = 16

// Header is the 16-byte frame prefix common to every opcode: spec §4.2.
type Header struct {
	MessageLength int32
	RequestID     int32
	ResponseTo    int32
	OpCode        OpCode
}

// ReadHeader parses a Header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var b [HeaderLen]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return Header{}, err
	}
	return Header{
		MessageLength: getInt32(b[:], 0),
		RequestID:     getInt32(b[:], 4),
		ResponseTo:    getInt32(b[:], 8),
		OpCode:        OpCode(getInt32(b[:], 12)),
	}, nil
}

// Bytes serializes the header to its wire form.
func (h Header) Bytes() []byte {
	var b [HeaderLen]byte
	putInt32(b[:], 0, h.MessageLength)
	putInt32(b[:], 4, h.RequestID)
	putInt32(b[:], 8, h.ResponseTo)
	putInt32(b[:], 12, int32(h.OpCode))
	return b[:]
}

// Frame is a complete wire message: header plus undecoded body bytes.
type Frame struct {
	Header Header
	Body   []byte
}

// MaxMessageSize bounds how large a single frame mongtap will buffer,
// matching MongoDB's 48MB maxMessageSizeBytes.
const MaxMessageSize = 48 * 1024 * 1024

// ReadFrame reads one full frame (header + body) from r.
func ReadFrame(r io.Reader) (Frame, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return Frame{}, err
	}
	if h.MessageLength < HeaderLen || int(h.MessageLength) > MaxMessageSize {
		return Frame{}, errors.Errorf("wire: invalid messageLength %d", h.MessageLength)
	}
	body := make([]byte, h.MessageLength-HeaderLen)
	if len(body) > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Header: h, Body: body}, nil
}

// WriteFrame serializes header+body and writes it to w in one call.
func WriteFrame(w io.Writer, h Header, body []byte) error {
	h.MessageLength = int32(HeaderLen + len(body))
	buf := make([]byte, 0, h.MessageLength)
	buf = append(buf, h.Bytes()...)
	buf = append(buf, body...)
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return errors.Errorf("wire: short write, wrote %d of %d bytes", n, len(buf))
	}
	return nil
}

func getInt32(b []byte, pos int) int32 {
	return int32(b[pos]) |
		int32(b[pos+1])<<8 |
		int32(b[pos+2])<<16 |
		int32(b[pos+3])<<24
}

func putInt32(b []byte, pos int, v int32) {
	b[pos] = byte(v)
	b[pos+1] = byte(v >> 8)
	b[pos+2] = byte(v >> 16)
	b[pos+3] = byte(v >> 24)
}
