package wire

import (
	"github.com/pkg/errors"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// OP_MSG flag bits, spec §4.2.
const (
	FlagChecksumPresent uint32 = 0x1
	FlagMoreToCome      uint32 = 0x2
	FlagExhaustAllowed  uint32 = 0x10000
)

// Section kinds for an OP_MSG body.
const (
	SectionKindBody        byte = 0
	SectionKindDocSequence byte = 1
)

// Section is one OP_MSG section: kind 0 carries a single document, kind 1
// carries an identifier plus a sequence of documents (e.g. bulk write
// "documents"/"updates"/"deletes" arrays sent out-of-line).
type Section struct {
	Kind       byte
	Identifier string // only set for SectionKindDocSequence
	Documents  []bsonx.D
}

// Msg is a parsed OP_MSG body.
type Msg struct {
	FlagBits uint32
	Sections []Section
	Checksum uint32
	HasCRC   bool
}

// DecodeMsg parses an OP_MSG body (spec §4.2): u32 flagBits || (section)+ ||
// [u32 crc]?.
func DecodeMsg(body []byte) (Msg, error) {
	if len(body) < 4 {
		return Msg{}, errors.New("wire: OP_MSG body too short")
	}
	flags := getUint32(body, 0)
	pos := 4

	end := len(body)
	hasCRC := flags&FlagChecksumPresent != 0
	if hasCRC {
		end -= 4
		if end < pos {
			return Msg{}, errors.New("wire: OP_MSG body too short for checksum")
		}
	}

	var sections []Section
	for pos < end {
		kind := body[pos]
		pos++
		switch kind {
		case SectionKindBody:
			doc, n, err := decodeOneDoc(body[pos:end])
			if err != nil {
				return Msg{}, errors.Wrap(err, "wire: decoding kind-0 section")
			}
			pos += n
			sections = append(sections, Section{Kind: SectionKindBody, Documents: []bsonx.D{doc}})

		case SectionKindDocSequence:
			if pos+4 > end {
				return Msg{}, errors.New("wire: truncated kind-1 section size")
			}
			sectionSize := int(getUint32(body, pos))
			sectionEnd := pos + sectionSize
			if sectionSize < 5 || sectionEnd > end {
				return Msg{}, errors.Errorf("wire: invalid kind-1 sectionSize %d", sectionSize)
			}
			cur := pos + 4
			ident, cur2, err := readCString(body, cur)
			if err != nil {
				return Msg{}, errors.Wrap(err, "wire: decoding kind-1 identifier")
			}
			cur = cur2
			var docs []bsonx.D
			for cur < sectionEnd {
				doc, n, err := decodeOneDoc(body[cur:sectionEnd])
				if err != nil {
					return Msg{}, errors.Wrap(err, "wire: decoding kind-1 document")
				}
				cur += n
				docs = append(docs, doc)
			}
			pos = sectionEnd
			sections = append(sections, Section{Kind: SectionKindDocSequence, Identifier: ident, Documents: docs})

		default:
			return Msg{}, errors.Errorf("wire: unknown OP_MSG section kind %d", kind)
		}
	}

	m := Msg{FlagBits: flags, Sections: sections, HasCRC: hasCRC}
	if hasCRC {
		m.Checksum = getUint32(body, end)
	}
	return m, nil
}

// EncodeMsg serializes an OP_MSG body. Checksums are never emitted; mongtap
// never sets FlagChecksumPresent on replies it generates.
func EncodeMsg(m Msg) ([]byte, error) {
	body := make([]byte, 4)
	putUint32(body, 0, m.FlagBits&^FlagChecksumPresent)

	for _, sec := range m.Sections {
		switch sec.Kind {
		case SectionKindBody:
			if len(sec.Documents) != 1 {
				return nil, errors.New("wire: kind-0 section must carry exactly one document")
			}
			body = append(body, SectionKindBody)
			enc, err := bsonx.Marshal(sec.Documents[0])
			if err != nil {
				return nil, err
			}
			body = append(body, enc...)

		case SectionKindDocSequence:
			body = append(body, SectionKindDocSequence)
			start := len(body)
			body = append(body, 0, 0, 0, 0)
			body = appendCString(body, sec.Identifier)
			for _, doc := range sec.Documents {
				enc, err := bsonx.Marshal(doc)
				if err != nil {
					return nil, err
				}
				body = append(body, enc...)
			}
			putUint32(body, start, uint32(len(body)-start))

		default:
			return nil, errors.Errorf("wire: unknown section kind %d", sec.Kind)
		}
	}
	return body, nil
}

// NewReplyMsg builds a single-section (kind 0) OP_MSG body carrying doc,
// the shape used for every command reply in this server.
func NewReplyMsg(doc bsonx.D) ([]byte, error) {
	return EncodeMsg(Msg{Sections: []Section{{Kind: SectionKindBody, Documents: []bsonx.D{doc}}}})
}

func decodeOneDoc(b []byte) (bsonx.D, int, error) {
	size, err := bsonx.PeekDocumentSize(b)
	if err != nil {
		return nil, 0, err
	}
	if int(size) > len(b) {
		return nil, 0, errors.Errorf("wire: document size %d exceeds remaining section bytes %d", size, len(b))
	}
	doc, err := bsonx.Unmarshal(b[:size])
	if err != nil {
		return nil, 0, err
	}
	return doc, int(size), nil
}

func readCString(b []byte, pos int) (string, int, error) {
	for i := pos; i < len(b); i++ {
		if b[i] == 0 {
			return string(b[pos:i]), i + 1, nil
		}
	}
	return "", 0, errors.New("wire: unterminated cstring")
}

func appendCString(b []byte, s string) []byte {
	b = append(b, s...)
	return append(b, 0)
}

func getUint32(b []byte, pos int) uint32 {
	return uint32(getInt32(b, pos))
}

func putUint32(b []byte, pos int, v uint32) {
	putInt32(b, pos, int32(v))
}
