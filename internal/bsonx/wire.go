package bsonx

import "math"

// Little-endian integer helpers, grounded on mongoproto/util.go's
// getInt32/SetInt32/getInt64/SetInt64 — the wire protocol is little-endian
// throughout, unlike ObjectID's big-endian timestamp/counter fields.

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

func getUint32(b []byte, pos int) uint32 {
	return uint32(getInt32(b, pos))
}

func putUint32(b []byte, pos int, v uint32) {
	putInt32(b, pos, int32(v))
}

func getInt64(b []byte, pos int) int64 {
	return int64(b[pos]) |
		int64(b[pos+1])<<8 |
		int64(b[pos+2])<<16 |
		int64(b[pos+3])<<24 |
		int64(b[pos+4])<<32 |
		int64(b[pos+5])<<40 |
		int64(b[pos+6])<<48 |
		int64(b[pos+7])<<56
}

func putInt64(b []byte, pos int, v int64) {
	b[pos] = byte(v)
	b[pos+1] = byte(v >> 8)
	b[pos+2] = byte(v >> 16)
	b[pos+3] = byte(v >> 24)
	b[pos+4] = byte(v >> 32)
	b[pos+5] = byte(v >> 40)
	b[pos+6] = byte(v >> 48)
	b[pos+7] = byte(v >> 56)
}

func getUint64(b []byte, pos int) uint64 {
	return uint64(getInt64(b, pos))
}

func putUint64(b []byte, pos int, v uint64) {
	putInt64(b, pos, int64(v))
}

func getFloat64(b []byte, pos int) float64 {
	return math.Float64frombits(getUint64(b, pos))
}

func putFloat64(b []byte, pos int, v float64) {
	putUint64(b, pos, math.Float64bits(v))
}
