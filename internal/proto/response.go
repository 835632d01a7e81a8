package proto

import (
	"encoding/binary"
	"math"
)

// Tag identifies the type of an encoded response value.
type Tag byte

const (
	TagNil Tag = 0x00
	TagErr Tag = 0x01
	TagInt Tag = 0x02
	TagStr Tag = 0x03
	TagDbl Tag = 0x04
	TagArr Tag = 0x05
)

// Error codes carried by TagErr records.
const (
	ErrUnknown    = uint32(1)
	ErrTooBigCode = uint32(2)
	ErrBadArg     = uint32(3)
)

// Writer accumulates one response's tagged values into a byte buffer.
// Arrays are opened with BeginArray, which reserves a count placeholder
// patched by EndArray once the caller knows how many elements it wrote —
// mirroring how the length prefix of the whole frame is reserved before
// dispatch and patched afterward in the event loop.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty response Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the encoded value sequence written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) putU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) putI64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteNil appends a NIL value.
func (w *Writer) WriteNil() {
	w.buf = append(w.buf, byte(TagNil))
}

// WriteErr appends an ERR value with the given code and message.
func (w *Writer) WriteErr(code uint32, msg string) {
	w.buf = append(w.buf, byte(TagErr))
	w.putU32(code)
	w.putU32(uint32(len(msg)))
	w.buf = append(w.buf, msg...)
}

// WriteInt appends an INT value.
func (w *Writer) WriteInt(v int64) {
	w.buf = append(w.buf, byte(TagInt))
	w.putI64(v)
}

// WriteStr appends a STR value.
func (w *Writer) WriteStr(v []byte) {
	w.buf = append(w.buf, byte(TagStr))
	w.putU32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

// WriteDbl appends a DBL value.
func (w *Writer) WriteDbl(v float64) {
	w.buf = append(w.buf, byte(TagDbl))
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf = append(w.buf, b[:]...)
}

// BeginArray appends an ARR tag and a placeholder count, returning the
// offset of the placeholder for EndArray to patch.
func (w *Writer) BeginArray() int {
	w.buf = append(w.buf, byte(TagArr))
	off := len(w.buf)
	w.putU32(0)
	return off
}

// EndArray patches the count placeholder returned by BeginArray with the
// actual number of elements written.
func (w *Writer) EndArray(placeholder int, count uint32) {
	binary.LittleEndian.PutUint32(w.buf[placeholder:placeholder+4], count)
}

// FrameTooBig replaces the writer's contents with a single ERR_TOO_BIG
// record, used when a response body exceeds MaxBodyLen after dispatch.
func (w *Writer) FrameTooBig() {
	w.buf = w.buf[:0]
	w.WriteErr(ErrTooBigCode, "response too big")
}
