// Package wire implements the typed value <-> byte-stream codec: the
// private wire format worker messages cross thread boundaries in,
// carried inside an arena.StandaloneArena so a producer goroutine can
// allocate a message buffer a consumer goroutine later frees. A tag
// byte per value, length prefixes for strings and tables.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/lus-lang/lus/arena"
)

// Tag identifies the wire encoding of one value.
type Tag byte

const (
	TagNil Tag = iota
	TagBool
	TagInt
	TagFloat
	TagString
	TagTable
)

// MaxTableDepth caps table recursion; exceeding it raises an error
// rather than silently truncating.
const MaxTableDepth = 100

// Value is the minimal dynamically-typed value this wire format can
// carry. Table is an ordered association list so key/value pairs
// round-trip without needing a Go map's unordered iteration (and so
// non-comparable keys, if ever added, wouldn't need special-casing).
type Value struct {
	Tag   Tag
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Table []TableEntry
}

// TableEntry is one key/value pair of a serialized table.
type TableEntry struct {
	Key, Val Value
}

func Nil() Value            { return Value{Tag: TagNil} }
func Bool(b bool) Value     { return Value{Tag: TagBool, Bool: b} }
func Int(i int64) Value     { return Value{Tag: TagInt, Int: i} }
func Float(f float64) Value { return Value{Tag: TagFloat, Float: f} }
func Str(s string) Value    { return Value{Tag: TagString, Str: s} }
func Table(entries []TableEntry) Value {
	return Value{Tag: TagTable, Table: entries}
}

// ErrNotSerializable is returned for values this format has no tag
// for (functions, threads, userdata without a __serialize hook).
var ErrNotSerializable = errors.New("wire: value is not serializable")

// ErrDepthExceeded is returned when a table nests more than MaxTableDepth
// levels deep.
var ErrDepthExceeded = errors.New("wire: table nesting exceeds depth cap")

// Writer appends an encoded Value into a StandaloneArena-backed
// buffer, doubling in place; the old buffer is orphaned in the arena
// and freed with it.
type Writer struct {
	a   *arena.StandaloneArena
	buf []byte
}

// NewWriter creates a Writer over a. The caller owns a's lifetime: once
// the Writer's buffer is queued for cross-thread delivery, ownership of
// a transfers with it.
func NewWriter(a *arena.StandaloneArena) *Writer {
	return &Writer{a: a}
}

func (w *Writer) grow(n int) []byte {
	needed := len(w.buf) + n
	size := cap(w.buf)
	if size == 0 {
		size = 64
	}
	for size < needed {
		size *= 2
	}
	if size > cap(w.buf) {
		nb := w.a.Alloc(size)
		copy(nb, w.buf)
		w.buf = nb[:len(w.buf)]
	}
	return w.buf
}

func (w *Writer) writeByte(b byte) {
	w.buf = append(w.grow(1)[:len(w.buf)], b)
}

func (w *Writer) writeBytes(b []byte) {
	w.buf = append(w.grow(len(b))[:len(w.buf)], b...)
}

func (w *Writer) writeUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.writeBytes(b[:])
}

func (w *Writer) writeUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.writeBytes(b[:])
}

// Bytes returns the encoded buffer so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Encode writes v at the current cursor.
func Encode(w *Writer, v Value) error { return encode(w, v, 0) }

func encode(w *Writer, v Value, depth int) error {
	if depth > MaxTableDepth {
		return ErrDepthExceeded
	}
	switch v.Tag {
	case TagNil:
		w.writeByte(byte(TagNil))
	case TagBool:
		w.writeByte(byte(TagBool))
		if v.Bool {
			w.writeByte(1)
		} else {
			w.writeByte(0)
		}
	case TagInt:
		w.writeByte(byte(TagInt))
		w.writeUint64(uint64(v.Int))
	case TagFloat:
		w.writeByte(byte(TagFloat))
		w.writeUint64(math.Float64bits(v.Float))
	case TagString:
		w.writeByte(byte(TagString))
		w.writeUint32(uint32(len(v.Str)))
		w.writeBytes([]byte(v.Str))
	case TagTable:
		w.writeByte(byte(TagTable))
		w.writeUint32(uint32(len(v.Table)))
		for _, e := range v.Table {
			if err := encode(w, e.Key, depth+1); err != nil {
				return err
			}
			if err := encode(w, e.Val, depth+1); err != nil {
				return err
			}
		}
	default:
		return ErrNotSerializable
	}
	return nil
}

// Reader streams a byte range, bounds-checking every read.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

var ErrTruncated = errors.New("wire: truncated buffer")

func (r *Reader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, ErrTruncated
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) readUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) readUint64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Decode reads one Value from r.
func Decode(r *Reader) (Value, error) { return decode(r, 0) }

func decode(r *Reader, depth int) (Value, error) {
	if depth > MaxTableDepth {
		return Value{}, ErrDepthExceeded
	}
	tb, err := r.readByte()
	if err != nil {
		return Value{}, err
	}
	switch Tag(tb) {
	case TagNil:
		return Nil(), nil
	case TagBool:
		b, err := r.readByte()
		if err != nil {
			return Value{}, err
		}
		return Bool(b != 0), nil
	case TagInt:
		v, err := r.readUint64()
		if err != nil {
			return Value{}, err
		}
		return Int(int64(v)), nil
	case TagFloat:
		v, err := r.readUint64()
		if err != nil {
			return Value{}, err
		}
		return Float(math.Float64frombits(v)), nil
	case TagString:
		n, err := r.readUint32()
		if err != nil {
			return Value{}, err
		}
		b, err := r.readBytes(int(n))
		if err != nil {
			return Value{}, err
		}
		return Str(string(b)), nil
	case TagTable:
		n, err := r.readUint32()
		if err != nil {
			return Value{}, err
		}
		entries := make([]TableEntry, 0, n)
		for i := uint32(0); i < n; i++ {
			k, err := decode(r, depth+1)
			if err != nil {
				return Value{}, err
			}
			v, err := decode(r, depth+1)
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, TableEntry{Key: k, Val: v})
		}
		return Table(entries), nil
	default:
		return Value{}, fmt.Errorf("wire: unknown tag %d", tb)
	}
}

// Equal reports structural equality: tables equal by key/value graph,
// numbers compared by their typed representation.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagNil:
		return true
	case TagBool:
		return a.Bool == b.Bool
	case TagInt:
		return a.Int == b.Int
	case TagFloat:
		return a.Float == b.Float
	case TagString:
		return a.Str == b.Str
	case TagTable:
		if len(a.Table) != len(b.Table) {
			return false
		}
		for i := range a.Table {
			if !Equal(a.Table[i].Key, b.Table[i].Key) || !Equal(a.Table[i].Val, b.Table[i].Val) {
				return false
			}
		}
		return true
	}
	return false
}
