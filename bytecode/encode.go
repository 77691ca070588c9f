package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	constNil    = 0
	constBool   = 1
	constInt    = 2
	constFloat  = 3
	constString = 4
)

// Encode flattens the chunk into a byte stream suitable for embedding
// in a bundle: a constant pool section then the instruction list, all
// fields little-endian. The layout is private to this build; bundles
// are produced and consumed by the same binary.
func (c *Chunk) Encode() []byte {
	var out []byte
	out = appendU32(out, uint32(len(c.Constants)))
	for _, k := range c.Constants {
		out = appendConstant(out, k)
	}
	out = appendU32(out, uint32(len(c.Code)))
	for _, ins := range c.Code {
		out = appendU32(out, uint32(ins.Op))
		out = appendU32(out, uint32(int32(ins.A)))
		out = appendU32(out, uint32(int32(ins.B)))
		out = appendU32(out, uint32(int32(ins.C)))
		out = appendU32(out, uint32(ins.Line))
	}
	out = appendU32(out, uint32(c.maxReg))
	return out
}

func appendConstant(out []byte, k interface{}) []byte {
	switch v := k.(type) {
	case nil:
		return append(out, constNil)
	case bool:
		out = append(out, constBool)
		if v {
			return append(out, 1)
		}
		return append(out, 0)
	case int64:
		out = append(out, constInt)
		return appendU64(out, uint64(v))
	case float64:
		out = append(out, constFloat)
		return appendU64(out, math.Float64bits(v))
	case string:
		out = append(out, constString)
		out = appendU32(out, uint32(len(v)))
		return append(out, v...)
	}
	// enums and other structured constants are stored via their
	// printed form; the loader re-interns them.
	s := fmt.Sprint(k)
	out = append(out, constString)
	out = appendU32(out, uint32(len(s)))
	return append(out, s...)
}

func appendU32(out []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(out, b[:]...)
}

func appendU64(out []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(out, b[:]...)
}
