// Package bundle implements the standalone executable bundler:
// detecting and parsing an index appended to the host executable, and
// synthesizing the startup argument vector. All multi-byte index fields
// are little-endian.
package bundle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Magic is the 4-byte trailer identifying a bundled executable.
const Magic = "LUSB"

const trailerSize = 8 // 4-byte index_size + 4-byte magic

// FileEntry is one bundled module.
type FileEntry struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Index is the parsed footer.
type Index struct {
	Version    byte
	Entrypoint string
	Args       []string
	Files      []FileEntry

	// DataOffset is the computed byte offset into the host binary where
	// the bytecode blob begins; HostPath is the binary's own path.
	DataOffset int64
	HostPath   string
	indexSize  int64
}

// ErrNoBundle is returned (not wrapped with detail) when no bundle is
// present; detection failure is silent.
var ErrNoBundle = errors.New("bundle: not present")

// Detect checks that path is at least trailerSize bytes long, reads its
// last 4 bytes, and reports whether they are the bundle magic.
func Detect(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return false, err
	}
	if fi.Size() < trailerSize {
		return false, nil
	}
	tail := make([]byte, 4)
	if _, err := f.ReadAt(tail, fi.Size()-4); err != nil {
		return false, err
	}
	return string(tail) == Magic, nil
}

// Load parses the bundle appended to path. Callers should treat any
// non-nil error as ErrNoBundle-equivalent and continue without a
// bundle; the raw parse error is only interesting to tests.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size < trailerSize {
		return nil, ErrNoBundle
	}

	trailer := make([]byte, trailerSize)
	if _, err := f.ReadAt(trailer, size-trailerSize); err != nil {
		return nil, err
	}
	if string(trailer[4:]) != Magic {
		return nil, ErrNoBundle
	}
	indexSize := int64(binary.LittleEndian.Uint32(trailer[:4]))
	if indexSize <= 0 || indexSize > size-trailerSize {
		return nil, fmt.Errorf("bundle: invalid index size %d", indexSize)
	}

	indexStart := size - trailerSize - indexSize
	buf := make([]byte, indexSize)
	if _, err := f.ReadAt(buf, indexStart); err != nil {
		return nil, err
	}

	idx, totalFileBytes, err := parseIndex(buf)
	if err != nil {
		return nil, err
	}
	idx.HostPath = path
	idx.indexSize = indexSize
	idx.DataOffset = indexStart - totalFileBytes
	if idx.DataOffset < 0 {
		return nil, fmt.Errorf("bundle: computed negative data offset")
	}
	return idx, nil
}

func parseIndex(buf []byte) (*Index, int64, error) {
	r := &cursor{buf: buf}
	version, err := r.byte_()
	if err != nil {
		return nil, 0, err
	}
	numArgs, err := r.u16()
	if err != nil {
		return nil, 0, err
	}
	numFiles, err := r.u16()
	if err != nil {
		return nil, 0, err
	}
	entrypointLen, err := r.u16()
	if err != nil {
		return nil, 0, err
	}
	entrypoint, err := r.str(int(entrypointLen))
	if err != nil {
		return nil, 0, err
	}

	idx := &Index{Version: version, Entrypoint: entrypoint}
	for i := 0; i < int(numArgs); i++ {
		n, err := r.u16()
		if err != nil {
			return nil, 0, err
		}
		s, err := r.str(int(n))
		if err != nil {
			return nil, 0, err
		}
		idx.Args = append(idx.Args, s)
	}

	var total int64
	for i := 0; i < int(numFiles); i++ {
		n, err := r.u16()
		if err != nil {
			return nil, 0, err
		}
		name, err := r.str(int(n))
		if err != nil {
			return nil, 0, err
		}
		off, err := r.u32()
		if err != nil {
			return nil, 0, err
		}
		sz, err := r.u32()
		if err != nil {
			return nil, 0, err
		}
		idx.Files = append(idx.Files, FileEntry{Name: name, Offset: off, Size: sz})
		total += int64(sz)
	}
	return idx, total, nil
}

// GetFile reads one bundled module's bytecode, seeking to DataOffset +
// entry.Offset and reading entry.Size bytes.
func (idx *Index) GetFile(name string) ([]byte, error) {
	for _, e := range idx.Files {
		if e.Name == name {
			f, err := os.Open(idx.HostPath)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			buf := make([]byte, e.Size)
			if _, err := f.ReadAt(buf, idx.DataOffset+int64(e.Offset)); err != nil {
				return nil, err
			}
			return buf, nil
		}
	}
	return nil, fmt.Errorf("bundle: no such module %q", name)
}

// SynthesizeArgv builds the startup argument vector: argv[0], preserved args, "--", entrypoint name,
// then the user's own runtime args.
func (idx *Index) SynthesizeArgv(argv0 string, userArgs []string) []string {
	out := []string{argv0}
	out = append(out, idx.Args...)
	out = append(out, "--", idx.Entrypoint)
	out = append(out, userArgs...)
	return out
}

// ---- writer side ----

// Writer builds a bundle footer to append to a copy of the host binary.
type Writer struct {
	Version    byte
	Entrypoint string
	Args       []string
	files      []FileEntry
	blob       []byte
}

func NewWriter(version byte, entrypoint string, args []string) *Writer {
	return &Writer{Version: version, Entrypoint: entrypoint, Args: args}
}

// AddFile appends a module's compiled bytecode to the blob, recording
// its offset/size for the index.
func (w *Writer) AddFile(name string, bytecode []byte) {
	w.files = append(w.files, FileEntry{Name: name, Offset: uint32(len(w.blob)), Size: uint32(len(bytecode))})
	w.blob = append(w.blob, bytecode...)
}

// WriteTo writes [host binary bytes][blob][index][index_size][magic]
// to out.
func (w *Writer) WriteTo(out io.Writer, hostBinary io.Reader) error {
	if _, err := io.Copy(out, hostBinary); err != nil {
		return err
	}
	if _, err := out.Write(w.blob); err != nil {
		return err
	}

	index := w.buildIndex()
	if _, err := out.Write(index); err != nil {
		return err
	}
	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint32(trailer[:4], uint32(len(index)))
	copy(trailer[4:], Magic)
	_, err := out.Write(trailer[:])
	return err
}

func (w *Writer) buildIndex() []byte {
	var buf []byte
	buf = append(buf, w.Version)
	buf = appendU16(buf, uint16(len(w.Args)))
	buf = appendU16(buf, uint16(len(w.files)))
	buf = appendU16(buf, uint16(len(w.Entrypoint)))
	buf = append(buf, w.Entrypoint...)
	for _, a := range w.Args {
		buf = appendU16(buf, uint16(len(a)))
		buf = append(buf, a...)
	}
	for _, f := range w.files {
		buf = appendU16(buf, uint16(len(f.Name)))
		buf = append(buf, f.Name...)
		buf = appendU32(buf, f.Offset)
		buf = appendU32(buf, f.Size)
	}
	return buf
}

func appendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// ---- bounds-checked little-endian cursor ----

type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) byte_() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, fmt.Errorf("bundle: truncated index")
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) u16() (uint16, error) {
	if c.pos+2 > len(c.buf) {
		return 0, fmt.Errorf("bundle: truncated index")
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if c.pos+4 > len(c.buf) {
		return 0, fmt.Errorf("bundle: truncated index")
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) str(n int) (string, error) {
	if c.pos+n > len(c.buf) {
		return "", fmt.Errorf("bundle: truncated index")
	}
	s := string(c.buf[c.pos : c.pos+n])
	c.pos += n
	return s, nil
}
