// Package container implements a small binary file format for named
// matrices and integer/boolean/string vectors: the persistence layer for
// raw EEG input, the preprocessed signal bundle, channel info, and feature
// matrices. Sections are length-framed so readers can skip unknown names,
// and matrices round-trip through gonum's binary marshaling with shape and
// dtype preserved. Empty matrices are legal and round-trip as nil.
package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
)

const magic = "HFOC"

const (
	kindMatrix byte = iota + 1
	kindIntVec
	kindBoolVec
	kindStringVec
	kindScalar
)

type section struct {
	kind    byte
	payload []byte
}

// Writer accumulates named sections and writes them out on Close.
type Writer struct {
	w        io.Writer
	order    []string
	sections map[string]section
	err      error
}

// NewWriter returns a Writer targeting w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, sections: make(map[string]section)}
}

func (w *Writer) put(name string, kind byte, payload []byte) {
	if w.err != nil {
		return
	}
	if _, dup := w.sections[name]; dup {
		w.err = fmt.Errorf("container: duplicate section %q", name)
		return
	}
	w.order = append(w.order, name)
	w.sections[name] = section{kind: kind, payload: payload}
}

// PutMatrix adds a named matrix. A nil matrix is stored as empty.
func (w *Writer) PutMatrix(name string, m *mat.Dense) {
	if m == nil {
		w.put(name, kindMatrix, nil)
		return
	}
	payload, err := m.MarshalBinary()
	if err != nil {
		w.err = fmt.Errorf("container: marshal matrix %q: %w", name, err)
		return
	}
	w.put(name, kindMatrix, payload)
}

// PutIntVector adds a named integer vector.
func (w *Writer) PutIntVector(name string, v []int) {
	payload := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(payload[8*i:], uint64(int64(x)))
	}
	w.put(name, kindIntVec, payload)
}

// PutBoolVector adds a named boolean vector.
func (w *Writer) PutBoolVector(name string, v []bool) {
	payload := make([]byte, len(v))
	for i, x := range v {
		if x {
			payload[i] = 1
		}
	}
	w.put(name, kindBoolVec, payload)
}

// PutStringVector adds a named list of strings.
func (w *Writer) PutStringVector(name string, v []string) {
	var payload []byte
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(v)))
	payload = append(payload, scratch[:]...)
	for _, s := range v {
		binary.LittleEndian.PutUint32(scratch[:], uint32(len(s)))
		payload = append(payload, scratch[:]...)
		payload = append(payload, s...)
	}
	w.put(name, kindStringVec, payload)
}

// PutScalar adds a named float64 scalar.
func (w *Writer) PutScalar(name string, v float64) {
	var payload [8]byte
	binary.LittleEndian.PutUint64(payload[:], math.Float64bits(v))
	w.put(name, kindScalar, payload[:])
}

// Close writes the accumulated sections. The Writer must not be reused.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if _, err := w.w.Write([]byte(magic)); err != nil {
		return fmt.Errorf("container: write header: %w", err)
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(len(w.order))); err != nil {
		return fmt.Errorf("container: write header: %w", err)
	}
	for _, name := range w.order {
		s := w.sections[name]
		if err := binary.Write(w.w, binary.LittleEndian, uint16(len(name))); err != nil {
			return fmt.Errorf("container: write section %q: %w", name, err)
		}
		if _, err := w.w.Write([]byte(name)); err != nil {
			return fmt.Errorf("container: write section %q: %w", name, err)
		}
		if _, err := w.w.Write([]byte{s.kind}); err != nil {
			return fmt.Errorf("container: write section %q: %w", name, err)
		}
		if err := binary.Write(w.w, binary.LittleEndian, uint64(len(s.payload))); err != nil {
			return fmt.Errorf("container: write section %q: %w", name, err)
		}
		if _, err := w.w.Write(s.payload); err != nil {
			return fmt.Errorf("container: write section %q: %w", name, err)
		}
	}
	return nil
}

// File is a fully read container.
type File struct {
	sections map[string]section
}

// Read parses an entire container from r.
func Read(r io.Reader) (*File, error) {
	head := make([]byte, len(magic)+4)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("container: read header: %w", err)
	}
	if string(head[:len(magic)]) != magic {
		return nil, fmt.Errorf("container: bad magic %q", head[:len(magic)])
	}
	count := binary.LittleEndian.Uint32(head[len(magic):])

	f := &File{sections: make(map[string]section, count)}
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("container: read section header: %w", err)
		}
		nameBytes := make([]byte, int(nameLen)+1)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, fmt.Errorf("container: read section header: %w", err)
		}
		name := string(nameBytes[:nameLen])
		kind := nameBytes[nameLen]
		var payloadLen uint64
		if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
			return nil, fmt.Errorf("container: read section %q: %w", name, err)
		}
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("container: read section %q: %w", name, err)
		}
		f.sections[name] = section{kind: kind, payload: payload}
	}
	return f, nil
}

func (f *File) lookup(name string, kind byte) ([]byte, error) {
	s, ok := f.sections[name]
	if !ok {
		return nil, fmt.Errorf("container: missing field %q", name)
	}
	if s.kind != kind {
		return nil, fmt.Errorf("container: field %q has wrong kind", name)
	}
	return s.payload, nil
}

// Matrix returns a named matrix, nil if it was stored empty.
func (f *File) Matrix(name string) (*mat.Dense, error) {
	payload, err := f.lookup(name, kindMatrix)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, nil
	}
	var m mat.Dense
	if err := m.UnmarshalBinary(payload); err != nil {
		return nil, fmt.Errorf("container: unmarshal matrix %q: %w", name, err)
	}
	return &m, nil
}

// IntVector returns a named integer vector.
func (f *File) IntVector(name string) ([]int, error) {
	payload, err := f.lookup(name, kindIntVec)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(payload)/8)
	for i := range out {
		out[i] = int(int64(binary.LittleEndian.Uint64(payload[8*i:])))
	}
	return out, nil
}

// BoolVector returns a named boolean vector.
func (f *File) BoolVector(name string) ([]bool, error) {
	payload, err := f.lookup(name, kindBoolVec)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(payload))
	for i, b := range payload {
		out[i] = b != 0
	}
	return out, nil
}

// StringVector returns a named list of strings.
func (f *File) StringVector(name string) ([]string, error) {
	payload, err := f.lookup(name, kindStringVec)
	if err != nil {
		return nil, err
	}
	if len(payload) < 4 {
		return nil, fmt.Errorf("container: field %q truncated", name)
	}
	count := binary.LittleEndian.Uint32(payload)
	payload = payload[4:]
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(payload) < 4 {
			return nil, fmt.Errorf("container: field %q truncated", name)
		}
		l := binary.LittleEndian.Uint32(payload)
		payload = payload[4:]
		if uint32(len(payload)) < l {
			return nil, fmt.Errorf("container: field %q truncated", name)
		}
		out = append(out, string(payload[:l]))
		payload = payload[l:]
	}
	return out, nil
}

// Scalar returns a named float64 scalar.
func (f *File) Scalar(name string) (float64, error) {
	payload, err := f.lookup(name, kindScalar)
	if err != nil {
		return 0, err
	}
	if len(payload) != 8 {
		return 0, fmt.Errorf("container: field %q truncated", name)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(payload)), nil
}
