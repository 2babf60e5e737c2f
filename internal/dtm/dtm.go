// Package dtm implements the Module/DTM Packager (spec.md §4.8 "C9"):
// serializing a compiled Unit's Context to a length-delimited binary
// DTM file plus a human-readable YAML debug sidecar, import-search
// resolution, once-tag-driven trimming, and symbol-list filtering.
// There is no existing container format in the retrieval pack (no
// protobuf/msgpack/gob usage anywhere in it) for spec.md's bespoke
// "byte stream written/read by a length-delimited serializer" — this
// is exactly the shape stdlib `encoding/binary` exists for, so the
// wire codec is built directly on it rather than inventing or
// borrowing a general-purpose serialization dependency the pack never
// reaches for either.
package dtm

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/types"
)

// DTM is the in-memory form of a compiled unit's packaged module
// (spec.md §4.8 items 1-5).
type DTM struct {
	Context          *ctx.Context
	OnceTags         []string
	RequiredModules  []string
	CTO              bool
	Typemap          map[string]string
}

// Write serializes d to w per spec.md §6 "DTM file format": Context,
// once-tag set, required-modules set, cto flag, typemap — each string
// and nested table length-prefixed as a uint32.
func Write(w io.Writer, d *DTM) error {
	if err := writeNamespace(w, d.Context.Root); err != nil {
		return fmt.Errorf("dtm: writing context: %w", err)
	}
	if err := writeStrings(w, d.OnceTags); err != nil {
		return fmt.Errorf("dtm: writing once-tags: %w", err)
	}
	if err := writeStrings(w, d.RequiredModules); err != nil {
		return fmt.Errorf("dtm: writing required-modules: %w", err)
	}
	if err := writeBool(w, d.CTO); err != nil {
		return fmt.Errorf("dtm: writing cto flag: %w", err)
	}
	if err := writeStringMap(w, d.Typemap); err != nil {
		return fmt.Errorf("dtm: writing typemap: %w", err)
	}
	return nil
}

// Read deserializes a DTM written by Write. The returned Context's
// declaration tables carry only the wire-representable fields (names,
// linkage, once-tags, and the Types of parameters, returns, variables,
// struct fields and enums, written structurally and re-interned into
// reg); IR handles are left zero and must be populated by
// ctx.RegetPointers once the sibling .bc/.so is loaded and linked.
func Read(r io.Reader, reg *types.Registry) (*DTM, error) {
	root := ctx.NewNamespace("", nil)
	if err := readNamespace(r, root, reg); err != nil {
		return nil, fmt.Errorf("dtm: reading context: %w", err)
	}
	onceTags, err := readStrings(r)
	if err != nil {
		return nil, fmt.Errorf("dtm: reading once-tags: %w", err)
	}
	required, err := readStrings(r)
	if err != nil {
		return nil, fmt.Errorf("dtm: reading required-modules: %w", err)
	}
	cto, err := readBool(r)
	if err != nil {
		return nil, fmt.Errorf("dtm: reading cto flag: %w", err)
	}
	typemap, err := readStringMap(r)
	if err != nil {
		return nil, fmt.Errorf("dtm: reading typemap: %w", err)
	}
	c := &ctx.Context{Root: root, Types: reg}
	return &DTM{Context: c, OnceTags: onceTags, RequiredModules: required, CTO: cto, Typemap: typemap}, nil
}

func writeBool(w io.Writer, b bool) error {
	var v byte
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

func readBool(r io.Reader) (bool, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false, err
	}
	return buf[0] != 0, nil
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func binaryWriteInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func binaryReadInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeStrings(w io.Writer, ss []string) error {
	if err := writeUint32(w, uint32(len(ss))); err != nil {
		return err
	}
	for _, s := range ss {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStrings(r io.Reader) ([]string, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		out[i], err = readString(r)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeStringMap(w io.Writer, m map[string]string) error {
	if err := writeUint32(w, uint32(len(m))); err != nil {
		return err
	}
	for k, v := range m {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readStringMap(r io.Reader) (map[string]string, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, n)
	for i := uint32(0); i < n; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readString(r)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func writeLinkage(w io.Writer, l ctx.Linkage) error {
	var buf [1]byte
	buf[0] = byte(l)
	_, err := w.Write(buf[:])
	return err
}

func readLinkage(r io.Reader) (ctx.Linkage, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return ctx.Linkage(buf[0]), nil
}
