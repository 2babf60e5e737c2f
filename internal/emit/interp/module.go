package interp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dalec/dalec/internal/emit"
)

// irModule is the completed output of an irBuilder.
type irModule struct {
	name    string
	funcs   map[string]*irFunc
	globals map[string]*irGlobal
	order   []string // deterministic FuncNames order
}

func (m *irModule) Name() string { return m.name }

func (m *irModule) FuncNames() []string {
	cp := make([]string, len(m.order))
	copy(cp, m.order)
	return cp
}

func (m *irModule) Link(other emit.Module) error {
	o, ok := other.(*irModule)
	if !ok {
		return fmt.Errorf("interp: cannot link a non-interp module into %q", m.name)
	}
	for name, fn := range o.funcs {
		if existing, dup := m.funcs[name]; dup && existing != fn {
			return fmt.Errorf("interp: symbol %q defined in both %q and %q", name, m.name, o.name)
		}
		if _, already := m.funcs[name]; !already {
			m.funcs[name] = fn
			m.order = append(m.order, name)
		}
	}
	for name, g := range o.globals {
		if _, already := m.globals[name]; !already {
			m.globals[name] = g
		}
	}
	return nil
}

// WriteBitcode writes a minimal length-delimited listing of the
// module's function symbols — a placeholder wire format, since binary
// layout of a real backend's object code is explicitly out of scope
// (spec.md Non-goals); this only needs to round-trip enough for a
// future on-disk cache of interp modules, not to describe machine code.
func (m *irModule) WriteBitcode(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(m.order))); err != nil {
		return err
	}
	for _, name := range m.order {
		b := []byte(name)
		if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}
