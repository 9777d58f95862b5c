package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tegmentum/wasmtime/code"
	"github.com/tegmentum/wasmtime/internal/codemem"
)

// ErrModuleClosed is returned by operations on a module whose last owner
// already closed it.
var ErrModuleClosed = errors.New("engine: module closed")

// Module is one compiled artifact together with the executable mappings it
// exclusively owns. A freshly created module is already registered; its
// regions answer registry lookups until the last owner calls Close, at
// which point the regions are unregistered strictly before the memory is
// released. There is no way to re-register a module or to unregister it
// partially.
type Module struct {
	eng      *Engine
	rec      *code.ModuleRecord
	mappings []*codemem.Mapping

	// refs counts owners (the creator plus any live instances). The owner
	// that drops it to zero runs teardown exactly once.
	refs atomic.Int64
}

// place maps every compiled section, copies the code in, seals the pages
// executable, and registers the regions as one unit. On any failure it
// unwinds all mappings and returns the cause; an insert failure in
// particular fails the whole compilation, per the registry contract.
func place(e *Engine, name string, compiled CompiledCode) (*Module, error) {
	mappings := make([]*codemem.Mapping, 0, len(compiled.Sections))
	regions := make([]code.Region, 0, len(compiled.Sections))
	release := func() {
		for _, mp := range mappings {
			if err := mp.Unmap(); err != nil {
				e.log.Warn("engine: unmap during unwind", "module", name, "error", err)
			}
		}
	}

	for _, section := range compiled.Sections {
		mp, err := codemem.Map(len(section))
		if err != nil {
			release()
			return nil, fmt.Errorf("engine: map code for %q: %w", name, err)
		}
		mappings = append(mappings, mp)
		copy(mp.Bytes(), section)
		if err := mp.Seal(); err != nil {
			release()
			return nil, fmt.Errorf("engine: seal code for %q: %w", name, err)
		}
		if err := mp.Verify(); err != nil {
			release()
			return nil, fmt.Errorf("engine: verify code for %q: %w", name, err)
		}
		regions = append(regions, code.Region{Start: mp.Start(), End: mp.End()})
	}

	rec := code.NewModuleRecord(name, regions, code.NewSymbolTable(compiled.Funcs))
	if err := e.registry.Insert(rec); err != nil {
		// Overlap here means the process address space can no longer be
		// trusted for fault attribution; surface it as a compilation
		// failure and hand nothing back.
		release()
		return nil, fmt.Errorf("engine: register %q: %w", name, err)
	}

	m := &Module{eng: e, rec: rec, mappings: mappings}
	m.refs.Store(1)
	return m, nil
}

// Name returns the module's diagnostic name.
func (m *Module) Name() string { return m.rec.Name }

// ID returns the module's process-unique id.
func (m *Module) ID() code.ModuleID { return m.rec.ID }

// Regions returns the registered regions, text first. The slice is owned by
// the module; callers must not modify it.
func (m *Module) Regions() []code.Region { return m.rec.Regions }

// Text returns the module's text region.
func (m *Module) Text() code.Region { return m.rec.Text() }

// retain adds an owner. It fails once the module is fully closed, so a
// racing Close cannot resurrect it.
func (m *Module) retain() error {
	for {
		n := m.refs.Load()
		if n == 0 {
			return ErrModuleClosed
		}
		if m.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Close drops one owner. The final drop unregisters the module's regions
// and then, only then, releases the backing memory, so the registry never
// claims freed pages: a Lookup racing with the final Close either sees the
// module fully live or not at all. Closing more times than the module was
// retained returns ErrModuleClosed.
func (m *Module) Close() error {
	for {
		n := m.refs.Load()
		if n == 0 {
			return ErrModuleClosed
		}
		if !m.refs.CompareAndSwap(n, n-1) {
			continue
		}
		if n > 1 {
			return nil
		}
		return m.teardown()
	}
}

// teardown runs exactly once, on the final Close.
func (m *Module) teardown() error {
	if !m.eng.registry.Remove(m.rec.ID) {
		// Unregistered twice somewhere; the registry already logged it and
		// its state is unaffected. Keep going and release the memory.
		m.eng.log.Warn("engine: module was not registered at teardown",
			"module", m.rec.Name, "id", uint64(m.rec.ID))
	}
	var firstErr error
	for _, mp := range m.mappings {
		if err := mp.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.eng.live.Add(-1)
	if firstErr != nil {
		return fmt.Errorf("engine: release %q: %w", m.rec.Name, firstErr)
	}
	return nil
}
