// Package resolve translates raw program-counter addresses into compiled
// module and function attributions, for trap diagnostics and backtraces.
// It is a read-only consumer of the code registry and is safe to call from
// any goroutine, including synchronous fault-recovery paths.
package resolve

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/tegmentum/wasmtime/code"
)

// Frame is one attributed program counter.
type Frame struct {
	PC         uintptr
	ModuleID   code.ModuleID
	ModuleName string

	// Func is the NFC-normalized function name, empty when the module
	// carries no symbol table entry for the offset.
	Func string

	// FuncOffset is pc relative to the function start; only meaningful
	// when Func is set.
	FuncOffset uint64

	// RegionOffset is pc relative to the owning region's start.
	RegionOffset uint64
}

// Resolver attributes addresses against one registry.
type Resolver struct {
	reg *code.Registry
}

// New returns a resolver over reg; nil selects the process-wide registry.
func New(reg *code.Registry) *Resolver {
	if reg == nil {
		reg = code.Global()
	}
	return &Resolver{reg: reg}
}

// ResolvePC attributes a single address. An address owned by no tracked
// module (host code, freed code) reports ok=false; that is an expected
// outcome, not an error.
func (r *Resolver) ResolvePC(pc uintptr) (Frame, bool) {
	hit, ok := r.reg.Lookup(pc)
	if !ok {
		return Frame{}, false
	}
	f := Frame{
		PC:           pc,
		ModuleID:     hit.Module.ID,
		ModuleName:   hit.Module.Name,
		RegionOffset: hit.Offset,
	}
	// Symbols cover the text region only; auxiliary regions attribute to
	// the module without a function.
	if hit.Region == hit.Module.Text() {
		if fn, ok := hit.Module.Symbols.FuncAt(hit.Offset); ok {
			// Wasm name-section strings are arbitrary UTF-8; normalize so
			// the same function never shows under two byte forms.
			f.Func = norm.NFC.String(fn.Name)
			f.FuncOffset = hit.Offset - fn.Start
		}
	}
	return f, true
}

// Backtrace attributes each pc that resolves to a tracked module, in input
// order, dropping host-side frames.
func (r *Resolver) Backtrace(pcs []uintptr) []Frame {
	frames := make([]Frame, 0, len(pcs))
	for _, pc := range pcs {
		if f, ok := r.ResolvePC(pc); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// String renders a frame the way trap messages print locations.
func (f Frame) String() string {
	name := f.ModuleName
	if name == "" {
		name = fmt.Sprintf("module#%d", f.ModuleID)
	}
	if f.Func != "" {
		return fmt.Sprintf("%s!%s+%#x", name, f.Func, f.FuncOffset)
	}
	return fmt.Sprintf("%s+%#x", name, f.RegionOffset)
}
