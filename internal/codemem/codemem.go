// Package codemem provides page-granular executable-memory mappings for
// compiled code. It is deliberately not an allocator: each module gets its
// own private mapping, so releasing one module's memory never coordinates
// with another's. The region registry tracks the resulting address ranges;
// this package only produces and releases them.
package codemem

import (
	"errors"
	"unsafe"
)

var errUnmapped = errors.New("codemem: mapping already released")

// Mapping is one live anonymous mapping holding a module's generated code.
// used is the caller-requested length; the mapping itself is page-rounded.
type Mapping struct {
	data []byte
	used int
}

// Bytes returns the writable code window (the requested length, not the
// page-rounded mapping). Invalid after Unmap.
func (m *Mapping) Bytes() []byte {
	if m.data == nil {
		return nil
	}
	return m.data[:m.used]
}

// Start returns the first mapped address, or 0 after Unmap.
func (m *Mapping) Start() uintptr {
	if m.data == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(&m.data[0]))
}

// End returns the exclusive end of the code window, or 0 after Unmap.
func (m *Mapping) End() uintptr {
	if m.data == nil {
		return 0
	}
	return m.Start() + uintptr(m.used)
}

// Len returns the code window length in bytes.
func (m *Mapping) Len() int { return m.used }
