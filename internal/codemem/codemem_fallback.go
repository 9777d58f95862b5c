//go:build !unix

package codemem

import "fmt"

// Map on platforms without mmap support falls back to an ordinary heap
// allocation. Addresses are still stable and unique while the mapping is
// held, which is all the registry needs; the bytes are simply never made
// executable.
func Map(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("codemem: invalid mapping size %d", size)
	}
	return &Mapping{data: make([]byte, size), used: size}, nil
}

// Seal is a no-op in the fallback; there is no page protection to change.
func (m *Mapping) Seal() error {
	if m.data == nil {
		return errUnmapped
	}
	return nil
}

// Unmap drops the backing slice. Double-unmap is a no-op.
func (m *Mapping) Unmap() error {
	m.data = nil
	return nil
}
