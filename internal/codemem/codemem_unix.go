//go:build unix

package codemem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Map allocates an anonymous private mapping of at least size bytes,
// rounded up to whole pages, writable so the caller can copy generated
// code in. Call Seal before exposing the range as executable code.
func Map(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("codemem: invalid mapping size %d", size)
	}
	page := unix.Getpagesize()
	rounded := (size + page - 1) &^ (page - 1)
	data, err := unix.Mmap(-1, 0, rounded,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("codemem: mmap %d bytes: %w", rounded, err)
	}
	return &Mapping{data: data, used: size}, nil
}

// Seal switches the mapping to read+execute. After Seal the bytes must not
// be written again.
func (m *Mapping) Seal() error {
	if m.data == nil {
		return errUnmapped
	}
	if err := unix.Mprotect(m.data, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("codemem: mprotect: %w", err)
	}
	return nil
}

// Unmap releases the mapping. Double-unmap is a no-op, matching how the
// rest of the codebase treats cleanup funcs.
func (m *Mapping) Unmap() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("codemem: munmap: %w", err)
	}
	return nil
}
