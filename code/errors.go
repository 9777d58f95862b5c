package code

import "errors"

var (
	// ErrAddressConflict indicates a new region overlaps memory already owned
	// by a live registration. This means the executable-memory allocator
	// handed out overlapping ranges; the registration (and the compilation
	// that produced it) cannot be trusted and must fail. It is never
	// recoverable by retrying.
	ErrAddressConflict = errors.New("code: region overlaps a live registration")

	// ErrInvalidRegion indicates a region with start >= end or an empty
	// region set was submitted for registration.
	ErrInvalidRegion = errors.New("code: invalid region")

	// ErrDuplicateModule indicates an Insert for a module id that is already
	// registered. Modules register exactly once.
	ErrDuplicateModule = errors.New("code: module already registered")
)
