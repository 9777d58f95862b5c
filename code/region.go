package code

// ModuleID identifies one registered module for the life of the process.
// IDs are allocated from a monotonic counter and never reused, so a stale
// id held after a module is dropped can never alias a newer module.
type ModuleID uint64

// Region is a contiguous [Start, End) range of executable memory owned by
// exactly one module. End is exclusive.
type Region struct {
	Start uintptr
	End   uintptr
}

// Size returns the length of the region in bytes.
func (r Region) Size() uintptr { return r.End - r.Start }

// Contains reports whether pc falls inside the region.
func (r Region) Contains(pc uintptr) bool { return pc >= r.Start && pc < r.End }

// Overlaps reports whether the two regions share any address.
func (r Region) Overlaps(o Region) bool { return r.Start < o.End && o.Start < r.End }

// valid reports whether the region is well-formed (non-empty, ordered).
func (r Region) valid() bool { return r.Start < r.End }
