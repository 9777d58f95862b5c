package code

import "sync/atomic"

// nextModuleID feeds ModuleID allocation. IDs start at 1 so the zero value
// is never a live module.
var nextModuleID atomic.Uint64

// ModuleRecord is the per-module metadata held by the registry. It is owned
// exclusively by its module, inserted as a unit when the module's memory is
// mapped and populated, and removed as a unit when the module's last owner
// drops it. After insertion the record must be treated as immutable; readers
// on fault paths access it without synchronization.
type ModuleRecord struct {
	// ID is the module's process-unique identifier.
	ID ModuleID

	// Name is a diagnostic label for fault attribution. May be empty.
	Name string

	// Regions are the executable ranges the module owns, in the compiler's
	// section order. Regions[0] is the text region; symbol offsets are
	// relative to its start.
	Regions []Region

	// Generation is the registry mutation count at the time of insertion.
	// Set by Insert.
	Generation uint64

	// Symbols resolves text-relative offsets to functions. May be nil when
	// the compiler emitted no function table.
	Symbols *SymbolTable
}

// NewModuleRecord allocates a record with a fresh id. regions is copied;
// the caller keeps ownership of its slice.
func NewModuleRecord(name string, regions []Region, symbols *SymbolTable) *ModuleRecord {
	rs := make([]Region, len(regions))
	copy(rs, regions)
	return &ModuleRecord{
		ID:      ModuleID(nextModuleID.Add(1)),
		Name:    name,
		Regions: rs,
		Symbols: symbols,
	}
}

// Text returns the module's text region.
func (r *ModuleRecord) Text() Region {
	if len(r.Regions) == 0 {
		return Region{}
	}
	return r.Regions[0]
}
