package code

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry is the address-ordered index from live code regions to their
// owning modules. Writers (Insert/Remove) serialize on an internal mutex;
// Lookup is lock-free and allocation-free against an atomically published
// snapshot, so it may run concurrently with any writer and reentrantly
// from a synchronous fault handler.
type Registry struct {
	mu   sync.Mutex // serializes writers only; never touched by Lookup
	snap atomic.Pointer[snapshot]
	gen  atomic.Uint64
	log  *slog.Logger
}

// Hit is a successful lookup: the owning module and where inside the owning
// region the address fell.
type Hit struct {
	Module *ModuleRecord
	Region Region
	Offset uint64 // pc - Region.Start
}

// Stats reports registry occupancy. Generation counts total mutations
// (inserts and removes) since creation.
type Stats struct {
	Modules    int
	Regions    int
	Generation uint64
}

// NewRegistry returns an empty registry. A nil logger falls back to
// slog.Default; the logger is only used on non-fatal anomaly paths
// (double-remove), never during Lookup.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{log: logger}
	r.snap.Store(&snapshot{})
	return r
}

// global is the one sanctioned process-wide instance; see the package
// comment. Created eagerly so Global is safe from any context.
var global = NewRegistry(nil)

// Global returns the process-wide registry used for fault and backtrace
// attribution. It lives for the life of the process and needs no teardown.
func Global() *Registry { return global }

// Insert registers every region of rec as one atomic unit. Either all of
// the module's regions become visible to subsequent lookups or none do.
//
// A conflict with a live registration returns ErrAddressConflict, which
// signals corruption in the executable-memory allocator: callers must fail
// the compilation that produced rec rather than use the module, and must
// not retry. On success the registry takes ownership of rec until Remove.
func (r *Registry) Insert(rec *ModuleRecord) error {
	if rec == nil || len(rec.Regions) == 0 {
		return fmt.Errorf("%w: empty region set", ErrInvalidRegion)
	}
	// Sort a private copy: rec.Regions keeps the compiler's section order
	// (text first), which symbolization depends on.
	sorted := make([]Region, len(rec.Regions))
	copy(sorted, rec.Regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i, reg := range sorted {
		if !reg.valid() {
			return fmt.Errorf("%w: [%#x,%#x)", ErrInvalidRegion, reg.Start, reg.End)
		}
		if i > 0 && sorted[i-1].End > reg.Start {
			return fmt.Errorf("%w: module %d regions [%#x,%#x) and [%#x,%#x) self-overlap",
				ErrAddressConflict, rec.ID,
				sorted[i-1].Start, sorted[i-1].End, reg.Start, reg.End)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	for _, e := range cur.entries {
		if e.rec.ID == rec.ID {
			return fmt.Errorf("%w: module %d", ErrDuplicateModule, rec.ID)
		}
	}
	for _, reg := range sorted {
		if conflict, ok := cur.overlapping(reg); ok {
			return fmt.Errorf("%w: new [%#x,%#x) overlaps [%#x,%#x) owned by module %d",
				ErrAddressConflict, reg.Start, reg.End,
				conflict.region.Start, conflict.region.End, conflict.rec.ID)
		}
	}

	gen := r.gen.Add(1)
	rec.Generation = gen
	r.snap.Store(cur.withRegions(sorted, rec, gen))
	return nil
}

// Remove withdraws every region owned by id as one atomic unit and reports
// whether anything was removed. An unknown id is a caller bug (double
// unregistration); it is logged and counted as false but deliberately not
// fatal, since it cannot corrupt registry state.
//
// Once Remove returns, the regions are absent from every snapshot taken
// afterwards, so the caller may release the backing memory.
func (r *Registry) Remove(id ModuleID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	next, found := cur.withoutModule(id, r.gen.Add(1))
	if !found {
		r.log.Warn("code: remove of unregistered module", "module", uint64(id))
		return false
	}
	r.snap.Store(next)
	return true
}

// Lookup resolves pc to its owning module. It never blocks, never
// allocates, and never fails: an address not covered by any live region
// (host code, freed code, arbitrary memory) reports ok=false.
func (r *Registry) Lookup(pc uintptr) (Hit, bool) {
	s := r.snap.Load()
	i := s.find(pc)
	if i < 0 {
		return Hit{}, false
	}
	e := s.entries[i]
	return Hit{Module: e.rec, Region: e.region, Offset: uint64(pc - e.region.Start)}, true
}

// Stats returns current occupancy from the latest snapshot.
func (r *Registry) Stats() Stats {
	s := r.snap.Load()
	return Stats{Modules: s.modules, Regions: len(s.entries), Generation: s.gen}
}

// overlapping returns the first live entry sharing any address with reg.
func (s *snapshot) overlapping(reg Region) (entry, bool) {
	// The entry at or before reg.Start and the one after are the only
	// candidates in a sorted non-overlapping table.
	at := s.insertionPoint(reg.Start)
	if at > 0 && s.entries[at-1].region.Overlaps(reg) {
		return s.entries[at-1], true
	}
	if at < len(s.entries) && s.entries[at].region.Overlaps(reg) {
		return s.entries[at], true
	}
	return entry{}, false
}
