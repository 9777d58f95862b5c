package code

// entry pairs one region with its owning record inside a snapshot.
type entry struct {
	region Region
	rec    *ModuleRecord
}

// snapshot is one immutable published version of the registry: every live
// region, sorted by start address, plus the mutation generation that
// produced it. Snapshots are never modified after publication; writers
// build a replacement and swap the registry's pointer.
type snapshot struct {
	entries []entry
	gen     uint64
	modules int
}

// find returns the index of the entry covering pc, or -1. Plain binary
// search over start addresses with an end-bound check; no allocation, no
// locking, safe from fault-handling contexts.
func (s *snapshot) find(pc uintptr) int {
	lo, hi := 0, len(s.entries)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if s.entries[mid].region.Start <= pc {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return -1
	}
	if pc >= s.entries[lo-1].region.End {
		return -1
	}
	return lo - 1
}

// insertionPoint returns the index at which a region starting at start
// would be inserted to keep the table sorted.
func (s *snapshot) insertionPoint(start uintptr) int {
	lo, hi := 0, len(s.entries)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if s.entries[mid].region.Start < start {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// withRegions returns a new snapshot containing every existing entry plus
// regions owned by rec. The caller has already sorted regions by start and
// validated them as conflict-free against this snapshot.
func (s *snapshot) withRegions(regions []Region, rec *ModuleRecord, gen uint64) *snapshot {
	merged := make([]entry, 0, len(s.entries)+len(regions))
	i := 0
	for _, r := range regions {
		at := s.insertionPoint(r.Start)
		merged = append(merged, s.entries[i:at]...)
		merged = append(merged, entry{region: r, rec: rec})
		i = at
	}
	merged = append(merged, s.entries[i:]...)
	return &snapshot{entries: merged, gen: gen, modules: s.modules + 1}
}

// withoutModule returns a new snapshot with every region owned by id
// dropped, and reports whether any were present.
func (s *snapshot) withoutModule(id ModuleID, gen uint64) (*snapshot, bool) {
	kept := make([]entry, 0, len(s.entries))
	found := false
	for _, e := range s.entries {
		if e.rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return s, false
	}
	return &snapshot{entries: kept, gen: gen, modules: s.modules - 1}, true
}
