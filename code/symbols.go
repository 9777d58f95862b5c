package code

import "sort"

// FuncInfo describes one compiled function inside a module's text region.
// Start and End are byte offsets relative to the start of the text region
// (the module's first registered region); End is exclusive.
type FuncInfo struct {
	Name  string
	Start uint64
	End   uint64
}

// SymbolTable is the per-module unwind/symbol handle: an offset-sorted
// function table supporting logarithmic offset-to-function lookup. It is
// built once at registration and immutable afterwards, so it is safe to
// consult from fault-handling contexts.
type SymbolTable struct {
	funcs []FuncInfo // sorted by Start, non-overlapping
}

// NewSymbolTable builds a table from the given functions. The input is
// copied and sorted by start offset; overlapping entries are an upstream
// compiler bug and are kept as-is (first match wins on lookup).
func NewSymbolTable(funcs []FuncInfo) *SymbolTable {
	sorted := make([]FuncInfo, len(funcs))
	copy(sorted, funcs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &SymbolTable{funcs: sorted}
}

// FuncAt returns the function covering the given text-relative offset.
func (t *SymbolTable) FuncAt(off uint64) (FuncInfo, bool) {
	if t == nil || len(t.funcs) == 0 {
		return FuncInfo{}, false
	}
	// Binary search for the last function with Start <= off, then confirm
	// off < End. Written out by hand so the lookup path stays allocation
	// free even if a sort.Search closure would otherwise escape.
	lo, hi := 0, len(t.funcs)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if t.funcs[mid].Start <= off {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return FuncInfo{}, false
	}
	f := t.funcs[lo-1]
	if off >= f.End {
		return FuncInfo{}, false
	}
	return f, true
}

// Len returns the number of functions in the table.
func (t *SymbolTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.funcs)
}
