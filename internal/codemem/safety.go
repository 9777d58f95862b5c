package codemem

import (
	"fmt"
	"runtime/debug"
)

// Verify reads through every page of the mapping to confirm the placed
// code is actually accessible before its range is registered for fault
// attribution. A mapping that faults here would otherwise first be noticed
// inside generated code, where the report would blame the module instead
// of the mapping. SetPanicOnFault converts any SIGBUS/SIGSEGV into a
// recoverable panic.
func (m *Mapping) Verify() (retErr error) {
	data := m.Bytes()
	if len(data) == 0 {
		return errUnmapped
	}

	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("codemem: fault reading mapped code at %#x: %v", m.Start(), r)
		}
	}()

	const pageSize = 4096
	var sink byte
	for i := 0; i < len(data); i += pageSize {
		sink ^= data[i]
	}
	sink ^= data[len(data)-1]
	_ = sink
	return nil
}
