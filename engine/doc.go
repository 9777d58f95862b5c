// Package engine compiles module sources into registered, executable
// compiled modules.
//
// An Engine holds compilation configuration and produces Modules; it owns
// no module memory. Each Module exclusively owns its executable mappings:
// on creation it registers the mapped ranges with the code registry, and
// when its last owner closes it, it unregisters them and only then releases
// the memory. Callers must keep the Engine alive for as long as any Module
// it produced; the Engine never reaches back into its modules, so this is a
// documented ownership contract rather than a runtime-checked one.
package engine
