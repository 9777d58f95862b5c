// Package code maintains the process-wide index of compiled-code regions.
//
// # Overview
//
// Every successfully compiled module owns one or more ranges of executable
// memory. This package maps raw program-counter addresses back to the module
// that owns them, so that faults and stack frames occurring inside generated
// code can be attributed to source-level functions. Registrations are made
// when a module's memory is mapped and populated, and withdrawn when the
// module's last owner drops it, immediately before the memory is released.
//
// # Snapshot design
//
// Lookup may be invoked from a synchronous fault context on a thread that is
// concurrently inside an unrelated registry write elsewhere in the process,
// so the read path can never take the writers' lock. The registry instead
// keeps its sorted region table in an immutable snapshot published through
// an atomic pointer. Writers serialize on a mutex, build a fresh table, and
// swap the pointer; readers load the pointer once and binary-search a fully
// consistent (possibly slightly stale) view. Superseded snapshots stay valid
// for any reader still holding them and are collected once unreferenced.
//
// # The global registry
//
// Fault handlers have no call context through which a registry reference
// could be threaded, so the package exposes one sanctioned process-wide
// instance via Global. All other access is through explicit *Registry
// values; no other mutable package state exists.
package code
