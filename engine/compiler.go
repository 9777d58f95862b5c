package engine

import "github.com/tegmentum/wasmtime/code"

// CompiledCode is a compiler's finished output, laid out but not yet placed
// in memory. Sections[0] is the text section; any further sections (e.g.
// trampolines or constant islands) become additional regions owned by the
// same module. Funcs carries text-relative function spans for fault
// attribution and may be empty.
type CompiledCode struct {
	Sections [][]byte
	Funcs    []code.FuncInfo
}

// Compiler turns module source into machine code. The placement of that
// code in memory, and the tracking of the resulting address ranges, is the
// engine's job; compilers only decide the bytes.
type Compiler interface {
	Compile(source []byte) (CompiledCode, error)
}

// CopyCompiler treats the source as already-generated code and emits it as
// a single text section with no function table. It exists for hosts that
// bring precompiled artifacts and for tests; it performs no validation of
// the bytes.
type CopyCompiler struct{}

func (CopyCompiler) Compile(source []byte) (CompiledCode, error) {
	text := make([]byte, len(source))
	copy(text, source)
	return CompiledCode{Sections: [][]byte{text}}, nil
}

// StaticCompiler ignores its source and always emits Code. Useful when the
// caller has already produced a full CompiledCode, function table included.
type StaticCompiler struct {
	Code CompiledCode
}

func (c StaticCompiler) Compile([]byte) (CompiledCode, error) {
	return c.Code, nil
}
