package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tegmentum/wasmtime/code"
)

// DefaultMaxCodeSize bounds the total generated code accepted for one
// module. Large enough for any realistic module, small enough to catch a
// compiler emitting garbage lengths.
const DefaultMaxCodeSize = 64 << 20

var (
	// ErrEngineClosed is returned when compiling against a closed engine.
	ErrEngineClosed = errors.New("engine: engine closed")

	// ErrEmptyModule is returned when a compiler produces no code.
	ErrEmptyModule = errors.New("engine: compiler produced no code")

	// ErrCodeTooLarge is returned when generated code exceeds the
	// configured limit.
	ErrCodeTooLarge = errors.New("engine: generated code exceeds limit")
)

// Config is the compilation configuration an Engine is built from. The zero
// value is usable.
type Config struct {
	// Compiler generates code for NewModule. Nil selects CopyCompiler.
	Compiler Compiler

	// Registry receives region registrations. Nil selects the process-wide
	// registry, which is what production hosts want; tests use private
	// instances.
	Registry *code.Registry

	// MaxCodeSize caps total generated code per module. Zero selects
	// DefaultMaxCodeSize.
	MaxCodeSize int

	// Logger receives engine diagnostics. Nil selects slog.Default.
	Logger *slog.Logger
}

// Engine produces compiled modules. It holds configuration only: module
// memory is owned by the modules themselves. An Engine must outlive every
// Module it produced.
type Engine struct {
	compiler    Compiler
	registry    *code.Registry
	maxCodeSize int
	log         *slog.Logger

	live   atomic.Int64
	closed atomic.Bool
}

// New builds an engine from cfg, filling defaults for unset fields.
func New(cfg Config) *Engine {
	e := &Engine{
		compiler:    cfg.Compiler,
		registry:    cfg.Registry,
		maxCodeSize: cfg.MaxCodeSize,
		log:         cfg.Logger,
	}
	if e.compiler == nil {
		e.compiler = CopyCompiler{}
	}
	if e.registry == nil {
		e.registry = code.Global()
	}
	if e.maxCodeSize <= 0 {
		e.maxCodeSize = DefaultMaxCodeSize
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// NewModule compiles source, places the generated code in fresh executable
// mappings, and registers the resulting regions. Any failure along the way
// releases everything already acquired and returns an error; a module is
// never produced in a partially-registered state.
func (e *Engine) NewModule(name string, source []byte) (*Module, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	compiled, err := e.compiler.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("engine: compile %q: %w", name, err)
	}
	total := 0
	for _, s := range compiled.Sections {
		total += len(s)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyModule, name)
	}
	if total > e.maxCodeSize {
		return nil, fmt.Errorf("%w: %q needs %d bytes, limit %d",
			ErrCodeTooLarge, name, total, e.maxCodeSize)
	}

	m, err := place(e, name, compiled)
	if err != nil {
		return nil, err
	}
	e.live.Add(1)
	return m, nil
}

// LiveModules reports how many modules produced by this engine have not yet
// been fully closed. Lifetime tests use it to catch an engine being torn
// down under its modules.
func (e *Engine) LiveModules() int64 { return e.live.Load() }

// Close marks the engine unusable for further compilation and releases
// engine-local configuration. It never touches module memory; closing an
// engine that still has live modules is a caller bug (the documented
// contract is engine-outlives-modules) and is logged to make such tests
// fail loudly.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	if n := e.live.Load(); n > 0 {
		e.log.Warn("engine: closed with live modules", "modules", n)
	}
}
