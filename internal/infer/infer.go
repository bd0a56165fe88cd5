// Package infer statically estimates the return type of a handler that does
// not declare one. It walks the callable's syntax tree, types each returned
// expression against a symbol environment and reduces the candidates to a
// single descriptor.
//
// Inference is best effort. Expressions it cannot type contribute the
// unknown type; callables without reachable source fail with
// ErrInferenceUnavailable.
package infer

import (
	"errors"
	"fmt"
	"go/ast"
	"log/slog"

	"github.com/typesync/typesync/internal/typenode"
)

var (
	// ErrInferenceUnavailable reports that a callable's result cannot be
	// inferred at all.
	ErrInferenceUnavailable = errors.New("inference unavailable")
	// ErrNoSource is returned by Callable.Body when the source is not
	// reachable, for example for assembly or cgo functions.
	ErrNoSource = errors.New("callable source is not available")
)

// SymbolKind classifies a Symbol.
type SymbolKind int

const (
	// SymbolValue is a variable or constant of type Symbol.Type.
	SymbolValue SymbolKind = iota
	// SymbolType names the type Symbol.Type.
	SymbolType
	// SymbolFunc is a function; Symbol.Func describes it.
	SymbolFunc
)

// Symbol is what a name resolves to.
type Symbol struct {
	Kind SymbolKind
	Type typenode.Descriptor
	Func Callable
}

// Value returns a value symbol of type t.
func Value(t typenode.Descriptor) Symbol { return Symbol{Kind: SymbolValue, Type: t} }

// TypeName returns a symbol naming the type t.
func TypeName(t typenode.Descriptor) Symbol { return Symbol{Kind: SymbolType, Type: t} }

// Func returns a symbol for the callable c.
func Func(c Callable) Symbol { return Symbol{Kind: SymbolFunc, Func: c} }

// Param is one declared parameter of a callable.
type Param struct {
	Name string
	Type typenode.Descriptor
}

// Callable is the view of a function the engine needs. Implementations
// must be comparable; the engine uses them as keys of its visited set.
type Callable interface {
	// Name identifies the callable in diagnostics.
	Name() string
	// Params returns the declared parameters.
	Params() []Param
	// Result returns the declared result type. It reports false when the
	// callable declares no precise result and inference is needed.
	Result() (typenode.Descriptor, bool)
	// ErrorResult reports whether the last declared result is an error.
	ErrorResult() bool
	// Body returns the statements of the callable, or ErrNoSource.
	Body() (*ast.BlockStmt, error)
	// Captured returns the variables a closure captures from its
	// enclosing function.
	Captured() map[string]Symbol
	// Lookup resolves a name in the callable's defining scope. Qualified
	// names use the "pkg.Name" form.
	Lookup(name string) (Symbol, bool)
	// Eval resolves a type expression with the full type checker of the
	// defining scope.
	Eval(expr ast.Expr) (typenode.Descriptor, error)
	// StaticType returns the type a checker assigned to expr, when known
	// and more precise than an interface.
	StaticType(expr ast.Expr) (typenode.Descriptor, bool)
}

// Options configure an Engine.
type Options struct {
	// AllowEval permits Callable.Eval for annotations the engine cannot
	// resolve on its own.
	AllowEval bool
	Logger    *slog.Logger
}

// Engine infers callable results.
type Engine struct {
	allowEval bool
	logger    *slog.Logger
}

// New returns an Engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{allowEval: opts.AllowEval, logger: logger}
}

// Infer returns the reduced type of every value c returns. A callable that
// never returns a value yields the void type.
func (e *Engine) Infer(c Callable) (typenode.Descriptor, error) {
	r := &run{engine: e, visiting: make(map[Callable]bool)}
	return r.infer(c)
}

// run is the state of one top-level request.
type run struct {
	engine   *Engine
	visiting map[Callable]bool
}

func (r *run) infer(c Callable) (typenode.Descriptor, error) {
	if r.visiting[c] {
		return nil, fmt.Errorf("%w: %s calls itself", ErrInferenceUnavailable, c.Name())
	}
	body, err := c.Body()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInferenceUnavailable, c.Name(), err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInferenceUnavailable, c.Name(), ErrNoSource)
	}
	r.visiting[c] = true
	defer delete(r.visiting, c)

	f := newFrame(r, c)
	f.block(body)
	return reduce(f.returns), nil
}

// callResult types a call to c: the declared result when there is one,
// otherwise the inferred one.
func (r *run) callResult(c Callable) typenode.Descriptor {
	if t, ok := c.Result(); ok {
		return t
	}
	t, err := r.infer(c)
	if err != nil {
		r.engine.logger.Debug("callee result unknown", "callable", c.Name(), "err", err)
		return nil
	}
	return t
}
