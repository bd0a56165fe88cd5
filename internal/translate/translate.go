// Package translate turns type graph nodes into target types through an
// ordered chain of pluggable translators.
//
// A Translator either produces a tstype.Type for a node or declines by
// returning ErrDecline; the Chain asks translators in priority order (lower
// first, registration order on ties) and the first answer wins. Translators
// recurse into child nodes through the Func they were constructed with,
// which re-enters the whole chain.
package translate

import (
	"errors"
	"fmt"

	"github.com/typesync/typesync/internal/diagnostic"
	"github.com/typesync/typesync/internal/tstype"
	"github.com/typesync/typesync/internal/typenode"
)

// Mode selects which part of a route's contract is being translated.
type Mode string

const (
	ModeArgs   Mode = "ARGS"
	ModeJSON   Mode = "JSON"
	ModeReturn Mode = "RETURN"
)

// Context describes the unit being translated. It is created per route,
// method and mode and is not modified during translation.
type Context struct {
	Route    string // route name
	Rule     string // URL rule
	Handler  string // handler callable name
	Method   string // HTTP method, upper-case
	Mode     Mode
	Inferred bool // the type came from inference, not a declaration

	// Diagnostics receives warnings raised while translating. May be nil.
	Diagnostics *diagnostic.Collector
}

// Location returns the diagnostic location of the unit.
func (c *Context) Location() diagnostic.Location {
	if c == nil {
		return diagnostic.Location{}
	}
	return diagnostic.Location{Route: c.Route, Method: c.Method, Mode: string(c.Mode)}
}

// Bindings maps generic parameters in scope to their translated arguments.
type Bindings map[typenode.Origin]tstype.Type

// Func translates a node through the whole chain.
type Func func(node *typenode.Node, generics Bindings) (tstype.Type, error)

// Translator is one translation strategy.
type Translator interface {
	// Translate returns the target type for node, ErrDecline when the
	// strategy does not apply, or another error on hard failure.
	Translate(node *typenode.Node, generics Bindings) (tstype.Type, error)
}

// Factory constructs a translator for one unit. translate re-enters the
// chain for child nodes.
type Factory func(translate Func, ctx *Context) Translator

// ErrDecline is returned by a Translator that does not handle a node.
var ErrDecline = errors.New("translate: declined")

// UnsupportedTypeError reports that no translator accepted a node.
type UnsupportedTypeError struct {
	Type string // debugging notation of the rejected node
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type %s", e.Type)
}

// Scope marks t as the expansion of node when some RecursiveCall refers
// back to node, so the reference can be named when rendered. Translators
// that expand aliases, records or models should pass their result through
// it.
func Scope(node *typenode.Node, t tstype.Type) tstype.Type {
	if !node.Recursive {
		return t
	}
	return &tstype.Named{Key: node, Name: node.Origin.Name(), Body: t}
}

// Bind translates node's arguments and binds them to node's own declared
// parameters. Parameters without an argument stay unbound; surplus
// arguments are ignored.
func Bind(translate Func, node *typenode.Node, generics Bindings) (Bindings, error) {
	bound := make(Bindings, len(node.Params))
	for i, p := range node.Params {
		if i >= len(node.Args) {
			break
		}
		t, err := translate(node.Args[i], generics)
		if err != nil {
			return nil, err
		}
		bound[p] = t
	}
	return bound, nil
}
