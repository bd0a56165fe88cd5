// Package descriptor is an in-memory source frontend. It builds type
// descriptors directly in Go code: the route layer uses it for path argument
// records, the inference engine for synthesized container types, and tests
// for declaring aliases without a Go package on disk.
package descriptor

import (
	"github.com/typesync/typesync/internal/typenode"
)

// Type is a use of an origin with concrete arguments.
type Type struct {
	origin      typenode.Origin
	args        []typenode.Descriptor
	decl        *Decl
	annotations []any
	values      []any
}

var _ typenode.Descriptor = (*Type)(nil)

func (t *Type) Origin() typenode.Origin { return t.origin }

func (t *Type) Args() []typenode.Descriptor { return t.args }

func (t *Type) Params() []typenode.Origin {
	if t.decl == nil {
		return nil
	}
	return t.decl.params
}

func (t *Type) Expansion() typenode.Descriptor {
	if t.decl == nil {
		return nil
	}
	return t.decl.expansion
}

func (t *Type) Fields() []typenode.Field {
	if t.decl == nil {
		return nil
	}
	return t.decl.fields
}

func (t *Type) Annotations() []any { return t.annotations }

func (t *Type) Values() []any { return t.values }

func of(origin typenode.Origin, args ...typenode.Descriptor) *Type {
	return &Type{origin: origin, args: args}
}

func String() *Type { return of(typenode.String) }
func Int() *Type    { return of(typenode.Int) }
func Float() *Type  { return of(typenode.Float) }
func Bool() *Type   { return of(typenode.Bool) }
func None() *Type   { return of(typenode.None) }
func Void() *Type   { return of(typenode.Void) }
func Any() *Type    { return of(typenode.Any) }
func Never() *Type  { return of(typenode.Never) }

// Ellipsis is the trailing marker of a variadic tuple: Tuple(T, Ellipsis())
// means "any number of T".
func Ellipsis() *Type { return of(typenode.Variadic) }

// List returns a sequence type. With no element it is the bare container.
func List(elem ...typenode.Descriptor) *Type { return of(typenode.Sequence, elem...) }

// Tuple returns a tuple type. With no elements it is the bare container.
func Tuple(elems ...typenode.Descriptor) *Type { return of(typenode.Tuple, elems...) }

// Dict returns a mapping type; Dict() is the bare container.
func Dict(kv ...typenode.Descriptor) *Type { return of(typenode.Mapping, kv...) }

// Union returns a union of the members, in order.
func Union(members ...typenode.Descriptor) *Type { return of(typenode.Union, members...) }

// Optional is shorthand for Union(t, None()).
func Optional(t typenode.Descriptor) *Type { return Union(t, None()) }

// TypeOf returns the type of the type value t.
func TypeOf(t typenode.Descriptor) *Type { return of(typenode.TypeOf, t) }

// Literal returns a literal type over the given constant values.
func Literal(values ...any) *Type {
	t := of(typenode.Literal)
	t.values = values
	return t
}

// Annotated wraps base with metadata payloads. The last payload ends up
// outermost in the built graph.
func Annotated(base typenode.Descriptor, payloads ...any) *Type {
	t := of(typenode.Annotated, base)
	t.annotations = payloads
	return t
}

// Opaque returns a type no translator understands.
func Opaque(name string) *Type { return of(typenode.Opaque(name)) }

// Param returns a free-standing generic parameter, not owned by any Decl.
func Param(name string) *Type { return of(typenode.NewParam(name)) }
