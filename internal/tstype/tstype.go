// Package tstype is the target type model: a closed set of TypeScript type
// shapes plus deterministic, memoized rendering.
//
// Types are pure values. Two trees that render to the same text are equal,
// regardless of how they were built.
package tstype

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Type is one TypeScript type expression. The set of implementations is
// closed: Simple, Array, Tuple, Union, Record, Object, Recursive and Named.
type Type interface {
	generate(r *Renderer, self string) string
}

// Simple is an atomic type: a keyword, a literal or a type name.
type Simple struct {
	Name string
}

// Array is T[].
type Array struct {
	Elem Type
}

// Tuple is [A, B, ...].
type Tuple struct {
	Elems []Type
}

// Union is A | B | ... . Build unions with NewUnion so nested unions are
// flattened and duplicates collapsed.
type Union struct {
	Members []Type
}

// Record is Record<K, V>.
type Record struct {
	Key   Type
	Value Type
}

// Field is one property of an Object.
type Field struct {
	Name     string
	Type     Type
	Required bool
}

// Object is an inline object type {a: A; b?: B;}.
type Object struct {
	Fields []Field
}

// Recursive refers back to an enclosing type. With a nil Target it is the
// type being rendered, which is only known once a name is supplied.
type Recursive struct {
	Target any
}

// Named marks Body as the target of Recursive references carrying Key.
// Renderers treat it as transparent; Hoist gives it a name.
type Named struct {
	Key  any
	Name string
	Body Type
}

// Common keyword types.
var (
	StringType    = &Simple{Name: "string"}
	NumberType    = &Simple{Name: "number"}
	BooleanType   = &Simple{Name: "boolean"}
	NullType      = &Simple{Name: "null"}
	UndefinedType = &Simple{Name: "undefined"}
	UnknownType   = &Simple{Name: "unknown"}
	NeverType     = &Simple{Name: "never"}
	ObjectType    = &Simple{Name: "object"}
)

// NewUnion returns the union of members with nested unions flattened and
// members that render identically collapsed, keeping first occurrence
// order. A single surviving member is returned as is; no members yield
// never.
func NewUnion(members ...Type) Type {
	var flat []Type
	seen := make(map[string]bool)
	var add func(t Type)
	add = func(t Type) {
		if u, ok := t.(*Union); ok {
			for _, m := range u.Members {
				add(m)
			}
			return
		}
		key := Text(t)
		if r, ok := t.(*Recursive); ok && r.Target != nil {
			// Distinct targets render alike until hoisted.
			key = fmt.Sprintf("%s@%p", selfMarker, r.Target)
		}
		if seen[key] {
			return
		}
		seen[key] = true
		flat = append(flat, t)
	}
	for _, m := range members {
		add(m)
	}
	switch len(flat) {
	case 0:
		return NeverType
	case 1:
		return flat[0]
	}
	return &Union{Members: flat}
}

// Text renders t with no enclosing name using a throwaway renderer.
func Text(t Type) string {
	return NewRenderer().Render(t, "")
}

// Equal reports whether a and b render identically.
func Equal(a, b Type) bool {
	return Text(a) == Text(b)
}

// Hash returns a stable hash of t's rendered form.
func Hash(t Type) uint64 {
	return xxh3.HashString(Text(t))
}
