package tstype

import (
	"fmt"
)

// Declaration is a helper type that must be emitted next to the type it was
// hoisted from.
type Declaration struct {
	Name string
	Type Type
}

type rootScope struct{}

// Hoist prepares t for rendering under the name self. The outermost Named
// binds to self. A nested Named that is referenced recursively becomes a
// helper declaration named after self and the scope, and its use site turns
// into a reference to that name. Unreferenced Named scopes are inlined. The
// returned types contain no Named nodes and only untargeted Recursive nodes,
// each of which refers to the declaration it is rendered in.
func Hoist(t Type, self string) (Type, []Declaration) {
	h := &hoister{
		self:  self,
		names: make(map[any]string),
		taken: map[string]bool{self: true},
	}
	var scope any = rootScope{}
	if n, ok := t.(*Named); ok {
		h.names[n.Key] = self
		scope = n.Key
		t = n.Body
	}
	h.root = scope
	return h.rewrite(t, scope), h.decls
}

type hoister struct {
	self  string
	root  any
	names map[any]string
	taken map[string]bool
	decls []Declaration
}

func (h *hoister) rewrite(t Type, scope any) Type {
	switch t := t.(type) {
	case *Simple:
		return t
	case *Array:
		return &Array{Elem: h.rewrite(t.Elem, scope)}
	case *Tuple:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = h.rewrite(e, scope)
		}
		return &Tuple{Elems: elems}
	case *Union:
		members := make([]Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = h.rewrite(m, scope)
		}
		// Distinct targets may now share a name.
		return NewUnion(members...)
	case *Record:
		return &Record{Key: h.rewrite(t.Key, scope), Value: h.rewrite(t.Value, scope)}
	case *Object:
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{Name: f.Name, Type: h.rewrite(f.Type, scope), Required: f.Required}
		}
		return &Object{Fields: fields}
	case *Recursive:
		return h.reference(t.Target, scope)
	case *Named:
		if name, ok := h.names[t.Key]; ok {
			return &Simple{Name: name}
		}
		if !references(t.Body, t.Key) {
			return h.rewrite(t.Body, scope)
		}
		name := h.unique(h.self + "_" + t.Name)
		h.names[t.Key] = name
		body := h.rewrite(t.Body, t.Key)
		h.decls = append(h.decls, Declaration{Name: name, Type: body})
		return &Simple{Name: name}
	}
	return t
}

// reference resolves a Recursive target seen while rewriting scope.
func (h *hoister) reference(target, scope any) Type {
	if target == nil {
		target = h.root
	}
	if target == scope {
		return &Recursive{}
	}
	if target == h.root {
		return &Simple{Name: h.self}
	}
	if name, ok := h.names[target]; ok {
		return &Simple{Name: name}
	}
	// A target with no enclosing Named: fall back to the unit itself.
	if scope == h.root {
		return &Recursive{}
	}
	return &Simple{Name: h.self}
}

func (h *hoister) unique(name string) string {
	candidate := name
	for i := 2; h.taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	h.taken[candidate] = true
	return candidate
}

func references(t Type, key any) bool {
	switch t := t.(type) {
	case *Array:
		return references(t.Elem, key)
	case *Tuple:
		for _, e := range t.Elems {
			if references(e, key) {
				return true
			}
		}
	case *Union:
		for _, m := range t.Members {
			if references(m, key) {
				return true
			}
		}
	case *Record:
		return references(t.Key, key) || references(t.Value, key)
	case *Object:
		for _, f := range t.Fields {
			if references(f.Type, key) {
				return true
			}
		}
	case *Recursive:
		return t.Target == key
	case *Named:
		return references(t.Body, key)
	}
	return false
}
