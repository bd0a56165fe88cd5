package tstype

import (
	"strings"
)

// selfMarker is what a Recursive renders as when no enclosing name was
// supplied. It is deliberately not valid TypeScript.
const selfMarker = "=Self"

type cacheKey struct {
	t    Type
	self string
}

// Renderer turns Types into TypeScript text. Results are memoized per
// (type identity, self name); a Renderer must not outlive the generation run
// whose types it renders.
type Renderer struct {
	cache map[cacheKey]string
}

// NewRenderer returns a renderer with an empty cache.
func NewRenderer() *Renderer {
	return &Renderer{cache: make(map[cacheKey]string)}
}

// Render returns the text of t, with Recursive references rendered as self.
func (r *Renderer) Render(t Type, self string) string {
	if t == nil {
		return UnknownType.Name
	}
	key := cacheKey{t: t, self: self}
	if s, ok := r.cache[key]; ok {
		return s
	}
	s := t.generate(r, self)
	r.cache[key] = s
	return s
}

func (s *Simple) generate(_ *Renderer, _ string) string {
	return s.Name
}

func (a *Array) generate(r *Renderer, self string) string {
	elem := r.Render(a.Elem, self)
	if isUnion(a.Elem) {
		return "(" + elem + ")[]"
	}
	return elem + "[]"
}

func isUnion(t Type) bool {
	switch t := t.(type) {
	case *Union:
		return len(t.Members) > 1
	case *Named:
		return isUnion(t.Body)
	}
	return false
}

func (t *Tuple) generate(r *Renderer, self string) string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = r.Render(e, self)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (u *Union) generate(r *Renderer, self string) string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = r.Render(m, self)
	}
	return strings.Join(parts, " | ")
}

func (m *Record) generate(r *Renderer, self string) string {
	return "Record<" + r.Render(m.Key, self) + ", " + r.Render(m.Value, self) + ">"
}

func (o *Object) generate(r *Renderer, self string) string {
	if len(o.Fields) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i, f := range o.Fields {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(PropertyKey(f.Name))
		if !f.Required {
			sb.WriteString("?")
		}
		sb.WriteString(": ")
		sb.WriteString(r.Render(f.Type, self))
		sb.WriteString(";")
	}
	sb.WriteString("}")
	return sb.String()
}

func (*Recursive) generate(_ *Renderer, self string) string {
	if self == "" {
		return selfMarker
	}
	return self
}

func (n *Named) generate(r *Renderer, self string) string {
	return r.Render(n.Body, self)
}

// PropertyKey quotes an object key unless it is a valid identifier.
func PropertyKey(name string) string {
	if len(name) == 0 {
		return `""`
	}
	for i, c := range name {
		ident := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$'
		if i > 0 {
			ident = ident || (c >= '0' && c <= '9')
		}
		if !ident {
			return `"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
		}
	}
	return name
}
