package gosource

import (
	"go/constant"
	"go/types"
	"reflect"
	"slices"
	"strings"

	"github.com/typesync/typesync/internal/annotations"
	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/typenode"
)

// namedOrigin is a declared type: a record, a model or an alias.
type namedOrigin struct {
	obj  types.Object
	kind typenode.Kind
}

func (o namedOrigin) Kind() typenode.Kind { return o.kind }
func (o namedOrigin) Name() string        { return o.obj.Name() }
func (o namedOrigin) String() string      { return o.obj.Pkg().Name() + "." + o.obj.Name() }

// paramOrigin is a type parameter of a generic declaration.
type paramOrigin struct {
	tp *types.TypeParam
}

func (o paramOrigin) Kind() typenode.Kind { return typenode.KindParam }
func (o paramOrigin) Name() string        { return o.tp.Obj().Name() }

// structOrigin is an anonymous struct type.
type structOrigin struct {
	s *types.Struct
}

func (o structOrigin) Kind() typenode.Kind { return typenode.KindRecord }
func (o structOrigin) Name() string        { return "struct" }

// goType is a lazily expanded descriptor of a declared Go type. Fields and
// expansions are computed on demand so self-referential types terminate.
type goType struct {
	origin typenode.Origin
	args   []typenode.Descriptor
	params []typenode.Origin

	expand func() typenode.Descriptor
	fields func() []typenode.Field

	expanded  bool
	expansion typenode.Descriptor
	fieldsSet bool
	fieldList []typenode.Field
}

var _ typenode.Descriptor = (*goType)(nil)

func (g *goType) Origin() typenode.Origin     { return g.origin }
func (g *goType) Args() []typenode.Descriptor { return g.args }
func (g *goType) Params() []typenode.Origin   { return g.params }
func (g *goType) Annotations() []any          { return nil }
func (g *goType) Values() []any               { return nil }

func (g *goType) Expansion() typenode.Descriptor {
	if !g.expanded && g.expand != nil {
		g.expansion = g.expand()
		g.expanded = true
	}
	return g.expansion
}

func (g *goType) Fields() []typenode.Field {
	if !g.fieldsSet && g.fields != nil {
		g.fieldList = g.fields()
		g.fieldsSet = true
	}
	return g.fieldList
}

func (p *Program) describeAll(ts *types.TypeList) []typenode.Descriptor {
	if ts == nil {
		return nil
	}
	out := make([]typenode.Descriptor, ts.Len())
	for i := range out {
		out[i] = p.describe(ts.At(i))
	}
	return out
}

func paramsOf(tps *types.TypeParamList) []typenode.Origin {
	if tps == nil {
		return nil
	}
	out := make([]typenode.Origin, tps.Len())
	for i := range out {
		out[i] = paramOrigin{tp: tps.At(i)}
	}
	return out
}

// describe maps a Go type onto the descriptor vocabulary.
func (p *Program) describe(t types.Type) typenode.Descriptor {
	switch t := t.(type) {
	case *types.Alias:
		return p.describeAlias(t)
	case *types.Named:
		return p.describeNamed(t)
	case *types.TypeParam:
		return &goType{origin: paramOrigin{tp: t}}
	case *types.Basic:
		return basic(t)
	case *types.Slice:
		if isByte(t.Elem()) {
			return descriptor.String()
		}
		return descriptor.List(p.describe(t.Elem()))
	case *types.Array:
		return descriptor.List(p.describe(t.Elem()))
	case *types.Map:
		return descriptor.Dict(p.describe(t.Key()), p.describe(t.Elem()))
	case *types.Pointer:
		return descriptor.Optional(p.describe(t.Elem()))
	case *types.Interface:
		return descriptor.Any()
	case *types.Struct:
		return &goType{
			origin: structOrigin{s: t},
			fields: func() []typenode.Field { return p.structFields(t, false) },
		}
	}
	return descriptor.Opaque(t.String())
}

func basic(t *types.Basic) typenode.Descriptor {
	info := t.Info()
	switch {
	case t.Kind() == types.UntypedNil:
		return descriptor.None()
	case info&types.IsString != 0:
		return descriptor.String()
	case info&types.IsBoolean != 0:
		return descriptor.Bool()
	case info&types.IsInteger != 0:
		return descriptor.Int()
	case info&types.IsFloat != 0:
		return descriptor.Float()
	}
	return descriptor.Opaque(t.Name())
}

func isByte(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Kind() == types.Byte
}

// describeAlias treats generic aliases as alias declarations; plain aliases
// are transparent.
func (p *Program) describeAlias(a *types.Alias) typenode.Descriptor {
	generic := a.Origin()
	if generic.TypeParams().Len() == 0 {
		return p.describe(types.Unalias(a))
	}
	if obj := generic.Obj(); obj.Pkg() != nil && obj.Pkg().Path() == TSXPath {
		return p.describe(types.Unalias(a))
	}
	return &goType{
		origin: namedOrigin{obj: generic.Obj(), kind: typenode.KindAlias},
		args:   p.describeAll(a.TypeArgs()),
		params: paramsOf(generic.TypeParams()),
		expand: func() typenode.Descriptor { return p.describe(generic.Rhs()) },
	}
}

func (p *Program) describeNamed(n *types.Named) typenode.Descriptor {
	obj := n.Obj()
	if obj.Pkg() != nil {
		switch obj.Pkg().Path() {
		case TSXPath:
			return p.describeMarker(n)
		case "time":
			if obj.Name() == "Time" {
				return descriptor.String()
			}
		case "encoding/json":
			if obj.Name() == "RawMessage" {
				return descriptor.Any()
			}
		}
	}
	generic := n.Origin()
	switch u := generic.Underlying().(type) {
	case *types.Interface:
		return descriptor.Any()
	case *types.Struct:
		kind := typenode.KindRecord
		if hasValidation(u) {
			kind = typenode.KindModel
		}
		return &goType{
			origin: namedOrigin{obj: obj, kind: kind},
			args:   p.describeAll(n.TypeArgs()),
			params: paramsOf(generic.TypeParams()),
			fields: func() []typenode.Field { return p.structFields(u, kind == typenode.KindModel) },
		}
	case *types.Basic:
		if values := p.enumValues(obj); len(values) > 0 {
			return descriptor.Literal(values...)
		}
	}
	return &goType{
		origin: namedOrigin{obj: obj, kind: typenode.KindAlias},
		args:   p.describeAll(n.TypeArgs()),
		params: paramsOf(generic.TypeParams()),
		expand: func() typenode.Descriptor { return p.describe(generic.Underlying()) },
	}
}

// describeMarker maps the tsx marker types.
func (p *Program) describeMarker(n *types.Named) typenode.Descriptor {
	args := p.describeAll(n.TypeArgs())
	name := n.Obj().Name()
	switch {
	case strings.HasPrefix(name, "Union"):
		return descriptor.Union(args...)
	case strings.HasPrefix(name, "Tuple"):
		return descriptor.Tuple(args...)
	case strings.HasPrefix(name, "Annotated"):
		if len(args) == 0 {
			break
		}
		payloads := make([]any, 0, len(args)-1)
		for i := 1; i < n.TypeArgs().Len(); i++ {
			payloads = append(payloads, payload(n.TypeArgs().At(i)))
		}
		return descriptor.Annotated(args[0], payloads...)
	case name == "Response" || name == "Body":
		if len(args) == 1 {
			return args[0]
		}
	case name == "Ellipsis":
		return descriptor.Ellipsis()
	case name == "Never":
		return descriptor.Never()
	case name == "Void":
		return descriptor.Void()
	}
	return descriptor.Opaque(n.String())
}

// payload converts a metadata type argument into an annotations payload.
// Unknown metadata keeps its type name.
func payload(t types.Type) any {
	n, ok := types.Unalias(t).(*types.Named)
	if !ok || n.Obj().Pkg() == nil || n.Obj().Pkg().Path() != TSXPath {
		return t.String()
	}
	switch name := n.Obj().Name(); name {
	case "Get", "Post", "Put", "Patch", "Delete", "Head", "Options":
		return annotations.Methods(name)
	case "Skip":
		return annotations.Skip{}
	}
	return t.String()
}

func hasValidation(s *types.Struct) bool {
	for i := range s.NumFields() {
		if _, ok := descriptor.ValidateRules(reflect.StructTag(s.Tag(i))); ok {
			return true
		}
	}
	return false
}

// structFields lists the fields encoding/json writes for s.
func (p *Program) structFields(s *types.Struct, model bool) []typenode.Field {
	var out []typenode.Field
	for i := range s.NumFields() {
		f := s.Field(i)
		tag := reflect.StructTag(s.Tag(i))
		jf := descriptor.ParseJSONTag(f.Name(), tag)
		if jf.Skip {
			continue
		}
		if f.Embedded() && !jf.Tagged {
			if inner, ok := embeddedStruct(f.Type()); ok {
				out = append(out, p.structFields(inner, model || hasValidation(inner))...)
				continue
			}
		}
		if !f.Exported() {
			continue
		}
		field := typenode.Field{Name: jf.Name, Type: p.describe(f.Type()), HasDefault: jf.Optional}
		if model {
			rules, _ := descriptor.ValidateRules(tag)
			field.Required = slices.Contains(rules, "required")
		}
		out = append(out, field)
	}
	return out
}

func embeddedStruct(t types.Type) (*types.Struct, bool) {
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	s, ok := t.Underlying().(*types.Struct)
	return s, ok
}

// enumValues returns the package-level constants declared with exactly the
// named type, in declaration order.
func (p *Program) enumValues(obj *types.TypeName) []any {
	if values, ok := p.enums[obj]; ok {
		return values
	}
	var consts []*types.Const
	if obj.Pkg() != nil {
		scope := obj.Pkg().Scope()
		for _, name := range scope.Names() {
			c, ok := scope.Lookup(name).(*types.Const)
			if ok && types.Identical(c.Type(), obj.Type()) {
				consts = append(consts, c)
			}
		}
	}
	slices.SortFunc(consts, func(a, b *types.Const) int { return int(a.Pos() - b.Pos()) })
	var values []any
	for _, c := range consts {
		if v, ok := constValue(c.Val()); ok && !slices.Contains(values, v) {
			values = append(values, v)
		}
	}
	p.enums[obj] = values
	return values
}

func constValue(v constant.Value) (any, bool) {
	switch v.Kind() {
	case constant.String:
		return constant.StringVal(v), true
	case constant.Bool:
		return constant.BoolVal(v), true
	case constant.Int:
		if i, ok := constant.Int64Val(v); ok {
			return i, true
		}
	case constant.Float:
		f, _ := constant.Float64Val(v)
		return f, true
	}
	return nil, false
}
