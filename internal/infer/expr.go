package infer

import (
	"go/ast"
	"go/token"
	"go/types"
	"reflect"
	"strconv"

	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/typenode"
)

// expr is the closed set of expression shapes the engine distinguishes.
// classify maps syntax onto it and typeOf has one handler per variant.
type expr interface{ isExpr() }

type (
	nameExpr     struct{ name string }
	constExpr    struct{ lit *ast.BasicLit }
	nilExpr      struct{}
	seqExpr      struct{ lit *ast.CompositeLit }
	mapExpr      struct{ lit *ast.CompositeLit }
	compositeExp struct{ lit *ast.CompositeLit }
	callExpr     struct{ call *ast.CallExpr }
	unaryExpr    struct {
		node ast.Expr
		op   token.Token
		x    ast.Expr
	}
	binaryExpr struct {
		op   token.Token
		x, y ast.Expr
	}
	funcExpr     struct{ lit *ast.FuncLit }
	otherExpr    struct{ node ast.Expr }
)

func (nameExpr) isExpr()     {}
func (constExpr) isExpr()    {}
func (nilExpr) isExpr()      {}
func (seqExpr) isExpr()      {}
func (mapExpr) isExpr()      {}
func (compositeExp) isExpr() {}
func (callExpr) isExpr()     {}
func (unaryExpr) isExpr()    {}
func (binaryExpr) isExpr()   {}
func (funcExpr) isExpr()     {}
func (otherExpr) isExpr()    {}

func classify(e ast.Expr) expr {
	switch e := ast.Unparen(e).(type) {
	case *ast.Ident:
		if e.Name == "nil" {
			return nilExpr{}
		}
		return nameExpr{name: e.Name}
	case *ast.BasicLit:
		return constExpr{lit: e}
	case *ast.CompositeLit:
		switch e.Type.(type) {
		case *ast.ArrayType:
			return seqExpr{lit: e}
		case *ast.MapType:
			return mapExpr{lit: e}
		}
		return compositeExp{lit: e}
	case *ast.CallExpr:
		return callExpr{call: e}
	case *ast.UnaryExpr:
		return unaryExpr{node: e, op: e.Op, x: e.X}
	case *ast.StarExpr:
		return unaryExpr{node: e, op: token.MUL, x: e.X}
	case *ast.BinaryExpr:
		return binaryExpr{op: e.Op, x: e.X, y: e.Y}
	case *ast.FuncLit:
		return funcExpr{lit: e}
	}
	return otherExpr{node: e}
}

// typeOf returns the type of e, or nil when it cannot be determined.
func (f *frame) typeOf(e ast.Expr) typenode.Descriptor {
	if e == nil {
		return nil
	}
	switch x := classify(e).(type) {
	case nameExpr:
		return f.name(x)
	case constExpr:
		return constant(x.lit)
	case nilExpr:
		return descriptor.None()
	case seqExpr:
		return f.sequence(x.lit)
	case mapExpr:
		return f.mapping(x.lit)
	case compositeExp:
		return f.composite(x.lit)
	case callExpr:
		return f.call(x.call)
	case unaryExpr:
		return f.unary(x)
	case binaryExpr:
		return f.binary(x)
	case funcExpr:
		return descriptor.Opaque("func")
	case otherExpr:
		if t, ok := f.callable.StaticType(x.node); ok {
			return t
		}
	}
	return nil
}

func (f *frame) name(x nameExpr) typenode.Descriptor {
	if x.name == "true" || x.name == "false" {
		if _, shadowed := f.locals[x.name]; !shadowed {
			return descriptor.Literal(x.name == "true")
		}
	}
	sym, ok := f.lookup(x.name)
	if !ok {
		return nil
	}
	switch sym.Kind {
	case SymbolType:
		return descriptor.TypeOf(sym.Type)
	case SymbolFunc:
		return descriptor.Opaque("func")
	}
	return sym.Type
}

// constant types a basic literal as a single-valued literal type.
func constant(lit *ast.BasicLit) typenode.Descriptor {
	switch lit.Kind {
	case token.STRING:
		if s, err := strconv.Unquote(lit.Value); err == nil {
			return descriptor.Literal(s)
		}
		return descriptor.String()
	case token.INT:
		if v, err := strconv.ParseInt(lit.Value, 0, 64); err == nil {
			return descriptor.Literal(v)
		}
		return descriptor.Int()
	case token.FLOAT:
		if v, err := strconv.ParseFloat(lit.Value, 64); err == nil {
			return descriptor.Literal(v)
		}
		return descriptor.Float()
	case token.CHAR:
		if s, err := strconv.Unquote(lit.Value); err == nil {
			for _, r := range s {
				return descriptor.Literal(int64(r))
			}
		}
		return descriptor.Int()
	}
	return nil
}

// sequence types a slice or array literal. An interface element type is
// refined from the elements.
func (f *frame) sequence(lit *ast.CompositeLit) typenode.Descriptor {
	arr := lit.Type.(*ast.ArrayType)
	elem, ok := f.typeExpr(arr.Elt)
	if ok && elem.Origin() != typenode.Any {
		return descriptor.List(elem)
	}
	values := make([]ast.Expr, len(lit.Elts))
	for i, e := range lit.Elts {
		if kv, ok := e.(*ast.KeyValueExpr); ok {
			e = kv.Value
		}
		values[i] = e
	}
	combined, ok := f.combine(values)
	if !ok {
		return descriptor.List()
	}
	return descriptor.List(combined)
}

// mapping types a map literal. Interface keys or values are refined from
// the entries and fall back to the unknown type when they disagree.
func (f *frame) mapping(lit *ast.CompositeLit) typenode.Descriptor {
	mt := lit.Type.(*ast.MapType)
	key, keyOK := f.typeExpr(mt.Key)
	value, valueOK := f.typeExpr(mt.Value)
	var keys, values []ast.Expr
	for _, e := range lit.Elts {
		kv, ok := e.(*ast.KeyValueExpr)
		if !ok {
			return descriptor.Dict()
		}
		keys = append(keys, kv.Key)
		values = append(values, kv.Value)
	}
	refine := func(t typenode.Descriptor, ok bool, exprs []ast.Expr) typenode.Descriptor {
		if ok && t.Origin() != typenode.Any {
			return t
		}
		if c, ok := f.combine(exprs); ok {
			return c
		}
		return descriptor.Any()
	}
	return descriptor.Dict(refine(key, keyOK, keys), refine(value, valueOK, values))
}

func (f *frame) composite(lit *ast.CompositeLit) typenode.Descriptor {
	if lit.Type == nil {
		return nil
	}
	if t, ok := f.typeExpr(lit.Type); ok {
		return t
	}
	if t, ok := f.callable.StaticType(lit); ok {
		return t
	}
	return nil
}

// tuple types several values returned together.
func (f *frame) tuple(exprs []ast.Expr) typenode.Descriptor {
	elems := make([]typenode.Descriptor, len(exprs))
	for i, e := range exprs {
		t := f.typeOf(e)
		if t == nil {
			return descriptor.Tuple()
		}
		elems[i] = t
	}
	return descriptor.Tuple(elems...)
}

// combine folds the element types pairwise. It fails when an element is
// unknown or two elements have no common ancestor; no elements fail too.
func (f *frame) combine(exprs []ast.Expr) (typenode.Descriptor, bool) {
	var acc typenode.Descriptor
	for _, e := range exprs {
		t := f.typeOf(e)
		if t == nil {
			return nil, false
		}
		if acc == nil {
			acc = t
			continue
		}
		c, ok := commonAncestor(acc, t)
		if !ok {
			return nil, false
		}
		acc = c
	}
	return acc, acc != nil
}

func (f *frame) unary(x unaryExpr) typenode.Descriptor {
	switch x.op {
	case token.NOT:
		return descriptor.Bool()
	case token.AND:
		return f.typeOf(x.x)
	case token.MUL:
		t := f.typeOf(x.x)
		if t != nil && t.Origin() == typenode.Union && len(t.Args()) == 2 && t.Args()[1].Origin() == typenode.None {
			return t.Args()[0]
		}
		return t
	case token.SUB, token.ADD, token.XOR:
		return widen(f.typeOf(x.x))
	}
	if t, ok := f.callable.StaticType(x.node); ok {
		return t
	}
	return nil
}

func (f *frame) binary(x binaryExpr) typenode.Descriptor {
	switch x.op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ, token.LAND, token.LOR:
		return descriptor.Bool()
	case token.SHL, token.SHR:
		return widen(f.typeOf(x.x))
	}
	l, r := widen(f.typeOf(x.x)), widen(f.typeOf(x.y))
	switch {
	case l == nil:
		return r
	case r == nil:
		return l
	case l.Origin() == typenode.Float || r.Origin() == typenode.Float:
		return descriptor.Float()
	}
	return l
}

// widen replaces a literal type by its scalar.
func widen(t typenode.Descriptor) typenode.Descriptor {
	if t == nil || t.Origin() != typenode.Literal {
		return t
	}
	if s, ok := scalarOf(t.Values()); ok {
		return s
	}
	return t
}

func (f *frame) call(c *ast.CallExpr) typenode.Descriptor {
	switch fun := ast.Unparen(c.Fun).(type) {
	case *ast.Ident:
		if t, ok := f.builtinCall(fun.Name, c); ok {
			return t
		}
		if sym, ok := f.lookup(fun.Name); ok {
			return f.callSymbol(sym, c)
		}
	case *ast.SelectorExpr:
		if pkg, ok := fun.X.(*ast.Ident); ok {
			if _, local := f.locals[pkg.Name]; !local {
				if sym, ok := f.callable.Lookup(pkg.Name + "." + fun.Sel.Name); ok {
					return f.callSymbol(sym, c)
				}
			}
		}
	case *ast.FuncLit:
		return f.run.callResult(f.closure(fun))
	case *ast.ArrayType, *ast.MapType, *ast.InterfaceType, *ast.StarExpr:
		if t, ok := f.typeExpr(fun); ok {
			return t
		}
	}
	if t, ok := f.callable.StaticType(c); ok {
		return t
	}
	return nil
}

// callSymbol types a call through a resolved symbol: a conversion yields
// an instance of the type, a type value yields its type, a function yields
// its declared or inferred result.
func (f *frame) callSymbol(sym Symbol, c *ast.CallExpr) typenode.Descriptor {
	switch sym.Kind {
	case SymbolType:
		return sym.Type
	case SymbolFunc:
		return f.run.callResult(sym.Func)
	}
	if t := sym.Type; t != nil && t.Origin() == typenode.TypeOf && len(t.Args()) == 1 {
		return t.Args()[0]
	}
	return nil
}

func (f *frame) builtinCall(name string, c *ast.CallExpr) (typenode.Descriptor, bool) {
	if _, shadowed := f.locals[name]; shadowed {
		return nil, false
	}
	if _, declared := f.callable.Lookup(name); declared {
		return nil, false
	}
	switch name {
	case "len", "cap", "copy":
		return descriptor.Int(), true
	case "new", "make":
		if len(c.Args) == 0 {
			return nil, true
		}
		t, _ := f.typeExpr(c.Args[0])
		return t, true
	case "append", "min", "max":
		if len(c.Args) == 0 {
			return nil, true
		}
		return widen(f.typeOf(c.Args[0])), true
	case "real", "imag":
		return descriptor.Float(), true
	case "recover":
		return descriptor.Any(), true
	}
	return nil, false
}

// closure wraps a function literal as a callable capturing the current
// environment.
func (f *frame) closure(lit *ast.FuncLit) Callable {
	captured := make(map[string]Symbol, len(f.locals))
	for k, v := range f.locals {
		captured[k] = v
	}
	fn := &literalFunc{parent: f.callable, lit: lit, captured: captured}
	if lit.Type.Params != nil {
		for _, field := range lit.Type.Params.List {
			t, _ := f.typeExpr(field.Type)
			for _, n := range field.Names {
				fn.params = append(fn.params, Param{Name: n.Name, Type: t})
			}
		}
	}
	if results := lit.Type.Results; results != nil && len(results.List) > 0 {
		last := results.List[len(results.List)-1]
		if id, ok := last.Type.(*ast.Ident); ok && id.Name == "error" {
			fn.errorResult = true
		}
		switch first, ok := f.typeExpr(results.List[0].Type); {
		case fn.errorResult && results.NumFields() == 1:
			fn.result = descriptor.Void()
		case ok && first.Origin() != typenode.Any:
			fn.result = first
		}
	}
	return fn
}

// typeExpr resolves a type expression against the environment alone.
func (f *frame) typeExpr(e ast.Expr) (typenode.Descriptor, bool) {
	switch e := ast.Unparen(e).(type) {
	case *ast.Ident:
		sym, ok := f.lookup(e.Name)
		if ok && sym.Kind == SymbolType {
			return sym.Type, true
		}
	case *ast.SelectorExpr:
		pkg, ok := e.X.(*ast.Ident)
		if !ok {
			return nil, false
		}
		sym, ok := f.callable.Lookup(pkg.Name + "." + e.Sel.Name)
		if ok && sym.Kind == SymbolType {
			return sym.Type, true
		}
	case *ast.ArrayType:
		if id, ok := e.Elt.(*ast.Ident); ok && id.Name == "byte" {
			return descriptor.String(), true
		}
		elem, ok := f.typeExpr(e.Elt)
		if !ok {
			return nil, false
		}
		return descriptor.List(elem), true
	case *ast.MapType:
		k, ok := f.typeExpr(e.Key)
		if !ok {
			return nil, false
		}
		v, ok := f.typeExpr(e.Value)
		if !ok {
			return nil, false
		}
		return descriptor.Dict(k, v), true
	case *ast.StarExpr:
		elem, ok := f.typeExpr(e.X)
		if !ok {
			return nil, false
		}
		return descriptor.Optional(elem), true
	case *ast.InterfaceType:
		return descriptor.Any(), true
	case *ast.StructType:
		return f.structType(e)
	case *ast.FuncType, *ast.ChanType:
		return descriptor.Opaque(exprString(e)), true
	}
	return nil, false
}

// structType turns an anonymous struct into a record with the fields
// encoding/json would write.
func (f *frame) structType(st *ast.StructType) (typenode.Descriptor, bool) {
	rec := descriptor.NewRecord("struct")
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			return nil, false
		}
		t, ok := f.typeExpr(field.Type)
		if !ok {
			return nil, false
		}
		var tag string
		if field.Tag != nil {
			tag, _ = strconv.Unquote(field.Tag.Value)
		}
		for _, n := range field.Names {
			if !n.IsExported() {
				continue
			}
			jf := descriptor.ParseJSONTag(n.Name, reflect.StructTag(tag))
			if jf.Skip {
				continue
			}
			var opts []descriptor.FieldOption
			if jf.Optional {
				opts = append(opts, descriptor.WithDefault())
			}
			rec.Field(jf.Name, t, opts...)
		}
	}
	return rec.Of(), true
}

var predeclaredTypes = map[string]func() *descriptor.Type{
	"string": descriptor.String,
	"bool":   descriptor.Bool,
	"any":    descriptor.Any,
	"int":    descriptor.Int, "int8": descriptor.Int, "int16": descriptor.Int, "int32": descriptor.Int, "int64": descriptor.Int,
	"uint": descriptor.Int, "uint8": descriptor.Int, "uint16": descriptor.Int, "uint32": descriptor.Int, "uint64": descriptor.Int,
	"uintptr": descriptor.Int, "byte": descriptor.Int, "rune": descriptor.Int,
	"float32": descriptor.Float, "float64": descriptor.Float,
}

func predeclared(name string) (Symbol, bool) {
	if mk, ok := predeclaredTypes[name]; ok {
		return TypeName(mk()), true
	}
	switch name {
	case "error":
		return TypeName(descriptor.Opaque("error")), true
	case "iota":
		return Value(descriptor.Int()), true
	}
	return Symbol{}, false
}

func exprString(e ast.Expr) string {
	return types.ExprString(e)
}
