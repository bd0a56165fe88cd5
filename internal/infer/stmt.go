package infer

import (
	"go/ast"
	"go/token"

	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/typenode"
)

// frame walks the body of one callable.
type frame struct {
	run      *run
	callable Callable
	locals   map[string]Symbol
	returns  []typenode.Descriptor
}

// newFrame seeds the environment with captured variables, shadowed by the
// declared parameters.
func newFrame(r *run, c Callable) *frame {
	f := &frame{run: r, callable: c, locals: make(map[string]Symbol)}
	for name, sym := range c.Captured() {
		f.locals[name] = sym
	}
	for _, p := range c.Params() {
		if p.Name == "" || p.Name == "_" {
			continue
		}
		f.locals[p.Name] = Value(p.Type)
	}
	return f
}

// lookup resolves a name against locals, then the defining scope, then the
// predeclared identifiers.
func (f *frame) lookup(name string) (Symbol, bool) {
	if sym, ok := f.locals[name]; ok {
		return sym, true
	}
	if sym, ok := f.callable.Lookup(name); ok {
		return sym, true
	}
	return predeclared(name)
}

func (f *frame) bind(name string, sym Symbol) {
	if name == "" || name == "_" {
		return
	}
	f.locals[name] = sym
}

func (f *frame) block(b *ast.BlockStmt) {
	if b == nil {
		return
	}
	for _, s := range b.List {
		f.stmt(s)
	}
}

func (f *frame) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		f.block(s)
	case *ast.AssignStmt:
		f.assign(s)
	case *ast.DeclStmt:
		f.decl(s)
	case *ast.ReturnStmt:
		f.returns = append(f.returns, f.result(s))
	case *ast.LabeledStmt:
		f.stmt(s.Stmt)
	case *ast.IfStmt:
		if s.Init != nil {
			f.stmt(s.Init)
		}
		f.block(s.Body)
		if s.Else != nil {
			f.stmt(s.Else)
		}
	case *ast.ForStmt:
		if s.Init != nil {
			f.stmt(s.Init)
		}
		f.block(s.Body)
	case *ast.RangeStmt:
		f.rangeVars(s)
		f.block(s.Body)
	case *ast.SwitchStmt:
		if s.Init != nil {
			f.stmt(s.Init)
		}
		f.clauses(s.Body)
	case *ast.TypeSwitchStmt:
		if s.Init != nil {
			f.stmt(s.Init)
		}
		f.clauses(s.Body)
	case *ast.SelectStmt:
		f.clauses(s.Body)
	}
}

func (f *frame) clauses(body *ast.BlockStmt) {
	if body == nil {
		return
	}
	for _, c := range body.List {
		switch c := c.(type) {
		case *ast.CaseClause:
			for _, s := range c.Body {
				f.stmt(s)
			}
		case *ast.CommClause:
			for _, s := range c.Body {
				f.stmt(s)
			}
		}
	}
}

func (f *frame) assign(s *ast.AssignStmt) {
	if s.Tok != token.DEFINE && s.Tok != token.ASSIGN {
		return
	}
	if len(s.Lhs) == len(s.Rhs) {
		for i, lhs := range s.Lhs {
			if id, ok := lhs.(*ast.Ident); ok {
				f.bind(id.Name, f.symbolOf(s.Rhs[i]))
			}
		}
		return
	}
	if len(s.Rhs) != 1 {
		return
	}
	// a, err := f() and friends. Declared results leave out a trailing
	// error, so a tuple one short of the names binds positionally.
	t := f.typeOf(s.Rhs[0])
	positional := isTuple(t) && (len(t.Args()) == len(s.Lhs) || len(t.Args()) == len(s.Lhs)-1)
	for i, lhs := range s.Lhs {
		id, ok := lhs.(*ast.Ident)
		if !ok {
			continue
		}
		switch {
		case positional && i < len(t.Args()):
			f.bind(id.Name, Value(t.Args()[i]))
		case i == 0 && !positional:
			f.bind(id.Name, Value(t))
		default:
			delete(f.locals, id.Name)
		}
	}
}

// symbolOf binds function literals as callables and everything else as a
// value of its inferred type.
func (f *frame) symbolOf(e ast.Expr) Symbol {
	if lit, ok := ast.Unparen(e).(*ast.FuncLit); ok {
		return Func(f.closure(lit))
	}
	return Value(f.typeOf(e))
}

func (f *frame) decl(s *ast.DeclStmt) {
	gen, ok := s.Decl.(*ast.GenDecl)
	if !ok {
		return
	}
	for _, spec := range gen.Specs {
		switch spec := spec.(type) {
		case *ast.ValueSpec:
			f.valueSpec(spec)
		case *ast.TypeSpec:
			if t, ok := f.annotation(spec.Type); ok {
				f.bind(spec.Name.Name, TypeName(t))
			}
		}
	}
}

// valueSpec binds var and const declarations. A declared type wins over
// the values.
func (f *frame) valueSpec(spec *ast.ValueSpec) {
	if spec.Type != nil {
		t, ok := f.annotation(spec.Type)
		for _, n := range spec.Names {
			if ok {
				f.bind(n.Name, Value(t))
			} else {
				delete(f.locals, n.Name)
			}
		}
		return
	}
	for i, n := range spec.Names {
		if i < len(spec.Values) {
			f.bind(n.Name, f.symbolOf(spec.Values[i]))
		}
	}
}

// annotation resolves a declared type: statically when possible, otherwise
// through the checker if evaluation is allowed.
func (f *frame) annotation(expr ast.Expr) (typenode.Descriptor, bool) {
	if t, ok := f.typeExpr(expr); ok {
		return t, true
	}
	log := f.run.engine.logger
	if !f.run.engine.allowEval {
		log.Debug("type annotation not resolved", "callable", f.callable.Name(), "expr", exprString(expr))
		return nil, false
	}
	t, err := f.callable.Eval(expr)
	if err != nil || t == nil {
		log.Warn("evaluating type annotation failed", "callable", f.callable.Name(), "expr", exprString(expr), "err", err)
		return nil, false
	}
	return t, true
}

func (f *frame) rangeVars(s *ast.RangeStmt) {
	if s.Tok != token.DEFINE {
		return
	}
	x := f.typeOf(s.X)
	var key, value typenode.Descriptor
	if x != nil {
		switch x.Origin() {
		case typenode.Sequence:
			key = descriptor.Int()
			if len(x.Args()) == 1 {
				value = x.Args()[0]
			}
		case typenode.Mapping:
			if len(x.Args()) == 2 {
				key, value = x.Args()[0], x.Args()[1]
			}
		case typenode.String:
			key, value = descriptor.Int(), descriptor.Int()
		case typenode.Int:
			key = descriptor.Int()
		}
	}
	if id, ok := s.Key.(*ast.Ident); ok {
		f.bind(id.Name, Value(key))
	}
	if id, ok := s.Value.(*ast.Ident); ok {
		f.bind(id.Name, Value(value))
	}
}

// result types the value of a return statement. A trailing error result is
// not part of the payload.
func (f *frame) result(s *ast.ReturnStmt) typenode.Descriptor {
	results := s.Results
	if len(results) > 1 && f.callable.ErrorResult() {
		results = results[:len(results)-1]
	}
	switch len(results) {
	case 0:
		return descriptor.Void()
	case 1:
		return orAny(f.typeOf(results[0]))
	}
	return orAny(f.tuple(results))
}

func isTuple(t typenode.Descriptor) bool {
	return t != nil && t.Origin() == typenode.Tuple
}

func orAny(t typenode.Descriptor) typenode.Descriptor {
	if t == nil {
		return descriptor.Any()
	}
	return t
}
