package gosource

import (
	"errors"
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/infer"
	"github.com/typesync/typesync/internal/typenode"
)

// Func is a package-level function. It implements infer.Callable.
type Func struct {
	prog *Program
	obj  *types.Func
	pkg  *Package      // nil when the declaration has no syntax
	decl *ast.FuncDecl // nil when the declaration has no syntax
}

var _ infer.Callable = (*Func)(nil)

func (f *Func) Name() string {
	if pkg := f.obj.Pkg(); pkg != nil {
		return pkg.Name() + "." + f.obj.Name()
	}
	return f.obj.Name()
}

func (f *Func) signature() *types.Signature {
	return f.obj.Type().(*types.Signature)
}

func (f *Func) Params() []infer.Param {
	sig := f.signature()
	out := make([]infer.Param, sig.Params().Len())
	for i := range out {
		v := sig.Params().At(i)
		out[i] = infer.Param{Name: v.Name(), Type: f.prog.describe(v.Type())}
	}
	return out
}

// Result returns the declared result type: the results other than a
// trailing error, as a tuple when there are several. An interface result
// counts as undeclared.
func (f *Func) Result() (typenode.Descriptor, bool) {
	results := payloadResults(f.signature())
	switch len(results) {
	case 0:
		return descriptor.Void(), true
	case 1:
		if types.IsInterface(results[0]) {
			return nil, false
		}
		return f.prog.describe(results[0]), true
	}
	elems := make([]typenode.Descriptor, len(results))
	for i, t := range results {
		elems[i] = f.prog.describe(t)
	}
	return descriptor.Tuple(elems...), true
}

func (f *Func) ErrorResult() bool {
	res := f.signature().Results()
	return res.Len() > 0 && isError(res.At(res.Len()-1).Type())
}

func (f *Func) Body() (*ast.BlockStmt, error) {
	if f.decl == nil || f.decl.Body == nil {
		return nil, infer.ErrNoSource
	}
	return f.decl.Body, nil
}

func (f *Func) Captured() map[string]infer.Symbol { return nil }

// Lookup resolves package-level names and "pkg.Name" references through
// the imports of the declaring file.
func (f *Func) Lookup(name string) (infer.Symbol, bool) {
	if f.pkg == nil {
		return infer.Symbol{}, false
	}
	if qual, sel, ok := strings.Cut(name, "."); ok {
		file := f.pkg.fileOf(f.decl.Pos())
		if file == nil {
			return infer.Symbol{}, false
		}
		scope := f.pkg.Info.Scopes[file]
		if scope == nil {
			return infer.Symbol{}, false
		}
		pn, ok := scope.Lookup(qual).(*types.PkgName)
		if !ok {
			return infer.Symbol{}, false
		}
		return f.prog.symbol(pn.Imported().Scope().Lookup(sel))
	}
	return f.prog.symbol(f.pkg.Types.Scope().Lookup(name))
}

func (p *Program) symbol(obj types.Object) (infer.Symbol, bool) {
	switch obj := obj.(type) {
	case *types.TypeName:
		return infer.TypeName(p.describe(obj.Type())), true
	case *types.Func:
		return infer.Func(p.function(obj)), true
	case *types.Const:
		if v, ok := constValue(obj.Val()); ok {
			return infer.Value(descriptor.Literal(v)), true
		}
		return infer.Value(p.describe(obj.Type())), true
	case *types.Var:
		return infer.Value(p.describe(obj.Type())), true
	}
	return infer.Symbol{}, false
}

// Eval resolves a type expression with the type checker, in the scope the
// expression appears in.
func (f *Func) Eval(expr ast.Expr) (typenode.Descriptor, error) {
	if f.pkg == nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), infer.ErrNoSource)
	}
	tv, err := types.Eval(f.prog.Fset, f.pkg.Types, expr.Pos(), types.ExprString(expr))
	if err != nil {
		return nil, err
	}
	if !tv.IsType() {
		return nil, fmt.Errorf("%s is not a type", types.ExprString(expr))
	}
	return f.prog.describe(tv.Type), nil
}

// StaticType reports the checker's type for expr unless it is an
// interface, which says nothing about the value.
func (f *Func) StaticType(expr ast.Expr) (typenode.Descriptor, bool) {
	if f.pkg == nil || f.pkg.Info == nil {
		return nil, false
	}
	t := f.pkg.Info.TypeOf(expr)
	if t == nil || types.IsInterface(t) {
		return nil, false
	}
	return f.prog.describe(t), true
}

// BodyType returns the request body declared by a tsx.Body parameter.
func (f *Func) BodyType() (typenode.Descriptor, bool) {
	params := f.signature().Params()
	for i := range params.Len() {
		t := params.At(i).Type()
		if ptr, ok := t.(*types.Pointer); ok {
			t = ptr.Elem()
		}
		n, ok := types.Unalias(t).(*types.Named)
		if ok && n.Obj().Pkg() != nil && n.Obj().Pkg().Path() == TSXPath && n.Obj().Name() == "Body" {
			return f.prog.describe(n), true
		}
	}
	return nil, false
}

// Position returns the file and line of the declaration.
func (f *Func) Position() (string, int) {
	pos := f.prog.Fset.Position(f.obj.Pos())
	return pos.Filename, pos.Line
}

func payloadResults(sig *types.Signature) []types.Type {
	res := sig.Results()
	var out []types.Type
	for i := range res.Len() {
		t := res.At(i).Type()
		if i == res.Len()-1 && isError(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

var errorType = types.Universe.Lookup("error").Type()

func isError(t types.Type) bool {
	return types.Identical(t, errorType)
}

// ErrNotFunc reports a configured handler name that is not a package-level
// function.
var ErrNotFunc = errors.New("not a package-level function")
