package infer_test

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/infer"
	"github.com/typesync/typesync/internal/typenode"
)

// source is a parsed file whose top-level functions act as callables.
type source struct {
	funcs map[string]*srcFunc
	types map[string]typenode.Descriptor
	eval  func(ast.Expr) (typenode.Descriptor, error)
}

type srcFunc struct {
	src  *source
	decl *ast.FuncDecl
}

func parse(t *testing.T, body string, types map[string]typenode.Descriptor) *source {
	t.Helper()
	file, err := parser.ParseFile(token.NewFileSet(), "handlers.go", "package handlers\n"+body, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	src := &source{funcs: make(map[string]*srcFunc), types: types}
	for _, d := range file.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok {
			src.funcs[fd.Name.Name] = &srcFunc{src: src, decl: fd}
		}
	}
	return src
}

func (s *source) resolve(e ast.Expr) (typenode.Descriptor, bool) {
	switch e := e.(type) {
	case *ast.Ident:
		switch e.Name {
		case "string":
			return descriptor.String(), true
		case "int":
			return descriptor.Int(), true
		case "bool":
			return descriptor.Bool(), true
		case "any":
			return descriptor.Any(), true
		}
		t, ok := s.types[e.Name]
		return t, ok
	case *ast.ArrayType:
		elem, ok := s.resolve(e.Elt)
		if !ok {
			return nil, false
		}
		return descriptor.List(elem), true
	}
	return nil, false
}

func (f *srcFunc) Name() string { return f.decl.Name.Name }

func (f *srcFunc) Params() []infer.Param {
	var params []infer.Param
	for _, field := range f.decl.Type.Params.List {
		t, _ := f.src.resolve(field.Type)
		for _, n := range field.Names {
			params = append(params, infer.Param{Name: n.Name, Type: t})
		}
	}
	return params
}

func (f *srcFunc) Result() (typenode.Descriptor, bool) {
	results := f.decl.Type.Results
	if results == nil {
		return descriptor.Void(), true
	}
	fields := results.List
	if f.ErrorResult() {
		fields = fields[:len(fields)-1]
	}
	var elems []typenode.Descriptor
	for _, field := range fields {
		t, ok := f.src.resolve(field.Type)
		if !ok || t.Origin() == typenode.Any {
			return nil, false
		}
		for range max(len(field.Names), 1) {
			elems = append(elems, t)
		}
	}
	switch len(elems) {
	case 0:
		return descriptor.Void(), true
	case 1:
		return elems[0], true
	}
	return descriptor.Tuple(elems...), true
}

func (f *srcFunc) ErrorResult() bool {
	results := f.decl.Type.Results
	if results == nil {
		return false
	}
	id, ok := results.List[len(results.List)-1].Type.(*ast.Ident)
	return ok && id.Name == "error"
}

func (f *srcFunc) Body() (*ast.BlockStmt, error) {
	if f.decl.Body == nil {
		return nil, infer.ErrNoSource
	}
	return f.decl.Body, nil
}

func (f *srcFunc) Captured() map[string]infer.Symbol { return nil }

func (f *srcFunc) Lookup(name string) (infer.Symbol, bool) {
	if fn, ok := f.src.funcs[name]; ok {
		return infer.Func(fn), true
	}
	if t, ok := f.src.types[name]; ok {
		return infer.TypeName(t), true
	}
	return infer.Symbol{}, false
}

func (f *srcFunc) Eval(expr ast.Expr) (typenode.Descriptor, error) {
	if f.src.eval == nil {
		return nil, errors.New("no evaluator")
	}
	return f.src.eval(expr)
}

func (f *srcFunc) StaticType(ast.Expr) (typenode.Descriptor, bool) { return nil, false }

func userType() typenode.Descriptor {
	return descriptor.NewRecord("User").Field("name", descriptor.String()).Of()
}

func TestInfer(t *testing.T) {
	types := map[string]typenode.Descriptor{"User": userType()}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "merges string literals",
			src: `func handler(x int) any {
	if x > 0 {
		return "a"
	}
	return "b"
}`,
			want: `literal["a", "b"]`,
		},
		{
			name: "true and false become bool",
			src: `func handler(x int) any {
	if x > 0 {
		return true
	}
	return false
}`,
			want: "bool",
		},
		{
			name: "keeps a small literal set",
			src: `func handler(x int) any {
	switch x {
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 3
	}
	return 4
}`,
			want: "literal[1, 2, 3, 4]",
		},
		{
			name: "widens a large literal set",
			src: `func handler(x int) any {
	switch x {
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 3
	case 4:
		return 4
	}
	return 5
}`,
			want: "int",
		},
		{
			name: "literal and its scalar",
			src: `func handler(x int) any {
	var s string
	if x > 0 {
		return s
	}
	return "a"
}`,
			want: "string",
		},
		{
			name: "no return is void",
			src: `func handler() any {
	println("hi")
}`,
			want: "void",
		},
		{
			name: "incompatible containers become bare",
			src: `func handler(x int) any {
	if x > 0 {
		return []string{"a"}
	}
	return []int{1}
}`,
			want: "list",
		},
		{
			name: "unrelated types stay a union",
			src: `func handler(x int) any {
	if x > 0 {
		return "a"
	}
	return []int{}
}`,
			want: `union[literal["a"], list[int]]`,
		},
		{
			name: "trailing error is dropped",
			src: `func handler() (any, error) {
	return map[string]int{}, nil
}`,
			want: "dict[string, int]",
		},
		{
			name: "declared callee result",
			src: `func load() User { return User{} }
func handler() any {
	return load()
}`,
			want: "User",
		},
		{
			name: "undeclared callee is inferred",
			src: `func helper() any { return 1 }
func handler() any {
	return helper()
}`,
			want: "literal[1]",
		},
		{
			name: "self call is unknown",
			src: `func handler(n int) any {
	if n == 0 {
		return "done"
	}
	return handler(n - 1)
}`,
			want: `union[literal["done"], any]`,
		},
		{
			name: "closure sees captured locals",
			src: `func handler() any {
	name := "x"
	get := func() any { return name }
	return get()
}`,
			want: `literal["x"]`,
		},
		{
			name: "interface map values are refined",
			src: `func handler() any {
	return map[string]any{"a": 1, "b": "x"}
}`,
			want: `dict[string, literal[1, "x"]]`,
		},
		{
			name: "empty interface slice is bare",
			src: `func handler() any {
	return []any{}
}`,
			want: "list",
		},
		{
			name: "conversion",
			src: `func handler(b []byte) any {
	return string(b)
}`,
			want: "string",
		},
		{
			name: "address of composite literal",
			src: `func handler() any {
	return &User{name: "a"}
}`,
			want: "User",
		},
		{
			name: "multiple assignment from declared callee",
			src: `func load() (User, error) { return User{}, nil }
func handler() (any, error) {
	u, err := load()
	if err != nil {
		return nil, err
	}
	return u, nil
}`,
			want: "union[null, User]",
		},
		{
			name: "several results before a trailing error",
			src: `func load() (User, string, error) { return User{}, "", nil }
func handler() (any, error) {
	u, etag, err := load()
	if err != nil {
		return nil, err
	}
	_ = etag
	return u, nil
}`,
			want: "union[null, User]",
		},
		{
			name: "second of several results",
			src: `func load() (User, string, error) { return User{}, "", nil }
func handler() (any, error) {
	_, etag, err := load()
	if err != nil {
		return nil, err
	}
	return etag, nil
}`,
			want: "union[null, string]",
		},
		{
			name: "declared local type",
			src: `func handler() any {
	var names []string
	return names
}`,
			want: "list[string]",
		},
		{
			name: "range over slice",
			src: `func handler(xs []string) any {
	for _, x := range xs {
		return x
	}
	return nil
}`,
			want: "union[string, null]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := parse(t, tt.src, types)
			got, err := infer.New(infer.Options{}).Infer(src.funcs["handler"])
			if err != nil {
				t.Fatalf("Infer() error = %v", err)
			}
			if s := typenode.Build(got).String(); s != tt.want {
				t.Errorf("Infer() = %s, want %s", s, tt.want)
			}
		})
	}
}

func TestInfer_NoSource(t *testing.T) {
	src := parse(t, "func handler() any", nil)
	_, err := infer.New(infer.Options{}).Infer(src.funcs["handler"])
	if !errors.Is(err, infer.ErrInferenceUnavailable) {
		t.Fatalf("Infer() error = %v, want ErrInferenceUnavailable", err)
	}
	if !errors.Is(err, infer.ErrNoSource) {
		t.Errorf("Infer() error = %v, want it to wrap ErrNoSource", err)
	}
}

func TestInfer_Eval(t *testing.T) {
	body := `func handler() any {
	var v pkg.Thing
	return v
}`
	tests := []struct {
		name      string
		allowEval bool
		want      string
	}{
		{name: "disabled leaves the symbol unbound", allowEval: false, want: "any"},
		{name: "enabled uses the evaluator", allowEval: true, want: "string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := parse(t, body, nil)
			src.eval = func(ast.Expr) (typenode.Descriptor, error) { return descriptor.String(), nil }
			got, err := infer.New(infer.Options{AllowEval: tt.allowEval}).Infer(src.funcs["handler"])
			if err != nil {
				t.Fatalf("Infer() error = %v", err)
			}
			if s := typenode.Build(got).String(); s != tt.want {
				t.Errorf("Infer() = %s, want %s", s, tt.want)
			}
		})
	}
}

func TestInfer_EvalFailureLeavesUnbound(t *testing.T) {
	src := parse(t, `func handler() any {
	var v pkg.Thing
	return v
}`, nil)
	src.eval = func(ast.Expr) (typenode.Descriptor, error) { return nil, errors.New("boom") }
	got, err := infer.New(infer.Options{AllowEval: true}).Infer(src.funcs["handler"])
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if s := typenode.Build(got).String(); s != "any" {
		t.Errorf("Infer() = %s, want any", s)
	}
}
