package gosource_test

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/typesync/typesync/internal/annotations"
	"github.com/typesync/typesync/internal/gosource"
	"github.com/typesync/typesync/internal/infer"
	"github.com/typesync/typesync/internal/translate"
	"github.com/typesync/typesync/internal/tstype"
	"github.com/typesync/typesync/internal/typenode"
)

const apiSource = `package api

import "github.com/typesync/typesync/tsx"

type Status string

const (
	StatusActive Status = "active"
	StatusBanned Status = "banned"
)

type User struct {
	ID      int      ` + "`json:\"id\"`" + `
	Name    string   ` + "`json:\"name\"`" + `
	Email   *string  ` + "`json:\"email,omitempty\"`" + `
	Tags    []string ` + "`json:\"tags\"`" + `
	Status  Status   ` + "`json:\"status\"`" + `
	secret  string
	Ignored string ` + "`json:\"-\"`" + `
}

type Base struct {
	CreatedAt string ` + "`json:\"created_at\"`" + `
}

type Post struct {
	Base
	Title string ` + "`json:\"title\"`" + `
}

type Page[T any] struct {
	Items []T  ` + "`json:\"items\"`" + `
	Next  *int ` + "`json:\"next\"`" + `
}

type Tree struct {
	Value    int    ` + "`json:\"value\"`" + `
	Children []Tree ` + "`json:\"children\"`" + `
}

type Signup struct {
	Email string ` + "`json:\"email\" validate:\"required,email\"`" + `
	Name  string ` + "`json:\"name\" validate:\"max=20\"`" + `
}

type Nested []Nested

type Pair[T any] = tsx.Tuple2[T, T]

func GetUser() User                       { return User{} }
func GetPost() Post                       { return Post{} }
func ListTitles() (Page[string], error)   { return Page[string]{}, nil }
func GetTree() Tree                       { return Tree{} }
func GetStatus() Status                   { return StatusActive }
func Either() tsx.Union2[string, int]     { return tsx.Union2[string, int]{} }
func OnlyGet() tsx.ForGet[string]         { return tsx.ForGet[string]{} }
func Skipped() tsx.SkipGeneration[User]   { return tsx.SkipGeneration[User]{} }
func Variadic() tsx.Tuple2[int, tsx.Ellipsis] { return tsx.Tuple2[int, tsx.Ellipsis]{} }
func PairOf() Pair[string]                { return Pair[string]{} }
func Remove() error                       { return nil }
func Raw() []byte                         { return nil }
func Nest() Nested                        { return nil }

func CreateUser(body tsx.Body[Signup]) (tsx.Response[User], error) {
	return tsx.Response[User]{}, nil
}

func Untyped() any {
	return User{ID: 1}
}

func Evaluated() any {
	var v Page[int]
	return v
}

func Active() any {
	return StatusActive
}
`

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

func newInfo() *types.Info {
	return &types.Info{
		Types:     make(map[ast.Expr]types.TypeAndValue),
		Defs:      make(map[*ast.Ident]types.Object),
		Uses:      make(map[*ast.Ident]types.Object),
		Scopes:    make(map[ast.Node]*types.Scope),
		Instances: make(map[*ast.Ident]types.Instance),
	}
}

// check type-checks src against the real tsx marker source.
func check(t *testing.T, src string) *gosource.Package {
	t.Helper()
	fset := token.NewFileSet()
	tsxSrc, err := os.ReadFile(filepath.Join("..", "..", "tsx", "tsx.go"))
	if err != nil {
		t.Fatalf("reading tsx: %v", err)
	}
	tsxFile, err := parser.ParseFile(fset, "tsx.go", tsxSrc, 0)
	if err != nil {
		t.Fatalf("parsing tsx: %v", err)
	}
	tsxPkg, err := (&types.Config{}).Check(gosource.TSXPath, fset, []*ast.File{tsxFile}, nil)
	if err != nil {
		t.Fatalf("checking tsx: %v", err)
	}

	file, err := parser.ParseFile(fset, "api.go", src, 0)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	conf := &types.Config{Importer: importerFunc(func(path string) (*types.Package, error) {
		if path == gosource.TSXPath {
			return tsxPkg, nil
		}
		return nil, fmt.Errorf("unexpected import %s", path)
	})}
	info := newInfo()
	pkg, err := conf.Check("example.com/api", fset, []*ast.File{file}, info)
	if err != nil {
		t.Fatalf("checking: %v", err)
	}
	return gosource.NewProgram(fset, nil).Add(pkg, info, []*ast.File{file})
}

func render(t *testing.T, d typenode.Descriptor, method string) string {
	t.Helper()
	ctx := &translate.Context{Method: method}
	out, err := translate.NewRegistry().NewChain(ctx).Translate(typenode.Build(d), nil)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	root, decls := tstype.Hoist(out, "Ret")
	r := tstype.NewRenderer()
	parts := []string{r.Render(root, "Ret")}
	for _, decl := range decls {
		parts = append(parts, decl.Name+" = "+r.Render(decl.Type, decl.Name))
	}
	return strings.Join(parts, "; ")
}

func TestDeclaredResults(t *testing.T) {
	pkg := check(t, apiSource)
	tests := []struct {
		handler string
		method  string
		want    string
	}{
		{"GetUser", "GET", `{id: number; name: string; email?: string | null; tags: string[]; status: "active" | "banned";}`},
		{"GetPost", "GET", "{created_at: string; title: string;}"},
		{"ListTitles", "GET", "{items: string[]; next: number | null;}"},
		{"GetTree", "GET", "{value: number; children: Ret[];}"},
		{"GetStatus", "GET", `"active" | "banned"`},
		{"Either", "GET", "string | number"},
		{"OnlyGet", "GET", "string"},
		{"OnlyGet", "POST", "never"},
		{"Variadic", "GET", "number[]"},
		{"PairOf", "GET", "[string, string]"},
		{"Remove", "DELETE", "undefined"},
		{"Raw", "GET", "string"},
		{"Nest", "GET", "Ret[]"},
		{"CreateUser", "POST", `{id: number; name: string; email?: string | null; tags: string[]; status: "active" | "banned";}`},
	}
	for _, tt := range tests {
		t.Run(tt.handler+" "+tt.method, func(t *testing.T) {
			fn, err := pkg.Func(tt.handler)
			if err != nil {
				t.Fatal(err)
			}
			d, ok := fn.Result()
			if !ok {
				t.Fatalf("Result() reported no declared type")
			}
			if got := render(t, d, tt.method); got != tt.want {
				t.Errorf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBodyType(t *testing.T) {
	pkg := check(t, apiSource)
	fn, err := pkg.Func("CreateUser")
	if err != nil {
		t.Fatal(err)
	}
	d, ok := fn.BodyType()
	if !ok {
		t.Fatal("BodyType() found no body parameter")
	}
	if got, want := render(t, d, "POST"), "{email: string; name?: string;}"; got != want {
		t.Errorf("BodyType() = %s, want %s", got, want)
	}

	get, _ := pkg.Func("GetUser")
	if _, ok := get.BodyType(); ok {
		t.Error("GetUser has no body parameter")
	}
}

func TestSkipAnnotation(t *testing.T) {
	pkg := check(t, apiSource)
	fn, _ := pkg.Func("Skipped")
	d, _ := fn.Result()
	node := typenode.Build(d)
	if node.Kind() != typenode.KindAnnotated {
		t.Fatalf("Skipped result kind = %s, want annotated", node.Kind())
	}
	if _, ok := node.Annotation.(annotations.Skip); !ok {
		t.Errorf("annotation = %v, want Skip", node.Annotation)
	}
}

func TestUndeclaredResults(t *testing.T) {
	pkg := check(t, apiSource)
	tests := []struct {
		handler   string
		allowEval bool
		want      string
	}{
		{"Untyped", false, "User"},
		{"Active", false, `literal["active"]`},
		{"Evaluated", false, "any"},
		{"Evaluated", true, "Page[int]"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s eval=%v", tt.handler, tt.allowEval), func(t *testing.T) {
			fn, err := pkg.Func(tt.handler)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := fn.Result(); ok {
				t.Fatalf("Result() reported a declared type")
			}
			d, err := infer.New(infer.Options{AllowEval: tt.allowEval}).Infer(fn)
			if err != nil {
				t.Fatalf("Infer() error = %v", err)
			}
			if got := typenode.Build(d).String(); got != tt.want {
				t.Errorf("Infer() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFunc_NotFound(t *testing.T) {
	pkg := check(t, apiSource)
	for _, name := range []string{"Missing", "User", "StatusActive"} {
		if _, err := pkg.Func(name); err == nil {
			t.Errorf("Func(%q) error = nil, want error", name)
		}
	}
}

func TestModulePath(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/shop\n\ngo 1.26\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "internal", "api")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := gosource.ModulePath(sub)
	if err != nil {
		t.Fatalf("ModulePath() error = %v", err)
	}
	if got != "example.com/shop" {
		t.Errorf("ModulePath() = %q, want example.com/shop", got)
	}

	tests := []struct {
		ref  string
		want string
	}{
		{"./api", "example.com/shop/api"},
		{".", "example.com/shop"},
		{"example.com/other/pkg", "example.com/other/pkg"},
	}
	for _, tt := range tests {
		got, err := gosource.ImportPath(root, tt.ref)
		if err != nil {
			t.Fatalf("ImportPath(%q) error = %v", tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("ImportPath(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
