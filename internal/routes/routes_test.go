package routes_test

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/typesync/typesync/internal/annotations"
	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/diagnostic"
	"github.com/typesync/typesync/internal/infer"
	"github.com/typesync/typesync/internal/routes"
	"github.com/typesync/typesync/internal/tstype"
	"github.com/typesync/typesync/internal/typenode"
)

// handler is a Handler backed by descriptors and, optionally, a function
// body in Go syntax.
type handler struct {
	name   string
	result typenode.Descriptor // nil = undeclared
	body   typenode.Descriptor
	src    string
}

func (h *handler) Name() string          { return h.name }
func (h *handler) Params() []infer.Param { return nil }
func (h *handler) ErrorResult() bool     { return false }

func (h *handler) Result() (typenode.Descriptor, bool) { return h.result, h.result != nil }

func (h *handler) Body() (*ast.BlockStmt, error) {
	if h.src == "" {
		return nil, infer.ErrNoSource
	}
	f, err := parser.ParseFile(token.NewFileSet(), "h.go", "package p\nfunc f() any {\n"+h.src+"\n}", 0)
	if err != nil {
		return nil, err
	}
	return f.Decls[0].(*ast.FuncDecl).Body, nil
}

func (h *handler) Captured() map[string]infer.Symbol               { return nil }
func (h *handler) Lookup(string) (infer.Symbol, bool)              { return infer.Symbol{}, false }
func (h *handler) Eval(ast.Expr) (typenode.Descriptor, error)      { return nil, errors.New("no eval") }
func (h *handler) StaticType(ast.Expr) (typenode.Descriptor, bool) { return nil, false }
func (h *handler) BodyType() (typenode.Descriptor, bool)           { return h.body, h.body != nil }
func (h *handler) Position() (string, int)                         { return "api.go", 12 }

func mustRule(t *testing.T, pattern string) *routes.Rule {
	t.Helper()
	r, err := routes.ParseRule(pattern)
	if err != nil {
		t.Fatalf("ParseRule(%q) error = %v", pattern, err)
	}
	return r
}

func mustRoute(t *testing.T, name, pattern string, methods []string, h *handler) *routes.Route {
	t.Helper()
	r, err := routes.New(name, mustRule(t, pattern), methods, map[string]routes.Handler{"": h}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func text(t tstype.Type) string {
	return tstype.NewRenderer().Render(t, "Ret")
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		pattern  string
		url      string
		method   string
		segments []routes.Segment
	}{
		{"/users", "/users", "", nil},
		{"/users/<int:id>", "/users/<id>", "", []routes.Segment{{Name: "id", Converter: "int"}}},
		{"/files/<path:rest>", "/files/<rest>", "", []routes.Segment{{Name: "rest", Converter: "path"}}},
		{"/a/<name>/<float:x>", "/a/<name>/<x>", "", []routes.Segment{{Name: "name"}, {Name: "x", Converter: "float"}}},
		{"/n/<string(length=2):code>", "/n/<code>", "", []routes.Segment{{Name: "code", Converter: "string"}}},
		{"GET /items/{id}", "/items/<id>", "GET", []routes.Segment{{Name: "id"}}},
		{"/static/{file...}", "/static/<file>", "", []routes.Segment{{Name: "file", Converter: "path"}}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			r := mustRule(t, tt.pattern)
			if r.URL() != tt.url {
				t.Errorf("URL() = %q, want %q", r.URL(), tt.url)
			}
			if r.Method != tt.method {
				t.Errorf("Method = %q, want %q", r.Method, tt.method)
			}
			if diff := cmp.Diff(tt.segments, r.Segments); diff != "" {
				t.Errorf("Segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRule_Errors(t *testing.T) {
	for _, pattern := range []string{"users", "/a/<id>/<id>", "/a/<int:id", "/a/{id"} {
		if _, err := routes.ParseRule(pattern); err == nil {
			t.Errorf("ParseRule(%q) error = nil, want error", pattern)
		}
	}
}

func TestNew(t *testing.T) {
	h := &handler{name: "h", result: descriptor.String()}
	r := mustRoute(t, "items", "POST /items", nil, h)
	if diff := cmp.Diff([]string{"POST"}, r.Methods); diff != "" {
		t.Errorf("Methods mismatch (-want +got):\n%s", diff)
	}
	r = mustRoute(t, "items", "/items", []string{"get", "put", "GET"}, h)
	if diff := cmp.Diff([]string{"GET", "PUT"}, r.Methods); diff != "" {
		t.Errorf("Methods mismatch (-want +got):\n%s", diff)
	}
	r = mustRoute(t, "items", "/items", nil, h)
	if diff := cmp.Diff([]string{"GET"}, r.Methods); diff != "" {
		t.Errorf("Methods mismatch (-want +got):\n%s", diff)
	}

	if _, err := routes.New("x", mustRule(t, "/x"), []string{"FETCH"}, map[string]routes.Handler{"": h}, nil); err == nil {
		t.Error("unknown method accepted")
	}
	if _, err := routes.New("x", mustRule(t, "/x"), []string{"POST"}, map[string]routes.Handler{"GET": h}, nil); err == nil {
		t.Error("method without handler accepted")
	}
}

func TestExtract_Args(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"/u/<int:id>", "{id: number;}"},
		{"/u/<float:id>", "{id: number;}"},
		{"/u/<path:id>", "{id: string;}"},
		{"/u/<uuid:id>", "{id: string;}"},
		{"/u/<id>", "{id: string;}"},
		{"/u/{id}", "{id: string;}"},
		{"/u", "undefined"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			r := mustRoute(t, "u", tt.pattern, nil, &handler{name: "h", result: descriptor.String()})
			units, err := routes.NewExtractor(routes.Options{}).Extract(r)
			if err != nil {
				t.Fatal(err)
			}
			if got := text(units[0].Args); got != tt.want {
				t.Errorf("Args = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtract_Modes(t *testing.T) {
	user := descriptor.NewRecord("User").Field("id", descriptor.Int()).Field("name", descriptor.String())
	h := &handler{
		name:   "api.Save",
		result: descriptor.Annotated(user.Of(), annotations.Methods("POST")),
		body:   user.Of(),
	}
	r := mustRoute(t, "user", "/user/<int:id>", []string{"GET", "POST"}, h)
	units, err := routes.NewExtractor(routes.Options{}).Extract(r)
	if err != nil {
		t.Fatal(err)
	}
	type got struct{ Method, Return, Args, Body string }
	var gots []got
	for _, u := range units {
		gots = append(gots, got{u.Method, text(u.Return), text(u.Args), text(u.Body)})
	}
	want := []got{
		{"GET", "never", "{id: number;}", "{id: number; name: string;}"},
		{"POST", "{id: number; name: string;}", "{id: number;}", "{id: number; name: string;}"},
	}
	if diff := cmp.Diff(want, gots); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_BodyLoader(t *testing.T) {
	h := &handler{name: "h", result: descriptor.Void()}
	loader := &handler{name: "load", src: `return map[string]int{"a": 1}`}
	r, err := routes.New("r", mustRule(t, "/r"), []string{"POST"}, map[string]routes.Handler{"POST": h}, loader)
	if err != nil {
		t.Fatal(err)
	}
	units, err := routes.NewExtractor(routes.Options{Engine: infer.New(infer.Options{})}).Extract(r)
	if err != nil {
		t.Fatal(err)
	}
	if got := text(units[0].Body); got != "Record<string, number>" {
		t.Errorf("Body = %s, want Record<string, number>", got)
	}
	if got := text(units[0].Return); got != "undefined" {
		t.Errorf("Return = %s, want undefined", got)
	}
}

func TestExtract_Inference(t *testing.T) {
	h := &handler{name: "h", src: `if true { return "a" }; return "b"`}
	r := mustRoute(t, "r", "/r", nil, h)

	t.Run("enabled", func(t *testing.T) {
		units, err := routes.NewExtractor(routes.Options{Engine: infer.New(infer.Options{})}).Extract(r)
		if err != nil {
			t.Fatal(err)
		}
		if got := text(units[0].Return); got != `"a" | "b"` {
			t.Errorf("Return = %s, want \"a\" | \"b\"", got)
		}
		if !units[0].Inferred {
			t.Error("Inferred = false")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		diags := diagnostic.NewCollector(false, false)
		units, err := routes.NewExtractor(routes.Options{Diagnostics: diags}).Extract(r)
		if err != nil {
			t.Fatal(err)
		}
		if !units[0].Failed || text(units[0].Return) != "unknown" {
			t.Errorf("unit = %+v, want failed with unknown return", units[0])
		}
		d := diags.Diagnostics()
		if len(d) != 1 || d[0].Category != diagnostic.CategoryInferenceUnavailable {
			t.Fatalf("diagnostics = %v", d)
		}
		if d[0].Location.File != "api.go" || d[0].Location.Line != 12 {
			t.Errorf("location = %+v", d[0].Location)
		}
	})

	t.Run("skip unannotated", func(t *testing.T) {
		units, err := routes.NewExtractor(routes.Options{SkipUnannotated: true}).Extract(r)
		if err != nil {
			t.Fatal(err)
		}
		if len(units) != 0 {
			t.Errorf("got %d units, want 0", len(units))
		}
	})
}

func TestExtract_Skip(t *testing.T) {
	h := &handler{name: "h", result: descriptor.Annotated(descriptor.String(), annotations.Skip{})}
	units, err := routes.NewExtractor(routes.Options{}).Extract(mustRoute(t, "r", "/r", nil, h))
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 0 {
		t.Errorf("got %d units, want 0", len(units))
	}
}

func TestExtract_Unsupported(t *testing.T) {
	h := &handler{name: "h", result: descriptor.Opaque("chan int")}
	ok := &handler{name: "ok", result: descriptor.String()}
	bad := mustRoute(t, "bad", "/bad", nil, h)
	good := mustRoute(t, "good", "/good", nil, ok)

	diags := diagnostic.NewCollector(false, false)
	units, err := routes.NewExtractor(routes.Options{Diagnostics: diags}).ExtractAll([]*routes.Route{bad, good})
	if err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}
	if len(units) != 2 || !units[0].Failed || units[1].Failed {
		t.Fatalf("units = %+v", units)
	}
	if text(units[0].Return) != "unknown" {
		t.Errorf("failed return = %s, want unknown", text(units[0].Return))
	}
	if !diags.HasErrors() {
		t.Error("no error diagnostic recorded")
	}

	units, err = routes.NewExtractor(routes.Options{StopOnError: true}).ExtractAll([]*routes.Route{bad, good})
	if !errors.Is(err, routes.ErrUnitFailed) {
		t.Fatalf("ExtractAll() error = %v, want ErrUnitFailed", err)
	}
	if len(units) != 0 {
		t.Errorf("got %d units before stopping, want 0", len(units))
	}
}
