package translate

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/typesync/typesync/internal/annotations"
	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/diagnostic"
	"github.com/typesync/typesync/internal/tstype"
	"github.com/typesync/typesync/internal/typenode"
)

// render translates d under ctx and renders it as the type "Ret", followed
// by any hoisted helper declarations as "Name = text".
func render(t *testing.T, reg *Registry, ctx *Context, d typenode.Descriptor) string {
	t.Helper()
	out, err := reg.NewChain(ctx).Translate(typenode.Build(d), nil)
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

func variadic(elem typenode.Descriptor) typenode.Descriptor {
	return descriptor.Tuple(elem, descriptor.Ellipsis())
}

func TestTranslate_Shapes(t *testing.T) {
	alias1 := descriptor.NewAlias("Alias1", "A")
	alias1.Define(descriptor.List(alias1.P(0)))
	alias2 := descriptor.NewAlias("Alias2", "B")
	alias2.Define(alias1.Of(alias2.P(0)))
	aliasedArgs := descriptor.NewAlias("AliasedArgs", "A", "B")
	aliasedArgs.Define(descriptor.Dict(
		descriptor.String(),
		descriptor.Tuple(alias1.Of(aliasedArgs.P(1)), alias2.Of(aliasedArgs.P(0))),
	))

	inner := descriptor.NewAlias("Inner", "T")
	inner.Define(descriptor.List(inner.P(0)))
	outer := descriptor.NewAlias("Outer", "U")
	outer.Define(descriptor.List(inner.Of(outer.P(0))))

	tests := []struct {
		name string
		in   typenode.Descriptor
		want string
	}{
		{"string", descriptor.String(), "string"},
		{"int", descriptor.Int(), "number"},
		{"float", descriptor.Float(), "number"},
		{"bool", descriptor.Bool(), "boolean"},
		{"none", descriptor.None(), "null"},
		{"void", descriptor.Void(), "undefined"},
		{"any", descriptor.Any(), "unknown"},
		{"never", descriptor.Never(), "never"},
		{"list", descriptor.List(descriptor.Int()), "number[]"},
		{"tuple", descriptor.Tuple(descriptor.String(), descriptor.Int()), "[string, number]"},
		{"variadic tuple", variadic(descriptor.String()), "string[]"},
		{"dict", descriptor.Dict(descriptor.String(), descriptor.Int()), "Record<string, number>"},
		{"optional", descriptor.Optional(descriptor.Int()), "number | null"},
		{
			"nested union flattens",
			descriptor.Union(descriptor.Union(descriptor.Int(), descriptor.String()), descriptor.Bool(), descriptor.Int()),
			"number | string | boolean",
		},
		{"list of union", descriptor.List(descriptor.Optional(descriptor.String())), "(string | null)[]"},
		{"literals", descriptor.Literal("a", "b", 3, true), `"a" | "b" | 3 | true`},
		{"alias of alias", alias2.Of(descriptor.String()), "string[]"},
		{"inlined alias", alias1.Of(descriptor.String()), "string[]"},
		{
			"aliased args",
			aliasedArgs.Of(descriptor.Int(), descriptor.Bool()),
			"Record<string, [boolean[], number[]]>",
		},
		{"two level nested alias", outer.Of(descriptor.String()), "string[][]"},
		{"unbound param", descriptor.Param("T"), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, NewRegistry(), &Context{}, tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslate_RecursiveAliases(t *testing.T) {
	r1 := descriptor.NewAlias("Recursive1", "A")
	r1.Define(variadic(descriptor.Union(r1.P(0), r1.Of(r1.P(0)))))
	r2 := descriptor.NewAlias("Recursive2", "A", "B")
	r2.Define(variadic(descriptor.Union(r2.P(0), r2.Of(r2.P(1), r2.P(0)))))
	r3 := descriptor.NewAlias("Recursive3", "A", "B", "C")
	r3.Define(variadic(descriptor.Union(r3.P(0), r3.Of(r3.P(2), r3.P(0), r3.P(1)))))

	tests := []struct {
		name string
		in   typenode.Descriptor
		want string
	}{
		{"arity 1", r1.Of(descriptor.Int()), "(number | Ret)[]"},
		{"arity 2", r2.Of(descriptor.Bool(), descriptor.String()), "(boolean | (string | Ret)[])[]"},
		{
			"arity 3",
			r3.Of(descriptor.Bool(), descriptor.String(), descriptor.Int()),
			"(boolean | (number | (string | Ret)[])[])[]",
		},
		{
			"nested under a list",
			descriptor.List(r1.Of(descriptor.String())),
			"Ret_Recursive1[]; Ret_Recursive1 = (string | Ret_Recursive1)[]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, NewRegistry(), &Context{}, tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslate_Records(t *testing.T) {
	user := descriptor.NewRecord("User").
		Field("id", descriptor.Int()).
		Field("name", descriptor.String(), descriptor.WithDefault()).
		Field("tags", descriptor.List(descriptor.String()))

	page := descriptor.NewRecord("Page", "T")
	page.Field("items", descriptor.List(page.P(0)))
	page.Field("next", descriptor.Optional(page.Of(page.P(0))), descriptor.WithDefault())

	person := descriptor.NewModel("Person")
	person.Field("name", descriptor.String(), descriptor.Required())
	person.Field("friends", descriptor.List(person.Of()))

	generic := descriptor.NewRecord("Box", "T").Field("value", descriptor.Param("unrelated"))
	box := descriptor.NewRecord("Box", "T")
	box.Field("value", box.P(0))

	tests := []struct {
		name string
		in   typenode.Descriptor
		want string
	}{
		{"field order and defaults", user.Of(), "{id: number; name?: string; tags: string[];}"},
		{"generic self reference", page.Of(descriptor.Int()), "{items: number[]; next?: Ret | null;}"},
		{"host model", person.Of(), "{name: string; friends?: Ret[];}"},
		{"generic record", box.Of(descriptor.Bool()), "{value: boolean;}"},
		{"foreign param stays unknown", generic.Of(descriptor.Bool()), "{value: unknown;}"},
		{
			"model nested in list",
			descriptor.List(person.Of()),
			"Ret_Person[]; Ret_Person = {name: string; friends?: Ret_Person[];}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, NewRegistry(), &Context{}, tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslate_MethodAnnotations(t *testing.T) {
	body := descriptor.NewRecord("Body").
		Field("id", descriptor.Annotated(descriptor.Int(), annotations.Methods("put", "patch"))).
		Field("name", descriptor.String())

	tests := []struct {
		method string
		in     typenode.Descriptor
		want   string
	}{
		{"GET", descriptor.Annotated(descriptor.Int(), annotations.Methods("POST")), "never"},
		{"POST", descriptor.Annotated(descriptor.Int(), annotations.Methods("POST")), "number"},
		{"PUT", body.Of(), "{id: number; name: string;}"},
		{"POST", body.Of(), "{id: never; name: string;}"},
		{"GET", descriptor.Annotated(descriptor.String(), annotations.Skip{}), "string"},
		{"GET", descriptor.Annotated(descriptor.String(), "unknown payload"), "string"},
		{
			"GET",
			descriptor.Annotated(descriptor.Int(), annotations.Methods("GET"), annotations.Methods("POST")),
			"never",
		},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+typenode.Build(tt.in).String(), func(t *testing.T) {
			ctx := &Context{Method: tt.method, Mode: ModeJSON}
			if got := render(t, NewRegistry(), ctx, tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslate_AmbiguousGenericWarns(t *testing.T) {
	tests := []struct {
		in   typenode.Descriptor
		want string
	}{
		{descriptor.List(), "unknown[]"},
		{descriptor.Tuple(), "unknown[]"},
		{descriptor.Dict(), "object"},
	}
	for _, tt := range tests {
		diags := diagnostic.NewCollector(false, false)
		ctx := &Context{Route: "items", Method: "GET", Mode: ModeReturn, Diagnostics: diags}
		if got := render(t, NewRegistry(), ctx, tt.in); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
		ds := diags.Diagnostics()
		if len(ds) != 1 || ds[0].Category != diagnostic.CategoryAmbiguousGeneric {
			t.Fatalf("diagnostics = %v, want one ambiguous-generic warning", ds)
		}
		if ds[0].Location.Route != "items" || ds[0].Severity != diagnostic.SeverityWarning {
			t.Errorf("diagnostic = %+v", ds[0])
		}
	}
}

func TestTranslate_Unsupported(t *testing.T) {
	tests := []typenode.Descriptor{
		descriptor.Opaque("chan int"),
		descriptor.List(descriptor.Opaque("func()")),
		descriptor.Dict(descriptor.String()),
		descriptor.NewAlias("Undefined").Of(),
	}
	for _, d := range tests {
		_, err := NewRegistry().NewChain(nil).Translate(typenode.Build(d), nil)
		var unsupported *UnsupportedTypeError
		if !errors.As(err, &unsupported) {
			t.Errorf("Translate(%s) error = %v, want UnsupportedTypeError", typenode.Build(d), err)
		}
	}
}

func TestTranslate_Deterministic(t *testing.T) {
	r3 := descriptor.NewAlias("Recursive3", "A", "B", "C")
	r3.Define(variadic(descriptor.Union(r3.P(0), r3.Of(r3.P(2), r3.P(0), r3.P(1)))))
	d := r3.Of(descriptor.Bool(), descriptor.String(), descriptor.Int())

	a, err := NewRegistry().NewChain(nil).Translate(typenode.Build(d), nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRegistry().NewChain(nil).Translate(typenode.Build(d), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !tstype.Equal(a, b) || tstype.Hash(a) != tstype.Hash(b) {
		t.Errorf("translations differ: %q vs %q", tstype.Text(a), tstype.Text(b))
	}
}

// constant answers every scalar with a fixed name.
type constant struct{ name string }

func (c constant) Translate(node *typenode.Node, _ Bindings) (tstype.Type, error) {
	if node.Kind() != typenode.KindScalar {
		return nil, ErrDecline
	}
	return &tstype.Simple{Name: c.name}, nil
}

func TestRegistry_Priority(t *testing.T) {
	custom := Registration{
		ID:       "test.Constant",
		Priority: DefaultPriority,
		New:      func(Func, *Context) Translator { return constant{"Custom"} },
	}

	reg := NewRegistry()
	if err := reg.Add(custom); err != nil {
		t.Fatal(err)
	}
	if got := render(t, reg, nil, descriptor.List(descriptor.Int())); got != "Custom[]" {
		t.Errorf("custom translator before base: got %q, want %q", got, "Custom[]")
	}
	want := []string{AnnotationsID, ModelID, "test.Constant", BaseID}
	if diff := cmp.Diff(want, reg.IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}

	if err := reg.SetPriority("test.Constant", BasePriority+1); err != nil {
		t.Fatal(err)
	}
	if got := render(t, reg, nil, descriptor.List(descriptor.Int())); got != "number[]" {
		t.Errorf("after override: got %q, want %q", got, "number[]")
	}

	if err := reg.Add(custom); err == nil {
		t.Error("Add() accepted a duplicate ID")
	}
	if err := reg.SetPriority("missing", 1); err == nil {
		t.Error("SetPriority() accepted an unknown ID")
	}
}

func TestRegistry_TiesKeepRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"First", "Second"} {
		err := reg.Add(Registration{
			ID:  "test." + name,
			New: func(Func, *Context) Translator { return constant{name} },
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if got := render(t, reg, nil, descriptor.String()); got != "First" {
		t.Errorf("got %q, want %q", got, "First")
	}
}

func TestRegistry_ExtremePriorities(t *testing.T) {
	reg := NewRegistry()
	for _, r := range []Registration{
		{ID: "test.Last", Priority: math.MaxInt, New: func(Func, *Context) Translator { return constant{"Last"} }},
		{ID: "test.First", Priority: math.MinInt, New: func(Func, *Context) Translator { return constant{"First"} }},
	} {
		if err := reg.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"test.First", AnnotationsID, ModelID, BaseID, "test.Last"}
	if diff := cmp.Diff(want, reg.IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}
}

type nilAnswer struct{}

func (nilAnswer) Translate(*typenode.Node, Bindings) (tstype.Type, error) { return nil, nil }

func TestChain_NilResultIsAnError(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Add(Registration{ID: "test.Nil", Priority: -1000, New: func(Func, *Context) Translator { return nilAnswer{} }})
	_, err := reg.NewChain(nil).Translate(typenode.Build(descriptor.Int()), nil)
	if err == nil || !strings.Contains(err.Error(), "test.Nil") {
		t.Errorf("error = %v, want mention of test.Nil", err)
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		id      string
		prio    int
		wantErr bool
	}{
		{"typesync.BaseTranslator:5", "typesync.BaseTranslator", 5, false},
		{"a:b:-10", "a:b", -10, false},
		{"noprio", "", 0, true},
		{":3", "", 0, true},
		{"id:", "", 0, true},
		{"id:high", "", 0, true},
	}
	for _, tt := range tests {
		id, prio, err := ParsePriority(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriority(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if id != tt.id || prio != tt.prio {
			t.Errorf("ParsePriority(%q) = %q, %d, want %q, %d", tt.in, id, prio, tt.id, tt.prio)
		}
	}
}

func TestRegistrationFrom(t *testing.T) {
	good := func() Registration {
		return Registration{ID: "plugin.Good", New: func(Func, *Context) Translator { return constant{"x"} }}
	}
	goodErr := func() (Registration, error) { return good(), nil }
	tests := []struct {
		name    string
		sym     any
		wantErr string
	}{
		{"function", good, ""},
		{"function with error", func() (Registration, error) { return good(), nil }, ""},
		{"variable", &good, ""},
		{"variable with error", &goodErr, ""},
		{"wrong type", 42, "want func() translate.Registration"},
		{"factory error", func() (Registration, error) { return Registration{}, errors.New("boom") }, "boom"},
		{"factory panics", func() Registration { panic("kaput") }, "factory panicked: kaput"},
		{"empty id", func() Registration { return Registration{New: good().New} }, "empty ID"},
		{"no factory", func() Registration { return Registration{ID: "plugin.NoNew"} }, "no factory"},
		{
			"nil translator",
			func() Registration {
				return Registration{ID: "plugin.Nil", New: func(Func, *Context) Translator { return nil }}
			},
			"does not produce a Translator",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := registrationFrom("p.so", tt.sym)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("registrationFrom() error = %v", err)
				}
				if reg.ID != "plugin.Good" {
					t.Errorf("ID = %q, want plugin.Good", reg.ID)
				}
				return
			}
			var loadErr *PluginLoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("error = %v, want PluginLoadError", err)
			}
			if loadErr.Path != "p.so" || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadPlugin_MissingFile(t *testing.T) {
	_, err := LoadPlugin(t.TempDir() + "/missing.so")
	var loadErr *PluginLoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("LoadPlugin() error = %v, want PluginLoadError", err)
	}
}
