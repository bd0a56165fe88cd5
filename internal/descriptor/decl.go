package descriptor

import (
	"github.com/typesync/typesync/internal/typenode"
)

// Decl is a user declaration: an alias, a structural record or a host model.
// A Decl is its own Origin, so every use of it compares equal.
type Decl struct {
	kind      typenode.Kind
	name      string
	params    []typenode.Origin
	expansion typenode.Descriptor
	fields    []typenode.Field
}

var _ typenode.Origin = (*Decl)(nil)

func newDecl(kind typenode.Kind, name string, params []string) *Decl {
	d := &Decl{kind: kind, name: name}
	for _, p := range params {
		d.params = append(d.params, typenode.NewParam(p))
	}
	return d
}

// NewAlias declares a (possibly generic) alias. Define sets its expansion;
// the expansion may refer to the alias itself.
func NewAlias(name string, params ...string) *Decl {
	return newDecl(typenode.KindAlias, name, params)
}

// NewRecord declares a structural record. Fields are optional when they
// declare a default.
func NewRecord(name string, params ...string) *Decl {
	return newDecl(typenode.KindRecord, name, params)
}

// NewModel declares a host data model whose fields carry their own
// requiredness.
func NewModel(name string, params ...string) *Decl {
	return newDecl(typenode.KindModel, name, params)
}

func (d *Decl) Kind() typenode.Kind { return d.kind }
func (d *Decl) Name() string        { return d.name }
func (d *Decl) String() string      { return d.name }

// P returns a use of the i-th declared parameter.
func (d *Decl) P(i int) *Type {
	return of(d.params[i])
}

// Define sets the alias expansion and returns d.
func (d *Decl) Define(expansion typenode.Descriptor) *Decl {
	d.expansion = expansion
	return d
}

// FieldOption adjusts a declared field.
type FieldOption func(*typenode.Field)

// WithDefault marks the field as declaring a default value.
func WithDefault() FieldOption {
	return func(f *typenode.Field) { f.HasDefault = true }
}

// Required marks a model field as enforced.
func Required() FieldOption {
	return func(f *typenode.Field) { f.Required = true }
}

// Field appends a declared field and returns d.
func (d *Decl) Field(name string, t typenode.Descriptor, opts ...FieldOption) *Decl {
	f := typenode.Field{Name: name, Type: t}
	for _, opt := range opts {
		opt(&f)
	}
	d.fields = append(d.fields, f)
	return d
}

// Of returns a use of the declaration with the given arguments.
func (d *Decl) Of(args ...typenode.Descriptor) *Type {
	return &Type{origin: d, args: args, decl: d}
}
