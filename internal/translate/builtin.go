package translate

import (
	"fmt"
	"strconv"

	"github.com/typesync/typesync/internal/annotations"
	"github.com/typesync/typesync/internal/diagnostic"
	"github.com/typesync/typesync/internal/tstype"
	"github.com/typesync/typesync/internal/typenode"
)

// Built-in translator identifiers and default priorities.
const (
	AnnotationsID = "typesync.AnnotationsTranslator"
	ModelID       = "typesync.ModelTranslator"
	BaseID        = "typesync.BaseTranslator"

	AnnotationsPriority = -100
	ModelPriority       = -20
	DefaultPriority     = 0
	BasePriority        = 100
)

// Builtins returns the registrations of the built-in translators.
func Builtins() []Registration {
	return []Registration{
		{ID: AnnotationsID, Priority: AnnotationsPriority, New: newAnnotations},
		{ID: ModelID, Priority: ModelPriority, New: newModel},
		{ID: BaseID, Priority: BasePriority, New: newBase},
	}
}

// scalars maps scalar origin names to target keywords.
var scalars = map[string]tstype.Type{
	typenode.String.Name(): tstype.StringType,
	typenode.Int.Name():    tstype.NumberType,
	typenode.Float.Name():  tstype.NumberType,
	typenode.Bool.Name():   tstype.BooleanType,
}

type baseTranslator struct {
	translate Func
	ctx       *Context
}

func newBase(translate Func, ctx *Context) Translator {
	return &baseTranslator{translate: translate, ctx: ctx}
}

func (b *baseTranslator) Translate(node *typenode.Node, generics Bindings) (tstype.Type, error) {
	switch node.Kind() {
	case typenode.KindScalar:
		if t, ok := scalars[node.Origin.Name()]; ok {
			return t, nil
		}
	case typenode.KindNone:
		return tstype.NullType, nil
	case typenode.KindVoid:
		return tstype.UndefinedType, nil
	case typenode.KindAny:
		return tstype.UnknownType, nil
	case typenode.KindNever:
		return tstype.NeverType, nil
	case typenode.KindLiteral:
		return literal(node.Values)
	case typenode.KindParam:
		if t, ok := generics[node.Origin]; ok {
			return t, nil
		}
		return tstype.UnknownType, nil
	case typenode.KindSequence:
		if len(node.Args) == 0 {
			b.ambiguous(node, "unknown[]")
			return &tstype.Array{Elem: tstype.UnknownType}, nil
		}
		elem, err := b.translate(node.Args[0], generics)
		if err != nil {
			return nil, err
		}
		return &tstype.Array{Elem: elem}, nil
	case typenode.KindTuple:
		return b.tuple(node, generics)
	case typenode.KindMapping:
		switch len(node.Args) {
		case 0:
			b.ambiguous(node, "object")
			return tstype.ObjectType, nil
		case 2:
			k, err := b.translate(node.Args[0], generics)
			if err != nil {
				return nil, err
			}
			v, err := b.translate(node.Args[1], generics)
			if err != nil {
				return nil, err
			}
			return &tstype.Record{Key: k, Value: v}, nil
		}
	case typenode.KindUnion:
		members := make([]tstype.Type, 0, len(node.Args))
		for _, arg := range node.Args {
			m, err := b.translate(arg, generics)
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
		return tstype.NewUnion(members...), nil
	case typenode.KindRecord:
		return objectOf(b.translate, node, generics, func(h typenode.Hint) bool { return !h.HasDefault })
	case typenode.KindAlias:
		if node.Value == nil {
			break
		}
		bound, err := Bind(b.translate, node, generics)
		if err != nil {
			return nil, err
		}
		t, err := b.translate(node.Value, bound)
		if err != nil {
			return nil, err
		}
		return Scope(node, t), nil
	case typenode.KindRecursive:
		// Assigning a nil *Node would produce a non-nil interface.
		var target any
		if node.Target != nil {
			target = node.Target
		}
		return &tstype.Recursive{Target: target}, nil
	case typenode.KindAnnotated:
		if len(node.Args) == 1 {
			return b.translate(node.Args[0], generics)
		}
	}
	return nil, ErrDecline
}

func (b *baseTranslator) tuple(node *typenode.Node, generics Bindings) (tstype.Type, error) {
	args := node.Args
	if len(args) == 0 {
		b.ambiguous(node, "unknown[]")
		return &tstype.Array{Elem: tstype.UnknownType}, nil
	}
	if len(args) == 2 && args[1].Kind() == typenode.KindVariadic {
		elem, err := b.translate(args[0], generics)
		if err != nil {
			return nil, err
		}
		return &tstype.Array{Elem: elem}, nil
	}
	elems := make([]tstype.Type, len(args))
	for i, arg := range args {
		t, err := b.translate(arg, generics)
		if err != nil {
			return nil, err
		}
		elems[i] = t
	}
	return &tstype.Tuple{Elems: elems}, nil
}

func (b *baseTranslator) ambiguous(node *typenode.Node, widened string) {
	b.ctx.Diagnostics.WarnWithHint(
		diagnostic.CategoryAmbiguousGeneric,
		b.ctx.Location(),
		fmt.Sprintf("unparameterized %s widened to %s", node.Origin.Name(), widened),
		"declare the element types to get a precise type",
	)
}

// objectOf builds an Object from a record or model node's hints.
func objectOf(translate Func, node *typenode.Node, generics Bindings, required func(typenode.Hint) bool) (tstype.Type, error) {
	bound, err := Bind(translate, node, generics)
	if err != nil {
		return nil, err
	}
	fields := make([]tstype.Field, 0, len(node.Hints))
	for _, h := range node.Hints {
		t, err := translate(h.Type, bound)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", h.Name, err)
		}
		fields = append(fields, tstype.Field{Name: h.Name, Type: t, Required: required(h)})
	}
	return Scope(node, &tstype.Object{Fields: fields}), nil
}

// literal renders constant values as TypeScript literal types.
func literal(values []any) (tstype.Type, error) {
	members := make([]tstype.Type, 0, len(values))
	for _, v := range values {
		var text string
		switch v := v.(type) {
		case nil:
			text = "null"
		case string:
			text = strconv.Quote(v)
		case bool:
			text = strconv.FormatBool(v)
		case int:
			text = strconv.Itoa(v)
		case int64:
			text = strconv.FormatInt(v, 10)
		case uint64:
			text = strconv.FormatUint(v, 10)
		case float64:
			text = strconv.FormatFloat(v, 'g', -1, 64)
		default:
			return nil, ErrDecline
		}
		members = append(members, &tstype.Simple{Name: text})
	}
	return tstype.NewUnion(members...), nil
}

type annotationsTranslator struct {
	translate Func
	ctx       *Context
}

func newAnnotations(translate Func, ctx *Context) Translator {
	return &annotationsTranslator{translate: translate, ctx: ctx}
}

// Translate filters method-restricted types: outside the listed methods the
// type collapses to never.
func (a *annotationsTranslator) Translate(node *typenode.Node, generics Bindings) (tstype.Type, error) {
	if node.Kind() != typenode.KindAnnotated || len(node.Args) != 1 {
		return nil, ErrDecline
	}
	switch p := node.Annotation.(type) {
	case annotations.HTTPMethods:
		if !p.Allows(a.ctx.Method) {
			return tstype.NeverType, nil
		}
		return a.translate(node.Args[0], generics)
	case annotations.Skip:
		return a.translate(node.Args[0], generics)
	}
	return nil, ErrDecline
}

type modelTranslator struct {
	translate Func
}

func newModel(translate Func, _ *Context) Translator {
	return &modelTranslator{translate: translate}
}

// Translate builds an Object from a host model, taking each field's
// requiredness from what the model enforces.
func (m *modelTranslator) Translate(node *typenode.Node, generics Bindings) (tstype.Type, error) {
	if node.Kind() != typenode.KindModel {
		return nil, ErrDecline
	}
	return objectOf(m.translate, node, generics, func(h typenode.Hint) bool { return h.Required })
}
