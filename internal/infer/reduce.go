package infer

import (
	"slices"

	"github.com/typesync/typesync/internal/descriptor"
	"github.com/typesync/typesync/internal/typenode"
)

// literalLimit bounds the number of distinct values a merged literal type
// may carry; larger sets widen to their scalar.
const literalLimit = 4

// reduce collapses the candidate return types into one. Members with a
// common ancestor merge; the rest form a union in first-seen order.
func reduce(candidates []typenode.Descriptor) typenode.Descriptor {
	var out []typenode.Descriptor
	for _, t := range flatten(candidates) {
		merged := false
		for i, o := range out {
			if m, ok := commonAncestor(o, t); ok {
				out[i] = m
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return descriptor.Void()
	case 1:
		return out[0]
	}
	return descriptor.Union(out...)
}

func flatten(ts []typenode.Descriptor) []typenode.Descriptor {
	var out []typenode.Descriptor
	for _, t := range ts {
		if t == nil {
			continue
		}
		if t.Origin() == typenode.Union {
			out = append(out, flatten(t.Args())...)
			continue
		}
		out = append(out, t)
	}
	return out
}

// commonAncestor returns the narrowest type covering both a and b, if the
// rules allow one:
//
//   - equal types are their own ancestor;
//   - two literal types merge while the values stay few, becoming bool for
//     exactly true and false and widening to a shared scalar otherwise;
//   - a literal and the scalar of its values give the scalar;
//   - two instances of the same generic origin give the bare origin.
func commonAncestor(a, b typenode.Descriptor) (typenode.Descriptor, bool) {
	if same(a, b) {
		return a, true
	}
	la, lb := a.Origin() == typenode.Literal, b.Origin() == typenode.Literal
	switch {
	case la && lb:
		values := slices.Clone(a.Values())
		for _, v := range b.Values() {
			if !slices.Contains(values, v) {
				values = append(values, v)
			}
		}
		if len(values) == 2 && slices.Contains(values, any(true)) && slices.Contains(values, any(false)) {
			return descriptor.Bool(), true
		}
		if len(values) <= literalLimit {
			return descriptor.Literal(values...), true
		}
		if s, ok := scalarOf(values); ok {
			return s, true
		}
		return nil, false
	case la && b.Origin().Kind() == typenode.KindScalar:
		if s, ok := scalarOf(a.Values()); ok && s.Origin() == b.Origin() {
			return b, true
		}
		return nil, false
	case lb && a.Origin().Kind() == typenode.KindScalar:
		return commonAncestor(b, a)
	}
	if a.Origin() == b.Origin() && (len(a.Args()) > 0 || len(b.Args()) > 0) && generic(a.Origin()) {
		return bare{a}, true
	}
	return nil, false
}

// generic reports whether instances of o may differ only in arguments.
func generic(o typenode.Origin) bool {
	switch o.Kind() {
	case typenode.KindSequence, typenode.KindTuple, typenode.KindMapping,
		typenode.KindAlias, typenode.KindRecord, typenode.KindModel:
		return true
	}
	return false
}

// bare is a generic type with its arguments dropped.
type bare struct {
	typenode.Descriptor
}

func (bare) Args() []typenode.Descriptor { return nil }

// scalarOf returns the scalar shared by all values.
func scalarOf(values []any) (typenode.Descriptor, bool) {
	var out typenode.Descriptor
	for _, v := range values {
		var s typenode.Descriptor
		switch v.(type) {
		case string:
			s = descriptor.String()
		case bool:
			s = descriptor.Bool()
		case int, int64, uint64:
			s = descriptor.Int()
		case float64:
			s = descriptor.Float()
		default:
			return nil, false
		}
		if out != nil && out.Origin() != s.Origin() {
			return nil, false
		}
		out = s
	}
	return out, out != nil
}

// same compares two descriptors by origin, values and arguments.
func same(a, b typenode.Descriptor) bool {
	if a.Origin() != b.Origin() || !slices.Equal(a.Values(), b.Values()) {
		return false
	}
	aa, ba := a.Args(), b.Args()
	if len(aa) != len(ba) {
		return false
	}
	for i := range aa {
		if !same(aa[i], ba[i]) {
			return false
		}
	}
	return true
}
