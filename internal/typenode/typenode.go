// Package typenode converts source type descriptors into a uniform graph of
// Nodes that translators consume.
//
// Source frontends (the in-memory descriptor package, the go/types frontend)
// never leak their own representation past this package: they implement the
// Descriptor capability interface once, and the Builder and every translator
// only look at Nodes.
package typenode

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind classifies an Origin.
type Kind string

const (
	KindOpaque    Kind = "opaque"    // not understood by the frontend
	KindScalar    Kind = "scalar"    // string, int, float, bool
	KindNone      Kind = "none"      // the null value
	KindVoid      Kind = "void"      // no value at all
	KindAny       Kind = "any"       // unknown-top
	KindNever     Kind = "never"     // bottom
	KindLiteral   Kind = "literal"   // a fixed set of constant values
	KindSequence  Kind = "sequence"  // list-like container
	KindTuple     Kind = "tuple"     // fixed-length heterogeneous container
	KindVariadic  Kind = "variadic"  // trailing "and more of the same" tuple marker
	KindMapping   Kind = "mapping"   // key/value container
	KindUnion     Kind = "union"     // one of several types
	KindAnnotated Kind = "annotated" // a type carrying a metadata payload
	KindRecord    Kind = "record"    // structural record with declared fields
	KindModel     Kind = "model"     // host data model with enforced field presence
	KindAlias     Kind = "alias"     // named definition with an expansion
	KindParam     Kind = "param"     // generic type parameter
	KindTypeOf    Kind = "typeof"    // the type of a type value
	KindRecursive Kind = "recursive" // RecursiveCall sentinel
)

// Origin identifies a type constructor. Origins must be comparable: two uses
// of the same declaration have equal Origins.
type Origin interface {
	Kind() Kind
	Name() string
}

type builtin struct {
	kind Kind
	name string
}

func (b builtin) Kind() Kind     { return b.kind }
func (b builtin) Name() string   { return b.name }
func (b builtin) String() string { return b.name }

// Builtin origins shared by every frontend.
var (
	String        Origin = builtin{KindScalar, "string"}
	Int           Origin = builtin{KindScalar, "int"}
	Float         Origin = builtin{KindScalar, "float"}
	Bool          Origin = builtin{KindScalar, "bool"}
	None          Origin = builtin{KindNone, "null"}
	Void          Origin = builtin{KindVoid, "void"}
	Any           Origin = builtin{KindAny, "any"}
	Never         Origin = builtin{KindNever, "never"}
	Literal       Origin = builtin{KindLiteral, "literal"}
	Sequence      Origin = builtin{KindSequence, "list"}
	Tuple         Origin = builtin{KindTuple, "tuple"}
	Variadic      Origin = builtin{KindVariadic, "..."}
	Mapping       Origin = builtin{KindMapping, "dict"}
	Union         Origin = builtin{KindUnion, "union"}
	Annotated     Origin = builtin{KindAnnotated, "annotated"}
	TypeOf        Origin = builtin{KindTypeOf, "type"}
	RecursiveCall Origin = builtin{KindRecursive, "RecursiveCall"}
)

// Opaque returns an origin for a type the frontend cannot describe. No
// built-in translator accepts it.
func Opaque(name string) Origin {
	return builtin{KindOpaque, name}
}

type param struct {
	name string
}

func (p *param) Kind() Kind     { return KindParam }
func (p *param) Name() string   { return p.name }
func (p *param) String() string { return p.name }

// NewParam returns a fresh generic parameter origin. Each call yields a
// distinct identity, even for equal names.
func NewParam(name string) Origin {
	return &param{name: name}
}

// Field is one declared field of a structural record or host model.
type Field struct {
	Name       string
	Type       Descriptor
	HasDefault bool // declares a default value, so it may be omitted
	Required   bool // host models only: presence is enforced
}

// Descriptor is the capability interface a source-type representation
// exposes to the Builder.
type Descriptor interface {
	// Origin returns the type constructor.
	Origin() Origin
	// Args returns the type arguments supplied at this use site.
	Args() []Descriptor
	// Params returns the origin's own declared generic parameters.
	Params() []Origin
	// Expansion returns the right-hand side of an alias, or nil.
	Expansion() Descriptor
	// Fields returns the declared fields of a record or model, or nil.
	Fields() []Field
	// Annotations returns the metadata payloads of an annotated wrapper,
	// outermost last.
	Annotations() []any
	// Values returns the constant values of a literal type.
	Values() []any
}

// Hint is a built field of a record or model node.
type Hint struct {
	Name       string
	Type       *Node
	HasDefault bool
	Required   bool
}

// Node is one vertex of the type graph. Nodes are not modified once Build
// returns.
type Node struct {
	Origin     Origin
	Params     []Origin
	Args       []*Node
	Hints      []Hint
	Value      *Node // alias expansion
	Annotation any   // payload of an annotated wrapper
	Values     []any // literal values

	// Target is the enclosing node a RecursiveCall refers back to.
	Target *Node
	// Recursive reports that some RecursiveCall below this node targets it.
	Recursive bool
}

// Kind is shorthand for n.Origin.Kind().
func (n *Node) Kind() Kind {
	return n.Origin.Kind()
}

// String renders the node in a compact debugging notation such as
// "list[union[int, null]]".
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	switch n.Kind() {
	case KindLiteral:
		sb.WriteString("literal[")
		for i, v := range n.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%#v", v)
		}
		sb.WriteString("]")
		return
	case KindAnnotated:
		fmt.Fprintf(sb, "annotated[%v, ", n.Annotation)
		if len(n.Args) > 0 {
			n.Args[0].write(sb)
		}
		sb.WriteString("]")
		return
	}
	sb.WriteString(n.Origin.Name())
	if len(n.Args) == 0 {
		return
	}
	sb.WriteString("[")
	for i, a := range n.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		a.write(sb)
	}
	sb.WriteString("]")
}

// Equal reports whether two nodes describe the same type structurally.
// Alias expansions and record hints are not compared; origin identity
// already determines them.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Origin != b.Origin || len(a.Args) != len(b.Args) || len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			return false
		}
	}
	if !reflect.DeepEqual(a.Annotation, b.Annotation) {
		return false
	}
	for i := range a.Args {
		if !Equal(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}
