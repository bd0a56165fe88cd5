// Package tsx provides marker types that let Go handlers describe
// TypeScript shapes Go has no native syntax for: unions, tuples, variadic
// tuples and per-method metadata.
//
// The markers are ordinary Go types. typesync recognizes them when it reads
// handler signatures; at run time they marshal to the JSON their TypeScript
// counterpart describes.
//
//	func GetUser(w http.ResponseWriter, r *http.Request) tsx.Union2[User, NotFound] { ... }
package tsx

// Union2 holds a value of type A or B.
type Union2[A, B any] struct{ value any }

// Union3 holds a value of type A, B or C.
type Union3[A, B, C any] struct{ value any }

// Union4 holds a value of one of four types.
type Union4[A, B, C, D any] struct{ value any }

// Tuple2 is a fixed-length pair, encoded as a two element array. A second
// type argument of Ellipsis makes it a variadic tuple of A.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

// Tuple3 is a fixed-length triple.
type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Tuple4 is a fixed-length quadruple.
type Tuple4[A, B, C, D any] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

// Ellipsis marks the trailing "any number of the previous type" position of
// a tuple.
type Ellipsis struct{}

// Annotated attaches metadata M to T. The JSON form is that of T.
type Annotated[T, M any] struct{ Value T }

// Annotated2 attaches two metadata payloads to T. M1 is applied first.
type Annotated2[T, M1, M2 any] struct{ Value T }

// HTTP method metadata. A type annotated with a method only exists for
// routes served with that method; other methods see never.
type (
	Get     struct{}
	Post    struct{}
	Put     struct{}
	Patch   struct{}
	Delete  struct{}
	Head    struct{}
	Options struct{}
)

// Skip metadata removes the annotated unit from generation.
type Skip struct{}

// Method-restricted shorthands.
type (
	ForGet[T any]    = Annotated[T, Get]
	ForPost[T any]   = Annotated[T, Post]
	ForPut[T any]    = Annotated[T, Put]
	ForPatch[T any]  = Annotated[T, Patch]
	ForDelete[T any] = Annotated[T, Delete]
)

// SkipGeneration marks a handler result typesync should not emit.
type SkipGeneration[T any] = Annotated[T, Skip]

// Response wraps a handler result with its HTTP status. Only Body is part
// of the generated type.
type Response[T any] struct {
	Status int
	Body   T
}

// Body declares the decoded request body of a handler parameter.
type Body[T any] struct{ Value T }

// Never is the type with no values.
type Never struct{}

// Void declares that a handler writes no body.
type Void struct{}
