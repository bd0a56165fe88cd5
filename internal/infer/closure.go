package infer

import (
	"go/ast"

	"github.com/typesync/typesync/internal/typenode"
)

// literalFunc is a function literal found in a body. It resolves names and
// evaluates annotations in the scope of the function that contains it.
type literalFunc struct {
	parent      Callable
	lit         *ast.FuncLit
	captured    map[string]Symbol
	params      []Param
	result      typenode.Descriptor
	errorResult bool
}

var _ Callable = (*literalFunc)(nil)

func (l *literalFunc) Name() string { return "func literal in " + l.parent.Name() }

func (l *literalFunc) Params() []Param { return l.params }

func (l *literalFunc) Result() (typenode.Descriptor, bool) { return l.result, l.result != nil }

func (l *literalFunc) ErrorResult() bool { return l.errorResult }

func (l *literalFunc) Body() (*ast.BlockStmt, error) { return l.lit.Body, nil }

func (l *literalFunc) Captured() map[string]Symbol { return l.captured }

func (l *literalFunc) Lookup(name string) (Symbol, bool) { return l.parent.Lookup(name) }

func (l *literalFunc) Eval(expr ast.Expr) (typenode.Descriptor, error) { return l.parent.Eval(expr) }

func (l *literalFunc) StaticType(expr ast.Expr) (typenode.Descriptor, bool) {
	return l.parent.StaticType(expr)
}
