package routes

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/typesync/typesync/internal/infer"
	"github.com/typesync/typesync/internal/typenode"
)

// Handler is a callable serving a route.
type Handler interface {
	infer.Callable
	// BodyType returns the request body type the handler declares.
	BodyType() (typenode.Descriptor, bool)
}

// Positioner is implemented by handlers that know where they are declared.
type Positioner interface {
	Position() (file string, line int)
}

// DefaultMethod is the method of a route that names none.
const DefaultMethod = "GET"

var knownMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

// Route is one configured endpoint.
type Route struct {
	Name    string
	Rule    *Rule
	Methods []string // upper-case, in configuration order

	// Handlers maps a method to its handler. The "" entry serves every
	// method without an entry of its own.
	Handlers map[string]Handler
	// BodyLoader declares the JSON body of handlers that do not. May be nil.
	BodyLoader infer.Callable
}

// New validates and normalises a route. Methods default to the rule's
// method prefix, then to GET.
func New(name string, rule *Rule, methods []string, handlers map[string]Handler, bodyLoader infer.Callable) (*Route, error) {
	if name == "" {
		return nil, errors.New("route has no name")
	}
	if rule == nil {
		return nil, fmt.Errorf("route %s: no rule", name)
	}
	r := &Route{Name: name, Rule: rule, Handlers: make(map[string]Handler, len(handlers)), BodyLoader: bodyLoader}
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if !slices.Contains(knownMethods, m) {
			return nil, fmt.Errorf("route %s: unknown method %q", name, m)
		}
		if !slices.Contains(r.Methods, m) {
			r.Methods = append(r.Methods, m)
		}
	}
	if len(r.Methods) == 0 {
		m := rule.Method
		if m == "" {
			m = DefaultMethod
		}
		r.Methods = []string{m}
	}
	for m, h := range handlers {
		r.Handlers[strings.ToUpper(m)] = h
	}
	for _, m := range r.Methods {
		if _, ok := r.Handler(m); !ok {
			return nil, fmt.Errorf("route %s: no handler for %s", name, m)
		}
	}
	return r, nil
}

// Handler returns the handler serving method.
func (r *Route) Handler(method string) (Handler, bool) {
	if h, ok := r.Handlers[method]; ok && h != nil {
		return h, true
	}
	h, ok := r.Handlers[""]
	return h, ok && h != nil
}
