package translate

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/typesync/typesync/internal/tstype"
	"github.com/typesync/typesync/internal/typenode"
)

// Registration describes a translator: its identifier, its default priority
// and how to construct it.
type Registration struct {
	ID       string
	Priority int
	New      Factory
}

func (r Registration) validate() error {
	if r.ID == "" {
		return errors.New("translator registration has an empty ID")
	}
	if r.New == nil {
		return fmt.Errorf("translator %q has no factory", r.ID)
	}
	return nil
}

var (
	registeredMu sync.Mutex
	registered   []Registration
)

// Register adds a translator to the build-time table that every
// NewRegistry starts from. It is meant to be called from init functions
// and panics on an invalid or duplicate registration.
func Register(reg Registration) {
	registeredMu.Lock()
	defer registeredMu.Unlock()
	if err := reg.validate(); err != nil {
		panic("translate: " + err.Error())
	}
	for _, r := range registered {
		if r.ID == reg.ID {
			panic("translate: Register called twice for " + reg.ID)
		}
	}
	registered = append(registered, reg)
}

// Registry is the set of translators available to one generation run.
type Registry struct {
	entries    []Registration
	priorities map[string]int
}

// NewRegistry returns a registry holding the built-in translators followed
// by everything added with Register.
func NewRegistry() *Registry {
	r := &Registry{priorities: make(map[string]int)}
	r.entries = append(r.entries, Builtins()...)
	registeredMu.Lock()
	r.entries = append(r.entries, registered...)
	registeredMu.Unlock()
	return r
}

// Add registers another translator, typically one loaded from a plugin.
func (r *Registry) Add(reg Registration) error {
	if err := reg.validate(); err != nil {
		return err
	}
	if r.Has(reg.ID) {
		return fmt.Errorf("translator %q is already registered", reg.ID)
	}
	r.entries = append(r.entries, reg)
	return nil
}

// Has reports whether a translator with the given ID is registered.
func (r *Registry) Has(id string) bool {
	return slices.ContainsFunc(r.entries, func(e Registration) bool { return e.ID == id })
}

// SetPriority overrides the priority of a registered translator.
func (r *Registry) SetPriority(id string, priority int) error {
	if !r.Has(id) {
		return fmt.Errorf("cannot set priority of unknown translator %q", id)
	}
	r.priorities[id] = priority
	return nil
}

// IDs returns the registered translator IDs in dispatch order.
func (r *Registry) IDs() []string {
	ordered := r.ordered()
	ids := make([]string, len(ordered))
	for i, e := range ordered {
		ids[i] = e.ID
	}
	return ids
}

func (r *Registry) priority(e Registration) int {
	if p, ok := r.priorities[e.ID]; ok {
		return p
	}
	return e.Priority
}

func (r *Registry) ordered() []Registration {
	ordered := slices.Clone(r.entries)
	slices.SortStableFunc(ordered, func(a, b Registration) int {
		return cmp.Compare(r.priority(a), r.priority(b))
	})
	return ordered
}

// ParsePriority parses an "id:priority" override. The ID may itself
// contain colons; the priority follows the last one.
func ParsePriority(s string) (string, int, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return "", 0, fmt.Errorf("invalid translator priority %q: want ID:PRIORITY", s)
	}
	p, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid translator priority %q: %w", s, err)
	}
	return s[:i], p, nil
}

// Chain is the instantiated, ordered set of translators for one unit.
type Chain struct {
	ctx         *Context
	ids         []string
	translators []Translator
}

// NewChain instantiates every registered translator for ctx.
func (r *Registry) NewChain(ctx *Context) *Chain {
	if ctx == nil {
		ctx = &Context{}
	}
	c := &Chain{ctx: ctx}
	for _, e := range r.ordered() {
		c.ids = append(c.ids, e.ID)
		c.translators = append(c.translators, e.New(c.Translate, ctx))
	}
	return c
}

// Translate asks each translator in order and returns the first answer.
func (c *Chain) Translate(node *typenode.Node, generics Bindings) (tstype.Type, error) {
	for i, t := range c.translators {
		out, err := t.Translate(node, generics)
		if errors.Is(err, ErrDecline) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, fmt.Errorf("translator %s returned no type for %s", c.ids[i], node)
		}
		return out, nil
	}
	return nil, &UnsupportedTypeError{Type: node.String()}
}
