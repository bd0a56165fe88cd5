package typenode

// maxBuildDepth bounds descriptor nesting. Deeper trees become an opaque
// "depth-exceeded" node, which translators then reject as unsupported.
const maxBuildDepth = 64

// Frame is one level of alias, record or model expansion. Frames record how
// the expanding origin's parameters map onto the parameters of the outermost
// expansion, which is what the recursion guard compares against.
type Frame struct {
	node   *Node
	params []Origin
	subst  map[Origin]*Node // own param -> node in terms of root parameters
	parent *Frame
}

// Build converts a descriptor into a Node graph with no enclosing frame.
func Build(d Descriptor) *Node {
	return BuildIn(d, nil)
}

// BuildIn converts a descriptor inside an enclosing expansion frame. Passing
// the frame lets a nested use of an enclosing alias be recognised as a
// RecursiveCall.
func BuildIn(d Descriptor, enclosing *Frame) *Node {
	b := &builder{}
	return b.build(d, enclosing)
}

type builder struct {
	depth int
}

func (b *builder) build(d Descriptor, f *Frame) *Node {
	if d == nil {
		return &Node{Origin: Opaque("nil")}
	}
	if b.depth >= maxBuildDepth {
		return &Node{Origin: Opaque("depth-exceeded")}
	}
	b.depth++
	defer func() { b.depth-- }()

	origin := d.Origin()
	if origin.Kind() == KindAnnotated {
		return b.buildAnnotated(d, f)
	}

	node := &Node{
		Origin: origin,
		Params: d.Params(),
		Values: d.Values(),
	}
	// Arguments are built in the caller's frame, not the frame this node
	// would open, so parameters seen here belong to the enclosing expansion.
	for _, arg := range d.Args() {
		node.Args = append(node.Args, b.build(arg, f))
	}

	expansion := d.Expansion()
	fields := d.Fields()
	if expansion == nil && !expands(origin.Kind()) {
		return node
	}

	resolved := make([]*Node, len(node.Args))
	for i, arg := range node.Args {
		resolved[i] = f.resolve(arg)
	}
	if target := f.recursion(origin, resolved); target != nil {
		target.Recursive = true
		node.Origin = RecursiveCall
		node.Target = target
		return node
	}

	child := f.enter(node, resolved)
	if expansion != nil {
		node.Value = b.build(expansion, child)
	}
	for _, field := range fields {
		node.Hints = append(node.Hints, Hint{
			Name:       field.Name,
			Type:       b.build(field.Type, child),
			HasDefault: field.HasDefault,
			Required:   field.Required,
		})
	}
	return node
}

// buildAnnotated peels payloads one at a time. The first payload wraps the
// base type directly and each further payload wraps the previous wrapper.
func (b *builder) buildAnnotated(d Descriptor, f *Frame) *Node {
	args := d.Args()
	if len(args) != 1 {
		node := &Node{Origin: d.Origin()}
		for _, arg := range args {
			node.Args = append(node.Args, b.build(arg, f))
		}
		return node
	}
	node := b.build(args[0], f)
	for _, payload := range d.Annotations() {
		node = &Node{
			Origin:     Annotated,
			Args:       []*Node{node},
			Annotation: payload,
		}
	}
	return node
}

func expands(k Kind) bool {
	return k == KindAlias || k == KindRecord || k == KindModel
}

// resolve rewrites a parameter node through the frame's substitution. Only
// the top level is rewritten: nested parameters cannot change whether the
// argument list matches an enclosing frame positionally.
func (f *Frame) resolve(n *Node) *Node {
	if f == nil || n.Kind() != KindParam {
		return n
	}
	if r, ok := f.subst[n.Origin]; ok {
		return r
	}
	return n
}

// recursion returns the node of the nearest enclosing frame for origin whose
// own parameters, expressed in root terms, equal args positionally.
func (f *Frame) recursion(origin Origin, args []*Node) *Node {
	for g := f; g != nil; g = g.parent {
		if g.node.Origin != origin || len(g.params) != len(args) {
			continue
		}
		match := true
		for i, p := range g.params {
			want, ok := g.subst[p]
			if !ok {
				want = &Node{Origin: p}
			}
			if !Equal(args[i], want) {
				match = false
				break
			}
		}
		if match {
			return g.node
		}
	}
	return nil
}

// enter opens the frame for expanding node. The outermost frame maps every
// parameter to itself; inner frames map parameters to the use-site
// arguments already resolved into root terms. Surplus parameters or
// arguments are ignored.
func (f *Frame) enter(node *Node, resolved []*Node) *Frame {
	child := &Frame{
		node:   node,
		params: node.Params,
		subst:  make(map[Origin]*Node, len(node.Params)),
		parent: f,
	}
	if f == nil {
		return child
	}
	for i, p := range node.Params {
		if i >= len(resolved) {
			break
		}
		child.subst[p] = resolved[i]
	}
	return child
}
