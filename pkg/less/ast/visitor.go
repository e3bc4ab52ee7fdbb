package ast

// VisitArgs lets a pre-visit handler stop the walk from descending into the
// node's children.
type VisitArgs struct {
	VisitDeeper bool
}

// PreFunc handles a node before its children are visited. In replacing mode
// the returned node takes the visited node's place: nil removes it and a
// *Fragment splices several nodes into the enclosing list. Non-replacing
// visitors should return n.
type PreFunc func(n Node, args *VisitArgs) Node

// PostFunc handles a node after its children have been visited.
type PostFunc func(n Node)

// Visitor walks a tree and dispatches to handlers registered per node kind.
// Kinds without a handler are traversed transparently.
type Visitor struct {
	replacing bool
	pre       [kindCount]PreFunc
	post      [kindCount]PostFunc
}

// NewVisitor creates a visitor. A replacing visitor rebuilds child lists from
// the handlers' return values; a non-replacing visitor never writes to the tree
// it walks, so it is safe to run over shared templates.
func NewVisitor(replacing bool) *Visitor {
	return &Visitor{replacing: replacing}
}

// On registers the pre-visit handler for kind k.
func (v *Visitor) On(k Kind, fn PreFunc) *Visitor {
	v.pre[k] = fn
	return v
}

// OnExit registers the post-visit handler for kind k.
func (v *Visitor) OnExit(k Kind, fn PostFunc) *Visitor {
	v.post[k] = fn
	return v
}

// Replacing reports whether the visitor rebuilds the tree.
func (v *Visitor) Replacing() bool {
	return v.replacing
}

// Visit visits n and returns its replacement (n itself for non-replacing visitors).
func (v *Visitor) Visit(n Node) Node {
	if n == nil {
		return nil
	}
	k := n.Kind()
	args := VisitArgs{VisitDeeper: true}

	if fn := v.pre[k]; fn != nil {
		out := fn(n, &args)
		if v.replacing {
			n = out
		}
	}
	if n == nil {
		return nil
	}

	if args.VisitDeeper {
		if f, ok := n.(*Fragment); ok && k != KindFragment {
			for _, child := range f.Nodes {
				if child != nil {
					child.Accept(v)
				}
			}
		} else {
			n.Accept(v)
		}
	}

	if fn := v.post[k]; fn != nil {
		fn(n)
	}
	return n
}

// VisitNode visits the node stored at p, replacing it in replacing mode.
func (v *Visitor) VisitNode(p *Node) {
	if *p == nil {
		return
	}
	out := v.Visit(*p)
	if !v.replacing {
		return
	}
	if f, ok := out.(*Fragment); ok && len(f.Nodes) == 1 {
		out = f.Nodes[0]
	}
	*p = out
}

// VisitNodes visits every node of the list at p. In replacing mode the list is
// rebuilt: removed nodes are dropped and fragments are flattened.
func (v *Visitor) VisitNodes(p *[]Node) {
	if !v.replacing {
		for _, n := range *p {
			v.Visit(n)
		}
		return
	}
	out := make([]Node, 0, len(*p))
	for _, n := range *p {
		out = appendFlat(out, v.Visit(n))
	}
	*p = out
}

// VisitRules is VisitNodes for rule bodies.
func (v *Visitor) VisitRules(p *[]RuleBodyItem) {
	if *p == nil {
		return
	}
	if !v.replacing {
		for _, n := range *p {
			v.Visit(n)
		}
		return
	}
	out := make([]Node, 0, len(*p))
	for _, n := range *p {
		out = appendFlat(out, v.Visit(n))
	}
	*p = NodesToRules(out)
}

func appendFlat(out []Node, n Node) []Node {
	if n == nil {
		return out
	}
	if f, ok := n.(*Fragment); ok {
		for _, child := range f.Nodes {
			out = appendFlat(out, child)
		}
		return out
	}
	return append(out, n)
}

// visitEach visits typed children that are never replaced.
func visitEach[T Node](v *Visitor, items []T) {
	for _, n := range items {
		v.Visit(n)
	}
}
