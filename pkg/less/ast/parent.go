package ast

// ParentIndex maps nodes to their parent in a tree. Nodes never point to
// their parent directly; the index is built on demand from a walk.
type ParentIndex struct {
	parents map[Node]Node
}

// BuildParentIndex walks root and records the parent of every node.
func BuildParentIndex(root Node) *ParentIndex {
	idx := &ParentIndex{parents: make(map[Node]Node)}
	var stack []Node
	v := NewVisitor(false)
	for k := Kind(0); k < kindCount; k++ {
		v.On(k, func(n Node, _ *VisitArgs) Node {
			if len(stack) > 0 {
				idx.parents[n] = stack[len(stack)-1]
			}
			stack = append(stack, n)
			return n
		})
		v.OnExit(k, func(Node) {
			stack = stack[:len(stack)-1]
		})
	}
	v.Visit(root)
	return idx
}

// Parent returns the parent of n, or nil for the root and unknown nodes.
func (p *ParentIndex) Parent(n Node) Node {
	return p.parents[n]
}

// Ancestors returns the parents of n, nearest first.
func (p *ParentIndex) Ancestors(n Node) []Node {
	var out []Node
	for cur := p.parents[n]; cur != nil; cur = p.parents[cur] {
		out = append(out, cur)
	}
	return out
}

// Position returns the nearest position known for n, looking through its
// ancestors when the node itself was synthesized.
func (p *ParentIndex) Position(n Node) (int, *FileInfo) {
	for cur := n; cur != nil; cur = p.parents[cur] {
		m := cur.Metadata()
		if m.Index >= 0 && m.File != nil {
			return m.Index, m.File
		}
	}
	return -1, nil
}
