package visitors

import (
	"mercator-hq/cascade/pkg/less/ast"
)

// JoinSelectors computes the joined selector paths of every ruleset below
// root. A ruleset whose guards all failed loses its selectors and rules.
// Bodies of nested at-rules become roots when nothing encloses them.
func JoinSelectors(root *ast.Ruleset) {
	j := &joiner{contexts: [][][]*ast.Selector{{}}}
	v := ast.NewVisitor(false)
	v.On(ast.KindDeclaration, skipChildren)
	v.On(ast.KindMixinDefinition, skipChildren)
	v.On(ast.KindRuleset, j.visitRuleset)
	v.OnExit(ast.KindRuleset, j.leaveRuleset)
	for _, k := range nestedKinds {
		v.On(k, j.visitNestedAtRule)
	}
	v.On(ast.KindAtRule, j.visitAtRule)
	v.Visit(root)
}

var nestedKinds = []ast.Kind{
	ast.KindMedia,
	ast.KindContainer,
	ast.KindLayer,
	ast.KindScope,
	ast.KindStartingStyle,
}

func skipChildren(n ast.Node, args *ast.VisitArgs) ast.Node {
	args.VisitDeeper = false
	return n
}

type joiner struct {
	contexts [][][]*ast.Selector
}

func (j *joiner) current() [][]*ast.Selector {
	return j.contexts[len(j.contexts)-1]
}

func (j *joiner) visitRuleset(n ast.Node, _ *ast.VisitArgs) ast.Node {
	rs := n.(*ast.Ruleset)
	context := j.current()
	var paths [][]*ast.Selector

	if !rs.Root {
		var selectors []*ast.Selector
		for _, s := range rs.Selectors {
			if s.IsOutput() {
				selectors = append(selectors, s)
			}
		}
		rs.Selectors = selectors
		if len(selectors) == 0 {
			rs.Rules = nil
		}
		for _, s := range selectors {
			paths = append(paths, joinSelector(context, s)...)
		}
		if paths == nil {
			paths = [][]*ast.Selector{}
		}
		rs.Paths = paths
	}
	j.contexts = append(j.contexts, paths)
	return n
}

func (j *joiner) leaveRuleset(ast.Node) {
	j.contexts = j.contexts[:len(j.contexts)-1]
}

func (j *joiner) visitNestedAtRule(n ast.Node, _ *ast.VisitArgs) ast.Node {
	if body := n.(*ast.NestedAtRule).Body(); body != nil {
		body.Root = len(j.current()) == 0
	}
	return n
}

func (j *joiner) visitAtRule(n ast.Node, _ *ast.VisitArgs) ast.Node {
	a := n.(*ast.AtRule)
	if body := a.Body(); body != nil {
		body.Root = a.IsRooted || len(j.current()) == 0
	}
	return n
}

// joinSelector returns the paths produced by nesting selector under every
// path of context. Parent references are replaced by the enclosing path;
// selectors without one are appended to it as descendants.
func joinSelector(context [][]*ast.Selector, selector *ast.Selector) [][]*ast.Selector {
	paths, hadParent := replaceParentSelector(context, selector)
	if hadParent {
		return paths
	}
	if len(context) == 0 {
		return [][]*ast.Selector{{selector}}
	}
	out := make([][]*ast.Selector, 0, len(context))
	for _, path := range context {
		joined := make([]*ast.Selector, 0, len(path)+1)
		for _, s := range path {
			derived := s.CreateDerived(s.Elements, s.ExtendList, &s.EvaldCondition)
			derived.CopyVisibility(&selector.Meta)
			joined = append(joined, derived)
		}
		out = append(out, append(joined, selector))
	}
	return out
}

// replaceParentSelector expands every "&" of selector, including those inside
// parenthesized selector arguments such as :not(&.a), and reports whether it
// found one.
func replaceParentSelector(context [][]*ast.Selector, selector *ast.Selector) ([][]*ast.Selector, bool) {
	var (
		current   []*ast.Element
		hadParent bool
	)
	newSelectors := [][]*ast.Selector{{}}

	for _, el := range selector.Elements {
		if !el.IsParentRef() {
			nested := nestedSelector(el)
			if nested == nil {
				current = append(current, el)
				continue
			}
			newSelectors = mergeElementsOntoSelectors(current, newSelectors)
			nestedPaths, replaced := replaceParentSelector(context, nested)
			hadParent = hadParent || replaced
			var replacedSelectors [][]*ast.Selector
			for _, np := range nestedPaths {
				replacement := wrapInSelector(parenthesize(np, el), el)
				for _, sel := range newSelectors {
					replacedSelectors = append(replacedSelectors, addReplacementIntoPath(sel, []*ast.Selector{replacement}, el, selector))
				}
			}
			newSelectors = replacedSelectors
			current = nil
			continue
		}

		hadParent = true
		var multiplied [][]*ast.Selector
		newSelectors = mergeElementsOntoSelectors(current, newSelectors)
		for _, sel := range newSelectors {
			if len(context) == 0 {
				// Nothing to substitute at the root: keep the combinator.
				if len(sel) > 0 {
					first := sel[0].CreateDerived(appendElements(sel[0].Elements, &ast.Element{
						Meta:       ast.Pos(el.Index, el.File),
						Combinator: el.Combinator,
						IsVariable: el.IsVariable,
					}), nil, nil)
					sel = append([]*ast.Selector{first}, sel[1:]...)
				}
				multiplied = append(multiplied, sel)
				continue
			}
			for _, parentPath := range context {
				multiplied = append(multiplied, addReplacementIntoPath(sel, parentPath, el, selector))
			}
		}
		newSelectors = multiplied
		current = nil
	}
	newSelectors = mergeElementsOntoSelectors(current, newSelectors)

	var paths [][]*ast.Selector
	for _, sel := range newSelectors {
		if len(sel) == 0 {
			continue
		}
		last := sel[len(sel)-1]
		extends := selector.ExtendList
		if extends == nil {
			extends = []*ast.Extend{}
		}
		sel[len(sel)-1] = last.CreateDerived(last.Elements, extends, nil)
		paths = append(paths, sel)
	}
	return paths, hadParent
}

// nestedSelector returns the selector wrapped by a parenthesized element.
func nestedSelector(el *ast.Element) *ast.Selector {
	p, ok := el.Value.(*ast.Paren)
	if !ok {
		return nil
	}
	s, _ := p.Value.(*ast.Selector)
	return s
}

// parenthesize wraps a joined path back into a parenthesized argument.
func parenthesize(path []*ast.Selector, original *ast.Element) *ast.Paren {
	inside := make([]*ast.Element, len(path))
	for i, s := range path {
		inside[i] = ast.NewNodeElement("", s, original.IsVariable, original.Index, original.File)
	}
	return &ast.Paren{
		Meta:  ast.Pos(original.Index, original.File),
		Value: ast.NewSelector(inside, nil, nil, original.Index, original.File),
	}
}

func wrapInSelector(value ast.Node, original *ast.Element) *ast.Selector {
	el := ast.NewNodeElement("", value, original.IsVariable, original.Index, original.File)
	return ast.NewSelector([]*ast.Element{el}, nil, nil, original.Index, original.File)
}

// mergeElementsOntoSelectors appends elements to the last selector of every
// path. The paths are rebuilt rather than modified in place.
func mergeElementsOntoSelectors(elements []*ast.Element, selectors [][]*ast.Selector) [][]*ast.Selector {
	if len(elements) == 0 {
		return selectors
	}
	first := elements[0]
	if len(selectors) == 0 {
		return [][]*ast.Selector{{ast.NewSelector(copyElements(elements), nil, nil, first.Index, first.File)}}
	}
	out := make([][]*ast.Selector, len(selectors))
	for i, sel := range selectors {
		if len(sel) == 0 {
			out[i] = []*ast.Selector{ast.NewSelector(copyElements(elements), nil, nil, first.Index, first.File)}
			continue
		}
		path := append([]*ast.Selector(nil), sel...)
		last := path[len(path)-1]
		path[len(path)-1] = last.CreateDerived(appendElements(last.Elements, elements...), nil, nil)
		out[i] = path
	}
	return out
}

// addReplacementIntoPath joins beginning with addPath at the position of the
// replaced "&" element.
func addReplacementIntoPath(beginning, addPath []*ast.Selector, replaced *ast.Element, original *ast.Selector) []*ast.Selector {
	var (
		path   []*ast.Selector
		joined *ast.Selector
	)
	if len(beginning) > 0 {
		path = append(path, beginning[:len(beginning)-1]...)
		last := beginning[len(beginning)-1]
		joined = original.CreateDerived(copyElements(last.Elements), nil, nil)
	} else {
		joined = original.CreateDerived(nil, nil, nil)
	}

	if len(addPath) > 0 {
		combinator := replaced.Combinator
		parentEl := addPath[0].Elements[0]
		if combinator.EmptyOrWhitespace && !parentEl.Combinator.EmptyOrWhitespace {
			combinator = parentEl.Combinator
		}
		joined.Elements = append(joined.Elements, &ast.Element{
			Meta:       ast.Pos(replaced.Index, replaced.File),
			Combinator: combinator,
			Text:       parentEl.Text,
			Value:      parentEl.Value,
			IsVariable: replaced.IsVariable,
		})
		joined.Elements = append(joined.Elements, addPath[0].Elements[1:]...)
	}
	if len(joined.Elements) > 0 {
		path = append(path, joined)
	}

	for _, s := range addPath[1:] {
		path = append(path, s.CreateDerived(s.Elements, []*ast.Extend{}, nil))
	}
	return path
}

func copyElements(elements []*ast.Element) []*ast.Element {
	return append([]*ast.Element(nil), elements...)
}

func appendElements(elements []*ast.Element, more ...*ast.Element) []*ast.Element {
	out := make([]*ast.Element, 0, len(elements)+len(more))
	out = append(out, elements...)
	return append(out, more...)
}
