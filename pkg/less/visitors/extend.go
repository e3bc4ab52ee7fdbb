package visitors

import (
	"fmt"
	"log/slog"
	"slices"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// maxExtendChain bounds the rounds of extend chaining before a cycle is
// reported.
const maxExtendChain = 100

// ProcessExtends applies every :extend() of the tree. Each extend adds its
// own selector path to the rulesets whose paths match its target; extends
// chain, so ".a:extend(.b)" and ".b:extend(.c)" make .a match .c as well.
// Extends declared inside an at-rule only apply within it.
//
// nextID allocates extend ids; it must not hand out ids already used in the
// tree. Extends that match nothing are reported on logger.
func ProcessExtends(root *ast.Ruleset, nextID func() int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	p := &extendProcessor{
		nextID:       nextID,
		logger:       logger,
		rulesetOf:    make(map[*ast.Extend]*ast.Ruleset),
		blockExtends: make(map[ast.Node][]*ast.Extend),
	}

	all := p.find(root)
	if !p.found {
		return nil
	}
	chained, err := p.chain(all, all, 0)
	if err != nil {
		return err
	}
	all = append(all, chained...)

	p.apply(root, all)
	if p.err != nil {
		return p.err
	}
	p.reportUnmatched(all)
	return nil
}

type extendProcessor struct {
	nextID func() int
	logger *slog.Logger

	// rulesetOf maps each extend to the ruleset whose paths it extends from
	rulesetOf map[*ast.Extend]*ast.Ruleset
	// blockExtends holds the extends declared inside each at-rule
	blockExtends map[ast.Node][]*ast.Extend

	found bool
	err   error
}

// find collects the extends of every ruleset path, one copy per path.
func (p *extendProcessor) find(root *ast.Ruleset) []*ast.Extend {
	stack := [][]*ast.Extend{nil}

	v := ast.NewVisitor(false)
	v.On(ast.KindDeclaration, skipChildren)
	v.On(ast.KindMixinDefinition, skipChildren)
	v.On(ast.KindRuleset, func(n ast.Node, _ *ast.VisitArgs) ast.Node {
		rs := n.(*ast.Ruleset)
		if rs.Root {
			return n
		}

		// &:extend(...) rules apply to every selector of the ruleset
		var everyPath []*ast.Extend
		for _, r := range rs.Rules {
			if e, ok := r.(*ast.Extend); ok {
				everyPath = append(everyPath, e)
				rs.ExtendOnEveryPath = true
			}
		}

		top := len(stack) - 1
		for _, path := range rs.Paths {
			if len(path) == 0 {
				continue
			}
			list := append(slices.Clone(path[len(path)-1].ExtendList), everyPath...)
			for j, e := range list {
				clone := e.Clone(p.nextID())
				clone.FindSelfSelectors(path)
				clone.FirstExtendOnThisSelectorPath = j == 0
				p.rulesetOf[clone] = rs
				p.found = true
				stack[top] = append(stack[top], clone)
			}
		}
		return n
	})

	enter := func(n ast.Node, _ *ast.VisitArgs) ast.Node {
		stack = append(stack, nil)
		return n
	}
	leave := func(n ast.Node) {
		top := len(stack) - 1
		p.blockExtends[n] = stack[top]
		stack = stack[:top]
	}
	for _, k := range nestedKinds {
		v.On(k, enter)
		v.OnExit(k, leave)
	}
	v.On(ast.KindAtRule, enter)
	v.OnExit(ast.KindAtRule, leave)

	v.Visit(root)
	return stack[0]
}

// apply extends the paths of every ruleset with the extends in scope.
func (p *extendProcessor) apply(root *ast.Ruleset, all []*ast.Extend) {
	stack := [][]*ast.Extend{all}

	v := ast.NewVisitor(false)
	v.On(ast.KindDeclaration, skipChildren)
	v.On(ast.KindMixinDefinition, skipChildren)
	v.On(ast.KindSelector, skipChildren)
	v.On(ast.KindRuleset, func(n ast.Node, _ *ast.VisitArgs) ast.Node {
		rs := n.(*ast.Ruleset)
		if rs.Root || rs.ExtendOnEveryPath {
			return n
		}
		var added [][]*ast.Selector
		for _, ext := range stack[len(stack)-1] {
			for _, path := range rs.Paths {
				// paths carrying their own extends were handled by chaining
				if len(path) == 0 || len(path[len(path)-1].ExtendList) > 0 {
					continue
				}
				matches := findMatch(ext, path)
				if len(matches) == 0 {
					continue
				}
				ext.HasFoundMatches = true
				for _, self := range ext.SelfSelectors {
					added = append(added, extendSelector(matches, path, self, ext.IsVisible()))
				}
			}
		}
		rs.Paths = append(rs.Paths, added...)
		return n
	})

	enter := func(n ast.Node, _ *ast.VisitArgs) ast.Node {
		own := p.blockExtends[n]
		inScope := append(slices.Clone(own), stack[len(stack)-1]...)
		chained, err := p.chain(inScope, own, 0)
		if err != nil && p.err == nil {
			p.err = err
		}
		stack = append(stack, append(inScope, chained...))
		return n
	}
	leave := func(ast.Node) {
		stack = stack[:len(stack)-1]
	}
	for _, k := range nestedKinds {
		v.On(k, enter)
		v.OnExit(k, leave)
	}
	v.On(ast.KindAtRule, enter)
	v.OnExit(ast.KindAtRule, leave)

	v.Visit(root)
}

// chain matches extends against the self selectors of targets and returns
// the extends derived from the matches. A derived extend targets what the
// matched extend targets, from the newly built path; it is chained again
// until no new match appears.
func (p *extendProcessor) chain(extends, targets []*ast.Extend, iteration int) ([]*ast.Extend, error) {
	var added []*ast.Extend
	for _, ext := range extends {
		for _, target := range targets {
			if slices.Contains(ext.ParentIDs, target.ObjectID) || len(target.SelfSelectors) == 0 {
				continue
			}
			path := []*ast.Selector{target.SelfSelectors[0]}
			matches := findMatch(ext, path)
			if len(matches) == 0 {
				continue
			}
			ext.HasFoundMatches = true

			for _, self := range ext.SelfSelectors {
				newPath := extendSelector(matches, path, self, ext.IsVisible())

				derived := ast.NewExtend(target.Selector, target.Option, p.nextID(), target.Index, target.File)
				derived.CopyVisibility(&target.Meta)
				derived.SelfSelectors = newPath
				derived.ParentIDs = append(derived.ParentIDs, target.ParentIDs...)
				derived.ParentIDs = append(derived.ParentIDs, ext.ParentIDs...)
				newPath[len(newPath)-1].ExtendList = []*ast.Extend{derived}

				rs := p.rulesetOf[target]
				p.rulesetOf[derived] = rs
				if target.FirstExtendOnThisSelectorPath {
					derived.FirstExtendOnThisSelectorPath = true
					if rs != nil {
						rs.Paths = append(rs.Paths, newPath)
					}
				}
				added = append(added, derived)
			}
		}
	}
	if len(added) == 0 {
		return nil, nil
	}
	if iteration > maxExtendChain {
		first := added[0]
		return nil, lesserrors.Newf(lesserrors.ErrorTypeRuntime,
			"extend circular reference detected. One of the circular extends is currently:%s:extend(%s)",
			first.SelfSelectors[0].ToCSS(nil), first.Selector.ToCSS(nil)).At(first.Filename(), first.Index)
	}
	more, err := p.chain(added, targets, iteration+1)
	if err != nil {
		return nil, err
	}
	return append(added, more...), nil
}

// reportUnmatched warns once per source extend that matched nothing.
func (p *extendProcessor) reportUnmatched(all []*ast.Extend) {
	seen := make(map[string]bool)
	for _, ext := range all {
		if ext.HasFoundMatches || len(ext.ParentIDs) != 1 {
			continue
		}
		sel := ext.Selector.ToCSS(nil)
		key := fmt.Sprintf("%d %s", ext.Index, sel)
		if seen[key] {
			continue
		}
		seen[key] = true
		p.logger.Warn(fmt.Sprintf("extend '%s' has no matches", sel),
			"file", ext.Filename(),
			"index", ext.Index,
		)
	}
}

// extendMatch is a run of haystack elements equal to an extend target.
type extendMatch struct {
	pathIndex         int
	index             int
	matched           int
	initialCombinator ast.Combinator
	finished          bool

	endPathIndex        int
	endPathElementIndex int // index after the end of the match
}

// findMatch returns the non-overlapping places where the extend target
// occurs in the selector path. Without "all" the target must cover the whole
// path.
func findMatch(ext *ast.Extend, haystack []*ast.Selector) []*extendMatch {
	needle := ext.Selector.Elements
	if len(needle) == 0 {
		return nil
	}
	var potential, matches []*extendMatch

	for si, sel := range haystack {
		for ei, el := range sel.Elements {
			if ext.AllowBefore || (si == 0 && ei == 0) {
				potential = append(potential, &extendMatch{pathIndex: si, index: ei, initialCombinator: el.Combinator})
			}

			for i := 0; i < len(potential); i++ {
				m := potential[i]

				// Selectors after the first in a path are printed with a
				// leading space, which is the combinator to compare against.
				target := el.Combinator.Value
				if target == "" && ei == 0 {
					target = " "
				}

				ok := elementsEqual(needle[m.matched], el) &&
					(m.matched == 0 || needle[m.matched].Combinator.Value == target)
				if ok {
					m.matched++
					m.finished = m.matched == len(needle)
					if m.finished && !ext.AllowAfter && (ei+1 < len(sel.Elements) || si+1 < len(haystack)) {
						ok = false
					}
				}
				if !ok {
					potential = append(potential[:i], potential[i+1:]...)
					i--
					continue
				}
				if m.finished {
					m.endPathIndex = si
					m.endPathElementIndex = ei + 1
					matches = append(matches, m)
					potential = potential[:0]
					break
				}
			}
		}
	}
	return matches
}

func elementsEqual(a, b *ast.Element) bool {
	return elementValuesEqual(a.Text, a.Value, b.Text, b.Value)
}

func elementValuesEqual(t1 string, v1 ast.Node, t2 string, v2 ast.Node) bool {
	if v1 == nil || v2 == nil {
		return v1 == nil && v2 == nil && t1 == t2
	}

	if a1, ok := v1.(*ast.Attribute); ok {
		a2, ok := v2.(*ast.Attribute)
		if !ok || a1.Op != a2.Op || a1.Key != a2.Key {
			return false
		}
		if a1.Value == nil || a2.Value == nil {
			return a1.Value == nil && a2.Value == nil
		}
		return attributeValue(a1.Value) == attributeValue(a2.Value)
	}

	s1, s2 := parenSelector(v1), parenSelector(v2)
	if s1 == nil || s2 == nil || len(s1.Elements) != len(s2.Elements) {
		return false
	}
	for i := range s1.Elements {
		c1, c2 := s1.Elements[i].Combinator.Value, s2.Elements[i].Combinator.Value
		if c1 != c2 && (i != 0 || orSpace(c1) != orSpace(c2)) {
			return false
		}
		if !elementsEqual(s1.Elements[i], s2.Elements[i]) {
			return false
		}
	}
	return true
}

func parenSelector(n ast.Node) *ast.Selector {
	if p, ok := n.(*ast.Paren); ok {
		s, _ := p.Value.(*ast.Selector)
		return s
	}
	return nil
}

func attributeValue(n ast.Node) string {
	switch t := n.(type) {
	case *ast.Quoted:
		return t.Value
	case *ast.Keyword:
		return t.Value
	case *ast.Anonymous:
		return t.Value
	}
	return ast.CSS(n)
}

func orSpace(s string) string {
	if s == "" {
		return " "
	}
	return s
}

// extendSelector builds a copy of path with every match replaced by the
// replacement selector. The copy is marked visible when the extend is.
func extendSelector(matches []*extendMatch, path []*ast.Selector, replacement *ast.Selector, visible bool) []*ast.Selector {
	var (
		out       []*ast.Selector
		pathIndex int
		elIndex   int
	)
	appendToLast := func(els []*ast.Element) {
		last := out[len(out)-1]
		out[len(out)-1] = last.CreateDerived(appendElements(last.Elements, els...), nil, nil)
	}

	for mi, m := range matches {
		sel := path[m.pathIndex]
		var first *ast.Element
		if len(replacement.Elements) > 0 {
			r := replacement.Elements[0]
			first = &ast.Element{
				Meta:       ast.Pos(r.Index, r.File),
				Combinator: m.initialCombinator,
				Text:       r.Text,
				Value:      r.Value,
				IsVariable: r.IsVariable,
			}
		}

		if m.pathIndex > pathIndex && elIndex > 0 {
			appendToLast(path[pathIndex].Elements[elIndex:])
			elIndex = 0
			pathIndex++
		}

		start := elIndex
		if m.pathIndex != pathIndex {
			start = 0
		}
		newElements := appendElements(sel.Elements[start:m.index])
		if first != nil {
			newElements = append(newElements, first)
			newElements = append(newElements, replacement.Elements[1:]...)
		}

		if pathIndex == m.pathIndex && mi > 0 {
			appendToLast(newElements)
		} else {
			out = append(out, path[pathIndex:m.pathIndex]...)
			out = append(out, ast.NewSelector(newElements, nil, nil, sel.Index, sel.File))
		}

		pathIndex = m.endPathIndex
		elIndex = m.endPathElementIndex
		if elIndex >= len(path[pathIndex].Elements) {
			elIndex = 0
			pathIndex++
		}
	}

	if pathIndex < len(path) && elIndex > 0 {
		appendToLast(path[pathIndex].Elements[elIndex:])
		pathIndex++
	}
	if pathIndex < len(path) {
		out = append(out, path[pathIndex:]...)
	}

	for i, s := range out {
		derived := s.CreateDerived(s.Elements, nil, nil)
		if visible {
			derived.EnsureVisibility()
		} else {
			derived.EnsureInvisibility()
		}
		out[i] = derived
	}
	return out
}
