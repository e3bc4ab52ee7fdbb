package eval

import (
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
)

// evalNestedAtRule evaluates a conditional group at-rule. All families share
// one bubbling session: the outermost block returns every block hoisted below
// it, and a nested block of the same family as every block enclosing it
// leaves an empty placeholder behind and gets the combined features of its
// ancestors. A block nested in a block of another family stays where it was
// written.
func (c *Context) evalNestedAtRule(n *ast.NestedAtRule) (ast.RuleBodyItem, error) {
	if c.media == nil {
		c.media = &mediaSession{}
	}
	sess := c.media

	block := &ast.NestedAtRule{Meta: n.Derive(), Family: n.Family}
	if n.Features != nil {
		features, err := c.eval(n.Features)
		if err != nil {
			return nil, err
		}
		block.Features = features
	}

	sess.path = append(sess.path, block)
	sess.blocks = append(sess.blocks, block)

	if body := n.Body(); body != nil {
		c.push(Frame{Scope: body, Registry: c.registry().Inherit()})
		evald, err := c.evalRuleset(body)
		c.pop()
		if err != nil {
			sess.path = sess.path[:len(sess.path)-1]
			if len(sess.path) == 0 {
				c.media = nil
			}
			return nil, err
		}
		block.Rules = []ast.RuleBodyItem{evald}
	}
	sess.path = sess.path[:len(sess.path)-1]

	if len(sess.path) == 0 {
		return c.evalTop(block), nil
	}
	return c.evalNested(block, sess), nil
}

// evalTop closes the bubbling session. Several blocks are returned wrapped in
// a ruleset that the join pass treats as transparent.
func (c *Context) evalTop(block *ast.NestedAtRule) ast.RuleBodyItem {
	sess := c.media
	c.media = nil
	if len(sess.blocks) <= 1 {
		return block
	}
	rules := make([]ast.RuleBodyItem, len(sess.blocks))
	for i, b := range sess.blocks {
		rules[i] = b
	}
	wrapper := ast.NewRuleset(ast.CreateEmptySelectors(block.Index, block.File), rules, block.Index, block.File)
	wrapper.MultiMedia = true
	wrapper.CopyVisibility(&block.Meta)
	return wrapper
}

// evalNested combines the features of the enclosing blocks into block and
// returns the placeholder left where the block was written. When a block of
// another family encloses it, block is returned in place and not hoisted.
func (c *Context) evalNested(block *ast.NestedAtRule, sess *mediaSession) ast.RuleBodyItem {
	path := append(append([]*ast.NestedAtRule(nil), sess.path...), block)
	for _, p := range sess.path {
		if p.Family != block.Family {
			sess.drop(block)
			return block
		}
	}

	switch block.Family {
	case ast.FamilyScope:
		block.Features = scopeFeatures(path, block.Index, block.File)
	case ast.FamilyLayer:
		block.Features = layerFeatures(path, block.Index, block.File)
	default:
		lists := make([][]ast.Node, len(path))
		for i, p := range path {
			lists[i] = p.FeatureList()
		}
		var exprs []ast.Node
		for _, perm := range permute(lists) {
			parts := make([]ast.Node, 0, 2*len(perm)-1)
			for i, f := range perm {
				if i > 0 {
					parts = append(parts, ast.NewAnonymous("and", -1, nil))
				}
				parts = append(parts, f)
			}
			exprs = append(exprs, ast.NewExpression(parts, block.Index, block.File))
		}
		block.Features = ast.NewValue(exprs, block.Index, block.File)
	}
	return ast.NewRuleset(nil, nil, block.Index, block.File)
}

// permute returns the cartesian product of lists. The first list varies
// fastest.
func permute(lists [][]ast.Node) [][]ast.Node {
	switch len(lists) {
	case 0:
		return nil
	case 1:
		out := make([][]ast.Node, len(lists[0]))
		for i, n := range lists[0] {
			out[i] = []ast.Node{n}
		}
		return out
	}
	var out [][]ast.Node
	for _, rest := range permute(lists[1:]) {
		for _, first := range lists[0] {
			perm := make([]ast.Node, 0, len(rest)+1)
			perm = append(perm, first)
			out = append(out, append(perm, rest...))
		}
	}
	return out
}

// layerFeatures joins nested layer names with dots.
func layerFeatures(path []*ast.NestedAtRule, index int, file *ast.FileInfo) ast.Node {
	var names []string
	for _, p := range path {
		for _, f := range p.FeatureList() {
			if name := strings.TrimSpace(ast.CSS(f)); name != "" {
				names = append(names, name)
				break
			}
		}
	}
	return ast.NewValue([]ast.Node{ast.NewAnonymous(strings.Join(names, "."), index, file)}, index, file)
}

// scopeFeatures turns nested @scope preludes into one: the scope roots are
// chained with the child combinator, and the limits, chained the same way,
// are placed below the combined root: (a > b) to (a > b > c).
func scopeFeatures(path []*ast.NestedAtRule, index int, file *ast.FileInfo) ast.Node {
	var roots, limits []string
	for _, p := range path {
		from, to := splitScopePrelude(ast.CSS(p.Features))
		if from != "" {
			roots = append(roots, from)
		}
		if to != "" {
			limits = append(limits, to)
		}
	}
	root := chainScope(roots)
	text := "(" + root + ")"
	if len(limits) > 0 {
		text += " to (" + chainScope(append([]string{root}, limits...)) + ")"
	}
	return ast.NewAnonymous(text, index, file)
}

// chainScope joins scope selectors with the child combinator unless a part
// already starts with one.
func chainScope(parts []string) string {
	var sb strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if sb.Len() > 0 {
			if strings.HasPrefix(part, ">") {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(" > ")
			}
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// splitScopePrelude splits "(from) to (limit)" into its selectors without
// parentheses or a leading :scope.
func splitScopePrelude(s string) (from, to string) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ") to ("); i >= 0 {
		from, to = s[:i+1], s[i+len(") to "):]
	} else if strings.HasPrefix(s, "to (") {
		to = s[len("to "):]
	} else {
		from = s
	}
	return cleanScopeSelector(from), cleanScopeSelector(to)
}

func cleanScopeSelector(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ":scope")
	return strings.TrimSpace(s)
}

// evalAtRule evaluates any other at-rule. Bubbling sessions do not cross it:
// nested group rules inside its body are closed within the body.
func (c *Context) evalAtRule(a *ast.AtRule) (ast.RuleBodyItem, error) {
	saved := c.media
	c.media = nil
	defer func() { c.media = saved }()

	out := &ast.AtRule{
		Meta:        a.Derive(),
		Name:        a.Name,
		IsRooted:    a.IsRooted,
		SimpleBlock: a.SimpleBlock,
	}
	if a.Value != nil {
		v, err := c.eval(a.Value)
		if err != nil {
			return nil, err
		}
		if list, ok := keywordList(v); ok {
			v = ast.NewAnonymous(list, v.Metadata().Index, v.Metadata().File)
		}
		out.Value = v
	}

	if a.SimpleBlock {
		decls := make([]ast.RuleBodyItem, len(a.Declarations))
		for i, d := range a.Declarations {
			evald, err := c.evalRule(d)
			if err != nil {
				return nil, err
			}
			decls[i] = evald
		}
		out.Declarations = decls
		return out, nil
	}

	if body := a.Body(); body != nil {
		evald, err := c.evalRuleset(body)
		if err != nil {
			return nil, err
		}
		out.Rules = []ast.RuleBodyItem{evald}
		if len(evald.Rules) > 0 && ast.DeclarationsBlock(evald.Rules, true) && !a.IsRooted && out.Value == nil {
			merged := ast.MergeRules(evald.Rules)
			for i, r := range merged {
				if d, ok := r.(*ast.Declaration); ok && d.Merge != "" {
					cp := *d
					cp.Merge = ""
					merged[i] = &cp
				}
			}
			out.Rules = merged
		}
	}
	return out, nil
}

// keywordList renders a list made only of keywords, such as the value of
// @layer a, b;
func keywordList(n ast.Node) (string, bool) {
	items, ok := listItems(n)
	if !ok || len(items) == 0 {
		return "", false
	}
	names := make([]string, len(items))
	for i, item := range items {
		switch t := item.(type) {
		case *ast.Keyword:
			names[i] = t.Value
		case *ast.Comment:
			names[i] = t.Value
		default:
			return "", false
		}
	}
	return strings.Join(names, ", "), true
}
