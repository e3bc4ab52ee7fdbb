package eval

import (
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
	"mercator-hq/cascade/pkg/less/parser"
)

// evalRuleset evaluates a ruleset in four passes: imports, mixin definitions,
// mixin and variable calls, then everything else. The new ruleset is pushed
// as a frame while its body is evaluated, so lookups see rules as they are
// replaced.
func (c *Context) evalRuleset(r *ast.Ruleset) (*ast.Ruleset, error) {
	if err := c.sess.checkCanceled(); err != nil {
		return nil, err
	}

	selectors, passing, err := c.evalRulesetSelectors(r)
	if err != nil {
		return nil, err
	}

	out := &ast.Ruleset{
		Meta:          r.Derive(),
		Selectors:     selectors,
		Root:          r.Root,
		FirstRoot:     r.FirstRoot,
		AllowImports:  r.AllowImports,
		StrictImports: r.StrictImports,
		Original:      r.Template(),
	}
	if passing {
		out.Rules = append([]ast.RuleBodyItem(nil), r.Rules...)
	}

	c.push(Frame{Scope: out, Registry: c.registry().Inherit()})
	defer c.pop()

	if out.Root || out.AllowImports || !out.StrictImports {
		if err := c.evalImports(out); err != nil {
			return nil, err
		}
	}

	for i, rule := range out.Rules {
		if m, ok := rule.(*ast.MixinDefinition); ok {
			out.Rules[i] = c.evalMixinDefinition(m)
		}
	}

	blockCount := c.mediaCount()

	for i := 0; i < len(out.Rules); i++ {
		var produced []ast.RuleBodyItem
		switch t := out.Rules[i].(type) {
		case *ast.MixinCall:
			rules, err := c.evalMixinCall(t)
			if err != nil {
				return nil, err
			}
			for _, rule := range rules {
				if d, ok := rule.(*ast.Declaration); ok && d.Variable && out.Variable(d.Name) != nil {
					continue
				}
				produced = append(produced, rule)
			}
		case *ast.VariableCall:
			rules, err := c.evalVariableCall(t)
			if err != nil {
				return nil, err
			}
			for _, rule := range rules {
				if d, ok := rule.(*ast.Declaration); ok && d.Variable {
					continue
				}
				produced = append(produced, rule)
			}
		default:
			continue
		}
		out.Rules = splice(out.Rules, i, produced)
		i += len(produced) - 1
	}

	for i, rule := range out.Rules {
		if _, ok := rule.(*ast.MixinDefinition); ok {
			continue
		}
		evald, err := c.evalRule(rule)
		if err != nil {
			return nil, err
		}
		out.Rules[i] = evald
	}

	// A nested "&" block adds nothing to the selector, so its rules move up.
	for i := 0; i < len(out.Rules); i++ {
		rs, ok := out.Rules[i].(*ast.Ruleset)
		if !ok || len(rs.Selectors) != 1 || !rs.Selectors[0].IsJustParentSelector() {
			continue
		}
		var folded []ast.RuleBodyItem
		for _, sub := range rs.Rules {
			sub.Metadata().CopyVisibility(&rs.Meta)
			if d, ok := sub.(*ast.Declaration); ok && d.Variable {
				continue
			}
			folded = append(folded, sub)
		}
		out.Rules = splice(out.Rules, i, folded)
		i += len(folded) - 1
	}

	if c.media != nil && len(c.media.blocks) > blockCount {
		for _, block := range c.media.blocks[blockCount:] {
			bubbleSelectors(block, selectors)
		}
	}
	return out, nil
}

// evalRulesetSelectors evaluates the selectors of r. passing reports whether
// at least one selector's guard holds.
func (c *Context) evalRulesetSelectors(r *ast.Ruleset) ([]*ast.Selector, bool, error) {
	if len(r.Selectors) == 0 {
		return r.Selectors, true, nil
	}

	saved := c.sess.def
	c.sess.def.forbid(errDefaultOutsideGuard())
	defer func() { c.sess.def = saved }()

	selectors := make([]*ast.Selector, len(r.Selectors))
	passing := false
	interpolated := false
	for i, s := range r.Selectors {
		sel, err := c.evalSelector(s)
		if err != nil {
			return nil, false, err
		}
		selectors[i] = sel
		for _, e := range sel.Elements {
			if e.IsVariable {
				interpolated = true
			}
		}
		if sel.EvaldCondition {
			passing = true
		}
	}

	if interpolated {
		selectors = c.reparseSelectors(selectors)
	}
	return selectors, passing, nil
}

// reparseSelectors re-reads selectors whose interpolated elements may have
// produced several elements or combinators. The evaluated selectors are kept
// when the text does not parse.
func (c *Context) reparseSelectors(selectors []*ast.Selector) []*ast.Selector {
	texts := make([]string, len(selectors))
	for i, s := range selectors {
		texts[i] = s.ToCSS(nil)
	}
	first := selectors[0]
	parsed, err := parser.ParseSelectors(strings.Join(texts, ","), first.Index, first.File)
	if err != nil || len(parsed) == 0 {
		c.sess.logger.Debug("keeping interpolated selector as written",
			"selector", strings.Join(texts, ","), "error", err)
		return selectors
	}
	for _, s := range parsed {
		s.CopyVisibility(&first.Meta)
	}
	return parsed
}

// bubbleSelectors moves the body of a bubbled at-rule under selectors.
func bubbleSelectors(block *ast.NestedAtRule, selectors []*ast.Selector) {
	if len(selectors) == 0 || len(block.Rules) == 0 {
		return
	}
	wrapped := ast.NewRuleset(append([]*ast.Selector(nil), selectors...), []ast.RuleBodyItem{block.Rules[0]}, block.Index, block.File)
	block.Rules = []ast.RuleBodyItem{wrapped}
}

func (c *Context) evalDeclaration(d *ast.Declaration) (*ast.Declaration, error) {
	name, variable := d.Name, d.Variable
	if len(d.NameParts) > 0 {
		var sb strings.Builder
		for _, part := range d.NameParts {
			v, err := c.eval(part)
			if err != nil {
				return nil, d.Stamp(err)
			}
			sb.WriteString(nameOf(v))
		}
		name, variable = sb.String(), false
	}

	if name == "font" && c.math == MathAlways {
		c.math = MathParensDivision
		defer func() { c.math = MathAlways }()
	}

	c.pushImportant()
	value, err := c.eval(d.Value)
	important := c.popImportant()
	if err != nil {
		return nil, d.Stamp(err)
	}
	if _, ok := value.(*ast.DetachedRuleset); ok && !variable {
		return nil, d.Errorf(lesserrors.ErrorTypeRuntime, "Rulesets cannot be evaluated on a property.")
	}

	out := &ast.Declaration{
		Meta:      ast.Pos(d.Index, d.File),
		Name:      name,
		Value:     value,
		Important: d.Important,
		Merge:     d.Merge,
		Inline:    d.Inline,
		Variable:  variable,
	}
	if out.Important == "" && important != "" {
		out.Important = ast.NormalizeImportant(important)
	}
	return out, nil
}

func (c *Context) evalDetachedRuleset(d *ast.DetachedRuleset) *ast.DetachedRuleset {
	frames, ok := c.sess.closures[d]
	if !ok {
		frames = c.frames
	}
	out := &ast.DetachedRuleset{Meta: d.Derive(), Ruleset: d.Ruleset}
	c.sess.closures[out] = frames
	return out
}

// callDetached evaluates the body of a detached ruleset in its defining scope
// followed by the caller's scope.
func (c *Context) callDetached(d *ast.DetachedRuleset) (*ast.Ruleset, error) {
	if err := c.enterMixin(); err != nil {
		return nil, d.Stamp(err)
	}
	defer c.exitMixin()

	if frames, ok := c.sess.closures[d]; ok {
		return c.derive(concatFrames(frames, c.frames)).evalRuleset(d.Ruleset)
	}
	return c.evalRuleset(d.Ruleset)
}

func (c *Context) evalVariableCall(vc *ast.VariableCall) ([]ast.RuleBodyItem, error) {
	v, err := c.evalVariable(ast.NewVariable(vc.Variable, vc.Index, vc.File))
	if err != nil {
		return nil, err
	}
	var dr *ast.DetachedRuleset
	switch t := v.(type) {
	case *ast.DetachedRuleset:
		dr = t
	case *ast.Ruleset:
		dr = ast.NewDetachedRuleset(t, vc.Index, vc.File)
	default:
		return nil, vc.Errorf(lesserrors.ErrorTypeRuntime, "Could not evaluate variable call %s", vc.Variable)
	}
	rs, err := c.callDetached(dr)
	if err != nil {
		return nil, vc.Stamp(err)
	}
	if vc.Important {
		return c.makeImportant(rs.Rules), nil
	}
	return rs.Rules, nil
}
