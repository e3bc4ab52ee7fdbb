package eval

import (
	"fmt"
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// defaultGroup classifies a mixin candidate by how its guard depends on
// default().
type defaultGroup int

const (
	// defFalseEitherCase: the guard fails whatever default() returns.
	defFalseEitherCase defaultGroup = iota - 1
	// defNone: the guard passes whatever default() returns.
	defNone
	// defTrue: the guard passes only when default() is true.
	defTrue
	// defFalse: the guard passes only when default() is false.
	defFalse
)

type candidate struct {
	rule  ast.Node
	group defaultGroup
}

func (c *Context) enterMixin() error {
	if c.sess.mixinDepth >= c.sess.opts.MaxMixinDepth {
		return lesserrors.Wrap(lesserrors.ErrorTypeRuntime, lesserrors.ErrMaxDepth,
			fmt.Sprintf("Maximum call stack size exceeded: more than %d nested mixin calls", c.sess.opts.MaxMixinDepth))
	}
	if err := c.sess.checkCanceled(); err != nil {
		return err
	}
	c.sess.mixinDepth++
	return nil
}

func (c *Context) exitMixin() {
	c.sess.mixinDepth--
}

func (c *Context) evalMixinDefinition(m *ast.MixinDefinition) *ast.MixinDefinition {
	frames, ok := c.sess.closures[m]
	if !ok {
		frames = c.frames
	}
	out := *m
	out.Meta = ast.Pos(m.Index, m.File)
	c.sess.closures[&out] = frames
	return &out
}

// evalMixinCall expands a mixin call into the rules of every matching
// definition. Frames are searched nearest first and the first frame with a
// matching definition wins.
func (c *Context) evalMixinCall(call *ast.MixinCall) ([]ast.RuleBodyItem, error) {
	sel, err := c.evalSelector(call.Selector)
	if err != nil {
		return nil, err
	}
	args, err := c.evalMixinArgs(call.Args)
	if err != nil {
		return nil, err
	}
	noArgs := func(n ast.Node) bool {
		ok, _ := c.matchArgs(n, nil)
		return ok
	}

	found := false
	for _, f := range c.frames {
		mixins := f.Scope.Find(sel, nil, noArgs)
		if len(mixins) == 0 {
			continue
		}
		found = true

		var candidates []candidate
		match := false
		for _, m := range mixins {
			if c.isRecursive(m.Rule) {
				continue
			}
			ok, err := c.matchArgs(m.Rule, args)
			if err != nil {
				return nil, call.Stamp(err)
			}
			if !ok {
				continue
			}
			match = true
			group, err := c.defaultGroup(m, args)
			if err != nil {
				return nil, call.Stamp(err)
			}
			if group != defFalseEitherCase {
				candidates = append(candidates, candidate{rule: m.Rule, group: group})
			}
		}

		var count [3]int
		for _, cand := range candidates {
			count[cand.group]++
		}
		want := defTrue
		if count[defNone] > 0 {
			want = defFalse
		} else if count[defTrue]+count[defFalse] > 1 {
			return nil, call.Errorf(lesserrors.ErrorTypeRuntime,
				"Ambiguous use of `default()` found when matching for `%s`", call.Signature(args))
		}

		var rules []ast.RuleBodyItem
		for _, cand := range candidates {
			if cand.group != defNone && cand.group != want {
				continue
			}
			produced, err := c.callMixin(cand.rule, args, call.Important)
			if err != nil {
				return nil, call.Stamp(err)
			}
			if call.BlocksVisibility() {
				for _, r := range produced {
					r.Metadata().AddVisibilityBlock()
				}
			}
			rules = append(rules, produced...)
		}
		if match {
			return rules, nil
		}
	}

	if found {
		return nil, call.Errorf(lesserrors.ErrorTypeRuntime,
			"No matching definition was found for `%s`", call.Signature(args))
	}
	name := strings.TrimSpace(sel.ToCSS(nil))
	return nil, call.Errorf(lesserrors.ErrorTypeName, "%s is undefined", name).
		WithSuggestion(lesserrors.SuggestName(name, c.mixinNames()))
}

// mixinNames lists the mixins and namespaces visible from the current scope.
func (c *Context) mixinNames() []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, f := range c.frames {
		var rules []ast.RuleBodyItem
		switch s := f.Scope.(type) {
		case *ast.Ruleset:
			rules = s.Rules
		case *ast.MixinDefinition:
			rules = s.Rules
		}
		for _, r := range rules {
			switch t := r.(type) {
			case *ast.MixinDefinition:
				add(t.Name)
			case *ast.Ruleset:
				for _, s := range t.Selectors {
					add(s.ToCSS(nil))
				}
			}
		}
	}
	return names
}

func (c *Context) evalMixinArgs(in []ast.MixinArg) ([]ast.MixinArg, error) {
	out := make([]ast.MixinArg, 0, len(in))
	for _, a := range in {
		v, err := c.eval(a.Value)
		if err != nil {
			return nil, err
		}
		if a.Expand {
			if items, ok := listItems(v); ok {
				for _, item := range items {
					out = append(out, ast.MixinArg{Value: item})
				}
				continue
			}
		}
		out = append(out, ast.MixinArg{Name: a.Name, Value: v})
	}
	return out, nil
}

func listItems(n ast.Node) ([]ast.Node, bool) {
	switch t := n.(type) {
	case *ast.Value:
		return t.Value, true
	case *ast.Expression:
		return t.Value, true
	}
	return nil, false
}

// isRecursive reports whether rule is a plain ruleset currently being
// evaluated, which would call itself forever.
func (c *Context) isRecursive(rule ast.Node) bool {
	rs, ok := rule.(*ast.Ruleset)
	if !ok {
		return false
	}
	tmpl := rs.Template()
	for _, f := range c.frames {
		if fr, ok := f.Scope.(*ast.Ruleset); ok && fr.Template() == tmpl {
			return true
		}
	}
	return false
}

// matchArgs reports whether rule can be called with args.
func (c *Context) matchArgs(rule ast.Node, args []ast.MixinArg) (bool, error) {
	switch t := rule.(type) {
	case *ast.Ruleset:
		return t.MatchArgs(args), nil
	case *ast.MixinDefinition:
		return c.matchDefinitionArgs(t, args)
	}
	return false, nil
}

func (c *Context) matchDefinitionArgs(m *ast.MixinDefinition, args []ast.MixinArg) (bool, error) {
	required := 0
	for _, a := range args {
		if !m.IsOptional(a.Name) {
			required++
		}
	}

	if !m.Variadic {
		if required < m.Required || len(args) > len(m.Params) {
			return false, nil
		}
	} else if required < m.Required-1 {
		return false, nil
	}

	n := min(required, m.Arity)
	for i := 0; i < n && i < len(args); i++ {
		p := m.Params[i]
		if p.Name != "" || p.Variadic {
			continue
		}
		pattern, err := c.eval(p.Value)
		if err != nil {
			return false, err
		}
		arg, err := c.eval(args[i].Value)
		if err != nil {
			return false, err
		}
		if ast.CSS(pattern) != ast.CSS(arg) {
			return false, nil
		}
	}
	return true, nil
}

// defaultGroup matches the guards of a candidate and of the namespaces it was
// found through, once with default() false and once with it true.
func (c *Context) defaultGroup(found ast.FoundMixin, args []ast.MixinArg) (defaultGroup, error) {
	saved := c.sess.def
	defer func() { c.sess.def = saved }()

	var result [2]bool
	for f := range result {
		c.sess.def.reset()
		c.sess.def.set(f == 1)
		result[f] = true
		for _, ns := range found.Path {
			ok, err := c.matchCondition(ns, nil)
			if err != nil {
				return defFalseEitherCase, err
			}
			if !ok {
				result[f] = false
				break
			}
		}
		if result[f] {
			ok, err := c.matchCondition(found.Rule, args)
			if err != nil {
				return defFalseEitherCase, err
			}
			result[f] = ok
		}
	}

	switch {
	case result[0] && result[1]:
		return defNone, nil
	case result[1]:
		return defTrue, nil
	case result[0]:
		return defFalse, nil
	}
	return defFalseEitherCase, nil
}

// matchCondition evaluates the guard of a mixin definition, or the evaluated
// guard of a ruleset.
func (c *Context) matchCondition(rule ast.Node, args []ast.MixinArg) (bool, error) {
	switch t := rule.(type) {
	case *ast.Ruleset:
		if len(t.Selectors) == 0 {
			return true, nil
		}
		last := t.Selectors[len(t.Selectors)-1]
		if !last.EvaldCondition {
			return false, nil
		}
		if last.Condition != nil {
			return c.evalCondition(last.Condition)
		}
		return true, nil
	case *ast.MixinDefinition:
		if t.Condition == nil {
			return true, nil
		}
		closure := c.sess.closures[t]
		env := c.derive(concatFrames(closure, c.frames))
		params, _, err := c.evalParams(t, env, args)
		if err != nil {
			return false, err
		}
		guard := c.derive(concatFrames([]Frame{params}, closure, c.frames))
		return guard.evalCondition(t.Condition)
	}
	return true, nil
}

// evalParams binds args to the parameters of m. Default values are evaluated
// in env with the parameters bound so far. It returns the parameter frame and
// the values bound to named parameters, in parameter order; pattern
// parameters leave their slot empty.
func (c *Context) evalParams(m *ast.MixinDefinition, env *Context, args []ast.MixinArg) (Frame, []ast.Node, error) {
	frame := ast.NewRuleset(nil, nil, m.Index, m.File)
	pf := Frame{Scope: frame, Registry: env.registry().Inherit()}
	env = env.derive(concatFrames([]Frame{pf}, env.frames))

	bound := make([]ast.Node, max(len(m.Params), len(args)))
	remaining := make([]ast.MixinArg, 0, len(args))

	for _, a := range args {
		if a.Name == "" {
			remaining = append(remaining, a)
			continue
		}
		matched := false
		for j, p := range m.Params {
			if bound[j] == nil && p.Name == a.Name {
				v, err := c.eval(a.Value)
				if err != nil {
					return Frame{}, nil, err
				}
				bound[j] = v
				frame.Rules = append(frame.Rules, ast.NewDeclaration(a.Name, v, "", "", m.Index, m.File))
				matched = true
				break
			}
		}
		if !matched {
			return Frame{}, nil, m.Errorf(lesserrors.ErrorTypeRuntime,
				"Named argument for %s %s not found", m.Name, a.Name)
		}
	}

	next := 0
	for i, p := range m.Params {
		if bound[i] != nil {
			continue
		}
		switch {
		case p.Variadic:
			var rest []ast.Node
			for _, a := range remaining[min(next, len(remaining)):] {
				v, err := c.eval(a.Value)
				if err != nil {
					return Frame{}, nil, err
				}
				rest = append(rest, v)
			}
			if p.Name != "" {
				v, err := c.eval(ast.NewExpression(rest, m.Index, m.File))
				if err != nil {
					return Frame{}, nil, err
				}
				frame.Rules = append(frame.Rules, ast.NewDeclaration(p.Name, v, "", "", m.Index, m.File))
			}
			for j, v := range rest {
				if next+j < len(bound) {
					bound[next+j] = v
				}
			}
		case p.Name != "":
			var (
				v   ast.Node
				err error
			)
			switch {
			case next < len(remaining) && remaining[next].Value != nil:
				v, err = c.eval(remaining[next].Value)
			case p.Value != nil:
				v, err = env.eval(p.Value)
			default:
				return Frame{}, nil, m.Errorf(lesserrors.ErrorTypeRuntime,
					"wrong number of arguments for %s (%d for %d)", m.Name, len(args), m.Arity)
			}
			if err != nil {
				return Frame{}, nil, err
			}
			frame.Rules = append(frame.Rules, ast.NewDeclaration(p.Name, v, "", "", m.Index, m.File))
			bound[i] = v
		}
		next++
	}
	return pf, bound, nil
}

// callMixin evaluates the body of a matched mixin or plain ruleset.
func (c *Context) callMixin(rule ast.Node, args []ast.MixinArg, important bool) ([]ast.RuleBodyItem, error) {
	def, ok := rule.(*ast.MixinDefinition)
	if !ok {
		rs := rule.(*ast.Ruleset)
		orig := rs.Template()
		def = &ast.MixinDefinition{
			Meta:     ast.Pos(rs.Index, rs.File),
			Name:     "anonymous mixin",
			Rules:    rs.Rules,
			Original: orig,
		}
		def.CopyVisibility(&orig.Meta)
	}

	if err := c.enterMixin(); err != nil {
		return nil, err
	}
	defer c.exitMixin()
	c.sess.stats.MixinCalls++

	closure := c.sess.closures[def]
	mixinFrames := concatFrames(closure, c.frames)
	params, bound, err := c.evalParams(def, c.derive(mixinFrames), args)
	if err != nil {
		return nil, err
	}

	var arguments []ast.Node
	for _, v := range bound {
		if v != nil {
			arguments = append(arguments, v)
		}
	}
	argsValue, err := c.eval(ast.NewExpression(arguments, def.Index, def.File))
	if err != nil {
		return nil, err
	}
	scope := params.Scope.(*ast.Ruleset)
	scope.Rules = append(scope.Rules, ast.NewDeclaration("@arguments", argsValue, "", "", def.Index, def.File))

	body := &ast.Ruleset{
		Meta:     ast.Pos(def.Index, def.File),
		Rules:    append([]ast.RuleBodyItem(nil), def.Rules...),
		Original: def.Original,
	}
	env := c.derive(concatFrames([]Frame{{Scope: def}, params}, mixinFrames))
	out, err := env.evalRuleset(body)
	if err != nil {
		return nil, err
	}
	if important {
		return c.makeImportant(out.Rules), nil
	}
	return out.Rules, nil
}

// makeImportant returns copies of rules with every declaration, including
// those of nested rulesets and mixins, marked !important.
func (c *Context) makeImportant(rules []ast.RuleBodyItem) []ast.RuleBodyItem {
	out := make([]ast.RuleBodyItem, len(rules))
	for i, r := range rules {
		switch t := r.(type) {
		case *ast.Declaration:
			d := *t
			d.Important = " !important"
			out[i] = &d
		case *ast.Ruleset:
			rs := *t
			rs.Rules = c.makeImportant(t.Rules)
			out[i] = &rs
		case *ast.MixinDefinition:
			m := *t
			m.Rules = c.makeImportant(t.Rules)
			if frames, ok := c.sess.closures[t]; ok {
				c.sess.closures[&m] = frames
			}
			out[i] = &m
		default:
			out[i] = r
		}
	}
	return out
}
