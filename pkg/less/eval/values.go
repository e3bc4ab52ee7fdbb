package eval

import (
	"regexp"
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
	"mercator-hq/cascade/pkg/less/functions"
)

// maxInterpolationPasses bounds string interpolation, whose replacements may
// themselves contain interpolations.
const maxInterpolationPasses = 100

var (
	variableInterpolation = regexp.MustCompile(`@\{([\w-]+)\}`)
	propertyInterpolation = regexp.MustCompile(`\$\{([\w-]+)\}`)
)

func (c *Context) evalVariable(v *ast.Variable) (ast.Node, error) {
	name := v.Name
	if strings.HasPrefix(name, "@@") {
		inner, err := c.evalVariable(ast.NewVariable(name[1:], v.Index, v.File))
		if err != nil {
			return nil, err
		}
		name = "@" + nameOf(inner)
	}

	for _, f := range c.frames {
		d := f.Scope.Variable(name)
		if d == nil {
			continue
		}
		if _, busy := c.sess.evaluating[d]; busy {
			return nil, v.Errorf(lesserrors.ErrorTypeName, "Recursive variable definition for %s", name)
		}
		c.sess.evaluating[d] = struct{}{}
		defer delete(c.sess.evaluating, d)

		if d.Important != "" {
			c.markImportant(d.Important)
		}
		if c.inCalc() {
			saved := c.mathOn
			c.mathOn = true
			out, err := c.eval(d.Value)
			c.mathOn = saved
			return out, v.Stamp(err)
		}
		out, err := c.eval(d.Value)
		return out, v.Stamp(err)
	}

	return nil, v.Errorf(lesserrors.ErrorTypeName, "variable %s is undefined", name).
		WithSuggestion(lesserrors.SuggestName(name, c.variableNames()))
}

// variableNames lists the variables visible from the current scope.
func (c *Context) variableNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, f := range c.frames {
		var rules []ast.RuleBodyItem
		switch s := f.Scope.(type) {
		case *ast.Ruleset:
			rules = s.Rules
		case *ast.MixinDefinition:
			rules = s.Rules
		}
		for _, r := range rules {
			if d, ok := r.(*ast.Declaration); ok && d.Variable && !seen[d.Name] {
				seen[d.Name] = true
				names = append(names, d.Name)
			}
		}
	}
	return names
}

// nameOf returns the text a value contributes to a variable or property name.
func nameOf(n ast.Node) string {
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

func (c *Context) evalProperty(p *ast.Property) (ast.Node, error) {
	for _, f := range c.frames {
		decls := f.Scope.Property(p.Name)
		if len(decls) == 0 {
			continue
		}
		key := decls[len(decls)-1]
		if _, busy := c.sess.evaluating[key]; busy {
			return nil, p.Errorf(lesserrors.ErrorTypeName, "Recursive property reference for %s", p.Name)
		}
		c.sess.evaluating[key] = struct{}{}
		defer delete(c.sess.evaluating, key)

		rules := make([]ast.RuleBodyItem, len(decls))
		for i, d := range decls {
			rules[i] = d
		}
		merged := ast.MergeRules(rules)
		last := merged[len(merged)-1].(*ast.Declaration)
		if last.Important != "" {
			c.markImportant(last.Important)
		}
		out, err := c.eval(last.Value)
		return out, p.Stamp(err)
	}
	return nil, p.Errorf(lesserrors.ErrorTypeName, "Property '%s' is undefined", p.Name)
}

func (c *Context) evalCall(call *ast.Call) (ast.Node, error) {
	savedMath := c.mathOn
	c.mathOn = !call.IsCalc()
	calc := call.IsCalc() || c.inCalc()
	if calc {
		c.enterCalc()
	}
	defer func() {
		if calc {
			c.exitCalc()
		}
		c.mathOn = savedMath
	}()

	if def, ok := c.registry().Get(call.Name); ok {
		c.sess.stats.FunctionCalls++
		result, err := c.callFunction(call, def)
		if err != nil {
			return nil, functionError(call, err)
		}
		if n, ok := functions.Normalize(result, call.Index, call.File); ok {
			return n, nil
		}
	}

	args := make([]ast.Node, len(call.Args))
	for i, a := range call.Args {
		v, err := c.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return &ast.Call{Meta: call.Derive(), Name: call.Name, Args: args}, nil
}

func (c *Context) callFunction(call *ast.Call, def functions.Definition) (any, error) {
	args := call.Args
	if !def.RawArgs {
		evald := make([]ast.Node, len(args))
		for i, a := range args {
			v, err := c.eval(a)
			if err != nil {
				return nil, err
			}
			evald[i] = v
		}
		args = evald
	}
	fc := &functions.Call{Name: call.Name, Index: call.Index, File: call.File, Env: c}
	return def.Fn(fc, simplifyArgs(args))
}

// simplifyArgs drops comments and unwraps single-value expressions, keeping
// a parenthesized division intact.
func simplifyArgs(args []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(args))
	for _, a := range args {
		switch t := a.(type) {
		case *ast.Comment:
			continue
		case *ast.Expression:
			sub := make([]ast.Node, 0, len(t.Value))
			for _, n := range t.Value {
				if _, ok := n.(*ast.Comment); !ok {
					sub = append(sub, n)
				}
			}
			if len(sub) == 1 {
				if op, ok := sub[0].(*ast.Operation); t.Parens && ok && op.Op == "/" {
					out = append(out, t)
				} else {
					out = append(out, sub[0])
				}
				continue
			}
			expr := *t
			expr.Value = sub
			out = append(out, &expr)
		default:
			out = append(out, a)
		}
	}
	return out
}

// functionError positions an error raised by a function. Errors that already
// point into a stylesheet pass through unchanged.
func functionError(call *ast.Call, err error) error {
	var ce *lesserrors.Error
	if lesserrors.As(err, &ce) && ce.HasPosition() {
		return err
	}
	errType := lesserrors.ErrorTypeRuntime
	msg := err.Error()
	if ce != nil {
		errType = ce.Type
		msg = ce.Message
	}
	wrapped := lesserrors.Wrap(errType, err, "Error evaluating function `"+call.Name+"`: "+msg)
	return wrapped.At(call.Filename(), call.Index)
}

func (c *Context) evalOperation(op *ast.Operation) (ast.Node, error) {
	a, err := c.eval(op.Operands[0])
	if err != nil {
		return nil, err
	}
	b, err := c.eval(op.Operands[1])
	if err != nil {
		return nil, err
	}
	if !c.isMathOn(op.Op) {
		return ast.NewOperation(op.Op, a, b, op.IsSpaced, op.Index, op.File), nil
	}

	operator := op.Op
	if operator == "./" {
		operator = "/"
	}
	if d, ok := a.(*ast.Dimension); ok {
		if _, isColor := b.(*ast.Color); isColor {
			a = d.ToColor()
		}
	}
	if d, ok := b.(*ast.Dimension); ok {
		if _, isColor := a.(*ast.Color); isColor {
			b = d.ToColor()
		}
	}

	switch x := a.(type) {
	case *ast.Dimension:
		if y, ok := b.(*ast.Dimension); ok {
			res, err := x.Operate(operator, y, c.sess.opts.StrictUnits)
			if err != nil {
				return nil, op.Stamp(err)
			}
			return res, nil
		}
	case *ast.Color:
		if y, ok := b.(*ast.Color); ok {
			return x.Operate(operator, y), nil
		}
	}

	if isDivision(a) && c.math == MathParensDivision {
		return ast.NewOperation(op.Op, a, b, op.IsSpaced, op.Index, op.File), nil
	}
	return nil, op.Errorf(lesserrors.ErrorTypeRuntime, "Operation on an invalid type")
}

func isDivision(n ast.Node) bool {
	o, ok := n.(*ast.Operation)
	return ok && o.Op == "/"
}

func (c *Context) evalNegative(n *ast.Negative) (ast.Node, error) {
	if c.isMathOn("") {
		minusOne := ast.NewDimension(-1, ast.Unit{}, n.Index, n.File)
		return c.evalOperation(ast.NewOperation("*", minusOne, n.Value, false, n.Index, n.File))
	}
	v, err := c.eval(n.Value)
	if err != nil {
		return nil, err
	}
	return &ast.Negative{Meta: n.Derive(), Value: v}, nil
}

func (c *Context) evalExpression(e *ast.Expression) (ast.Node, error) {
	mathOn := c.isMathOn("")
	if e.Parens {
		c.parens++
	}

	var (
		result      ast.Node
		err         error
		doubleParen bool
	)
	switch len(e.Value) {
	case 0:
		result = e
	case 1:
		if inner, ok := e.Value[0].(*ast.Expression); ok && inner.Parens && !inner.ParensInOp && !c.inCalc() {
			doubleParen = true
		}
		result, err = c.eval(e.Value[0])
	default:
		values := make([]ast.Node, len(e.Value))
		for i, v := range e.Value {
			if values[i], err = c.eval(v); err != nil {
				break
			}
		}
		result = &ast.Expression{Meta: e.Derive(), Value: values, NoSpacing: e.NoSpacing}
	}

	if e.Parens {
		c.parens--
	}
	if err != nil {
		return nil, err
	}
	if e.Parens && e.ParensInOp && !mathOn && !doubleParen {
		if _, isDim := result.(*ast.Dimension); !isDim {
			result = &ast.Paren{Meta: e.Derive(), Value: result}
		}
	}
	return result, nil
}

func (c *Context) evalValue(v *ast.Value) (ast.Node, error) {
	if len(v.Value) == 1 {
		return c.eval(v.Value[0])
	}
	values := make([]ast.Node, len(v.Value))
	for i, n := range v.Value {
		out, err := c.eval(n)
		if err != nil {
			return nil, err
		}
		values[i] = out
	}
	return &ast.Value{Meta: v.Derive(), Value: values}, nil
}

func (c *Context) evalQuoted(q *ast.Quoted) (ast.Node, error) {
	value, err := c.interpolate(q.Value, q.Index, q.File)
	if err != nil {
		return nil, err
	}
	return &ast.Quoted{Meta: q.Derive(), Quote: q.Quote, Value: value, Escaped: q.Escaped}, nil
}

// interpolate replaces @{name} with variable values and then ${name} with
// property values.
func (c *Context) interpolate(s string, index int, file *ast.FileInfo) (string, error) {
	s, err := replaceAll(s, variableInterpolation, func(name string) (ast.Node, error) {
		return c.evalVariable(ast.NewVariable("@"+name, index, file))
	})
	if err != nil {
		return "", err
	}
	return replaceAll(s, propertyInterpolation, func(name string) (ast.Node, error) {
		return c.evalProperty(&ast.Property{Meta: ast.Pos(index, file), Name: "$" + name})
	})
}

func replaceAll(s string, re *regexp.Regexp, lookup func(name string) (ast.Node, error)) (string, error) {
	for i := 0; i < maxInterpolationPasses; i++ {
		var firstErr error
		out := re.ReplaceAllStringFunc(s, func(m string) string {
			if firstErr != nil {
				return m
			}
			v, err := lookup(re.FindStringSubmatch(m)[1])
			if err != nil {
				firstErr = err
				return m
			}
			if q, ok := v.(*ast.Quoted); ok {
				return q.Value
			}
			return ast.CSS(v)
		})
		if firstErr != nil {
			return "", firstErr
		}
		if out == s {
			return out, nil
		}
		s = out
	}
	return s, nil
}

func (c *Context) evalCondition(n ast.Node) (bool, error) {
	cond, ok := n.(*ast.Condition)
	if !ok {
		v, err := c.eval(n)
		if err != nil {
			return false, err
		}
		kw, isKeyword := v.(*ast.Keyword)
		return isKeyword && kw.Value == "true", nil
	}

	var result bool
	switch cond.Op {
	case "and", "or":
		a, err := c.evalCondition(cond.LValue)
		if err != nil {
			return false, err
		}
		b, err := c.evalCondition(cond.RValue)
		if err != nil {
			return false, err
		}
		if cond.Op == "and" {
			result = a && b
		} else {
			result = a || b
		}
	default:
		a, err := c.eval(cond.LValue)
		if err != nil {
			return false, err
		}
		b, err := c.eval(cond.RValue)
		if err != nil {
			return false, err
		}
		if n, ok := ast.Compare(a, b); ok {
			switch n {
			case -1:
				result = cond.Op == "<" || cond.Op == "=<" || cond.Op == "<="
			case 0:
				result = cond.Op == "=" || cond.Op == ">=" || cond.Op == "=<" || cond.Op == "<="
			case 1:
				result = cond.Op == ">" || cond.Op == ">="
			}
		}
	}
	if cond.Negate {
		result = !result
	}
	return result, nil
}

func (c *Context) evalAttribute(a *ast.Attribute) (ast.Node, error) {
	v, err := c.eval(a.Value)
	if err != nil {
		return nil, err
	}
	return &ast.Attribute{Meta: a.Derive(), Key: a.Key, Op: a.Op, Value: v, Cif: a.Cif}, nil
}

// evalNamespaceValue resolves lookups such as .mixin()[@var] or @dr[prop]
// against the rules produced by a mixin call or a detached ruleset.
func (c *Context) evalNamespaceValue(n *ast.NamespaceValue) (ast.Node, error) {
	var (
		current ast.Node
		err     error
	)
	switch v := n.Value.(type) {
	case *ast.MixinCall:
		rules, err := c.evalMixinCall(v)
		if err != nil {
			return nil, err
		}
		current = ast.NewRuleset(nil, rules, n.Index, n.File)
	default:
		if current, err = c.eval(v); err != nil {
			return nil, err
		}
	}

	for _, name := range n.Lookups {
		rs, err := c.lookupScope(current)
		if err != nil {
			return nil, n.Stamp(err)
		}
		if rs == nil {
			return nil, n.Errorf(lesserrors.ErrorTypeName, "%s has no rules to look up [%s] in", ast.CSS(n.Value), name)
		}

		var decl *ast.Declaration
		switch {
		case name == "":
			decl = rs.LastDeclaration()
		case strings.HasPrefix(name, "@"):
			if strings.HasPrefix(name, "@@") {
				inner, err := c.evalVariable(ast.NewVariable(name[1:], n.Index, n.File))
				if err != nil {
					return nil, err
				}
				name = "@" + nameOf(inner)
			}
			if decl = rs.Variable(name); decl == nil {
				return nil, n.Errorf(lesserrors.ErrorTypeName, "variable %s not found", name)
			}
		default:
			if strings.HasPrefix(name, "$@") {
				inner, err := c.evalVariable(ast.NewVariable(name[1:], n.Index, n.File))
				if err != nil {
					return nil, err
				}
				name = "$" + nameOf(inner)
			} else if !strings.HasPrefix(name, "$") {
				name = "$" + name
			}
			decls := rs.Property(name)
			if len(decls) == 0 {
				return nil, n.Errorf(lesserrors.ErrorTypeName, "property \"%s\" not found", name[1:])
			}
			decl = decls[len(decls)-1]
		}
		if decl == nil {
			return nil, n.Errorf(lesserrors.ErrorTypeName, "%s has no declarations", ast.CSS(n.Value))
		}
		if current, err = c.eval(decl.Value); err != nil {
			return nil, err
		}
	}
	return current, nil
}

// lookupScope turns the subject of a namespace lookup into a ruleset.
func (c *Context) lookupScope(n ast.Node) (*ast.Ruleset, error) {
	switch t := n.(type) {
	case *ast.Ruleset:
		return t, nil
	case *ast.DetachedRuleset:
		return c.callDetached(t)
	}
	return nil, nil
}
