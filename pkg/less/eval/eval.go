package eval

import (
	"context"
	"log/slog"
	"sort"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
	"mercator-hq/cascade/pkg/less/functions"
)

// Stats counts the work done by one evaluation.
type Stats struct {
	MixinCalls    int
	FunctionCalls int
	Imports       int
}

// session is the state of a single render. Templates stay untouched; every
// piece of per-render bookkeeping lives here, keyed by the evaluated nodes.
type session struct {
	ctx      context.Context
	opts     Options
	registry *functions.Registry
	logger   *slog.Logger

	// closures maps evaluated mixin definitions and detached rulesets to the
	// scope chain they were defined in
	closures map[ast.Node][]Frame

	// evaluating holds the declarations whose values are being resolved
	evaluating map[ast.Node]struct{}

	imported   map[string]bool
	extendID   int
	def        defaultState
	mixinDepth int
	stats      Stats
}

// Evaluator turns a parsed template into an evaluated tree. An Evaluator
// holds the state of one render: create a new one for each render. The
// template is never modified, so several evaluators may share it.
type Evaluator struct {
	sess *session
}

// New creates an evaluator.
func New(opts Options) *Evaluator {
	if opts.MaxMixinDepth <= 0 {
		opts.MaxMixinDepth = DefaultMaxMixinDepth
	}
	registry := opts.Functions
	if registry == nil {
		registry = functions.NewBuiltinRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{sess: &session{
		ctx:        context.Background(),
		opts:       opts,
		registry:   registry,
		logger:     logger.With("component", "eval"),
		closures:   make(map[ast.Node][]Frame),
		evaluating: make(map[ast.Node]struct{}),
		imported:   make(map[string]bool),
	}}
}

// Eval evaluates root and returns the evaluated tree. Cancelling ctx aborts
// the evaluation at the next mixin call or ruleset.
func (e *Evaluator) Eval(ctx context.Context, root *ast.Ruleset) (*ast.Ruleset, error) {
	if root == nil {
		return nil, lesserrors.Wrap(lesserrors.ErrorTypeRuntime, lesserrors.ErrNoRoot, lesserrors.ErrNoRoot.Error())
	}
	e.sess.ctx = ctx
	c := newContext(e.sess, nil)
	out, err := c.evalRuleset(root)
	if err != nil {
		return nil, err
	}
	e.sess.logger.Debug("evaluated document",
		"file", root.Filename(),
		"mixin_calls", e.sess.stats.MixinCalls,
		"function_calls", e.sess.stats.FunctionCalls,
		"imports", e.sess.stats.Imports,
	)
	return out, nil
}

// NextExtendID allocates an extend id that does not collide with the ids
// assigned during evaluation.
func (e *Evaluator) NextExtendID() int {
	return e.sess.nextExtendID()
}

// Stats returns the counters of the evaluation.
func (e *Evaluator) Stats() Stats {
	return e.sess.stats
}

// Imports returns the resolved paths of the files imported during
// evaluation, sorted.
func (e *Evaluator) Imports() []string {
	out := make([]string, 0, len(e.sess.imported))
	for p := range e.sess.imported {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *session) nextExtendID() int {
	s.extendID++
	return s.extendID
}

func (s *session) checkCanceled() error {
	if err := s.ctx.Err(); err != nil {
		return lesserrors.Wrap(lesserrors.ErrorTypeRuntime, err, "evaluation canceled")
	}
	return nil
}

// WithVariables returns a shallow copy of root with global variables placed
// before its rules and modify variables after them, so that the document can
// override the former and the latter override the document.
func WithVariables(root *ast.Ruleset, global, modify []*ast.Declaration) *ast.Ruleset {
	if len(global) == 0 && len(modify) == 0 {
		return root
	}
	out := *root
	out.Original = nil
	rules := make([]ast.RuleBodyItem, 0, len(global)+len(root.Rules)+len(modify))
	for _, d := range global {
		rules = append(rules, d)
	}
	rules = append(rules, root.Rules...)
	for _, d := range modify {
		rules = append(rules, d)
	}
	out.Rules = rules
	return &out
}

// eval evaluates any node. Leaves that cannot change are returned as is.
func (c *Context) eval(n ast.Node) (ast.Node, error) {
	switch t := n.(type) {
	case nil:
		return nil, nil
	case *ast.Anonymous, *ast.Keyword, *ast.Dimension, *ast.Color, *ast.UnicodeDescriptor:
		return n, nil
	case *ast.Variable:
		return c.evalVariable(t)
	case *ast.Property:
		return c.evalProperty(t)
	case *ast.Call:
		return c.evalCall(t)
	case *ast.Operation:
		return c.evalOperation(t)
	case *ast.Negative:
		return c.evalNegative(t)
	case *ast.Expression:
		return c.evalExpression(t)
	case *ast.Value:
		return c.evalValue(t)
	case *ast.Paren:
		v, err := c.eval(t.Value)
		if err != nil {
			return nil, err
		}
		return &ast.Paren{Meta: t.Derive(), Value: v}, nil
	case *ast.Quoted:
		return c.evalQuoted(t)
	case *ast.URL:
		v, err := c.eval(t.Value)
		if err != nil {
			return nil, err
		}
		return &ast.URL{Meta: t.Derive(), Value: v}, nil
	case *ast.Condition:
		ok, err := c.evalCondition(t)
		if err != nil {
			return nil, err
		}
		return ast.Bool(ok), nil
	case *ast.Assignment:
		v, err := c.eval(t.Value)
		if err != nil {
			return nil, err
		}
		return &ast.Assignment{Meta: t.Derive(), Key: t.Key, Value: v}, nil
	case *ast.Comment:
		out := *t
		return &out, nil
	case *ast.NamespaceValue:
		return c.evalNamespaceValue(t)
	case *ast.DetachedRuleset:
		return c.evalDetachedRuleset(t), nil
	case *ast.Attribute:
		return c.evalAttribute(t)
	case *ast.Selector:
		return c.evalSelector(t)
	case *ast.Element:
		return c.evalElement(t)
	case *ast.MixinCall:
		rules, err := c.evalMixinCall(t)
		if err != nil {
			return nil, err
		}
		return ast.NewRuleset(nil, rules, t.Index, t.File), nil
	case ast.RuleBodyItem:
		return c.evalRule(t)
	}
	return nil, n.Metadata().Errorf(lesserrors.ErrorTypeRuntime, "cannot evaluate %s node", n.Kind())
}

// evalRule evaluates one entry of a rule body. Mixin calls, variable calls
// and imports are expanded by the enclosing ruleset before this runs.
func (c *Context) evalRule(n ast.RuleBodyItem) (ast.RuleBodyItem, error) {
	switch t := n.(type) {
	case *ast.Declaration:
		return c.evalDeclaration(t)
	case *ast.Ruleset:
		return c.evalRuleset(t)
	case *ast.MixinDefinition:
		return c.evalMixinDefinition(t), nil
	case *ast.NestedAtRule:
		return c.evalNestedAtRule(t)
	case *ast.AtRule:
		return c.evalAtRule(t)
	case *ast.Extend:
		return c.evalExtend(t)
	case *ast.Comment:
		out := *t
		return &out, nil
	case *ast.Anonymous:
		out := *t
		return &out, nil
	case *ast.Import:
		rules, err := c.evalImport(t)
		if err != nil {
			return nil, err
		}
		if len(rules) != 1 {
			return nil, t.Errorf(lesserrors.ErrorTypeRuntime, "@import is not allowed in this block")
		}
		return rules[0], nil
	case *ast.MixinCall:
		rules, err := c.evalMixinCall(t)
		if err != nil {
			return nil, err
		}
		return ast.NewRuleset(nil, rules, t.Index, t.File), nil
	case *ast.VariableCall:
		rules, err := c.evalVariableCall(t)
		if err != nil {
			return nil, err
		}
		return ast.NewRuleset(nil, rules, t.Index, t.File), nil
	}
	return nil, n.Metadata().Errorf(lesserrors.ErrorTypeRuntime, "cannot evaluate %s rule", n.Kind())
}

func concatFrames(lists ...[]Frame) []Frame {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]Frame, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func splice(rules []ast.RuleBodyItem, i int, with []ast.RuleBodyItem) []ast.RuleBodyItem {
	out := make([]ast.RuleBodyItem, 0, len(rules)-1+len(with))
	out = append(out, rules[:i]...)
	out = append(out, with...)
	return append(out, rules[i+1:]...)
}
