package eval

import (
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
	"mercator-hq/cascade/pkg/less/functions"
)

// MathMode controls which arithmetic operations are evaluated.
type MathMode int

const (
	// MathAlways evaluates every operation.
	MathAlways MathMode = iota
	// MathParensDivision evaluates division only inside parentheses.
	MathParensDivision
	// MathParens evaluates operations only inside parentheses.
	MathParens
)

// ParseMathMode parses a math mode name as used in configuration files.
func ParseMathMode(s string) (MathMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return MathAlways, nil
	case "", "parens-division":
		return MathParensDivision, nil
	case "parens", "strict":
		return MathParens, nil
	}
	return 0, fmt.Errorf("unknown math mode %q (want always, parens-division or parens)", s)
}

// String returns the configuration name of the mode.
func (m MathMode) String() string {
	switch m {
	case MathAlways:
		return "always"
	case MathParensDivision:
		return "parens-division"
	case MathParens:
		return "parens"
	}
	return fmt.Sprintf("MathMode(%d)", int(m))
}

// DefaultMaxMixinDepth bounds nested mixin calls when Options leaves it unset.
const DefaultMaxMixinDepth = 256

// Options configures one evaluation.
type Options struct {
	// Math selects when operations are evaluated.
	Math MathMode

	// StrictUnits turns unit mismatches in operations into errors.
	StrictUnits bool

	// Compress is reported to functions that format their output.
	Compress bool

	// MaxMixinDepth bounds nested mixin and detached ruleset calls.
	MaxMixinDepth int

	// Functions is the root function registry. Builtins are used when nil.
	Functions *functions.Registry

	// Importer resolves @import rules. Imports fail when nil.
	Importer Importer

	// Logger receives evaluation diagnostics.
	Logger *slog.Logger
}

// Scope is a node that can serve as a lookup frame.
type Scope interface {
	ast.Node
	Variable(name string) *ast.Declaration
	Property(name string) []*ast.Declaration
	Find(selector *ast.Selector, self ast.Node, filter func(ast.Node) bool) []ast.FoundMixin
}

// Frame is one entry of the scope chain.
type Frame struct {
	Scope    Scope
	Registry *functions.Registry
}

type importantScope struct {
	important string
}

// mediaSession is the bubbling state shared by all nested at-rule families.
// path holds the open blocks, outermost first; blocks every block that will be
// output at the top of the session.
type mediaSession struct {
	path   []*ast.NestedAtRule
	blocks []*ast.NestedAtRule
}

// drop removes block from the blocks to be hoisted.
func (s *mediaSession) drop(block *ast.NestedAtRule) {
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if s.blocks[i] == block {
			s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
			return
		}
	}
}

// Context is the evaluation state of one scope chain. Frame lists are never
// modified in place: push allocates a new list, so a captured list stays valid
// for closures.
type Context struct {
	sess *session

	// frames is the scope chain, nearest first
	frames []Frame

	math      MathMode
	mathOn    bool
	calcDepth int
	parens    int

	// important is shared with derived contexts
	important *[]importantScope

	// media is the open bubbling session, nil outside nested at-rules
	media *mediaSession
}

func newContext(sess *session, frames []Frame) *Context {
	return &Context{
		sess:      sess,
		frames:    frames,
		math:      sess.opts.Math,
		mathOn:    true,
		important: &[]importantScope{},
	}
}

// derive returns a context over frames that shares the render session and
// the important scope. Calc, parentheses and bubbling state start fresh.
func (c *Context) derive(frames []Frame) *Context {
	return &Context{
		sess:      c.sess,
		frames:    frames,
		math:      c.math,
		mathOn:    true,
		important: c.important,
	}
}

func (c *Context) push(f Frame) {
	frames := make([]Frame, 0, len(c.frames)+1)
	frames = append(frames, f)
	c.frames = append(frames, c.frames...)
}

func (c *Context) pop() {
	c.frames = c.frames[1:]
}

// registry returns the function registry of the nearest frame that has one.
func (c *Context) registry() *functions.Registry {
	for _, f := range c.frames {
		if f.Registry != nil {
			return f.Registry
		}
	}
	return c.sess.registry
}

// isMathOn reports whether op is evaluated here. An empty op asks about
// operations in general.
func (c *Context) isMathOn(op string) bool {
	if !c.mathOn {
		return false
	}
	if op == "/" && c.math != MathAlways && c.parens == 0 {
		return false
	}
	if c.math > MathParensDivision {
		return c.parens > 0
	}
	return true
}

func (c *Context) inCalc() bool {
	return c.calcDepth > 0
}

func (c *Context) enterCalc() {
	c.calcDepth++
}

func (c *Context) exitCalc() {
	if c.calcDepth > 0 {
		c.calcDepth--
	}
}

func (c *Context) pushImportant() {
	*c.important = append(*c.important, importantScope{})
}

func (c *Context) popImportant() string {
	stack := *c.important
	top := stack[len(stack)-1]
	*c.important = stack[:len(stack)-1]
	return top.important
}

func (c *Context) markImportant(important string) {
	stack := *c.important
	if len(stack) > 0 {
		stack[len(stack)-1].important = important
	}
}

// mediaCount returns how many blocks the open bubbling session holds.
func (c *Context) mediaCount() int {
	if c.media == nil {
		return 0
	}
	return len(c.media.blocks)
}

// Eval evaluates n in this context. Template nodes are never modified; the
// result is either a new node or an immutable leaf.
func (c *Context) Eval(n ast.Node) (ast.Node, error) {
	return c.eval(n)
}

// EvalCondition evaluates n as a guard.
func (c *Context) EvalCondition(n ast.Node) (bool, error) {
	return c.evalCondition(n)
}

// DefaultValue returns the value of default() in the guard being matched.
func (c *Context) DefaultValue() (ast.Node, error) {
	return c.sess.def.eval()
}

// StrictUnits reports whether unit mismatches are errors.
func (c *Context) StrictUnits() bool {
	return c.sess.opts.StrictUnits
}

// Compress reports whether output is compressed.
func (c *Context) Compress() bool {
	return c.sess.opts.Compress
}

// defaultState is the value default() returns while mixin guards are matched.
type defaultState struct {
	value *bool
	err   error
}

func (d *defaultState) set(v bool) {
	d.value = &v
}

func (d *defaultState) forbid(err error) {
	d.err = err
}

func (d *defaultState) reset() {
	d.value = nil
	d.err = nil
}

func (d *defaultState) eval() (ast.Node, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.value == nil {
		return nil, nil
	}
	return ast.Bool(*d.value), nil
}

func errDefaultOutsideGuard() error {
	return lesserrors.New(lesserrors.ErrorTypeSyntax, "it is currently only allowed in parametric mixin guards,")
}

var _ functions.Env = (*Context)(nil)
