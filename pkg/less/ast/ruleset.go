package ast

import (
	"strings"
)

// Declaration is a property or variable declaration.
type Declaration struct {
	Meta
	Name      string
	NameParts []Node // Interpolated name, evaluated into Name
	Value     Node
	Important string // "" or " !important"
	Merge     string // "", "+" or "+_"
	Inline    bool
	Variable  bool
}

// NewDeclaration returns a declaration. The important flag is normalized to
// " !important" form.
func NewDeclaration(name string, value Node, important, merge string, index int, file *FileInfo) *Declaration {
	return &Declaration{
		Meta:      Pos(index, file),
		Name:      name,
		Value:     value,
		Important: NormalizeImportant(important),
		Merge:     merge,
		Variable:  strings.HasPrefix(name, "@"),
	}
}

// NormalizeImportant turns an important flag into the form emitted after a value.
func NormalizeImportant(important string) string {
	important = strings.TrimSpace(important)
	if important == "" {
		return ""
	}
	return " " + important
}

func (d *Declaration) Kind() Kind    { return KindDeclaration }
func (d *Declaration) ruleBodyItem() {}

func (d *Declaration) Accept(v *Visitor) {
	v.VisitNode(&d.Value)
}

// DisplayName returns the declared name, rendering interpolated parts.
func (d *Declaration) DisplayName() string {
	if len(d.NameParts) == 0 {
		return d.Name
	}
	var sb strings.Builder
	for _, p := range d.NameParts {
		sb.WriteString(CSS(p))
	}
	return sb.String()
}

func (d *Declaration) GenCSS(ctx *GenContext, out Output) {
	sep := ": "
	if ctx.Compress {
		sep = ":"
	}
	out.Add(d.DisplayName()+sep, d.File, d.Index)
	if d.Value != nil {
		d.Value.GenCSS(ctx, out)
	}
	end := ";"
	if d.Inline || (ctx.LastRule && ctx.Compress) {
		end = ""
	}
	out.Add(d.Important+end, d.File, d.Index)
}

// Ruleset is a block of rules with selectors. The root of a document is a
// ruleset without selectors.
type Ruleset struct {
	Meta
	Selectors []*Selector
	Rules     []RuleBodyItem

	// Paths holds the fully joined selectors, set by the selector join pass.
	Paths [][]*Selector

	Root              bool
	FirstRoot         bool
	AllowImports      bool
	StrictImports     bool
	MultiMedia        bool
	ExtendOnEveryPath bool

	// Original is the template this ruleset was evaluated from.
	Original *Ruleset
}

// NewRuleset returns a ruleset.
func NewRuleset(selectors []*Selector, rules []RuleBodyItem, index int, file *FileInfo) *Ruleset {
	return &Ruleset{Meta: Pos(index, file), Selectors: selectors, Rules: rules}
}

// Template returns the template the ruleset was evaluated from, or the
// ruleset itself.
func (r *Ruleset) Template() *Ruleset {
	if r.Original != nil {
		return r.Original
	}
	return r
}

func (r *Ruleset) Kind() Kind    { return KindRuleset }
func (r *Ruleset) ruleBodyItem() {}

func (r *Ruleset) Accept(v *Visitor) {
	if r.Paths != nil {
		for _, path := range r.Paths {
			visitEach(v, path)
		}
	} else {
		visitEach(v, r.Selectors)
	}
	if len(r.Rules) > 0 {
		v.VisitRules(&r.Rules)
	}
}

// Variable returns the last declaration of variable name in the ruleset.
func (r *Ruleset) Variable(name string) *Declaration {
	return variableIn(r.Rules, name)
}

// Property returns every declaration of property name ("$name" or "name"),
// in cascade order.
func (r *Ruleset) Property(name string) []*Declaration {
	return propertyIn(r.Rules, name)
}

// LastDeclaration returns the last declaration of the ruleset.
func (r *Ruleset) LastDeclaration() *Declaration {
	return lastDeclarationIn(r.Rules)
}

// Rulesets returns the direct children that can be looked up as mixins or
// namespaces.
func (r *Ruleset) Rulesets() []Node {
	return rulesetsIn(r.Rules)
}

// Find looks up mixins and namespaces matching selector below the ruleset.
// self is excluded from the results; filter, when set, decides which
// namespaces are searched.
func (r *Ruleset) Find(selector *Selector, self Node, filter func(Node) bool) []FoundMixin {
	if self == nil {
		self = r
	}
	return findIn(r.Rules, selector, self, filter)
}

// MatchArgs reports whether a plain ruleset can be called with args.
func (r *Ruleset) MatchArgs(args []MixinArg) bool {
	return len(args) == 0
}

// IsVisibleRuleset reports whether the ruleset produces output.
func (r *Ruleset) IsVisibleRuleset() bool {
	if r.FirstRoot {
		return true
	}
	if r.IsEmpty() {
		return false
	}
	if !r.Root && !r.HasVisibleSelector() {
		return false
	}
	return true
}

// IsEmpty reports whether the ruleset has no rules.
func (r *Ruleset) IsEmpty() bool {
	return len(r.Rules) == 0
}

// HasVisibleSelector reports whether any joined path survived the cleanup pass.
func (r *Ruleset) HasVisibleSelector() bool {
	return len(r.Paths) > 0
}

func (r *Ruleset) GenCSS(ctx *GenContext, out Output) {
	if !r.Root {
		ctx.TabLevel++
	}
	tabRule, tabSet := "", ""
	if !ctx.Compress {
		tabRule = strings.Repeat("  ", ctx.TabLevel)
		if ctx.TabLevel > 0 {
			tabSet = strings.Repeat("  ", ctx.TabLevel-1)
		}
	}

	// Charsets first, then imports, then everything else in order.
	var nodes []RuleBodyItem
	charsetIdx, importIdx := 0, 0
	for i, rule := range r.Rules {
		switch {
		case rule.Kind() == KindComment:
			if importIdx == i {
				importIdx++
			}
			nodes = append(nodes, rule)
		case isCharset(rule):
			nodes = insertRule(nodes, charsetIdx, rule)
			charsetIdx++
			importIdx++
		case rule.Kind() == KindImport:
			nodes = insertRule(nodes, importIdx, rule)
			importIdx++
		default:
			nodes = append(nodes, rule)
		}
	}

	if !r.Root {
		sep := ",\n" + tabSet
		if ctx.Compress {
			sep = ","
		}
		first := true
		for _, path := range r.Paths {
			if len(path) == 0 {
				continue
			}
			if !first {
				out.Add(sep, nil, -1)
			}
			first = false
			ctx.FirstSelector = true
			path[0].GenCSS(ctx, out)
			ctx.FirstSelector = false
			for _, sel := range path[1:] {
				sel.GenCSS(ctx, out)
			}
		}
		if ctx.Compress {
			out.Add("{", nil, -1)
		} else {
			out.Add(" {\n"+tabRule, nil, -1)
		}
	}

	for i, rule := range nodes {
		if i+1 == len(nodes) {
			ctx.LastRule = true
		}
		lastRule := ctx.LastRule
		if IsRulesetLike(rule) {
			ctx.LastRule = false
		}
		rule.GenCSS(ctx, out)
		ctx.LastRule = lastRule
		if !ctx.LastRule && rule.Metadata().NodeVisible != VisibilityHidden {
			if !ctx.Compress {
				out.Add("\n"+tabRule, nil, -1)
			}
		} else {
			ctx.LastRule = false
		}
	}

	if !r.Root {
		if ctx.Compress {
			out.Add("}", nil, -1)
		} else {
			out.Add("\n"+tabSet+"}", nil, -1)
		}
		ctx.TabLevel--
	}
	if !out.IsEmpty() && !ctx.Compress && r.FirstRoot {
		out.Add("\n", nil, -1)
	}
}

func insertRule(rules []RuleBodyItem, i int, rule RuleBodyItem) []RuleBodyItem {
	rules = append(rules, nil)
	copy(rules[i+1:], rules[i:])
	rules[i] = rule
	return rules
}

// IsRulesetLike reports whether a rule body item renders as a block.
func IsRulesetLike(n Node) bool {
	switch t := n.(type) {
	case *Ruleset, *NestedAtRule:
		return true
	case *AtRule:
		return t.Rules != nil || !t.IsCharset()
	case *Anonymous:
		return t.RulesetLike
	}
	return false
}

func isCharset(n Node) bool {
	a, ok := n.(*AtRule)
	return ok && a.IsCharset()
}

// MixinParam is one parameter of a mixin definition.
type MixinParam struct {
	Name     string // Variable name including "@", empty for pattern params
	Value    Node   // Default value, or the pattern to match for unnamed params
	Variadic bool
}

// MixinDefinition is a parametric mixin.
type MixinDefinition struct {
	Meta
	Name      string
	Selectors []*Selector
	Params    []MixinParam
	Condition Node
	Variadic  bool
	Rules     []RuleBodyItem

	Arity              int
	Required           int
	OptionalParameters []string

	// Original is set when a plain ruleset is called as a mixin.
	Original *Ruleset
}

// NewMixinDefinition returns a mixin definition and derives its arity.
func NewMixinDefinition(name string, params []MixinParam, rules []RuleBodyItem, condition Node, variadic bool, index int, file *FileInfo) *MixinDefinition {
	m := &MixinDefinition{
		Meta:      Pos(index, file),
		Name:      name,
		Selectors: []*Selector{NewSelector([]*Element{NewElement("", name, index, file)}, nil, nil, index, file)},
		Params:    params,
		Condition: condition,
		Variadic:  variadic,
		Rules:     rules,
		Arity:     len(params),
	}
	for _, p := range params {
		if p.Name == "" || p.Value == nil {
			m.Required++
		} else {
			m.OptionalParameters = append(m.OptionalParameters, p.Name)
		}
	}
	return m
}

func (m *MixinDefinition) Kind() Kind    { return KindMixinDefinition }
func (m *MixinDefinition) ruleBodyItem() {}

func (m *MixinDefinition) Accept(v *Visitor) {
	v.VisitRules(&m.Rules)
	v.VisitNode(&m.Condition)
}

func (m *MixinDefinition) GenCSS(ctx *GenContext, out Output) {}

// Variable returns the last declaration of variable name in the body.
func (m *MixinDefinition) Variable(name string) *Declaration {
	return variableIn(m.Rules, name)
}

// Property returns every declaration of property name in the body.
func (m *MixinDefinition) Property(name string) []*Declaration {
	return propertyIn(m.Rules, name)
}

// Find looks up nested mixins and namespaces matching selector.
func (m *MixinDefinition) Find(selector *Selector, self Node, filter func(Node) bool) []FoundMixin {
	if self == nil {
		self = m
	}
	return findIn(m.Rules, selector, self, filter)
}

// IsOptional reports whether the named parameter has a default.
func (m *MixinDefinition) IsOptional(name string) bool {
	for _, p := range m.OptionalParameters {
		if p == name {
			return true
		}
	}
	return false
}

// MixinArg is one argument of a mixin call.
type MixinArg struct {
	Name   string
	Value  Node
	Expand bool
}

// MixinCall invokes the mixins matching Selector.
type MixinCall struct {
	Meta
	Selector  *Selector
	Args      []MixinArg
	Important bool
}

// NewMixinCall returns a mixin call.
func NewMixinCall(elements []*Element, args []MixinArg, important bool, index int, file *FileInfo) *MixinCall {
	return &MixinCall{
		Meta:      Pos(index, file),
		Selector:  NewSelector(elements, nil, nil, index, file),
		Args:      args,
		Important: important,
	}
}

func (c *MixinCall) Kind() Kind    { return KindMixinCall }
func (c *MixinCall) ruleBodyItem() {}

func (c *MixinCall) Accept(v *Visitor) {
	v.Visit(c.Selector)
	for i := range c.Args {
		v.VisitNode(&c.Args[i].Value)
	}
}

func (c *MixinCall) GenCSS(ctx *GenContext, out Output) {}

// Signature renders the call as it appears in error messages.
func (c *MixinCall) Signature(args []MixinArg) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(c.Selector.ToCSS(nil)))
	sb.WriteString("(")
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if a.Name != "" {
			sb.WriteString(a.Name + ":")
		}
		sb.WriteString(CSS(a.Value))
	}
	sb.WriteString(")")
	return sb.String()
}

// DetachedRuleset is a ruleset stored in a variable.
type DetachedRuleset struct {
	Meta
	Ruleset *Ruleset
}

// NewDetachedRuleset returns a detached ruleset.
func NewDetachedRuleset(ruleset *Ruleset, index int, file *FileInfo) *DetachedRuleset {
	return &DetachedRuleset{Meta: Pos(index, file), Ruleset: ruleset}
}

func (d *DetachedRuleset) Kind() Kind { return KindDetachedRuleset }

func (d *DetachedRuleset) Accept(v *Visitor) {
	v.Visit(d.Ruleset)
}

func (d *DetachedRuleset) GenCSS(ctx *GenContext, out Output) {}

// VariableCall calls the detached ruleset stored in a variable: @name();
type VariableCall struct {
	Meta
	Variable  string
	Important bool
}

// NewVariableCall returns a detached ruleset call.
func NewVariableCall(variable string, important bool, index int, file *FileInfo) *VariableCall {
	return &VariableCall{Meta: Pos(index, file), Variable: variable, Important: important}
}

func (c *VariableCall) Kind() Kind                         { return KindVariableCall }
func (c *VariableCall) ruleBodyItem()                      {}
func (c *VariableCall) Accept(v *Visitor)                  {}
func (c *VariableCall) GenCSS(ctx *GenContext, out Output) {}

// NamespaceValue looks up a value inside the rules produced by a mixin call
// or a detached ruleset: .mixin()[@var], @dr[prop], .mixin()[].
type NamespaceValue struct {
	Meta
	Value   Node // *MixinCall or *Variable
	Lookups []string
}

// NewNamespaceValue returns a namespace lookup.
func NewNamespaceValue(value Node, lookups []string, index int, file *FileInfo) *NamespaceValue {
	return &NamespaceValue{Meta: Pos(index, file), Value: value, Lookups: lookups}
}

func (n *NamespaceValue) Kind() Kind { return KindNamespaceValue }

func (n *NamespaceValue) Accept(v *Visitor) {
	v.VisitNode(&n.Value)
}

func (n *NamespaceValue) GenCSS(ctx *GenContext, out Output) {
	n.Value.GenCSS(ctx, out)
	for _, l := range n.Lookups {
		out.Add("["+l+"]", nil, -1)
	}
}

// FoundMixin is a mixin lookup result: the matched rule and the namespaces
// it was found through, innermost first.
type FoundMixin struct {
	Rule Node // *Ruleset or *MixinDefinition
	Path []Node
}

func variableIn(rules []RuleBodyItem, name string) *Declaration {
	for i := len(rules) - 1; i >= 0; i-- {
		if d, ok := rules[i].(*Declaration); ok && d.Variable && d.Name == name {
			return d
		}
	}
	return nil
}

func propertyIn(rules []RuleBodyItem, name string) []*Declaration {
	name = strings.TrimPrefix(name, "$")
	var out []*Declaration
	for _, r := range rules {
		d, ok := r.(*Declaration)
		if !ok || d.Variable {
			continue
		}
		if d.DisplayName() == name {
			out = append(out, d)
		}
	}
	return out
}

func lastDeclarationIn(rules []RuleBodyItem) *Declaration {
	for i := len(rules) - 1; i >= 0; i-- {
		if d, ok := rules[i].(*Declaration); ok {
			return d
		}
	}
	return nil
}

func rulesetsIn(rules []RuleBodyItem) []Node {
	var out []Node
	for _, r := range rules {
		switch r.(type) {
		case *Ruleset, *MixinDefinition:
			out = append(out, r)
		}
	}
	return out
}

func findIn(rules []RuleBodyItem, selector *Selector, self Node, filter func(Node) bool) []FoundMixin {
	var found []FoundMixin
	for _, rule := range rulesetsIn(rules) {
		if rule == self {
			continue
		}
		var selectors []*Selector
		switch t := rule.(type) {
		case *Ruleset:
			selectors = t.Selectors
		case *MixinDefinition:
			selectors = t.Selectors
		}
		for _, sel := range selectors {
			n := selector.Match(sel)
			if n == 0 {
				continue
			}
			if len(selector.Elements) > n {
				if filter == nil || filter(rule) {
					rest := NewSelector(selector.Elements[n:], nil, nil, selector.Index, selector.File)
					var nested []FoundMixin
					switch t := rule.(type) {
					case *Ruleset:
						nested = t.Find(rest, self, filter)
					case *MixinDefinition:
						nested = t.Find(rest, self, filter)
					}
					for i := range nested {
						nested[i].Path = append(nested[i].Path, rule)
					}
					found = append(found, nested...)
				}
			} else {
				found = append(found, FoundMixin{Rule: rule})
			}
			break
		}
	}
	return found
}

// MergeRules combines declarations marked for merging into the first
// declaration of each name: "+" appends the value comma separated, "+_"
// space separated. The merged declaration is a copy; rules is not modified.
func MergeRules(rules []RuleBodyItem) []RuleBodyItem {
	out := make([]RuleBodyItem, 0, len(rules))
	groups := map[string][]*Declaration{}
	firstAt := map[string]int{}
	var order []string
	for _, r := range rules {
		d, ok := r.(*Declaration)
		if !ok || d.Merge == "" {
			out = append(out, r)
			continue
		}
		if _, seen := groups[d.Name]; !seen {
			order = append(order, d.Name)
			firstAt[d.Name] = len(out)
			out = append(out, d)
		}
		groups[d.Name] = append(groups[d.Name], d)
	}
	for _, name := range order {
		group := groups[name]
		merged := *group[0]
		var comma, space []Node
		for _, d := range group {
			if d.Merge == "+" && len(space) > 0 {
				comma = append(comma, NewExpression(space, d.Index, d.File))
				space = nil
			}
			space = append(space, d.Value)
			if merged.Important == "" {
				merged.Important = d.Important
			}
		}
		comma = append(comma, NewExpression(space, merged.Index, merged.File))
		merged.Value = NewValue(comma, merged.Index, merged.File)
		out[firstAt[name]] = &merged
	}
	return out
}
