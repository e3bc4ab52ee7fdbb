package ast

// Kind is the type tag of a node variant.
type Kind uint8

const (
	KindAnonymous Kind = iota
	KindKeyword
	KindDimension
	KindColor
	KindQuoted
	KindURL
	KindExpression
	KindValue
	KindParen
	KindNegative
	KindOperation
	KindVariable
	KindProperty
	KindCall
	KindCondition
	KindComment
	KindAssignment
	KindUnicodeDescriptor
	KindAttribute
	KindElement
	KindSelector
	KindExtend
	KindDeclaration
	KindRuleset
	KindMixinCall
	KindMixinDefinition
	KindDetachedRuleset
	KindVariableCall
	KindNamespaceValue
	KindAtRule
	KindMedia
	KindContainer
	KindLayer
	KindScope
	KindStartingStyle
	KindImport
	KindFragment

	kindCount
)

var kindNames = [kindCount]string{
	KindAnonymous:         "Anonymous",
	KindKeyword:           "Keyword",
	KindDimension:         "Dimension",
	KindColor:             "Color",
	KindQuoted:            "Quoted",
	KindURL:               "Url",
	KindExpression:        "Expression",
	KindValue:             "Value",
	KindParen:             "Paren",
	KindNegative:          "Negative",
	KindOperation:         "Operation",
	KindVariable:          "Variable",
	KindProperty:          "Property",
	KindCall:              "Call",
	KindCondition:         "Condition",
	KindComment:           "Comment",
	KindAssignment:        "Assignment",
	KindUnicodeDescriptor: "UnicodeDescriptor",
	KindAttribute:         "Attribute",
	KindElement:           "Element",
	KindSelector:          "Selector",
	KindExtend:            "Extend",
	KindDeclaration:       "Declaration",
	KindRuleset:           "Ruleset",
	KindMixinCall:         "MixinCall",
	KindMixinDefinition:   "MixinDefinition",
	KindDetachedRuleset:   "DetachedRuleset",
	KindVariableCall:      "VariableCall",
	KindNamespaceValue:    "NamespaceValue",
	KindAtRule:            "AtRule",
	KindMedia:             "Media",
	KindContainer:         "Container",
	KindLayer:             "Layer",
	KindScope:             "Scope",
	KindStartingStyle:     "StartingStyle",
	KindImport:            "Import",
	KindFragment:          "Fragment",
}

// String returns the variant name.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Unknown"
}

// Node is implemented by every AST variant. The set of variants is closed:
// evaluation dispatches on the concrete type, traversal on Kind.
type Node interface {
	Kind() Kind
	Metadata() *Meta
	Accept(v *Visitor)
	GenCSS(ctx *GenContext, out Output)
}

// RuleBodyItem is a node that may appear directly in a rule body.
type RuleBodyItem interface {
	Node
	ruleBodyItem()
}

// Fragment is a list of nodes standing in for a single node. Replacing
// visitors return it to splice several nodes into the enclosing list.
type Fragment struct {
	Meta
	Nodes []Node
}

// NewFragment returns a fragment holding nodes.
func NewFragment(nodes ...Node) *Fragment {
	return &Fragment{Meta: Pos(-1, nil), Nodes: nodes}
}

func (f *Fragment) Kind() Kind { return KindFragment }

func (f *Fragment) Accept(v *Visitor) {
	v.VisitNodes(&f.Nodes)
}

func (f *Fragment) GenCSS(ctx *GenContext, out Output) {
	for _, n := range f.Nodes {
		n.GenCSS(ctx, out)
	}
}

// RulesToNodes converts a rule body into a plain node list.
func RulesToNodes(rules []RuleBodyItem) []Node {
	out := make([]Node, len(rules))
	for i, r := range rules {
		out[i] = r
	}
	return out
}

// NodesToRules keeps the rule body items of nodes, flattening fragments.
func NodesToRules(nodes []Node) []RuleBodyItem {
	out := make([]RuleBodyItem, 0, len(nodes))
	for _, n := range nodes {
		switch t := n.(type) {
		case RuleBodyItem:
			out = append(out, t)
		case *Fragment:
			out = append(out, NodesToRules(t.Nodes)...)
		}
	}
	return out
}
