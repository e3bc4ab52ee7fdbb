package parser

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ruleKinds are the keys that name what a rule item is. Each item carries
// exactly one of them.
var ruleKinds = []string{
	"decl", "var", "ruleset", "mixin", "call", "detached-call",
	"media", "container", "layer", "scope", "starting-style",
	"at-rule", "import", "extend", "comment",
}

// ruleFields lists the other keys each kind accepts.
var ruleFields = map[string][]string{
	"decl":           {"value", "important", "merge"},
	"var":            {"value", "important", "rules"},
	"ruleset":        {"rules"},
	"mixin":          {"when", "rules"},
	"call":           {"important"},
	"detached-call":  {"important"},
	"media":          {"rules"},
	"container":      {"rules"},
	"layer":          {"rules"},
	"scope":          {"rules"},
	"starting-style": {"rules"},
	"at-rule":        {"value", "rules"},
	"import":         {"options", "media"},
	"extend":         {},
	"comment":        {},
}

// yamlDocument is the top level of a tree document.
type yamlDocument struct {
	Rules []yaml.Node `yaml:"rules"`

	// Internal tracking
	node *yaml.Node // Original YAML node for line numbers
}

// yamlRule is one item of a rules list. Text fields hold inline syntax that
// the text parsers read.
type yamlRule struct {
	Kind string // One of ruleKinds
	Head string // Value of the kind key

	Value     string      `yaml:"value"`
	Important bool        `yaml:"important"`
	Merge     string      `yaml:"merge"`
	When      string      `yaml:"when"`
	Media     string      `yaml:"media"`
	Options   []string    `yaml:"options"`
	Rules     []yaml.Node `yaml:"rules"`
	HasRules  bool

	// Internal tracking
	node   *yaml.Node            // Original YAML node for line numbers
	fields map[string]*yaml.Node // Value node of each key
}

// parseYAMLBytes decodes a tree document.
func parseYAMLBytes(data []byte) (*yamlDocument, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	doc := &yamlDocument{node: &node}
	if len(node.Content) == 0 {
		return doc, nil
	}
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		for _, item := range root.Content {
			doc.Rules = append(doc.Rules, *item)
		}
	case yaml.MappingNode:
		if err := root.Decode(doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("line %d: document must be a mapping with a rules list", root.Line)
	}
	return doc, nil
}

// decodeRule reads a rule item, checking that it has exactly one kind key
// and only the fields that kind accepts.
func decodeRule(n *yaml.Node) (*yamlRule, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("rule must be a mapping")
	}
	r := &yamlRule{node: n, fields: make(map[string]*yaml.Node)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		if _, dup := r.fields[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		r.fields[key] = val
	}

	var kinds []string
	for _, k := range ruleKinds {
		if _, ok := r.fields[k]; ok {
			kinds = append(kinds, k)
		}
	}
	switch len(kinds) {
	case 0:
		return nil, fmt.Errorf("rule has none of the keys %s", strings.Join(ruleKinds, ", "))
	case 1:
	default:
		return nil, fmt.Errorf("rule has more than one kind: %s", strings.Join(kinds, ", "))
	}
	r.Kind = kinds[0]

	allowed := map[string]bool{r.Kind: true}
	for _, f := range ruleFields[r.Kind] {
		allowed[f] = true
	}
	var unknown []string
	for key := range r.fields {
		if !allowed[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown field(s) for %s: %s", r.Kind, strings.Join(unknown, ", "))
	}

	head := r.fields[r.Kind]
	if head.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("%s must be a string", r.Kind)
	}
	if head.Tag != "!!null" {
		r.Head = head.Value
	}
	if err := n.Decode(r); err != nil {
		return nil, err
	}
	_, r.HasRules = r.fields["rules"]
	return r, nil
}

// lineIndex maps YAML line/column positions to byte offsets.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	idx := lineIndex{0}
	for i, c := range src {
		if c == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// offset returns the byte offset of the 1-based line and column.
func (l lineIndex) offset(line, column int) int {
	if line <= 0 || line > len(l) {
		return -1
	}
	return l[line-1] + column - 1
}

// textOffset returns the offset of the first character of a scalar's text.
// Quoted scalars start after the quote; block scalars on the following line.
func (l lineIndex) textOffset(n *yaml.Node) int {
	off := l.offset(n.Line, n.Column)
	if off < 0 {
		return off
	}
	switch {
	case n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0:
		return off + 1
	case n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
		if n.Line < len(l) {
			return l[n.Line]
		}
	}
	return off
}
