package parser

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

var (
	reNameInterpolation = regexp.MustCompile(`[@$]\{[\w-]+\}`)
	reImportPath        = regexp.MustCompile(`^\s*(?:"[^"]*"|'[^']*'|url\()`)
	reVendorPrefix      = regexp.MustCompile(`^@-[a-z]+-`)
)

// builder constructs rule nodes from decoded rule items. It collects errors
// and keeps going, so one load reports every problem in a document.
type builder struct {
	file     *ast.FileInfo
	lines    lineIndex
	maxDepth int
	errors   *lesserrors.ErrorList
}

// newBuilder creates a builder for the given source file.
func newBuilder(file *ast.FileInfo, maxDepth int) *builder {
	return &builder{
		file:     file,
		lines:    newLineIndex(file.Source),
		maxDepth: maxDepth,
		errors:   lesserrors.NewErrorList(),
	}
}

// buildRoot transforms a document into the root ruleset.
func (b *builder) buildRoot(doc *yamlDocument) (*ast.Ruleset, error) {
	rules := b.buildRules(doc.Rules, 0)
	if b.errors.HasErrors() {
		return nil, b.errors
	}
	root := ast.NewRuleset(nil, rules, 0, b.file)
	root.Root = true
	root.FirstRoot = true
	root.AllowImports = true
	return root, nil
}

func (b *builder) buildRules(items []yaml.Node, depth int) []ast.RuleBodyItem {
	if depth > b.maxDepth {
		if len(items) > 0 {
			b.parseError(&items[0], fmt.Sprintf("rules nested deeper than %d levels", b.maxDepth))
		}
		return nil
	}
	out := make([]ast.RuleBodyItem, 0, len(items))
	for i := range items {
		item := &items[i]
		r, err := decodeRule(item)
		if err != nil {
			b.parseError(item, err.Error())
			continue
		}
		if r.Kind == "extend" {
			// One extend rule per target.
			exts, err := parseExtendTargets(r.Head, b.lines.textOffset(r.fields[r.Kind]), b.file)
			if err != nil {
				b.addError(err)
				continue
			}
			for _, e := range exts {
				out = append(out, e)
			}
			continue
		}
		rule, err := b.buildRule(r, depth)
		if err != nil {
			b.addError(err)
			continue
		}
		if rule != nil {
			out = append(out, rule)
		}
	}
	return out
}

func (b *builder) buildRule(r *yamlRule, depth int) (ast.RuleBodyItem, error) {
	head := r.fields[r.Kind]
	idx := b.lines.textOffset(head)

	switch r.Kind {
	case "decl":
		return b.buildDeclaration(r, idx)
	case "var":
		return b.buildVariable(r, idx, depth)
	case "ruleset":
		sels, err := ParseSelectors(r.Head, idx, b.file)
		if err != nil {
			return nil, err
		}
		return ast.NewRuleset(sels, b.buildRules(r.Rules, depth+1), idx, b.file), nil
	case "mixin":
		text := r.Head
		if r.When != "" {
			text += " when " + r.When
		}
		def, err := ParseMixinDefinition(text, b.buildRules(r.Rules, depth+1), idx, b.file)
		if err != nil {
			return nil, err
		}
		return def, nil
	case "call":
		if strings.HasPrefix(strings.TrimSpace(r.Head), "@") {
			return b.buildVariableCall(r, idx)
		}
		call, err := ParseMixinCall(r.Head, idx, b.file)
		if err != nil {
			return nil, err
		}
		if r.Important {
			call.Important = true
		}
		return call, nil
	case "detached-call":
		return b.buildVariableCall(r, idx)
	case "media", "container", "layer", "scope", "starting-style":
		return b.buildNestedAtRule(r, idx, depth)
	case "at-rule":
		return b.buildAtRule(r, idx, depth)
	case "import":
		return b.buildImport(r, idx)
	case "comment":
		text := strings.TrimSpace(r.Head)
		if !strings.HasPrefix(text, "/*") && !strings.HasPrefix(text, "//") {
			text = "/* " + text + " */"
		}
		return ast.NewComment(text, strings.HasPrefix(text, "//"), idx, b.file), nil
	}
	return nil, fmt.Errorf("unhandled rule kind %q", r.Kind)
}

func (b *builder) buildDeclaration(r *yamlRule, idx int) (ast.RuleBodyItem, error) {
	name := strings.TrimSpace(r.Head)
	if name == "" {
		return nil, b.syntaxError(idx, "declaration has no property name")
	}
	switch r.Merge {
	case "", "+", "+_":
	default:
		return nil, b.syntaxError(idx, fmt.Sprintf("merge must be \"+\" or \"+_\", got %q", r.Merge))
	}

	valueNode := r.fields["value"]
	if valueNode == nil {
		return nil, b.syntaxError(idx, fmt.Sprintf("declaration %s has no value", name))
	}
	text, important := splitImportant(r.Value)
	if r.Important {
		important = "!important"
	}

	var value ast.Node
	vidx := b.lines.textOffset(valueNode)
	if strings.HasPrefix(name, "--") {
		value = ast.NewAnonymous(strings.TrimSpace(text), vidx, b.file)
	} else {
		v, err := ParseValue(text, vidx, b.file)
		if err != nil {
			return nil, err
		}
		value = v
	}

	d := ast.NewDeclaration(name, value, important, r.Merge, idx, b.file)
	if reNameInterpolation.MatchString(name) {
		d.NameParts = nameParts(name, idx, b.file)
	}
	return d, nil
}

// nameParts splits an interpolated property name into literal keywords and
// the variables or properties to substitute.
func nameParts(name string, idx int, file *ast.FileInfo) []ast.Node {
	var parts []ast.Node
	last := 0
	for _, loc := range reNameInterpolation.FindAllStringIndex(name, -1) {
		if loc[0] > last {
			parts = append(parts, ast.NewKeyword(name[last:loc[0]], idx+last, file))
		}
		ref := name[loc[0]:loc[1]]
		inner := ref[2 : len(ref)-1]
		if ref[0] == '@' {
			parts = append(parts, ast.NewVariable("@"+inner, idx+loc[0], file))
		} else {
			parts = append(parts, &ast.Property{Meta: ast.Pos(idx+loc[0], file), Name: "$" + inner})
		}
		last = loc[1]
	}
	if last < len(name) {
		parts = append(parts, ast.NewKeyword(name[last:], idx+last, file))
	}
	return parts
}

func (b *builder) buildVariable(r *yamlRule, idx, depth int) (ast.RuleBodyItem, error) {
	name := strings.TrimSpace(r.Head)
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	if !reVariable.MatchString(name) || reVariable.FindString(name) != name {
		return nil, b.syntaxError(idx, fmt.Sprintf("invalid variable name %q", name))
	}

	if r.HasRules {
		if _, ok := r.fields["value"]; ok {
			return nil, b.syntaxError(idx, fmt.Sprintf("variable %s has both a value and rules", name))
		}
		body := ast.NewRuleset(nil, b.buildRules(r.Rules, depth+1), idx, b.file)
		return ast.NewDeclaration(name, ast.NewDetachedRuleset(body, idx, b.file), "", "", idx, b.file), nil
	}

	valueNode := r.fields["value"]
	if valueNode == nil {
		return nil, b.syntaxError(idx, fmt.Sprintf("variable %s has no value", name))
	}
	text, important := splitImportant(r.Value)
	if r.Important {
		important = "!important"
	}
	value, err := ParseValue(text, b.lines.textOffset(valueNode), b.file)
	if err != nil {
		return nil, err
	}
	return ast.NewDeclaration(name, value, important, "", idx, b.file), nil
}

func (b *builder) buildVariableCall(r *yamlRule, idx int) (ast.RuleBodyItem, error) {
	text, important := splitImportant(strings.TrimSpace(r.Head))
	text = strings.TrimSuffix(strings.TrimSpace(text), "()")
	if !strings.HasPrefix(text, "@") {
		text = "@" + text
	}
	if reVariable.FindString(text) != text {
		return nil, b.syntaxError(idx, fmt.Sprintf("invalid detached ruleset call %q", r.Head))
	}
	return ast.NewVariableCall(text, important != "" || r.Important, idx, b.file), nil
}

func (b *builder) buildNestedAtRule(r *yamlRule, idx, depth int) (ast.RuleBodyItem, error) {
	family, _ := ast.FamilyByName(r.Kind)
	var (
		features ast.Node
		err      error
	)
	text := strings.TrimSpace(r.Head)
	switch family {
	case ast.FamilyMedia, ast.FamilyContainer:
		if text == "" {
			return nil, b.syntaxError(idx, fmt.Sprintf("@%s needs a query", r.Kind))
		}
		features, err = ParseMediaFeatures(text, idx, b.file)
	case ast.FamilyLayer:
		if text != "" {
			var names []ast.Node
			for _, name := range strings.Split(text, ",") {
				names = append(names, ast.NewAnonymous(strings.TrimSpace(name), idx, b.file))
			}
			features = ast.NewValue(names, idx, b.file)
		}
	case ast.FamilyScope:
		if text != "" {
			features = ast.NewAnonymous(text, idx, b.file)
		}
	}
	if err != nil {
		return nil, err
	}
	return ast.NewNestedAtRule(family, features, b.buildRules(r.Rules, depth+1), idx, b.file), nil
}

func (b *builder) buildAtRule(r *yamlRule, idx, depth int) (ast.RuleBodyItem, error) {
	name := strings.TrimSpace(r.Head)
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	if _, nested := ast.FamilyByName(name); nested {
		return nil, b.syntaxError(idx, fmt.Sprintf("%s must be written with the %s key", name, strings.TrimPrefix(name, "@")))
	}
	if strings.EqualFold(name, "@import") {
		return nil, b.syntaxError(idx, "@import must be written with the import key")
	}

	var value ast.Node
	if valueNode := r.fields["value"]; valueNode != nil && strings.TrimSpace(r.Value) != "" {
		vidx := b.lines.textOffset(valueNode)
		v, err := ParseValue(r.Value, vidx, b.file)
		if err != nil {
			// Preludes such as @supports (display: grid) are not values.
			v = ast.NewAnonymous(strings.TrimSpace(r.Value), vidx, b.file)
		}
		value = v
	}

	bare := reVendorPrefix.ReplaceAllString(strings.ToLower(name), "@")
	isRooted := bare != "@supports" && bare != "@document"

	var body *ast.Ruleset
	if r.HasRules {
		body = ast.NewRuleset(nil, b.buildRules(r.Rules, depth+1), idx, b.file)
	}
	return ast.NewAtRule(name, value, body, isRooted, idx, b.file), nil
}

func (b *builder) buildImport(r *yamlRule, idx int) (ast.RuleBodyItem, error) {
	text := strings.TrimSpace(r.Head)
	if text == "" {
		return nil, b.syntaxError(idx, "import has no path")
	}
	if !reImportPath.MatchString(text) && !strings.HasPrefix(text, "@") {
		text = `"` + text + `"`
	}
	path, err := ParseValue(text, idx, b.file)
	if err != nil {
		return nil, err
	}
	if v, ok := path.(*ast.Value); ok && len(v.Value) == 1 {
		path = v.Value[0]
		if e, ok := path.(*ast.Expression); ok && len(e.Value) == 1 {
			path = e.Value[0]
		}
	}

	var opts ast.ImportOptions
	for _, o := range r.Options {
		switch strings.ToLower(strings.TrimSpace(o)) {
		case "reference":
			opts.Reference = true
		case "inline":
			opts.Inline = true
		case "less":
			less := true
			opts.Less = &less
		case "css":
			less := false
			opts.Less = &less
		case "once":
			opts.Multiple = false
		case "multiple":
			opts.Multiple = true
		case "optional":
			opts.Optional = true
		default:
			return nil, b.syntaxError(idx, fmt.Sprintf("unknown import option %q", o))
		}
	}

	var features ast.Node
	if mediaNode := r.fields["media"]; mediaNode != nil && strings.TrimSpace(r.Media) != "" {
		if features, err = ParseMediaFeatures(r.Media, b.lines.textOffset(mediaNode), b.file); err != nil {
			return nil, err
		}
	}
	return ast.NewImport(path, features, opts, idx, b.file), nil
}

func (b *builder) filename() string {
	return b.file.Filename
}

// parseError records a malformed document structure at node n.
func (b *builder) parseError(n *yaml.Node, message string) {
	b.errors.AddError(lesserrors.ErrorTypeParse, message, lesserrors.Location{
		File:   b.filename(),
		Index:  b.lines.offset(n.Line, n.Column),
		Line:   n.Line,
		Column: n.Column,
	})
}

func (b *builder) syntaxError(idx int, message string) error {
	return lesserrors.New(lesserrors.ErrorTypeSyntax, message).At(b.filename(), idx)
}

// addError records an error returned by a text parser.
func (b *builder) addError(err error) {
	var le *lesserrors.Error
	if lesserrors.As(err, &le) {
		b.errors.Add(le)
		return
	}
	b.errors.AddError(lesserrors.ErrorTypeParse, err.Error(), lesserrors.Location{File: b.filename(), Index: -1})
}
