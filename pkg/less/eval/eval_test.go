package eval

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
	"mercator-hq/cascade/pkg/less/parser"
)

func parseDoc(t *testing.T, doc string) *ast.Ruleset {
	t.Helper()
	root, err := parser.ParseBytes([]byte(doc), "test.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	return root
}

func evalDoc(t *testing.T, doc string, opts Options) (*ast.Ruleset, error) {
	t.Helper()
	return New(opts).Eval(context.Background(), parseDoc(t, doc))
}

func mustEval(t *testing.T, doc string) *ast.Ruleset {
	t.Helper()
	out, err := evalDoc(t, doc, Options{})
	if err != nil {
		t.Fatalf("Eval() failed: %v", err)
	}
	return out
}

// findRuleset returns the first ruleset below rules whose first selector
// renders as sel.
func findRuleset(rules []ast.RuleBodyItem, sel string) *ast.Ruleset {
	for _, r := range rules {
		switch t := r.(type) {
		case *ast.Ruleset:
			if len(t.Selectors) > 0 && t.Selectors[0].ToCSS(nil) == sel {
				return t
			}
			if found := findRuleset(t.Rules, sel); found != nil {
				return found
			}
		case *ast.NestedAtRule:
			if found := findRuleset(t.Rules, sel); found != nil {
				return found
			}
		}
	}
	return nil
}

// declValues returns the rendered values of the property declarations of
// rs, in order.
func declValues(rs *ast.Ruleset, name string) []string {
	var out []string
	for _, r := range rs.Rules {
		if d, ok := r.(*ast.Declaration); ok && !d.Variable && d.Name == name {
			out = append(out, ast.CSS(d.Value))
		}
	}
	return out
}

func declValue(t *testing.T, root *ast.Ruleset, sel, name string) string {
	t.Helper()
	rs := findRuleset(root.Rules, sel)
	if rs == nil {
		t.Fatalf("ruleset %s not found", sel)
	}
	values := declValues(rs, name)
	if len(values) == 0 {
		t.Fatalf("%s has no %s declaration", sel, name)
	}
	return values[len(values)-1]
}

func TestEvaluator_Variables(t *testing.T) {
	doc := `rules:
  - var: base
    value: 4px
  - ruleset: .a
    rules:
      - decl: width
        value: "@base * 2"
      - decl: height
        value: "@later"
  - ruleset: .b
    rules:
      - var: base
        value: 10px
      - decl: width
        value: "@base"
  - var: later
    value: 3px
  - var: name
    value: base
  - ruleset: .c
    rules:
      - decl: width
        value: "@@name"
`
	out := mustEval(t, doc)

	tests := []struct {
		sel, prop, want string
	}{
		{".a", "width", "8px"},
		{".a", "height", "3px"},
		{".b", "width", "10px"},
		{".c", "width", "4px"},
	}
	for _, tt := range tests {
		t.Run(tt.sel+" "+tt.prop, func(t *testing.T) {
			if got := declValue(t, out, tt.sel, tt.prop); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.prop, got, tt.want)
			}
		})
	}
}

func TestEvaluator_TemplateUnchanged(t *testing.T) {
	doc := `rules:
  - var: w
    value: 1px
  - ruleset: .a
    rules:
      - decl: width
        value: "@w"
`
	root := parseDoc(t, doc)
	modify := parseDoc(t, "- var: w\n  value: 9px\n")

	first, err := New(Options{}).Eval(context.Background(), root)
	if err != nil {
		t.Fatalf("Eval() failed: %v", err)
	}
	second, err := New(Options{}).Eval(context.Background(),
		WithVariables(root, nil, []*ast.Declaration{modify.Rules[0].(*ast.Declaration)}))
	if err != nil {
		t.Fatalf("Eval() with variables failed: %v", err)
	}

	if got := declValue(t, first, ".a", "width"); got != "1px" {
		t.Errorf("first render width = %q, want 1px", got)
	}
	if got := declValue(t, second, ".a", "width"); got != "9px" {
		t.Errorf("second render width = %q, want 9px", got)
	}

	tmpl := root.Rules[1].(*ast.Ruleset).Rules[0].(*ast.Declaration)
	expr := tmpl.Value.(*ast.Value).Value[0].(*ast.Expression)
	if _, ok := expr.Value[0].(*ast.Variable); !ok {
		t.Errorf("template value = %T after evaluation, want *ast.Variable", expr.Value[0])
	}
	if len(root.Rules) != 2 {
		t.Errorf("len(template rules) = %d, want 2", len(root.Rules))
	}
}

func TestEvaluator_MixinArity(t *testing.T) {
	const defs = `rules:
  - mixin: ".m(@a; @b; @c: 3)"
    rules:
      - decl: sum
        value: "@a + @b + @c"
  - ruleset: .x
    rules:
      - call: "%s"
`
	tests := []struct {
		call    string
		want    string
		wantErr bool
	}{
		{".m()", "", true},
		{".m(1; 2)", "6", false},
		{".m(1; 2; 4)", "7", false},
		{".m(1; 2; 3; 4)", "", true},
		{".m(@b: 5; @a: 1)", "9", false},
	}

	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			out, err := evalDoc(t, fmt.Sprintf(defs, tt.call), Options{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("Eval() succeeded, want error")
				}
				if !strings.Contains(err.Error(), "No matching definition") {
					t.Errorf("error = %q, want no matching definition", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Eval() failed: %v", err)
			}
			if got := declValue(t, out, ".x", "sum"); got != tt.want {
				t.Errorf("sum = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluator_MixinUndefined(t *testing.T) {
	doc := `rules:
  - mixin: .rounded()
    rules:
      - decl: border-radius
        value: 4px
  - ruleset: .x
    rules:
      - call: .roundd()
`
	_, err := evalDoc(t, doc, Options{})
	if err == nil {
		t.Fatal("Eval() succeeded, want error")
	}
	if !lesserrors.IsType(err, lesserrors.ErrorTypeName) {
		t.Errorf("error = %v, want Name type", err)
	}
	var le *lesserrors.Error
	if lesserrors.As(err, &le) && !strings.Contains(le.Suggestion, ".rounded") {
		t.Errorf("Suggestion = %q, want it to mention .rounded", le.Suggestion)
	}
}

func TestEvaluator_DefaultGuard(t *testing.T) {
	doc := `rules:
  - mixin: .m(@x)
    when: (@x > 0)
    rules:
      - decl: kind
        value: positive
  - mixin: .m(@x)
    when: (default())
    rules:
      - decl: kind
        value: other
  - ruleset: .pos
    rules:
      - call: .m(1)
  - ruleset: .neg
    rules:
      - call: .m(-1)
`
	out := mustEval(t, doc)

	pos := findRuleset(out.Rules, ".pos")
	if got := declValues(pos, "kind"); len(got) != 1 || got[0] != "positive" {
		t.Errorf(".pos kind = %q, want [positive]", got)
	}
	neg := findRuleset(out.Rules, ".neg")
	if got := declValues(neg, "kind"); len(got) != 1 || got[0] != "other" {
		t.Errorf(".neg kind = %q, want [other]", got)
	}
}

func TestEvaluator_DefaultAmbiguous(t *testing.T) {
	doc := `rules:
  - mixin: .m(@x)
    when: (default())
    rules:
      - decl: a
        value: 1
  - mixin: .m(@x)
    when: (default())
    rules:
      - decl: b
        value: 2
  - ruleset: .x
    rules:
      - call: .m(1)
`
	_, err := evalDoc(t, doc, Options{})
	if err == nil {
		t.Fatal("Eval() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "Ambiguous use of `default()`") {
		t.Errorf("error = %q, want ambiguous default()", err.Error())
	}
}

func TestEvaluator_DefaultOutsideGuard(t *testing.T) {
	doc := `rules:
  - ruleset: ".x when (default())"
    rules:
      - decl: a
        value: 1
`
	if _, err := evalDoc(t, doc, Options{}); err == nil {
		t.Error("Eval() accepted default() in a selector guard")
	}
}

func TestEvaluator_PatternMatching(t *testing.T) {
	doc := `rules:
  - mixin: .theme(dark; @c)
    rules:
      - decl: background
        value: black
  - mixin: .theme(light; @c)
    rules:
      - decl: background
        value: white
  - mixin: .theme(@any; @c)
    rules:
      - decl: color
        value: "@c"
  - ruleset: .x
    rules:
      - call: .theme(dark; red)
`
	out := mustEval(t, doc)
	x := findRuleset(out.Rules, ".x")
	if got := declValues(x, "background"); len(got) != 1 || got[0] != "black" {
		t.Errorf("background = %q, want [black]", got)
	}
	if got := declValues(x, "color"); len(got) != 1 || got[0] != "red" {
		t.Errorf("color = %q, want [red]", got)
	}
}

func TestEvaluator_CSSGuard(t *testing.T) {
	doc := `rules:
  - var: on
    value: "false"
  - ruleset: ".hidden when (@on)"
    rules:
      - decl: color
        value: red
  - ruleset: ".shown when not (@on)"
    rules:
      - decl: color
        value: blue
`
	out := mustEval(t, doc)
	if rs := findRuleset(out.Rules, ".hidden"); rs != nil && len(rs.Rules) > 0 {
		t.Errorf(".hidden kept %d rules, want none", len(rs.Rules))
	}
	if got := declValue(t, out, ".shown", "color"); got != "blue" {
		t.Errorf(".shown color = %q, want blue", got)
	}
}

func TestEvaluator_RecursiveVariable(t *testing.T) {
	doc := `rules:
  - var: a
    value: "@b"
  - var: b
    value: "@a"
  - ruleset: .x
    rules:
      - decl: width
        value: "@a"
`
	_, err := evalDoc(t, doc, Options{})
	if err == nil {
		t.Fatal("Eval() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "Recursive variable definition") {
		t.Errorf("error = %q, want recursive variable definition", err.Error())
	}
}

func TestEvaluator_UndefinedVariable(t *testing.T) {
	doc := `rules:
  - var: primary
    value: red
  - ruleset: .x
    rules:
      - decl: color
        value: "@primay"
`
	_, err := evalDoc(t, doc, Options{})
	if !lesserrors.IsType(err, lesserrors.ErrorTypeName) {
		t.Fatalf("error = %v, want Name type", err)
	}
	var le *lesserrors.Error
	if !lesserrors.As(err, &le) {
		t.Fatal("error is not an *errors.Error")
	}
	if le.Location.File != "test.yaml" || le.Location.Index < 0 {
		t.Errorf("Location = %+v, want a position in test.yaml", le.Location)
	}
}

func TestEvaluator_MaxMixinDepth(t *testing.T) {
	doc := `rules:
  - mixin: .loop(@i)
    when: (@i > 0)
    rules:
      - decl: width
        value: "@i"
      - call: .loop(@i - 1)
  - ruleset: .x
    rules:
      - call: .loop(50)
`
	_, err := evalDoc(t, doc, Options{MaxMixinDepth: 10})
	if !lesserrors.Is(err, lesserrors.ErrMaxDepth) {
		t.Fatalf("error = %v, want ErrMaxDepth", err)
	}

	out, err := evalDoc(t, doc, Options{MaxMixinDepth: 100})
	if err != nil {
		t.Fatalf("Eval() within the limit failed: %v", err)
	}
	if got := len(declValues(findRuleset(out.Rules, ".x"), "width")); got != 50 {
		t.Errorf("loop produced %d declarations, want 50", got)
	}
}

func TestEvaluator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := parseDoc(t, "- ruleset: .a\n  rules:\n    - decl: color\n      value: red\n")
	if _, err := New(Options{}).Eval(ctx, root); err == nil {
		t.Error("Eval() succeeded with a canceled context")
	}
}

func TestEvaluator_DetachedRuleset(t *testing.T) {
	doc := `rules:
  - var: color
    value: red
  - var: detached
    rules:
      - decl: color
        value: "@color"
  - ruleset: .x
    rules:
      - call: "@detached()"
`
	out := mustEval(t, doc)
	if got := declValue(t, out, ".x", "color"); got != "red" {
		t.Errorf("color = %q, want red", got)
	}
}

func TestEvaluator_ImportantMixin(t *testing.T) {
	doc := `rules:
  - mixin: .m()
    rules:
      - decl: color
        value: red
  - ruleset: .x
    rules:
      - call: .m() !important
`
	out := mustEval(t, doc)
	x := findRuleset(out.Rules, ".x")
	d := x.Rules[0].(*ast.Declaration)
	if d.Important != " !important" {
		t.Errorf("Important = %q, want %q", d.Important, " !important")
	}
}

func TestEvaluator_MediaBubbling(t *testing.T) {
	doc := `rules:
  - ruleset: .a
    rules:
      - media: "screen, print"
        rules:
          - media: "(min-width: 768px)"
            rules:
              - decl: color
                value: red
`
	out := mustEval(t, doc)

	var blocks []*ast.NestedAtRule
	var walk func(rules []ast.RuleBodyItem)
	walk = func(rules []ast.RuleBodyItem) {
		for _, r := range rules {
			switch t := r.(type) {
			case *ast.Ruleset:
				walk(t.Rules)
			case *ast.NestedAtRule:
				blocks = append(blocks, t)
				walk(t.Rules)
			}
		}
	}
	walk(out.Rules)

	if len(blocks) != 2 {
		t.Fatalf("found %d media blocks, want 2", len(blocks))
	}
	combined := ast.CSS(blocks[1].Features)
	for _, want := range []string{"screen and", "print and"} {
		if !strings.Contains(combined, want) {
			t.Errorf("features = %q, want it to contain %q", combined, want)
		}
	}
	if got := len(blocks[1].Features.(*ast.Value).Value); got != 2 {
		t.Errorf("combined feature count = %d, want 2", got)
	}
}

func TestPermute(t *testing.T) {
	kw := func(s string) ast.Node { return ast.NewKeyword(s, -1, nil) }
	got := permute([][]ast.Node{{kw("a"), kw("b")}, {kw("c"), kw("d")}})
	want := []string{"a c", "b c", "a d", "b d"}
	if len(got) != len(want) {
		t.Fatalf("len(permute) = %d, want %d", len(got), len(want))
	}
	for i, p := range got {
		parts := make([]string, len(p))
		for j, n := range p {
			parts[j] = ast.CSS(n)
		}
		if s := strings.Join(parts, " "); s != want[i] {
			t.Errorf("permute[%d] = %q, want %q", i, s, want[i])
		}
	}
}

func TestEvaluator_MixedFamilyNesting(t *testing.T) {
	doc := `rules:
  - container: "(min-width: 1px)"
    rules:
      - media: screen
        rules:
          - container: "(min-width: 2px)"
            rules:
              - ruleset: .a
                rules:
                  - decl: b
                    value: c
`
	out := mustEval(t, doc)

	var chain []*ast.NestedAtRule
	rules := out.Rules
	for len(rules) > 0 {
		var next []ast.RuleBodyItem
		for _, r := range rules {
			switch t := r.(type) {
			case *ast.NestedAtRule:
				chain = append(chain, t)
				next = t.Rules
			case *ast.Ruleset:
				if next == nil {
					next = t.Rules
				}
			}
		}
		rules = next
	}

	want := []string{"@container (min-width: 1px)", "@media screen", "@container (min-width: 2px)"}
	if len(chain) != len(want) {
		t.Fatalf("found %d nested blocks, want %d", len(chain), len(want))
	}
	for i, block := range chain {
		got := block.Family.Keyword() + " " + ast.CSS(block.Features)
		if got != want[i] {
			t.Errorf("block[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestScopeFeatures(t *testing.T) {
	scope := func(prelude string) *ast.NestedAtRule {
		return ast.NewNestedAtRule(ast.FamilyScope, ast.NewAnonymous(prelude, -1, nil), nil, -1, nil)
	}

	tests := []struct {
		name     string
		preludes []string
		want     string
	}{
		{"roots only", []string{"(.a)", "(.b)"}, "(.a > .b)"},
		{"inner limit", []string{"(.a)", "(.b) to (.c)"}, "(.a > .b) to (.a > .b > .c)"},
		{"both limits", []string{"(.a) to (.x)", "(.b) to (.c)"}, "(.a > .b) to (.a > .b > .x > .c)"},
		{"child combinator", []string{"(.a)", "(> .b)"}, "(.a > .b)"},
		{"scope pseudo", []string{"(.a)", "(:scope .b)"}, "(.a > .b)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := make([]*ast.NestedAtRule, len(tt.preludes))
			for i, p := range tt.preludes {
				path[i] = scope(p)
			}
			if got := ast.CSS(scopeFeatures(path, -1, nil)); got != tt.want {
				t.Errorf("scopeFeatures(%q) = %q, want %q", tt.preludes, got, tt.want)
			}
		})
	}
}

func TestLayerFeatures(t *testing.T) {
	layer := func(name string) *ast.NestedAtRule {
		names := ast.NewValue([]ast.Node{ast.NewAnonymous(name, -1, nil)}, -1, nil)
		return ast.NewNestedAtRule(ast.FamilyLayer, names, nil, -1, nil)
	}
	path := []*ast.NestedAtRule{layer("base"), layer("components"), layer("buttons")}
	if got := ast.CSS(layerFeatures(path, -1, nil)); got != "base.components.buttons" {
		t.Errorf("layerFeatures() = %q, want %q", got, "base.components.buttons")
	}
}

func TestParseMathMode(t *testing.T) {
	tests := []struct {
		input   string
		want    MathMode
		wantErr bool
	}{
		{"always", MathAlways, false},
		{"", MathParensDivision, false},
		{"parens-division", MathParensDivision, false},
		{"strict", MathParens, false},
		{"sometimes", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMathMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMathMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMathMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
