package parser

import (
	"testing"

	"mercator-hq/cascade/pkg/less/ast"
)

func elementTexts(s *ast.Selector) []string {
	out := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		out[i] = e.Combinator.Value + "|" + e.ValueCSS(nil)
	}
	return out
}

func TestParseSelectors_Elements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"compound", "a.b:hover", []string{"|a", "|.b", "|:hover"}},
		{"descendant", ".a .b", []string{"|.a", " |.b"}},
		{"child", ".a > .b", []string{"|.a", ">|.b"}},
		{"sibling", ".a~.b", []string{"|.a", "~|.b"}},
		{"parent suffix", "&-title", []string{"|&", "|-title"}},
		{"leading combinator", "> li", []string{">|li"}},
		{"pseudo arguments", "li:nth-child(2n+1)", []string{"|li", "|:nth-child", "|(2n+1)"}},
		{"percent", "50%", []string{"|50%"}},
		{"universal", "*", []string{"|*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sels, err := ParseSelectors(tt.input, 0, nil)
			if err != nil {
				t.Fatalf("ParseSelectors(%q) failed: %v", tt.input, err)
			}
			if len(sels) != 1 {
				t.Fatalf("len(selectors) = %d, want 1", len(sels))
			}
			got := elementTexts(sels[0])
			if len(got) != len(tt.want) {
				t.Fatalf("elements = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("element %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseSelectors_List(t *testing.T) {
	sels, err := ParseSelectors(".a, .b > .c,\n.d", 0, nil)
	if err != nil {
		t.Fatalf("ParseSelectors() failed: %v", err)
	}
	if len(sels) != 3 {
		t.Fatalf("len(selectors) = %d, want 3", len(sels))
	}
	if got := sels[2].Elements[0].Combinator.Value; got != "" {
		t.Errorf("first combinator after newline = %q, want empty", got)
	}
}

func TestParseSelectors_Attribute(t *testing.T) {
	sels, err := ParseSelectors(`input[type="text" i]`, 0, nil)
	if err != nil {
		t.Fatalf("ParseSelectors() failed: %v", err)
	}
	el := sels[0].Elements[1]
	attr, ok := el.Value.(*ast.Attribute)
	if !ok {
		t.Fatalf("element value = %T, want *ast.Attribute", el.Value)
	}
	if attr.Key != "type" || attr.Op != "=" || attr.Cif != "i" {
		t.Errorf("attribute = %s %s %s, want type = i", attr.Key, attr.Op, attr.Cif)
	}
}

func TestParseSelectors_Extend(t *testing.T) {
	sels, err := ParseSelectors(".a:extend(.b all, .c)", 0, nil)
	if err != nil {
		t.Fatalf("ParseSelectors() failed: %v", err)
	}
	exts := sels[0].ExtendList
	if len(exts) != 2 {
		t.Fatalf("len(ExtendList) = %d, want 2", len(exts))
	}
	if exts[0].Option != "all" || exts[1].Option != "" {
		t.Errorf("options = %q, %q, want all and empty", exts[0].Option, exts[1].Option)
	}
	if got := exts[0].Selector.ToCSS(nil); got != ".b" {
		t.Errorf("target = %q, want .b", got)
	}
}

func TestParseSelectors_Guard(t *testing.T) {
	sels, err := ParseSelectors(".a, .b when (@mode = dark)", 0, nil)
	if err != nil {
		t.Fatalf("ParseSelectors() failed: %v", err)
	}
	if sels[0].Condition != nil {
		t.Error("guard attached to the first selector")
	}
	if sels[1].Condition == nil {
		t.Error("guard missing on the last selector")
	}
	if sels[1].EvaldCondition {
		t.Error("guarded selector is output before evaluation")
	}
}

func TestParseSelectors_GuardNotLast(t *testing.T) {
	_, err := ParseSelectors(".a when (@x) .b", 0, nil)
	if err == nil {
		t.Fatal("ParseSelectors() succeeded, want error")
	}
}

func TestParseSelectors_Interpolation(t *testing.T) {
	sels, err := ParseSelectors(".btn-@{size} .icon", 0, nil)
	if err != nil {
		t.Fatalf("ParseSelectors() failed: %v", err)
	}
	el := sels[0].Elements[0]
	if !el.IsVariable {
		t.Error("interpolated element is not marked variable")
	}
	q, ok := el.Value.(*ast.Quoted)
	if !ok || q.Value != ".btn-@{size}" {
		t.Errorf("element value = %#v, want quoted .btn-@{size}", el.Value)
	}
}

func TestParseSelectors_ParentInPseudo(t *testing.T) {
	sels, err := ParseSelectors(":not(&.active)", 0, nil)
	if err != nil {
		t.Fatalf("ParseSelectors() failed: %v", err)
	}
	if len(sels[0].Elements) != 2 {
		t.Fatalf("len(Elements) = %d, want 2", len(sels[0].Elements))
	}
	if _, ok := sels[0].Elements[1].Value.(*ast.Paren); !ok {
		t.Errorf("argument = %T, want *ast.Paren", sels[0].Elements[1].Value)
	}
}

func TestParseMixinDefinition(t *testing.T) {
	def, err := ParseMixinDefinition(".m(@a; @b: 2; @rest...) when (@a > 0)", nil, 0, nil)
	if err != nil {
		t.Fatalf("ParseMixinDefinition() failed: %v", err)
	}
	if def.Name != ".m" {
		t.Errorf("Name = %q, want .m", def.Name)
	}
	if len(def.Params) != 3 {
		t.Fatalf("len(Params) = %d, want 3", len(def.Params))
	}
	if !def.Variadic || !def.Params[2].Variadic {
		t.Error("rest parameter is not variadic")
	}
	if def.Required != 2 {
		t.Errorf("Required = %d, want 2", def.Required)
	}
	if !def.IsOptional("@b") {
		t.Error("@b is not optional")
	}
	if def.Condition == nil {
		t.Error("guard missing")
	}
}

func TestParseMixinDefinition_Patterns(t *testing.T) {
	def, err := ParseMixinDefinition(".m(dark, @color)", nil, 0, nil)
	if err != nil {
		t.Fatalf("ParseMixinDefinition() failed: %v", err)
	}
	if def.Params[0].Name != "" || def.Params[0].Value == nil {
		t.Errorf("first param = %+v, want a pattern", def.Params[0])
	}
	if def.Params[1].Name != "@color" {
		t.Errorf("second param = %q, want @color", def.Params[1].Name)
	}
}

func TestParseMixinDefinition_BadName(t *testing.T) {
	if _, err := ParseMixinDefinition("m(@a)", nil, 0, nil); err == nil {
		t.Error("ParseMixinDefinition() accepted a name without . or #")
	}
}

func TestParseMixinCall(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantElements  int
		wantArgs      int
		wantImportant bool
	}{
		{"bare", ".m", 1, 0, false},
		{"namespaced", "#ns > .m(1px, 2px)", 2, 2, false},
		{"namespaced without combinator", "#ns.m()", 2, 0, false},
		{"important", ".m(1) !important", 1, 1, true},
		{"semicolons", ".m(1, 2; 3)", 1, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := ParseMixinCall(tt.input, 0, nil)
			if err != nil {
				t.Fatalf("ParseMixinCall(%q) failed: %v", tt.input, err)
			}
			if got := len(call.Selector.Elements); got != tt.wantElements {
				t.Errorf("len(Elements) = %d, want %d", got, tt.wantElements)
			}
			if got := len(call.Args); got != tt.wantArgs {
				t.Errorf("len(Args) = %d, want %d", got, tt.wantArgs)
			}
			if call.Important != tt.wantImportant {
				t.Errorf("Important = %v, want %v", call.Important, tt.wantImportant)
			}
		})
	}
}

func TestParseMixinCall_NamedAndExpanded(t *testing.T) {
	call, err := ParseMixinCall(".m(@color: red; @list...)", 0, nil)
	if err != nil {
		t.Fatalf("ParseMixinCall() failed: %v", err)
	}
	if len(call.Args) != 2 {
		t.Fatalf("len(Args) = %d, want 2", len(call.Args))
	}
	if call.Args[0].Name != "@color" {
		t.Errorf("first arg name = %q, want @color", call.Args[0].Name)
	}
	if !call.Args[1].Expand {
		t.Error("second arg is not expanded")
	}
}

func TestParseMediaFeatures(t *testing.T) {
	f, err := ParseMediaFeatures("screen and (min-width: @tablet), print", 0, nil)
	if err != nil {
		t.Fatalf("ParseMediaFeatures() failed: %v", err)
	}
	list := f.(*ast.Value)
	if len(list.Value) != 2 {
		t.Fatalf("len(features) = %d, want 2", len(list.Value))
	}
	first := list.Value[0].(*ast.Expression)
	if len(first.Value) != 3 {
		t.Fatalf("first feature has %d parts, want 3", len(first.Value))
	}
	paren, ok := first.Value[2].(*ast.Paren)
	if !ok {
		t.Fatalf("third part = %T, want *ast.Paren", first.Value[2])
	}
	d, ok := paren.Value.(*ast.Declaration)
	if !ok || d.Name != "min-width" || !d.Inline {
		t.Errorf("feature = %#v, want inline min-width declaration", paren.Value)
	}
}

func TestParseMediaFeatures_Range(t *testing.T) {
	f, err := ParseMediaFeatures("(400px <= width <= 700px)", 0, nil)
	if err != nil {
		t.Fatalf("ParseMediaFeatures() failed: %v", err)
	}
	expr := f.(*ast.Value).Value[0].(*ast.Expression)
	a, ok := expr.Value[0].(*ast.Anonymous)
	if !ok || a.Value != "(400px <= width <= 700px)" {
		t.Errorf("feature = %#v, want raw range", expr.Value[0])
	}
}
