package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

const sampleDocument = `rules:
  - var: primary
    value: "#336699"
  - mixin: ".bordered(@width: 2px)"
    when: (@width > 0)
    rules:
      - decl: border
        value: "@width solid @primary"
  - ruleset: ".card, .panel"
    rules:
      - call: .bordered(4px)
      - decl: padding
        value: 10px
        important: true
      - media: "(min-width: 768px)"
        rules:
          - decl: padding
            value: 20px
  - import: theme.less
    options: [reference, optional]
  - at-rule: "@font-face"
    rules:
      - decl: font-family
        value: Inter
  - comment: "/* end */"
`

func TestParser_ParseBytes(t *testing.T) {
	root, err := NewParser().ParseBytes([]byte(sampleDocument), "styles/main.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if !root.Root || !root.FirstRoot {
		t.Error("root ruleset is not marked as root")
	}
	if len(root.Rules) != 6 {
		t.Fatalf("len(Rules) = %d, want 6", len(root.Rules))
	}

	v, ok := root.Rules[0].(*ast.Declaration)
	if !ok || !v.Variable || v.Name != "@primary" {
		t.Errorf("rule 0 = %#v, want variable @primary", root.Rules[0])
	}
	if _, ok := root.Rules[1].(*ast.MixinDefinition); !ok {
		t.Errorf("rule 1 = %T, want *ast.MixinDefinition", root.Rules[1])
	}

	rs, ok := root.Rules[2].(*ast.Ruleset)
	if !ok {
		t.Fatalf("rule 2 = %T, want *ast.Ruleset", root.Rules[2])
	}
	if len(rs.Selectors) != 2 {
		t.Errorf("len(Selectors) = %d, want 2", len(rs.Selectors))
	}
	if len(rs.Rules) != 3 {
		t.Fatalf("len(ruleset rules) = %d, want 3", len(rs.Rules))
	}
	if _, ok := rs.Rules[0].(*ast.MixinCall); !ok {
		t.Errorf("nested rule 0 = %T, want *ast.MixinCall", rs.Rules[0])
	}
	if d := rs.Rules[1].(*ast.Declaration); d.Important != " !important" {
		t.Errorf("Important = %q, want %q", d.Important, " !important")
	}
	if m, ok := rs.Rules[2].(*ast.NestedAtRule); !ok || m.Family != ast.FamilyMedia {
		t.Errorf("nested rule 2 = %#v, want @media", rs.Rules[2])
	}

	imp, ok := root.Rules[3].(*ast.Import)
	if !ok {
		t.Fatalf("rule 3 = %T, want *ast.Import", root.Rules[3])
	}
	if !imp.Options.Reference || !imp.Options.Optional {
		t.Errorf("Options = %+v, want reference and optional", imp.Options)
	}
	if p, _ := imp.PathString(); p != "theme.less" {
		t.Errorf("PathString() = %q, want theme.less", p)
	}

	if a, ok := root.Rules[4].(*ast.AtRule); !ok || a.Name != "@font-face" {
		t.Errorf("rule 4 = %#v, want @font-face", root.Rules[4])
	}
	if _, ok := root.Rules[5].(*ast.Comment); !ok {
		t.Errorf("rule 5 = %T, want *ast.Comment", root.Rules[5])
	}
}

func TestParser_ParseBytes_Positions(t *testing.T) {
	root, err := ParseBytes([]byte(sampleDocument), "main.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	rs := root.Rules[2].(*ast.Ruleset)
	want := strings.Index(sampleDocument, ".card")
	if rs.Index != want {
		t.Errorf("Index = %d, want %d", rs.Index, want)
	}
	if rs.Filename() != "main.yaml" {
		t.Errorf("Filename() = %q, want main.yaml", rs.Filename())
	}
}

func TestParser_ParseBytes_BareList(t *testing.T) {
	root, err := ParseBytes([]byte("- decl: color\n  value: red\n"), "list.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if len(root.Rules) != 1 {
		t.Errorf("len(Rules) = %d, want 1", len(root.Rules))
	}
}

func TestParser_ParseBytes_DetachedRuleset(t *testing.T) {
	doc := `rules:
  - var: "@detached"
    rules:
      - decl: color
        value: red
  - call: "@detached()"
`
	root, err := ParseBytes([]byte(doc), "dr.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	d := root.Rules[0].(*ast.Declaration)
	if _, ok := d.Value.(*ast.DetachedRuleset); !ok {
		t.Errorf("value = %T, want *ast.DetachedRuleset", d.Value)
	}
	call, ok := root.Rules[1].(*ast.VariableCall)
	if !ok || call.Variable != "@detached" {
		t.Errorf("rule 1 = %#v, want call of @detached", root.Rules[1])
	}
}

func TestParser_ParseBytes_InterpolatedName(t *testing.T) {
	doc := `rules:
  - decl: "border-@{side}-width"
    value: 1px
`
	root, err := ParseBytes([]byte(doc), "name.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	d := root.Rules[0].(*ast.Declaration)
	if len(d.NameParts) != 3 {
		t.Fatalf("len(NameParts) = %d, want 3", len(d.NameParts))
	}
	if v, ok := d.NameParts[1].(*ast.Variable); !ok || v.Name != "@side" {
		t.Errorf("NameParts[1] = %#v, want variable @side", d.NameParts[1])
	}
}

func TestParser_ParseBytes_CSSImport(t *testing.T) {
	doc := `rules:
  - import: "reset.css"
  - import: "print.less"
    options: [css]
    media: print
`
	root, err := ParseBytes([]byte(doc), "imports.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	for i, r := range root.Rules {
		imp := r.(*ast.Import)
		if !imp.CSS {
			t.Errorf("import %d is not a CSS import", i)
		}
	}
	if root.Rules[1].(*ast.Import).Features == nil {
		t.Error("media features missing on import")
	}
}

func TestParser_ParseBytes_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantType lesserrors.ErrorType
		wantMsg  string
	}{
		{
			name:     "two kinds",
			doc:      "rules:\n  - decl: color\n    ruleset: .a\n",
			wantType: lesserrors.ErrorTypeParse,
			wantMsg:  "more than one kind",
		},
		{
			name:     "unknown field",
			doc:      "rules:\n  - decl: color\n    value: red\n    colour: blue\n",
			wantType: lesserrors.ErrorTypeParse,
			wantMsg:  "unknown field",
		},
		{
			name:     "no kind",
			doc:      "rules:\n  - value: red\n",
			wantType: lesserrors.ErrorTypeParse,
			wantMsg:  "none of the keys",
		},
		{
			name:     "bad value",
			doc:      "rules:\n  - decl: width\n    value: \"1px )\"\n",
			wantType: lesserrors.ErrorTypeSyntax,
			wantMsg:  "Unrecognised input",
		},
		{
			name:     "bad selector",
			doc:      "rules:\n  - ruleset: \".a when (@x) .b\"\n",
			wantType: lesserrors.ErrorTypeSyntax,
			wantMsg:  "CSS guard",
		},
		{
			name:     "bad import option",
			doc:      "rules:\n  - import: a.less\n    options: [sometimes]\n",
			wantType: lesserrors.ErrorTypeSyntax,
			wantMsg:  "unknown import option",
		},
		{
			name:     "bad merge",
			doc:      "rules:\n  - decl: transform\n    value: none\n    merge: \"*\"\n",
			wantType: lesserrors.ErrorTypeSyntax,
			wantMsg:  "merge must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.doc), "bad.yaml")
			if err == nil {
				t.Fatal("ParseBytes() succeeded, want error")
			}
			if !lesserrors.IsType(err, tt.wantType) {
				t.Errorf("error = %v, want type %s", err, tt.wantType)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParser_ParseBytes_ErrorLocation(t *testing.T) {
	doc := "rules:\n  - decl: color\n    value: red\n  - decl: width\n    value: \"1px )\"\n"
	_, err := ParseBytes([]byte(doc), "loc.yaml")
	if err == nil {
		t.Fatal("ParseBytes() succeeded, want error")
	}
	list, ok := err.(*lesserrors.ErrorList)
	if !ok {
		t.Fatalf("error = %T, want *errors.ErrorList", err)
	}
	loc := list.Errors[0].Location
	if loc.Line != 5 {
		t.Errorf("Line = %d, want 5", loc.Line)
	}
	if loc.File != "loc.yaml" {
		t.Errorf("File = %q, want loc.yaml", loc.File)
	}
	if list.Errors[0].Context == "" {
		t.Error("error has no source context")
	}
}

func TestParser_ParseBytes_CollectsErrors(t *testing.T) {
	doc := "rules:\n  - decl: a\n    value: \"1px )\"\n  - ruleset: \".a when (@x) .b\"\n"
	_, err := ParseBytes([]byte(doc), "many.yaml")
	list, ok := err.(*lesserrors.ErrorList)
	if !ok {
		t.Fatalf("error = %T, want *errors.ErrorList", err)
	}
	if list.Count() != 2 {
		t.Errorf("Count() = %d, want 2", list.Count())
	}
}

func TestParser_Parse_InvalidYAML(t *testing.T) {
	_, err := ParseBytes([]byte("rules: [\n  - decl"), "broken.yaml")
	if err == nil {
		t.Fatal("ParseBytes() succeeded on invalid YAML")
	}
	if !lesserrors.IsType(err, lesserrors.ErrorTypeParse) {
		t.Errorf("error = %v, want Parse type", err)
	}
}

func TestParser_Parse_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.yaml")
	if err := os.WriteFile(path, []byte(sampleDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	root, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if root.File.CurrentDirectory != dir {
		t.Errorf("CurrentDirectory = %q, want %q", root.File.CurrentDirectory, dir)
	}
}

func TestParser_Parse_MissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Parse() succeeded on a missing file")
	}
	if !lesserrors.IsType(err, lesserrors.ErrorTypeFile) {
		t.Errorf("error = %v, want File type", err)
	}
}

func TestParser_WithMaxFileSize(t *testing.T) {
	_, err := NewParser().WithMaxFileSize(10).ParseBytes([]byte(sampleDocument), "big.yaml")
	if err == nil {
		t.Fatal("ParseBytes() accepted a document over the size limit")
	}
}

func TestParser_WithMaxDepth(t *testing.T) {
	doc := `rules:
  - ruleset: .a
    rules:
      - ruleset: .b
        rules:
          - decl: color
            value: red
`
	if _, err := NewParser().WithMaxDepth(1).ParseBytes([]byte(doc), "deep.yaml"); err == nil {
		t.Error("ParseBytes() accepted rules nested past the limit")
	}
	if _, err := NewParser().WithMaxDepth(2).ParseBytes([]byte(doc), "deep.yaml"); err != nil {
		t.Errorf("ParseBytes() failed within the limit: %v", err)
	}
}
