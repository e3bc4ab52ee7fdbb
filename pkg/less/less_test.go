package less

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const themeDoc = `rules:
  - var: background
    value: white
  - ruleset: body
    rules:
      - decl: background
        value: "@background"
`

func TestCompile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.yaml")
	if err := os.WriteFile(path, []byte(themeDoc), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	css, err := Compile(path)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if want := "body {\n  background: white;\n}\n"; css != want {
		t.Errorf("Compile() = %q, want %q", css, want)
	}

	if _, err := Compile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Compile(missing) error = nil, want error")
	}
}

func TestParseAndRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.yaml")
	if err := os.WriteFile(path, []byte(themeDoc), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	tree, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{name: "defaults", want: "body {\n  background: white;\n}\n"},
		{name: "dark", vars: map[string]string{"background": "#111"}, want: "body {\n  background: #111;\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			css, err := Render(context.Background(), tree, tt.vars)
			if err != nil {
				t.Fatalf("Render() failed: %v", err)
			}
			if css != tt.want {
				t.Errorf("Render() = %q, want %q", css, tt.want)
			}
		})
	}
}

func TestCompileBytes(t *testing.T) {
	css, err := CompileBytes([]byte(themeDoc), "inline.yaml")
	if err != nil {
		t.Fatalf("CompileBytes() failed: %v", err)
	}
	if want := "body {\n  background: white;\n}\n"; css != want {
		t.Errorf("CompileBytes() = %q, want %q", css, want)
	}
}
