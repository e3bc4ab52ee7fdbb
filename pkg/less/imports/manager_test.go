package imports

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
	"mercator-hq/cascade/pkg/less/eval"
	"mercator-hq/cascade/pkg/less/parser"
	"mercator-hq/cascade/pkg/less/visitors"
)

const themeDoc = `rules:
  - var: primary
    value: red
  - ruleset: .theme
    rules:
      - decl: color
        value: "@primary"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

func newManager(t *testing.T, config *Config) *FileManager {
	t.Helper()
	fm, err := NewFileManager(config, nil)
	if err != nil {
		t.Fatalf("NewFileManager() failed: %v", err)
	}
	return fm
}

func TestFileManager_Resolve(t *testing.T) {
	dir := t.TempDir()
	vendor := t.TempDir()
	writeFile(t, dir, "theme.yaml", themeDoc)
	writeFile(t, dir, "sub/local.less", themeDoc)
	writeFile(t, vendor, "grid.yaml", themeDoc)

	fm := newManager(t, &Config{IncludePaths: []string{vendor}})

	tests := []struct {
		name string
		path string
		dir  string
		want string
	}{
		{"exact", "theme.yaml", dir, filepath.Join(dir, "theme.yaml")},
		{"extension added", "theme", dir, filepath.Join(dir, "theme.yaml")},
		{"relative", "sub/local", dir, filepath.Join(dir, "sub", "local.less")},
		{"include path", "grid", dir, filepath.Join(vendor, "grid.yaml")},
		{"absolute", filepath.Join(dir, "theme.yaml"), "", filepath.Join(dir, "theme.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := fm.Import(tt.path, tt.dir, ast.ImportOptions{})
			if err != nil {
				t.Fatalf("Import(%q) failed: %v", tt.path, err)
			}
			if file.Path != tt.want {
				t.Errorf("Import(%q).Path = %q, want %q", tt.path, file.Path, tt.want)
			}
			if file.Root == nil {
				t.Errorf("Import(%q).Root = nil, want parsed document", tt.path)
			}
		})
	}
}

func TestFileManager_Missing(t *testing.T) {
	fm := newManager(t, nil)
	_, err := fm.Import("nope", t.TempDir(), ast.ImportOptions{})
	if err == nil {
		t.Fatal("Import() error = nil, want error")
	}
	if !errors.Is(err, lesserrors.ErrImportMissing) {
		t.Errorf("Import() error = %v, want ErrImportMissing", err)
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Import() error type = %T, want *LoadError", err)
	}
	if len(loadErr.Searched) != 4 {
		t.Errorf("len(Searched) = %d, want 4", len(loadErr.Searched))
	}
}

func TestFileManager_Inline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "reset.css", "body { margin: 0 }")

	fm := newManager(t, nil)
	file, err := fm.Import("reset.css", dir, ast.ImportOptions{Inline: true})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if file.Contents != "body { margin: 0 }" {
		t.Errorf("Contents = %q, want %q", file.Contents, "body { margin: 0 }")
	}
	if file.Root != nil {
		t.Error("Root != nil for inline import")
	}
}

func TestFileManager_InvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "rules: \xff\xfe")

	fm := newManager(t, nil)
	_, err := fm.Import("bad.yaml", dir, ast.ImportOptions{})
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Import() error = %v, want *LoadError", err)
	}
	if !strings.Contains(loadErr.Message, "UTF-8") {
		t.Errorf("LoadError message = %q, want to contain 'UTF-8'", loadErr.Message)
	}
}

func TestFileManager_Cache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "theme.yaml", themeDoc)

	var loads []bool
	fm := newManager(t, &Config{OnLoad: func(_ string, cached bool, _ time.Duration) {
		loads = append(loads, cached)
	}})

	first, err := fm.Import("theme.yaml", dir, ast.ImportOptions{})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	second, err := fm.Import("theme.yaml", dir, ast.ImportOptions{})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if first.Root != second.Root {
		t.Error("second Import() parsed the file again, want cached document")
	}

	ref, err := fm.Import("theme.yaml", dir, ast.ImportOptions{Reference: true})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if ref.Root == first.Root {
		t.Error("reference Import() returned the non-reference document")
	}
	if !ref.Root.File.Reference {
		t.Error("reference Import() File.Reference = false, want true")
	}

	// A modified file is parsed again.
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes() failed: %v", err)
	}
	third, err := fm.Import("theme.yaml", dir, ast.ImportOptions{})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if third.Root == first.Root {
		t.Error("Import() after modification returned the stale document")
	}

	if got := fm.Stats(); got.Hits != 1 || got.Misses != 3 {
		t.Errorf("Stats() = %+v, want 1 hit and 3 misses", got)
	}
	want := []bool{false, true, false, false}
	if len(loads) != len(want) {
		t.Fatalf("OnLoad called %d times, want %d", len(loads), len(want))
	}
	for i := range want {
		if loads[i] != want[i] {
			t.Errorf("OnLoad call %d cached = %v, want %v", i, loads[i], want[i])
		}
	}
}

func TestFileManager_Preload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", `rules:
  - import: b.yaml
  - ruleset: .a
    rules:
      - decl: color
        value: red
`)
	writeFile(t, dir, "b.yaml", themeDoc)
	writeFile(t, dir, "c.yaml", themeDoc)
	entry := writeFile(t, dir, "main.yaml", `rules:
  - import: a.yaml
  - import: c.yaml
  - import: missing.yaml
    options: [optional]
`)

	root, err := parser.Parse(entry)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	fm := newManager(t, nil)
	if err := fm.Preload(context.Background(), root); err != nil {
		t.Fatalf("Preload() failed: %v", err)
	}
	if got := fm.Stats().Misses; got != 3 {
		t.Errorf("Stats().Misses after Preload() = %d, want 3", got)
	}

	for _, name := range []string{"a.yaml", "b.yaml", "c.yaml"} {
		if _, err := fm.Import(name, dir, ast.ImportOptions{}); err != nil {
			t.Fatalf("Import(%q) failed: %v", name, err)
		}
	}
	if got := fm.Stats(); got.Hits != 3 || got.Misses != 3 {
		t.Errorf("Stats() = %+v, want 3 hits and 3 misses", got)
	}
}

func TestFileManager_PreloadCanceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", themeDoc)
	entry := writeFile(t, dir, "main.yaml", "rules:\n  - import: a.yaml\n")

	root, err := parser.Parse(entry)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fm := newManager(t, nil)
	if err := fm.Preload(ctx, root); !errors.Is(err, context.Canceled) {
		t.Errorf("Preload() error = %v, want context.Canceled", err)
	}
}

func TestFileManager_Render(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "theme.yaml", themeDoc)
	entry := writeFile(t, dir, "main.yaml", `rules:
  - import: theme
    options: [reference]
  - import: theme
  - ruleset: .btn
    rules:
      - decl: background
        value: "@primary"
`)

	root, err := parser.Parse(entry)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	fm := newManager(t, nil)
	ev := eval.New(eval.Options{Importer: fm})
	out, err := ev.Eval(context.Background(), root)
	if err != nil {
		t.Fatalf("Eval() failed: %v", err)
	}
	ctx := &ast.GenContext{}
	out, err = visitors.Run(out, ctx, visitors.Options{NextExtendID: ev.NextExtendID})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	css, err := ast.ToCSS(out, ctx)
	if err != nil {
		t.Fatalf("ToCSS() failed: %v", err)
	}

	// The file is imported once; the first import is by reference.
	want := ".btn {\n  background: red;\n}\n"
	if css != want {
		t.Errorf("css = %q, want %q", css, want)
	}
}

func TestFileManager_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "theme.yaml", themeDoc)
	fm := newManager(t, nil)

	file, err := fm.Load(context.Background(), "theme", dir)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if file.ResolvedPath != path {
		t.Errorf("ResolvedPath = %q, want %q", file.ResolvedPath, path)
	}
	if string(file.Contents) != themeDoc {
		t.Errorf("Contents = %q, want the file text", file.Contents)
	}
	if file.LastModified.IsZero() {
		t.Error("LastModified is zero")
	}
	if got := fm.Stats(); got.Hits != 0 || got.Misses != 0 {
		t.Errorf("Stats() = %+v, want Load to bypass the cache", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fm.Load(ctx, "theme", dir); !errors.Is(err, context.Canceled) {
		t.Errorf("Load(canceled) error = %v, want context.Canceled", err)
	}
}

func TestFileManager_OnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "rules: [\n")
	writeFile(t, dir, "latin1.yaml", "rules: []\n# caf\xe9\n")

	var reasons []string
	fm := newManager(t, &Config{OnError: func(path, reason string) {
		reasons = append(reasons, reason)
	}})

	for _, path := range []string{"nope", "broken", "latin1"} {
		if _, err := fm.Import(path, dir, ast.ImportOptions{}); err == nil {
			t.Errorf("Import(%q) error = nil, want error", path)
		}
	}

	want := []string{ReasonMissing, ReasonParse, ReasonEncoding}
	if strings.Join(reasons, ",") != strings.Join(want, ",") {
		t.Errorf("reasons = %v, want %v", reasons, want)
	}
}

func TestFileManager_OnEvict(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", themeDoc)
	writeFile(t, dir, "b.yaml", themeDoc)

	var evicted []string
	fm := newManager(t, &Config{CacheSize: 1, OnEvict: func(path string) {
		evicted = append(evicted, path)
	}})

	for _, path := range []string{"a", "b"} {
		if _, err := fm.Import(path, dir, ast.ImportOptions{}); err != nil {
			t.Fatalf("Import(%q) failed: %v", path, err)
		}
	}

	if len(evicted) != 1 || evicted[0] != a {
		t.Errorf("evicted = %v, want [%s]", evicted, a)
	}
	if got := fm.Stats().Size; got != 1 {
		t.Errorf("Stats().Size = %d, want 1", got)
	}
}
