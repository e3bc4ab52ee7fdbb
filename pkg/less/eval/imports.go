package eval

import (
	"fmt"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// Importer resolves @import rules during evaluation. Implementations should
// return an error wrapping errors.ErrImportMissing for files that do not
// exist, so optional imports can be skipped.
type Importer interface {
	Import(path, currentDir string, opts ast.ImportOptions) (*ImportedFile, error)
}

// ImportedFile is a resolved import.
type ImportedFile struct {
	// Path is the resolved location, used to import each file once.
	Path string
	// Root is the parsed document. It is nil for inline imports.
	Root *ast.Ruleset
	// Contents is the raw text of inline imports.
	Contents string
}

// evalImports replaces the imports of rs with the rules they bring in.
func (c *Context) evalImports(rs *ast.Ruleset) error {
	for i := 0; i < len(rs.Rules); i++ {
		imp, ok := rs.Rules[i].(*ast.Import)
		if !ok {
			continue
		}
		rules, err := c.evalImport(imp)
		if err != nil {
			return err
		}
		rs.Rules = splice(rs.Rules, i, rules)
		i += len(rules) - 1
	}
	return nil
}

func (c *Context) evalImport(imp *ast.Import) ([]ast.RuleBodyItem, error) {
	var features ast.Node
	if imp.Features != nil {
		f, err := c.eval(imp.Features)
		if err != nil {
			return nil, err
		}
		features = f
	}
	path, err := c.eval(imp.Path)
	if err != nil {
		return nil, err
	}

	if imp.CSS && !imp.Options.Inline {
		out := &ast.Import{Meta: imp.Derive(), Path: path, Features: features, Options: imp.Options, CSS: true}
		return []ast.RuleBodyItem{out}, nil
	}

	target := importTarget(path)
	if c.sess.opts.Importer == nil {
		return nil, imp.Errorf(lesserrors.ErrorTypeFile, "cannot import %q: no importer configured", target)
	}
	dir := ""
	if imp.File != nil {
		dir = imp.File.CurrentDirectory
	}
	file, err := c.sess.opts.Importer.Import(target, dir, imp.Options)
	if err != nil {
		if imp.Options.Optional && lesserrors.Is(err, lesserrors.ErrImportMissing) {
			c.sess.logger.Info("skipping missing optional import", "path", target, "file", imp.Filename())
			return nil, nil
		}
		if !lesserrors.IsType(err, lesserrors.ErrorTypeFile) {
			err = lesserrors.Wrap(lesserrors.ErrorTypeFile, err, fmt.Sprintf("cannot import %q: %v", target, err))
		}
		return nil, imp.Stamp(err)
	}

	if !imp.Options.Multiple {
		if c.sess.imported[file.Path] {
			return nil, nil
		}
		c.sess.imported[file.Path] = true
	}
	c.sess.stats.Imports++

	var rules []ast.RuleBodyItem
	switch {
	case imp.Options.Inline:
		anon := ast.NewAnonymous(file.Contents, imp.Index, imp.File)
		anon.RulesetLike = true
		rules = []ast.RuleBodyItem{anon}
	case file.Root != nil:
		tmp := ast.NewRuleset(nil, append([]ast.RuleBodyItem(nil), file.Root.Rules...), file.Root.Index, file.Root.File)
		if err := c.evalImports(tmp); err != nil {
			return nil, err
		}
		rules = tmp.Rules
	}

	if features != nil {
		rules = []ast.RuleBodyItem{ast.NewNestedAtRule(ast.FamilyMedia, features, rules, imp.Index, imp.File)}
	}
	if imp.Options.Reference || imp.BlocksVisibility() {
		for i, r := range rules {
			rules[i] = withVisibilityBlock(r)
		}
	}
	return rules, nil
}

// importTarget returns the path an import names.
func importTarget(path ast.Node) string {
	switch p := path.(type) {
	case *ast.URL:
		return importTarget(p.Value)
	case *ast.Quoted:
		return p.Value
	case *ast.Anonymous:
		return p.Value
	}
	return ast.CSS(path)
}

// withVisibilityBlock returns a shallow copy of r hidden behind one more
// reference context. Imported templates are shared, so they are never marked
// in place.
func withVisibilityBlock(r ast.RuleBodyItem) ast.RuleBodyItem {
	var out ast.RuleBodyItem
	switch t := r.(type) {
	case *ast.Ruleset:
		cp := *t
		out = &cp
	case *ast.Declaration:
		cp := *t
		out = &cp
	case *ast.MixinDefinition:
		cp := *t
		out = &cp
	case *ast.MixinCall:
		cp := *t
		out = &cp
	case *ast.VariableCall:
		cp := *t
		out = &cp
	case *ast.NestedAtRule:
		cp := *t
		out = &cp
	case *ast.AtRule:
		cp := *t
		out = &cp
	case *ast.Import:
		cp := *t
		out = &cp
	case *ast.Extend:
		cp := *t
		out = &cp
	case *ast.Comment:
		cp := *t
		out = &cp
	case *ast.Anonymous:
		cp := *t
		out = &cp
	default:
		return r
	}
	out.Metadata().AddVisibilityBlock()
	return out
}
