package compiler

import (
	"sort"
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
	"mercator-hq/cascade/pkg/less/parser"
)

// parseVariables turns name/value pairs into variable declarations, sorted by
// name so renders are reproducible. label names the pseudo file the values
// are attributed to in error positions.
func parseVariables(vars map[string]string, label string) ([]*ast.Declaration, error) {
	if len(vars) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	decls := make([]*ast.Declaration, 0, len(names))
	for _, name := range names {
		text := strings.TrimSpace(vars[name])
		varName := name
		if !strings.HasPrefix(varName, "@") {
			varName = "@" + varName
		}

		file := ast.NewFileInfo(label, []byte(text))
		value, err := parser.ParseValue(text, 0, file)
		if err != nil {
			return nil, &VariableError{Name: varName, Value: text, Cause: err}
		}
		decls = append(decls, ast.NewDeclaration(varName, value, "", "", 0, file))
	}
	return decls, nil
}

// mergeVars overlays extra on base without modifying either. Names are
// compared without their @ prefix.
func mergeVars(base, extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[strings.TrimPrefix(k, "@")] = v
	}
	for k, v := range extra {
		out[strings.TrimPrefix(k, "@")] = v
	}
	return out
}
