package visitors

import (
	"log/slog"

	"mercator-hq/cascade/pkg/less/ast"
)

// Options configures Run.
type Options struct {
	// NextExtendID allocates extend ids. A private counter is used when nil.
	NextExtendID func() int

	// Logger receives extend warnings. slog.Default() is used when nil.
	Logger *slog.Logger
}

// Run applies the passes that turn an evaluated tree into a printable one:
// selector joining, visibility marking, extends and output preparation.
// ctx carries the formatting flags the output will be printed with.
func Run(root *ast.Ruleset, ctx *ast.GenContext, opts Options) (*ast.Ruleset, error) {
	nextID := opts.NextExtendID
	if nextID == nil {
		id := 0
		nextID = func() int {
			id++
			return id
		}
	}

	JoinSelectors(root)
	SetTreeVisibility(root, true)
	if err := ProcessExtends(root, nextID, opts.Logger); err != nil {
		return nil, err
	}
	return PrepareOutput(root, ctx)
}
