package health

import (
	"context"
	"fmt"
	"os"
)

// IncludePathsCheck reports whether every import include path is a readable
// directory.
func IncludePathsCheck(paths []string) CheckFunc {
	return func(ctx context.Context) error {
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("include path %s: %w", path, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("include path %s is not a directory", path)
			}
		}
		return nil
	}
}

// CompileCheck reports whether a sample compilation succeeds. compile should
// render a small in-memory stylesheet so that it exercises the evaluator
// without touching user files.
func CompileCheck(compile func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		if err := compile(ctx); err != nil {
			return fmt.Errorf("sample compile failed: %w", err)
		}
		return nil
	}
}
