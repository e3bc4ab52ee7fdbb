// Package imports loads the documents named by @import rules from the file
// system.
//
// FileManager implements eval.Importer. It searches the directory of the
// importing file and then the configured include paths, tries the configured
// extensions for paths without one, and keeps parsed documents in an LRU
// cache keyed by path, modification time and reference mode. Cached
// documents are templates: evaluation never modifies them, so one cached
// tree serves any number of renders.
//
// Preload walks the imports of a document ahead of evaluation and parses
// them in parallel:
//
//	fm, err := imports.NewFileManager(&imports.Config{
//	    IncludePaths: []string{"styles/vendor"},
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	if err := fm.Preload(ctx, root); err != nil {
//	    return err
//	}
//	out, err := eval.New(eval.Options{Importer: fm}).Eval(ctx, root)
package imports
