// Package watch recompiles stylesheets when their sources change.
//
// A Watcher tracks a set of files through fsnotify and reports changes after
// a debounce interval. A Rebuilder drives a Watcher for one entry file: it
// compiles the entry, watches the entry and every file it imported, and
// compiles again on each change.
//
//	w, err := watch.New(watch.FromConfig(cfg.Watch), logger)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	r := watch.NewRebuilder(comp, w, "site.yaml", func(ev watch.Event) {
//	    if ev.Err != nil {
//	        fmt.Fprintln(os.Stderr, ev.Err)
//	        return
//	    }
//	    os.WriteFile("site.css", []byte(ev.Result.CSS), 0o644)
//	}, logger)
//	return r.Run(ctx)
package watch
