// Package functions implements the function registry and the builtin
// functions available to stylesheets.
//
// A Registry maps lowercase names to callables. Registries form a chain:
// Inherit returns a child that falls back to its parent, so scoped functions
// take precedence without touching the shared table.
//
// Callables receive evaluated arguments, unless registered with AddRaw, and
// a Call describing where the call happened. They return a node, a
// primitive (wrapped as literal text), a bool (an empty value), or nil to
// decline, in which case the call is emitted as written.
package functions
