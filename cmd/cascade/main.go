// Cascade compiles stylesheet templates written as YAML trees into CSS.
//
// The stylesheet language is a superset of CSS with variables, nesting,
// mixins with guards, operations, extends, imports and builtin functions.
//
// Usage:
//
//	# Compile one file to stdout
//	cascade compile site.yaml
//
//	# Compile with a variable override and write the result
//	cascade compile site.yaml --var primary=#336699 -o site.css
//
//	# Compile many files in parallel
//	cascade build styles/ --out-dir dist/
//
//	# Recompile when the file or its imports change
//	cascade watch site.yaml -o site.css
//
//	# Compare the output with a committed file
//	cascade check site.yaml --expected site.css
//
//	# Run the HTTP compile service
//	cascade serve --config cascade.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
