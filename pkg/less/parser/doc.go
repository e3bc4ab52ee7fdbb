// Package parser loads stylesheet templates from YAML tree documents.
//
// A document is a mapping with a rules list (or the bare list). Every item
// carries one key naming its kind; the text of selectors, values, guards and
// mixin signatures uses the usual inline stylesheet syntax and is parsed here
// with positions pointing back into the document.
//
// # Document Format
//
//	rules:
//	  - var: primary
//	    value: "#336699"
//	  - mixin: ".bordered(@width: 2px; @style: solid)"
//	    when: (@width > 0)
//	    rules:
//	      - decl: border
//	        value: "@width @style @primary"
//	  - ruleset: ".card, .panel"
//	    rules:
//	      - call: .bordered(4px)
//	      - decl: padding
//	        value: "@gutter * 2"
//	      - media: "(min-width: 768px)"
//	        rules:
//	          - decl: padding
//	            value: "@gutter"
//	  - import: "theme.less"
//	    options: [reference]
//
// The kinds are decl, var, ruleset, mixin, call, detached-call, media,
// container, layer, scope, starting-style, at-rule, import, extend and
// comment. A var with rules instead of a value holds a detached ruleset.
//
// Text starting with "#", "@", "&" or "*", or containing ": ", must be
// quoted, since those mean something to YAML.
//
// # Errors
//
// Structural problems are reported as Parse errors and malformed inline
// syntax as Syntax errors. A document with several problems reports all of
// them in one errors.ErrorList, each with the surrounding source lines.
package parser
