// Package ast defines the node model of the stylesheet language.
//
// The tree produced by the parser is a template: evaluation never mutates it
// and instead builds a new tree for every render, so one parsed document can
// be rendered many times, concurrently and with different variables. Each node
// struct embeds Meta, which carries the source position and the visibility
// state used by reference imports.
//
// Nodes know how to traverse their children (Accept) and how to print
// themselves (GenCSS). Evaluation lives in package eval and the passes run
// over the evaluated tree live in package visitors.
//
// Example usage:
//
//	v := ast.NewVisitor(false).On(ast.KindDeclaration, func(n ast.Node, _ *ast.VisitArgs) ast.Node {
//		fmt.Println(n.(*ast.Declaration).Name)
//		return n
//	})
//	v.Visit(root)
package ast
