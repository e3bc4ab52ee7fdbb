package eval

import (
	"mercator-hq/cascade/pkg/less/ast"
)

func (c *Context) evalSelector(s *ast.Selector) (*ast.Selector, error) {
	var cond *bool
	if s.Condition != nil {
		ok, err := c.evalCondition(s.Condition)
		if err != nil {
			return nil, s.Stamp(err)
		}
		cond = &ok
	}

	elements := make([]*ast.Element, len(s.Elements))
	for i, e := range s.Elements {
		evald, err := c.evalElement(e)
		if err != nil {
			return nil, err
		}
		elements[i] = evald
	}

	var extends []*ast.Extend
	if len(s.ExtendList) > 0 {
		extends = make([]*ast.Extend, len(s.ExtendList))
		for i, e := range s.ExtendList {
			evald, err := c.evalExtend(e)
			if err != nil {
				return nil, err
			}
			extends[i] = evald
		}
	}
	return s.CreateDerived(elements, extends, cond), nil
}

func (c *Context) evalElement(e *ast.Element) (*ast.Element, error) {
	out := &ast.Element{
		Meta:       e.Derive(),
		Combinator: e.Combinator,
		Text:       e.Text,
		IsVariable: e.IsVariable,
	}
	if e.Value != nil {
		v, err := c.eval(e.Value)
		if err != nil {
			return nil, e.Stamp(err)
		}
		out.Value = v
	}
	return out, nil
}

// evalExtend evaluates the target selector and gives the extend a fresh id.
func (c *Context) evalExtend(e *ast.Extend) (*ast.Extend, error) {
	sel, err := c.evalSelector(e.Selector)
	if err != nil {
		return nil, err
	}
	out := ast.NewExtend(sel, e.Option, c.sess.nextExtendID(), e.Index, e.File)
	out.CopyVisibility(&e.Meta)
	return out, nil
}
