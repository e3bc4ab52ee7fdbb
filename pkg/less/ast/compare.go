package ast

import "strings"

type comparer interface {
	Compare(other Node) (int, bool)
}

// Compare orders two evaluated values. The boolean is false when the values
// are not comparable. Only equality is defined for most kinds; numbers and
// unescaped strings are ordered.
func Compare(a, b Node) (int, bool) {
	if ca, ok := a.(comparer); ok && b.Kind() != KindQuoted && b.Kind() != KindAnonymous {
		return ca.Compare(b)
	}
	if cb, ok := b.(comparer); ok {
		n, ok := cb.Compare(a)
		return -n, ok
	}
	if a.Kind() != b.Kind() {
		return 0, false
	}
	switch ta := a.(type) {
	case *Keyword:
		return 0, ta.Value == b.(*Keyword).Value
	case *UnicodeDescriptor:
		return 0, ta.Value == b.(*UnicodeDescriptor).Value
	case *Expression:
		return compareLists(ta.Value, b.(*Expression).Value)
	case *Value:
		return compareLists(ta.Value, b.(*Value).Value)
	}
	return 0, a == b
}

func compareLists(a, b []Node) (int, bool) {
	if len(a) != len(b) {
		return 0, false
	}
	for i := range a {
		if n, ok := Compare(a[i], b[i]); !ok || n != 0 {
			return 0, false
		}
	}
	return 0, true
}

// Compare orders unescaped strings and otherwise tests rendered equality.
func (q *Quoted) Compare(other Node) (int, bool) {
	if o, ok := other.(*Quoted); ok && !q.Escaped && !o.Escaped {
		return strings.Compare(q.Value, o.Value), true
	}
	if CSS(q) == CSS(other) {
		return 0, true
	}
	return 0, false
}

// Compare tests rendered equality.
func (a *Anonymous) Compare(other Node) (int, bool) {
	if CSS(a) == CSS(other) {
		return 0, true
	}
	return 0, false
}
