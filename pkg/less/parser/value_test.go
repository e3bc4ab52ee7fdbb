package parser

import (
	"testing"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// singleExpr parses text and returns the entities of its only expression.
func singleExpr(t *testing.T, text string) []ast.Node {
	t.Helper()
	v, err := ParseValue(text, 0, nil)
	if err != nil {
		t.Fatalf("ParseValue(%q) failed: %v", text, err)
	}
	list, ok := v.(*ast.Value)
	if !ok {
		t.Fatalf("ParseValue(%q) = %T, want *ast.Value", text, v)
	}
	if len(list.Value) != 1 {
		t.Fatalf("ParseValue(%q) has %d expressions, want 1", text, len(list.Value))
	}
	expr, ok := list.Value[0].(*ast.Expression)
	if !ok {
		t.Fatalf("ParseValue(%q) item = %T, want *ast.Expression", text, list.Value[0])
	}
	return expr.Value
}

func TestParseValue_Entities(t *testing.T) {
	nodes := singleExpr(t, "1px solid #fff")
	if len(nodes) != 3 {
		t.Fatalf("len(entities) = %d, want 3", len(nodes))
	}
	d, ok := nodes[0].(*ast.Dimension)
	if !ok {
		t.Fatalf("entity 0 = %T, want *ast.Dimension", nodes[0])
	}
	if d.Value != 1 || d.Unit.String() != "px" {
		t.Errorf("dimension = %v%s, want 1px", d.Value, d.Unit.String())
	}
	if k, ok := nodes[1].(*ast.Keyword); !ok || k.Value != "solid" {
		t.Errorf("entity 1 = %#v, want keyword solid", nodes[1])
	}
	if _, ok := nodes[2].(*ast.Color); !ok {
		t.Errorf("entity 2 = %T, want *ast.Color", nodes[2])
	}
}

func TestParseValue_CommaList(t *testing.T) {
	v, err := ParseValue("10px, 20px 30px", 0, nil)
	if err != nil {
		t.Fatalf("ParseValue() failed: %v", err)
	}
	list := v.(*ast.Value)
	if len(list.Value) != 2 {
		t.Fatalf("len(Value) = %d, want 2", len(list.Value))
	}
	if got := len(list.Value[1].(*ast.Expression).Value); got != 2 {
		t.Errorf("second expression has %d entities, want 2", got)
	}
}

func TestParseValue_Operations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantOp   string
		entities int
	}{
		{"addition", "@a + 2", "+", 1},
		{"unspaced subtraction", "4px-2px", "-", 1},
		{"spaced subtraction", "4px - 2px", "-", 1},
		{"division", "12px/1.5", "/", 1},
		{"dot division", "12px ./ 2", "./", 1},
		{"negative operand", "1 -2", "", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := singleExpr(t, tt.input)
			if len(nodes) != tt.entities {
				t.Fatalf("len(entities) = %d, want %d", len(nodes), tt.entities)
			}
			if tt.wantOp == "" {
				if _, ok := nodes[0].(*ast.Operation); ok {
					t.Errorf("%q parsed as an operation", tt.input)
				}
				return
			}
			op, ok := nodes[0].(*ast.Operation)
			if !ok {
				t.Fatalf("entity = %T, want *ast.Operation", nodes[0])
			}
			if op.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", op.Op, tt.wantOp)
			}
		})
	}
}

func TestParseValue_Precedence(t *testing.T) {
	nodes := singleExpr(t, "1 + 2 * 3")
	op, ok := nodes[0].(*ast.Operation)
	if !ok || op.Op != "+" {
		t.Fatalf("root = %#v, want + operation", nodes[0])
	}
	right, ok := op.Operands[1].(*ast.Operation)
	if !ok || right.Op != "*" {
		t.Errorf("right operand = %#v, want * operation", op.Operands[1])
	}
}

func TestParseValue_ParenthesizedOperand(t *testing.T) {
	nodes := singleExpr(t, "(1 + 2) * 3")
	op, ok := nodes[0].(*ast.Operation)
	if !ok || op.Op != "*" {
		t.Fatalf("root = %#v, want * operation", nodes[0])
	}
	left, ok := op.Operands[0].(*ast.Expression)
	if !ok {
		t.Fatalf("left operand = %T, want *ast.Expression", op.Operands[0])
	}
	if !left.Parens || !left.ParensInOp {
		t.Errorf("Parens = %v, ParensInOp = %v, want both true", left.Parens, left.ParensInOp)
	}
}

func TestParseValue_KeywordSlash(t *testing.T) {
	nodes := singleExpr(t, "a / b")
	if len(nodes) != 3 {
		t.Fatalf("len(entities) = %d, want 3", len(nodes))
	}
	if a, ok := nodes[1].(*ast.Anonymous); !ok || a.Value != "/" {
		t.Errorf("separator = %#v, want anonymous /", nodes[1])
	}
}

func TestParseValue_Nodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, n ast.Node)
	}{
		{"negated variable", "-@x", func(t *testing.T, n ast.Node) {
			if _, ok := n.(*ast.Negative); !ok {
				t.Errorf("got %T, want *ast.Negative", n)
			}
		}},
		{"escaped string", `~"raw"`, func(t *testing.T, n ast.Node) {
			q, ok := n.(*ast.Quoted)
			if !ok || !q.Escaped || q.Value != "raw" {
				t.Errorf("got %#v, want escaped quoted raw", n)
			}
		}},
		{"url", "url(img/a.png)", func(t *testing.T, n ast.Node) {
			u, ok := n.(*ast.URL)
			if !ok {
				t.Fatalf("got %T, want *ast.URL", n)
			}
			if a, ok := u.Value.(*ast.Anonymous); !ok || a.Value != "img/a.png" {
				t.Errorf("url value = %#v, want img/a.png", u.Value)
			}
		}},
		{"call", "darken(@c, 10%)", func(t *testing.T, n ast.Node) {
			c, ok := n.(*ast.Call)
			if !ok || c.Name != "darken" || len(c.Args) != 2 {
				t.Errorf("got %#v, want darken with 2 args", n)
			}
		}},
		{"if condition", "if((@a > 1), 1px, 2px)", func(t *testing.T, n ast.Node) {
			c, ok := n.(*ast.Call)
			if !ok || len(c.Args) != 3 {
				t.Fatalf("got %#v, want if with 3 args", n)
			}
			if cond, ok := c.Args[0].(*ast.Condition); !ok || cond.Op != ">" {
				t.Errorf("first arg = %#v, want > condition", c.Args[0])
			}
		}},
		{"assignment", "alpha(opacity=50)", func(t *testing.T, n ast.Node) {
			c := n.(*ast.Call)
			if a, ok := c.Args[0].(*ast.Assignment); !ok || a.Key != "opacity" {
				t.Errorf("arg = %#v, want opacity assignment", c.Args[0])
			}
		}},
		{"variable lookup", "@config[@width]", func(t *testing.T, n ast.Node) {
			ns, ok := n.(*ast.NamespaceValue)
			if !ok || len(ns.Lookups) != 1 || ns.Lookups[0] != "@width" {
				t.Errorf("got %#v, want lookup @width", n)
			}
		}},
		{"mixin lookup", ".theme()[]", func(t *testing.T, n ast.Node) {
			ns, ok := n.(*ast.NamespaceValue)
			if !ok {
				t.Fatalf("got %T, want *ast.NamespaceValue", n)
			}
			if _, ok := ns.Value.(*ast.MixinCall); !ok {
				t.Errorf("lookup subject = %T, want *ast.MixinCall", ns.Value)
			}
			if len(ns.Lookups) != 1 || ns.Lookups[0] != "" {
				t.Errorf("Lookups = %q, want one empty lookup", ns.Lookups)
			}
		}},
		{"property", "$width", func(t *testing.T, n ast.Node) {
			if p, ok := n.(*ast.Property); !ok || p.Name != "$width" {
				t.Errorf("got %#v, want property $width", n)
			}
		}},
		{"color keyword", "red", func(t *testing.T, n ast.Node) {
			if _, ok := n.(*ast.Color); !ok {
				t.Errorf("got %T, want *ast.Color", n)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := singleExpr(t, tt.input)
			if len(nodes) != 1 {
				t.Fatalf("len(entities) = %d, want 1", len(nodes))
			}
			tt.check(t, nodes[0])
		})
	}
}

func TestParseValue_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"abc`},
		{"stray paren", "1px )"},
		{"unclosed call", "darken(@c, 10%"},
		{"empty", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValue(tt.input, 0, nil)
			if err == nil {
				t.Fatalf("ParseValue(%q) succeeded, want error", tt.input)
			}
			if !lesserrors.IsType(err, lesserrors.ErrorTypeSyntax) {
				t.Errorf("error type = %v, want Syntax", err)
			}
		})
	}
}

func TestSplitImportant(t *testing.T) {
	tests := []struct {
		input     string
		wantValue string
		wantFlag  string
	}{
		{"red !important", "red", "!important"},
		{"red ! important", "red", "!important"},
		{"red", "red", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			value, flag := splitImportant(tt.input)
			if value != tt.wantValue || flag != tt.wantFlag {
				t.Errorf("splitImportant(%q) = %q, %q, want %q, %q", tt.input, value, flag, tt.wantValue, tt.wantFlag)
			}
		})
	}
}

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition("(@a > 1) and (@b), not (@c =< 2)", 0, nil)
	if err != nil {
		t.Fatalf("ParseCondition() failed: %v", err)
	}
	or, ok := c.(*ast.Condition)
	if !ok || or.Op != "or" {
		t.Fatalf("root = %#v, want or", c)
	}
	and, ok := or.LValue.(*ast.Condition)
	if !ok || and.Op != "and" {
		t.Errorf("left = %#v, want and", or.LValue)
	}
	right, ok := or.RValue.(*ast.Condition)
	if !ok {
		t.Fatalf("right = %T, want *ast.Condition", or.RValue)
	}
	if right.Op != "<=" || !right.Negate {
		t.Errorf("right = %s negate=%v, want <= negated", right.Op, right.Negate)
	}
}

func TestParseCondition_Bare(t *testing.T) {
	c, err := ParseCondition("(@enabled)", 0, nil)
	if err != nil {
		t.Fatalf("ParseCondition() failed: %v", err)
	}
	cond := c.(*ast.Condition)
	if cond.Op != "=" {
		t.Errorf("Op = %q, want =", cond.Op)
	}
	if k, ok := cond.RValue.(*ast.Keyword); !ok || k.Value != "true" {
		t.Errorf("RValue = %#v, want keyword true", cond.RValue)
	}
}

func TestParseCondition_NeedsParens(t *testing.T) {
	if _, err := ParseCondition("@a > 1", 0, nil); err == nil {
		t.Error("ParseCondition() accepted a guard without parentheses")
	}
}
