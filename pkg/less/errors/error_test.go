package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestLocate(t *testing.T) {
	src := []byte("a\nbc\nd")

	tests := []struct {
		name     string
		index    int
		wantLine int
		wantCol  int
	}{
		{"first byte", 0, 1, 1},
		{"second line", 3, 2, 2},
		{"last line", 5, 3, 1},
		{"past end", 99, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Locate(Location{File: "a.yaml", Index: tt.index}, src)
			if got.Line != tt.wantLine || got.Column != tt.wantCol {
				t.Errorf("Locate(%d) = %d:%d, want %d:%d", tt.index, got.Line, got.Column, tt.wantLine, tt.wantCol)
			}
		})
	}

	if got := Locate(Location{Index: -1}, src); got.Line != 0 {
		t.Errorf("Locate(-1).Line = %d, want 0", got.Line)
	}
}

func TestWithContext(t *testing.T) {
	err := New(ErrorTypeName, "variable @x is undefined").At("a.yaml", 3)
	WithContext(err, []byte("a\nbc\nd"), 1)

	if err.Location.String() != "a.yaml:2:2" {
		t.Errorf("Location = %q, want %q", err.Location.String(), "a.yaml:2:2")
	}
	for _, want := range []string{"   1 | a", "-> 2 | bc", "  ^", "   3 | d"} {
		if !strings.Contains(err.Context, want) {
			t.Errorf("Context = %q, want it to contain %q", err.Context, want)
		}
	}

	msg := err.Error()
	if !strings.HasPrefix(msg, "[Name] variable @x is undefined\n  --> a.yaml:2:2") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestError_At(t *testing.T) {
	err := New(ErrorTypeRuntime, "boom").At("inner.yaml", 4)
	err.At("outer.yaml", 10)

	if err.Location.File != "inner.yaml" || err.Location.Index != 4 {
		t.Errorf("At() overwrote position: %v", err.Location)
	}
}

func TestStamp(t *testing.T) {
	if Stamp(nil, "a.yaml", 1) != nil {
		t.Error("Stamp(nil) != nil")
	}

	cause := stderrors.New("disk on fire")
	err := Stamp(cause, "a.yaml", 7)
	if !IsType(err, ErrorTypeRuntime) {
		t.Errorf("Stamp(plain) type = %v, want Runtime", err)
	}
	if !Is(err, cause) {
		t.Error("Stamp(plain) lost the cause")
	}

	typed := Newf(ErrorTypeArgument, "bad %s", "arg")
	if got := Stamp(typed, "b.yaml", 2); got != error(typed) {
		t.Error("Stamp(typed) returned a different error")
	}
	if typed.Location.File != "b.yaml" || typed.Location.Index != 2 {
		t.Errorf("Stamp(typed) location = %v", typed.Location)
	}
}

func TestWrap_Sentinel(t *testing.T) {
	err := Wrap(ErrorTypeRuntime, ErrMaxDepth, "mixin .loop called too deeply")
	if !Is(err, ErrMaxDepth) {
		t.Error("errors.Is(err, ErrMaxDepth) = false")
	}
	var ce *Error
	if !As(err, &ce) || ce.Type != ErrorTypeRuntime {
		t.Errorf("As() = %v", ce)
	}
}

func TestSuggestName(t *testing.T) {
	known := []string{"@color", "@size", "@border-width"}

	tests := []struct {
		unknown string
		want    string
	}{
		{"@colr", "Did you mean '@color'?"},
		{"@border-wdth", "Did you mean '@border-width'?"},
		{"@zz", ""},
		{"@color", ""},
	}

	for _, tt := range tests {
		t.Run(tt.unknown, func(t *testing.T) {
			if got := SuggestName(tt.unknown, known); got != tt.want {
				t.Errorf("SuggestName(%q) = %q, want %q", tt.unknown, got, tt.want)
			}
		})
	}

	if got := SuggestName("@x", nil); got != "" {
		t.Errorf("SuggestName(nil) = %q, want empty", got)
	}
}

func TestErrorList(t *testing.T) {
	list := NewErrorList()
	if list.ToError() != nil {
		t.Error("ToError() on empty list != nil")
	}

	list.AddError(ErrorTypeParse, "unknown item kind", Location{File: "a.yaml", Index: -1, Line: 3, Column: 2})
	list.Add(Wrap(ErrorTypeParse, ErrNoRoot, "missing rules"))

	if list.Count() != 2 {
		t.Errorf("Count() = %d, want 2", list.Count())
	}
	err := list.ToError()
	if !strings.HasPrefix(err.Error(), "Found 2 error(s)") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !Is(err, ErrNoRoot) {
		t.Error("errors.Is(list, ErrNoRoot) = false")
	}
}
