package logging

import (
	"context"
	"testing"
)

func TestContextValues(t *testing.T) {
	tests := []struct {
		name string
		set  func(context.Context, string) context.Context
		get  func(context.Context) string
	}{
		{"request id", WithRequestID, GetRequestID},
		{"render id", WithRenderID, GetRenderID},
		{"file", WithFile, GetFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.get(context.Background()); got != "" {
				t.Errorf("get(empty) = %q, want empty", got)
			}
			ctx := tt.set(context.Background(), "value")
			if got := tt.get(ctx); got != "value" {
				t.Errorf("get() = %q, want %q", got, "value")
			}
		})
	}
}

func TestExtractContextFields(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req")
	ctx = WithRenderID(ctx, "render")

	fields := extractContextFields(ctx)
	want := []any{"request_id", "req", "render_id", "render"}
	if len(fields) != len(want) {
		t.Fatalf("extractContextFields() = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %v, want %v", i, fields[i], want[i])
		}
	}
}
