package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}

	output, err := formatter.Format("3 files compiled")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(output) != "3 files compiled\n" {
		t.Errorf("Format() = %q, want %q", string(output), "3 files compiled\n")
	}

	buf := &bytes.Buffer{}
	if err := formatter.FormatTo(buf, "done"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "done\n" {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), "done\n")
	}
}

func TestJSONFormatter(t *testing.T) {
	type report struct {
		File  string `json:"file"`
		Bytes int    `json:"bytes"`
	}

	for _, indent := range []bool{false, true} {
		t.Run(fmt.Sprintf("indent=%v", indent), func(t *testing.T) {
			formatter := &JSONFormatter{Indent: indent}
			buf := &bytes.Buffer{}
			if err := formatter.FormatTo(buf, report{File: "site.yaml", Bytes: 42}); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}

			var got report
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("FormatTo() produced invalid JSON: %v", err)
			}
			if got.File != "site.yaml" || got.Bytes != 42 {
				t.Errorf("FormatTo() = %+v, want file site.yaml bytes 42", got)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{format: FormatText, want: "*cli.TextFormatter"},
		{format: FormatJSON, want: "*cli.JSONFormatter"},
		{format: "unknown", want: "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got := fmt.Sprintf("%T", NewFormatter(tt.format))
			if got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "json", want: FormatJSON},
		{in: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat() = %q, want %q", got, tt.want)
			}
			if tt.wantErr && ExitCode(err) != ExitUsage {
				t.Errorf("ExitCode(err) = %d, want %d", ExitCode(err), ExitUsage)
			}
		})
	}
}
