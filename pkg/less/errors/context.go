package errors

import (
	"bytes"
	"fmt"
	"strings"
)

// Locate fills in Line and Column from the byte index using the source text.
func Locate(loc Location, src []byte) Location {
	if loc.Index < 0 || src == nil {
		return loc
	}
	idx := loc.Index
	if idx > len(src) {
		idx = len(src)
	}
	loc.Line = bytes.Count(src[:idx], []byte("\n")) + 1
	lineStart := bytes.LastIndexByte(src[:idx], '\n') + 1
	loc.Column = idx - lineStart + 1
	return loc
}

// ExtractContext returns the lines surrounding the location, with the error line
// marked and a caret under the error column.
func ExtractContext(location Location, src []byte, contextLines int) string {
	if location.Line <= 0 || src == nil {
		return ""
	}

	lines := strings.Split(string(src), "\n")

	errorLine := location.Line - 1
	if errorLine >= len(lines) {
		return ""
	}
	startLine := errorLine - contextLines
	endLine := errorLine + contextLines

	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(lines) {
		endLine = len(lines) - 1
	}

	var sb strings.Builder
	maxLineNumWidth := len(fmt.Sprintf("%d", endLine+1))

	for i := startLine; i <= endLine; i++ {
		lineNumStr := fmt.Sprintf("%*d", maxLineNumWidth, i+1)
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}

		sb.WriteString(fmt.Sprintf("%s %s | %s\n", prefix, lineNumStr, lines[i]))

		if i == errorLine && location.Column > 0 {
			sb.WriteString(fmt.Sprintf("   %s | %s^\n", strings.Repeat(" ", maxLineNumWidth), strings.Repeat(" ", location.Column-1)))
		}
	}

	return sb.String()
}

// WithContext resolves the error's line/column against src and attaches the
// surrounding source lines.
func WithContext(err *Error, src []byte, contextLines int) *Error {
	err.Location = Locate(err.Location, src)
	err.Context = ExtractContext(err.Location, src, contextLines)
	return err
}
