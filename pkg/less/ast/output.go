package ast

import (
	"strings"
)

// Output is the sink every node writes its CSS text to.
type Output interface {
	Add(text string, file *FileInfo, index int)
	IsEmpty() bool
}

// Buffer is a plain output sink that concatenates text.
type Buffer struct {
	sb strings.Builder
}

// Add appends text.
func (b *Buffer) Add(text string, _ *FileInfo, _ int) {
	b.sb.WriteString(text)
}

// IsEmpty reports whether nothing has been written.
func (b *Buffer) IsEmpty() bool {
	return b.sb.Len() == 0
}

// String returns the accumulated text.
func (b *Buffer) String() string {
	return b.sb.String()
}

// Segment is one chunk of generated CSS with the source position it came from.
type Segment struct {
	Text      string
	File      string
	Index     int
	GenLine   int // 0-based line in the generated output
	GenColumn int // 0-based column in the generated output
}

// MappingBuffer is an output sink that also records where each chunk of
// generated text originated.
type MappingBuffer struct {
	Buffer
	Segments []Segment
	line     int
	column   int
}

// Add appends text and records a segment for chunks with a known source.
func (m *MappingBuffer) Add(text string, file *FileInfo, index int) {
	if text == "" {
		return
	}
	if file != nil && index >= 0 {
		m.Segments = append(m.Segments, Segment{
			Text:      text,
			File:      file.Filename,
			Index:     index,
			GenLine:   m.line,
			GenColumn: m.column,
		})
	}
	m.Buffer.Add(text, file, index)
	if n := strings.Count(text, "\n"); n > 0 {
		m.line += n
		m.column = len(text) - strings.LastIndexByte(text, '\n') - 1
	} else {
		m.column += len(text)
	}
}

// DefaultNumPrecision is the number of decimals kept when printing numbers.
const DefaultNumPrecision = 8

// GenContext carries the formatting state of one CSS emission pass.
type GenContext struct {
	Compress      bool
	StrictUnits   bool
	NumPrecision  int
	TabLevel      int
	FirstSelector bool
	LastRule      bool

	err error
}

// Fail records the first error raised while emitting CSS.
func (c *GenContext) Fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Err returns the first error recorded by Fail.
func (c *GenContext) Err() error {
	return c.err
}

func (c *GenContext) precision() int {
	if c == nil || c.NumPrecision <= 0 {
		return DefaultNumPrecision
	}
	return c.NumPrecision
}

// ToCSS renders a single node. The formatting flags of ctx are used, the
// emission state is not shared with the caller.
func ToCSS(n Node, ctx *GenContext) (string, error) {
	var c GenContext
	if ctx != nil {
		c = GenContext{
			Compress:      ctx.Compress,
			StrictUnits:   ctx.StrictUnits,
			NumPrecision:  ctx.NumPrecision,
			TabLevel:      ctx.TabLevel,
			FirstSelector: ctx.FirstSelector,
		}
	}
	var b Buffer
	n.GenCSS(&c, &b)
	return b.String(), c.err
}

// CSS renders a node with default formatting, ignoring errors. It is meant for
// messages and comparisons where a best-effort rendering is enough.
func CSS(n Node) string {
	if n == nil {
		return ""
	}
	s, _ := ToCSS(n, nil)
	return s
}
