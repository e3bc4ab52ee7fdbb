package parser

import (
	"regexp"
	"strings"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// textParser reads the inline syntax embedded in tree documents: values,
// selectors, guards and mixin signatures. base is the offset of src in the
// source file, so nodes and errors point back into the document.
type textParser struct {
	src  string
	pos  int
	base int
	file *ast.FileInfo
}

func newTextParser(src string, base int, file *ast.FileInfo) *textParser {
	return &textParser{src: src, base: base, file: file}
}

func (p *textParser) index() int {
	if p.base < 0 {
		return -1
	}
	return p.base + p.pos
}

func (p *textParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *textParser) cur() byte {
	return p.at(0)
}

func (p *textParser) at(off int) byte {
	if p.pos+off >= len(p.src) || p.pos+off < 0 {
		return 0
	}
	return p.src[p.pos+off]
}

func (p *textParser) rest() string {
	return p.src[p.pos:]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isIdentChar(c byte) bool {
	return c == '-' || c == '_' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// skipSpace skips whitespace and block comments. It reports whether anything
// was skipped.
func (p *textParser) skipSpace() bool {
	start := p.pos
	for !p.eof() {
		switch {
		case isSpace(p.cur()):
			p.pos++
		case p.cur() == '/' && p.at(1) == '*':
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.pos = len(p.src)
			} else {
				p.pos += end + 4
			}
		default:
			return p.pos > start
		}
	}
	return p.pos > start
}

// spaceBefore reports whether the character before the cursor is whitespace.
func (p *textParser) spaceBefore() bool {
	return p.pos > 0 && isSpace(p.src[p.pos-1])
}

func (p *textParser) char(c byte) bool {
	if p.cur() != c || p.eof() {
		return false
	}
	p.pos++
	return true
}

func (p *textParser) str(s string) bool {
	if !strings.HasPrefix(p.rest(), s) {
		return false
	}
	p.pos += len(s)
	return true
}

// word consumes the keyword w, case-insensitively, when it is not followed by
// more identifier characters.
func (p *textParser) word(w string) bool {
	rest := p.rest()
	if len(rest) < len(w) || !strings.EqualFold(rest[:len(w)], w) {
		return false
	}
	if len(rest) > len(w) && isIdentChar(rest[len(w)]) {
		return false
	}
	p.pos += len(w)
	return true
}

// match consumes an anchored regexp match and returns its submatches.
func (p *textParser) match(re *regexp.Regexp) []string {
	m := re.FindStringSubmatch(p.rest())
	if m == nil {
		return nil
	}
	p.pos += len(m[0])
	return m
}

// balanced reads a parenthesized group starting at the cursor and returns
// the text between the outer parentheses.
func (p *textParser) balanced() (string, bool) {
	if p.cur() != '(' {
		return "", false
	}
	depth := 0
	var quote byte
	for i := p.pos; i < len(p.src); i++ {
		c := p.src[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				inner := p.src[p.pos+1 : i]
				p.pos = i + 1
				return inner, true
			}
		}
	}
	return "", false
}

func (p *textParser) errorf(format string, args ...any) *lesserrors.Error {
	filename := ""
	if p.file != nil {
		filename = p.file.Filename
	}
	return lesserrors.Newf(lesserrors.ErrorTypeSyntax, format, args...).At(filename, p.index())
}

// unexpected reports the input at the cursor.
func (p *textParser) unexpected(context string) *lesserrors.Error {
	if p.eof() {
		return p.errorf("unexpected end of %s", context)
	}
	snippet := p.rest()
	if i := strings.IndexAny(snippet, "\n;"); i >= 0 {
		snippet = snippet[:i]
	}
	if len(snippet) > 20 {
		snippet = snippet[:20]
	}
	return p.errorf("Unrecognised input %q in %s", snippet, context)
}

// finish fails unless all input has been consumed.
func (p *textParser) finish(context string) error {
	p.skipSpace()
	if !p.eof() {
		return p.unexpected(context)
	}
	return nil
}

// indexAt returns the file offset of position start in src.
func (p *textParser) indexAt(start int) int {
	if p.base < 0 {
		return -1
	}
	return p.base + start
}
