package parser

import (
	"fmt"
	"os"

	"mercator-hq/cascade/pkg/less/ast"
	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// Parser loads stylesheet tree documents into templates.
// It handles YAML decoding, the inline value/selector syntax and structural
// validation.
type Parser struct {
	// Configuration
	maxFileSize  int64 // Maximum file size in bytes (default: 10MB)
	maxDepth     int   // Maximum rule nesting depth (default: 64)
	contextLines int   // Source lines shown around errors (default: 2)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize:  10 * 1024 * 1024, // 10MB
		maxDepth:     64,
		contextLines: 2,
	}
}

// WithMaxFileSize sets the maximum file size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithMaxDepth sets the maximum rule nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// WithContextLines sets how many source lines errors show around the
// failing one.
func (p *Parser) WithContextLines(n int) *Parser {
	p.contextLines = n
	return p
}

// Parse loads the document at path.
// It returns an error if the file cannot be read, is not valid YAML, or
// contains malformed rules.
func (p *Parser) Parse(path string) (*ast.Ruleset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, lesserrors.Wrap(lesserrors.ErrorTypeFile, err,
			fmt.Sprintf("Failed to access file: %v", err)).At(path, -1)
	}
	if info.Size() > p.maxFileSize {
		return nil, lesserrors.Newf(lesserrors.ErrorTypeFile,
			"File size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize).At(path, -1)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lesserrors.Wrap(lesserrors.ErrorTypeFile, err,
			fmt.Sprintf("Failed to read file: %v", err)).At(path, -1)
	}
	return p.ParseFile(data, ast.NewFileInfo(path, data))
}

// ParseBytes parses a document held in memory. filename is used in node
// positions and errors.
func (p *Parser) ParseBytes(data []byte, filename string) (*ast.Ruleset, error) {
	return p.ParseFile(data, ast.NewFileInfo(filename, data))
}

// ParseFile parses data with caller supplied file information, letting an
// importer set the entry path or mark the file as referenced.
func (p *Parser) ParseFile(data []byte, file *ast.FileInfo) (*ast.Ruleset, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, lesserrors.Newf(lesserrors.ErrorTypeFile,
			"Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize).At(file.Filename, -1)
	}
	if file.Source == nil {
		file.Source = data
	}

	doc, err := parseYAMLBytes(data)
	if err != nil {
		e := lesserrors.Wrap(lesserrors.ErrorTypeParse, err, fmt.Sprintf("YAML parsing failed: %v", err)).At(file.Filename, 0)
		e.Suggestion = "Check YAML syntax (indentation, colons, quotes)"
		return nil, e
	}

	b := newBuilder(file, p.maxDepth)
	root, err := b.buildRoot(doc)
	if err != nil {
		// Add context to errors
		if errList, ok := err.(*lesserrors.ErrorList); ok {
			for i, e := range errList.Errors {
				errList.Errors[i] = lesserrors.WithContext(e, data, p.contextLines)
			}
		}
		return nil, err
	}
	return root, nil
}

// Parse loads the document at path with the default configuration.
func Parse(path string) (*ast.Ruleset, error) {
	return NewParser().Parse(path)
}

// ParseBytes parses an in-memory document with the default configuration.
func ParseBytes(data []byte, filename string) (*ast.Ruleset, error) {
	return NewParser().ParseBytes(data, filename)
}
