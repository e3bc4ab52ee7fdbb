package ast

import (
	"path/filepath"

	lesserrors "mercator-hq/cascade/pkg/less/errors"
)

// FileInfo describes the source file a node was loaded from.
type FileInfo struct {
	Filename         string // Path as given to the loader
	CurrentDirectory string // Directory used to resolve relative imports
	EntryPath        string // Directory of the entry file of the render
	Reference        bool   // Loaded through a reference import
	Source           []byte // Raw document text, used for line/column lookup
}

// NewFileInfo returns file information for a document loaded from filename.
func NewFileInfo(filename string, source []byte) *FileInfo {
	dir := filepath.Dir(filename)
	return &FileInfo{
		Filename:         filename,
		CurrentDirectory: dir,
		EntryPath:        dir,
		Source:           source,
	}
}

// Visibility is the tri-state output visibility of a node.
type Visibility int8

const (
	VisibilityUnknown Visibility = iota
	VisibilityVisible
	VisibilityHidden
)

// Meta holds the metadata shared by every node: source position and visibility.
// It is embedded in each node struct.
type Meta struct {
	Index            int       // Byte offset into File.Source, -1 when unknown
	File             *FileInfo // Source file, nil for synthesized nodes
	VisibilityBlocks int       // Number of enclosing reference contexts
	NodeVisible      Visibility
}

// Pos returns metadata for a node at index in file.
func Pos(index int, file *FileInfo) Meta {
	return Meta{Index: index, File: file}
}

// Metadata returns the receiver. It satisfies the Node interface for every
// struct embedding Meta.
func (m *Meta) Metadata() *Meta {
	return m
}

// Filename returns the source filename, or "" for synthesized nodes.
func (m *Meta) Filename() string {
	if m.File == nil {
		return ""
	}
	return m.File.Filename
}

// BlocksVisibility reports whether the node sits inside a reference context.
func (m *Meta) BlocksVisibility() bool {
	return m.VisibilityBlocks != 0
}

// AddVisibilityBlock records one more enclosing reference context.
func (m *Meta) AddVisibilityBlock() {
	m.VisibilityBlocks++
}

// RemoveVisibilityBlock drops one enclosing reference context.
func (m *Meta) RemoveVisibilityBlock() {
	if m.VisibilityBlocks > 0 {
		m.VisibilityBlocks--
	}
}

// EnsureVisibility marks the node as visible.
func (m *Meta) EnsureVisibility() {
	m.NodeVisible = VisibilityVisible
}

// EnsureInvisibility marks the node as hidden.
func (m *Meta) EnsureInvisibility() {
	m.NodeVisible = VisibilityHidden
}

// IsVisible reports whether the node has been marked visible.
func (m *Meta) IsVisible() bool {
	return m.NodeVisible == VisibilityVisible
}

// CopyVisibility copies the visibility state of other.
func (m *Meta) CopyVisibility(other *Meta) {
	if other == nil {
		return
	}
	m.VisibilityBlocks = other.VisibilityBlocks
	m.NodeVisible = other.NodeVisible
}

// Derive returns metadata at the same position carrying the same visibility.
func (m *Meta) Derive() Meta {
	out := Meta{Index: m.Index, File: m.File}
	out.CopyVisibility(m)
	return out
}

// Errorf creates a typed error positioned at the node.
func (m *Meta) Errorf(errType lesserrors.ErrorType, format string, args ...any) *lesserrors.Error {
	return lesserrors.Newf(errType, format, args...).At(m.Filename(), m.Index)
}

// Stamp attaches the node's position to err when it has none.
func (m *Meta) Stamp(err error) error {
	return lesserrors.Stamp(err, m.Filename(), m.Index)
}
