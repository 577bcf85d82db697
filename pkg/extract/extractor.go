// Package extract turns stored document files into plain text.
// Parsers are registered per file extension; dispatch is by the
// declared file type of the upload, not by sniffing content.
package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnsupportedFormat means no parser is registered for the extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtractionFailed means a registered parser could not produce text.
	ErrExtractionFailed = errors.New("content extraction failed")
)

// Parser extracts plain text from one family of file formats.
// Parse must not mutate or delete the source file.
type Parser interface {
	Parse(path string) (string, error)
	Extensions() []string
	Name() string
}

// Registry maps normalized file extensions to parsers.
type Registry struct {
	byExt map[string]Parser
}

// NewRegistry builds a registry from the given parsers.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{byExt: make(map[string]Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// Default returns a registry with all built-in parsers.
func Default() *Registry {
	return NewRegistry(PDFParser{}, WordParser{}, TextParser{}, HTMLParser{})
}

// Register maps every extension the parser declares to it.
func (r *Registry) Register(p Parser) {
	for _, ext := range p.Extensions() {
		r.byExt[normalizeExt(ext)] = p
	}
}

// Get resolves the parser for a file extension.
func (r *Registry) Get(ext string) (Parser, error) {
	p, ok := r.byExt[normalizeExt(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(r.Supported(), ", "))
	}
	return p, nil
}

// Extract parses the file at path using the parser registered for ext.
func (r *Registry) Extract(path, ext string) (string, error) {
	p, err := r.Get(ext)
	if err != nil {
		return "", err
	}
	return p.Parse(path)
}

// Supported lists all registered extensions, sorted.
func (r *Registry) Supported() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
