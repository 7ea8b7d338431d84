// Package parse turns a single file's bytes into content-aware chunks.
// Parsers are consulted in a fixed priority order rather than dispatched
// dynamically, so that "which parser handled this file" is always
// reproducible from the file's extension alone.
package parse

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ctxengine/ctxengine/internal/model"
)

// Parser turns one file's content into chunks plus a language label.
type Parser interface {
	// Handles reports whether this parser claims relPath, based on its extension.
	Handles(relPath string) bool
	// Parse reads absPath (known to exist and pass the walker's caps) and
	// returns its chunks. relPath is used as Chunk.SourcePath.
	Parse(absPath, relPath string) ([]model.Chunk, error)
}

// Dispatcher holds the closed, priority-ordered set of parsers.
type Dispatcher struct {
	parsers []Parser
}

// NewDispatcher returns the dispatcher used by the indexer: code, then
// document, then PDF, then tabular, then image. The first parser whose
// Handles returns true wins.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{parsers: []Parser{
		&CodeParser{},
		&DocumentParser{},
		&PDFParser{},
		&TabularParser{},
		&ImageParser{},
	}}
}

// Handles reports whether any registered parser would accept relPath.
func (d *Dispatcher) Handles(relPath string) bool {
	_, ok := d.find(relPath)
	return ok
}

// Parse routes relPath to its parser and parses absPath. It returns
// (nil, false, nil) when no parser handles the extension.
func (d *Dispatcher) Parse(absPath, relPath string) ([]model.Chunk, bool, error) {
	p, ok := d.find(relPath)
	if !ok {
		return nil, false, nil
	}
	chunks, err := p.Parse(absPath, relPath)
	if err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", relPath, err)
	}
	return chunks, true, nil
}

func (d *Dispatcher) find(relPath string) (Parser, bool) {
	for _, p := range d.parsers {
		if p.Handles(relPath) {
			return p, true
		}
	}
	return nil, false
}

func ext(relPath string) string {
	return strings.ToLower(filepath.Ext(relPath))
}
