package chunk

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/amanmcp-labs/memoryd/internal/model"
)

// Dispatcher routes a file to the code chunker, the markdown chunker, or a
// plain-text line-based fallback, based on its extension.
type Dispatcher struct {
	code     *CodeChunker
	markdown *MarkdownChunker
	options  CodeChunkerOptions
}

// NewDispatcher builds a dispatcher covering every chunker this package
// ships.
func NewDispatcher(opts CodeChunkerOptions) *Dispatcher {
	return &Dispatcher{
		code:     NewCodeChunkerWithOptions(opts),
		markdown: NewMarkdownChunkerWithOptions(opts),
		options:  opts,
	}
}

// Close releases the code chunker's tree-sitter parser.
func (d *Dispatcher) Close() {
	d.code.Close()
}

// Chunk infers file.Language from its extension if unset, then routes to
// the matching chunker. Everything else — plain text, config files, JSON —
// falls back to a bare line-based split with no symbol extraction.
func (d *Dispatcher) Chunk(ctx context.Context, file *FileInput) ([]model.CodeChunk, error) {
	ext := strings.ToLower(filepath.Ext(file.Path))

	if isMarkdownExt(ext) {
		return d.markdown.Chunk(ctx, file)
	}

	if file.Language == "" {
		if cfg, ok := d.code.registry.GetByExtension(ext); ok {
			file.Language = cfg.Name
		}
	}
	if file.Language != "" {
		if _, ok := d.code.registry.GetByName(file.Language); ok {
			return d.code.Chunk(ctx, file)
		}
	}

	return chunkByLines(file, d.options.MaxChunkTokens, d.options.OverlapTokens, model.ChunkOther)
}

func isMarkdownExt(ext string) bool {
	switch ext {
	case ".md", ".markdown", ".mdx":
		return true
	default:
		return false
	}
}
