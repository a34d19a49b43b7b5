package chunk

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"

	"github.com/amanmcp-labs/memoryd/internal/model"
)

// Chunk size defaults, tuned for embedding recall rather than token-exactness.
const (
	DefaultMaxChunkTokens = 512
	DefaultOverlapTokens  = 64
	TokensPerChar         = 4
)

// FileInput is the input to every Chunker implementation.
type FileInput struct {
	Path     string // project-relative
	Content  []byte
	Language string // "" lets the registry infer from Path's extension
}

// Chunker splits one file into retrievable code chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]model.CodeChunk, error)
	SupportedExtensions() []string
}

// CodeChunkerOptions configures chunk sizing.
type CodeChunkerOptions struct {
	MaxChunkTokens int
	OverlapTokens  int
}

// CodeChunker splits source files along AST symbol boundaries using
// tree-sitter, falling back to line-based splitting for languages without a
// registered grammar or files that fail to parse.
type CodeChunker struct {
	parser    *Parser
	extractor *SymbolExtractor
	registry  *LanguageRegistry
	options   CodeChunkerOptions
}

// NewCodeChunker builds a chunker with default sizing.
func NewCodeChunker() *CodeChunker {
	return NewCodeChunkerWithOptions(CodeChunkerOptions{})
}

// NewCodeChunkerWithOptions builds a chunker with custom sizing.
func NewCodeChunkerWithOptions(opts CodeChunkerOptions) *CodeChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	if opts.OverlapTokens == 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}

	registry := DefaultRegistry()
	return &CodeChunker{
		parser:    NewParserWithRegistry(registry),
		extractor: NewSymbolExtractorWithRegistry(registry),
		registry:  registry,
		options:   opts,
	}
}

// Close releases the underlying tree-sitter parser.
func (c *CodeChunker) Close() {
	if c.parser != nil {
		c.parser.Close()
	}
}

// SupportedExtensions lists extensions with a registered grammar.
func (c *CodeChunker) SupportedExtensions() []string {
	return c.registry.SupportedExtensions()
}

// Chunk splits file along symbol boundaries. Unsupported languages and
// parse failures fall back to chunkByLines's line-based split.
func (c *CodeChunker) Chunk(ctx context.Context, file *FileInput) ([]model.CodeChunk, error) {
	if len(file.Content) == 0 {
		return nil, nil
	}

	if _, supported := c.registry.GetByName(file.Language); !supported {
		return chunkByLines(file, c.options.MaxChunkTokens, c.options.OverlapTokens, model.ChunkOther)
	}

	tree, err := c.parser.Parse(ctx, file.Content, file.Language)
	if err != nil {
		return chunkByLines(file, c.options.MaxChunkTokens, c.options.OverlapTokens, model.ChunkOther)
	}

	fileContext := c.extractFileContext(tree, file.Language)
	fileContext = enrichContextWithFilePath(file.Path, file.Language, fileContext)

	candidates := c.extractor.Extract(tree)
	if len(candidates) == 0 {
		return nil, nil
	}

	var chunks []model.CodeChunk
	for _, cand := range candidates {
		chunks = append(chunks, c.createChunksFromSymbol(cand, tree, file, fileContext)...)
	}
	return chunks, nil
}

func (c *CodeChunker) createChunksFromSymbol(cand SymbolCandidate, tree *Tree, file *FileInput, fileContext string) []model.CodeChunk {
	raw := extractRawContentForLines(tree.Source, cand.StartLine, cand.EndLine)
	if cand.DocComment != "" {
		raw = prependDocCommentLine(tree.Source, cand.StartLine, raw)
	}

	// A method's parent-scope context marker names its receiver type, so an
	// embedding of just the method body still carries "this belongs to
	// ReceiverType" without needing the whole file alongside it.
	scopedContext := fileContext
	if cand.EnclosingName != "" {
		scopedContext = scopeMarker(file.Language, cand.EnclosingName) + "\n" + scopedContext
	}

	tokens := estimateTokens(raw)
	if tokens <= c.options.MaxChunkTokens {
		return []model.CodeChunk{c.buildChunk(file, raw, scopedContext, cand)}
	}

	return c.splitByLines(raw, cand, file, scopedContext)
}

func (c *CodeChunker) buildChunk(file *FileInput, rawContent, fileContext string, cand SymbolCandidate) model.CodeChunk {
	return model.CodeChunk{
		FilePath:    file.Path,
		Content:     combineContextAndContent(fileContext, rawContent),
		Language:    file.Language,
		StartLine:   cand.StartLine,
		EndLine:     cand.EndLine,
		ChunkType:   chunkTypeFor(cand.Kind),
		Name:        cand.Name,
		ContentHash: contentHash(rawContent),
		SymbolNames: []string{cand.Name},
	}
}

// splitByLines breaks a symbol too large for one chunk into overlapping
// line-based pieces, naming each "Name_part1", "Name_part2", ... while still
// tagging the parent name in SymbolNames so symbol lookups resolve either.
func (c *CodeChunker) splitByLines(content string, cand SymbolCandidate, file *FileInput, fileContext string) []model.CodeChunk {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return nil
	}

	maxLines := (c.options.MaxChunkTokens * TokensPerChar) / 80
	if maxLines < 20 {
		maxLines = 20
	}
	overlapLines := (c.options.OverlapTokens * TokensPerChar) / 80
	if overlapLines < 2 {
		overlapLines = 2
	}

	var chunks []model.CodeChunk
	for i := 0; i < len(lines); {
		end := i + maxLines
		if end > len(lines) {
			end = len(lines)
		}

		partContent := strings.Join(lines[i:end], "\n")
		startLine := cand.StartLine + i
		endLine := cand.StartLine + end - 1
		partName := fmt.Sprintf("%s_part%d", cand.Name, len(chunks)+1)

		chunks = append(chunks, model.CodeChunk{
			FilePath:    file.Path,
			Content:     combineContextAndContent(fileContext, partContent),
			Language:    file.Language,
			StartLine:   startLine,
			EndLine:     endLine,
			ChunkType:   chunkTypeFor(cand.Kind),
			Name:        partName,
			ContentHash: contentHash(partContent),
			SymbolNames: []string{partName, cand.Name},
		})

		i = end - overlapLines
		if i <= 0 || end >= len(lines) {
			break
		}
	}
	return chunks
}

// extractFileContext pulls the package/import declarations a reader needs
// to understand a chunk in isolation.
func (c *CodeChunker) extractFileContext(tree *Tree, language string) string {
	var parts []string
	switch language {
	case "go":
		for _, n := range tree.Root.Children {
			if n.Type == "package_clause" {
				parts = append(parts, n.GetContent(tree.Source))
			}
		}
		for _, n := range tree.Root.Children {
			if n.Type == "import_declaration" {
				parts = append(parts, n.GetContent(tree.Source))
			}
		}
	case "typescript", "tsx", "javascript", "jsx":
		for _, n := range tree.Root.Children {
			if n.Type == "import_statement" {
				parts = append(parts, n.GetContent(tree.Source))
			}
		}
	case "python":
		for _, n := range tree.Root.Children {
			if n.Type == "import_statement" || n.Type == "import_from_statement" {
				parts = append(parts, n.GetContent(tree.Source))
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

func scopeMarker(language, enclosingName string) string {
	switch language {
	case "python":
		return fmt.Sprintf("# Method of: %s", enclosingName)
	default:
		return fmt.Sprintf("// Method of: %s", enclosingName)
	}
}

func enrichContextWithFilePath(filePath, language, existingContext string) string {
	if filePath == "" {
		return existingContext
	}
	var marker string
	if language == "python" {
		marker = fmt.Sprintf("# File: %s", filePath)
	} else {
		marker = fmt.Sprintf("// File: %s", filePath)
	}
	if existingContext == "" {
		return marker
	}
	return marker + "\n" + existingContext
}

func combineContextAndContent(context, rawContent string) string {
	if context == "" {
		return rawContent
	}
	return context + "\n\n" + rawContent
}

func chunkTypeFor(kind model.SymbolKind) model.ChunkType {
	switch kind {
	case model.SymbolFunction, model.SymbolMethod:
		return model.ChunkFunction
	case model.SymbolClassKind:
		return model.ChunkClass
	case model.SymbolTypeDecl, model.SymbolInterface:
		return model.ChunkStruct
	default:
		return model.ChunkOther
	}
}

func extractRawContentForLines(source []byte, startLine, endLine int) string {
	lines := strings.Split(string(source), "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return ""
	}
	return strings.Join(lines[startLine-1:endLine], "\n")
}

func prependDocCommentLine(source []byte, startLine int, raw string) string {
	lines := strings.Split(string(source), "\n")
	if startLine-2 < 0 || startLine-2 >= len(lines) {
		return raw
	}
	docLine := strings.TrimSpace(lines[startLine-2])
	if docLine == "" {
		return raw
	}
	return docLine + "\n" + raw
}

func estimateTokens(content string) int {
	return len(content) / TokensPerChar
}

// contentHash is the blake3 hex digest the store keys re-indexing decisions
// on: unchanged content across a re-scan produces the same hash, so the
// indexing pipeline can skip re-embedding it.
func contentHash(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// chunkByLines is the fallback splitter for files with no registered
// grammar, or whose parse failed.
func chunkByLines(file *FileInput, maxTokens, overlapTokens int, chunkType model.ChunkType) ([]model.CodeChunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	if maxTokens == 0 {
		maxTokens = DefaultMaxChunkTokens
	}

	lines := strings.Split(content, "\n")
	linesPerChunk := (maxTokens * TokensPerChar) / 80
	if linesPerChunk < 20 {
		linesPerChunk = 20
	}
	overlapLines := (overlapTokens * TokensPerChar) / 80
	if overlapLines < 2 {
		overlapLines = 2
	}

	var chunks []model.CodeChunk
	for i := 0; i < len(lines); {
		end := i + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}

		chunkContent := strings.Join(lines[i:end], "\n")
		chunks = append(chunks, model.CodeChunk{
			FilePath:    file.Path,
			Content:     chunkContent,
			Language:    file.Language,
			StartLine:   i + 1,
			EndLine:     end,
			ChunkType:   chunkType,
			ContentHash: contentHash(chunkContent),
		})

		i = end - overlapLines
		if i <= 0 || end >= len(lines) {
			break
		}
	}
	return chunks, nil
}
