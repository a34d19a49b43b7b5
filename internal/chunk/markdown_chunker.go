package chunk

import (
	"context"
	"regexp"
	"strings"

	"github.com/amanmcp-labs/memoryd/internal/model"
)

// MarkdownChunker splits Markdown/MDX along header boundaries, falling back
// to paragraph splitting for headerless sections or documents.
type MarkdownChunker struct {
	options CodeChunkerOptions
}

var (
	headerPattern      = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	frontmatterPattern = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n*`)
)

// NewMarkdownChunker builds a chunker with default sizing.
func NewMarkdownChunker() *MarkdownChunker {
	return NewMarkdownChunkerWithOptions(CodeChunkerOptions{})
}

// NewMarkdownChunkerWithOptions builds a chunker with custom sizing.
func NewMarkdownChunkerWithOptions(opts CodeChunkerOptions) *MarkdownChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	if opts.OverlapTokens == 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}
	return &MarkdownChunker{options: opts}
}

// Close is a no-op; MarkdownChunker holds no external resources.
func (c *MarkdownChunker) Close() {}

// SupportedExtensions lists the Markdown-family extensions this chunker
// handles.
func (c *MarkdownChunker) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".mdx"}
}

// Chunk splits a Markdown file along header boundaries.
func (c *MarkdownChunker) Chunk(ctx context.Context, file *FileInput) ([]model.CodeChunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	var chunks []model.CodeChunk
	remaining := content

	if fm := frontmatterPattern.FindString(remaining); fm != "" {
		chunks = append(chunks, c.frontmatterChunk(file, fm))
		remaining = remaining[len(fm):]
	}

	sections := parseSections(remaining)
	if len(sections) == 0 {
		return append(chunks, c.chunkParagraphs(file, remaining, "", 1)...), nil
	}

	baseOffset := 1
	if len(chunks) > 0 {
		baseOffset = strings.Count(content[:len(content)-len(remaining)], "\n") + 1
	}

	for _, sec := range sections {
		chunks = append(chunks, c.sectionChunks(file, sec, baseOffset)...)
	}
	return chunks, nil
}

type mdSection struct {
	headerLevel int
	headerTitle string
	headerPath  string
	content     string
	startLine   int // 0-indexed within remaining content
}

func parseSections(content string) []*mdSection {
	lines := strings.Split(content, "\n")
	var sections []*mdSection
	stack := make([]string, 6)

	var current *mdSection
	var body strings.Builder

	flush := func() {
		if current != nil {
			current.content = body.String()
			sections = append(sections, current)
			body.Reset()
		}
	}

	for lineNum, line := range lines {
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush()

			level := len(m[1])
			title := strings.TrimSpace(m[2])
			stack[level-1] = title
			for i := level; i < 6; i++ {
				stack[i] = ""
			}

			var parts []string
			for i := 0; i < level; i++ {
				if stack[i] != "" {
					parts = append(parts, stack[i])
				}
			}

			current = &mdSection{
				headerLevel: level,
				headerTitle: title,
				headerPath:  strings.Join(parts, " > "),
				startLine:   lineNum,
			}
			body.WriteString(line)
			body.WriteString("\n")
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}

func (c *MarkdownChunker) frontmatterChunk(file *FileInput, content string) model.CodeChunk {
	lineCount := strings.Count(content, "\n")
	if lineCount == 0 {
		lineCount = 1
	}
	return model.CodeChunk{
		FilePath:    file.Path,
		Content:     content,
		Language:    "markdown",
		StartLine:   1,
		EndLine:     lineCount,
		ChunkType:   model.ChunkModule,
		Name:        "frontmatter",
		ContentHash: contentHash(content),
	}
}

func (c *MarkdownChunker) sectionChunks(file *FileInput, sec *mdSection, baseOffset int) []model.CodeChunk {
	content := strings.TrimRight(sec.content, "\n")
	trimmed := strings.TrimSpace(content)
	if lines := strings.Split(trimmed, "\n"); len(lines) <= 1 && headerPattern.MatchString(trimmed) {
		return nil // header with no body
	}

	if estimateTokens(content) <= c.options.MaxChunkTokens {
		startLine := baseOffset + sec.startLine
		endLine := startLine + strings.Count(content, "\n")
		return []model.CodeChunk{{
			FilePath:    file.Path,
			Content:     content,
			Language:    "markdown",
			StartLine:   startLine,
			EndLine:     endLine,
			ChunkType:   model.ChunkModule,
			Name:        sec.headerTitle,
			ContentHash: contentHash(content),
		}}
	}

	return c.splitLargeSection(file, sec, content, baseOffset+sec.startLine)
}

func (c *MarkdownChunker) splitLargeSection(file *FileInput, sec *mdSection, content string, startLine int) []model.CodeChunk {
	paragraphs := splitIntoParagraphs(content)

	var chunks []model.CodeChunk
	var current strings.Builder
	lineCount := 0
	currentStart := startLine

	flush := func() {
		if current.Len() == 0 {
			return
		}
		c := model.CodeChunk{
			FilePath:    file.Path,
			Content:     current.String(),
			Language:    "markdown",
			StartLine:   currentStart,
			EndLine:     currentStart + lineCount,
			ChunkType:   model.ChunkModule,
			Name:        sec.headerTitle,
			ContentHash: contentHash(current.String()),
		}
		chunks = append(chunks, c)
		current.Reset()
	}

	for i, para := range paragraphs {
		paraLines := strings.Count(para, "\n") + 1
		if current.Len() > 0 && estimateTokens(current.String())+estimateTokens(para) > c.options.MaxChunkTokens {
			flush()
			currentStart = startLine + lineCount
			if i > 0 {
				current.WriteString("<!-- Section: " + sec.headerPath + " -->\n\n")
			}
		}
		current.WriteString(para)
		current.WriteString("\n\n")
		lineCount += paraLines + 1
	}
	flush()

	return chunks
}

func (c *MarkdownChunker) chunkParagraphs(file *FileInput, content, headerPath string, startLine int) []model.CodeChunk {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []model.CodeChunk
	var current strings.Builder
	lineCount := 0
	currentStart := startLine

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, model.CodeChunk{
			FilePath:    file.Path,
			Content:     current.String(),
			Language:    "markdown",
			StartLine:   currentStart,
			EndLine:     currentStart + lineCount,
			ChunkType:   model.ChunkModule,
			ContentHash: contentHash(current.String()),
		})
		current.Reset()
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraLines := strings.Count(para, "\n") + 1
		if current.Len() > 0 && estimateTokens(current.String())+estimateTokens(para) > c.options.MaxChunkTokens {
			flush()
			currentStart = startLine + lineCount
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		lineCount += paraLines + 1
	}
	flush()

	return chunks
}

// splitIntoParagraphs splits on blank lines while keeping fenced code
// blocks that happen to contain a blank line intact.
func splitIntoParagraphs(content string) []string {
	parts := strings.Split(content, "\n\n")

	var paragraphs []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	return mergeCodeBlocks(paragraphs)
}

func mergeCodeBlocks(paragraphs []string) []string {
	var result []string
	var inBlock bool
	var block strings.Builder

	for _, p := range paragraphs {
		if inBlock {
			block.WriteString("\n\n")
			block.WriteString(p)
			if strings.Contains(p, "```") {
				result = append(result, block.String())
				block.Reset()
				inBlock = false
			}
			continue
		}

		if fences := strings.Count(p, "```"); fences > 0 && fences%2 == 1 {
			inBlock = true
			block.WriteString(p)
			continue
		}
		result = append(result, p)
	}
	if inBlock {
		result = append(result, block.String())
	}
	return result
}
