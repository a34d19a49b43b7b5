package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markdownSample = `# Title

Intro paragraph.

## Section A

Content for section A.

## Section B

Content for section B.
`

func TestMarkdownChunker_SplitsByHeader(t *testing.T) {
	c := NewMarkdownChunker()
	chunks, err := c.Chunk(context.Background(), &FileInput{
		Path:    "doc.md",
		Content: []byte(markdownSample),
	})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var titles []string
	for _, ch := range chunks {
		titles = append(titles, ch.Name)
	}
	assert.Contains(t, titles, "Section A")
	assert.Contains(t, titles, "Section B")
}

func TestMarkdownChunker_ExtractsFrontmatter(t *testing.T) {
	c := NewMarkdownChunker()
	content := "---\ntitle: Doc\n---\n\n# Title\n\nBody.\n"
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(content)})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "frontmatter", chunks[0].Name)
}

func TestMarkdownChunker_NoHeadersFallsBackToParagraphs(t *testing.T) {
	c := NewMarkdownChunker()
	content := "Paragraph one.\n\nParagraph two.\n\nParagraph three.\n"
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "notes.md", Content: []byte(content)})
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestMarkdownChunker_EmptyContentProducesNoChunks(t *testing.T) {
	c := NewMarkdownChunker()
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "empty.md", Content: []byte("   \n\n")})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestMarkdownChunker_KeepsFencedCodeBlockIntactAcrossBlankLine(t *testing.T) {
	c := NewMarkdownChunkerWithOptions(CodeChunkerOptions{MaxChunkTokens: 5, OverlapTokens: 1})
	content := "# Title\n\n```go\nfunc A() {}\n\nfunc B() {}\n```\n"
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(content)})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	joined := chunks[0].Content
	for _, ch := range chunks[1:] {
		joined += ch.Content
	}
	assert.True(t, strings.Contains(joined, "```go"))
}
