package index

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lukechampine.com/blake3"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/chunk"
	"github.com/amanmcp-labs/memoryd/internal/embed"
	"github.com/amanmcp-labs/memoryd/internal/ident"
	"github.com/amanmcp-labs/memoryd/internal/model"
	"github.com/amanmcp-labs/memoryd/internal/store"
)

// Result is index_project's response shape.
type Result struct {
	ProjectID     string
	FilesIndexed  int
	ChunksCreated int
}

// Pipeline orchestrates one project's full index cycle: scan, chunk,
// extract symbols, embed, and persist, with per-file incremental skip and
// a project-level IndexStatus progress record.
type Pipeline struct {
	store      *store.Store
	embedder   *embed.Service
	scanner    *Scanner
	dispatcher *chunk.Dispatcher
	parser     *chunk.Parser
	symbolPass *SymbolPass

	maxBatchTokens int
	progressEvery  int
}

// NewPipeline wires a Pipeline over an open store and a ready embedding
// service.
func NewPipeline(st *store.Store, embedder *embed.Service) (*Pipeline, error) {
	scanner, err := NewScanner()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:          st,
		embedder:       embedder,
		scanner:        scanner,
		dispatcher:     chunk.NewDispatcher(chunk.CodeChunkerOptions{}),
		parser:         chunk.NewParser(),
		symbolPass:     NewSymbolPass(),
		maxBatchTokens: DefaultMaxBatchTokens,
		progressEvery:  10,
	}, nil
}

// Close releases the tree-sitter resources the pipeline's chunker and
// parser hold.
func (p *Pipeline) Close() {
	p.dispatcher.Close()
	p.parser.Close()
}

// ProjectID derives the stable project identifier index_project and its
// sibling operations key off of: a project is identified by its absolute
// root path, so re-running index_project against the same directory always
// resolves to the same project_id and resets its existing IndexStatus
// rather than creating a duplicate.
func ProjectID(rootDir string) (string, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return "", apperr.Wrap(apperr.Validation, "project_root_invalid", err)
	}
	sum := blake3.Sum256([]byte(absRoot))
	return "proj_" + hex.EncodeToString(sum[:8]), nil
}

// IndexProject walks rootDir, chunks and embeds every accepted file,
// extracts and cross-references symbols, and persists the result under a
// project_id derived from rootDir.
func (p *Pipeline) IndexProject(ctx context.Context, rootDir string) (Result, error) {
	projectID, err := ProjectID(rootDir)
	if err != nil {
		return Result{}, err
	}

	started := time.Now()
	if err := p.store.UpsertIndexStatus(ctx, model.IndexStatus{
		ProjectID: projectID,
		Status:    model.StatusIndexing,
		StartedAt: started,
	}); err != nil {
		return Result{}, err
	}

	resultsCh, err := p.scanner.Scan(ctx, ScanOptions{RootDir: rootDir})
	if err != nil {
		p.markFailed(ctx, projectID, started, err)
		return Result{}, err
	}

	var files []FileInfo
	for r := range resultsCh {
		if r.Err != nil || r.File == nil {
			continue
		}
		files = append(files, *r.File)
	}

	bySymbolFile := make(map[string]FileSymbols, len(files))
	indexedFiles := 0
	totalChunks := 0

	for i, f := range files {
		select {
		case <-ctx.Done():
			p.markFailed(ctx, projectID, started, ctx.Err())
			return Result{}, ctx.Err()
		default:
		}

		content, err := os.ReadFile(f.AbsPath)
		if err != nil {
			continue
		}

		fileChunks, err := p.dispatcher.Chunk(ctx, &chunk.FileInput{
			Path:     f.Path,
			Content:  content,
			Language: f.Language,
		})
		if err != nil {
			continue
		}
		for j := range fileChunks {
			fileChunks[j].ProjectID = projectID
		}

		if tree, perr := p.parser.Parse(ctx, content, f.Language); perr == nil {
			bySymbolFile[f.Path] = p.symbolPass.Extract(tree, f.Path)
		}

		oldHashes, _ := p.store.ChunkHashesByFile(ctx, projectID, f.Path)
		if sameHashSet(oldHashes, hashesOf(fileChunks)) {
			indexedFiles++
			totalChunks += len(oldHashes)
		} else if err := p.reindexFile(ctx, projectID, f.Path, fileChunks); err == nil {
			indexedFiles++
			totalChunks += len(fileChunks)
		}

		if (i+1)%p.progressEvery == 0 {
			_ = p.store.UpsertIndexStatus(ctx, model.IndexStatus{
				ProjectID:    projectID,
				Status:       model.StatusIndexing,
				TotalFiles:   len(files),
				IndexedFiles: indexedFiles,
				TotalChunks:  totalChunks,
				StartedAt:    started,
			})
		}
	}

	p.resolveSymbols(ctx, projectID, bySymbolFile)

	completed := time.Now()
	_ = p.store.UpsertIndexStatus(ctx, model.IndexStatus{
		ProjectID:    projectID,
		Status:       model.StatusComplete,
		TotalFiles:   len(files),
		IndexedFiles: indexedFiles,
		TotalChunks:  totalChunks,
		StartedAt:    started,
		CompletedAt:  &completed,
	})

	return Result{ProjectID: projectID, FilesIndexed: indexedFiles, ChunksCreated: totalChunks}, nil
}

// reindexFile erases a file's prior chunks and symbols, embeds the new
// chunks, and persists both.
func (p *Pipeline) reindexFile(ctx context.Context, projectID, filePath string, fileChunks []model.CodeChunk) error {
	if err := p.store.DeleteChunksByFile(ctx, projectID, filePath); err != nil {
		return err
	}
	if err := p.store.DeleteSymbolsByFile(ctx, projectID, filePath); err != nil {
		return err
	}
	if len(fileChunks) == 0 {
		return nil
	}
	if err := p.embedChunks(ctx, fileChunks); err != nil {
		return err
	}
	_, err := p.store.CreateCodeChunks(ctx, fileChunks)
	return err
}

// embedChunks batches chunk content by estimated token count and embeds
// each batch with retry, writing the resulting vectors back onto chunks in
// place.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []model.CodeChunk) error {
	prefix := p.embedder.DocumentPrefix()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = prefix + c.Content
	}
	batches := BatchTexts(texts, p.maxBatchTokens)

	var vectors [][]float32
	err := retryEmbed(ctx, func() error {
		out, err := p.embedder.EmbedMany(ctx, batches)
		if err != nil {
			return err
		}
		vectors = make([][]float32, 0, len(texts))
		for _, b := range out {
			vectors = append(vectors, b...)
		}
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.Embedding, "index_embed_failed", err)
	}
	if len(vectors) != len(chunks) {
		return apperr.New(apperr.Embedding, "index_embed_count_mismatch", "embedded vector count did not match chunk count", nil)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

// resolveSymbols runs the second pass: persisting every file's symbol
// candidates, then resolving each reference candidate's target against the
// defining file's own symbols first, falling back to a project-wide
// name index. Unresolved references are dropped.
func (p *Pipeline) resolveSymbols(ctx context.Context, projectID string, bySymbolFile map[string]FileSymbols) {
	idByScopedName := make(map[string]ident.ID) // "file|name" -> symbol id
	idByName := make(map[string]ident.ID)        // first writer wins, project-wide fallback

	for filePath, fsyms := range bySymbolFile {
		for _, c := range fsyms.Candidates {
			sym := model.Symbol{
				ProjectID:          projectID,
				FilePath:           filePath,
				Kind:               c.Kind,
				Name:               c.Name,
				FullyQualifiedName: qualifiedName(filePath, c),
				Location: model.Location{
					FilePath:  filePath,
					StartLine: c.StartLine,
					EndLine:   c.EndLine,
				},
			}
			id, err := p.store.CreateSymbol(ctx, sym)
			if err != nil {
				continue
			}
			key := filePath + "|" + c.Name
			idByScopedName[key] = id
			if _, exists := idByName[c.Name]; !exists {
				idByName[c.Name] = id
			}
		}
	}

	for filePath, fsyms := range bySymbolFile {
		for _, ref := range fsyms.References {
			if ref.EnclosingName == "" {
				continue
			}
			sourceID, ok := idByScopedName[filePath+"|"+ref.EnclosingName]
			if !ok {
				continue
			}
			targetID, ok := idByScopedName[filePath+"|"+ref.TargetName]
			if !ok {
				targetID, ok = idByName[ref.TargetName]
			}
			if !ok {
				continue // unresolved reference, dropped per spec
			}
			_, _ = p.store.RelateSymbols(ctx, sourceID, targetID, ref.Kind)
		}
	}
}

// DeleteProject erases every chunk, symbol, and the progress record for a
// project.
func (p *Pipeline) DeleteProject(ctx context.Context, projectID string) (int, error) {
	if err := p.store.DeleteSymbolsByProject(ctx, projectID); err != nil {
		return 0, err
	}
	count, err := p.store.DeleteChunksByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if err := p.store.DeleteIndexStatus(ctx, projectID); err != nil {
		return 0, err
	}
	return count, nil
}

func (p *Pipeline) markFailed(ctx context.Context, projectID string, started time.Time, cause error) {
	completed := time.Now()
	_ = p.store.UpsertIndexStatus(ctx, model.IndexStatus{
		ProjectID:    projectID,
		Status:       model.StatusFailed,
		StartedAt:    started,
		CompletedAt:  &completed,
		ErrorMessage: cause.Error(),
	})
}

func hashesOf(chunks []model.CodeChunk) []string {
	hashes := make([]string, len(chunks))
	for i, c := range chunks {
		hashes[i] = c.ContentHash
	}
	return hashes
}

// sameHashSet reports whether two content-hash slices contain the same
// multiset of values, order ignored.
func sameHashSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string{}, a...)
	sb := append([]string{}, b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
