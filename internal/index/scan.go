// Package index implements the code-indexing pipeline: discovering a
// project's files, chunking and embedding them, extracting symbols and
// their cross-references, and persisting the result.
package index

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/chunk"
)

// DefaultMaxFileSize bounds the size of any single file accepted into the
// pipeline; larger files are skipped, without a warning, rather than failing
// the scan.
const DefaultMaxFileSize = 10 * 1024 * 1024

// gitignoreCacheSize caps the number of per-directory ignore matchers kept
// in memory during a single scan.
const gitignoreCacheSize = 1000

// FileInfo describes one file discovered by a scan.
type FileInfo struct {
	Path        string // project-root-relative, slash-separated
	AbsPath     string
	Size        int64
	Language    string // empty if no registered language matches
	IsGenerated bool
}

// ScanOptions configures a project walk.
type ScanOptions struct {
	RootDir         string
	ExcludePatterns []string
	MaxFileSize     int64
}

// ScanResult is delivered on the channel Scan returns; exactly one of File
// or Err is set.
type ScanResult struct {
	File *FileInfo
	Err  error
}

// Scanner discovers indexable files in a project tree, honoring
// .gitignore, an additional .memoryignore, and a fixed set of
// exclusion/sensitive-file rules.
type Scanner struct {
	ignoreCache *lru.Cache[string, *dirMatchers]
	cacheMu     sync.RWMutex
	registry    *chunk.LanguageRegistry
}

// dirMatchers bundles the gitignore and memoryignore matchers found
// directly in one directory, if any.
type dirMatchers struct {
	git  *gitignoreMatcher
	mine *gitignoreMatcher
}

// NewScanner builds a Scanner with a bounded ignore-matcher cache.
func NewScanner() (*Scanner, error) {
	cache, err := lru.New[string, *dirMatchers](gitignoreCacheSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "scanner_cache_init_failed", err)
	}
	return &Scanner{ignoreCache: cache, registry: chunk.DefaultRegistry()}, nil
}

// Scan walks opts.RootDir and streams every accepted file on the returned
// channel, closing it when the walk finishes or ctx is canceled.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (<-chan ScanResult, error) {
	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "scan_root_invalid", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "scan_root_unreadable", err)
	}
	if !info.IsDir() {
		return nil, apperr.Validationf("scan_root_not_dir", "root path is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	results := make(chan ScanResult, runtime.NumCPU()*4)

	go func() {
		defer close(results)
		s.walk(ctx, absRoot, opts, maxFileSize, results)
	}()

	return results, nil
}

func (s *Scanner) walk(ctx context.Context, absRoot string, opts ScanOptions, maxFileSize int64, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if walkErr != nil {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if strings.HasPrefix(filepath.Base(relPath), ".") {
				return filepath.SkipDir
			}
			if s.shouldExcludeDir(relPath, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if strings.HasPrefix(filepath.Base(relPath), ".") {
			return nil
		}

		if s.shouldExcludeFile(relPath, absRoot, opts) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > maxFileSize {
			return nil
		}
		if isBinaryFile(path) {
			return nil
		}

		language := ""
		if cfg, ok := s.registry.GetByExtension(strings.ToLower(filepath.Ext(relPath))); ok {
			language = cfg.Name
		}

		file := &FileInfo{
			Path:        relPath,
			AbsPath:     path,
			Size:        fi.Size(),
			Language:    language,
			IsGenerated: isGeneratedFile(path),
		}

		select {
		case results <- ScanResult{File: file}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		select {
		case results <- ScanResult{Err: fmt.Errorf("scan walk failed: %w", err)}:
		case <-ctx.Done():
		}
	}
}

func (s *Scanner) shouldExcludeDir(relPath string, opts ScanOptions) bool {
	for _, pattern := range defaultExcludeDirs {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	for _, pattern := range opts.ExcludePatterns {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	return false
}

func (s *Scanner) shouldExcludeFile(relPath, absRoot string, opts ScanOptions) bool {
	base := filepath.Base(relPath)

	for _, pattern := range sensitiveFilePatterns {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range defaultExcludeFiles {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range opts.ExcludePatterns {
		if matchFilePattern(base, relPath, pattern) {
			return true
		}
	}
	return s.isIgnored(relPath, absRoot)
}

// isIgnored composes every .gitignore and .memoryignore found from the
// project root down to the file's own directory.
func (s *Scanner) isIgnored(relPath, absRoot string) bool {
	dir := absRoot
	base := ""
	if m := s.matchersFor(dir, base); m != nil {
		if (m.git != nil && m.git.match(relPath, false)) || (m.mine != nil && m.mine.match(relPath, false)) {
			return true
		}
	}

	parts := strings.Split(filepath.Dir(relPath), "/")
	for _, part := range parts {
		if part == "." || part == "" {
			continue
		}
		dir = filepath.Join(dir, part)
		if base == "" {
			base = part
		} else {
			base = base + "/" + part
		}
		if m := s.matchersFor(dir, base); m != nil {
			if (m.git != nil && m.git.match(relPath, false)) || (m.mine != nil && m.mine.match(relPath, false)) {
				return true
			}
		}
	}
	return false
}

func (s *Scanner) matchersFor(dir, base string) *dirMatchers {
	s.cacheMu.RLock()
	m, ok := s.ignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return m
	}

	m = &dirMatchers{}
	if gitPath := filepath.Join(dir, ".gitignore"); fileExists(gitPath) {
		gm := newGitignoreMatcher()
		_ = gm.addFromFile(gitPath, base)
		m.git = gm
	}
	if minePath := filepath.Join(dir, ".memoryignore"); fileExists(minePath) {
		mm := newGitignoreMatcher()
		_ = mm.addFromFile(minePath, base)
		m.mine = mm
	}
	if m.git == nil && m.mine == nil {
		m = nil
	}

	s.cacheMu.Lock()
	s.ignoreCache.Add(dir, m)
	s.cacheMu.Unlock()
	return m
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}

var generatedMarkers = []string{
	"// Code generated",
	"// DO NOT EDIT",
	"/* DO NOT EDIT",
	"# Generated by",
	"<!-- AUTO-GENERATED -->",
	"// Generated by",
	"/* Generated by",
}

func isGeneratedFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	content := string(buf[:n])
	for _, marker := range generatedMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

var defaultExcludeDirs = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/.aws/**",
	"**/.gcp/**",
	"**/.azure/**",
	"**/.ssh/**",
}

var defaultExcludeFiles = []string{
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

var sensitiveFilePatterns = []string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.pfx",
	"*credentials*",
	"*secrets*",
	"*password*",
	".netrc",
	".npmrc",
	".pypirc",
	"id_rsa",
	"id_dsa",
	"id_ecdsa",
	"id_ed25519",
}

func matchDirPattern(relPath, pattern string) bool {
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimSuffix(strings.TrimPrefix(pattern, "**/"), "/**")
		for _, part := range strings.Split(relPath, "/") {
			if part == suffix {
				return true
			}
		}
		return false
	}
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return relPath == prefix || strings.HasPrefix(relPath, prefix+"/")
	}
	return relPath == pattern || strings.HasPrefix(relPath, pattern+"/")
}

func matchFilePattern(baseName, relPath, pattern string) bool {
	if strings.HasSuffix(pattern, "/**") && !strings.HasPrefix(pattern, "**/") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return strings.HasPrefix(relPath, prefix+"/")
	}

	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if strings.HasPrefix(suffix, "*.") {
			return strings.HasSuffix(baseName, strings.TrimPrefix(suffix, "*"))
		}
		for _, part := range strings.Split(relPath, "/") {
			if part == suffix {
				return true
			}
		}
		return false
	}

	switch {
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1:
		middle := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")
		return strings.Contains(strings.ToLower(baseName), strings.ToLower(middle))
	case strings.HasSuffix(pattern, "*") && strings.HasPrefix(pattern, "."):
		return strings.HasPrefix(baseName, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(baseName, strings.TrimPrefix(pattern, "*"))
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(baseName, strings.TrimSuffix(pattern, "*"))
	default:
		return baseName == pattern
	}
}
