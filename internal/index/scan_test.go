package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func scanAll(t *testing.T, s *Scanner, root string) []FileInfo {
	t.Helper()
	ch, err := s.Scan(context.Background(), ScanOptions{RootDir: root})
	require.NoError(t, err)

	var files []FileInfo
	for r := range ch {
		require.NoError(t, r.Err)
		files = append(files, *r.File)
	}
	return files
}

func TestScanner_FindsSourceFilesAndDetectsLanguage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "README.md", "# hello\n")

	s, err := NewScanner()
	require.NoError(t, err)

	files := scanAll(t, s, root)
	require.Len(t, files, 2)

	byPath := map[string]FileInfo{}
	for _, f := range files {
		byPath[f.Path] = f
	}
	assert.Equal(t, "go", byPath["main.go"].Language)
}

func TestScanner_SkipsGitignoredFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\n")
	writeFile(t, root, "keep.go", "package main\n")
	writeFile(t, root, "debug.log", "noisy\n")

	s, err := NewScanner()
	require.NoError(t, err)

	files := scanAll(t, s, root)
	require.Len(t, files, 1)
	assert.Equal(t, "keep.go", files[0].Path)
}

func TestScanner_SkipsMemoryignoredFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".memoryignore", "secret_notes.md\n")
	writeFile(t, root, "secret_notes.md", "do not index\n")
	writeFile(t, root, "public_notes.md", "index me\n")

	s, err := NewScanner()
	require.NoError(t, err)

	files := scanAll(t, s, root)
	require.Len(t, files, 1)
	assert.Equal(t, "public_notes.md", files[0].Path)
}

func TestScanner_SkipsDefaultExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {};\n")
	writeFile(t, root, "src/app.js", "console.log('hi');\n")

	s, err := NewScanner()
	require.NoError(t, err)

	files := scanAll(t, s, root)
	require.Len(t, files, 1)
	assert.Equal(t, "src/app.js", files[0].Path)
}

func TestScanner_SkipsSensitiveFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".env", "SECRET=1\n")
	writeFile(t, root, "id_rsa", "----BEGIN----\n")
	writeFile(t, root, "app.go", "package main\n")

	s, err := NewScanner()
	require.NoError(t, err)

	files := scanAll(t, s, root)
	require.Len(t, files, 1)
	assert.Equal(t, "app.go", files[0].Path)
}

func TestScanner_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package main\n")

	s, err := NewScanner()
	require.NoError(t, err)

	ch, err := s.Scan(context.Background(), ScanOptions{RootDir: root, MaxFileSize: 1})
	require.NoError(t, err)

	var files []FileInfo
	for r := range ch {
		files = append(files, *r.File)
	}
	assert.Empty(t, files)
}

func TestScanner_RejectsNonDirectoryRoot(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))

	s, err := NewScanner()
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), ScanOptions{RootDir: filePath})
	assert.Error(t, err)
}
