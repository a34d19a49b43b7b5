package embed

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
)

const hubBaseURL = "https://huggingface.co"

// modelFiles are fetched for every registry entry; onnxFileCandidates are
// tried in order so a model that only ships a quantized export still loads.
var onnxFileCandidates = []string{"model.onnx", "onnx/model.onnx", "model_quantized.onnx", "onnx/model_quantized.onnx"}

const tokenizerFile = "tokenizer.json"

// ModelDir returns the local cache directory for a model.
func ModelDir(cacheDir, modelName string) string {
	return filepath.Join(cacheDir, "models", modelName)
}

// EnsureModel downloads a model's ONNX export and tokenizer into
// <cacheDir>/models/<name>/ if not already present, guarded by a
// cross-process file lock so concurrent memoryd instances don't race the
// download.
func EnsureModel(cacheDir string, spec ModelSpec) (onnxPath, tokenizerPath string, err error) {
	dir := ModelDir(cacheDir, spec.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", apperr.Wrap(apperr.Embedding, "model_dir_create_failed", err)
	}

	lock := flock.New(filepath.Join(dir, ".download.lock"))
	if err := lock.Lock(); err != nil {
		return "", "", apperr.Wrap(apperr.Embedding, "model_lock_failed", err)
	}
	defer func() { _ = lock.Unlock() }()

	onnxPath, err = resolveOrDownloadONNX(dir, spec)
	if err != nil {
		return "", "", err
	}

	tokenizerPath = filepath.Join(dir, tokenizerFile)
	if !fileExistsNonEmpty(tokenizerPath) {
		if err := downloadFile(hubFileURL(spec.HubRepo, tokenizerFile), tokenizerPath); err != nil {
			return "", "", apperr.Wrap(apperr.Embedding, "tokenizer_download_failed", err)
		}
	}

	return onnxPath, tokenizerPath, nil
}

func resolveOrDownloadONNX(dir string, spec ModelSpec) (string, error) {
	for _, candidate := range onnxFileCandidates {
		path := filepath.Join(dir, filepath.Base(candidate))
		if fileExistsNonEmpty(path) {
			return path, nil
		}
	}

	dest := filepath.Join(dir, "model.onnx")
	var lastErr error
	for _, candidate := range onnxFileCandidates {
		if err := downloadFile(hubFileURL(spec.HubRepo, candidate), dest); err == nil {
			return dest, nil
		} else {
			lastErr = err
		}
	}
	return "", apperr.Wrap(apperr.Embedding, "onnx_download_failed", lastErr)
}

func hubFileURL(repo, file string) string {
	return fmt.Sprintf("%s/%s/resolve/main/%s", hubBaseURL, repo, file)
}

func fileExistsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func downloadFile(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, dest)
}
