// Package embed generates dense vector embeddings for text via a local
// CPU ONNX Runtime session — no network calls at embed time, only the
// one-off model download handled by modelhub.go.
package embed

import "github.com/amanmcp-labs/memoryd/internal/apperr"

// Pooling selects how per-token hidden states are reduced to a single
// sentence vector.
type Pooling string

const (
	PoolingMean Pooling = "mean" // masked mean over BERT-family encoders
	PoolingLast Pooling = "last" // last non-padding token, decoder-family
)

// ModelSpec describes one entry in the closed set of supported embedding
// models.
type ModelSpec struct {
	Name          string
	HubRepo       string // Hugging Face hub repo id carrying an ONNX export
	Dimension     int    // native output dimension
	MaxSeqLen     int
	Pooling       Pooling
	MRLDims       []int // allowable Matryoshka truncation targets, descending
	QueryPrefix   string
	DocumentPrefix string
}

// registry is the fixed set of models memoryd knows how to load. Adding a
// model means adding an entry here and nowhere else.
var registry = map[string]ModelSpec{
	"e5_small": {
		Name:          "e5_small",
		HubRepo:       "intfloat/e5-small-v2",
		Dimension:     384,
		MaxSeqLen:     512,
		Pooling:       PoolingMean,
		MRLDims:       []int{384},
		QueryPrefix:   "query: ",
		DocumentPrefix: "passage: ",
	},
	"e5_multi": {
		Name:          "e5_multi",
		HubRepo:       "intfloat/multilingual-e5-base",
		Dimension:     768,
		MaxSeqLen:     512,
		Pooling:       PoolingMean,
		MRLDims:       []int{768, 384, 256},
		QueryPrefix:   "query: ",
		DocumentPrefix: "passage: ",
	},
	"nomic": {
		Name:      "nomic",
		HubRepo:   "nomic-ai/nomic-embed-text-v1.5",
		Dimension: 768,
		MaxSeqLen: 2048,
		Pooling:   PoolingMean,
		MRLDims:   []int{768, 512, 256, 128},
		QueryPrefix:    "search_query: ",
		DocumentPrefix: "search_document: ",
	},
	"bge_m3": {
		Name:      "bge_m3",
		HubRepo:   "BAAI/bge-m3",
		Dimension: 1024,
		MaxSeqLen: 8192,
		Pooling:   PoolingMean,
		MRLDims:   []int{1024},
	},
	"qwen3_0_6b": {
		Name:      "qwen3_0_6b",
		HubRepo:   "Qwen/Qwen3-Embedding-0.6B",
		Dimension: 1024,
		MaxSeqLen: 32768,
		Pooling:   PoolingLast,
		MRLDims:   []int{1024, 768, 512},
	},
	"gemma_300m": {
		Name:      "gemma_300m",
		HubRepo:   "google/embeddinggemma-300m",
		Dimension: 768,
		MaxSeqLen: 2048,
		Pooling:   PoolingMean,
		MRLDims:   []int{768, 512, 256, 128},
	},
}

// DefaultModel is used when no model is configured.
const DefaultModel = "e5_multi"

// Lookup returns the ModelSpec for name.
func Lookup(name string) (ModelSpec, error) {
	spec, ok := registry[name]
	if !ok {
		return ModelSpec{}, apperr.Validationf("unknown_embedding_model", "unknown embedding model %q", name)
	}
	return spec, nil
}

// Names returns every supported model name, for list_models.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// EffectiveDimension resolves the output dimension after an optional
// Matryoshka truncation request. mrlDim of 0 means "use the model's native
// dimension".
func (m ModelSpec) EffectiveDimension(mrlDim int) (int, error) {
	if mrlDim == 0 {
		return m.Dimension, nil
	}
	for _, d := range m.MRLDims {
		if d == mrlDim {
			return d, nil
		}
	}
	return 0, apperr.Validationf("unsupported_mrl_dim", "model %q does not support mrl_dim=%d", m.Name, mrlDim)
}
