package embed

import (
	"math"
	"runtime"
	"sync"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
)

// engine wraps a single ONNX Runtime session and tokenizer for one loaded
// model. All Run calls are serialized by mu: onnxruntime_go sessions are
// not safe for concurrent Run.
type engine struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tokenizer *tokenizers.Tokenizer
	spec      ModelSpec
	vocabSize int
}

var ortInitOnce sync.Once
var ortInitErr error

func initONNXRuntime() error {
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// loadEngine loads the ONNX model and tokenizer for spec from onnxPath and
// tokenizerPath.
func loadEngine(spec ModelSpec, onnxPath, tokenizerPath string) (*engine, error) {
	if err := initONNXRuntime(); err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "ort_init_failed", err)
	}

	threads := runtime.NumCPU()
	if threads > 4 {
		threads = 4
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "ort_session_options_failed", err)
	}
	defer opts.Destroy()

	if err := opts.SetIntraOpNumThreads(threads); err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "ort_intra_threads_failed", err)
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "ort_inter_threads_failed", err)
	}

	inputNames := []string{"input_ids", "attention_mask", "token_type_ids"}
	outputNames := []string{"last_hidden_state"}

	session, err := ort.NewDynamicAdvancedSession(onnxPath, inputNames, outputNames, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "ort_session_create_failed", err)
	}

	tk, err := tokenizers.FromFile(tokenizerPath)
	if err != nil {
		session.Destroy()
		return nil, apperr.Wrap(apperr.Embedding, "tokenizer_load_failed", err)
	}

	return &engine{
		session:   session,
		tokenizer: tk,
		spec:      spec,
		vocabSize: int(tk.VocabSize()),
	}, nil
}

func (e *engine) close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.tokenizer != nil {
		e.tokenizer.Close()
	}
}

type encodedText struct {
	ids  []int64
	mask []int64
}

func (e *engine) encode(text string) encodedText {
	enc := e.tokenizer.EncodeWithOptions(text, true, tokenizers.WithReturnAttentionMask())

	ids := enc.IDs
	if len(ids) > e.spec.MaxSeqLen {
		ids = ids[:e.spec.MaxSeqLen]
	}

	ids64 := make([]int64, len(ids))
	mask64 := make([]int64, len(ids))
	for i, id := range ids {
		// A corrupted or mismatched tokenizer.json could in principle emit an
		// id outside the model's embedding table; remap rather than let the
		// forward pass index out of bounds.
		if int(id) >= e.vocabSize {
			ids64[i] = int64(e.unkID())
		} else {
			ids64[i] = int64(id)
		}
		mask64[i] = 1
	}
	if len(enc.AttentionMask) >= len(ids) {
		for i := range mask64 {
			mask64[i] = int64(enc.AttentionMask[i])
		}
	}

	return encodedText{ids: ids64, mask: mask64}
}

func (e *engine) unkID() uint32 {
	if id, ok := e.tokenizer.TokenToID("[UNK]"); ok {
		return id
	}
	return 0
}

// embedBatch runs one forward pass over texts and returns pooled,
// L2-normalized vectors at the model's native dimension.
func (e *engine) embedBatch(texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	batchSize := len(texts)
	encoded := make([]encodedText, batchSize)
	maxLen := 0
	for i, text := range texts {
		encoded[i] = e.encode(text)
		if len(encoded[i].ids) > maxLen {
			maxLen = len(encoded[i].ids)
		}
	}
	if maxLen == 0 {
		return nil, apperr.New(apperr.Embedding, "empty_tokenization", "all inputs tokenized to zero length", nil)
	}

	flatIDs := make([]int64, batchSize*maxLen)
	flatMask := make([]int64, batchSize*maxLen)
	flatType := make([]int64, batchSize*maxLen)
	for i, enc := range encoded {
		copy(flatIDs[i*maxLen:], enc.ids)
		copy(flatMask[i*maxLen:], enc.mask)
	}

	shape := ort.NewShape(int64(batchSize), int64(maxLen))

	inputIDs, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "ort_input_ids_tensor_failed", err)
	}
	defer inputIDs.Destroy()

	attnMask, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "ort_attention_mask_tensor_failed", err)
	}
	defer attnMask.Destroy()

	typeIDs, err := ort.NewTensor(shape, flatType)
	if err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "ort_token_type_tensor_failed", err)
	}
	defer typeIDs.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{inputIDs, attnMask, typeIDs}, outputs); err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "ort_run_failed", err)
	}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	hiddenTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, apperr.New(apperr.Embedding, "unexpected_output_type", "expected *Tensor[float32] output", nil)
	}
	hidden := hiddenTensor.GetData()
	seqLen := int(hiddenTensor.GetShape()[1])
	dim := e.spec.Dimension

	vectors := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		base := i * seqLen * dim
		vec := pool(e.spec.Pooling, hidden[base:base+seqLen*dim], encoded[i].mask, seqLen, dim)
		if err := l2Normalize(vec); err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// pool reduces per-token hidden states to a single sentence vector.
func pool(strategy Pooling, hidden []float32, mask []int64, seqLen, dim int) []float32 {
	vec := make([]float32, dim)

	switch strategy {
	case PoolingLast:
		last := 0
		for t := 0; t < seqLen && t < len(mask); t++ {
			if mask[t] != 0 {
				last = t
			}
		}
		copy(vec, hidden[last*dim:last*dim+dim])
	default: // PoolingMean
		var count float32
		for t := 0; t < seqLen; t++ {
			if t < len(mask) && mask[t] == 0 {
				continue
			}
			for d := 0; d < dim; d++ {
				vec[d] += hidden[t*dim+d]
			}
			count++
		}
		if count > 0 {
			for d := range vec {
				vec[d] /= count
			}
		}
	}
	return vec
}

// l2Normalize normalizes v to unit length in-place. A norm below 1e-6
// indicates a degenerate (likely all-padding or numerically failed) output
// rather than a legitimately tiny vector, so it is reported as an error
// instead of silently dividing by a near-zero value.
func l2Normalize(v []float32) error {
	var sumSquares float64
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return apperr.New(apperr.Embedding, "non_finite_embedding", "embedding contains NaN or Inf", nil)
		}
		sumSquares += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSquares)
	if norm < 1e-6 {
		return apperr.New(apperr.Embedding, "degenerate_embedding", "embedding norm below threshold", nil)
	}
	inv := float32(1.0 / norm)
	for i := range v {
		v[i] *= inv
	}
	return nil
}

// truncateMRL keeps the first k components of a Matryoshka-trained
// embedding and renormalizes.
func truncateMRL(v []float32, k int) ([]float32, error) {
	if k <= 0 || k >= len(v) {
		return v, nil
	}
	out := make([]float32, k)
	copy(out, v[:k])
	if err := l2Normalize(out); err != nil {
		return nil, err
	}
	return out, nil
}

// selfTestInputs exercise ASCII, emoji, mixed-script, and long-input code
// paths before a model is allowed to transition to Ready.
var selfTestInputs = []string{
	"the quick brown fox jumps over the lazy dog",
	"hello \U0001F600 world \U0001F30D",
	"機械学習 is machine learning, mélange of 中文 and English",
	longSelfTestInput(),
}

func longSelfTestInput() string {
	s := make([]byte, 0, 4100)
	for len(s) < 4100 {
		s = append(s, "the quick brown fox jumps over the lazy dog. "...)
	}
	return string(s)
}

// selfTest runs the fixed battery through the full pipeline and reports the
// first failure, used to gate the Loading -> Ready transition.
func (e *engine) selfTest() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.New(apperr.Embedding, "self_test_panic", "self-test panicked", nil)
		}
	}()

	vecs, runErr := e.embedBatch(selfTestInputs)
	if runErr != nil {
		return runErr
	}
	for _, v := range vecs {
		if len(v) != e.spec.Dimension {
			return apperr.New(apperr.Embedding, "self_test_dimension_mismatch", "self-test output dimension mismatch", nil)
		}
	}
	return nil
}
