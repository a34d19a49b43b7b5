package embed

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
)

// State is the embedding subsystem's lifecycle: a model starts Loading,
// self-tests, and moves to Ready or Failed. It never leaves Failed without
// a process restart.
type State int32

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "loading"
	}
}

// Service is the embedding subsystem's public entry point: Embed/EmbedBatch
// block until the model is Ready (or return the load failure), and all
// concurrent callers share one bounded worker pool.
type Service struct {
	spec   ModelSpec
	dim    int
	cache  *twoTierCache
	engine *engine

	state    atomic.Int32
	ready    chan struct{}
	loadErr  error

	pool chan struct{} // bounded worker pool token bucket
}

// NewService starts loading modelName in the background and returns
// immediately in StateLoading; callers await readiness via Embed/Status.
func NewService(ctx context.Context, cacheDir string, modelName string, mrlDim int, cacheSize int, l2 CacheStore, workers int) (*Service, error) {
	spec, err := Lookup(modelName)
	if err != nil {
		return nil, err
	}
	dim, err := spec.EffectiveDimension(mrlDim)
	if err != nil {
		return nil, err
	}

	cache, err := newTwoTierCache(cacheSize, l2, modelName, dim)
	if err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = 1
	}

	svc := &Service{
		spec:  spec,
		dim:   dim,
		cache: cache,
		ready: make(chan struct{}),
		pool:  make(chan struct{}, workers),
	}

	go svc.load(cacheDir, mrlDim)

	return svc, nil
}

func (s *Service) load(cacheDir string, mrlDim int) {
	defer close(s.ready)

	onnxPath, tokenizerPath, err := EnsureModel(cacheDir, s.spec)
	if err != nil {
		s.fail(err)
		return
	}

	eng, err := loadEngine(s.spec, onnxPath, tokenizerPath)
	if err != nil {
		s.fail(err)
		return
	}

	if err := eng.selfTest(); err != nil {
		eng.close()
		s.fail(err)
		return
	}

	s.engine = eng
	s.state.Store(int32(StateReady))
}

func (s *Service) fail(err error) {
	s.loadErr = err
	s.state.Store(int32(StateFailed))
}

// Status reports the current lifecycle state without blocking.
func (s *Service) Status() State {
	return State(s.state.Load())
}

// awaitReady blocks until the model finishes loading, or ctx is canceled.
func (s *Service) awaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return apperr.Wrap(apperr.NotReady, "embedding_wait_canceled", ctx.Err())
	}
	if s.Status() == StateFailed {
		return apperr.New(apperr.NotReady, "embedding_load_failed", "embedding model failed to load", s.loadErr)
	}
	return nil
}

// WaitReady blocks until the model finishes loading (or ctx is canceled),
// exposing awaitReady to callers outside the package that need to gate
// startup work, such as a one-time dimension-compatibility check, on the
// model actually being ready rather than calling an Embed method.
func (s *Service) WaitReady(ctx context.Context) error {
	return s.awaitReady(ctx)
}

// Dimension returns the effective output dimension after any configured
// Matryoshka truncation.
func (s *Service) Dimension() int {
	return s.dim
}

// ModelName returns the loaded model's registry name.
func (s *Service) ModelName() string {
	return s.spec.Name
}

// CacheStats reports the embedding cache's lifetime hit-rate diagnostics.
func (s *Service) CacheStats() CacheStats {
	return s.cache.stats()
}

// DocumentPrefix returns the model's asymmetric-retrieval document prefix,
// letting callers that batch many documents through EmbedMany apply it
// themselves instead of going through the one-at-a-time EmbedDocument.
func (s *Service) DocumentPrefix() string {
	return s.spec.DocumentPrefix
}

func (s *Service) acquire(ctx context.Context) error {
	select {
	case s.pool <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) release() {
	<-s.pool
}

// EmbedQuery embeds a single query string, applying the model's
// asymmetric-retrieval query prefix where the model defines one.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.embedOne(ctx, s.spec.QueryPrefix+text)
}

// EmbedDocument embeds a single document string with the model's document
// prefix.
func (s *Service) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return s.embedOne(ctx, s.spec.DocumentPrefix+text)
}

func (s *Service) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds many texts, using the cache where possible and
// dispatching cache misses across the bounded worker pool.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	for i, t := range texts {
		if v, found, err := s.cache.get(ctx, t); err != nil {
			return nil, err
		} else if found {
			results[i] = v
		} else {
			missIdx = append(missIdx, i)
		}
	}
	if len(missIdx) == 0 {
		return results, nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil, apperr.Wrap(apperr.Embedding, "embedding_pool_canceled", err)
	}
	defer s.release()

	missTexts := make([]string, len(missIdx))
	for i, idx := range missIdx {
		missTexts[i] = texts[idx]
	}

	raw, err := s.engine.embedBatch(missTexts)
	if err != nil {
		return nil, err
	}

	for i, idx := range missIdx {
		vec, err := truncateMRL(raw[i], s.dim)
		if err != nil {
			return nil, err
		}
		if err := s.cache.put(ctx, missTexts[i], vec); err != nil {
			return nil, err
		}
		results[idx] = vec
	}
	return results, nil
}

// EmbedMany fans embeddings for disjoint batches out across goroutines,
// used by the indexing pipeline when it already has multiple independent
// batches ready rather than one flat slice.
func (s *Service) EmbedMany(ctx context.Context, batches [][]string) ([][][]float32, error) {
	out := make([][][]float32, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			vecs, err := s.EmbedBatch(gctx, batch)
			if err != nil {
				return err
			}
			out[i] = vecs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying ONNX session, if loaded.
func (s *Service) Close() {
	<-s.ready
	if s.engine != nil {
		s.engine.close()
	}
}
