package embed

import (
	"context"
	"time"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
)

// maxBatchWindow bounds how long the queue worker waits to accumulate a
// batch before embedding whatever it has.
const maxBatchWindow = 50 * time.Millisecond

// Updater is called once per drained batch with the batch's ids and their
// embedding vectors, in matching order, to persist them. It returns one
// error slot per id, so one bad record fails only its own Submit and never
// its co-batched siblings.
type Updater interface {
	ApplyEmbeddings(ctx context.Context, ids []string, vectors [][]float32) []error
}

type embedRequest struct {
	id      string
	text    string
	resultC chan error
}

// batcher is the embedding capability Queue depends on; *Service satisfies
// it, and tests supply a fake to exercise batching/backpressure without a
// real ONNX session.
type batcher interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Queue is a bounded MPSC write-back queue: producers submit (id, text)
// pairs and block cooperatively when the queue is full; a single worker
// goroutine drains it, batches by a time window (maxBatchWindow) or an
// item-count bound (maxBatchItems), whichever comes first, embeds once per
// batch, and writes back through Updater. A batch's size is not bounded by
// its texts' token count.
type Queue struct {
	svc           batcher
	updater       Updater
	maxBatchItems int
	reqs          chan embedRequest
	done          chan struct{}
}

// NewQueue starts a background worker draining the queue. depth bounds how
// many pending requests may be buffered before Submit blocks.
func NewQueue(svc *Service, updater Updater, depth, maxBatchItems int) *Queue {
	return newQueue(svc, updater, depth, maxBatchItems)
}

func newQueue(svc batcher, updater Updater, depth, maxBatchItems int) *Queue {
	if depth <= 0 {
		depth = 1
	}
	if maxBatchItems <= 0 {
		maxBatchItems = 32
	}
	q := &Queue{
		svc:           svc,
		updater:       updater,
		maxBatchItems: maxBatchItems,
		reqs:          make(chan embedRequest, depth),
		done:          make(chan struct{}),
	}
	go q.run()
	return q
}

// Depth reports how many requests are currently buffered, for
// backpressure-aware callers.
func (q *Queue) Depth() int {
	return len(q.reqs)
}

// Submit enqueues one item and blocks until it has been embedded and
// written back, or ctx is canceled.
func (q *Queue) Submit(ctx context.Context, id, text string) error {
	req := embedRequest{id: id, text: text, resultC: make(chan error, 1)}
	select {
	case q.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.resultC:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new requests and waits for the worker to exit
// after draining whatever is queued.
func (q *Queue) Close() {
	close(q.reqs)
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		batch, ok := q.collect()
		if len(batch) > 0 {
			q.process(batch)
		}
		if !ok {
			return
		}
	}
}

func (q *Queue) collect() ([]embedRequest, bool) {
	var batch []embedRequest

	req, ok := <-q.reqs
	if !ok {
		return batch, false
	}
	batch = append(batch, req)

	timer := time.NewTimer(maxBatchWindow)
	defer timer.Stop()

	for len(batch) < q.maxBatchItems {
		select {
		case req, ok := <-q.reqs:
			if !ok {
				return batch, false
			}
			batch = append(batch, req)
		case <-timer.C:
			return batch, true
		}
	}
	return batch, true
}

func (q *Queue) process(batch []embedRequest) {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.text
	}

	vecs, err := q.svc.EmbedBatch(context.Background(), texts)
	if err != nil {
		for _, r := range batch {
			r.resultC <- err
		}
		return
	}

	ids := make([]string, len(batch))
	for i, r := range batch {
		ids[i] = r.id
	}

	itemErrs := q.updater.ApplyEmbeddings(context.Background(), ids, vecs)
	for i, r := range batch {
		if itemErrs != nil && i < len(itemErrs) && itemErrs[i] != nil {
			r.resultC <- apperr.Wrap(apperr.Embedding, "batch_update_item_failed", itemErrs[i])
			continue
		}
		r.resultC <- nil
	}
}
