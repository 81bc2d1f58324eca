package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/finsight/creditrag/internal/types"
)

// WorkerError reports which embedding worker failed and the chunk range it
// was assigned. Any worker failure aborts the whole embedding run.
type WorkerError struct {
	Group int
	Start int
	End   int
	Err   error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("embedding worker %d (chunks %d-%d) failed: %v", e.Group, e.Start, e.End-1, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// partition splits n items into at most workers contiguous groups of
// near-equal size, larger groups first, preserving order. Empty groups are
// dropped, so fewer groups than workers come back when n < workers.
func partition(n, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	groups := make([][2]int, 0, workers)
	base := n / workers
	extra := n % workers
	start := 0
	for g := 0; g < workers; g++ {
		size := base
		if g < extra {
			size++
		}
		if size == 0 {
			continue
		}
		groups = append(groups, [2]int{start, start + size})
		start += size
	}
	return groups
}

// EmbedParallel embeds texts across a fixed pool of workers. Each worker
// builds its own embedder from the factory, embeds one contiguous partition,
// and the results are joined back in partition order, so the output order
// always equals the input order regardless of which worker finishes first.
//
// The call blocks until every worker completes. If any worker fails the
// whole call fails with a WorkerError and no partial result is returned.
func EmbedParallel(ctx context.Context, factory types.EmbedderFactory, texts []string, workers int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if workers <= 1 {
		emb, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		return emb.CreateEmbedding(ctx, texts)
	}

	groups := partition(len(texts), workers)
	results := make([][][]float32, len(groups))
	errs := make([]error, len(groups))

	var wg sync.WaitGroup
	for g, bounds := range groups {
		wg.Add(1)
		go func(g int, start, end int) {
			defer wg.Done()
			emb, err := factory()
			if err != nil {
				errs[g] = &WorkerError{Group: g, Start: start, End: end, Err: err}
				return
			}
			vectors, err := emb.CreateEmbedding(ctx, texts[start:end])
			if err != nil {
				errs[g] = &WorkerError{Group: g, Start: start, End: end, Err: err}
				return
			}
			results[g] = vectors
		}(g, bounds[0], bounds[1])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	combined := make([][]float32, 0, len(texts))
	for _, vectors := range results {
		combined = append(combined, vectors...)
	}
	return combined, nil
}
