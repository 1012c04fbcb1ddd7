package ai

import (
	"context"
	"errors"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/embeddings"
)

var ErrEmbeddingCountMismatch = errors.New("embedding count does not match input")

// Embedder embeds texts in batches, running the batches concurrently on a
// bounded worker pool. It is safe for concurrent use.
type Embedder struct {
	embedder  embeddings.Embedder
	pool      *ants.Pool
	batchSize int
}

func NewEmbedder(client embeddings.EmbedderClient, batchSize int, poolSize int) (*Embedder, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	if poolSize < 1 {
		poolSize = 1
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:  embedder,
		pool:      pool,
		batchSize: batchSize,
	}, nil
}

// EmbedText embeds a single query text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.EmbedQuery(ctx, text)
}

// EmbedTexts returns one embedding per text, in input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()

			vectors, err := e.embedder.EmbedDocuments(ctx, texts[start:end])
			if err != nil {
				fail(err)
				return
			}

			if len(vectors) != end-start {
				fail(ErrEmbeddingCountMismatch)
				return
			}

			copy(results[start:end], vectors)
		})

		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return results, nil
}

func (e *Embedder) Release() {
	e.pool.Release()
}
