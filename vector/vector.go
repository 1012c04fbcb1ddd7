package vector

import "context"

type EmbeddingFunc func(ctx context.Context, text string) ([]float32, error)

type VectorDB interface {
	Collection(name string, metadata map[string]string) (Collection, error)
}

type Collection interface {
	AddDocuments(ctx context.Context, docs []Document) error
	Query(ctx context.Context, query string, k int) ([]Document, error)
	Count() int
}

type Document struct {
	ID         string            `json:"id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Content    string            `json:"content"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Similarity float32           `json:"similarity,omitempty"`
}
