package chromem

import (
	"context"
	"runtime"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/chattube/vector"
)

// NewChromemVectorDB opens a chromem database. An empty path keeps
// everything in memory; otherwise documents are persisted under path.
func NewChromemVectorDB(path string, compress bool, embed vector.EmbeddingFunc) (vector.VectorDB, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, err
		}

		db = d
	}

	var ef chromem.EmbeddingFunc
	if embed != nil {
		ef = chromem.EmbeddingFunc(embed)
	}

	return &chromemVectorDB{db, ef}, nil
}

type chromemVectorDB struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

func (vector *chromemVectorDB) Collection(name string, metadata map[string]string) (vector.Collection, error) {
	c, err := vector.db.GetOrCreateCollection(name, metadata, vector.embed)
	if err != nil {
		return nil, err
	}

	return &collection{c}, nil
}

type collection struct {
	collection *chromem.Collection
}

func (c *collection) AddDocuments(ctx context.Context, docs []vector.Document) error {
	documents := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		documents[i] = chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
			Content:   doc.Content,
		}
	}

	return c.collection.AddDocuments(ctx, documents, runtime.NumCPU())
}

func (c *collection) Query(ctx context.Context, query string, k int) ([]vector.Document, error) {
	count := c.collection.Count()
	if count == 0 || k <= 0 {
		return []vector.Document{}, nil
	}

	if k > count {
		k = count
	}

	results, err := c.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Document, len(results))
	for i, result := range results {
		docs[i] = vector.Document{
			ID:         result.ID,
			Metadata:   result.Metadata,
			Embedding:  result.Embedding,
			Content:    result.Content,
			Similarity: result.Similarity,
		}
	}

	return docs, nil
}

func (c *collection) Count() int {
	return c.collection.Count()
}
