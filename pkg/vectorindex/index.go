// Package vectorindex provides a brute-force nearest-neighbor index over
// fixed-dimension embeddings. The scan is O(n*d) per query, which is
// acceptable because the knowledge corpus is small and static; an approximate
// index can replace it behind the same contract without changing callers.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Document is an immutable knowledge document with a precomputed embedding.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	ID      string
	Title   string
	Content string
	Score   float32
}

// Index is a brute-force cosine-similarity index. Safe for concurrent use;
// the corpus is read-only after loading.
type Index struct {
	dims int
	mu   sync.RWMutex
	docs []Document
}

// New creates an index for embeddings of the given dimension.
func New(dims int) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be greater than 0, got %d", dims)
	}
	return &Index{dims: dims}, nil
}

// Add appends documents to the index. Insertion order is preserved and used
// to break score ties deterministically.
func (idx *Index) Add(docs ...Document) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i := range docs {
		if len(docs[i].Embedding) != idx.dims {
			return fmt.Errorf("document %s embedding dimension mismatch: expected %d, got %d",
				docs[i].ID, idx.dims, len(docs[i].Embedding))
		}
	}
	idx.docs = append(idx.docs, docs...)
	return nil
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Search returns up to k documents ordered by descending cosine similarity to
// the query embedding, ties broken by insertion order. Searching an empty
// index returns an empty slice, never an error.
func (idx *Index) Search(query []float32, k int) ([]SearchResult, error) {
	if len(query) != idx.dims {
		return nil, fmt.Errorf("query embedding dimension mismatch: expected %d, got %d",
			idx.dims, len(query))
	}
	if k <= 0 {
		return []SearchResult{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type candidate struct {
		pos   int
		score float32
	}
	candidates := make([]candidate, len(idx.docs))
	for i := range idx.docs {
		candidates[i] = candidate{pos: i, score: cosineSimilarity(query, idx.docs[i].Embedding)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	results := make([]SearchResult, 0, k)
	for _, c := range candidates[:k] {
		doc := idx.docs[c.pos]
		results = append(results, SearchResult{
			ID:      doc.ID,
			Title:   doc.Title,
			Content: doc.Content,
			Score:   c.score,
		})
	}
	return results, nil
}

// cosineSimilarity is dot(a,b) / (|a| * |b|). A zero-norm vector yields 0
// rather than a division error.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProd, normA, normB float32
	for i := range a {
		dotProd += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProd / (sqrt(normA) * sqrt(normB))
}

func sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
