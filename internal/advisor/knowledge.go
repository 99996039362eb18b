package advisor

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/agrovoice/agrovoice/internal/llm"
	"github.com/agrovoice/agrovoice/pkg/vectorindex"
)

const ragPromptTemplate = `Answer the farmer's question using ONLY the excerpts below.
If the excerpts do not contain the answer, say so briefly.
Cite the excerpt titles you used.

%s

Question: %s

Answer:`

const generalPromptTemplate = `You are a farm advisory assistant. Answer the farmer's question from
general agricultural knowledge in two or three sentences.

Question: %s

Answer:`

// KnowledgeWorker answers faq intents by retrieval-augmented generation:
// embed the question, take the top matches from the knowledge index, and
// answer strictly from those excerpts with citations. When retrieval yields
// nothing the worker degrades to an uncited general-knowledge answer.
type KnowledgeWorker struct {
	completer llm.Completer
	embedder  llm.Embedder
	index     *vectorindex.Index
	topK      int
}

// NewKnowledgeWorker creates the RAG worker over the given index.
func NewKnowledgeWorker(completer llm.Completer, embedder llm.Embedder, index *vectorindex.Index, topK int) *KnowledgeWorker {
	if topK <= 0 {
		topK = 3
	}
	return &KnowledgeWorker{completer: completer, embedder: embedder, index: index, topK: topK}
}

func (w *KnowledgeWorker) Advise(ctx context.Context, in Input) (*Result, error) {
	results := w.retrieve(ctx, in.Text)

	var prompt string
	sources := make([]string, 0, len(results))
	if len(results) > 0 {
		var excerpts strings.Builder
		for i, r := range results {
			fmt.Fprintf(&excerpts, "Excerpt %d (%s):\n%s\n\n", i+1, r.Title, r.Content)
			sources = append(sources, r.Title)
		}
		prompt = fmt.Sprintf(ragPromptTemplate, strings.TrimSpace(excerpts.String()), in.Text)
	} else {
		prompt = fmt.Sprintf(generalPromptTemplate, in.Text)
	}

	answer, err := w.completer.Complete(ctx, prompt)
	if err != nil {
		log.Printf("knowledge worker completion failed: %v", err)
		answer = fallbackAdvice
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = fallbackAdvice
	}

	fields := []Field{
		{Key: "answer", Value: answer},
	}
	if len(sources) > 0 {
		fields = append(fields, Field{Key: "sources", Value: strings.Join(sources, "; ")})
	}
	fields = append(fields, Field{Key: "source_count", Value: strconv.Itoa(len(sources))})

	return &Result{
		Fields:  fields,
		Sources: sources,
	}, nil
}

// retrieve embeds the question and searches the index. Any failure along the
// way is logged and treated as zero hits so the worker can still answer.
func (w *KnowledgeWorker) retrieve(ctx context.Context, question string) []vectorindex.SearchResult {
	if w.index == nil || w.index.Len() == 0 {
		return nil
	}
	query, err := w.embedder.Embed(ctx, question)
	if err != nil {
		log.Printf("knowledge worker embedding failed: %v", err)
		return nil
	}
	results, err := w.index.Search(query, w.topK)
	if err != nil {
		log.Printf("knowledge worker search failed: %v", err)
		return nil
	}
	return results
}
