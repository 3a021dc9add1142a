package tools

import (
	"context"
	"encoding/json"

	"github.com/libra-agent/libra/llm"
	"github.com/libra-agent/libra/model"
	"github.com/libra-agent/libra/storage"
)

const (
	vectorSearchDefault = 5
	vectorSearchMax     = 20
)

// VectorSearchTool finds passages from the user's ingested documents that
// are semantically similar to a query.
type VectorSearchTool struct {
	embedder llm.Embedder
	searcher storage.ChunkSearcher
}

// NewVectorSearchTool creates a vector search tool.
func NewVectorSearchTool(embedder llm.Embedder, searcher storage.ChunkSearcher) *VectorSearchTool {
	return &VectorSearchTool{embedder: embedder, searcher: searcher}
}

func (t *VectorSearchTool) Metadata() Metadata {
	return Metadata{
		Name:        "vectorSearch",
		Description: "Search the user's ingested documents for passages semantically similar to a query. Use for questions about the user's own files.",
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "The question or phrase to search for", Required: true},
			{Name: "topK", Type: "number", Description: "Number of passages to return (1-20, default 5)", Required: false},
		},
	}
}

type vectorSearchChunk struct {
	Content      string  `json:"content"`
	DocumentName string  `json:"documentName"`
	ChunkIndex   int     `json:"chunkIndex"`
	Distance     float64 `json:"distance"`
}

func (t *VectorSearchTool) Execute(ctx context.Context, args map[string]json.RawMessage, tc Context) Result {
	query, err := stringArg(args, "query")
	if err != nil {
		return Failure(err)
	}
	topK, err := intArg(args, "topK", vectorSearchDefault)
	if err != nil {
		return Failure(err)
	}
	topK = clamp(topK, 1, vectorSearchMax)

	embedding, err := t.embedder.EmbedText(ctx, query)
	if err != nil {
		return Failuref("embedding query: %v", err)
	}

	matches, err := t.searcher.SearchChunks(ctx, tc.UserID, embedding, topK)
	if err != nil {
		return Failuref("vector search failed: %v", err)
	}

	chunks := make([]vectorSearchChunk, 0, len(matches))
	sources := sourceDocuments(matches)
	for _, m := range matches {
		chunks = append(chunks, vectorSearchChunk{
			Content:      m.Content,
			DocumentName: m.DocumentName,
			ChunkIndex:   m.Metadata.ChunkIndex,
			Distance:     m.Distance,
		})
	}
	return Success(map[string]any{
		"query":            query,
		"chunks":           chunks,
		"source_documents": sources,
	})
}

// sourceDocuments lists the distinct document names behind the matches,
// preserving match order.
func sourceDocuments(matches []model.ChunkMatch) []string {
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.DocumentName == "" || seen[m.DocumentName] {
			continue
		}
		seen[m.DocumentName] = true
		names = append(names, m.DocumentName)
	}
	return names
}
