// Package storage provides SQLite persistence for ingested documents,
// their embedded chunks, Drive OAuth tokens, and chat history.
//
// Information Hiding:
// - SQLite connection management hidden behind interfaces
// - Schema and embedding encoding details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"

	"github.com/libra-agent/libra/model"
)

// DocumentStore persists document records and their chunks.
type DocumentStore interface {
	// FindDocument returns the document for (fileID, userID), or nil when
	// no such document exists.
	FindDocument(ctx context.Context, fileID, userID string) (*model.Document, error)

	// UpsertDocument inserts the document or, when a record for
	// (fileID, userID) already exists, updates its metadata in place.
	// The returned document carries the stable record ID.
	UpsertDocument(ctx context.Context, doc model.Document) (model.Document, error)

	// DeleteDocumentByFileID removes the user's document for the Drive
	// file along with all of its chunks. Missing documents are a no-op.
	DeleteDocumentByFileID(ctx context.Context, fileID, userID string) error

	// DeleteChunksByDocument removes every chunk belonging to a document.
	DeleteChunksByDocument(ctx context.Context, documentID string) error

	// InsertChunks stores embedded chunks in a single transaction.
	InsertChunks(ctx context.Context, chunks []model.Chunk) error
}

// ChunkSearcher finds the chunks closest to a query embedding.
type ChunkSearcher interface {
	// SearchChunks returns up to topK of the user's chunks ordered by
	// ascending cosine distance to the query embedding.
	SearchChunks(ctx context.Context, userID string, embedding []float32, topK int) ([]model.ChunkMatch, error)
}

// ConversationStore persists chat turns grouped by session.
type ConversationStore interface {
	SaveTurn(ctx context.Context, turn model.ChatTurn) error
	Turns(ctx context.Context, sessionID string) ([]model.ChatTurn, error)
}
