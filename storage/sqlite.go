package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/libra-agent/libra/drive"
	"github.com/libra-agent/libra/model"
)

// SqliteStore implements DocumentStore, ChunkSearcher, ConversationStore
// and drive.TokenStore on a single SQLite database.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(file_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			FOREIGN KEY(document_id) REFERENCES documents(id)
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

		CREATE TABLE IF NOT EXISTS drive_tokens (
			user_id TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS chat_turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			task TEXT NOT NULL,
			summary TEXT NOT NULL,
			detailed_answer TEXT NOT NULL,
			sources TEXT NOT NULL,
			token_usage INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turns_session ON chat_turns(session_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// FindDocument returns the document for (fileID, userID), or nil when absent.
func (s *SqliteStore) FindDocument(ctx context.Context, fileID, userID string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_id, user_id, name, mime_type, updated_at
		FROM documents WHERE file_id = ? AND user_id = ?`, fileID, userID)

	var doc model.Document
	var updatedAt string
	err := row.Scan(&doc.ID, &doc.FileID, &doc.UserID, &doc.Name, &doc.MimeType, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	doc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing document timestamp: %w", err)
	}
	return &doc, nil
}

// UpsertDocument inserts or updates the record keyed by (fileID, userID).
func (s *SqliteStore) UpsertDocument(ctx context.Context, doc model.Document) (model.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, file_id, user_id, name, mime_type, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, user_id) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			updated_at = excluded.updated_at`,
		doc.ID, doc.FileID, doc.UserID, doc.Name, doc.MimeType,
		doc.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return model.Document{}, fmt.Errorf("upserting document: %w", err)
	}

	// The conflict path keeps the existing row ID, so read it back.
	stored, err := s.FindDocument(ctx, doc.FileID, doc.UserID)
	if err != nil {
		return model.Document{}, err
	}
	return *stored, nil
}

// DeleteDocumentByFileID removes the user's document and its chunks.
func (s *SqliteStore) DeleteDocumentByFileID(ctx context.Context, fileID, userID string) error {
	doc, err := s.FindDocument(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	if err := s.DeleteChunksByDocument(ctx, doc.ID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, doc.ID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// DeleteChunksByDocument removes every chunk belonging to a document.
func (s *SqliteStore) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// InsertChunks stores embedded chunks in a single transaction.
func (s *SqliteStore) InsertChunks(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, embedding, chunk_index, total_chunks)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		id := ch.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := stmt.ExecContext(ctx, id, ch.DocumentID, ch.Content,
			encodeVector(ch.Embedding), ch.Metadata.ChunkIndex, ch.Metadata.TotalChunks)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", ch.Metadata.ChunkIndex, err)
		}
	}
	return tx.Commit()
}

// SearchChunks scans the user's chunks and returns the topK closest by
// cosine distance, ascending. Candidate sets are per user, so a full scan
// with in-process scoring stays cheap.
func (s *SqliteStore) SearchChunks(ctx context.Context, userID string, embedding []float32, topK int) ([]model.ChunkMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, d.name, c.content, c.embedding, c.chunk_index, c.total_chunks
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var matches []model.ChunkMatch
	for rows.Next() {
		var m model.ChunkMatch
		var blob []byte
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.DocumentName, &m.Content, &blob,
			&m.Metadata.ChunkIndex, &m.Metadata.TotalChunks); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		if len(vec) != len(embedding) {
			return nil, fmt.Errorf("chunk %s has embedding dimension %d, query has %d", m.ID, len(vec), len(embedding))
		}
		m.Distance = CosineDistance(embedding, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// SaveDriveTokens stores or replaces the user's Drive credentials.
func (s *SqliteStore) SaveDriveTokens(ctx context.Context, userID string, tokens drive.Tokens) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drive_tokens (user_id, access_token, refresh_token, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at`,
		userID, tokens.AccessToken, tokens.RefreshToken,
		tokens.ExpiresAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving drive tokens: %w", err)
	}
	return nil
}

// DriveTokens returns the user's stored credentials, or nil when the user
// has never connected Drive.
func (s *SqliteStore) DriveTokens(ctx context.Context, userID string) (*drive.Tokens, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, expires_at
		FROM drive_tokens WHERE user_id = ?`, userID)

	var tokens drive.Tokens
	var expiresAt string
	err := row.Scan(&tokens.AccessToken, &tokens.RefreshToken, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying drive tokens: %w", err)
	}
	tokens.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("parsing token expiry: %w", err)
	}
	return &tokens, nil
}

// SaveTurn appends a chat turn to its session.
func (s *SqliteStore) SaveTurn(ctx context.Context, turn model.ChatTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	sources, err := json.Marshal(turn.Sources)
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_turns (id, session_id, task, summary, detailed_answer, sources, token_usage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.Task, turn.Summary, turn.DetailedAnswer,
		string(sources), turn.TokenUsage, turn.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving chat turn: %w", err)
	}
	return nil
}

// Turns returns the session's turns in chronological order.
func (s *SqliteStore) Turns(ctx context.Context, sessionID string) ([]model.ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, task, summary, detailed_answer, sources, token_usage, created_at
		FROM chat_turns WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying chat turns: %w", err)
	}
	defer rows.Close()

	var turns []model.ChatTurn
	for rows.Next() {
		var t model.ChatTurn
		var sources, createdAt string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Task, &t.Summary, &t.DetailedAnswer,
			&sources, &t.TokenUsage, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chat turn: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &t.Sources); err != nil {
			return nil, fmt.Errorf("decoding sources: %w", err)
		}
		t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing turn timestamp: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

var (
	_ DocumentStore     = (*SqliteStore)(nil)
	_ ChunkSearcher     = (*SqliteStore)(nil)
	_ ConversationStore = (*SqliteStore)(nil)
	_ drive.TokenStore  = (*SqliteStore)(nil)
)
