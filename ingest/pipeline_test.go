package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/libra-agent/libra/drive"
	"github.com/libra-agent/libra/model"
)

type fakeDrive struct {
	files      []drive.FileInfo
	content    map[string]string
	downloads  []string
	exports    []string
	changeList drive.ChangeList
	startToken string
}

func (f *fakeDrive) ListFiles(_ context.Context) ([]drive.FileInfo, error) {
	return f.files, nil
}

func (f *fakeDrive) GetFile(_ context.Context, fileID string) (drive.FileInfo, error) {
	for _, file := range f.files {
		if file.ID == fileID {
			return file, nil
		}
	}
	return drive.FileInfo{}, fmt.Errorf("file %s not found", fileID)
}

func (f *fakeDrive) Download(_ context.Context, fileID string) (io.ReadCloser, error) {
	f.downloads = append(f.downloads, fileID)
	return io.NopCloser(strings.NewReader(f.content[fileID])), nil
}

func (f *fakeDrive) Export(_ context.Context, fileID, _ string) (io.ReadCloser, error) {
	f.exports = append(f.exports, fileID)
	return io.NopCloser(strings.NewReader(f.content[fileID])), nil
}

func (f *fakeDrive) StartPageToken(_ context.Context) (string, error) {
	return f.startToken, nil
}

func (f *fakeDrive) Changes(_ context.Context, _ string) (drive.ChangeList, error) {
	return f.changeList, nil
}

type fakeConnector struct {
	client DriveClient
	err    error
}

func (f *fakeConnector) ClientFor(_ context.Context, _ string) (DriveClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

type fakeStore struct {
	docs         map[string]model.Document
	chunks       map[string][]model.Chunk
	chunkDeletes []string
	docDeletes   []string
	nextID       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:   make(map[string]model.Document),
		chunks: make(map[string][]model.Chunk),
	}
}

func (s *fakeStore) key(fileID, userID string) string { return fileID + "|" + userID }

func (s *fakeStore) FindDocument(_ context.Context, fileID, userID string) (*model.Document, error) {
	doc, ok := s.docs[s.key(fileID, userID)]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (s *fakeStore) UpsertDocument(_ context.Context, doc model.Document) (model.Document, error) {
	key := s.key(doc.FileID, doc.UserID)
	if existing, ok := s.docs[key]; ok {
		doc.ID = existing.ID
	} else {
		s.nextID++
		doc.ID = fmt.Sprintf("doc-%d", s.nextID)
	}
	s.docs[key] = doc
	return doc, nil
}

func (s *fakeStore) DeleteDocumentByFileID(_ context.Context, fileID, userID string) error {
	key := s.key(fileID, userID)
	if doc, ok := s.docs[key]; ok {
		delete(s.chunks, doc.ID)
		delete(s.docs, key)
	}
	s.docDeletes = append(s.docDeletes, fileID)
	return nil
}

func (s *fakeStore) DeleteChunksByDocument(_ context.Context, documentID string) error {
	s.chunkDeletes = append(s.chunkDeletes, documentID)
	delete(s.chunks, documentID)
	return nil
}

func (s *fakeStore) InsertChunks(_ context.Context, chunks []model.Chunk) error {
	for _, ch := range chunks {
		s.chunks[ch.DocumentID] = append(s.chunks[ch.DocumentID], ch)
	}
	return nil
}

type batchEmbedder struct {
	batchSizes []int
}

func (e *batchEmbedder) EmbedText(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (e *batchEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.batchSizes = append(e.batchSizes, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func testPipeline(d DriveClient, store Store, cfg Config) (*Pipeline, *batchEmbedder) {
	embedder := &batchEmbedder{}
	p := NewPipeline(&fakeConnector{client: d}, store, embedder, zap.NewNop(), cfg)
	return p, embedder
}

func textFile(id, name string, modified time.Time) drive.FileInfo {
	return drive.FileInfo{ID: id, Name: name, MimeType: "text/plain", ModifiedTime: modified, Size: 100}
}

func TestPipelineIngestsTextFile(t *testing.T) {
	now := time.Now()
	d := &fakeDrive{
		files:   []drive.FileInfo{textFile("f1", "notes.txt", now)},
		content: map[string]string{"f1": "some searchable text"},
	}
	store := newFakeStore()
	p, _ := testPipeline(d, store, Config{})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Processed != 1 || result.Failed != 0 {
		t.Fatalf("expected 1 processed, got %+v", result)
	}

	doc, _ := store.FindDocument(context.Background(), "f1", "alice")
	if doc == nil {
		t.Fatal("expected document record")
	}
	chunks := store.chunks[doc.ID]
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "some searchable text" {
		t.Errorf("unexpected chunk content %q", chunks[0].Content)
	}
	if chunks[0].Metadata.TotalChunks != 1 || chunks[0].Metadata.ChunkIndex != 0 {
		t.Errorf("unexpected chunk metadata %+v", chunks[0].Metadata)
	}
	if len(chunks[0].Embedding) == 0 {
		t.Error("chunk missing embedding")
	}
}

func TestPipelineExportsGoogleDocs(t *testing.T) {
	d := &fakeDrive{
		files: []drive.FileInfo{{
			ID: "g1", Name: "Doc", MimeType: "application/vnd.google-apps.document",
			ModifiedTime: time.Now(),
		}},
		content: map[string]string{"g1": "exported body"},
	}
	store := newFakeStore()
	p, _ := testPipeline(d, store, Config{})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Processed != 1 {
		t.Fatalf("expected 1 processed, got %+v", result)
	}
	if len(d.exports) != 1 || len(d.downloads) != 0 {
		t.Errorf("google doc must use export, got exports=%v downloads=%v", d.exports, d.downloads)
	}
}

func TestPipelineSkipsUnchangedFile(t *testing.T) {
	modified := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	d := &fakeDrive{
		files:   []drive.FileInfo{textFile("f1", "notes.txt", modified)},
		content: map[string]string{"f1": "text"},
	}
	store := newFakeStore()
	store.docs[store.key("f1", "alice")] = model.Document{
		ID: "doc-keep", FileID: "f1", UserID: "alice", UpdatedAt: modified,
	}
	p, _ := testPipeline(d, store, Config{})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Processed != 1 || result.Failed != 0 {
		t.Fatalf("unchanged file still counts as processed, got %+v", result)
	}
	if len(d.downloads) != 0 {
		t.Error("unchanged file must not be downloaded")
	}
	if len(store.chunkDeletes) != 0 {
		t.Error("unchanged file must not touch existing chunks")
	}
}

func TestPipelineReplacesChangedFile(t *testing.T) {
	old := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	d := &fakeDrive{
		files:   []drive.FileInfo{textFile("f1", "notes.txt", old.Add(time.Hour))},
		content: map[string]string{"f1": "new text"},
	}
	store := newFakeStore()
	store.docs[store.key("f1", "alice")] = model.Document{
		ID: "doc-1", FileID: "f1", UserID: "alice", UpdatedAt: old,
	}
	store.chunks["doc-1"] = []model.Chunk{{DocumentID: "doc-1", Content: "stale"}}
	p, _ := testPipeline(d, store, Config{})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Processed != 1 {
		t.Fatalf("expected 1 processed, got %+v", result)
	}
	if len(store.chunkDeletes) != 1 || store.chunkDeletes[0] != "doc-1" {
		t.Errorf("expected full chunk replace for doc-1, deletes=%v", store.chunkDeletes)
	}
	chunks := store.chunks["doc-1"]
	if len(chunks) != 1 || chunks[0].Content != "new text" {
		t.Errorf("expected fresh chunks, got %+v", chunks)
	}
}

func TestPipelineRejectsOversizedFile(t *testing.T) {
	file := textFile("big", "big.txt", time.Now())
	file.Size = 200
	d := &fakeDrive{files: []drive.FileInfo{file}, content: map[string]string{"big": "x"}}
	store := newFakeStore()
	p, _ := testPipeline(d, store, Config{MaxFileBytes: 100})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Failed != 1 || result.Processed != 0 {
		t.Fatalf("expected declared-size rejection, got %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "byte limit") {
		t.Errorf("expected byte limit error, got %v", result.Errors)
	}
	if len(d.downloads) != 0 {
		t.Error("oversized file must not be downloaded")
	}
}

func TestPipelineAbortsMidStreamOverLimit(t *testing.T) {
	// Declared size lies: small metadata, large stream.
	file := textFile("liar", "liar.txt", time.Now())
	file.Size = 10
	d := &fakeDrive{
		files:   []drive.FileInfo{file},
		content: map[string]string{"liar": strings.Repeat("y", 500)},
	}
	store := newFakeStore()
	p, _ := testPipeline(d, store, Config{MaxFileBytes: 100})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Failed != 1 {
		t.Fatalf("expected mid-stream rejection, got %+v", result)
	}
	if !strings.Contains(result.Errors[0], "byte limit") {
		t.Errorf("expected byte limit error, got %v", result.Errors)
	}
}

func TestPipelineEmptyTextProcessedWithoutChunks(t *testing.T) {
	d := &fakeDrive{
		files:   []drive.FileInfo{textFile("f1", "blank.txt", time.Now())},
		content: map[string]string{"f1": "   \n  "},
	}
	store := newFakeStore()
	p, embedder := testPipeline(d, store, Config{})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Processed != 1 || result.Failed != 0 {
		t.Fatalf("expected blank file processed, got %+v", result)
	}
	doc, _ := store.FindDocument(context.Background(), "f1", "alice")
	if doc == nil {
		t.Fatal("blank file still gets a document record")
	}
	if len(store.chunks[doc.ID]) != 0 {
		t.Error("blank file must produce no chunks")
	}
	if len(embedder.batchSizes) != 0 {
		t.Error("blank file must not call the embedder")
	}
}

func TestPipelineFiltersUnsupportedTypes(t *testing.T) {
	d := &fakeDrive{
		files: []drive.FileInfo{
			textFile("f1", "ok.txt", time.Now()),
			{ID: "img", Name: "photo.png", MimeType: "image/png", ModifiedTime: time.Now()},
		},
		content: map[string]string{"f1": "text", "img": "binary"},
	}
	store := newFakeStore()
	p, _ := testPipeline(d, store, Config{})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Processed != 1 || result.Failed != 0 {
		t.Fatalf("expected only the text file, got %+v", result)
	}
}

func TestPipelineMaxFilesCap(t *testing.T) {
	now := time.Now()
	d := &fakeDrive{
		files: []drive.FileInfo{
			textFile("f1", "a.txt", now),
			textFile("f2", "b.txt", now),
			textFile("f3", "c.txt", now),
		},
		content: map[string]string{"f1": "a", "f2": "b", "f3": "c"},
	}
	store := newFakeStore()
	p, _ := testPipeline(d, store, Config{})

	result := p.Run(context.Background(), "alice", Options{MaxFiles: 2})
	if result.Processed != 2 {
		t.Fatalf("expected cap at 2 files, got %+v", result)
	}
}

func TestPipelineMemoryPressureStopsEarly(t *testing.T) {
	now := time.Now()
	d := &fakeDrive{
		files: []drive.FileInfo{
			textFile("f1", "a.txt", now),
			textFile("f2", "b.txt", now),
			textFile("f3", "c.txt", now),
		},
		content: map[string]string{"f1": "a", "f2": "b", "f3": "c"},
	}
	store := newFakeStore()
	p, _ := testPipeline(d, store, Config{HeapLimitBytes: 1000})

	calls := 0
	p.heapUsed = func() uint64 {
		calls++
		if calls > 1 {
			return 2000 // pressure after the first file
		}
		return 0
	}

	result := p.Run(context.Background(), "alice", Options{})
	if result.Processed != 1 {
		t.Errorf("expected 1 file before the breaker, got %d", result.Processed)
	}
	if result.Failed != 2 {
		t.Errorf("expected 2 unprocessed files counted as failed, got %d", result.Failed)
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "memory pressure") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected memory pressure error, got %v", result.Errors)
	}
}

func TestPipelineNoDriveConnection(t *testing.T) {
	store := newFakeStore()
	p := NewPipeline(&fakeConnector{err: fmt.Errorf("no tokens")}, store, &batchEmbedder{}, zap.NewNop(), Config{})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Processed != 0 || result.Failed != 0 {
		t.Fatalf("expected zero counts, got %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "drive unavailable") {
		t.Errorf("expected explanatory error, got %v", result.Errors)
	}
}

func TestPipelineEmbedsInBatches(t *testing.T) {
	// Enough text for five chunks, batch size two: batches of 2, 2, 1.
	text := strings.TrimSpace(strings.Repeat("abcdefghi ", 1600))
	d := &fakeDrive{
		files:   []drive.FileInfo{textFile("f1", "long.txt", time.Now())},
		content: map[string]string{"f1": text},
	}
	store := newFakeStore()
	p, embedder := testPipeline(d, store, Config{EmbedBatchSize: 2})

	result := p.Run(context.Background(), "alice", Options{})
	if result.Processed != 1 {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(embedder.batchSizes) < 2 {
		t.Fatalf("expected multiple embedding batches, got %v", embedder.batchSizes)
	}
	for i, size := range embedder.batchSizes {
		if size > 2 {
			t.Errorf("batch %d exceeds configured size: %d", i, size)
		}
	}

	doc, _ := store.FindDocument(context.Background(), "f1", "alice")
	chunks := store.chunks[doc.ID]
	for i, ch := range chunks {
		if ch.Metadata.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, ch.Metadata.ChunkIndex)
		}
		if ch.Metadata.TotalChunks != len(chunks) {
			t.Errorf("chunk %d reports total %d, want %d", i, ch.Metadata.TotalChunks, len(chunks))
		}
	}
}
