package ingest

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/libra-agent/libra/drive"
	"github.com/libra-agent/libra/llm"
	"github.com/libra-agent/libra/model"
)

const (
	// embedBatchSize bounds how many chunks are embedded per upstream
	// request. Each batch is inserted before the next is computed, so
	// peak memory tracks one batch rather than the whole document.
	embedBatchSize = 10

	// defaultHeapLimit is the heap-pressure threshold for the
	// circuit breaker checked between files.
	defaultHeapLimit = 1 << 30 // 1 GiB
)

// DriveClient is the slice of Drive operations the pipeline needs.
// Satisfied by *drive.Client.
type DriveClient interface {
	ListFiles(ctx context.Context) ([]drive.FileInfo, error)
	GetFile(ctx context.Context, fileID string) (drive.FileInfo, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error)
	StartPageToken(ctx context.Context) (string, error)
	Changes(ctx context.Context, pageToken string) (drive.ChangeList, error)
}

// Connector yields per-user Drive clients.
type Connector interface {
	ClientFor(ctx context.Context, userID string) (DriveClient, error)
}

// Store is the persistence surface the pipeline writes to.
type Store interface {
	FindDocument(ctx context.Context, fileID, userID string) (*model.Document, error)
	UpsertDocument(ctx context.Context, doc model.Document) (model.Document, error)
	DeleteDocumentByFileID(ctx context.Context, fileID, userID string) error
	DeleteChunksByDocument(ctx context.Context, documentID string) error
	InsertChunks(ctx context.Context, chunks []model.Chunk) error
}

// Config tunes pipeline resource limits. Zero values select defaults.
type Config struct {
	MaxFileBytes   int64
	EmbedBatchSize int
	HeapLimitBytes uint64
}

// Options scopes a single pipeline run.
type Options struct {
	// FileIDs restricts the run to the given Drive files. Empty means
	// ingest everything supported the user can see.
	FileIDs []string
	// MaxFiles caps how many candidate files are processed. Zero means
	// no cap.
	MaxFiles int
}

// Pipeline ingests a user's Drive documents into the vector store.
// Files are processed strictly one at a time; runs for the same user are
// serialized so a sync cannot race a manual ingest.
type Pipeline struct {
	connector Connector
	store     Store
	embedder  llm.Embedder
	logger    *zap.Logger
	cfg       Config

	heapUsed func() uint64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPipeline creates a pipeline with the given collaborators.
func NewPipeline(connector Connector, store Store, embedder llm.Embedder, logger *zap.Logger, cfg Config) *Pipeline {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = MaxFileBytes
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = embedBatchSize
	}
	if cfg.HeapLimitBytes == 0 {
		cfg.HeapLimitBytes = defaultHeapLimit
	}
	return &Pipeline{
		connector: connector,
		store:     store,
		embedder:  embedder,
		logger:    logger,
		cfg:       cfg,
		heapUsed:  heapInUse,
		locks:     make(map[string]*sync.Mutex),
	}
}

func heapInUse() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapInuse
}

func (p *Pipeline) userLock(userID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[userID] = lock
	}
	return lock
}

// Run ingests the user's candidate files and reports aggregated counts.
// Per-file faults are recorded in the result; Run itself only fails to
// the extent of returning zero counts with an explanatory error entry.
func (p *Pipeline) Run(ctx context.Context, userID string, opts Options) model.IngestResult {
	lock := p.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	var result model.IngestResult

	client, err := p.connector.ClientFor(ctx, userID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("google drive unavailable: %v", err))
		return result
	}

	candidates, lookupErrors, err := p.candidateFiles(ctx, client, opts)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Failed += len(lookupErrors)
	result.Errors = append(result.Errors, lookupErrors...)

	p.logger.Info("starting ingestion",
		zap.String("user", userID),
		zap.Int("candidates", len(candidates)))

	for i, file := range candidates {
		if used := p.heapUsed(); used > p.cfg.HeapLimitBytes {
			remaining := len(candidates) - i
			p.logger.Warn("memory pressure, stopping ingestion early",
				zap.Uint64("heapBytes", used),
				zap.Int("remaining", remaining))
			result.Failed += remaining
			result.Errors = append(result.Errors,
				fmt.Sprintf("memory pressure: stopped with %d files unprocessed", remaining))
			break
		}

		if err := p.ingestFile(ctx, client, userID, file); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Name, err))
			p.logger.Warn("file ingestion failed",
				zap.String("file", file.Name),
				zap.Error(err))
			continue
		}
		result.Processed++
	}

	p.logger.Info("ingestion finished",
		zap.String("user", userID),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed))
	return result
}

// candidateFiles resolves the run's file list: the explicit id subset
// (failed lookups become per-file errors, typically files deleted between
// change detection and ingestion), or the user's full listing filtered to
// supported types and capped.
func (p *Pipeline) candidateFiles(ctx context.Context, client DriveClient, opts Options) ([]drive.FileInfo, []string, error) {
	if len(opts.FileIDs) > 0 {
		files := make([]drive.FileInfo, 0, len(opts.FileIDs))
		var lookupErrors []string
		for _, id := range opts.FileIDs {
			file, err := client.GetFile(ctx, id)
			if err != nil {
				lookupErrors = append(lookupErrors, fmt.Sprintf("fetching file %s: %v", id, err))
				continue
			}
			if SupportedMimeType(file.MimeType) {
				files = append(files, file)
			}
		}
		return files, lookupErrors, nil
	}

	all, err := client.ListFiles(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing drive files: %w", err)
	}
	var files []drive.FileInfo
	for _, file := range all {
		if !SupportedMimeType(file.MimeType) {
			continue
		}
		files = append(files, file)
		if opts.MaxFiles > 0 && len(files) >= opts.MaxFiles {
			break
		}
	}
	return files, nil, nil
}

// ingestFile runs the per-file flow: size and freshness checks, extract,
// chunk, upsert, full chunk replace, embed in batches with immediate
// insert.
func (p *Pipeline) ingestFile(ctx context.Context, client DriveClient, userID string, file drive.FileInfo) error {
	if file.Size > p.cfg.MaxFileBytes {
		return &sizeExceededError{limit: p.cfg.MaxFileBytes}
	}

	existing, err := p.store.FindDocument(ctx, file.ID, userID)
	if err != nil {
		return err
	}
	if existing != nil && !file.ModifiedTime.After(existing.UpdatedAt) {
		p.logger.Debug("file unchanged, skipping",
			zap.String("file", file.Name),
			zap.Time("modified", file.ModifiedTime))
		return nil
	}

	text, err := p.extract(ctx, client, file)
	if err != nil {
		return err
	}

	chunks := ChunkText(text)

	doc, err := p.store.UpsertDocument(ctx, model.Document{
		FileID:    file.ID,
		UserID:    userID,
		Name:      file.Name,
		MimeType:  file.MimeType,
		UpdatedAt: p.recordedTime(file),
	})
	if err != nil {
		return err
	}
	if err := p.store.DeleteChunksByDocument(ctx, doc.ID); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	return p.embedAndInsert(ctx, doc.ID, chunks)
}

func (p *Pipeline) recordedTime(file drive.FileInfo) time.Time {
	if file.ModifiedTime.IsZero() {
		return time.Now()
	}
	return file.ModifiedTime
}

// extract downloads or exports the file and converts it to plain text,
// enforcing the byte ceiling on the stream itself.
func (p *Pipeline) extract(ctx context.Context, client DriveClient, file drive.FileInfo) (string, error) {
	var stream io.ReadCloser
	var err error
	if file.MimeType == mimeGoogleDoc {
		stream, err = client.Export(ctx, file.ID, mimeText)
	} else {
		stream, err = client.Download(ctx, file.ID)
	}
	if err != nil {
		return "", err
	}
	defer stream.Close()

	data, err := readAllLimited(stream, p.cfg.MaxFileBytes)
	if err != nil {
		return "", err
	}
	return extractText(file.MimeType, data)
}

// embedAndInsert computes embeddings batch by batch, inserting each batch
// before starting the next.
func (p *Pipeline) embedAndInsert(ctx context.Context, documentID string, chunks []string) error {
	total := len(chunks)
	for start := 0; start < total; start += p.cfg.EmbedBatchSize {
		end := start + p.cfg.EmbedBatchSize
		if end > total {
			end = total
		}
		batch := chunks[start:end]

		vectors, err := p.embedder.EmbedTexts(ctx, batch)
		if err != nil {
			return fmt.Errorf("embedding batch at chunk %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedding batch at chunk %d: got %d vectors for %d inputs", start, len(vectors), len(batch))
		}

		records := make([]model.Chunk, len(batch))
		for i, content := range batch {
			records[i] = model.Chunk{
				DocumentID: documentID,
				Content:    content,
				Embedding:  vectors[i],
				Metadata: model.ChunkMetadata{
					ChunkIndex:  start + i,
					TotalChunks: total,
				},
			}
		}
		if err := p.store.InsertChunks(ctx, records); err != nil {
			return fmt.Errorf("inserting batch at chunk %d: %w", start, err)
		}
	}
	return nil
}
