package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"studylab/pkg/domain"
	"studylab/pkg/extract"
	"studylab/pkg/queue"
	"studylab/pkg/storage"
	"studylab/pkg/store"
	"studylab/pkg/textproc"
)

// Config holds runtime configuration for the processing pipeline.
type Config struct {
	DatabaseURL    string
	Store          store.Store
	Objects        storage.ObjectStore
	Extractor      extract.Extractor
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	ChunkSize      int
	ChunkOverlap   int
}

// App runs document extraction jobs pulled from the queue.
type App struct {
	store        store.Store
	objects      storage.ObjectStore
	extractor    extract.Extractor
	chunkSize    int
	chunkOverlap int
}

// New constructs the worker pipeline.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
	}
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = extract.New()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 500
	}
	chunkOverlap := cfg.ChunkOverlap
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		return nil, textproc.ErrInvalidChunkConfig
	}
	return &App{
		store:        dataStore,
		objects:      objects,
		extractor:    extractor,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// HandleJob processes one extraction job. Extraction and chunking
// failures are recorded on the document and return nil, so the queue
// never redelivers a job whose document already reached a terminal
// state. Only infrastructure errors (store, object storage) propagate
// and trigger a retry.
func (a *App) HandleJob(ctx context.Context, job queue.Job) error {
	doc, ok, err := a.store.GetDocument(job.DocumentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", job.DocumentID, err)
	}
	if !ok {
		slog.Warn("document missing, dropping job", "documentId", job.DocumentID, "jobId", job.ID)
		return nil
	}
	if doc.Status.IsTerminal() {
		slog.Info("document already settled, dropping job", "documentId", doc.ID, "status", doc.Status)
		return nil
	}

	tempPath, err := a.downloadObject(ctx, job.StorageKey, job.Filename)
	if err != nil {
		return fmt.Errorf("fetch object %s: %w", job.StorageKey, err)
	}
	defer os.Remove(tempPath)

	text, err := a.extractor.Extract(ctx, job.Filename, tempPath)
	if err != nil {
		a.failDocument(doc.ID, err)
		return nil
	}
	text = textproc.Normalize(text)
	chunks, err := textproc.Chunk(text, a.chunkSize, a.chunkOverlap)
	if err != nil {
		a.failDocument(doc.ID, err)
		return nil
	}

	if err := a.store.SaveProcessingResult(doc.ID, text, chunks); err != nil {
		if errors.Is(err, store.ErrConflict) {
			slog.Info("document settled concurrently, dropping result", "documentId", doc.ID)
			return nil
		}
		return fmt.Errorf("save processing result for %s: %w", doc.ID, err)
	}
	slog.Info("document processed", "documentId", doc.ID, "chunks", len(chunks), "textRunes", len([]rune(text)))
	return nil
}

func (a *App) failDocument(id string, cause error) {
	if err := a.store.SetDocumentStatus(id, domain.StatusFailed, cause.Error()); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return
		}
		slog.Warn("failed to record document failure", "documentId", id, "err", err)
		return
	}
	slog.Info("document failed", "documentId", id, "err", cause)
}

func (a *App) downloadObject(ctx context.Context, key, filename string) (string, error) {
	reader, err := a.objects.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer reader.Close()
	ext := filepath.Ext(filename)
	tmpFile, err := os.CreateTemp("", "studylab-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmpFile, reader); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}
	return tmpFile.Name(), nil
}
