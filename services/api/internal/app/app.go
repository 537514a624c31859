package app

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"studylab/internal/util"
	"studylab/pkg/domain"
	"studylab/pkg/queue"
	"studylab/pkg/storage"
	"studylab/pkg/store"
)

// JobEnqueuer hands a stored document off for background processing.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, documentID, storageKey, filename string) (queue.Job, error)
}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL    string
	Store          store.Store
	Objects        storage.ObjectStore
	Jobs           JobEnqueuer
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// App wires storage, persistence, and the processing queue together.
type App struct {
	store         store.Store
	objects       storage.ObjectStore
	jobs          JobEnqueuer
	presignExpiry time.Duration
}

// New constructs the application service.
func New(cfg Config) (*App, error) {
	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
	}
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
	if cfg.Jobs == nil {
		return nil, fmt.Errorf("job queue required")
	}
	return &App{
		store:         dataStore,
		objects:       objects,
		jobs:          cfg.Jobs,
		presignExpiry: 15 * time.Minute,
	}, nil
}

// UploadDocument stores the raw file, creates the document record in
// processing state, and enqueues background extraction. The call
// returns as soon as the job is queued; clients poll status afterwards.
func (a *App) UploadDocument(ctx context.Context, ownerID, title, filename string, r io.Reader, size int64) (domain.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Document{}, fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if strings.TrimSpace(filename) == "" {
		return domain.Document{}, fmt.Errorf("%w: filename required", ErrInvalidInput)
	}
	id := util.NewID()
	storageKey := buildStorageKey(id, filename)
	now := time.Now().UTC()
	doc := domain.Document{
		ID:               id,
		OwnerID:          ownerID,
		Title:            title,
		OriginalFilename: filepath.Base(filename),
		StorageKey:       storageKey,
		SizeBytes:        size,
		Status:           domain.StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := a.objects.Put(ctx, storageKey, r, size, contentType); err != nil {
		return domain.Document{}, fmt.Errorf("save file: %w", err)
	}
	if err := a.store.SaveDocument(doc); err != nil {
		_ = a.objects.Delete(ctx, storageKey)
		return domain.Document{}, fmt.Errorf("save document: %w", err)
	}
	if _, err := a.jobs.Enqueue(ctx, id, storageKey, doc.OriginalFilename); err != nil {
		_ = a.store.SetDocumentStatus(id, domain.StatusFailed, err.Error())
		return domain.Document{}, fmt.Errorf("enqueue processing: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the user's documents, newest first, without
// extracted text but with quiz/flashcard counts.
func (a *App) ListDocuments(ownerID string) ([]store.DocumentSummary, error) {
	return a.store.ListDocumentsByOwner(ownerID)
}

// GetDocument returns a document with its chunks and records the read
// in the last-accessed timestamp.
func (a *App) GetDocument(ownerID, id string) (domain.Document, []domain.Chunk, error) {
	doc, err := a.ownedDocument(ownerID, id)
	if err != nil {
		return domain.Document{}, nil, err
	}
	now := time.Now().UTC()
	if err := a.store.TouchDocument(id, now); err == nil {
		doc.LastAccessedAt = &now
	}
	var chunks []domain.Chunk
	if doc.Status == domain.StatusReady {
		chunks, err = a.store.ListChunks(id)
		if err != nil {
			return domain.Document{}, nil, err
		}
	}
	return doc, chunks, nil
}

// GetDownloadURL returns a pre-signed URL and the original filename.
func (a *App) GetDownloadURL(ctx context.Context, ownerID, id string) (string, string, error) {
	doc, err := a.ownedDocument(ownerID, id)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(doc.StorageKey) == "" {
		return "", "", fmt.Errorf("storage key missing")
	}
	url, err := a.objects.PresignGet(ctx, doc.StorageKey, a.presignExpiry)
	if err != nil {
		return "", "", err
	}
	return url, doc.OriginalFilename, nil
}

// DeleteDocument removes the document, everything derived from it, and
// the stored raw file.
func (a *App) DeleteDocument(ctx context.Context, ownerID, id string) error {
	doc, err := a.ownedDocument(ownerID, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteDocument(id); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := a.objects.Delete(ctx, doc.StorageKey); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) ownedDocument(ownerID, id string) (domain.Document, error) {
	doc, ok, err := a.store.GetDocument(id)
	if err != nil {
		return domain.Document{}, err
	}
	if !ok {
		return domain.Document{}, ErrNotFound
	}
	if doc.OwnerID != ownerID {
		return domain.Document{}, ErrForbidden
	}
	return doc, nil
}

func buildStorageKey(documentID, filename string) string {
	name := sanitizeFilename(filepath.Base(filename))
	if name == "" {
		name = "document"
	}
	return path.Join("documents", documentID, name)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
