package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"studylab/internal/util"
	"studylab/pkg/domain"
)

const migrateLockID int64 = 51245124

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&DocumentModel{}, &ChunkModel{}, &QuizModel{}, &FlashcardSetModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM chunk_models c
				WHERE NOT EXISTS (SELECT 1 FROM document_models d WHERE d.id = c.document_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'chunk_models'
					AND constraint_name = 'chunk_models_document_id_fkey'
				) THEN
					ALTER TABLE chunk_models
					ADD CONSTRAINT chunk_models_document_id_fkey
					FOREIGN KEY (document_id) REFERENCES document_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure chunk foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveDocument stores or updates a document record.
func (s *GormStore) SaveDocument(d domain.Document) error {
	model := documentToModel(d)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id", "title", "original_filename", "storage_key", "status", "error_message", "size_bytes", "updated_at"}),
	}).Create(&model).Error
}

// GetDocument retrieves a document including extracted text.
func (s *GormStore) GetDocument(id string) (domain.Document, bool, error) {
	var model DocumentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return documentFromModel(model), true, nil
}

// ListDocumentsByOwner returns document summaries newest first. The
// extracted text column is not loaded; quiz and flashcard counts are.
func (s *GormStore) ListDocumentsByOwner(ownerID string) ([]DocumentSummary, error) {
	var models []DocumentModel
	if err := s.db.
		Select("id", "owner_id", "title", "original_filename", "storage_key", "size_bytes", "status", "error_message", "last_accessed_at", "created_at", "updated_at").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	quizCounts, err := s.countByDocument(&QuizModel{}, ownerID)
	if err != nil {
		return nil, err
	}
	cardCounts, err := s.countByDocument(&FlashcardSetModel{}, ownerID)
	if err != nil {
		return nil, err
	}
	res := make([]DocumentSummary, 0, len(models))
	for _, m := range models {
		res = append(res, DocumentSummary{
			Document:          documentFromModel(m),
			QuizCount:         quizCounts[m.ID],
			FlashcardSetCount: cardCounts[m.ID],
		})
	}
	return res, nil
}

func (s *GormStore) countByDocument(model any, ownerID string) (map[string]int, error) {
	type row struct {
		DocumentID string
		N          int
	}
	var rows []row
	if err := s.db.Model(model).
		Select("document_id, COUNT(*) AS n").
		Where("owner_id = ?", ownerID).
		Group("document_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.DocumentID] = r.N
	}
	return counts, nil
}

// SaveProcessingResult writes text, chunks, and the ready status in one
// transaction. The status update is guarded so a document that already
// reached a terminal state is never rewritten.
func (s *GormStore) SaveProcessingResult(id string, text string, chunks []domain.Chunk) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DocumentModel{}).
			Where("id = ? AND status = ?", id, string(domain.StatusProcessing)).
			Updates(map[string]any{
				"extracted_text": text,
				"status":         string(domain.StatusReady),
				"error_message":  "",
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		if err := tx.Delete(&ChunkModel{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		now := time.Now().UTC()
		models := make([]ChunkModel, 0, len(chunks))
		for _, c := range chunks {
			models = append(models, ChunkModel{
				ID:          util.NewID(),
				DocumentID:  id,
				Idx:         c.Index,
				Content:     c.Content,
				StartOffset: c.Start,
				EndOffset:   c.End,
				CreatedAt:   now,
			})
		}
		return tx.CreateInBatches(models, 200).Error
	})
}

// SetDocumentStatus transitions document status. Writes to a terminal
// status only apply while the document is still processing.
func (s *GormStore) SetDocumentStatus(id string, status domain.DocumentStatus, errMsg string) error {
	tx := s.db.Model(&DocumentModel{}).Where("id = ?", id)
	if status.IsTerminal() {
		tx = tx.Where("status = ?", string(domain.StatusProcessing))
	}
	res := tx.Updates(map[string]any{
		"status":        string(status),
		"error_message": errMsg,
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// TouchDocument records a read access.
func (s *GormStore) TouchDocument(id string, at time.Time) error {
	return s.db.Model(&DocumentModel{}).
		Where("id = ?", id).
		Update("last_accessed_at", at.UTC()).Error
}

// DeleteDocument removes the document and everything derived from it.
func (s *GormStore) DeleteDocument(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ChunkModel{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&QuizModel{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&FlashcardSetModel{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&DocumentModel{}, "id = ?", id).Error
	})
}

// ListChunks returns a document's chunks in window order.
func (s *GormStore) ListChunks(documentID string) ([]domain.Chunk, error) {
	var models []ChunkModel
	if err := s.db.Where("document_id = ?", documentID).Order("idx ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(models))
	for _, m := range models {
		chunks = append(chunks, domain.Chunk{
			Index:   m.Idx,
			Content: m.Content,
			Start:   m.StartOffset,
			End:     m.EndOffset,
		})
	}
	return chunks, nil
}

// ListStuckProcessing returns documents still processing whose last
// update predates the cutoff.
func (s *GormStore) ListStuckProcessing(cutoff time.Time) ([]string, error) {
	var ids []string
	if err := s.db.Model(&DocumentModel{}).
		Where("status = ? AND updated_at < ?", string(domain.StatusProcessing), cutoff.UTC()).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveQuiz stores a quiz with its question set.
func (s *GormStore) SaveQuiz(q domain.Quiz) error {
	model, err := quizToModel(q)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// GetQuiz retrieves a quiz.
func (s *GormStore) GetQuiz(id string) (domain.Quiz, bool, error) {
	var model QuizModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Quiz{}, false, nil
		}
		return domain.Quiz{}, false, err
	}
	quiz, err := quizFromModel(model)
	if err != nil {
		return domain.Quiz{}, false, err
	}
	return quiz, true, nil
}

// ListQuizzesByDocument returns a document's quizzes newest first.
func (s *GormStore) ListQuizzesByDocument(ownerID, documentID string) ([]domain.Quiz, error) {
	var models []QuizModel
	if err := s.db.Where("owner_id = ? AND document_id = ?", ownerID, documentID).
		Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Quiz, 0, len(models))
	for _, m := range models {
		quiz, err := quizFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, quiz)
	}
	return res, nil
}

// SaveGradingResult records answers, score, and completion in one
// guarded update; a quiz that is already completed is left untouched.
func (s *GormStore) SaveGradingResult(id string, answers []domain.UserAnswer, score int, completedAt time.Time) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	res := s.db.Model(&QuizModel{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]any{
			"user_answers": datatypes.JSON(raw),
			"score":        score,
			"completed_at": completedAt.UTC(),
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// DeleteQuiz removes a quiz.
func (s *GormStore) DeleteQuiz(id string) error {
	return s.db.Delete(&QuizModel{}, "id = ?", id).Error
}

// SaveFlashcardSet stores a flashcard set with its cards.
func (s *GormStore) SaveFlashcardSet(set domain.FlashcardSet) error {
	model, err := flashcardSetToModel(set)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// GetFlashcardSet retrieves a flashcard set.
func (s *GormStore) GetFlashcardSet(id string) (domain.FlashcardSet, bool, error) {
	var model FlashcardSetModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.FlashcardSet{}, false, nil
		}
		return domain.FlashcardSet{}, false, err
	}
	set, err := flashcardSetFromModel(model)
	if err != nil {
		return domain.FlashcardSet{}, false, err
	}
	return set, true, nil
}

// GetFlashcardSetByCard finds the set containing a card ID. Cards are
// stored as a JSONB array, so this matches on the embedded card id.
func (s *GormStore) GetFlashcardSetByCard(cardID string) (domain.FlashcardSet, bool, error) {
	var model FlashcardSetModel
	err := s.db.
		Where(`cards @> ?`, fmt.Sprintf(`[{"id": %q}]`, cardID)).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.FlashcardSet{}, false, nil
		}
		return domain.FlashcardSet{}, false, err
	}
	set, err := flashcardSetFromModel(model)
	if err != nil {
		return domain.FlashcardSet{}, false, err
	}
	return set, true, nil
}

// ListFlashcardSetsByDocument returns a document's sets newest first.
func (s *GormStore) ListFlashcardSetsByDocument(ownerID, documentID string) ([]domain.FlashcardSet, error) {
	return s.listFlashcardSets("owner_id = ? AND document_id = ?", ownerID, documentID)
}

// ListFlashcardSetsByOwner returns all of a user's sets newest first.
func (s *GormStore) ListFlashcardSetsByOwner(ownerID string) ([]domain.FlashcardSet, error) {
	return s.listFlashcardSets("owner_id = ?", ownerID)
}

func (s *GormStore) listFlashcardSets(cond string, args ...any) ([]domain.FlashcardSet, error) {
	var models []FlashcardSetModel
	if err := s.db.Where(cond, args...).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.FlashcardSet, 0, len(models))
	for _, m := range models {
		set, err := flashcardSetFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, set)
	}
	return res, nil
}

// UpdateFlashcardCards replaces the card array of a set.
func (s *GormStore) UpdateFlashcardCards(id string, cards []domain.Card) error {
	raw, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("marshal cards: %w", err)
	}
	return s.db.Model(&FlashcardSetModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"cards":      datatypes.JSON(raw),
			"updated_at": time.Now().UTC(),
		}).Error
}

// DeleteFlashcardSet removes a set.
func (s *GormStore) DeleteFlashcardSet(id string) error {
	return s.db.Delete(&FlashcardSetModel{}, "id = ?", id).Error
}

func documentToModel(d domain.Document) DocumentModel {
	return DocumentModel{
		ID:               d.ID,
		OwnerID:          d.OwnerID,
		Title:            d.Title,
		OriginalFilename: d.OriginalFilename,
		StorageKey:       d.StorageKey,
		SizeBytes:        d.SizeBytes,
		Status:           string(d.Status),
		ErrorMessage:     d.ErrorMessage,
		ExtractedText:    d.ExtractedText,
		LastAccessedAt:   d.LastAccessedAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func documentFromModel(m DocumentModel) domain.Document {
	return domain.Document{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		Title:            m.Title,
		OriginalFilename: m.OriginalFilename,
		StorageKey:       m.StorageKey,
		SizeBytes:        m.SizeBytes,
		Status:           domain.DocumentStatus(m.Status),
		ErrorMessage:     m.ErrorMessage,
		ExtractedText:    m.ExtractedText,
		LastAccessedAt:   m.LastAccessedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func quizToModel(q domain.Quiz) (QuizModel, error) {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return QuizModel{}, fmt.Errorf("marshal questions: %w", err)
	}
	answers, err := json.Marshal(q.UserAnswers)
	if err != nil {
		return QuizModel{}, fmt.Errorf("marshal answers: %w", err)
	}
	return QuizModel{
		ID:             q.ID,
		OwnerID:        q.OwnerID,
		DocumentID:     q.DocumentID,
		Title:          q.Title,
		Questions:      datatypes.JSON(questions),
		TotalQuestions: q.TotalQuestions,
		Score:          q.Score,
		CompletedAt:    q.CompletedAt,
		UserAnswers:    datatypes.JSON(answers),
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}, nil
}

func quizFromModel(m QuizModel) (domain.Quiz, error) {
	quiz := domain.Quiz{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		DocumentID:     m.DocumentID,
		Title:          m.Title,
		TotalQuestions: m.TotalQuestions,
		Score:          m.Score,
		CompletedAt:    m.CompletedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if len(m.Questions) > 0 {
		if err := json.Unmarshal(m.Questions, &quiz.Questions); err != nil {
			return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
		}
	}
	if len(m.UserAnswers) > 0 {
		if err := json.Unmarshal(m.UserAnswers, &quiz.UserAnswers); err != nil {
			return domain.Quiz{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return quiz, nil
}

func flashcardSetToModel(set domain.FlashcardSet) (FlashcardSetModel, error) {
	cards, err := json.Marshal(set.Cards)
	if err != nil {
		return FlashcardSetModel{}, fmt.Errorf("marshal cards: %w", err)
	}
	return FlashcardSetModel{
		ID:         set.ID,
		OwnerID:    set.OwnerID,
		DocumentID: set.DocumentID,
		Title:      set.Title,
		Cards:      datatypes.JSON(cards),
		CreatedAt:  set.CreatedAt,
		UpdatedAt:  set.UpdatedAt,
	}, nil
}

func flashcardSetFromModel(m FlashcardSetModel) (domain.FlashcardSet, error) {
	set := domain.FlashcardSet{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		DocumentID: m.DocumentID,
		Title:      m.Title,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if len(m.Cards) > 0 {
		if err := json.Unmarshal(m.Cards, &set.Cards); err != nil {
			return domain.FlashcardSet{}, fmt.Errorf("unmarshal cards: %w", err)
		}
	}
	return set, nil
}
