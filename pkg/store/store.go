package store

import (
	"errors"
	"time"

	"studylab/pkg/domain"
)

// ErrConflict is returned when a guarded write finds the record in a
// state that forbids the update, e.g. grading an already-completed quiz
// or finishing a document that already reached a terminal status.
var ErrConflict = errors.New("conflicting update")

// DocumentSummary is the list-view projection of a document: extracted
// text and chunks are omitted, derived counts are attached.
type DocumentSummary struct {
	domain.Document
	QuizCount         int `json:"quizCount"`
	FlashcardSetCount int `json:"flashcardCount"`
}

// Store defines persistence for documents, quizzes, and flashcard sets.
type Store interface {
	// documents
	SaveDocument(domain.Document) error
	GetDocument(id string) (domain.Document, bool, error)
	ListDocumentsByOwner(ownerID string) ([]DocumentSummary, error)
	// SaveProcessingResult atomically stores extracted text plus the
	// chunk sequence and moves the document to ready. It only applies
	// while the document is still processing; otherwise ErrConflict.
	SaveProcessingResult(id string, text string, chunks []domain.Chunk) error
	// SetDocumentStatus transitions status. Terminal states only apply
	// while the document is still processing; otherwise ErrConflict.
	SetDocumentStatus(id string, status domain.DocumentStatus, errMsg string) error
	TouchDocument(id string, at time.Time) error
	DeleteDocument(id string) error
	ListChunks(documentID string) ([]domain.Chunk, error)
	// ListStuckProcessing returns IDs of documents still processing
	// whose last update is older than the cutoff.
	ListStuckProcessing(cutoff time.Time) ([]string, error)

	// quizzes
	SaveQuiz(domain.Quiz) error
	GetQuiz(id string) (domain.Quiz, bool, error)
	ListQuizzesByDocument(ownerID, documentID string) ([]domain.Quiz, error)
	// SaveGradingResult atomically records answers, score, and the
	// completion timestamp. It fails with ErrConflict when the quiz is
	// already completed.
	SaveGradingResult(id string, answers []domain.UserAnswer, score int, completedAt time.Time) error
	DeleteQuiz(id string) error

	// flashcards
	SaveFlashcardSet(domain.FlashcardSet) error
	GetFlashcardSet(id string) (domain.FlashcardSet, bool, error)
	GetFlashcardSetByCard(cardID string) (domain.FlashcardSet, bool, error)
	ListFlashcardSetsByDocument(ownerID, documentID string) ([]domain.FlashcardSet, error)
	ListFlashcardSetsByOwner(ownerID string) ([]domain.FlashcardSet, error)
	UpdateFlashcardCards(id string, cards []domain.Card) error
	DeleteFlashcardSet(id string) error
}
