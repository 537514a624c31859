package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type DocumentModel struct {
	ID               string `gorm:"primaryKey"`
	OwnerID          string `gorm:"not null;index"`
	Title            string `gorm:"not null"`
	OriginalFilename string `gorm:"not null"`
	StorageKey       string
	SizeBytes        int64  `gorm:"not null"`
	Status           string `gorm:"not null;index"`
	ErrorMessage     string
	ExtractedText    string `gorm:"type:text"`
	LastAccessedAt   *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

type ChunkModel struct {
	ID          string `gorm:"primaryKey"`
	DocumentID  string `gorm:"not null;index"`
	Idx         int    `gorm:"not null"`
	Content     string `gorm:"type:text;not null"`
	StartOffset int    `gorm:"not null"`
	EndOffset   int    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

type QuizModel struct {
	ID             string `gorm:"primaryKey"`
	OwnerID        string `gorm:"not null;index"`
	DocumentID     string `gorm:"not null;index"`
	Title          string `gorm:"not null"`
	Questions      datatypes.JSON `gorm:"type:jsonb;not null"`
	TotalQuestions int            `gorm:"not null"`
	Score          *int
	CompletedAt    *time.Time
	UserAnswers    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

type FlashcardSetModel struct {
	ID         string `gorm:"primaryKey"`
	OwnerID    string `gorm:"not null;index"`
	DocumentID string `gorm:"not null;index"`
	Title      string `gorm:"not null"`
	Cards      datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}
