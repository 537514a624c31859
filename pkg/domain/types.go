package domain

import "time"

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// IsTerminal reports whether a document can no longer change status.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

type Document struct {
	ID               string         `json:"id"`
	OwnerID          string         `json:"ownerId"`
	Title            string         `json:"title"`
	OriginalFilename string         `json:"originalFilename"`
	StorageKey       string         `json:"-"`
	SizeBytes        int64          `json:"sizeBytes"`
	Status           DocumentStatus `json:"status"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
	ExtractedText    string         `json:"extractedText,omitempty"`
	LastAccessedAt   *time.Time     `json:"lastAccessedAt,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// Chunk is one sliding-window slice of a document's extracted text.
// Start and End are rune offsets into the source text, End exclusive.
type Chunk struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

type Question struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

type UserAnswer struct {
	QuestionIndex  int       `json:"questionIndex"`
	SelectedAnswer string    `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

type Quiz struct {
	ID             string       `json:"id"`
	OwnerID        string       `json:"ownerId"`
	DocumentID     string       `json:"documentId"`
	Title          string       `json:"title"`
	Questions      []Question   `json:"questions"`
	TotalQuestions int          `json:"totalQuestions"`
	Score          *int         `json:"score,omitempty"`
	CompletedAt    *time.Time   `json:"completedAt,omitempty"`
	UserAnswers    []UserAnswer `json:"userAnswers,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Completed reports whether the quiz has already been graded.
func (q Quiz) Completed() bool {
	return q.CompletedAt != nil
}

// QuestionResult is one row of the detailed results view, joining a
// question with the answer recorded for its index, if any.
type QuestionResult struct {
	QuestionIndex  int      `json:"questionIndex"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	CorrectAnswer  string   `json:"correctAnswer"`
	SelectedAnswer *string  `json:"selectedAnswer"`
	IsCorrect      bool     `json:"isCorrect"`
	Explanation    string   `json:"explanation,omitempty"`
}

type Card struct {
	ID             string     `json:"id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	IsStarred      bool       `json:"isStarred"`
	ReviewCount    int        `json:"reviewCount"`
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
}

type FlashcardSet struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	DocumentID string    `json:"documentId"`
	Title      string    `json:"title"`
	Cards      []Card    `json:"cards"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
