package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"studylab/internal/util"
	"studylab/pkg/domain"
	"studylab/pkg/grading"
	"studylab/pkg/store"
)

// CreateQuiz stores a quiz produced by the external generator. The
// question set is stored verbatim; only shape is validated here.
func (a *App) CreateQuiz(ownerID, documentID, title string, questions []domain.Question) (domain.Quiz, error) {
	if len(questions) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: questions required", ErrInvalidInput)
	}
	if _, err := a.ownedDocument(ownerID, documentID); err != nil {
		return domain.Quiz{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Quiz"
	}
	now := time.Now().UTC()
	quiz := domain.Quiz{
		ID:             util.NewID(),
		OwnerID:        ownerID,
		DocumentID:     documentID,
		Title:          title,
		Questions:      questions,
		TotalQuestions: len(questions),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.store.SaveQuiz(quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	return quiz, nil
}

// ListQuizzes returns a document's quizzes, newest first.
func (a *App) ListQuizzes(ownerID, documentID string) ([]domain.Quiz, error) {
	return a.store.ListQuizzesByDocument(ownerID, documentID)
}

// GetQuiz returns a quiz by ID.
func (a *App) GetQuiz(ownerID, id string) (domain.Quiz, error) {
	return a.ownedQuiz(ownerID, id)
}

// SubmitQuiz grades a submission and records the result. A quiz can be
// graded at most once; the check happens before any grading work and
// the persisted write is guarded again for concurrent submitters.
func (a *App) SubmitQuiz(ownerID, quizID string, answers []grading.Submission) (grading.Result, error) {
	quiz, err := a.ownedQuiz(ownerID, quizID)
	if err != nil {
		return grading.Result{}, err
	}
	result, err := grading.Evaluate(quiz, answers, time.Now().UTC())
	if err != nil {
		return grading.Result{}, err
	}
	if err := a.store.SaveGradingResult(quizID, result.UserAnswers, result.Score, result.CompletedAt); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return grading.Result{}, grading.ErrQuizCompleted
		}
		return grading.Result{}, fmt.Errorf("save grading result: %w", err)
	}
	return result, nil
}

// QuizResults is the detailed per-question view of a completed quiz.
type QuizResults struct {
	Quiz    domain.Quiz             `json:"quiz"`
	Results []domain.QuestionResult `json:"results"`
}

// GetQuizResults returns the detailed results of a completed quiz.
func (a *App) GetQuizResults(ownerID, quizID string) (QuizResults, error) {
	quiz, err := a.ownedQuiz(ownerID, quizID)
	if err != nil {
		return QuizResults{}, err
	}
	if !quiz.Completed() {
		return QuizResults{}, ErrQuizNotCompleted
	}
	return QuizResults{
		Quiz:    quiz,
		Results: grading.Results(quiz),
	}, nil
}

// DeleteQuiz removes a quiz.
func (a *App) DeleteQuiz(ownerID, id string) error {
	if _, err := a.ownedQuiz(ownerID, id); err != nil {
		return err
	}
	return a.store.DeleteQuiz(id)
}

func (a *App) ownedQuiz(ownerID, id string) (domain.Quiz, error) {
	quiz, ok, err := a.store.GetQuiz(id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !ok {
		return domain.Quiz{}, ErrNotFound
	}
	if quiz.OwnerID != ownerID {
		return domain.Quiz{}, ErrForbidden
	}
	return quiz, nil
}
