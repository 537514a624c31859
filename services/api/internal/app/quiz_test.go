package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studylab/pkg/domain"
	"studylab/pkg/grading"
)

func seedQuiz(t *testing.T, a *App) (domain.Document, domain.Quiz) {
	t.Helper()
	doc, err := a.UploadDocument(context.Background(), "u1", "Biology", "bio.pdf", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	quiz, err := a.CreateQuiz("u1", doc.ID, "Chapter 1", []domain.Question{
		{Prompt: "Capital of France?", Options: []string{"A: Paris", "B: Rome"}, CorrectAnswer: "Paris"},
		{Prompt: "2 + 2?", Options: []string{"A: 3", "B: 4"}, CorrectAnswer: "4"},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return doc, quiz
}

func TestCreateQuizRejectsEmptyQuestions(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	doc, err := a.UploadDocument(context.Background(), "u1", "Biology", "bio.pdf", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := a.CreateQuiz("u1", doc.ID, "Empty", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSubmitQuizGradesAndPersists(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	_, quiz := seedQuiz(t, a)

	result, err := a.SubmitQuiz("u1", quiz.ID, []grading.Submission{
		{QuestionIndex: 0, SelectedAnswer: "A: Paris"},
		{QuestionIndex: 1, SelectedAnswer: "3"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 50 || result.CorrectCount != 1 {
		t.Fatalf("score=%d correct=%d, want 50/1", result.Score, result.CorrectCount)
	}

	got, err := a.GetQuiz("u1", quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if !got.Completed() || got.Score == nil || *got.Score != 50 {
		t.Fatalf("quiz not persisted as completed: %+v", got)
	}
}

func TestSubmitQuizTwiceRejected(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	_, quiz := seedQuiz(t, a)

	answers := []grading.Submission{{QuestionIndex: 0, SelectedAnswer: "Paris"}}
	if _, err := a.SubmitQuiz("u1", quiz.ID, answers); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := a.SubmitQuiz("u1", quiz.ID, answers); !errors.Is(err, grading.ErrQuizCompleted) {
		t.Fatalf("err = %v, want ErrQuizCompleted", err)
	}
}

func TestSubmitQuizForbiddenForOtherOwner(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	_, quiz := seedQuiz(t, a)
	_, err := a.SubmitQuiz("u2", quiz.ID, []grading.Submission{{QuestionIndex: 0, SelectedAnswer: "Paris"}})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestGetQuizResultsRequiresCompletion(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	_, quiz := seedQuiz(t, a)

	if _, err := a.GetQuizResults("u1", quiz.ID); !errors.Is(err, ErrQuizNotCompleted) {
		t.Fatalf("err = %v, want ErrQuizNotCompleted", err)
	}

	if _, err := a.SubmitQuiz("u1", quiz.ID, []grading.Submission{{QuestionIndex: 1, SelectedAnswer: "4"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	results, err := a.GetQuizResults("u1", quiz.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results.Results) != 2 {
		t.Fatalf("want a row per question, got %d", len(results.Results))
	}
	if results.Results[0].SelectedAnswer != nil {
		t.Fatalf("unanswered question should have nil selection")
	}
	if results.Results[1].SelectedAnswer == nil || !results.Results[1].IsCorrect {
		t.Fatalf("answered question missing: %+v", results.Results[1])
	}
}

func TestFlashcardReviewAndStar(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	doc, _ := seedQuiz(t, a)

	set, err := a.CreateFlashcardSet("u1", doc.ID, "Terms", []domain.Card{
		{Front: "mitochondria", Back: "powerhouse of the cell"},
	})
	if err != nil {
		t.Fatalf("create set: %v", err)
	}
	cardID := set.Cards[0].ID
	if cardID == "" {
		t.Fatalf("card was not assigned an id")
	}

	updated, err := a.ReviewCard("u1", cardID)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if updated.Cards[0].ReviewCount != 1 || updated.Cards[0].LastReviewedAt == nil {
		t.Fatalf("review not recorded: %+v", updated.Cards[0])
	}

	_, starred, err := a.ToggleStarCard("u1", cardID)
	if err != nil || !starred {
		t.Fatalf("star toggle: starred=%v err=%v", starred, err)
	}
	_, starred, err = a.ToggleStarCard("u1", cardID)
	if err != nil || starred {
		t.Fatalf("second toggle should unstar: starred=%v err=%v", starred, err)
	}
}
