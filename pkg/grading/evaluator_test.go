package grading

import (
	"errors"
	"testing"
	"time"

	"studylab/pkg/domain"
)

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{Prompt: "Capital of France?", CorrectAnswer: "Paris"},
			{Prompt: "Capital of Italy?", CorrectAnswer: "Rome"},
			{Prompt: "Capital of Spain?", CorrectAnswer: "Madrid"},
		},
		TotalQuestions: 3,
	}
}

func TestEvaluateScoresAndRecordsAnswers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res, err := Evaluate(sampleQuiz(), []Submission{
		{QuestionIndex: 0, SelectedAnswer: "O1: Paris"},
		{QuestionIndex: 1, SelectedAnswer: "Milan"},
	}, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.CorrectCount != 1 {
		t.Fatalf("correctCount = %d, want 1", res.CorrectCount)
	}
	// 1 of 3 rounds up from 33.33.
	if res.Score != 33 {
		t.Fatalf("score = %d, want 33", res.Score)
	}
	if len(res.UserAnswers) != 2 {
		t.Fatalf("recorded %d answers, want 2", len(res.UserAnswers))
	}
	if !res.UserAnswers[0].IsCorrect || res.UserAnswers[1].IsCorrect {
		t.Fatalf("unexpected correctness flags: %+v", res.UserAnswers)
	}
	if !res.UserAnswers[0].AnsweredAt.Equal(now) || !res.CompletedAt.Equal(now) {
		t.Fatalf("timestamps not set to grading time")
	}
}

func TestEvaluateScoreRounding(t *testing.T) {
	quiz := sampleQuiz()
	quiz.Questions = append(quiz.Questions, domain.Question{Prompt: "Capital of Germany?", CorrectAnswer: "Berlin"})
	quiz.TotalQuestions = 4
	res, err := Evaluate(quiz, []Submission{
		{QuestionIndex: 0, SelectedAnswer: "Paris"},
		{QuestionIndex: 1, SelectedAnswer: "Rome"},
		{QuestionIndex: 3, SelectedAnswer: "Berlin"},
	}, time.Now())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Score != 75 {
		t.Fatalf("score = %d, want 75", res.Score)
	}
}

func TestEvaluateDropsOutOfRangeIndices(t *testing.T) {
	res, err := Evaluate(sampleQuiz(), []Submission{
		{QuestionIndex: 7, SelectedAnswer: "Paris"},
		{QuestionIndex: -1, SelectedAnswer: "Paris"},
		{QuestionIndex: 0, SelectedAnswer: "Paris"},
	}, time.Now())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.CorrectCount != 1 || len(res.UserAnswers) != 1 {
		t.Fatalf("out-of-range answers should be dropped: %+v", res)
	}
}

func TestEvaluateRejectsCompletedQuiz(t *testing.T) {
	quiz := sampleQuiz()
	done := time.Now()
	quiz.CompletedAt = &done
	if _, err := Evaluate(quiz, []Submission{}, time.Now()); !errors.Is(err, ErrQuizCompleted) {
		t.Fatalf("err = %v, want ErrQuizCompleted", err)
	}
}

func TestEvaluateRejectsNilAnswers(t *testing.T) {
	if _, err := Evaluate(sampleQuiz(), nil, time.Now()); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("err = %v, want ErrInvalidSubmission", err)
	}
}

func TestEvaluateRejectsZeroQuestionQuiz(t *testing.T) {
	quiz := domain.Quiz{ID: "empty"}
	if _, err := Evaluate(quiz, []Submission{}, time.Now()); !errors.Is(err, ErrInvalidQuizState) {
		t.Fatalf("err = %v, want ErrInvalidQuizState", err)
	}
}

func TestResultsJoinsAnswersByIndex(t *testing.T) {
	quiz := sampleQuiz()
	answered := time.Now()
	quiz.UserAnswers = []domain.UserAnswer{
		{QuestionIndex: 1, SelectedAnswer: "Rome", IsCorrect: true, AnsweredAt: answered},
	}
	rows := Results(quiz)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].SelectedAnswer != nil || rows[0].IsCorrect {
		t.Fatalf("unanswered question should have nil selection: %+v", rows[0])
	}
	if rows[1].SelectedAnswer == nil || *rows[1].SelectedAnswer != "Rome" || !rows[1].IsCorrect {
		t.Fatalf("answered question not joined: %+v", rows[1])
	}
}
