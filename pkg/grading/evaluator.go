package grading

import (
	"errors"
	"math"
	"time"

	"studylab/pkg/domain"
)

var (
	// ErrQuizCompleted indicates the quiz was already graded.
	ErrQuizCompleted = errors.New("quiz already completed")
	// ErrInvalidSubmission indicates a malformed answers payload.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrInvalidQuizState indicates a quiz that cannot be scored,
	// such as one with zero questions.
	ErrInvalidQuizState = errors.New("invalid quiz state")
)

// Submission is one answer in a quiz submission.
type Submission struct {
	QuestionIndex  int    `json:"questionIndex"`
	SelectedAnswer string `json:"selectedAnswer"`
}

// Result aggregates the outcome of grading a full submission.
type Result struct {
	Score          int                 `json:"score"`
	CorrectCount   int                 `json:"correctCount"`
	TotalQuestions int                 `json:"totalQuestions"`
	UserAnswers    []domain.UserAnswer `json:"userAnswers"`
	CompletedAt    time.Time           `json:"completedAt"`
}

// Evaluate grades a submission against the quiz's canonical answers.
// Answers with an out-of-range question index are skipped, not errors.
// The quiz itself is not mutated; persisting the result is the caller's
// responsibility.
func Evaluate(quiz domain.Quiz, answers []Submission, now time.Time) (Result, error) {
	if quiz.Completed() {
		return Result{}, ErrQuizCompleted
	}
	if answers == nil {
		return Result{}, ErrInvalidSubmission
	}
	if quiz.TotalQuestions <= 0 || len(quiz.Questions) == 0 {
		return Result{}, ErrInvalidQuizState
	}

	correctCount := 0
	userAnswers := make([]domain.UserAnswer, 0, len(answers))
	for _, ans := range answers {
		if ans.QuestionIndex < 0 || ans.QuestionIndex >= len(quiz.Questions) {
			continue
		}
		question := quiz.Questions[ans.QuestionIndex]
		correct := Grade(ans.SelectedAnswer, question.CorrectAnswer)
		if correct {
			correctCount++
		}
		userAnswers = append(userAnswers, domain.UserAnswer{
			QuestionIndex:  ans.QuestionIndex,
			SelectedAnswer: ans.SelectedAnswer,
			IsCorrect:      correct,
			AnsweredAt:     now,
		})
	}

	score := int(math.Round(float64(correctCount) / float64(quiz.TotalQuestions) * 100))
	return Result{
		Score:          score,
		CorrectCount:   correctCount,
		TotalQuestions: quiz.TotalQuestions,
		UserAnswers:    userAnswers,
		CompletedAt:    now,
	}, nil
}

// Results builds the per-question detail view for a graded quiz by
// joining questions with recorded answers on question index. Questions
// nobody answered show a nil selection and false correctness.
func Results(quiz domain.Quiz) []domain.QuestionResult {
	byIndex := make(map[int]domain.UserAnswer, len(quiz.UserAnswers))
	for _, ans := range quiz.UserAnswers {
		byIndex[ans.QuestionIndex] = ans
	}
	results := make([]domain.QuestionResult, 0, len(quiz.Questions))
	for i, question := range quiz.Questions {
		row := domain.QuestionResult{
			QuestionIndex: i,
			Prompt:        question.Prompt,
			Options:       question.Options,
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
		}
		if ans, ok := byIndex[i]; ok {
			selected := ans.SelectedAnswer
			row.SelectedAnswer = &selected
			row.IsCorrect = ans.IsCorrect
		}
		results = append(results, row)
	}
	return results
}
