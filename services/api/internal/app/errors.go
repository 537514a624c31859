package app

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the record belongs to another user.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput indicates a malformed or incomplete request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQuizNotCompleted indicates results were requested before grading.
	ErrQuizNotCompleted = errors.New("quiz not completed")
)
