package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"studylab/pkg/domain"
)

// /internal/documents/{id}/quizzes, /internal/documents/{id}/flashcards
//
// These endpoints are called by the content generator after it has
// produced questions or cards for a processed document.
func (s *Server) handleInternalDocument(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/internal/documents/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		notFound(w, "not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	documentID := parts[0]
	switch parts[1] {
	case "quizzes":
		s.handleInternalCreateQuiz(w, r, documentID)
	case "flashcards":
		s.handleInternalCreateFlashcards(w, r, documentID)
	default:
		notFound(w, "not found")
	}
}

type createQuizRequest struct {
	OwnerID   string            `json:"ownerId"`
	Title     string            `json:"title"`
	Questions []domain.Question `json:"questions"`
}

func (s *Server) handleInternalCreateQuiz(w http.ResponseWriter, r *http.Request, documentID string) {
	var req createQuizRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	quiz, err := s.app.CreateQuiz(req.OwnerID, documentID, req.Title, req.Questions)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

type createFlashcardsRequest struct {
	OwnerID string        `json:"ownerId"`
	Title   string        `json:"title"`
	Cards   []domain.Card `json:"cards"`
}

func (s *Server) handleInternalCreateFlashcards(w http.ResponseWriter, r *http.Request, documentID string) {
	var req createFlashcardsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	set, err := s.app.CreateFlashcardSet(req.OwnerID, documentID, req.Title, req.Cards)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}
