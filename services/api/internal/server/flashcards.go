package server

import (
	"net/http"
	"strings"
)

func (s *Server) handleFlashcardSets(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sets, err := s.app.ListAllFlashcardSets(userID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": sets,
		"count": len(sets),
	})
}

func (s *Server) handleListFlashcardSets(w http.ResponseWriter, r *http.Request, userID, documentID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sets, err := s.app.ListFlashcardSets(userID, documentID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": sets,
		"count": len(sets),
	})
}

// /flashcards/{setId}, /flashcards/cards/{cardId}/review,
// /flashcards/cards/{cardId}/star
func (s *Server) handleFlashcardByID(w http.ResponseWriter, r *http.Request, userID string) {
	path := strings.TrimPrefix(r.URL.Path, "/flashcards/")
	parts := strings.Split(path, "/")
	if parts[0] == "cards" {
		if len(parts) != 3 || parts[1] == "" {
			notFound(w, "not found")
			return
		}
		s.handleCardAction(w, r, userID, parts[1], parts[2])
		return
	}
	if len(parts) != 1 || parts[0] == "" {
		notFound(w, "not found")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		if err := s.app.DeleteFlashcardSet(userID, parts[0]); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCardAction(w http.ResponseWriter, r *http.Request, userID, cardID, action string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	switch action {
	case "review":
		set, err := s.app.ReviewCard(userID, cardID)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, set)
	case "star":
		set, starred, err := s.app.ToggleStarCard(userID, cardID)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"set":     set,
			"starred": starred,
		})
	default:
		notFound(w, "not found")
	}
}
