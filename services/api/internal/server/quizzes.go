package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"studylab/pkg/grading"
)

// /quizzes/{id}, /quizzes/{id}/submit, /quizzes/{id}/results
func (s *Server) handleQuizByID(w http.ResponseWriter, r *http.Request, userID string) {
	path := strings.TrimPrefix(r.URL.Path, "/quizzes/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "submit":
			s.handleSubmitQuiz(w, r, userID, id)
		case "results":
			s.handleQuizResults(w, r, userID, id)
		default:
			notFound(w, "not found")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		quiz, err := s.app.GetQuiz(userID, id)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quiz)
	case http.MethodDelete:
		if err := s.app.DeleteQuiz(userID, id); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request, userID, documentID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	quizzes, err := s.app.ListQuizzes(userID, documentID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": quizzes,
		"count": len(quizzes),
	})
}

type submitRequest struct {
	Answers []struct {
		QuestionIndex  int    `json:"questionIndex"`
		SelectedAnswer string `json:"selectedAnswer"`
	} `json:"answers"`
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request, userID, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var answers []grading.Submission
	if req.Answers != nil {
		answers = make([]grading.Submission, 0, len(req.Answers))
		for _, a := range req.Answers {
			answers = append(answers, grading.Submission{
				QuestionIndex:  a.QuestionIndex,
				SelectedAnswer: a.SelectedAnswer,
			})
		}
	}
	result, err := s.app.SubmitQuiz(userID, id, answers)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuizResults(w http.ResponseWriter, r *http.Request, userID, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	results, err := s.app.GetQuizResults(userID, id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
