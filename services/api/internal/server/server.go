package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"studylab/internal/usertoken"
	"studylab/internal/util"
	"studylab/pkg/grading"
	"studylab/services/api/internal/app"
)

// Limiter gates expensive operations per caller.
type Limiter interface {
	Allow(key string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App               *app.App
	TokenVerifier     *usertoken.Verifier
	UploadLimiter     Limiter
	InternalToken     string
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// Server exposes HTTP endpoints for the api service.
type Server struct {
	app            *app.App
	tokenVerifier  *usertoken.Verifier
	uploadLimiter  Limiter
	internalToken  string
	mux            *http.ServeMux
	maxUploadBytes int64
	allowedExts    map[string]bool
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	if strings.TrimSpace(cfg.InternalToken) == "" {
		return nil, errors.New("server: internal token is required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 25 * 1024 * 1024
	}
	exts := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		exts[strings.ToLower(ext)] = true
	}
	s := &Server{
		app:            cfg.App,
		tokenVerifier:  cfg.TokenVerifier,
		uploadLimiter:  cfg.UploadLimiter,
		internalToken:  cfg.InternalToken,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
		allowedExts:    exts,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("api", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// documents
	s.mux.Handle("/documents", s.withUser(s.handleDocuments))
	s.mux.Handle("/documents/", s.withUser(s.handleDocumentByID))

	// quizzes
	s.mux.Handle("/quizzes/", s.withUser(s.handleQuizByID))

	// flashcards
	s.mux.Handle("/flashcards", s.withUser(s.handleFlashcardSets))
	s.mux.Handle("/flashcards/", s.withUser(s.handleFlashcardByID))

	// generator-facing creation endpoints
	s.mux.Handle("/internal/documents/", s.withInternal(s.handleInternalDocument))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokenVerifier == nil {
			writeError(w, http.StatusInternalServerError, "token verifier not configured")
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, err := s.tokenVerifier.VerifySubject(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, userID)
	})
}

func (s *Server) withInternal(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("X-Internal-Token"))
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.internalToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodPost:
		s.handleUploadDocument(w, r, userID)
	case http.MethodGet:
		s.handleListDocuments(w, userID)
	default:
		methodNotAllowed(w)
	}
}

// /documents/{id}, /documents/{id}/download, /documents/{id}/quizzes,
// /documents/{id}/flashcards
func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request, userID string) {
	path := strings.TrimPrefix(r.URL.Path, "/documents/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "download":
			s.handleDownloadDocument(w, r, userID, id)
		case "quizzes":
			s.handleListQuizzes(w, r, userID, id)
		case "flashcards":
			s.handleListFlashcardSets(w, r, userID, id)
		default:
			notFound(w, "not found")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, chunks, err := s.app.GetDocument(userID, id)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"document": doc,
			"chunks":   chunks,
		})
	case http.MethodDelete:
		if err := s.app.DeleteDocument(r.Context(), userID, id); err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request, userID string) {
	if s.uploadLimiter != nil && !s.uploadLimiter.Allow("upload:"+userID) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !s.allowedExts[ext] {
		writeError(w, http.StatusBadRequest, "unsupported file type: "+ext)
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, ext)
	}
	doc, err := s.app.UploadDocument(r.Context(), userID, title, header.Filename, file, header.Size)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, userID string) {
	docs, err := s.app.ListDocuments(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": docs,
		"count": len(docs),
	})
}

// handleDownloadDocument returns a pre-signed download URL for the original file.
func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request, userID, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	url, filename, err := s.app.GetDownloadURL(r.Context(), userID, id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url":      url,
		"filename": filename,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNotFound):
		notFound(w, "not found")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrQuizNotCompleted):
		writeError(w, http.StatusBadRequest, "quiz not completed")
	case errors.Is(err, grading.ErrQuizCompleted):
		writeError(w, http.StatusConflict, "quiz already completed")
	case errors.Is(err, grading.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "answers are required")
	case errors.Is(err, grading.ErrInvalidQuizState):
		writeError(w, http.StatusBadRequest, "quiz has no questions")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeFor(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeFor(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "rate limit exceeded":
		return "UPLOAD_RATE_LIMITED"
	case strings.Contains(message, "file is required"):
		return "DOCUMENT_FILE_REQUIRED"
	case strings.Contains(message, "unsupported file type"):
		return "DOCUMENT_UNSUPPORTED_FILE_TYPE"
	case message == "invalid form data":
		return "DOCUMENT_INVALID_UPLOAD_FORM"
	case message == "quiz already completed":
		return "QUIZ_ALREADY_COMPLETED"
	case message == "quiz not completed":
		return "QUIZ_NOT_COMPLETED"
	case message == "quiz has no questions":
		return "QUIZ_NO_QUESTIONS"
	case message == "answers are required":
		return "QUIZ_INVALID_SUBMISSION"
	}

	switch status {
	case http.StatusBadRequest:
		return "REQUEST_INVALID"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusForbidden:
		return "ACCESS_FORBIDDEN"
	case http.StatusNotFound:
		return "RESOURCE_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "UPLOAD_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
