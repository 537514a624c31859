package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"studylab/internal/usertoken"
	"studylab/pkg/queue"
	"studylab/pkg/store"
	"studylab/services/api/internal/app"
)

const testSecret = "server-test-secret"

type stubObjects struct {
	objects map[string][]byte
}

func (s *stubObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *stubObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *stubObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.local/" + key, nil
}

func (s *stubObjects) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type stubQueue struct{ enqueued int }

func (s *stubQueue) Enqueue(_ context.Context, documentID, storageKey, filename string) (queue.Job, error) {
	s.enqueued++
	return queue.Job{ID: "job", DocumentID: documentID, StorageKey: storageKey, Filename: filename, Status: queue.StatusQueued}, nil
}

type budgetLimiter struct{ remaining int }

func (b *budgetLimiter) Allow(string) bool {
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

func newTestServer(t *testing.T, limiter Limiter) *httptest.Server {
	t.Helper()
	a, err := app.New(app.Config{
		Store:   store.NewMemoryStore(),
		Objects: &stubObjects{objects: make(map[string][]byte)},
		Jobs:    &stubQueue{},
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	verifier, err := usertoken.NewVerifier(usertoken.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	srv, err := New(Config{
		App:               a,
		TokenVerifier:     verifier,
		UploadLimiter:     limiter,
		InternalToken:     "internal-secret",
		AllowedExtensions: []string{".pdf", ".txt"},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iss": "studylab-auth",
		"aud": "studylab-api",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func uploadFile(t *testing.T, ts *httptest.Server, token, filename, title, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if title != "" {
		if err := mw.WriteField("title", title); err != nil {
			t.Fatalf("write title field: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write file content: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/documents", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	return resp
}

func TestDocumentsRequireAuth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/documents")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestUploadAndFetchDocument(t *testing.T) {
	ts := newTestServer(t, nil)
	token := signToken(t, "u1")

	resp := uploadFile(t, ts, token, "notes.txt", "Biology notes", "cells divide")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d, body: %s", resp.StatusCode, body)
	}
	var doc struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if doc.Status != "processing" {
		t.Fatalf("status = %q, want processing", doc.Status)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/documents/"+doc.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	getResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", getResp.StatusCode)
	}

	// Another user cannot see it.
	otherReq, _ := http.NewRequest(http.MethodGet, ts.URL+"/documents/"+doc.ID, nil)
	otherReq.Header.Set("Authorization", "Bearer "+signToken(t, "u2"))
	otherResp, err := http.DefaultClient.Do(otherReq)
	if err != nil {
		t.Fatalf("get as other user: %v", err)
	}
	otherResp.Body.Close()
	if otherResp.StatusCode != http.StatusForbidden {
		t.Fatalf("other user status = %d, want 403", otherResp.StatusCode)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := uploadFile(t, ts, signToken(t, "u1"), "malware.exe", "Nope", "MZ")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var errBody struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody.Code != "DOCUMENT_UNSUPPORTED_FILE_TYPE" {
		t.Fatalf("code = %q", errBody.Code)
	}
}

func TestUploadRateLimit(t *testing.T) {
	ts := newTestServer(t, &budgetLimiter{remaining: 1})
	token := signToken(t, "u1")

	resp1 := uploadFile(t, ts, token, "a.txt", "First", "one")
	resp1.Body.Close()
	if resp1.StatusCode != http.StatusCreated {
		t.Fatalf("first upload status = %d, want 201", resp1.StatusCode)
	}
	resp2 := uploadFile(t, ts, token, "b.txt", "Second", "two")
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second upload status = %d, want 429", resp2.StatusCode)
	}
}

func TestInternalQuizCreationAndSubmission(t *testing.T) {
	ts := newTestServer(t, nil)
	token := signToken(t, "u1")

	resp := uploadFile(t, ts, token, "notes.txt", "Biology", "cells divide")
	var doc struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	resp.Body.Close()

	quizBody := `{"ownerId":"u1","title":"Chapter 1","questions":[{"prompt":"Capital of France?","options":["A: Paris","B: Rome"],"correctAnswer":"Paris"}]}`

	// Missing internal token is rejected.
	noAuth, err := http.Post(ts.URL+"/internal/documents/"+doc.ID+"/quizzes", "application/json", strings.NewReader(quizBody))
	if err != nil {
		t.Fatalf("internal request: %v", err)
	}
	noAuth.Body.Close()
	if noAuth.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", noAuth.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/internal/documents/"+doc.ID+"/quizzes", strings.NewReader(quizBody))
	req.Header.Set("X-Internal-Token", "internal-secret")
	created, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("internal create: %v", err)
	}
	defer created.Body.Close()
	if created.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(created.Body)
		t.Fatalf("create quiz status = %d, body: %s", created.StatusCode, body)
	}
	var quiz struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(created.Body).Decode(&quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}

	submit := func() *http.Response {
		body := `{"answers":[{"questionIndex":0,"selectedAnswer":"A: Paris"}]}`
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/quizzes/"+quiz.ID+"/submit", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		return resp
	}

	first := submit()
	defer first.Body.Close()
	if first.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(first.Body)
		t.Fatalf("submit status = %d, body: %s", first.StatusCode, body)
	}
	var result struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(first.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Score != 100 {
		t.Fatalf("score = %d, want 100", result.Score)
	}

	second := submit()
	second.Body.Close()
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("second submit status = %d, want 409", second.StatusCode)
	}
}
