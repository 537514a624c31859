package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("  hello\n\nworld  "), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	e := New()
	text, err := e.Extract(context.Background(), "notes.txt", path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q, want %q", text, "hello world")
	}
}

func TestExtractEmptyFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	e := New()
	text, err := e.Extract(context.Background(), "empty.txt", path)
	if err != nil {
		t.Fatalf("Extract on empty file: %v", err)
	}
	if text != "" {
		t.Fatalf("text = %q, want empty", text)
	}
}

func TestExtractHTMLStripsMarkup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	content := `<html><head><style>p{color:red}</style></head><body><p>First</p><p>Second</p><script>alert(1)</script></body></html>`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	e := New()
	text, err := e.Extract(context.Background(), "page.html", path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "First Second" {
		t.Fatalf("text = %q, want %q", text, "First Second")
	}
}

func TestExtractCorruptPDFFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	e := New()
	if _, err := e.Extract(context.Background(), "broken.pdf", path); !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
}

func TestExtractMissingFileFails(t *testing.T) {
	e := New()
	if _, err := e.Extract(context.Background(), "gone.txt", filepath.Join(t.TempDir(), "gone.txt")); !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
}
