// Package extract converts uploaded files to plain text. The extractor
// is a boundary adapter: the pipeline depends only on the Extractor
// interface and treats every failure as ErrExtractionFailed.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"studylab/pkg/textproc"
)

// ErrExtractionFailed wraps any extractor error. An empty-content file
// is not a failure; it extracts to the empty string.
var ErrExtractionFailed = errors.New("text extraction failed")

// Extractor produces plain text from a stored file.
type Extractor interface {
	Extract(ctx context.Context, filename, path string) (string, error)
}

// FileExtractor extracts text from PDF, HTML, and plain-text files.
type FileExtractor struct{}

func New() *FileExtractor {
	return &FileExtractor{}
}

func (e *FileExtractor) Extract(ctx context.Context, filename, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return e.extractPDF(ctx, path)
	case ".html", ".htm":
		return e.extractHTML(path)
	default:
		return e.extractPlain(path)
	}
}

func (e *FileExtractor) extractPDF(ctx context.Context, path string) (string, error) {
	// Prefer pdftotext; it handles complex layouts and CJK text better.
	if text, err := extractWithPdftotext(ctx, path); err == nil {
		return text, nil
	}
	return extractWithGoLib(path)
}

func extractWithPdftotext(ctx context.Context, path string) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not found: %w", err)
	}
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return textproc.Normalize(string(output)), nil
}

func extractWithGoLib(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrExtractionFailed, err)
	}
	defer file.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages rather than failing the document.
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}
	return textproc.Normalize(b.String()), nil
}

func (e *FileExtractor) extractHTML(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read file: %v", ErrExtractionFailed, err)
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", ErrExtractionFailed, err)
	}
	return textproc.Normalize(htmlText(doc)), nil
}

func (e *FileExtractor) extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read file: %v", ErrExtractionFailed, err)
	}
	return textproc.Normalize(string(data)), nil
}

func htmlText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			buf.WriteString(" ")
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && (node.Data == "p" || node.Data == "br" || node.Data == "div" || node.Data == "li") {
			buf.WriteString(" ")
		}
	}
	walk(n)
	return buf.String()
}
