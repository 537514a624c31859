package textproc

import (
	"errors"
	"strings"

	"studylab/pkg/domain"
)

// ErrInvalidChunkConfig is returned for window/overlap combinations that
// would produce duplicate or non-terminating windows.
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// Chunk splits text into overlapping fixed-size windows of runes.
// Window i starts at rune offset i*(window-overlap) and spans at most
// window runes; the last window may be shorter. The windows cover the
// whole text with no gaps. Empty text yields no chunks and no error.
func Chunk(text string, window, overlap int) ([]domain.Chunk, error) {
	if window <= 0 || overlap < 0 || overlap >= window {
		return nil, ErrInvalidChunkConfig
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	step := window - overlap
	chunks := make([]domain.Chunk, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			Index:   len(chunks),
			Content: string(runes[start:end]),
			Start:   start,
			End:     end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Normalize collapses whitespace runs to single spaces, strips NUL bytes
// and invalid UTF-8, and trims the result.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
