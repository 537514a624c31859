// Package grading implements answer normalization, answer comparison,
// and quiz score aggregation. Everything here is pure: no I/O, no
// hidden state, safe for concurrent use.
package grading

import (
	"regexp"
	"strings"
)

// optionPrefix matches an option label at the start of an answer,
// e.g. "A: " or "O3: ". The label is presentation-only and must be
// discarded before comparison.
var optionPrefix = regexp.MustCompile(`^(?:[A-Za-z]|O\d+):\s*`)

// NormalizeAnswer strips a leading option label, lowercases, trims,
// and splits the answer into whitespace-delimited tokens.
func NormalizeAnswer(answer string) []string {
	answer = optionPrefix.ReplaceAllString(answer, "")
	answer = strings.ToLower(strings.TrimSpace(answer))
	return strings.Fields(answer)
}

// Grade reports whether a selected answer matches the canonical answer.
// The rule is deliberately loose: token counts must match and every
// selected token must appear somewhere in the correct answer, so word
// order is ignored. Two blank answers compare equal.
func Grade(selected, correct string) bool {
	selectedTokens := NormalizeAnswer(selected)
	correctTokens := NormalizeAnswer(correct)
	if len(selectedTokens) != len(correctTokens) {
		return false
	}
	correctSet := make(map[string]struct{}, len(correctTokens))
	for _, tok := range correctTokens {
		correctSet[tok] = struct{}{}
	}
	for _, tok := range selectedTokens {
		if _, ok := correctSet[tok]; !ok {
			return false
		}
	}
	return true
}
