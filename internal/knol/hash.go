// Package knol derives the content identity of a card. Two cards with the
// same knol hash are the same piece of knowledge, whatever their review state.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/conorfennell/flashmind/internal/domain"
)

// Normalize returns the canonical text of a card's front, back and hint.
// Each field is NFC-normalized and case-folded, runs of spaces inside a line
// collapse to one, and blank edges are trimmed.
func Normalize(card domain.Card) string {
	fold := cases.Fold()
	parts := []string{card.Front, card.Back, card.Hint}
	for i, part := range parts {
		parts[i] = normalizeField(fold, part)
	}
	// Joined with a newline so "front" and "back" never run together.
	return strings.Join(parts, "\n")
}

func normalizeField(fold cases.Caser, s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = fold.String(norm.NFC.String(s))
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Hash returns the hex SHA-256 of the normalized card.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}

// Unique fills in the hash of every card and drops cards whose content
// repeats an earlier one, keeping the first.
func Unique(cards []domain.Card) []domain.Card {
	seen := make(map[string]bool, len(cards))
	out := make([]domain.Card, 0, len(cards))
	for _, card := range cards {
		card.Hash = Hash(card)
		if seen[card.Hash] {
			continue
		}
		seen[card.Hash] = true
		out = append(out, card)
	}
	return out
}
