package domain

import (
	"strings"
	"time"

	"github.com/conorfennell/flashmind/internal/sm2"
)

// Card represents a single front/back entry together with its review state.
type Card struct {
	ID     string
	DeckID string
	Front  string
	Back   string
	Hint   string
	Hash   string

	sm2.ReviewState
	Reviews        int
	LastReviewedAt *time.Time
	CreatedAt      time.Time
}

// Deck groups cards. Decks created by a sync remember the source and file
// they were built from.
type Deck struct {
	ID          string
	Title       string
	Description string
	SourceID    *int64
	SourceFile  string
	CardCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReviewLog records a single review event for a card.
// Quality is the 0-5 SM-2 grade; values of 3 and above count as remembered.
type ReviewLog struct {
	CardID       string
	Quality      int
	IntervalDays int
	EaseFactor   float64
	ReviewedAt   time.Time
}

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source is a directory or git repository that cards are synced from.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned *time.Time
}

// SourceTypeFor guesses whether path names a git repository or a local directory.
func SourceTypeFor(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return SourceGit
	}
	return SourceLocal
}
