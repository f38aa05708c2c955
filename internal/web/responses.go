package web

import (
	"time"

	"github.com/conorfennell/flashmind/internal/domain"
)

type deckResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SourceID    *int64    `json:"source_id,omitempty"`
	SourceFile  string    `json:"source_file,omitempty"`
	CardCount   int       `json:"card_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toDeckResponse(d domain.Deck) deckResponse {
	return deckResponse{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		SourceID:    d.SourceID,
		SourceFile:  d.SourceFile,
		CardCount:   d.CardCount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type cardResponse struct {
	ID             string     `json:"id"`
	DeckID         string     `json:"deck_id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Hint           string     `json:"hint,omitempty"`
	IntervalDays   int        `json:"interval_days"`
	Repetitions    int        `json:"repetitions"`
	EaseFactor     float64    `json:"ease_factor"`
	NextReviewAt   time.Time  `json:"next_review_at"`
	Reviews        int        `json:"reviews"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toCardResponse(c domain.Card) cardResponse {
	return cardResponse{
		ID:             c.ID,
		DeckID:         c.DeckID,
		Front:          c.Front,
		Back:           c.Back,
		Hint:           c.Hint,
		IntervalDays:   c.IntervalDays,
		Repetitions:    c.Repetitions,
		EaseFactor:     c.EaseFactor,
		NextReviewAt:   c.NextReviewAt,
		Reviews:        c.Reviews,
		LastReviewedAt: c.LastReviewedAt,
		CreatedAt:      c.CreatedAt,
	}
}

func toCardResponses(cards []domain.Card) []cardResponse {
	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardResponse(c))
	}
	return out
}

type sourceResponse struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}

func toSourceResponse(s domain.Source) sourceResponse {
	return sourceResponse{ID: s.ID, Path: s.Path, Type: s.Type, LastScanned: s.LastScanned}
}
