// Package study runs review sessions: it grades cards with the SM-2
// scheduler and keeps their state in storage.
package study

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/flashmind/internal/domain"
	"github.com/conorfennell/flashmind/internal/sm2"
	"github.com/conorfennell/flashmind/internal/storage"
)

// Service records reviews and answers questions about what is due.
type Service struct {
	db     *storage.DB
	params *sm2.Params
	now    func() time.Time
}

// NewService creates a Service. A nil params uses the default SM-2 parameters.
func NewService(db *storage.DB, params *sm2.Params) *Service {
	if params == nil {
		params = sm2.DefaultParams()
	}
	return &Service{db: db, params: params, now: time.Now}
}

// Params returns the scheduler parameters in use.
func (s *Service) Params() *sm2.Params {
	return s.params
}

// NewCard prepares a card for deckID with a fresh review state.
func (s *Service) NewCard(deckID, front, back, hint string) domain.Card {
	now := s.now()
	return domain.Card{
		DeckID:      deckID,
		Front:       front,
		Back:        back,
		Hint:        hint,
		ReviewState: s.params.NewState(now),
		CreatedAt:   now,
	}
}

// Record grades a review of cardID and stores the resulting state.
func (s *Service) Record(ctx context.Context, cardID string, quality sm2.Quality) (domain.Card, error) {
	now := s.now()
	card, err := s.db.RecordReview(ctx, cardID, int(quality), now, func(state sm2.ReviewState) (sm2.ReviewState, error) {
		return s.params.NextState(state, quality, now)
	})
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to record review for card %s: %w", cardID, err)
	}

	slog.Debug("recorded review",
		"card", cardID,
		"quality", int(quality),
		"interval_days", card.IntervalDays,
		"ease_factor", card.EaseFactor,
	)
	return card, nil
}

// Due lists cards due now. An empty deckID covers every deck.
func (s *Service) Due(ctx context.Context, deckID string) ([]domain.Card, error) {
	cards, err := s.db.DueCards(ctx, deckID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards: %w", err)
	}
	return cards, nil
}

// Stats summarizes the review progress of a deck.
type Stats struct {
	DeckID            string  `json:"deck_id"`
	TotalCards        int     `json:"total_cards"`
	DueCards          int     `json:"due_cards"`
	NewCards          int     `json:"new_cards"`
	ReviewedCards     int     `json:"reviewed_cards"`
	TotalReviews      int     `json:"total_reviews"`
	AverageEaseFactor float64 `json:"average_ease_factor"`
}

// Stats computes Stats for deckID. The deck must exist.
func (s *Service) Stats(ctx context.Context, deckID string) (Stats, error) {
	if _, err := s.db.GetDeck(ctx, deckID); err != nil {
		return Stats{}, err
	}
	cards, err := s.db.ListCards(ctx, deckID)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get stats for deck %s: %w", deckID, err)
	}

	now := s.now()
	stats := Stats{DeckID: deckID, TotalCards: len(cards)}
	var easeSum float64
	for _, c := range cards {
		easeSum += c.EaseFactor
		stats.TotalReviews += c.Reviews
		if c.Due(now) {
			stats.DueCards++
		}
		if c.Reviews == 0 {
			stats.NewCards++
		} else {
			stats.ReviewedCards++
		}
	}
	if len(cards) > 0 {
		stats.AverageEaseFactor = easeSum / float64(len(cards))
	}
	return stats, nil
}
