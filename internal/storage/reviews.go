package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/flashmind/internal/domain"
	"github.com/conorfennell/flashmind/internal/sm2"
)

// RecordReview applies next to the stored review state of a card and saves
// the result together with a review log, all in one transaction. Concurrent
// reviews of the same card are applied one after the other.
func (db *DB) RecordReview(
	ctx context.Context,
	cardID string,
	quality int,
	reviewedAt time.Time,
	next func(sm2.ReviewState) (sm2.ReviewState, error),
) (domain.Card, error) {
	reviewedAt = reviewedAt.UTC()

	var card domain.Card
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		card, err = getCard(ctx, tx, cardID)
		if err != nil {
			return err
		}

		state, err := next(card.ReviewState)
		if err != nil {
			return err
		}
		card.ReviewState = state
		card.Reviews++
		card.LastReviewedAt = &reviewedAt

		if _, err := tx.ExecContext(ctx, `
			UPDATE cards
			SET interval_days = ?, repetitions = ?, ease_factor = ?, next_review_at = ?,
			    reviews = ?, last_reviewed_at = ?
			WHERE id = ?
		`,
			state.IntervalDays,
			state.Repetitions,
			state.EaseFactor,
			state.NextReviewAt.UnixMilli(),
			card.Reviews,
			reviewedAt,
			cardID,
		); err != nil {
			return fmt.Errorf("failed to update review state for card %s: %w", cardID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO review_logs (card_id, quality, interval_days, ease_factor, reviewed_at)
			VALUES (?, ?, ?, ?, ?)
		`, cardID, quality, state.IntervalDays, state.EaseFactor, reviewedAt); err != nil {
			return fmt.Errorf("failed to insert review log for card %s: %w", cardID, err)
		}

		return touchDeck(ctx, tx, card.DeckID)
	})
	if err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// ListReviewLogs retrieves the review history of a card, oldest first.
func (db *DB) ListReviewLogs(ctx context.Context, cardID string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, quality, interval_days, ease_factor, reviewed_at
		FROM review_logs WHERE card_id = ?
		ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for card %s: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		if err := rows.Scan(&l.CardID, &l.Quality, &l.IntervalDays, &l.EaseFactor, &l.ReviewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review log row for card %s: %w", cardID, err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get review logs for card %s: %w", cardID, err)
	}
	return logs, nil
}
