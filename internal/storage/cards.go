package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/flashmind/internal/domain"
	"github.com/conorfennell/flashmind/internal/knol"
	"github.com/conorfennell/flashmind/internal/sm2"
)

const cardColumns = `
	id, deck_id, front, back, hint, hash,
	interval_days, repetitions, ease_factor, next_review_at,
	reviews, last_reviewed_at, created_at`

// Due dates are stored as unix milliseconds so that any interval the
// scheduler hands out can be read back.
func fromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func scanCard(s rowScanner) (domain.Card, error) {
	var c domain.Card
	var nextReview int64
	var lastReviewed sql.NullTime
	if err := s.Scan(
		&c.ID,
		&c.DeckID,
		&c.Front,
		&c.Back,
		&c.Hint,
		&c.Hash,
		&c.IntervalDays,
		&c.Repetitions,
		&c.EaseFactor,
		&nextReview,
		&c.Reviews,
		&lastReviewed,
		&c.CreatedAt,
	); err != nil {
		return domain.Card{}, err
	}
	c.NextReviewAt = fromUnixMilli(nextReview)
	if lastReviewed.Valid {
		t := lastReviewed.Time
		c.LastReviewedAt = &t
	}
	return c, nil
}

// InsertCard adds a card to an existing deck.
// It returns ErrNotFound when the deck is missing and ErrDuplicate when the
// deck already holds a card with the same content hash.
func (db *DB) InsertCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	var stored domain.Card
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getDeck(ctx, tx, card.DeckID); err != nil {
			return err
		}
		var err error
		stored, err = insertCard(ctx, tx, card, time.Now().UTC())
		if err != nil {
			return err
		}
		return touchDeck(ctx, tx, card.DeckID)
	})
	return stored, err
}

func insertCard(ctx context.Context, tx *sql.Tx, card domain.Card, now time.Time) (domain.Card, error) {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.Hash == "" {
		card.Hash = knol.Hash(card)
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	if card.EaseFactor == 0 {
		card.ReviewState = sm2.NewState(now)
	}

	_, err := findCardByHash(ctx, tx, card.DeckID, card.Hash)
	switch {
	case err == nil:
		return domain.Card{}, fmt.Errorf("failed to insert card %s: %w", card.Hash, ErrDuplicate)
	case !errors.Is(err, ErrNotFound):
		return domain.Card{}, err
	}

	var lastReviewed sql.NullTime
	if card.LastReviewedAt != nil {
		lastReviewed = sql.NullTime{Time: card.LastReviewedAt.UTC(), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cards (
			id, deck_id, front, back, hint, hash,
			interval_days, repetitions, ease_factor, next_review_at,
			reviews, last_reviewed_at, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		card.DeckID,
		card.Front,
		card.Back,
		card.Hint,
		card.Hash,
		card.IntervalDays,
		card.Repetitions,
		card.EaseFactor,
		card.NextReviewAt.UnixMilli(),
		card.Reviews,
		lastReviewed,
		card.CreatedAt.UTC(),
	); err != nil {
		return domain.Card{}, fmt.Errorf("failed to insert card %s: %w", card.Hash, err)
	}
	return card, nil
}

// GetCard retrieves a card by its ID.
func (db *DB) GetCard(ctx context.Context, id string) (domain.Card, error) {
	return getCard(ctx, db.conn, id)
}

func getCard(ctx context.Context, q querier, id string) (domain.Card, error) {
	row := q.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		return domain.Card{}, notFound(err, "failed to find card %s", id)
	}
	return c, nil
}

// FindCardByHash retrieves the card with the given content hash from a deck.
func (db *DB) FindCardByHash(ctx context.Context, deckID, hash string) (domain.Card, error) {
	return findCardByHash(ctx, db.conn, deckID, hash)
}

func findCardByHash(ctx context.Context, q querier, deckID, hash string) (domain.Card, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE deck_id = ? AND hash = ?`,
		deckID, hash)
	c, err := scanCard(row)
	if err != nil {
		return domain.Card{}, notFound(err, "failed to find card by hash %s", hash)
	}
	return c, nil
}

// ListCards retrieves the cards of a deck in insertion order.
func (db *DB) ListCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	return db.queryCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE deck_id = ? ORDER BY rowid`, deckID)
}

// DueCards retrieves cards whose next review is at or before now, earliest
// first. An empty deckID selects cards from every deck.
func (db *DB) DueCards(ctx context.Context, deckID string, now time.Time) ([]domain.Card, error) {
	const order = ` ORDER BY next_review_at, rowid`
	if deckID == "" {
		return db.queryCards(ctx,
			`SELECT `+cardColumns+` FROM cards WHERE next_review_at <= ?`+order,
			now.UnixMilli())
	}
	return db.queryCards(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE deck_id = ? AND next_review_at <= ?`+order,
		deckID, now.UnixMilli())
}

func (db *DB) queryCards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

// DeleteCard removes a card and its review logs.
func (db *DB) DeleteCard(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM review_logs WHERE card_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete review logs for card %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete card %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("failed to delete card %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
