package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/flashmind/internal/domain"
)

const deckColumns = `
	id, title, description, source_id, source_file, created_at, updated_at,
	(SELECT COUNT(*) FROM cards WHERE cards.deck_id = decks.id)`

func scanDeck(s rowScanner) (domain.Deck, error) {
	var d domain.Deck
	var sourceID sql.NullInt64
	if err := s.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&sourceID,
		&d.SourceFile,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.CardCount,
	); err != nil {
		return domain.Deck{}, err
	}
	if sourceID.Valid {
		id := sourceID.Int64
		d.SourceID = &id
	}
	return d, nil
}

// CreateDeck inserts a deck together with its cards in one transaction.
// Missing IDs, hashes and timestamps are filled in; cards without a review
// state start with the default SM-2 state.
func (db *DB) CreateDeck(ctx context.Context, deck domain.Deck, cards []domain.Card) (domain.Deck, []domain.Card, error) {
	now := time.Now().UTC()
	if deck.ID == "" {
		deck.ID = uuid.NewString()
	}
	if deck.CreatedAt.IsZero() {
		deck.CreatedAt = now
	}
	deck.UpdatedAt = deck.CreatedAt

	var sourceID sql.NullInt64
	if deck.SourceID != nil {
		sourceID = sql.NullInt64{Int64: *deck.SourceID, Valid: true}
	}

	stored := make([]domain.Card, 0, len(cards))
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO decks (id, title, description, source_id, source_file, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			deck.ID,
			deck.Title,
			deck.Description,
			sourceID,
			deck.SourceFile,
			deck.CreatedAt.UTC(),
			deck.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to insert deck %s: %w", deck.Title, err)
		}

		for _, card := range cards {
			card.DeckID = deck.ID
			c, err := insertCard(ctx, tx, card, deck.CreatedAt)
			if err != nil {
				return err
			}
			stored = append(stored, c)
		}
		return nil
	})
	if err != nil {
		return domain.Deck{}, nil, err
	}

	deck.CardCount = len(stored)
	return deck, stored, nil
}

// GetDeck retrieves a deck by its ID.
func (db *DB) GetDeck(ctx context.Context, id string) (domain.Deck, error) {
	return getDeck(ctx, db.conn, id)
}

func getDeck(ctx context.Context, q querier, id string) (domain.Deck, error) {
	row := q.QueryRowContext(ctx, `SELECT `+deckColumns+` FROM decks WHERE id = ?`, id)
	d, err := scanDeck(row)
	if err != nil {
		return domain.Deck{}, notFound(err, "failed to find deck %s", id)
	}
	return d, nil
}

// ListDecks retrieves all decks ordered by title.
func (db *DB) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	return db.queryDecks(ctx, `SELECT `+deckColumns+` FROM decks ORDER BY title, id`)
}

// ListDecksBySource retrieves the decks built from a source.
func (db *DB) ListDecksBySource(ctx context.Context, sourceID int64) ([]domain.Deck, error) {
	return db.queryDecks(ctx, `SELECT `+deckColumns+` FROM decks WHERE source_id = ? ORDER BY source_file`, sourceID)
}

func (db *DB) queryDecks(ctx context.Context, query string, args ...any) ([]domain.Deck, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

// FindDeckBySourceFile retrieves the deck a sync built from file within a source.
func (db *DB) FindDeckBySourceFile(ctx context.Context, sourceID int64, file string) (domain.Deck, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+deckColumns+` FROM decks WHERE source_id = ? AND source_file = ?`,
		sourceID, file)
	d, err := scanDeck(row)
	if err != nil {
		return domain.Deck{}, notFound(err, "failed to find deck for %s", file)
	}
	return d, nil
}

// UpdateDeck changes the title and description of a deck.
func (db *DB) UpdateDeck(ctx context.Context, id, title, description string) (domain.Deck, error) {
	var deck domain.Deck
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE decks
			SET title = ?, description = ?, updated_at = ?
			WHERE id = ?
		`, title, description, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to update deck %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("failed to update deck %s: %w", id, ErrNotFound)
		}
		deck, err = getDeck(ctx, tx, id)
		return err
	})
	return deck, err
}

// TouchDeck bumps a deck's updated_at timestamp.
func (db *DB) TouchDeck(ctx context.Context, id string) error {
	return touchDeck(ctx, db.conn, id)
}

func touchDeck(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, `UPDATE decks SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to touch deck %s: %w", id, err)
	}
	return nil
}

// DeleteDeck removes a deck with its cards and their review logs.
func (db *DB) DeleteDeck(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return deleteDeck(ctx, tx, id)
	})
}

func deleteDeck(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM review_logs
		WHERE card_id IN (SELECT id FROM cards WHERE deck_id = ?)
	`, id); err != nil {
		return fmt.Errorf("failed to delete review logs for deck %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE deck_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cards for deck %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to delete deck %s: %w", id, ErrNotFound)
	}
	return nil
}
