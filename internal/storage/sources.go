package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/flashmind/internal/domain"
)

func scanSource(s rowScanner) (domain.Source, error) {
	var src domain.Source
	var lastScanned sql.NullTime
	if err := s.Scan(&src.ID, &src.Path, &src.Type, &lastScanned); err != nil {
		return domain.Source{}, err
	}
	if lastScanned.Valid {
		t := lastScanned.Time
		src.LastScanned = &t
	}
	return src, nil
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// GetSource retrieves a source by its ID.
func (db *DB) GetSource(ctx context.Context, id int64) (domain.Source, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources WHERE id = ?
	`, id)
	src, err := scanSource(row)
	if err != nil {
		return domain.Source{}, notFound(err, "failed to find source %d", id)
	}
	return src, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (domain.Source, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)
	src, err := scanSource(row)
	if err != nil {
		return domain.Source{}, notFound(err, "failed to find source by path %s", path)
	}
	return src, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	return sources, nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, scannedAt time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, scannedAt.UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source and every deck built from it.
func (db *DB) DeleteSource(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM decks WHERE source_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to get decks for source ID %d: %w", id, err)
		}
		var deckIDs []string
		for rows.Next() {
			var deckID string
			if err := rows.Scan(&deckID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan deck ID for source ID %d: %w", id, err)
			}
			deckIDs = append(deckIDs, deckID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to get decks for source ID %d: %w", id, err)
		}

		for _, deckID := range deckIDs {
			if err := deleteDeck(ctx, tx, deckID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete source ID %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("failed to delete source ID %d: %w", id, ErrNotFound)
		}
		return nil
	})
}
