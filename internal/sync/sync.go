package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/flashmind/internal/domain"
	"github.com/conorfennell/flashmind/internal/gitsource"
	"github.com/conorfennell/flashmind/internal/ingest"
	"github.com/conorfennell/flashmind/internal/knol"
	"github.com/conorfennell/flashmind/internal/parser"
	"github.com/conorfennell/flashmind/internal/sm2"
	"github.com/conorfennell/flashmind/internal/storage"
)

// Options controls a sync run.
type Options struct {
	ReposDir    string
	GitAttempts uint
	Params      *sm2.Params
}

// Report summarizes a sync run. Errors holds per-file and per-source
// failures that did not stop the run.
type Report struct {
	Sources  int
	Decks    int
	Inserted int
	Deleted  int
	Errors   []error
}

func (r *Report) fail(err error) {
	r.Errors = append(r.Errors, err)
}

// RunSync iterates over all sources and reconciles them.
func RunSync(ctx context.Context, db *storage.DB, opts Options) (Report, error) {
	var report Report
	if opts.Params == nil {
		opts.Params = sm2.DefaultParams()
	}

	slog.Info("Starting sync process for all sources...")
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return report, nil
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)
		report.Sources++

		dir := source.Path
		if source.Type == domain.SourceGit {
			dir, err = fetchGitSource(ctx, source.Path, opts)
			if err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				report.fail(err)
				continue
			}
		}

		if err := reconcileSource(ctx, db, source, dir, opts, &report); err != nil {
			slog.Error("Error reconciling source", "path", dir, "error", err)
			report.fail(err)
		}
	}

	slog.Info("Sync process complete.",
		"sources", report.Sources,
		"decks", report.Decks,
		"inserted", report.Inserted,
		"deleted", report.Deleted,
		"errors", len(report.Errors),
	)
	return report, nil
}

func fetchGitSource(ctx context.Context, repoURL string, opts Options) (string, error) {
	if err := os.MkdirAll(opts.ReposDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create repos directory: %w", err)
	}
	localRepoPath, err := gitURLToLocalPath(opts.ReposDir, repoURL)
	if err != nil {
		return "", err
	}
	if err := gitsource.Sync(ctx, repoURL, localRepoPath, opts.GitAttempts); err != nil {
		return "", err
	}
	return localRepoPath, nil
}

// reconcileSource makes the decks of source match the card files under dir.
func reconcileSource(ctx context.Context, db *storage.DB, source domain.Source, dir string, opts Options, report *Report) error {
	seenFiles := make(map[string]bool)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !isCardFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		cards, err := loadCards(path)
		if err != nil {
			// Keep the deck of an unreadable file until it can be parsed again.
			report.fail(fmt.Errorf("parsing %s: %w", path, err))
			seenFiles[rel] = true
			return nil
		}
		if len(cards) == 0 {
			return nil
		}
		seenFiles[rel] = true

		if err := reconcileDeck(ctx, db, source.ID, rel, cards, opts.Params, report); err != nil {
			report.fail(fmt.Errorf("reconciling %s: %w", rel, err))
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	decks, err := db.ListDecksBySource(ctx, source.ID)
	if err != nil {
		return fmt.Errorf("error getting decks for source %d: %w", source.ID, err)
	}
	var orphanedDecks int
	for _, deck := range decks {
		if seenFiles[deck.SourceFile] {
			continue
		}
		slog.Info("Orphaned deck, deleting", "deck", deck.ID, "file", deck.SourceFile)
		if err := db.DeleteDeck(ctx, deck.ID); err != nil {
			slog.Warn("Failed to delete orphaned deck", "deck", deck.ID, "error", err)
			report.fail(err)
			continue
		}
		orphanedDecks++
		report.Deleted += deck.CardCount
	}

	if err := db.UpdateSourceLastScanned(ctx, source.ID, time.Now()); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", dir,
		"files", len(seenFiles),
		"orphaned_decks_deleted", orphanedDecks,
	)
	return nil
}

func isCardFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// loadCards reads the cards of one file. Markdown with Q:/A: blocks is parsed
// as authored cards; anything else goes through extraction. Blank files have
// no cards.
func loadCards(path string) ([]domain.Card, error) {
	name := filepath.Base(path)
	if strings.ToLower(filepath.Ext(name)) != ".txt" {
		cards, err := parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		if len(cards) > 0 {
			return knol.Unique(cards), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	_, candidates := ingest.Generate(name, "", data)

	cards := make([]domain.Card, 0, len(candidates))
	for _, c := range candidates {
		cards = append(cards, domain.Card{Front: c.Front, Back: c.Back})
	}
	return knol.Unique(cards), nil
}

func reconcileDeck(ctx context.Context, db *storage.DB, sourceID int64, file string, cards []domain.Card, params *sm2.Params, report *Report) error {
	now := time.Now()
	for i := range cards {
		cards[i].ReviewState = params.NewState(now)
	}

	deck, err := db.FindDeckBySourceFile(ctx, sourceID, file)
	if errors.Is(err, storage.ErrNotFound) {
		title := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		deck, _, err = db.CreateDeck(ctx, domain.Deck{
			Title:      title,
			SourceID:   &sourceID,
			SourceFile: file,
		}, cards)
		if err != nil {
			return err
		}
		slog.Info("New deck created", "deck", deck.ID, "file", file, "cards", len(cards))
		report.Decks++
		report.Inserted += len(cards)
		return nil
	}
	if err != nil {
		return err
	}

	existing, err := db.ListCards(ctx, deck.ID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.Hash] = true
	}

	found := make(map[string]bool, len(cards))
	changed := false
	for _, card := range cards {
		found[card.Hash] = true
		if known[card.Hash] {
			continue
		}
		slog.Info("New card found, inserting...", "hash", card.Hash)
		card.DeckID = deck.ID
		if _, err := db.InsertCard(ctx, card); err != nil {
			report.fail(fmt.Errorf("db insert for %s: %w", card.Hash, err))
			continue
		}
		report.Inserted++
		changed = true
	}

	for _, c := range existing {
		if found[c.Hash] {
			continue
		}
		slog.Info("Orphaned card, deleting", "hash", c.Hash)
		if err := db.DeleteCard(ctx, c.ID); err != nil {
			slog.Warn("Failed to delete orphaned card", "hash", c.Hash, "error", err)
			report.fail(err)
			continue
		}
		report.Deleted++
		changed = true
	}

	if changed {
		report.Decks++
		return db.TouchDeck(ctx, deck.ID)
	}
	return nil
}

// gitURLToLocalPath maps a repository URL onto a directory below baseDir.
// Both https://host/owner/repo.git and git@host:owner/repo.git forms are accepted.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	var host, repoPath string

	parsedURL, err := url.Parse(repoURL)
	if err == nil && (parsedURL.Scheme == "https" || parsedURL.Scheme == "http") {
		host, repoPath = parsedURL.Host, parsedURL.Path
	} else if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" {
		h, p, ok := strings.Cut(rest, ":")
		if !ok || h == "" || p == "" {
			return "", fmt.Errorf("could not parse git URL: %s", repoURL)
		}
		host, repoPath = h, p
	} else {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	repoPath = strings.TrimSuffix(strings.Trim(repoPath, "/"), ".git")
	if host == "" || repoPath == "" {
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	local := filepath.Join(baseDir, host, repoPath)
	rel, err := filepath.Rel(baseDir, local)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("git URL %s escapes repos directory", repoURL)
	}
	return local, nil
}
