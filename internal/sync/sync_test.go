package sync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashmind/internal/domain"
	"github.com/conorfennell/flashmind/internal/sm2"
	"github.com/conorfennell/flashmind/internal/storage"
)

const notesText = `Photosynthesis

Photosynthesis is the process by which green plants turn light into chemical energy.

Chlorophyll is the pigment that absorbs light in the chloroplast.

The light reactions happen in the thylakoid membranes and produce ATP and NADPH for the Calvin cycle.`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setup(t *testing.T) (*storage.DB, string, int64) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	id, err := db.InsertSource(context.Background(), dir, domain.SourceLocal)
	require.NoError(t, err)
	return db, dir, id
}

func deckByFile(t *testing.T, db *storage.DB, sourceID int64, file string) (domain.Deck, []domain.Card) {
	t.Helper()
	ctx := context.Background()
	deck, err := db.FindDeckBySourceFile(ctx, sourceID, file)
	require.NoError(t, err)
	cards, err := db.ListCards(ctx, deck.ID)
	require.NoError(t, err)
	return deck, cards
}

func TestRunSyncCreatesDeckPerFile(t *testing.T) {
	ctx := context.Background()
	db, dir, sourceID := setup(t)

	writeFile(t, dir, "biology.md", "Q: What is a cell?\nA: The basic unit of life.\n---\nQ: What is DNA?\nA: Genetic material.\nC: Double helix\n")
	writeFile(t, dir, "notes/photosynthesis.txt", notesText)
	writeFile(t, dir, "empty.md", "")
	writeFile(t, dir, "diagram.png", "not a card file")
	writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main\n")

	report, err := RunSync(ctx, db, Options{ReposDir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Sources)
	assert.Equal(t, 2, report.Decks)

	decks, err := db.ListDecksBySource(ctx, sourceID)
	require.NoError(t, err)
	require.Len(t, decks, 2)

	bio, cards := deckByFile(t, db, sourceID, "biology.md")
	assert.Equal(t, "biology", bio.Title)
	require.Len(t, cards, 2)
	assert.Equal(t, "What is a cell?", cards[0].Front)
	assert.Equal(t, "Double helix", cards[1].Hint)

	notes, noteCards := deckByFile(t, db, sourceID, "notes/photosynthesis.txt")
	assert.Equal(t, "photosynthesis", notes.Title)
	assert.NotEmpty(t, noteCards)
	assert.Equal(t, 2+len(noteCards), report.Inserted)

	src, err := db.GetSource(ctx, sourceID)
	require.NoError(t, err)
	assert.NotNil(t, src.LastScanned)
}

func TestRunSyncKeepsReviewStateOfUnchangedCards(t *testing.T) {
	ctx := context.Background()
	db, dir, sourceID := setup(t)

	writeFile(t, dir, "biology.md", "Q: What is a cell?\nA: The basic unit of life.\n---\nQ: What is DNA?\nA: Genetic material.\n")
	writeFile(t, dir, "photosynthesis.txt", notesText)
	_, err := RunSync(ctx, db, Options{})
	require.NoError(t, err)

	_, cards := deckByFile(t, db, sourceID, "biology.md")
	now := time.Now()
	_, err = db.RecordReview(ctx, cards[0].ID, 5, now, func(s sm2.ReviewState) (sm2.ReviewState, error) {
		return sm2.DefaultParams().NextState(s, 5, now)
	})
	require.NoError(t, err)

	writeFile(t, dir, "biology.md", "Q: what is a cell?\nA: The basic unit of life.  \n---\nQ: What is RNA?\nA: A single-stranded nucleic acid.\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "photosynthesis.txt")))

	report, err := RunSync(ctx, db, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Inserted)

	_, cards = deckByFile(t, db, sourceID, "biology.md")
	require.Len(t, cards, 2)
	assert.Equal(t, "What is a cell?", cards[0].Front)
	assert.Equal(t, 1, cards[0].Reviews)
	assert.Equal(t, 1, cards[0].Repetitions)
	assert.Equal(t, "What is RNA?", cards[1].Front)
	assert.Equal(t, 0, cards[1].Reviews)

	_, err = db.FindDeckBySourceFile(ctx, sourceID, "photosynthesis.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Greater(t, report.Deleted, 1)
}

func TestRunSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, dir, _ := setup(t)
	writeFile(t, dir, "biology.md", "Q: What is a cell?\nA: The basic unit of life.\n")

	_, err := RunSync(ctx, db, Options{})
	require.NoError(t, err)

	report, err := RunSync(ctx, db, Options{})
	require.NoError(t, err)
	assert.Zero(t, report.Decks)
	assert.Zero(t, report.Inserted)
	assert.Zero(t, report.Deleted)
}

func TestRunSyncDropsDuplicateCardsInFile(t *testing.T) {
	ctx := context.Background()
	db, dir, sourceID := setup(t)
	writeFile(t, dir, "dup.md", "Q: Same?\nA: Yes.\n---\nQ: same?\nA: yes.\n")

	report, err := RunSync(ctx, db, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Errors)

	_, cards := deckByFile(t, db, sourceID, "dup.md")
	assert.Len(t, cards, 1)
}

func TestRunSyncReportsBadSourcesAndContinues(t *testing.T) {
	ctx := context.Background()
	db, dir, _ := setup(t)
	writeFile(t, dir, "biology.md", "Q: What is a cell?\nA: The basic unit of life.\n")

	_, err := db.InsertSource(ctx, "not-a-git-url", domain.SourceGit)
	require.NoError(t, err)
	_, err = db.InsertSource(ctx, filepath.Join(dir, "missing"), domain.SourceLocal)
	require.NoError(t, err)

	report, err := RunSync(ctx, db, Options{ReposDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Sources)
	assert.Equal(t, 1, report.Decks)
	require.Len(t, report.Errors, 2)
	assert.True(t, strings.Contains(report.Errors[0].Error(), "could not parse git URL"))
}

func TestRunSyncKeepsDeckOfUnparsableFile(t *testing.T) {
	ctx := context.Background()
	db, dir, sourceID := setup(t)
	params := sm2.DefaultParams()

	writeFile(t, dir, "bio.md", "Q: What is a cell?\nA: The basic unit of life.\n")
	_, err := RunSync(ctx, db, Options{ReposDir: t.TempDir()})
	require.NoError(t, err)
	deck, cards := deckByFile(t, db, sourceID, "bio.md")
	require.Len(t, cards, 1)

	now := time.Now()
	_, err = db.RecordReview(ctx, cards[0].ID, 5, now, func(s sm2.ReviewState) (sm2.ReviewState, error) {
		return params.NextState(s, 5, now)
	})
	require.NoError(t, err)

	// A single line past the parser's limit makes the file unreadable.
	writeFile(t, dir, "bio.md", "Q: What is a cell?\nA: The basic unit of life.\n"+strings.Repeat("x", 17<<20)+"\n")
	report, err := RunSync(ctx, db, Options{ReposDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Error(), "bio.md")
	assert.Zero(t, report.Deleted)

	kept, keptCards := deckByFile(t, db, sourceID, "bio.md")
	assert.Equal(t, deck.ID, kept.ID)
	require.Len(t, keptCards, 1)
	assert.Equal(t, 1, keptCards[0].Reviews)
	logs, err := db.ListReviewLogs(ctx, keptCards[0].ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRunSyncWithoutSources(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	defer db.Close()

	report, err := RunSync(context.Background(), db, Options{})
	require.NoError(t, err)
	assert.Zero(t, report.Sources)
}

func TestGitURLToLocalPath(t *testing.T) {
	base := filepath.Join("var", "repos")
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "https", url: "https://github.com/conorfennell/cards.git", want: filepath.Join(base, "github.com", "conorfennell", "cards")},
		{name: "https without suffix", url: "https://gitlab.com/team/notes", want: filepath.Join(base, "gitlab.com", "team", "notes")},
		{name: "ssh", url: "git@github.com:conorfennell/cards.git", want: filepath.Join(base, "github.com", "conorfennell", "cards")},
		{name: "local path", url: "/home/me/cards", wantErr: true},
		{name: "ssh without path", url: "git@github.com:", wantErr: true},
		{name: "https without path", url: "https://github.com/", wantErr: true},
		{name: "escapes base", url: "https://github.com/../../../etc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gitURLToLocalPath(base, tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
