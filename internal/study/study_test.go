package study

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashmind/internal/domain"
	"github.com/conorfennell/flashmind/internal/sm2"
	"github.com/conorfennell/flashmind/internal/storage"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(days int) { c.t = c.t.AddDate(0, 0, days) }

func newTestService(t *testing.T, params *sm2.Params) (*Service, *storage.DB, *clock) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := &clock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := NewService(db, params)
	svc.now = c.now
	return svc, db, c
}

func createDeck(t *testing.T, svc *Service, db *storage.DB, fronts ...string) (domain.Deck, []domain.Card) {
	t.Helper()
	var cards []domain.Card
	for _, f := range fronts {
		cards = append(cards, svc.NewCard("", f, "answer to "+f, ""))
	}
	deck, stored, err := db.CreateDeck(context.Background(), domain.Deck{Title: "Biology"}, cards)
	require.NoError(t, err)
	return deck, stored
}

func TestRecordFollowsSchedule(t *testing.T) {
	ctx := context.Background()
	svc, db, c := newTestService(t, nil)
	_, cards := createDeck(t, svc, db, "cell")
	id := cards[0].ID

	expected := []int{1, 6, 17}
	for i, interval := range expected {
		card, err := svc.Record(ctx, id, 5)
		require.NoError(t, err)
		assert.Equal(t, interval, card.IntervalDays, "review %d", i+1)
		assert.True(t, card.NextReviewAt.Equal(c.t.AddDate(0, 0, interval)))
		c.advance(interval)
	}

	card, err := db.GetCard(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 2.8, card.EaseFactor, 1e-9)
	assert.Equal(t, 3, card.Repetitions)

	card, err = svc.Record(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, card.IntervalDays)
	assert.Equal(t, 0, card.Repetitions)
}

func TestRecordLongRunOfPerfectReviews(t *testing.T) {
	ctx := context.Background()
	svc, db, c := newTestService(t, nil)
	deck, cards := createDeck(t, svc, db, "cell", "dna")
	id := cards[0].ID

	var last domain.Card
	for i := 0; i < 17; i++ {
		card, err := svc.Record(ctx, id, 5)
		require.NoError(t, err, "review %d", i+1)
		last = card
	}
	assert.Greater(t, last.NextReviewAt.Year(), 10000)

	_, err := svc.Record(ctx, id, 5)
	assert.ErrorIs(t, err, sm2.ErrInvalidInput)

	stored, err := db.GetCard(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, last.IntervalDays, stored.IntervalDays)
	assert.True(t, stored.NextReviewAt.Equal(c.t.AddDate(0, 0, last.IntervalDays)))

	listed, err := db.ListCards(ctx, deck.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	due, err := svc.Due(ctx, "")
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "dna", due[0].Front)
}

func TestRecordRejectsInvalidQuality(t *testing.T) {
	svc, db, _ := newTestService(t, nil)
	_, cards := createDeck(t, svc, db, "cell")

	_, err := svc.Record(context.Background(), cards[0].ID, 6)
	assert.ErrorIs(t, err, sm2.ErrInvalidInput)

	_, err = svc.Record(context.Background(), "missing", 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordUsesConfiguredPassingGrade(t *testing.T) {
	params := sm2.DefaultParams()
	params.PassingGrade = 4
	svc, db, _ := newTestService(t, params)
	_, cards := createDeck(t, svc, db, "cell")

	card, err := svc.Record(context.Background(), cards[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, card.Repetitions)
}

func TestDueAndStats(t *testing.T) {
	ctx := context.Background()
	svc, db, c := newTestService(t, nil)
	deck, cards := createDeck(t, svc, db, "cell", "dna", "rna")

	due, err := svc.Due(ctx, deck.ID)
	require.NoError(t, err)
	assert.Len(t, due, 3)

	_, err = svc.Record(ctx, cards[0].ID, 4)
	require.NoError(t, err)
	_, err = svc.Record(ctx, cards[1].ID, 2)
	require.NoError(t, err)

	due, err = svc.Due(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "rna", due[0].Front)

	c.advance(1)
	due, err = svc.Due(ctx, "")
	require.NoError(t, err)
	assert.Len(t, due, 3)

	stats, err := svc.Stats(ctx, deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCards)
	assert.Equal(t, 3, stats.DueCards)
	assert.Equal(t, 1, stats.NewCards)
	assert.Equal(t, 2, stats.ReviewedCards)
	assert.Equal(t, 2, stats.TotalReviews)
	assert.InDelta(t, (2.5+2.18+2.5)/3, stats.AverageEaseFactor, 1e-9)
}

func TestStatsMissingDeck(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.Stats(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
