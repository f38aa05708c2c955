package knol

import (
	"testing"

	"github.com/conorfennell/flashmind/internal/domain"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		card     domain.Card
		expected string
	}{
		{
			name:     "Trims, lowercases and fixes line endings",
			card:     domain.Card{Front: "  What is HTMX? \r\n", Back: "A library for AJAX.", Hint: "Web Development"},
			expected: "what is htmx?\na library for ajax.\nweb development",
		},
		{
			name:     "Collapses spaces inside lines",
			card:     domain.Card{Front: "What  is\tGo?", Back: "A\r\n   compiled   language"},
			expected: "what is go?\na\ncompiled language\n",
		},
		{
			name:     "Composes accents",
			card:     domain.Card{Front: "Cafe\u0301", Back: "Coffee"},
			expected: "caf\u00e9\ncoffee\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			normalized := Normalize(tc.card)
			if normalized != tc.expected {
				t.Errorf("Expected normalized string to be %q, but got %q", tc.expected, normalized)
			}
		})
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		card := domain.Card{Front: "Q", Back: "A", Hint: "C"}
		// Hash for "q\na\nc"
		expectedHash := "eb2456c1ee4f36305069dd0f63a30e92d5443129f5e8fd9a5ec490fbc4d4d8a2"
		if hash := Hash(card); hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("ignores review state", func(t *testing.T) {
		card1 := domain.Card{Front: "Test", Back: "Answer"}
		card2 := domain.Card{Front: "Test", Back: "Answer", Reviews: 4}
		card2.IntervalDays = 17
		if Hash(card1) != Hash(card2) {
			t.Error("Expected review progress not to change the hash")
		}
	})

	t.Run("equivalent spellings share a hash", func(t *testing.T) {
		pairs := [][2]domain.Card{
			{{Front: "  what is go? "}, {Front: "What Is Go?"}},
			{{Front: "What  is\u00a0Go?"}, {Front: "what is go?"}},
			{{Front: "Cafe\u0301"}, {Front: "CAF\u00c9"}},
		}
		for _, p := range pairs {
			if Hash(p[0]) != Hash(p[1]) {
				t.Errorf("Expected %q and %q to hash the same", p[0].Front, p[1].Front)
			}
		}
	})

	t.Run("different cards have different hashes", func(t *testing.T) {
		if Hash(domain.Card{Front: "Card 1"}) == Hash(domain.Card{Front: "Card 2"}) {
			t.Error("Expected hashes for different cards to be different")
		}
		if Hash(domain.Card{Front: "a", Back: "b"}) == Hash(domain.Card{Front: "a b"}) {
			t.Error("Expected field boundaries to matter")
		}
	})
}

func TestUnique(t *testing.T) {
	cards := []domain.Card{
		{Front: "What is Big  cat?", Back: "a large feline animal"},
		{Front: "What is Big cat?", Back: "a large feline animal"},
		{Front: "What is a lion?", Back: "a big cat"},
	}

	unique := Unique(cards)
	if len(unique) != 2 {
		t.Fatalf("Expected 2 cards, but got %d", len(unique))
	}
	if unique[0].Front != "What is Big  cat?" || unique[1].Front != "What is a lion?" {
		t.Errorf("Expected the first of each repeat to be kept, but got %q and %q", unique[0].Front, unique[1].Front)
	}
	for _, c := range unique {
		if c.Hash != Hash(c) {
			t.Errorf("Expected hash of %q to be filled in", c.Front)
		}
	}
	if cards[1].Hash != "" {
		t.Error("Expected the input slice to be left untouched")
	}
}
