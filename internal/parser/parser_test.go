package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
		expectedHint  string
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expectedFront: "What is the capital of France?",
			expectedBack:  "Paris",
		},
		{
			name:          "Simple Q, A, and C",
			input:         "Q: What is 1+1?\nA: 2\nC: Basic arithmetic",
			expectedCards: 1,
			expectedFront: "What is 1+1?",
			expectedBack:  "2",
			expectedHint:  "Basic arithmetic",
		},
		{
			name: "Multiline Answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedFront: "What are the primary colors?",
			expectedBack:  "Red\nBlue\nYellow",
		},
		{
			name: "Two Cards",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name:          "Blank lines are trimmed from fields",
			input:         "Q: Question\n\nA: Answer\n\n\n",
			expectedCards: 1,
			expectedFront: "Question",
			expectedBack:  "Answer",
		},
		{
			name: "Separator ends a card",
			input: `Q: First question
A: First answer
---
Stray text that belongs to no card
Q: Second question
A: Second answer`,
			expectedCards: 2,
		},
		{
			name:          "Windows line endings",
			input:         "Q: What is Go?\r\nA: A language.\r\n",
			expectedCards: 1,
			expectedFront: "What is Go?",
			expectedBack:  "A language.",
		},
		{
			name:          "Lines longer than the default scanner buffer",
			input:         "Q: Inline image\nA: " + strings.Repeat("x", 70000),
			expectedCards: 1,
			expectedFront: "Inline image",
			expectedBack:  strings.Repeat("x", 70000),
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedFront: "Question",
			expectedBack:  "Answer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}

			if tc.expectedCards == 1 {
				card := cards[0]
				if card.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedFront, card.Front)
				}
				if card.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedBack, card.Back)
				}
				if card.Hint != tc.expectedHint {
					t.Errorf("Expected Hint to be '%s', but got '%s'", tc.expectedHint, card.Hint)
				}
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.md")
	if err := os.WriteFile(path, []byte("Q: Ping?\nA: Pong"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cards, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].Back != "Pong" {
		t.Errorf("Expected one card answering 'Pong', but got %+v", cards)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestParseLineTooLong(t *testing.T) {
	input := "Q: Huge\nA: " + strings.Repeat("x", maxLineBytes+1)
	if _, err := Parse(strings.NewReader(input)); err == nil {
		t.Error("Expected an error for a line over the limit")
	}
}
