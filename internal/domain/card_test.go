package domain

import "testing"

func TestSourceTypeFor(t *testing.T) {
	testCases := []struct {
		path     string
		expected string
	}{
		{"/home/me/notes", SourceLocal},
		{"./cards", SourceLocal},
		{"https://github.com/conorfennell/cards", SourceGit},
		{"git@github.com:conorfennell/cards.git", SourceGit},
		{"../mirror/cards.git", SourceGit},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			if got := SourceTypeFor(tc.path); got != tc.expected {
				t.Errorf("Expected %q but got %q", tc.expected, got)
			}
		})
	}
}
