package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashmind/internal/domain"
)

func TestResolveSource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(file, []byte("Q: a\nA: b"), 0o644))

	t.Chdir(dir)

	tests := []struct {
		name     string
		path     string
		wantPath string
		wantType string
		wantErr  string
	}{
		{name: "absolute directory", path: dir, wantPath: dir, wantType: domain.SourceLocal},
		{name: "relative directory", path: ".", wantPath: dir, wantType: domain.SourceLocal},
		{name: "unclean path", path: "  " + dir + "/./ ", wantPath: dir, wantType: domain.SourceLocal},
		{name: "git url kept", path: "https://github.com/example/cards.git", wantPath: "https://github.com/example/cards.git", wantType: domain.SourceGit},
		{name: "blank", path: "   ", wantErr: "empty path"},
		{name: "file", path: file, wantErr: "not a directory"},
		{name: "missing", path: filepath.Join(dir, "missing"), wantErr: "invalid source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, sourceType, err := ResolveSource(tt.path)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrInvalidSource)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantType, sourceType)
		})
	}
}
