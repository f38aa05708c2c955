package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(args, &out))
	return out.String()
}

func TestRun_SourcesAndSync(t *testing.T) {
	t.Chdir(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "flashmind.db")

	notes := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(notes, "go.md"), []byte("Q: What is Go?\nA: A language."), 0o644))

	out := runCLI(t, "--db", dbPath, "--list-sources")
	assert.Contains(t, out, "No sources configured")

	out = runCLI(t, "--db", dbPath, "--add-source", notes)
	assert.Contains(t, out, "Added local source")

	out = runCLI(t, "--db", dbPath, "--add-source", notes)
	assert.Contains(t, out, "Source already exists")

	out = runCLI(t, "--db", dbPath, "--list-sources")
	assert.Contains(t, out, notes)
	assert.Contains(t, out, "never")

	out = runCLI(t, "--db", dbPath, "--sync")
	assert.Contains(t, out, "Synced 1 sources: 1 decks changed, 1 cards added, 0 cards removed, 0 errors.")

	out = runCLI(t, "--db", dbPath, "--sync")
	assert.Contains(t, out, "0 decks changed, 0 cards added")
}

func TestRun_AddSourceRejectsFile(t *testing.T) {
	t.Chdir(t.TempDir())
	file := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(file, []byte("Q: a\nA: b"), 0o644))

	var out bytes.Buffer
	err := run([]string{"--db", filepath.Join(t.TempDir(), "f.db"), "--add-source", file}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestRun_Generate(t *testing.T) {
	t.Chdir(t.TempDir())
	doc := filepath.Join(t.TempDir(), "photosynthesis.txt")
	text := "Photosynthesis is the process by which plants convert light into chemical energy. " +
		"Chlorophyll is the green pigment that absorbs light in the chloroplasts."
	require.NoError(t, os.WriteFile(doc, []byte(text), 0o644))

	out := runCLI(t, "--generate", doc)
	assert.Contains(t, out, "photosynthesis.txt (text/plain")
	assert.Contains(t, out, "What is Photosynthesis?")
	assert.NotContains(t, out, "Saved deck")

	dbPath := filepath.Join(t.TempDir(), "flashmind.db")
	out = runCLI(t, "--db", dbPath, "--generate", doc, "--deck-title", "Biology")
	assert.Contains(t, out, `Saved deck "Biology"`)
}

func TestRun_Usage(t *testing.T) {
	t.Chdir(t.TempDir())
	out := runCLI(t, "--db", filepath.Join(t.TempDir(), "f.db"))
	assert.True(t, strings.HasPrefix(out, "Usage of flashmind:"))
	assert.Contains(t, out, "--generate")
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Path"}, [][]string{{"1", "/notes"}, {"12", "/cards"}}, 0)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "╭"))
	assert.Contains(t, lines[1], "ID")
	assert.Contains(t, lines[3], "│  1 │ /notes │")
	assert.Contains(t, lines[4], "│ 12 │ /cards │")
}
