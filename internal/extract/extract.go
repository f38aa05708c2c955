// Package extract turns plain document text into flashcard candidates.
//
// Extraction is heuristic: an ordered list of independent strategies each
// proposes candidates from the same pre-split document, and a single pass
// then removes near-duplicate prompts, tops up sparse results from raw text
// chunks and caps the output. Every call is pure and safe for concurrent use.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const (
	// MaxCandidates caps the number of candidates returned by Extract.
	MaxCandidates = 15

	minContentLength = 50
	minBackLength    = 10
	frontKeyLength   = 50
	minCandidates    = 3
	backfillChunks   = 5
	minChunkLength   = 50
	chunkBackLength  = 300
	overviewLength   = 400

	overviewFront = "What is this document about?"
)

// Candidate is a proposed card that has not been stored yet.
type Candidate struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// strategy proposes candidates for doc. emitted is the number of candidates
// produced by the strategies that ran before it.
type strategy func(doc document, emitted int) []Candidate

var pipeline = []strategy{
	headingCandidates,
	definitionCandidates,
	listCandidates,
	keywordCandidates,
	summaryCandidates,
	sectionCandidates,
	qaCandidates,
}

var (
	paragraphBreak  = regexp.MustCompile(`\n\s*\n`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// document is the text of one upload split the ways the strategies need it.
type document struct {
	fileName   string
	raw        string
	normalized string
	lines      []string
	paragraphs []string
	sentences  []string
}

func newDocument(text, fileName string) document {
	raw := strings.ReplaceAll(text, "\r\n", "\n")
	doc := document{
		fileName:   fileName,
		raw:        raw,
		normalized: strings.Join(strings.Fields(raw), " "),
		lines:      strings.Split(raw, "\n"),
	}
	for _, p := range paragraphBreak.Split(raw, -1) {
		if p = strings.TrimSpace(p); runeLen(p) > 20 {
			doc.paragraphs = append(doc.paragraphs, p)
		}
	}
	for _, s := range sentencePattern.FindAllString(doc.normalized, -1) {
		if s = strings.TrimSpace(s); s != "" {
			doc.sentences = append(doc.sentences, s)
		}
	}
	return doc
}

// Extract returns between 1 and MaxCandidates candidates for text. Text too
// short to mine yields a single overview card built from the text itself, or
// from fileName when text is empty.
func Extract(text, fileName string) []Candidate {
	doc := newDocument(text, fileName)

	if runeLen(doc.normalized) < minContentLength {
		back := doc.normalized
		if back == "" {
			back = "This is the file: " + fileName
		}
		return []Candidate{{Front: overviewFront, Back: back}}
	}

	var proposed []Candidate
	for _, s := range pipeline {
		proposed = append(proposed, s(doc, len(proposed))...)
	}

	d := newDeduper()
	for _, c := range proposed {
		d.add(c)
	}
	if len(d.cards) < minCandidates {
		backfill(doc, d)
	}
	if len(d.cards) == 0 {
		d.cards = append(d.cards, Candidate{Front: overviewFront, Back: truncate(doc.normalized, overviewLength)})
	}
	if len(d.cards) > MaxCandidates {
		d.cards = d.cards[:MaxCandidates]
	}
	return d.cards
}

// deduper keeps the first candidate for each case-folded front prefix and
// drops candidates whose back is too short to study.
type deduper struct {
	fold  cases.Caser
	seen  map[string]bool
	cards []Candidate
}

func newDeduper() *deduper {
	return &deduper{fold: cases.Fold(), seen: make(map[string]bool)}
}

func (d *deduper) add(c Candidate) bool {
	if runeLen(c.Back) <= minBackLength {
		return false
	}
	key := truncate(d.fold.String(c.Front), frontKeyLength)
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	d.cards = append(d.cards, c)
	return true
}

// backfill cuts the normalized text into equal chunks and adds one card per
// chunk until the minimum is reached or the chunks run out.
func backfill(doc document, d *deduper) {
	runes := []rune(doc.normalized)
	size := len(runes) / backfillChunks
	for i := 0; i < backfillChunks && len(d.cards) < minCandidates; i++ {
		chunk := strings.TrimSpace(string(runes[i*size : (i+1)*size]))
		if runeLen(chunk) <= minChunkLength {
			continue
		}
		d.add(Candidate{
			Front: fmt.Sprintf("What is covered in part %d of the document?", i+1),
			Back:  truncate(chunk, chunkBackLength),
		})
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// truncate cuts s to at most n runes and trims the result.
func truncate(s string, n int) string {
	if runeLen(s) > n {
		s = string([]rune(s)[:n])
	}
	return strings.TrimSpace(s)
}
