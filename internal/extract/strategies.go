package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxHeadings          = 5
	headingBackLength    = 300
	maxDefinitions       = 3
	maxListItems         = 7
	minListItems         = 3
	maxKeywordSentences  = 5
	explainWords         = 8
	summarySentences     = 3
	summaryLength        = 400
	maxSections          = 3
	sectionBackLength    = 350
	sectionCandidatesCap = 5
	maxQAPairs           = 3
	qaBackLength         = 400
)

// headingCandidates pairs short period-free lines with paragraphs by position.
func headingCandidates(doc document, _ int) []Candidate {
	var out []Candidate
	found := 0
	for _, line := range doc.lines {
		if found == maxHeadings {
			break
		}
		heading := strings.TrimSpace(line)
		if n := runeLen(heading); n <= 5 || n >= 100 || strings.Contains(heading, ".") {
			continue
		}
		i := found
		found++
		if i >= len(doc.paragraphs) {
			continue
		}
		out = append(out, Candidate{
			Front: "What is " + strings.ToLower(heading) + "?",
			Back:  truncate(doc.paragraphs[i], headingBackLength),
		})
	}
	return out
}

var definitionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(.+?)\s+is\s+(.+?)[.!?]`),
	regexp.MustCompile(`(?i)(.+?)\s+means\s+(.+?)[.!?]`),
	regexp.MustCompile(`(?i)(.+?)\s+refers to\s+(.+?)[.!?]`),
	regexp.MustCompile(`(?i)(.+?)\s+is defined as\s+(.+?)[.!?]`),
}

// definitionCandidates turns "X is Y." style sentences into "What is X?" cards.
// Terms that look like whole clauses (long, or containing a comma) are skipped.
func definitionCandidates(doc document, _ int) []Candidate {
	var out []Candidate
	for _, pattern := range definitionPatterns {
		for _, m := range pattern.FindAllStringSubmatch(doc.raw, maxDefinitions) {
			term := strings.TrimSpace(m[1])
			definition := strings.TrimSpace(m[2])
			if !isTerm(term) || definition == "" {
				continue
			}
			out = append(out, Candidate{Front: "What is " + term + "?", Back: definition})
		}
	}
	return out
}

func isTerm(s string) bool {
	n := runeLen(s)
	return n > 3 && n < 80 && !strings.Contains(s, ",")
}

var (
	numberedItem = regexp.MustCompile(`^\s*\d+\.\s*\S`)
	bulletItem   = regexp.MustCompile(`^\s*(?:•\s*|[-*]\s+)\S`)
)

// listCandidates emits one card for a numbered list and one for a bullet list
// when either has more than two items.
func listCandidates(doc document, _ int) []Candidate {
	var out []Candidate
	if items := listItems(doc.lines, numberedItem); len(items) >= minListItems {
		out = append(out, Candidate{
			Front: "List the key points from " + doc.fileName,
			Back:  strings.Join(firstN(items, maxListItems), "\n"),
		})
	}
	if items := listItems(doc.lines, bulletItem); len(items) >= minListItems {
		out = append(out, Candidate{
			Front: "What are the main items discussed?",
			Back:  strings.Join(firstN(items, maxListItems), "\n"),
		})
	}
	return out
}

// listItems collects items that start with marker. An item runs until the
// next marker or a blank line; wrapped lines are kept with their item.
func listItems(lines []string, marker *regexp.Regexp) []string {
	var items []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			items = append(items, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case marker.MatchString(line):
			flush()
			current = []string{trimmed}
		case trimmed == "":
			flush()
		case len(current) > 0:
			current = append(current, trimmed)
		}
	}
	flush()
	return items
}

var keywords = []string{
	"important", "significant", "key", "main", "primary", "essential",
	"define", "definition", "concept", "theory", "principle",
	"rule", "law", "formula", "equation", "theorem",
	"example", "instance", "case", "demonstrates",
	"because", "therefore", "thus", "hence", "consequently",
	"first", "second", "third", "finally", "lastly",
}

func hasKeyword(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// keywordCandidates asks the learner to explain the first few sentences that
// use study vocabulary such as "therefore" or "example".
func keywordCandidates(doc document, _ int) []Candidate {
	var hits []string
	for _, s := range doc.sentences {
		if len(hits) == maxKeywordSentences {
			break
		}
		if hasKeyword(s) {
			hits = append(hits, s)
		}
	}

	var out []Candidate
	for _, s := range hits {
		if n := runeLen(s); n <= 30 || n >= 300 {
			continue
		}
		words := strings.Split(s, " ")
		if len(words) <= 5 {
			continue
		}
		out = append(out, Candidate{
			Front: `Explain: "` + strings.Join(firstN(words, explainWords), " ") + `..."`,
			Back:  s,
		})
	}
	return out
}

// summaryCandidates builds an overview card from the opening sentences.
func summaryCandidates(doc document, _ int) []Candidate {
	if len(doc.sentences) < summarySentences {
		return nil
	}
	return []Candidate{{
		Front: "What is the introduction/overview of " + baseName(doc.fileName) + "?",
		Back:  truncate(strings.Join(doc.sentences[:summarySentences], " "), summaryLength),
	}}
}

// sectionCandidates only runs when earlier strategies found little; it turns
// the paragraphs after the first into "section" cards.
func sectionCandidates(doc document, emitted int) []Candidate {
	if len(doc.paragraphs) < 3 || emitted >= sectionCandidatesCap {
		return nil
	}
	var out []Candidate
	for i, para := range firstN(doc.paragraphs[1:], maxSections) {
		if runeLen(para) <= 50 {
			continue
		}
		out = append(out, Candidate{
			Front: fmt.Sprintf("What is discussed in section %d?", i+1),
			Back:  truncate(para, sectionBackLength),
		})
	}
	return out
}

var (
	questionMarker = regexp.MustCompile(`(?i)\b(?:question|query|q):`)
	answerMarker   = regexp.MustCompile(`(?i)\b(?:answer|response|a):`)
)

// qaCandidates lifts explicit "Q: ... A: ..." pairs out of the text. A pair
// ends where the next question marker begins.
func qaCandidates(doc document, _ int) []Candidate {
	questions := questionMarker.FindAllStringIndex(doc.raw, -1)

	var out []Candidate
	for i, loc := range questions {
		if len(out) == maxQAPairs {
			break
		}
		end := len(doc.raw)
		if i+1 < len(questions) {
			end = questions[i+1][0]
		}
		segment := doc.raw[loc[1]:end]

		a := answerMarker.FindStringIndex(segment)
		if a == nil {
			continue
		}
		question := strings.TrimSpace(segment[:a[0]])
		answer := strings.TrimSpace(segment[a[1]:])
		if question == "" || answer == "" {
			continue
		}
		out = append(out, Candidate{Front: question, Back: truncate(answer, qaBackLength)})
	}
	return out
}

// baseName strips directories and the final extension from a file name.
func baseName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
