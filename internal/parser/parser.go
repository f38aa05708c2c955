package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/flashmind/internal/domain"
)

const separator = "---"

// maxLineBytes bounds a single line; inline images in markdown can run to megabytes.
const maxLineBytes = 16 << 20

type field int

const (
	seeking field = iota
	front
	back
	hint
)

// prefixes maps a line prefix to the card field it opens.
var prefixes = []struct {
	prefix string
	field  field
}{
	{"Q:", front},
	{"A:", back},
	{"C:", hint},
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards.
//
// A card starts at a "Q:" line and runs until the next "Q:" line, a "---"
// separator or the end of input. "A:" opens the back and "C:" a hint; lines
// without a prefix continue whichever field is open.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var cards []domain.Card
	var current domain.Card
	var block []string
	state := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch state {
		case front:
			current.Front = content
		case back:
			current.Back = content
		case hint:
			current.Hint = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Front != "" {
			cards = append(cards, current)
		}
		current = domain.Card{}
		state = seeking
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if line == separator {
			finishCard()
			continue
		}

		next, rest, ok := matchPrefix(line)
		if !ok {
			if state != seeking {
				block = append(block, line)
			}
			continue
		}

		flushBlock()
		if next == front && state != seeking {
			finishCard()
		}
		state = next
		block = append(block, rest)
	}

	finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func matchPrefix(line string) (field, string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.prefix) {
			return p.field, strings.TrimPrefix(line[len(p.prefix):], " "), true
		}
	}
	return seeking, "", false
}
