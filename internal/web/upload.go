package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/conorfennell/flashmind/internal/domain"
	"github.com/conorfennell/flashmind/internal/ingest"
	"github.com/conorfennell/flashmind/internal/knol"
)

const previewLength = 500

type uploadResponse struct {
	Deck             deckResponse   `json:"deck"`
	Cards            []cardResponse `json:"cards"`
	ExtractedContent string         `json:"extracted_content"`
	Message          string         `json:"message"`
}

// handleUploadGenerate turns an uploaded document into a new deck.
func (s *Server) handleUploadGenerate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeStoreError(w, r, fmt.Errorf("failed to read upload %s: %w", header.Filename, err))
			return
		}

		doc, candidates := ingest.Generate(header.Filename, header.Header.Get("Content-Type"), data)

		title := strings.TrimSpace(r.FormValue("deck_title"))
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
		}

		cards := make([]domain.Card, 0, len(candidates))
		for _, c := range candidates {
			cards = append(cards, s.study.NewCard("", c.Front, c.Back, ""))
		}
		cards = knol.Unique(cards)

		deck, stored, err := s.db.CreateDeck(r.Context(), domain.Deck{
			Title:       title,
			Description: "Generated from " + header.Filename,
		}, cards)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		message := fmt.Sprintf("Generated %d flashcards from %s", len(stored), header.Filename)
		if doc.Degraded {
			message += " (text could not be extracted from this file type; cards are based on its name)"
		}
		slog.Info("Generated deck from upload",
			"deck", deck.ID,
			"file", header.Filename,
			"content_type", doc.ContentType,
			"cards", len(stored),
			"degraded", doc.Degraded,
		)

		writeJSON(w, http.StatusCreated, uploadResponse{
			Deck:             toDeckResponse(deck),
			Cards:            toCardResponses(stored),
			ExtractedContent: preview(doc.Text, previewLength),
			Message:          message,
		})
	}
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
