package web

import (
	"net/http"

	"github.com/conorfennell/flashmind/internal/sm2"
)

type recordRequest struct {
	CardID  string `json:"card_id" validate:"required"`
	Quality *int   `json:"quality" validate:"required,min=0,max=5"`
}

type recordResponse struct {
	Card         cardResponse `json:"card"`
	NextInterval int          `json:"next_interval"`
}

func (s *Server) handleDueCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := r.URL.Query().Get("deck_id")
		if deckID != "" {
			if _, err := s.db.GetDeck(r.Context(), deckID); err != nil {
				writeStoreError(w, r, err)
				return
			}
		}
		cards, err := s.study.Due(r.Context(), deckID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCardResponses(cards))
	}
}

func (s *Server) handleRecordReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		card, err := s.study.Record(r.Context(), req.CardID, sm2.Quality(*req.Quality))
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, recordResponse{
			Card:         toCardResponse(card),
			NextInterval: card.IntervalDays,
		})
	}
}
