package web

import (
	"net/http"

	"github.com/conorfennell/flashmind/internal/domain"
)

type deckRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type cardRequest struct {
	DeckID string `json:"deck_id" validate:"required"`
	Front  string `json:"front" validate:"required,max=1000"`
	Back   string `json:"back" validate:"required,max=5000"`
	Hint   string `json:"hint" validate:"max=1000"`
}

func (s *Server) handleCreateDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deckRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		deck, _, err := s.db.CreateDeck(r.Context(), domain.Deck{Title: req.Title, Description: req.Description}, nil)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDeckResponse(deck))
	}
}

func (s *Server) handleListDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decks, err := s.db.ListDecks(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		out := make([]deckResponse, 0, len(decks))
		for _, d := range decks {
			out = append(out, toDeckResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deck, err := s.db.GetDeck(r.Context(), r.PathValue("id"))
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeckResponse(deck))
	}
}

func (s *Server) handleUpdateDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deckRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		deck, err := s.db.UpdateDeck(r.Context(), r.PathValue("id"), req.Title, req.Description)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeckResponse(deck))
	}
}

func (s *Server) handleDeleteDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.DeleteDeck(r.Context(), r.PathValue("id")); err != nil {
			writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := r.PathValue("id")
		if _, err := s.db.GetDeck(r.Context(), deckID); err != nil {
			writeStoreError(w, r, err)
			return
		}
		cards, err := s.db.ListCards(r.Context(), deckID)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCardResponses(cards))
	}
}

func (s *Server) handleDeckStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.study.Stats(r.Context(), r.PathValue("id"))
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cardRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		card, err := s.db.InsertCard(r.Context(), s.study.NewCard(req.DeckID, req.Front, req.Back, req.Hint))
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCardResponse(card))
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.DeleteCard(r.Context(), r.PathValue("id")); err != nil {
			writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
