package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/conorfennell/flashmind/internal/storage"
	"github.com/conorfennell/flashmind/internal/sync"
)

type sourceRequest struct {
	Path string `json:"path" validate:"required"`
}

type syncResponse struct {
	Sources  int      `json:"sources"`
	Decks    int      `json:"decks"`
	Inserted int      `json:"inserted"`
	Deleted  int      `json:"deleted"`
	Errors   []string `json:"errors"`
}

func (s *Server) writeSources(w http.ResponseWriter, r *http.Request, status int) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, toSourceResponse(src))
	}
	writeJSON(w, status, out)
}

func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeSources(w, r, http.StatusOK)
	}
}

// handleAddSource adds a new source and returns the updated source list.
func (s *Server) handleAddSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sourceRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		path, sourceType, err := sync.ResolveSource(req.Path)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := s.db.FindSourceByPath(r.Context(), path); err == nil {
			writeError(w, http.StatusConflict, "source already exists")
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			writeStoreError(w, r, err)
			return
		}

		if _, err := s.db.InsertSource(r.Context(), path, sourceType); err != nil {
			writeStoreError(w, r, err)
			return
		}
		s.writeSources(w, r, http.StatusCreated)
	}
}

// handleDeleteSource deletes a source with its decks and returns the updated source list.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid source ID")
			return
		}
		if err := s.db.DeleteSource(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		s.writeSources(w, r, http.StatusOK)
	}
}

// handlePostSync runs a sync in the foreground and reports what changed.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := sync.RunSync(r.Context(), s.db, s.syncOpts)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		errs := make([]string, 0, len(report.Errors))
		for _, e := range report.Errors {
			errs = append(errs, e.Error())
		}
		writeJSON(w, http.StatusOK, syncResponse{
			Sources:  report.Sources,
			Decks:    report.Decks,
			Inserted: report.Inserted,
			Deleted:  report.Deleted,
			Errors:   errs,
		})
	}
}
