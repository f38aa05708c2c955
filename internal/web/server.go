package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/flashmind/internal/sm2"
	"github.com/conorfennell/flashmind/internal/storage"
	"github.com/conorfennell/flashmind/internal/study"
	"github.com/conorfennell/flashmind/internal/sync"
)

const (
	maxJSONBodyBytes      = 1 << 20
	defaultMaxUploadBytes = 10 << 20
)

// Options configures a Server.
type Options struct {
	Params         *sm2.Params
	MaxUploadBytes int64
	Sync           sync.Options
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	db             *storage.DB
	study          *study.Service
	router         *http.ServeMux
	validate       *validator.Validate
	syncOpts       sync.Options
	maxUploadBytes int64
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.Sync.Params == nil {
		opts.Sync.Params = opts.Params
	}

	s := &Server{
		db:             db,
		study:          study.NewService(db, opts.Params),
		router:         http.NewServeMux(),
		validate:       newValidator(),
		syncOpts:       opts.Sync,
		maxUploadBytes: opts.MaxUploadBytes,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.router.ServeHTTP(rec, r)
	slog.Debug("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /health", s.handleHealth())

	s.router.HandleFunc("POST /decks", s.handleCreateDeck())
	s.router.HandleFunc("GET /decks", s.handleListDecks())
	s.router.HandleFunc("GET /decks/{id}", s.handleGetDeck())
	s.router.HandleFunc("PUT /decks/{id}", s.handleUpdateDeck())
	s.router.HandleFunc("DELETE /decks/{id}", s.handleDeleteDeck())
	s.router.HandleFunc("GET /decks/{id}/cards", s.handleListCards())
	s.router.HandleFunc("GET /decks/{id}/stats", s.handleDeckStats())

	s.router.HandleFunc("POST /cards", s.handleCreateCard())
	s.router.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard())

	s.router.HandleFunc("GET /study/due", s.handleDueCards())
	s.router.HandleFunc("POST /study/record", s.handleRecordReview())

	s.router.HandleFunc("POST /upload/generate", s.handleUploadGenerate())

	// Source management routes
	s.router.HandleFunc("GET /sources", s.handleListSources())
	s.router.HandleFunc("POST /sources", s.handleAddSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps storage and scheduler errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicate):
		writeError(w, http.StatusConflict, "a card with the same content already exists in this deck")
	case errors.Is(err, sm2.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler should continue.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		writeError(w, http.StatusBadRequest, strings.Join(msgs, "; "))
		return false
	}
	return true
}
