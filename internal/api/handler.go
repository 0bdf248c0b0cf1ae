// Package api exposes the checking session over HTTP for the web demo and
// over MCP for tool-calling clients.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kovanov/redline/internal/check"
	"github.com/kovanov/redline/internal/match"
	"github.com/kovanov/redline/internal/session"
	"github.com/kovanov/redline/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Checker is the slice of a session the HTTP layer needs.
type Checker interface {
	Check(ctx context.Context, text string) ([]match.Match, error)
	Correct(ctx context.Context, text string) (string, error)
	Languages(ctx context.Context) ([]check.Language, error)
	Language() string
}

// Deps holds the handler's collaborators.
type Deps struct {
	Session Checker
	Store   *storage.Store // optional; document routes 404 without it
	Words   *WordsClient   // optional; word lookup 404s without it
	Token   string         // optional bearer token protecting the API
	Version string
}

// NewHandler builds the demo API router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	if deps.Token != "" {
		r.Use(BearerAuth(deps.Token))
	}

	r.Get("/health", handleHealth(deps))
	r.Post("/check", handleCheck(deps))
	r.Post("/correct", handleCorrect(deps))
	r.Get("/languages", handleLanguages(deps))

	if deps.Words != nil {
		r.Get("/words/{word}", handleWord(deps))
	}

	if deps.Store != nil {
		r.Post("/documents", handleCreateDocument(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Get("/documents/{id}", handleGetDocument(deps))
		r.Put("/documents/{id}", handleUpdateDocument(deps))
		r.Delete("/documents/{id}", handleDeleteDocument(deps))
		r.Post("/documents/{id}/check", handleCheckDocument(deps))
		r.Get("/documents/{id}/checks", handleListChecks(deps))
	}

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"version":  deps.Version,
			"language": deps.Session.Language(),
		})
	}
}

type checkRequest struct {
	Text string `json:"text"`
}

type checkResponse struct {
	Language string        `json:"language"`
	Count    int           `json:"count"`
	Matches  []match.Match `json:"matches"`
}

func handleCheck(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, ok := readTextBody(w, r)
		if !ok {
			return
		}

		matches, err := deps.Session.Check(r.Context(), text)
		if err != nil {
			writeCheckError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, checkResponse{
			Language: deps.Session.Language(),
			Count:    len(matches),
			Matches:  emptyIfNil(matches),
		})
	}
}

func handleCorrect(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, ok := readTextBody(w, r)
		if !ok {
			return
		}

		corrected, err := deps.Session.Correct(r.Context(), text)
		if err != nil {
			writeCheckError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"corrected": corrected})
	}
}

func handleLanguages(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		langs, err := deps.Session.Languages(r.Context())
		if err != nil {
			writeCheckError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, langs)
	}
}

func handleWord(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		word := chi.URLParam(r, "word")
		info, err := deps.Words.Lookup(r.Context(), word)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "word lookup failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

type documentRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

func handleCreateDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req documentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Content == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}

		now := time.Now().UTC()
		doc := storage.Document{
			ID:        uuid.New().String(),
			Title:     req.Title,
			Content:   req.Content,
			Language:  req.Language,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := deps.Store.SaveDocument(doc); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
	}
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		docs, err := deps.Store.ListDocuments(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}
		if docs == nil {
			docs = []storage.Document{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func handleGetDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := deps.Store.GetDocument(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleUpdateDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req documentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		id := chi.URLParam(r, "id")
		err := deps.Store.UpdateDocument(id, req.Title, req.Content, req.Language)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update document: %v", err)
			return
		}

		doc, err := deps.Store.GetDocument(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reload document: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleDeleteDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteDocument(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete document: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleCheckDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}

		matches, err := deps.Session.Check(r.Context(), doc.Content)
		if err != nil {
			writeCheckError(w, err)
			return
		}

		matchesJSON, err := json.Marshal(emptyIfNil(matches))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to marshal matches: %v", err)
			return
		}
		rec := storage.CheckRecord{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			CreatedAt:   time.Now().UTC(),
			Language:    deps.Session.Language(),
			MatchCount:  len(matches),
			MatchesJSON: string(matchesJSON),
		}
		if err := deps.Store.SaveCheck(rec); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save check: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			storage.CheckRecord
			Matches []match.Match `json:"matches"`
		}{rec, emptyIfNil(matches)})
	}
}

func handleListChecks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetDocument(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		checks, err := deps.Store.ListChecks(id, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list checks: %v", err)
			return
		}
		if checks == nil {
			checks = []storage.CheckRecord{}
		}
		writeJSON(w, http.StatusOK, checks)
	}
}

// readTextBody decodes a {"text": ...} body and rejects empty text.
func readTextBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req checkRequest
	if !decodeBody(w, r, &req) {
		return "", false
	}
	if req.Text == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
		return "", false
	}
	return req.Text, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

// writeCheckError maps session/engine failures onto HTTP statuses: rate
// limiting passes through as 429, everything engine-side is a 502.
func writeCheckError(w http.ResponseWriter, err error) {
	var rlErr *check.RateLimitError
	if errors.As(err, &rlErr) {
		httpError(w, http.StatusTooManyRequests, "rate_limit_error", "%s", rlErr.Message)
		return
	}
	if errors.Is(err, session.ErrEngineDown) {
		httpError(w, http.StatusServiceUnavailable, "engine_error", "%v", err)
		return
	}
	var ltErr *check.LanguageToolError
	if errors.As(err, &ltErr) {
		httpError(w, http.StatusBadGateway, "engine_error", "%s", ltErr.Message)
		return
	}
	httpError(w, http.StatusBadGateway, "api_error", "check failed: %v", err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func emptyIfNil(matches []match.Match) []match.Match {
	if matches == nil {
		return []match.Match{}
	}
	return matches
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
