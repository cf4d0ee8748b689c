// Package api exposes the read-only HTTP surface over the ledger.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MatthewCline-git/higher-pleasures/internal/auth"
	"github.com/MatthewCline-git/higher-pleasures/internal/domain"
	"github.com/MatthewCline-git/higher-pleasures/internal/ledger"
)

const dateLayout = "2006-01-02"

// Handler coordinates HTTP requests with the ledger store.
type Handler struct {
	store ledger.Store
}

// NewHandler builds a Handler.
func NewHandler(store ledger.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/entries", h.entries)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) entries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEntriesRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope entries:read required")
		return
	}

	filter := ledger.EntryFilter{
		UserID: r.URL.Query().Get("user_id"),
		Limit:  100,
	}

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid from date")
			return
		}
		filter.From = from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid to date")
			return
		}
		filter.To = to
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 500 {
				parsed = 500
			}
			filter.Limit = parsed
		}
	}

	cursor, err := ledger.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}
	filter.Cursor = cursor

	entries, next, err := h.store.ListEntries(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toEntryView(entry))
	}

	if next != nil {
		w.Header().Set("X-Next-Cursor", ledger.EncodeCursor(next))
	}
	// The body is the bare array, not an envelope.
	writeJSON(w, http.StatusOK, items)
}

// EntryView is the wire shape of one ledger entry.
type EntryView struct {
	UserActivityID  string `json:"user_activity_id"`
	UserID          string `json:"user_id"`
	Date            string `json:"date"`
	DurationMinutes int    `json:"duration_minutes"`
	RawInput        string `json:"raw_input"`
}

func toEntryView(entry domain.Entry) EntryView {
	return EntryView{
		UserActivityID:  entry.CategoryID,
		UserID:          entry.UserID,
		Date:            entry.Date.Format(dateLayout),
		DurationMinutes: entry.DurationMinutes,
		RawInput:        entry.RawInput,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
