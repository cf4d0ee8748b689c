package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/MatthewCline-git/higher-pleasures/internal/auth"
	"github.com/MatthewCline-git/higher-pleasures/internal/domain"
	"github.com/MatthewCline-git/higher-pleasures/internal/ledger"
)

func seedStore(t *testing.T) *ledger.InMemoryStore {
	t.Helper()
	store := ledger.NewInMemoryStore()
	entries := []domain.Entry{
		{ID: "e1", UserID: "user-1", CategoryID: "cat-run", Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), DurationMinutes: 30, RawInput: "ran 30 minutes yesterday"},
		{ID: "e2", UserID: "user-1", CategoryID: "cat-yoga", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), DurationMinutes: 60, RawInput: "an hour of yoga"},
		{ID: "e3", UserID: "user-2", CategoryID: "cat-read", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), DurationMinutes: 45, RawInput: "read for 45 minutes"},
	}
	for _, entry := range entries {
		require.NoError(t, store.AppendEntry(context.Background(), entry))
	}
	return store
}

func requestWithScope(method, target string, scopes ...string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	scopeSet := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		scopeSet[s] = struct{}{}
	}
	claims := &auth.Claims{Subject: "reader", Scopes: scopeSet}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestEntriesReturnsBareArray(t *testing.T) {
	handler := NewHandler(seedStore(t))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, requestWithScope(http.MethodGet, "/entries", auth.ScopeEntriesRead))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var items []EntryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 3)
	// Newest date first.
	require.Equal(t, "2024-03-05", items[0].Date)
	require.Equal(t, "cat-run", items[2].UserActivityID)
	require.Equal(t, "ran 30 minutes yesterday", items[2].RawInput)
}

func TestEntriesFiltersByUser(t *testing.T) {
	handler := NewHandler(seedStore(t))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, requestWithScope(http.MethodGet, "/entries?user_id=user-2", auth.ScopeEntriesRead))

	require.Equal(t, http.StatusOK, rec.Code)
	var items []EntryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, "user-2", items[0].UserID)
}

func TestEntriesFiltersByDateRange(t *testing.T) {
	handler := NewHandler(seedStore(t))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, requestWithScope(http.MethodGet, "/entries?from=2024-03-05&to=2024-03-05", auth.ScopeEntriesRead))

	require.Equal(t, http.StatusOK, rec.Code)
	var items []EntryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
}

func TestEntriesPaginatesWithCursorHeader(t *testing.T) {
	handler := NewHandler(seedStore(t))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, requestWithScope(http.MethodGet, "/entries?limit=2", auth.ScopeEntriesRead))

	require.Equal(t, http.StatusOK, rec.Code)
	var firstPage []EntryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &firstPage))
	require.Len(t, firstPage, 2)

	next := rec.Header().Get("X-Next-Cursor")
	require.NotEmpty(t, next)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, requestWithScope(http.MethodGet, "/entries?limit=2&cursor="+next, auth.ScopeEntriesRead))

	var secondPage []EntryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &secondPage))
	require.Len(t, secondPage, 1)
}

type filterRecordingStore struct {
	*ledger.InMemoryStore
	lastFilter ledger.EntryFilter
}

func (s *filterRecordingStore) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]domain.Entry, *ledger.Cursor, error) {
	s.lastFilter = filter
	return s.InMemoryStore.ListEntries(ctx, filter)
}

func TestEntriesClampsOversizedLimit(t *testing.T) {
	store := &filterRecordingStore{InMemoryStore: seedStore(t)}
	handler := NewHandler(store)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, requestWithScope(http.MethodGet, "/entries?limit=9999", auth.ScopeEntriesRead))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 500, store.lastFilter.Limit)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, requestWithScope(http.MethodGet, "/entries?limit=250", auth.ScopeEntriesRead))
	require.Equal(t, 250, store.lastFilter.Limit)
}

func TestEntriesRejectsMissingScope(t *testing.T) {
	handler := NewHandler(seedStore(t))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, requestWithScope(http.MethodGet, "/entries"))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEntriesRejectsInvalidCursor(t *testing.T) {
	handler := NewHandler(seedStore(t))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, requestWithScope(http.MethodGet, "/entries?cursor=%21%21not-base64", auth.ScopeEntriesRead))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntriesThroughAuthMiddleware(t *testing.T) {
	handler := NewHandler(seedStore(t))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	cfg := auth.Config{Secret: "test-secret", Issuer: "higher-pleasures"}
	middleware := auth.NewMiddleware(cfg, auth.ScopeEntriesRead, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	})
	wrapped := middleware.Wrap(mux)

	signToken := func(scopes []string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":    "reader",
			"iss":    "higher-pleasures",
			"exp":    time.Now().Add(time.Hour).Unix(),
			"scopes": scopes,
		})
		signed, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return signed
	}

	req := httptest.NewRequest(http.MethodGet, "/entries", nil)
	req.Header.Set("Authorization", "Bearer "+signToken([]string{auth.ScopeEntriesRead}))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// No token at all is rejected.
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entries", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid token without the read scope stops at the middleware.
	req = httptest.NewRequest(http.MethodGet, "/entries", nil)
	req.Header.Set("Authorization", "Bearer "+signToken([]string{"other:scope"}))
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Health checks skip authentication.
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
