package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/email-tracking-service/internal/service"
	"github.com/teresa-solution/email-tracking-service/internal/store"
)

func setupTestRouter(t *testing.T) (chi.Router, *store.Store, func()) {
	t.Helper()
	repo, err := store.Open(context.Background(), "sqlite::memory:")
	require.NoError(t, err)

	svc := service.NewTrackingService(repo, "http://localhost:3000")
	h, err := NewHandler(svc, repo, "http://localhost:3000", "test")
	require.NoError(t, err)

	teardown := func() {
		repo.Close()
	}
	return h.Routes(zerolog.Nop()), repo, teardown
}

func do(router http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createEmail(t *testing.T, router http.Handler, tenantID string) service.Registration {
	t.Helper()
	rec := do(router, http.MethodPost, "/"+tenantID+"/emails", `{"subject":"Hello","recipient":"reader@example.com"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var reg service.Registration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	return reg
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHandleHealth(t *testing.T) {
	router, _, teardown := setupTestRouter(t)
	defer teardown()

	rec := do(router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "little-bell", body["service"])
	assert.Equal(t, "test", body["version"])
}

func TestHandleHealth_StoreDown(t *testing.T) {
	router, repo, teardown := setupTestRouter(t)
	defer teardown()
	repo.Close()

	rec := do(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unhealthy"`)
}

func TestHandleCreateEmail(t *testing.T) {
	router, _, teardown := setupTestRouter(t)
	defer teardown()

	reg := createEmail(t, router, "acme")
	assert.Equal(t, int64(1), reg.EmailID)
	assert.Equal(t, "http://localhost:3000/acme/pixel/1.gif", reg.PixelURL)

	// body is optional
	rec := do(router, http.MethodPost, "/acme/emails", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email_id":2`)
	assert.Contains(t, rec.Body.String(), `"tracking_pixel_url":"http://localhost:3000/acme/pixel/2.gif"`)
}

func TestHandleCreateEmail_InvalidJSON(t *testing.T) {
	router, _, teardown := setupTestRouter(t)
	defer teardown()

	rec := do(router, http.MethodPost, "/acme/emails", `{"subject":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "invalid JSON")
}

func TestHandleOpen(t *testing.T) {
	router, repo, teardown := setupTestRouter(t)
	defer teardown()

	tenantID := uuid.NewString()
	reg := createEmail(t, router, tenantID)

	rec := do(router, http.MethodGet, fmt.Sprintf("/%s/pixel/%d.gif", tenantID, reg.EmailID), "", map[string]string{
		"User-Agent":      "Mozilla/5.0",
		"X-Forwarded-For": "203.0.113.5, 70.41.3.18",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store, no-cache, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
	assert.Equal(t, pixelGIF, rec.Body.Bytes())

	stats, err := repo.GetTenantStats(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, stats.RecentEvents, 1)
	assert.Equal(t, "203.0.113.5", *stats.RecentEvents[0].IPAddress)
	assert.Equal(t, "Mozilla/5.0", *stats.RecentEvents[0].UserAgent)
}

func TestHandleOpen_Errors(t *testing.T) {
	router, repo, teardown := setupTestRouter(t)
	defer teardown()

	createEmail(t, router, "acme")

	rec := do(router, http.MethodGet, "/acme/pixel/999.gif", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "email not found", decodeError(t, rec))

	rec = do(router, http.MethodGet, "/globex/pixel/1.gif", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodGet, "/acme/pixel/abc.gif", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stats, err := repo.GetTenantStats(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalOpens)
}

func TestHandleClick(t *testing.T) {
	router, repo, teardown := setupTestRouter(t)
	defer teardown()

	createEmail(t, router, "acme")

	rec := do(router, http.MethodGet, "/acme/click/1?url=https%3A%2F%2Fexample.com", "", map[string]string{
		"X-Real-Ip": "10.0.0.7",
	})
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Location"))

	stats, err := repo.GetTenantStats(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalClicks)
	assert.Equal(t, "10.0.0.7", *stats.RecentEvents[0].IPAddress)
}

func TestHandleClick_TargetUnmodified(t *testing.T) {
	router, _, teardown := setupTestRouter(t)
	defer teardown()

	createEmail(t, router, "acme")

	target := "/relative/../path?a=1&b=%20x#frag"
	rec := do(router, http.MethodGet, "/acme/click/1?url="+strings.NewReplacer("%", "%25", "&", "%26", "#", "%23", "?", "%3F").Replace(target), "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, target, rec.Header().Get("Location"))
}

func TestHandleClick_Errors(t *testing.T) {
	router, _, teardown := setupTestRouter(t)
	defer teardown()

	createEmail(t, router, "acme")

	rec := do(router, http.MethodGet, "/acme/click/1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing 'url' parameter", decodeError(t, rec))

	rec = do(router, http.MethodGet, "/acme/click/42?url=https%3A%2F%2Fexample.com", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))

	rec = do(router, http.MethodGet, "/acme/click/x?url=https%3A%2F%2Fexample.com", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClickURL(t *testing.T) {
	router, _, teardown := setupTestRouter(t)
	defer teardown()

	createEmail(t, router, "acme")

	rec := do(router, http.MethodGet, "/acme/click-url/1?url=https%3A%2F%2Fexample.com%2Fdeal%3Fid%3D7", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body clickURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://example.com/deal?id=7", body.OriginalURL)
	assert.Equal(t, "http://localhost:3000/acme/click/1?url=https%3A%2F%2Fexample.com%2Fdeal%3Fid%3D7", body.ClickURL)

	rec = do(router, http.MethodGet, "/acme/click-url/1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/globex/click-url/1?url=https%3A%2F%2Fexample.com", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDashboard(t *testing.T) {
	router, _, teardown := setupTestRouter(t)
	defer teardown()

	rec := do(router, http.MethodGet, "/acme/dashboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Dashboard: acme")
	assert.Contains(t, rec.Body.String(), `id="no-events"`)
	assert.Contains(t, rec.Body.String(), `id="total-opens">0<`)
}

func TestHandleDashboard_Scenario(t *testing.T) {
	router, _, teardown := setupTestRouter(t)
	defer teardown()

	createEmail(t, router, "acme")

	rec := do(router, http.MethodGet, "/acme/pixel/1.gif", "", map[string]string{
		"X-Forwarded-For": "203.0.113.5, 70.41.3.18",
		"User-Agent":      "<b>bot</b>",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/acme/click/1?url=https%3A%2F%2Fexample.com", "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	rec = do(router, http.MethodGet, "/acme/dashboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="total-opens">1<`)
	assert.Contains(t, body, `id="total-clicks">1<`)
	assert.Contains(t, body, `id="unique-opens">1<`)
	assert.Contains(t, body, `id="unique-clicks">1<`)
	assert.Contains(t, body, "203.0.113.5")
	assert.Contains(t, body, "&lt;b&gt;bot&lt;/b&gt;")
	assert.NotContains(t, body, "<b>bot</b>")
	assert.NotContains(t, body, `id="no-events"`)
}

func TestHandler_StorageFault(t *testing.T) {
	router, repo, teardown := setupTestRouter(t)
	defer teardown()
	repo.Close()

	for _, target := range []string{"/acme/pixel/1.gif", "/acme/click/1?url=https%3A%2F%2Fexample.com", "/acme/dashboard", "/acme/click-url/1?url=x"} {
		rec := do(router, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
		assert.Equal(t, "internal server error", decodeError(t, rec), target)
	}

	rec := do(router, http.MethodPost, "/acme/emails", "{}", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleMetrics(t *testing.T) {
	router, _, teardown := setupTestRouter(t)
	defer teardown()

	rec := do(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
