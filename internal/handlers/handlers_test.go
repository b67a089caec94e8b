package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/mailprune/internal/audit"
	"github.com/huangsam/mailprune/internal/report"
)

func newTestRouter(t *testing.T, aggregates []audit.SenderAggregate) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := report.NewStore(filepath.Join(t.TempDir(), "report.csv"))
	if aggregates != nil {
		require.NoError(t, store.Save(aggregates))
	}

	h := NewHandlers(nil, store, nil, nil)
	router := gin.New()
	router.GET("/api/v1/report", h.GetReport)
	router.GET("/api/v1/report/top", h.GetTopNoiseMakers)
	router.GET("/api/v1/report/summary", h.GetSummary)
	router.GET("/api/v1/report/engagement", h.GetEngagement)
	router.GET("/api/v1/report/categories", h.GetCategories)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func testAggregates() []audit.SenderAggregate {
	return []audit.SenderAggregate{
		{From: "noisy@example.com", TotalVolume: 30, UnreadCount: 27, UpdatesCount: 30, OpenRate: 10, IgnoranceScore: 2700},
		{From: "friend@example.com", TotalVolume: 5, OpenRate: 100, IgnoranceScore: 0},
	}
}

func TestEmptyReportReturnsNotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	paths := []string{
		"/api/v1/report",
		"/api/v1/report/top",
		"/api/v1/report/summary",
		"/api/v1/report/engagement",
		"/api/v1/report/categories",
	}
	for _, path := range paths {
		w := get(router, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "report_empty", path)
	}
}

func TestGetReport(t *testing.T) {
	router := newTestRouter(t, testAggregates())

	w := get(router, "/api/v1/report")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Senders []audit.SenderAggregate `json:"senders"`
		Count   int                     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestGetReportSenderFilter(t *testing.T) {
	router := newTestRouter(t, testAggregates())

	w := get(router, "/api/v1/report?sender=noisy")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Senders []audit.SenderAggregate `json:"senders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Senders, 1)
	assert.Equal(t, "noisy@example.com", body.Senders[0].From)
}

func TestGetTopNoiseMakersLimit(t *testing.T) {
	router := newTestRouter(t, testAggregates())

	w := get(router, "/api/v1/report/top?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Senders []audit.SenderAggregate `json:"senders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Senders, 1)
	assert.Equal(t, "noisy@example.com", body.Senders[0].From)
}

func TestGetTopNoiseMakersBadLimit(t *testing.T) {
	router := newTestRouter(t, testAggregates())

	assert.Equal(t, http.StatusBadRequest, get(router, "/api/v1/report/top?limit=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/api/v1/report/top?limit=-5").Code)
}

func TestGetSummary(t *testing.T) {
	router := newTestRouter(t, testAggregates())

	w := get(router, "/api/v1/report/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 35, body["total_emails"])
	assert.EqualValues(t, 27, body["total_unread"])
}

func TestGetEngagement(t *testing.T) {
	router := newTestRouter(t, testAggregates())

	w := get(router, "/api/v1/report/engagement")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string][]audit.SenderAggregate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["high"], 1)
	assert.Len(t, body["low"], 1)
}

func TestGetCategories(t *testing.T) {
	router := newTestRouter(t, testAggregates())

	w := get(router, "/api/v1/report/categories")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Unread map[string]int `json:"unread"`
		Total  map[string]int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 30, body.Total["Updates"])
	assert.Equal(t, 27, body.Unread["Updates"])
}
