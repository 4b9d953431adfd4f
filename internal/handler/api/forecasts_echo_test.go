package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/repository"
	icache "PriceCast/internal/service/cache"
	applogger "PriceCast/pkg/logger"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestAPI(t *testing.T, publish bool) *echo.Echo {
	t.Helper()
	store := repository.NewCacheForecastStore(icache.NewTTLCache(), time.Hour)
	if publish {
		keys := []models.FilterKey{
			{},
			{Region: "Sul"},
			{Category: "Grãos"},
			{Region: "Sul", Category: "Grãos", Subcategory: "Arroz", Product: "Arroz 5kg"},
		}
		doc := &models.Document{
			Meta:   models.Meta{GeneratedAt: "2025-01-02T03:04:05Z", TargetPeriod: "2026-11", MaxHorizon: 36},
			Series: map[string]models.SeriesForecast{},
		}
		for _, k := range keys {
			doc.Series[k.String()] = models.SeriesForecast{
				Filters:     k.Filters(),
				LastPeriod:  "2024-10",
				ForecastEnd: "2024-11",
				Models: map[string]models.ModelResult{
					"naive":         {Forecast: []models.ForecastPoint{{Period: "2024-11", Value: 1, Lower: 1, Upper: 1}}},
					"random_forest": {Forecast: []models.ForecastPoint{{Period: "2024-11", Value: 2, Lower: 1, Upper: 3}}},
				},
			}
		}
		require.NoError(t, store.Write(context.Background(), doc))
	}
	e := echo.New()
	NewForecastsEchoHandler(store, applogger.NewNop()).RegisterRoutes(e)
	return e
}

func get(t *testing.T, e *echo.Echo, path string, q url.Values) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if q != nil {
		path += "?" + q.Encode()
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestSeriesLookup(t *testing.T) {
	e := newTestAPI(t, true)

	rec, env := get(t, e, "/api/forecasts", url.Values{"region": {"Sul"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var sf models.SeriesForecast
	require.NoError(t, json.Unmarshal(env.Data, &sf))
	require.NotNil(t, sf.Filters.Region)
	assert.Equal(t, "Sul", *sf.Filters.Region)
	assert.Nil(t, sf.Filters.Category)
	assert.Len(t, sf.Models, 2)
	assert.Equal(t, cacheControl, rec.Header().Get(echo.HeaderCacheControl))

	// no parameters addresses the all-wildcard series
	rec, _ = get(t, e, "/api/forecasts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = get(t, e, "/api/forecasts", url.Values{
		"region": {"Sul"}, "category": {"Grãos"}, "subcategory": {"Arroz"}, "product": {"Arroz 5kg"}, "model": {"naive"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var one models.SeriesForecast
	require.NoError(t, json.Unmarshal(env.Data, &one))
	assert.Len(t, one.Models, 1)
	assert.Contains(t, one.Models, "naive")
}

func TestSeriesNotFound(t *testing.T) {
	e := newTestAPI(t, true)

	rec, env := get(t, e, "/api/forecasts", url.Values{"region": {"Norte"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)
	assert.Contains(t, string(env.Data), "ERR_NOT_FOUND")

	rec, _ = get(t, e, "/api/forecasts", url.Values{"region": {"Sul"}, "model": {"xgboost"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeriesValidation(t *testing.T) {
	e := newTestAPI(t, true)

	rec, env := get(t, e, "/api/forecasts", url.Values{"product": {"Arroz 5kg"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_REQUIRED_WITH")
	assert.Contains(t, string(env.Data), `"field":"subcategory"`)

	rec, _ = get(t, e, "/api/forecasts", url.Values{"subcategory": {"Arroz"}, "category": {""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = get(t, e, "/api/forecasts", url.Values{"model": {"arima"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_ONEOF")
}

func TestMetaAndKeys(t *testing.T) {
	e := newTestAPI(t, true)

	rec, env := get(t, e, "/api/forecasts/meta", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var meta models.Meta
	require.NoError(t, json.Unmarshal(env.Data, &meta))
	assert.Equal(t, "2026-11", meta.TargetPeriod)

	rec, env = get(t, e, "/api/forecasts/keys", url.Values{"limit": {"2"}, "offset": {"1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Rows  []string `json:"rows"`
		Total int64    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Rows, 2)

	rec, env = get(t, e, "/api/forecasts/keys", url.Values{"offset": {"10"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var past struct {
		Rows []string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &past))
	assert.Empty(t, past.Rows)

	rec, _ = get(t, e, "/api/forecasts/keys", url.Values{"limit": {"20000"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoDocumentYet(t *testing.T) {
	e := newTestAPI(t, false)

	rec, _ := get(t, e, "/api/forecasts/meta", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = get(t, e, "/api/forecasts", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, env := get(t, e, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}
