package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/service/metrics"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
)

const cacheControl = "public, max-age=60"

// ForecastsEchoHandler serves the published forecast document.
type ForecastsEchoHandler struct {
	reader domrepo.ForecastReader
	l      *applogger.Logger
}

func NewForecastsEchoHandler(reader domrepo.ForecastReader, l *applogger.Logger) *ForecastsEchoHandler {
	metrics.Register()
	return &ForecastsEchoHandler{reader: reader, l: l}
}

func (h *ForecastsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/forecasts")
	g.GET("", h.Series)
	g.GET("/meta", h.Meta)
	g.GET("/keys", h.Keys)
	e.GET("/healthz", h.Health)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// lookupError maps reader errors onto API errors.
func (h *ForecastsEchoHandler) lookupError(c echo.Context, endpoint string, err error) error {
	switch {
	case errors.Is(err, domrepo.ErrNoDocument):
		metrics.APILookups.WithLabelValues(endpoint, "miss").Inc()
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("no forecast document has been published yet"))
	case errors.Is(err, domrepo.ErrSeriesNotFound):
		metrics.APILookups.WithLabelValues(endpoint, "miss").Inc()
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("series not found").WithError(err))
	default:
		metrics.APILookups.WithLabelValues(endpoint, "error").Inc()
		h.l.Error("forecast lookup error", applogger.String("endpoint", endpoint), applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}

func (h *ForecastsEchoHandler) Meta(c echo.Context) error {
	defer observe("meta", time.Now())
	meta, err := h.reader.Meta(c.Request().Context())
	if err != nil {
		return h.lookupError(c, "meta", err)
	}
	metrics.APILookups.WithLabelValues("meta", "hit").Inc()
	c.Response().Header().Set(echo.HeaderCacheControl, cacheControl)
	return xhttp.SuccessResponse(c, meta)
}

func (h *ForecastsEchoHandler) Keys(c echo.Context) error {
	defer observe("keys", time.Now())
	req := &models.KeysQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APILookups.WithLabelValues("keys", "invalid").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	keys, err := h.reader.Keys(c.Request().Context())
	if err != nil {
		return h.lookupError(c, "keys", err)
	}
	metrics.APILookups.WithLabelValues("keys", "hit").Inc()

	lo := min(req.Offset, len(keys))
	hi := min(lo+req.Limit, len(keys))
	c.Response().Header().Set(echo.HeaderCacheControl, cacheControl)
	return xhttp.ListResponse(c, keys[lo:hi], int64(len(keys)))
}

// Series returns the entry for the key addressed by the query. Empty
// parameters are wildcards.
func (h *ForecastsEchoHandler) Series(c echo.Context) error {
	defer observe("series", time.Now())
	req := &models.ForecastQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APILookups.WithLabelValues("series", "invalid").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	key := req.Key().String()
	sf, err := h.reader.Series(c.Request().Context(), key)
	if err != nil {
		return h.lookupError(c, "series", err)
	}
	if req.Model != "" {
		res, ok := sf.Models[req.Model]
		if !ok {
			metrics.APILookups.WithLabelValues("series", "miss").Inc()
			return xhttp.AppErrorResponse(c,
				xhttp.NotFoundErrorf("model %s has no forecast for this series", req.Model).
					WithParam("key", key).
					WithParam("model", req.Model))
		}
		sf.Models = map[string]models.ModelResult{req.Model: res}
	}
	metrics.APILookups.WithLabelValues("series", "hit").Inc()
	c.Response().Header().Set(echo.HeaderCacheControl, cacheControl)
	return xhttp.SuccessResponse(c, sf)
}

type healthResponse struct {
	Status      string `json:"status"`
	GeneratedAt string `json:"generated_at,omitempty"`
}

// Health reports liveness and, when available, the published document timestamp.
func (h *ForecastsEchoHandler) Health(c echo.Context) error {
	res := healthResponse{Status: "ok"}
	if meta, err := h.reader.Meta(c.Request().Context()); err == nil {
		res.GeneratedAt = meta.GeneratedAt
	}
	return xhttp.SuccessResponse(c, res)
}

var _ xhttp.Handler = (*ForecastsEchoHandler)(nil)
