package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"BreakoutScan/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeRequest struct {
	Symbol string `json:"symbol" validate:"required,max=5"`
	Limit  int    `json:"limit" default:"7" validate:"gte=1"`
}

type probeHandler struct{}

func (probeHandler) RegisterRoutes(e *echo.Group) {
	e.POST("/probe", func(c echo.Context) error {
		var req probeRequest
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("no result for %s", "ZZZ"))
	})
	e.GET("/panic", func(c echo.Context) error { panic("boom") })
}

func newTestServer() *Server {
	reg := prometheus.NewRegistry()
	return NewServer(probeHandler{}, logger.Nop(),
		WithMetrics("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), reg))
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestServer(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestReadAndValidateRequest(t *testing.T) {
	s := newTestServer()

	rec := serve(s, http.MethodPost, "/api/probe", `{"symbol":"AAPL"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Data probeRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, 7, ok.Data.Limit)

	rec = serve(s, http.MethodPost, "/api/probe", `{"symbol":"TOOLONG"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var bad struct {
		Data []ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	require.Len(t, bad.Data, 1)
	assert.Equal(t, "ERR_MAX", bad.Data[0].Code)
	assert.Equal(t, "symbol", bad.Data[0].Field)
}

func TestAppErrorResponse(t *testing.T) {
	rec := serve(newTestServer(), http.MethodGet, "/api/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
}

func TestRecoverAndMetrics(t *testing.T) {
	s := newTestServer()
	rec := serve(s, http.MethodGet, "/api/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	serve(s, http.MethodGet, "/healthz", "")
	rec = serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestCORS(t *testing.T) {
	preflight := func(s *Server, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/probe", nil)
		req.Header.Set(echo.HeaderOrigin, origin)
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		return rec
	}

	rec := preflight(newTestServer(), "https://dash.example")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)

	restricted := NewServer(probeHandler{}, logger.Nop(), WithCORSOrigins("https://dash.example"))
	rec = preflight(restricted, "https://evil.example")
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serve(restricted, http.MethodGet, "/api/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
