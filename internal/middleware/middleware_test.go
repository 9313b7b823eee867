package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blogcore/internal/lib/jwt"
	"blogcore/internal/lib/logger/handlers/slogdiscard"
	"blogcore/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	e.Use(PrometheusMetrics)
	e.Use(Identity(slogdiscard.NewDiscardLogger(), secret))

	e.GET("/whoami", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"staff": IsStaff(c)})
	})

	admin := e.Group("/admin", RequireStaff)
	admin.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	return e
}

func bearer(t *testing.T, staff bool) string {
	t.Helper()

	token, err := jwt.NewToken("someone", staff, time.Hour, secret)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestIdentity(t *testing.T) {
	e := newEcho()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "no header", header: "", want: `{"staff":false}`},
		{name: "staff token", header: bearer(t, true), want: `{"staff":true}`},
		{name: "reader token", header: bearer(t, false), want: `{"staff":false}`},
		{name: "invalid token", header: "Bearer nope", want: `{"staff":false}`},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz", want: `{"staff":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestRequireStaff(t *testing.T) {
	e := newEcho()

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"forbidden"`)

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, true))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestPrometheusMetrics(t *testing.T) {
	e := newEcho()

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/whoami", "200"))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	e.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/whoami", "200"))
	assert.Equal(t, before+1, after)

	forbidden := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/admin/ping", "403"))
	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	e.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, forbidden+1,
		testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/admin/ping", "403")))
}
