package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProm_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewProm(prometheus.NewRegistry())

	r := gin.New()
	r.Use(p.GinHandleMiddleware())
	r.GET("/api/expenses/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", p.Handler())

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/expenses/"+id, http.NoBody))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody))

	assert.Equal(t, 2.0, promtest.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "/api/expenses/:id", "204")))
	assert.Equal(t, 1.0, promtest.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, promtest.ToFloat64(p.InFlight.WithLabelValues("GET", "/api/expenses/:id")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pennywise_http_requests_total"))
}

func TestProm_ObserveMail(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.ObserveMail("sent", 120*time.Millisecond)
	p.ObserveMail("sent", 80*time.Millisecond)
	p.ObserveMail("circuit_open", 0)

	assert.Equal(t, 2.0, promtest.ToFloat64(p.MailResults.WithLabelValues("sent")))
	assert.Equal(t, 1.0, promtest.ToFloat64(p.MailResults.WithLabelValues("circuit_open")))
	assert.Equal(t, 0.0, promtest.ToFloat64(p.MailResults.WithLabelValues("failed")))
}
