package apiutil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Aidin1998/todokv/common/apiutil"
	"github.com/Aidin1998/todokv/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	r := gin.New()
	r.Use(apiutil.RequestIDMiddleware())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = apiutil.RequestID(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(apiutil.RequestIDHeader))
}

func TestRequestIDMiddleware_ReusesIncoming(t *testing.T) {
	r := gin.New()
	r.Use(apiutil.RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(apiutil.RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc", w.Header().Get(apiutil.RequestIDHeader))
}

func TestWriteTextError(t *testing.T) {
	r := gin.New()
	called := false
	r.GET("/x", func(c *gin.Context) {
		apiutil.WriteTextError(c, http.StatusInternalServerError, "Error getting todos")
	}, func(c *gin.Context) { called = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error getting todos", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.False(t, called)
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := gin.New()
	r.Use(apiutil.MetricsMiddleware(m))
	r.GET("/api/todo/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/todo/", "/api/todo/", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/todo/", "GET", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("unmatched", "GET", "404")))
}
