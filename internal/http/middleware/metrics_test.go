package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabelsAndInflight(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/feedback/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.DELETE("/feedback/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseGet := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/feedback/:id", "200"))
	baseDel := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/feedback/:id", "204"))
	baseMiss := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "unmatched", "404"))

	do(r, http.MethodGet, "/feedback/a", nil)
	do(r, http.MethodGet, "/feedback/b", nil)
	do(r, http.MethodDelete, "/feedback/a", nil)
	do(r, http.MethodGet, "/nope/at/all", nil)

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/feedback/:id", "200")); got != baseGet+2 {
		t.Fatalf("GET counter = %v, want %v", got, baseGet+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/feedback/:id", "204")); got != baseDel+1 {
		t.Fatalf("DELETE counter = %v, want %v", got, baseDel+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "unmatched", "404")); got != baseMiss+1 {
		t.Fatalf("unmatched counter = %v, want %v", got, baseMiss+1)
	}
	if v := testutil.ToFloat64(httpInflight); v != 0 {
		t.Fatalf("inflight = %v", v)
	}
}
