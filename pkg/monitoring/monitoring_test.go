package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voicehub/roomcall/pkg/config/monitoring"
	"github.com/voicehub/roomcall/pkg/logger"
)

func TestMetricsHandler(t *testing.T) {
	m := New(monitoring.Config{Port: 0, URLPrefix: "/peer", MetricEnabled: true}, logger.Nop())
	Candidates.WithLabelValues(DirLocal).Inc()

	rec := httptest.NewRecorder()
	m.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/peer/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %v", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "roomcall_candidates_total") {
		t.Errorf("no roomcall metrics in the output")
	}
}

func TestDisabledHandlers(t *testing.T) {
	m := New(monitoring.Config{URLPrefix: "/peer"}, logger.Nop())

	rec := httptest.NewRecorder()
	m.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/peer/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("metrics should be off, got %v", rec.Code)
	}
}
