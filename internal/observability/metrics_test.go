package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("mysteryhost")

	m.ObserveAnnouncement("ok")
	m.ObserveAnnouncement("ok")
	m.ObserveAnnouncement("busy")
	m.ObserveAlert("one_minute")
	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()

	if got := testutil.ToFloat64(m.Announcements.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok announcements, got %v", got)
	}
	if got := testutil.ToFloat64(m.Announcements.WithLabelValues("busy")); got != 1 {
		t.Fatalf("expected 1 busy announcement, got %v", got)
	}
	if got := testutil.ToFloat64(m.TimerAlerts.WithLabelValues("one_minute")); got != 1 {
		t.Fatalf("expected 1 alert, got %v", got)
	}
	if got := testutil.ToFloat64(m.WSClients); got != 1 {
		t.Fatalf("expected 1 ws client, got %v", got)
	}
}

func TestMetricsInstancesAreIndependent(t *testing.T) {
	a := NewMetrics("mysteryhost")
	b := NewMetrics("mysteryhost")

	a.ObserveAnnouncement("ok")
	if got := testutil.ToFloat64(b.Announcements.WithLabelValues("ok")); got != 0 {
		t.Fatalf("expected separate registries, got %v", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("mysteryhost")
	m.ObserveSynthesis(1200 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "mysteryhost_synthesis_latency_ms_count 1") {
		t.Fatalf("expected latency histogram in output, got:\n%s", body)
	}
}
