package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Submission("manual", "accepted")
	m.CheckpointWritten()
	m.Recovery("restored")
	m.Reconcile("cache")
	m.SetCountdowns(3)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Submission("expiry", "accepted")
	m.SetCountdowns(2)

	if got := testutil.ToFloat64(m.Submissions.WithLabelValues("expiry", "accepted")); got != 1 {
		t.Fatalf("expected one accepted expiry submission, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"assessment_submissions_total", "assessment_countdowns_active 2"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}
