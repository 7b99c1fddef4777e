package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.IncRequests("cloud-primary")
	c.IncRequests("cloud-primary")
	c.IncRequests("offline-fallback")
	c.IncProviderFailure("gemini")
	c.IncCacheHit()
	c.IncCacheMiss()
	c.IncCacheMiss()
	c.SetQueueDepth(3)
	c.AddTokens(120)

	requests := c.GetRequestsTotal()
	if requests["cloud-primary"] != 2 {
		t.Errorf("cloud-primary = %d, want 2", requests["cloud-primary"])
	}
	if requests["offline-fallback"] != 1 {
		t.Errorf("offline-fallback = %d, want 1", requests["offline-fallback"])
	}

	if c.GetProviderFailures()["gemini"] != 1 {
		t.Error("expected one gemini failure")
	}

	hits, misses := c.GetCacheStats()
	if hits != 1 || misses != 2 {
		t.Errorf("cache stats = %d/%d, want 1/2", hits, misses)
	}

	if c.GetQueueDepth() != 3 {
		t.Errorf("queue depth = %d, want 3", c.GetQueueDepth())
	}
}

func TestPrometheusOutput(t *testing.T) {
	c := NewCollector()
	c.IncRequests("cloud-primary")
	c.IncCacheHit()

	var sb strings.Builder
	c.WritePrometheus(&sb)
	out := sb.String()

	for _, want := range []string{
		`shikshasetu_requests_total{mode="cloud-primary"} 1`,
		`shikshasetu_cache_total{result="hit"} 1`,
		"shikshasetu_queue_depth 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.IncRequests("offline-primary")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler()(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "shikshasetu_requests_total") {
		t.Error("metrics body missing request counter")
	}
}
