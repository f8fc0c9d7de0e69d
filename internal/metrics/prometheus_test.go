package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncResolution("static")
	pr.ObserveResolveDuration("static", 150*time.Millisecond)
	pr.IncStepFault("code_search")
	pr.IncSearch("hit")
	pr.ObserveSearchDuration(500 * time.Millisecond)
	pr.AddIndexedChunks(12)
	pr.AddIndexedChunks(-1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 6 {
		t.Fatalf("expected 6 metric families, got %d", len(mfs))
	}

	for _, mf := range mfs {
		if mf.GetName() == "repodocs_indexed_chunks_total" {
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 12 {
				t.Errorf("expected 12 indexed chunks, got %v", got)
			}
		}
	}
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncSearch("reindexed")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `repodocs_searches_total{outcome="reindexed"} 1`) {
		t.Errorf("expected search counter in scrape output:\n%s", body)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncResolution("x")
	r.ObserveResolveDuration("x", time.Second)
	r.IncStepFault("x")
	r.IncSearch("x")
	r.ObserveSearchDuration(time.Second)
	r.AddIndexedChunks(1)
}
