package metrics

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func gathered(t *testing.T, reg *prom.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			}
		}
		return sum
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveFetchDuration("kuma.cz", 150*time.Millisecond, true)
	pr.IncClassification("kuma.cz", "available")
	pr.IncTransition("not_available", "available")
	pr.IncNotification("restock", OutcomeSuccess)
	pr.ObserveRunDuration(12*time.Second, OutcomeSuccess)
	pr.SetTargets(6, 2)
	pr.SetLastRun(time.Unix(1700000000, 0))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
	if got := gathered(t, reg, "restockwatch_targets_available"); got != 2 {
		t.Fatalf("targets_available = %v, want 2", got)
	}
	if got := gathered(t, reg, "restockwatch_transitions_total"); got != 1 {
		t.Fatalf("transitions = %v, want 1", got)
	}
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.SetTargets(3, 1)

	path := filepath.Join(t.TempDir(), "restockwatch.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "restockwatch_targets_tracked 3") {
		t.Fatalf("textfile missing tracked gauge:\n%s", data)
	}
}

func TestPrometheusRecorder_HTTPHandler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncNotification("heartbeat", OutcomeFailed)

	srv := httptest.NewServer(pr.HTTPHandler())
	t.Cleanup(srv.Close)
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `restockwatch_notifications_total{kind="heartbeat",outcome="failed"} 1`) {
		t.Fatalf("unexpected scrape body:\n%s", body)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveFetchDuration("h", time.Second, false)
	r.IncClassification("generic", "available")
	r.IncTransition("unknown", "available")
	r.IncNotification("restock", OutcomeFailed)
	r.ObserveRunDuration(time.Second, OutcomeCanceled)
	r.SetTargets(1, 1)
	r.SetLastRun(time.Now())
}
