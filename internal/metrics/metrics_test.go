package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は名前とラベルが一致するメトリクスを返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// TestRecordAPICall_CountsAndObserves はAPI呼び出しのカウンタとヒストグラムを検証する。
func TestRecordAPICall_CountsAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAPICall("/predict/", 200, 120*time.Millisecond)
	c.RecordAPICall("/predict/", 200, 80*time.Millisecond)
	c.RecordAPICall("/predict/", 500, time.Second)

	ok := findMetric(t, reg, "glowguard_api_requests_total", map[string]string{"endpoint": "/predict/", "status_code": "200"})
	if v := ok.GetCounter().GetValue(); v != 2 {
		t.Errorf("200 count = %v, want 2", v)
	}
	failed := findMetric(t, reg, "glowguard_api_requests_total", map[string]string{"endpoint": "/predict/", "status_code": "500"})
	if v := failed.GetCounter().GetValue(); v != 1 {
		t.Errorf("500 count = %v, want 1", v)
	}

	hist := findMetric(t, reg, "glowguard_api_request_duration_seconds", map[string]string{"endpoint": "/predict/"})
	if n := hist.GetHistogram().GetSampleCount(); n != 3 {
		t.Errorf("sample count = %d, want 3", n)
	}
}

// TestRecordAnalyzeOutcome_ByOutcome は解析結果がラベル別に集計されることを検証する。
func TestRecordAnalyzeOutcome_ByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAnalyzeOutcome("success")
	c.RecordAnalyzeOutcome("unauthenticated")
	c.RecordAnalyzeOutcome("success")

	m := findMetric(t, reg, "glowguard_analyze_total", map[string]string{"outcome": "success"})
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("success = %v, want 2", v)
	}
}

// TestRecordUploadRejected_ByReason は拒否理由別に集計されることを検証する。
func TestRecordUploadRejected_ByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUploadRejected("INVALID_FILE_TYPE")

	m := findMetric(t, reg, "glowguard_upload_rejected_total", map[string]string{"reason": "INVALID_FILE_TYPE"})
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("rejected = %v, want 1", v)
	}
}

// TestRecordBlogFetch_SuccessAndFailure はブログ取得結果の集計を検証する。
func TestRecordBlogFetch_SuccessAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBlogFetch(true)
	c.RecordBlogFetch(false)
	c.RecordBlogFetch(false)

	m := findMetric(t, reg, "glowguard_blog_fetch_total", map[string]string{"result": "failure"})
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("failure = %v, want 2", v)
	}
}

// TestObserveActiveClients_ReadsAtScrape はゲージがスクレイプ時の値を返すことを検証する。
func TestObserveActiveClients_ReadsAtScrape(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	n := 3
	c.ObserveActiveClients(func() int { return n })

	m := findMetric(t, reg, "glowguard_active_clients", nil)
	if v := m.GetGauge().GetValue(); v != 3 {
		t.Errorf("active clients = %v, want 3", v)
	}

	n = 5
	m = findMetric(t, reg, "glowguard_active_clients", nil)
	if v := m.GetGauge().GetValue(); v != 5 {
		t.Errorf("active clients = %v, want 5", v)
	}
}
