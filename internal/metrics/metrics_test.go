package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitializeMetricsPopulatesLabels(t *testing.T) {
	InitializeMetrics()

	// 5 operations x 5 statuses
	if got := testutil.CollectAndCount(JobsTotal); got != 25 {
		t.Errorf("JobsTotal series = %d, want 25", got)
	}

	if got := testutil.CollectAndCount(ToolInvocationsTotal); got != 10 {
		t.Errorf("ToolInvocationsTotal series = %d, want 10", got)
	}

	if got := testutil.CollectAndCount(DownloadsTotal); got != 4 {
		t.Errorf("DownloadsTotal series = %d, want 4", got)
	}
}

func TestJobCounterIncrements(t *testing.T) {
	counter := JobsTotal.WithLabelValues("thumbnail", "success")
	before := testutil.ToFloat64(counter)
	counter.Inc()
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc123", "go1.25")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc123", "go1.25")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}

func TestMetricNamesArePrefixed(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := 0
	for _, mf := range families {
		name := mf.GetName()
		if strings.HasPrefix(name, "go_") || strings.HasPrefix(name, "process_") || strings.HasPrefix(name, "promhttp_") {
			continue
		}
		found++
		if !strings.HasPrefix(name, "ffmpeg_service_") {
			t.Errorf("metric %q is missing the ffmpeg_service_ prefix", name)
		}
	}
	if found == 0 {
		t.Error("no application metrics were gathered")
	}
}
