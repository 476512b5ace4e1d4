package update

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsFollowCell(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	cell := NewStatusCell()
	m.Attach(cell)

	if v := testutil.ToFloat64(m.phase.WithLabelValues("checking")); v != 1 {
		t.Errorf("checking gauge = %v, want 1", v)
	}

	cell.Store(Downloading(0))
	cell.Store(Downloading(40))
	if v := testutil.ToFloat64(m.checks.WithLabelValues("update_available")); v != 1 {
		t.Errorf("update_available = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.progress); v != 40 {
		t.Errorf("progress = %v, want 40", v)
	}
	if v := testutil.ToFloat64(m.phase.WithLabelValues("checking")); v != 0 {
		t.Errorf("checking gauge = %v, want 0", v)
	}
	if v := testutil.ToFloat64(m.phase.WithLabelValues("downloading")); v != 1 {
		t.Errorf("downloading gauge = %v, want 1", v)
	}

	cell.Store(FinishedInstalling())
	if v := testutil.ToFloat64(m.progress); v != 100 {
		t.Errorf("progress after finish = %v, want 100", v)
	}
	if v := testutil.ToFloat64(m.phase.WithLabelValues("finished")); v != 1 {
		t.Errorf("finished gauge = %v, want 1", v)
	}
}

func TestMetricsUpToDateCheck(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	d := fastDryRun(false)
	m.Attach(d.Cell())

	d.Start(NewVersion(1, 0, 0), AnyVersion())

	if v := testutil.ToFloat64(m.checks.WithLabelValues("up_to_date")); v != 1 {
		t.Errorf("up_to_date = %v, want 1", v)
	}
	if n := testutil.CollectAndCount(reg, "autoupdate_phase"); n != len(Phases) {
		t.Errorf("autoupdate_phase series = %d, want %d", n, len(Phases))
	}
}
