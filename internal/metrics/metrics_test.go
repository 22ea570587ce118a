package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"eivu-go/internal/eivu"
)

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func TestIngestMetrics_ObserveTransition(t *testing.T) {
	m := NewIngestMetrics(prometheus.NewRegistry())

	m.ObserveTransition(eivu.EventReserve, eivu.ResultOK, 10*time.Millisecond)
	m.ObserveTransition(eivu.EventReserve, eivu.ResultOK, 20*time.Millisecond)
	m.ObserveTransition(eivu.EventReserve, eivu.ResultDuplicate, time.Millisecond)

	if v := counterValue(m.Transitions.WithLabelValues("reserve", "ok")); v != 2 {
		t.Errorf("reserve/ok = %v, want 2", v)
	}
	if v := counterValue(m.Transitions.WithLabelValues("reserve", "duplicate")); v != 1 {
		t.Errorf("reserve/duplicate = %v, want 1", v)
	}

	h := &dto.Metric{}
	if err := m.TransitionDuration.WithLabelValues("reserve").(prometheus.Histogram).Write(h); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := h.GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("duration samples = %d, want 3", got)
	}
}

func TestIngestMetrics_Counters(t *testing.T) {
	m := NewIngestMetrics(prometheus.NewRegistry())

	m.FoldersCreated(2)
	m.FoldersCreated(1)
	m.RemoteDelete(eivu.ResultOK)
	m.RemoteDelete(eivu.ResultError)
	m.RemoteDelete(eivu.ResultError)
	m.RecordUpload(1024)

	if v := counterValue(m.FoldersTotal); v != 3 {
		t.Errorf("folders created = %v, want 3", v)
	}
	if v := counterValue(m.RemoteDeletes.WithLabelValues("error")); v != 2 {
		t.Errorf("failed deletes = %v, want 2", v)
	}
	if v := counterValue(m.BytesIngested); v != 1024 {
		t.Errorf("bytes = %v, want 1024", v)
	}
}

func TestNewIngestMetrics_Gather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIngestMetrics(reg)
	m.ObserveTransition(eivu.EventComplete, eivu.ResultOK, time.Millisecond)
	m.FoldersCreated(1)
	m.RemoteDelete(eivu.ResultOK)
	m.RecordUpload(1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"eivu_ingest_transitions_total",
		"eivu_ingest_transition_duration_seconds",
		"eivu_folders_created_total",
		"eivu_remote_deletes_total",
		"eivu_ingest_bytes_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}
