package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewConfirmationMetrics(t *testing.T) {
	m := newConfirmationMetricsWithRegisterer(prometheus.NewRegistry())

	if m == nil {
		t.Fatal("newConfirmationMetricsWithRegisterer should not return nil")
	}
	if m.confirmStarted == nil {
		t.Error("confirmStarted counter should not be nil")
	}
	if m.confirmFullyDone == nil {
		t.Error("confirmFullyDone counter should not be nil")
	}
	if m.confirmPartial == nil {
		t.Error("confirmPartial counter should not be nil")
	}
	if m.confirmCancelled == nil {
		t.Error("confirmCancelled counter should not be nil")
	}
	if m.confirmRejected == nil {
		t.Error("confirmRejected counter should not be nil")
	}
	if m.confirmFailed == nil {
		t.Error("confirmFailed counter should not be nil")
	}
	if m.refundInstructions == nil {
		t.Error("refundInstructions counter should not be nil")
	}
	if m.confirmDuration == nil {
		t.Error("confirmDuration histogram should not be nil")
	}
	if m.refundAmount == nil {
		t.Error("refundAmount histogram should not be nil")
	}
}

func TestConfirmationMetrics_DoubleRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newConfirmationMetricsWithRegisterer(reg)
	second := newConfirmationMetricsWithRegisterer(reg)

	first.RecordStarted()
	second.RecordStarted()

	if got := testutil.ToFloat64(first.confirmStarted); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestConfirmationMetrics_Counters(t *testing.T) {
	m := newConfirmationMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordStarted()
	m.RecordConfirmed()
	m.RecordPartial()
	m.RecordCancelled()
	m.RecordRejected()
	m.RecordFailed()
	m.RecordRefundInstruction(5)
	m.RecordTimelineEvent()
	m.RecordOutboxEvent()
	m.RecordDuration(25 * time.Millisecond)

	cases := []struct {
		name    string
		counter prometheus.Counter
		want    float64
	}{
		{"started", m.confirmStarted, 1},
		{"confirmed", m.confirmFullyDone, 1},
		{"partial", m.confirmPartial, 1},
		{"cancelled", m.confirmCancelled, 1},
		{"rejected", m.confirmRejected, 1},
		{"failed", m.confirmFailed, 1},
		{"refunds", m.refundInstructions, 1},
		{"timeline", m.timelineEvents, 1},
		{"outbox", m.outboxEvents, 1},
	}

	for _, tc := range cases {
		if got := testutil.ToFloat64(tc.counter); got != tc.want {
			t.Errorf("%s counter = %v, want %v", tc.name, got, tc.want)
		}
	}
}
