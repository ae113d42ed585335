package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConfirmationMetrics содержит метрики обработки подтверждений заказов.
type ConfirmationMetrics struct {
	// Счётчики операций
	confirmStarted     prometheus.Counter
	confirmFullyDone   prometheus.Counter
	confirmPartial     prometheus.Counter
	confirmCancelled   prometheus.Counter
	confirmRejected    prometheus.Counter
	confirmFailed      prometheus.Counter
	refundInstructions prometheus.Counter

	// Гистограммы
	confirmDuration prometheus.Histogram
	refundAmount    prometheus.Histogram

	// Счётчики побочных событий
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewConfirmationMetrics создаёт новый экземпляр метрик подтверждения.
func NewConfirmationMetrics() *ConfirmationMetrics {
	return newConfirmationMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newConfirmationMetricsWithRegisterer(registerer prometheus.Registerer) *ConfirmationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ConfirmationMetrics{
		confirmStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "saveup_confirmations_started_total",
			Help: "Total number of order confirmation attempts started",
		}),
		confirmFullyDone: registerCounter(registerer, prometheus.CounterOpts{
			Name: "saveup_confirmations_confirmed_total",
			Help: "Total number of orders confirmed in full",
		}),
		confirmPartial: registerCounter(registerer, prometheus.CounterOpts{
			Name: "saveup_confirmations_partial_total",
			Help: "Total number of orders confirmed partially with a refund",
		}),
		confirmCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "saveup_confirmations_cancelled_total",
			Help: "Total number of orders cancelled by denying every item",
		}),
		confirmRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "saveup_confirmations_rejected_total",
			Help: "Total number of confirmation attempts rejected by validation",
		}),
		confirmFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "saveup_confirmations_failed_total",
			Help: "Total number of confirmation attempts failed after validation",
		}),
		refundInstructions: registerCounter(registerer, prometheus.CounterOpts{
			Name: "saveup_refund_instructions_total",
			Help: "Total number of refund instructions sent to the payment gateway",
		}),
		confirmDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "saveup_confirmation_duration_seconds",
			Help:    "Duration of order confirmation attempts in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		refundAmount: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "saveup_refund_amount",
			Help:    "Refund amounts issued for denied order items",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "saveup_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "saveup_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordStarted увеличивает счётчик начатых подтверждений.
func (m *ConfirmationMetrics) RecordStarted() {
	m.confirmStarted.Inc()
}

// RecordConfirmed увеличивает счётчик полностью подтверждённых заказов.
func (m *ConfirmationMetrics) RecordConfirmed() {
	m.confirmFullyDone.Inc()
}

// RecordPartial увеличивает счётчик частично подтверждённых заказов.
func (m *ConfirmationMetrics) RecordPartial() {
	m.confirmPartial.Inc()
}

// RecordCancelled увеличивает счётчик полностью отклонённых заказов.
func (m *ConfirmationMetrics) RecordCancelled() {
	m.confirmCancelled.Inc()
}

// RecordRejected увеличивает счётчик запросов, отклонённых валидацией.
func (m *ConfirmationMetrics) RecordRejected() {
	m.confirmRejected.Inc()
}

// RecordFailed увеличивает счётчик подтверждений, упавших после валидации.
func (m *ConfirmationMetrics) RecordFailed() {
	m.confirmFailed.Inc()
}

// RecordRefundInstruction фиксирует отправленную инструкцию возврата и её сумму.
func (m *ConfirmationMetrics) RecordRefundInstruction(amount float64) {
	m.refundInstructions.Inc()
	m.refundAmount.Observe(amount)
}

// RecordDuration записывает время обработки подтверждения.
func (m *ConfirmationMetrics) RecordDuration(duration time.Duration) {
	m.confirmDuration.Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *ConfirmationMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *ConfirmationMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
