package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AdjusterMetrics содержит метрики обработки webhook-заказов и корректировок веса.
type AdjusterMetrics struct {
	webhooks *prometheus.CounterVec

	submissions    *prometheus.CounterVec
	submitDuration prometheus.Histogram

	orderWeight prometheus.Histogram

	asyncInFlight prometheus.Gauge
}

// NewAdjusterMetrics создаёт метрики в DefaultRegisterer.
func NewAdjusterMetrics() *AdjusterMetrics {
	return NewAdjusterMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewAdjusterMetricsWithRegisterer создаёт метрики в указанном registerer (нужно для изолированных тестов).
func NewAdjusterMetricsWithRegisterer(registerer prometheus.Registerer) *AdjusterMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &AdjusterMetrics{
		webhooks: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "weight_adjuster_webhooks_total",
			Help: "Total number of order webhooks processed grouped by outcome",
		}, []string{"outcome"}),
		submissions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "weight_adjuster_fulfillment_submissions_total",
			Help: "Total number of fulfillment correction submissions grouped by result",
		}, []string{"result"}),
		submitDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "weight_adjuster_fulfillment_submit_duration_seconds",
			Help:    "Duration of fulfillment correction calls to the commerce platform",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		orderWeight: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "weight_adjuster_order_weight_grams",
			Help:    "Total weight of orders shipped with the tracked carrier",
			Buckets: []float64{50, 100, 200, 300, 453.6, 1000, 2500, 5000, 10000},
		}),
		asyncInFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "weight_adjuster_async_submissions_in_flight",
			Help: "Number of fulfillment corrections submitted in background and not finished yet",
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
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

// RecordWebhook увеличивает счётчик обработанных webhook по итогу.
func (m *AdjusterMetrics) RecordWebhook(outcome string) {
	m.webhooks.WithLabelValues(outcome).Inc()
}

// RecordOrderWeight записывает суммарный вес заказа с отслеживаемым перевозчиком.
func (m *AdjusterMetrics) RecordOrderWeight(grams float64) {
	m.orderWeight.Observe(grams)
}

// RecordSubmission фиксирует результат и длительность отправки корректировки.
func (m *AdjusterMetrics) RecordSubmission(succeeded bool, duration time.Duration) {
	result := "success"
	if !succeeded {
		result = "failure"
	}
	m.submissions.WithLabelValues(result).Inc()
	m.submitDuration.Observe(duration.Seconds())
}

// RecordAsyncStarted увеличивает количество фоновых отправок.
func (m *AdjusterMetrics) RecordAsyncStarted() {
	m.asyncInFlight.Inc()
}

// RecordAsyncFinished уменьшает количество фоновых отправок.
func (m *AdjusterMetrics) RecordAsyncFinished() {
	m.asyncInFlight.Dec()
}
