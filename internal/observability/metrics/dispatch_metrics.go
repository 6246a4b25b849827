package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	ServiceName string
	Environment string
}

// DispatchMetrics captures reward dispatch health signals.
type DispatchMetrics struct {
	sweeps        prometheus.Counter
	sweepDuration prometheus.Observer
	issued        prometheus.Counter
	failures      prometheus.Counter
	exhausted     prometheus.Counter
	runLoopLag    prometheus.Observer
}

var (
	dispatchMetricsOnce sync.Once
	dispatchMetrics     *DispatchMetrics
)

// Dispatch returns the singleton dispatch metrics registry.
func Dispatch() *DispatchMetrics {
	return DispatchWithConfig(Config{})
}

// DispatchWithConfig returns the singleton dispatch metrics registry using config labels.
func DispatchWithConfig(cfg Config) *DispatchMetrics {
	dispatchMetricsOnce.Do(func() {
		dispatchMetrics = newDispatchMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return dispatchMetrics
}

// ResetDispatchMetricsForTest resets the dispatch metrics singleton for tests.
func ResetDispatchMetricsForTest() {
	dispatchMetricsOnce = sync.Once{}
	dispatchMetrics = nil
}

func newDispatchMetrics(registerer prometheus.Registerer, cfg Config) *DispatchMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "cashback"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	sweeps := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "cashback_dispatch_sweeps_total",
		Help:        "Dispatch sweeps executed (scheduled or manual).",
		ConstLabels: constLabels,
	})
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "cashback_dispatch_sweep_duration_seconds",
		Help:        "Dispatch sweep latency including external platform calls.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	issued := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "cashback_rewards_issued_total",
		Help:        "Rewards successfully issued and notified.",
		ConstLabels: constLabels,
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "cashback_reward_failures_total",
		Help:        "Reward issuance attempts recorded as retryable failures.",
		ConstLabels: constLabels,
	})
	exhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "cashback_rewards_exhausted_total",
		Help:        "Rewards that reached the attempt limit and left the sweep rotation.",
		ConstLabels: constLabels,
	})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "cashback_dispatch_runloop_lag_seconds",
		Help:        "Dispatch run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(sweeps, sweepDuration, issued, failures, exhausted, runLoopLag)

	return &DispatchMetrics{
		sweeps:        sweeps,
		sweepDuration: sweepDuration,
		issued:        issued,
		failures:      failures,
		exhausted:     exhausted,
		runLoopLag:    runLoopLag,
	}
}

func (m *DispatchMetrics) IncSweep() {
	if m == nil {
		return
	}
	m.sweeps.Inc()
}

func (m *DispatchMetrics) ObserveSweepDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *DispatchMetrics) IncIssued() {
	if m == nil {
		return
	}
	m.issued.Inc()
}

func (m *DispatchMetrics) IncFailed() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *DispatchMetrics) IncExhausted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.exhausted.Add(float64(n))
}

func (m *DispatchMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil {
		return
	}
	m.runLoopLag.Observe(d.Seconds())
}
