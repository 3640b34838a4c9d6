package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/appetiteclub/tableside/services/ordering/internal/rush"
)

const namespace = "tableside"

// Recorder owns the service collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	rushMode         prometheus.Gauge
	cumulativePrep   prometheus.Gauge
	ordersInProgress prometheus.Gauge
	rushChanges      prometheus.Counter
	submissions      *prometheus.CounterVec
	orderValue       *prometheus.HistogramVec
	orderPrep        *prometheus.HistogramVec
	openTables       prometheus.Gauge
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		rushMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rush_mode",
			Help:      "1 while the kitchen is in rush mode",
		}),
		cumulativePrep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cumulative_prep_minutes",
			Help:      "Preparation minutes accumulated since the last reset",
		}),
		ordersInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orders_in_progress",
			Help:      "Estimated orders being prepared",
		}),
		rushChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rush_mode_changes_total",
			Help:      "Rush mode flips",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Order submissions by scope and result",
		}, []string{"scope", "result"}),
		orderValue: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_price",
			Help:      "Total price of accepted orders",
			Buckets:   prometheus.LinearBuckets(10, 20, 10),
		}, []string{"scope"}),
		orderPrep: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_prep_minutes",
			Help:      "Preparation minutes of accepted orders",
			Buckets:   prometheus.LinearBuckets(0, 15, 10),
		}, []string{"scope"}),
		openTables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_tables",
			Help:      "Table sessions currently open",
		}),
	}

	registry.MustRegister(
		r.rushMode,
		r.cumulativePrep,
		r.ordersInProgress,
		r.rushChanges,
		r.submissions,
		r.orderValue,
		r.orderPrep,
		r.openTables,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveSubmission counts a submission. Amounts are only recorded for
// accepted orders.
func (r *Recorder) ObserveSubmission(scope string, success bool, total float64, prepMinutes int) {
	result := "failure"
	if success {
		result = "success"
	}
	r.submissions.WithLabelValues(scope, result).Inc()
	if !success {
		return
	}
	r.orderValue.WithLabelValues(scope).Observe(total)
	r.orderPrep.WithLabelValues(scope).Observe(float64(prepMinutes))
}

// ObserveRush is a rush.Listener.
func (r *Recorder) ObserveRush(_ context.Context, prev, next rush.Status) {
	r.SetRushStatus(next)
	if prev.IsRushMode != next.IsRushMode {
		r.rushChanges.Inc()
	}
}

func (r *Recorder) SetRushStatus(st rush.Status) {
	if st.IsRushMode {
		r.rushMode.Set(1)
	} else {
		r.rushMode.Set(0)
	}
	r.cumulativePrep.Set(float64(st.CumulativePrepMinutes))
	r.ordersInProgress.Set(float64(st.OrdersInProgress))
}

func (r *Recorder) SetOpenTables(n int) {
	r.openTables.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
