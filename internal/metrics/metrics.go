package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hungkimanh/gatest/internal/cvrp"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolverRuns counts finished runs by instance and feasibility of the best individual
	SolverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_runs_total", Help: "Finished solver runs."},
		[]string{"instance", "feasible"},
	)
	// SolverDuration tracks population construction plus selection time in seconds
	SolverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solver_run_duration_seconds", Help: "Solver run duration in seconds.", Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10}},
		[]string{"instance"},
	)
	// BestCost is the cost of the best individual of the latest run
	BestCost = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "solver_best_cost", Help: "Best individual cost of the latest run."},
		[]string{"instance"},
	)
	// FeasibleRatio is the share of feasible individuals in the latest population
	FeasibleRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "solver_feasible_ratio", Help: "Feasible share of the latest population."},
		[]string{"instance"},
	)
	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
	// Repairs counts repair edits by kind
	Repairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_repairs_total", Help: "Repair edits applied to individuals."},
		[]string{"kind"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolverRuns)
		Registry.MustRegister(SolverDuration)
		Registry.MustRegister(BestCost)
		Registry.MustRegister(FeasibleRatio)
		Registry.MustRegister(Repairs)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, path string, status int, seconds float64) {
	code := strconv.Itoa(status)
	HTTPRequests.WithLabelValues(method, path, code).Inc()
	HTTPDuration.WithLabelValues(method, path, code).Observe(seconds)
}

// SolverObserver exports cvrp runs. It satisfies cvrp.Observer.
type SolverObserver struct{}

func (SolverObserver) ObserveRun(inst *cvrp.Instance, res *cvrp.Result) {
	name := inst.Name
	SolverRuns.WithLabelValues(name, strconv.FormatBool(res.Best.Feasible)).Inc()
	SolverDuration.WithLabelValues(name).Observe(res.Duration.Seconds())
	BestCost.WithLabelValues(name).Set(res.Best.Cost)
	if n := len(res.Best.Scores); n > 0 {
		FeasibleRatio.WithLabelValues(name).Set(float64(res.Best.FeasibleCount()) / float64(n))
	}
	Repairs.WithLabelValues("separator_removed").Add(float64(res.Repairs.SeparatorsRemoved))
	Repairs.WithLabelValues("separator_inserted").Add(float64(res.Repairs.SeparatorsInserted))
	Repairs.WithLabelValues("customer_replaced").Add(float64(res.Repairs.CustomersReplaced))
}
