package metrics

import (
	"net/http"

	"github.com/alejandrodnm/derivbot/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "derivbot_iterations_total", Help: "Completed iterations by stop reason"},
		[]string{"reason"},
	)
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "derivbot_retries_total", Help: "Retried page operations"},
		[]string{"op"},
	)
	ProfitLossGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "derivbot_profit_loss", Help: "Last polled total profit/loss"},
	)
	RunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "derivbot_run_seconds",
			Help:    "Time from run click to stop condition",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(IterationsTotal, RetriesTotal, ProfitLossGauge, RunSeconds)
}

// Prometheus implementa ports.Metrics sobre los colectores globales.
type Prometheus struct{}

func (Prometheus) IterationDone(reason domain.StopReason, runSeconds float64) {
	IterationsTotal.WithLabelValues(string(reason)).Inc()
	RunSeconds.Observe(runSeconds)
}

func (Prometheus) ProfitLoss(value float64) {
	ProfitLossGauge.Set(value)
}

func (Prometheus) Retry(op string) {
	RetriesTotal.WithLabelValues(op).Inc()
}

// Serve expone /metrics en addr en segundo plano.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
