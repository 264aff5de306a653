// Package metrics exposes experiment results as Prometheus metrics.
package metrics

import (
	"context"
	"strconv"

	"github.com/a-h/localcluster"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is a localcluster.Sink that records each trial and aggregate.
type Registry struct {
	TrialsTotal         *prometheus.CounterVec
	TrialDuration       *prometheus.HistogramVec
	ClusterSize         *prometheus.HistogramVec
	SymmetricDifference *prometheus.HistogramVec
	AggregateDuration   *prometheus.GaugeVec

	registry *prometheus.Registry
}

var _ localcluster.Sink = (*Registry)(nil)

// Graph labels the graph representation a measurement was taken with.
const (
	GraphDisk   = "disk"
	GraphMemory = "memory"
)

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	graphLabels := []string{"graph"}
	return &Registry{
		TrialsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "localcluster_trials_total",
				Help: "Total number of trials run",
			},
			[]string{"k"},
		),
		TrialDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "localcluster_trial_duration_seconds",
				Help:    "Time taken to load the graph and find a cluster",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 60.0},
			},
			graphLabels,
		),
		ClusterSize: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "localcluster_cluster_size",
				Help:    "Number of vertices in each cluster found",
				Buckets: []float64{10, 100, 500, 1000, 2000, 10000},
			},
			graphLabels,
		),
		SymmetricDifference: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "localcluster_symmetric_difference",
				Help:    "Symmetric difference between each cluster and its ground truth",
				Buckets: []float64{0, 1, 10, 100, 1000},
			},
			graphLabels,
		),
		AggregateDuration: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "localcluster_mean_trial_duration_seconds",
				Help: "Mean trial duration for the graph with k clusters",
			},
			[]string{"k", "graph"},
		),
		registry: reg,
	}
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

func (r *Registry) PutTrial(ctx context.Context, t localcluster.Trial) error {
	r.TrialsTotal.WithLabelValues(strconv.Itoa(t.K)).Inc()
	r.observe(GraphDisk, t.Disk)
	r.observe(GraphMemory, t.Mem)
	return nil
}

func (r *Registry) observe(graph string, m localcluster.Measurement) {
	r.TrialDuration.WithLabelValues(graph).Observe(seconds(m.TimeMillis))
	r.ClusterSize.WithLabelValues(graph).Observe(float64(m.ClusterSize))
	r.SymmetricDifference.WithLabelValues(graph).Observe(float64(m.SymmetricDifference))
}

func (r *Registry) PutAggregate(ctx context.Context, a localcluster.Aggregate) error {
	k := strconv.Itoa(a.K)
	r.AggregateDuration.WithLabelValues(k, GraphDisk).Set(seconds(a.Disk.TimeMillis))
	r.AggregateDuration.WithLabelValues(k, GraphMemory).Set(seconds(a.Mem.TimeMillis))
	return nil
}

func seconds(millis int64) float64 {
	return float64(millis) / 1000
}
