package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/localcluster"
	"github.com/a-h/localcluster/metrics"
	"github.com/a-h/localcluster/natsresults"
	"github.com/a-h/localcluster/resultcsv"
	"github.com/a-h/localcluster/sbm"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SBMCompareCommand struct {
	Dir          string  `help:"Directory containing the generated graphs." default:"sbm"`
	Results      string  `help:"Directory to write results.csv and aggregate_results.csv to, defaults to the graph directory."`
	Ks           []int   `help:"Numbers of clusters, defaults to 10 to 10000."`
	ClusterSize  int     `help:"Number of vertices in each cluster, as generated." default:"1000"`
	Trials       int     `help:"Number of clusters to find in each graph." default:"10"`
	TargetVolume float64 `help:"Target volume of each cluster." default:"20000"`
	Seed         uint64  `help:"Random seed, 0 for a random seed." default:"0"`

	NatsURL      string `help:"NATS server URL to publish results to, results are not published if empty."`
	NatsUser     string `help:"NATS username." env:"NATS_USER"`
	NatsPassword string `help:"NATS password." env:"NATS_PASS"`
	NatsSubject  string `help:"NATS subject prefix for published results." default:"localcluster"`

	MetricsAddr string `help:"Address to serve Prometheus metrics on while comparing, e.g. :9090."`
}

func (c *SBMCompareCommand) Run(ctx context.Context, g GlobalFlags) error {
	runID := uuid.NewString()
	log := slog.Default().With(slog.String("runId", runID))

	resultsDir := c.Results
	if resultsDir == "" {
		resultsDir = c.Dir
	}
	csvWriter, err := resultcsv.Create(resultsDir)
	if err != nil {
		return err
	}
	defer csvWriter.Close()
	sinks := localcluster.MultiSink{csvWriter}

	store, err := g.ResultStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	if store != nil {
		if err = store.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		sinks = append(sinks, store)
	}

	if c.NatsURL != "" {
		opts := []nats.Option{nats.Name("localcluster")}
		if c.NatsUser != "" && c.NatsPassword != "" {
			opts = append(opts, nats.UserInfo(c.NatsUser, c.NatsPassword))
		}
		nc, err := nats.Connect(c.NatsURL, opts...)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
		log.Info("Connected to NATS", slog.String("url", c.NatsURL))
		publisher, err := natsresults.New(nc, natsresults.Config{
			SubjectPrefix: c.NatsSubject,
			Logger:        log,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, publisher)
	}

	if c.MetricsAddr != "" {
		reg := metrics.NewRegistry()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
		server := &http.Server{Addr: c.MetricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", slog.String("error", err.Error()))
			}
		}()
		defer server.Shutdown(context.Background())
		log.Info("Serving metrics", slog.String("addr", c.MetricsAddr))
		sinks = append(sinks, reg)
	}

	aggregates, err := sbm.Compare(ctx, sbm.CompareConfig{
		Dir:          c.Dir,
		Ks:           c.Ks,
		ClusterSize:  c.ClusterSize,
		Trials:       c.Trials,
		TargetVolume: c.TargetVolume,
		Sink:         sinks,
		RunID:        runID,
		Rand:         newRand(c.Seed),
		Logger:       log,
	})
	if err != nil {
		return err
	}
	log.Info("Comparison complete", slog.Int("graphs", len(aggregates)))
	return csvWriter.Close()
}
