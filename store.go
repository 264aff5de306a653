package localcluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Measurement is the outcome of clustering once.
type Measurement struct {
	// TimeMillis is the wall clock time taken to load the graph and find the cluster.
	TimeMillis int64 `json:"time"`
	// ClusterSize is the number of vertices returned.
	ClusterSize int64 `json:"size"`
	// SymmetricDifference is the distance to the ground truth cluster.
	SymmetricDifference int64 `json:"symdiff"`
}

// Trial is one on-disk vs in-memory comparison.
type Trial struct {
	RunID string      `json:"runId"`
	Seq   int         `json:"seq"`
	K     int         `json:"k"`
	Disk  Measurement `json:"disk"`
	Mem   Measurement `json:"mem"`
}

// Aggregate is the mean of all trials for a graph with K clusters.
type Aggregate struct {
	RunID string      `json:"runId"`
	K     int         `json:"k"`
	Disk  Measurement `json:"disk"`
	Mem   Measurement `json:"mem"`
}

// Run describes a set of results written together.
type Run struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
}

// ErrNoTrials is returned when aggregating an empty set of trials.
var ErrNoTrials = errors.New("no trials to aggregate")

// AggregateOf returns the integer mean of each measurement across trials.
// All trials must share the same run and K.
func AggregateOf(trials []Trial) (Aggregate, error) {
	if len(trials) == 0 {
		return Aggregate{}, ErrNoTrials
	}
	agg := Aggregate{RunID: trials[0].RunID, K: trials[0].K}
	disk := make([]Measurement, len(trials))
	mem := make([]Measurement, len(trials))
	for i, t := range trials {
		if t.RunID != agg.RunID || t.K != agg.K {
			return Aggregate{}, fmt.Errorf("aggregate: trial %d is for run %q k=%d, expected run %q k=%d", t.Seq, t.RunID, t.K, agg.RunID, agg.K)
		}
		disk[i], mem[i] = t.Disk, t.Mem
	}
	agg.Disk = meanOf(disk)
	agg.Mem = meanOf(mem)
	return agg, nil
}

func meanOf(ms []Measurement) Measurement {
	times := make([]float64, len(ms))
	sizes := make([]float64, len(ms))
	diffs := make([]float64, len(ms))
	for i, m := range ms {
		times[i] = float64(m.TimeMillis)
		sizes[i] = float64(m.ClusterSize)
		diffs[i] = float64(m.SymmetricDifference)
	}
	// Truncate, to match integer division of the totals.
	return Measurement{
		TimeMillis:          int64(stat.Mean(times, nil)),
		ClusterSize:         int64(stat.Mean(sizes, nil)),
		SymmetricDifference: int64(stat.Mean(diffs, nil)),
	}
}

// Sink receives experiment results as they are produced.
type Sink interface {
	PutTrial(ctx context.Context, t Trial) error
	PutAggregate(ctx context.Context, a Aggregate) error
}

// MultiSink writes to every sink in order, stopping at the first error.
type MultiSink []Sink

func (ms MultiSink) PutTrial(ctx context.Context, t Trial) error {
	for _, s := range ms {
		if err := s.PutTrial(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (ms MultiSink) PutAggregate(ctx context.Context, a Aggregate) error {
	for _, s := range ms {
		if err := s.PutAggregate(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Store persists experiment results.
type Store interface {
	Sink
	// Init initializes the store. It should be called before any other method, and creates the necessary tables.
	Init(ctx context.Context) error
	// Trials returns the trials of a run, ordered by sequence number.
	Trials(ctx context.Context, runID string) ([]Trial, error)
	// Aggregates returns the aggregates of a run, ordered by K.
	Aggregates(ctx context.Context, runID string) ([]Aggregate, error)
	// LatestRun returns the most recently created run. If the store is empty, it returns ok=false.
	LatestRun(ctx context.Context) (r Run, ok bool, err error)
	// SetNow sets the function to use for getting the current time. This is used for testing purposes.
	SetNow(now func() time.Time)
}
