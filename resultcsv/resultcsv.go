// Package resultcsv writes and reads experiment results as CSV.
package resultcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/a-h/localcluster"
)

const (
	TrialsFile     = "results.csv"
	AggregatesFile = "aggregate_results.csv"
)

var (
	measurementColumns = []string{"disk_time", "disk_size", "disk_symdiff", "mem_time", "mem_size", "mem_symdiff"}
	trialHeader        = append([]string{"id", "k"}, measurementColumns...)
	aggregateHeader    = append([]string{"k"}, measurementColumns...)
)

// Writer writes trials and aggregates as CSV rows, flushing after each one so
// that results survive an interrupted run.
type Writer struct {
	trials     *csv.Writer
	aggregates *csv.Writer
	closers    []io.Closer
}

// NewWriter writes the headers of both files.
func NewWriter(trials, aggregates io.Writer) (*Writer, error) {
	w := &Writer{trials: csv.NewWriter(trials), aggregates: csv.NewWriter(aggregates)}
	if err := write(w.trials, trialHeader); err != nil {
		return nil, err
	}
	if err := write(w.aggregates, aggregateHeader); err != nil {
		return nil, err
	}
	return w, nil
}

// Create creates results.csv and aggregate_results.csv in dir, replacing any
// existing files.
func Create(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("resultcsv: %w", err)
	}
	tf, err := os.Create(filepath.Join(dir, TrialsFile))
	if err != nil {
		return nil, fmt.Errorf("resultcsv: %w", err)
	}
	af, err := os.Create(filepath.Join(dir, AggregatesFile))
	if err != nil {
		tf.Close()
		return nil, fmt.Errorf("resultcsv: %w", err)
	}
	w, err := NewWriter(tf, af)
	if err != nil {
		tf.Close()
		af.Close()
		return nil, fmt.Errorf("resultcsv: %w", err)
	}
	w.closers = []io.Closer{tf, af}
	return w, nil
}

func write(w *csv.Writer, record []string) error {
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func measurementRecord(m localcluster.Measurement) []string {
	return []string{
		strconv.FormatInt(m.TimeMillis, 10),
		strconv.FormatInt(m.ClusterSize, 10),
		strconv.FormatInt(m.SymmetricDifference, 10),
	}
}

func (w *Writer) PutTrial(ctx context.Context, t localcluster.Trial) error {
	record := []string{strconv.Itoa(t.Seq), strconv.Itoa(t.K)}
	record = append(record, measurementRecord(t.Disk)...)
	record = append(record, measurementRecord(t.Mem)...)
	if err := write(w.trials, record); err != nil {
		return fmt.Errorf("resultcsv: write trial: %w", err)
	}
	return nil
}

func (w *Writer) PutAggregate(ctx context.Context, a localcluster.Aggregate) error {
	record := []string{strconv.Itoa(a.K)}
	record = append(record, measurementRecord(a.Disk)...)
	record = append(record, measurementRecord(a.Mem)...)
	if err := write(w.aggregates, record); err != nil {
		return fmt.Errorf("resultcsv: write: %w", err)
	}
	return nil
}

// Close closes the files opened by Create. Later calls do nothing.
func (w *Writer) Close() error {
	var errs []error
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	w.closers = nil
	return errors.Join(errs...)
}

// ReadAggregates reads aggregate results. Only the k, disk_time and mem_time
// columns are required. Header cells may be surrounded by spaces, as in
// "k, disk_time, mem_time".
func ReadAggregates(r io.Reader) ([]localcluster.Aggregate, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("resultcsv: missing header")
		}
		return nil, fmt.Errorf("resultcsv: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"k", "disk_time", "mem_time"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("resultcsv: missing column %q", required)
		}
	}

	var aggregates []localcluster.Aggregate
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("resultcsv: %w", err)
		}
		field := func(name string) (int64, error) {
			i, ok := columns[name]
			if !ok {
				return 0, nil
			}
			if i >= len(record) {
				return 0, fmt.Errorf("resultcsv: line %d: missing %s", line, name)
			}
			// Aggregates written by other tools may be means, e.g. "500.0".
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return 0, fmt.Errorf("resultcsv: line %d: invalid %s: %w", line, name, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("resultcsv: line %d: invalid %s: %q is not finite", line, name, record[i])
			}
			return int64(v), nil
		}
		values := make(map[string]int64, len(aggregateHeader))
		for _, name := range aggregateHeader {
			if values[name], err = field(name); err != nil {
				return nil, err
			}
		}
		aggregates = append(aggregates, localcluster.Aggregate{
			K: int(values["k"]),
			Disk: localcluster.Measurement{
				TimeMillis:          values["disk_time"],
				ClusterSize:         values["disk_size"],
				SymmetricDifference: values["disk_symdiff"],
			},
			Mem: localcluster.Measurement{
				TimeMillis:          values["mem_time"],
				ClusterSize:         values["mem_size"],
				SymmetricDifference: values["mem_symdiff"],
			},
		})
	}
	return aggregates, nil
}

// ReadAggregatesFile reads the aggregate results at path.
func ReadAggregatesFile(path string) ([]localcluster.Aggregate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("resultcsv: %w", err)
	}
	defer f.Close()
	return ReadAggregates(f)
}
