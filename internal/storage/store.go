package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"time"

	"go.uber.org/multierr"
	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/san-kum/sandpile/internal/analysis"
	"github.com/san-kum/sandpile/internal/sim"
	"github.com/san-kum/sandpile/internal/view"
)

const (
	metadataFile  = "metadata.json"
	statsFile     = "stats.csv"
	histogramFile = "avalanches.csv"
	snapshotFile  = "snapshot.json"
)

var ErrNoRuns = errors.New("storage: no saved runs")

// Store keeps one directory per run on a billy filesystem.
type Store struct {
	fs billy.Filesystem
}

func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Size        int                `json:"size"`
	Order       string             `json:"order"`
	Seed        int64              `json:"seed"`
	Palette     string             `json:"palette"`
	Period      time.Duration      `json:"period"`
	Duration    time.Duration      `json:"duration"`
	Iterations  int64              `json:"iterations"`
	TotalGrains int64              `json:"total_grains"`
	Metrics     map[string]float64 `json:"metrics"`
	Tau         float64            `json:"tau,omitempty"`
	TauR2       float64            `json:"tau_r2,omitempty"`
}

// Run is everything persisted for one headless run. Stats, Histogram and
// Snapshot are optional.
type Run struct {
	Meta      RunMetadata
	Stats     []sim.Stats
	Histogram []analysis.Bin
	Snapshot  *view.Snapshot
}

// Save writes run into a fresh directory and returns its id. Each file is
// written to a .partial sibling and renamed into place.
func (s *Store) Save(run Run) (string, error) {
	meta := run.Meta
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	id, err := s.newID(fmt.Sprintf("sandpile_%d_%d", meta.Size, meta.Timestamp.Unix()))
	if err != nil {
		return "", err
	}
	meta.ID = id

	if err := s.fs.MkdirAll(id, 0755); err != nil {
		return "", fmt.Errorf("run %s: %w", id, err)
	}

	if err := s.writeFile(path.Join(id, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", fmt.Errorf("run %s: %w", id, err)
	}

	if len(run.Stats) > 0 {
		if err := s.writeFile(path.Join(id, statsFile), func(w io.Writer) error {
			return writeStats(w, run.Stats)
		}); err != nil {
			return "", fmt.Errorf("run %s: %w", id, err)
		}
	}

	if len(run.Histogram) > 0 {
		if err := s.writeFile(path.Join(id, histogramFile), func(w io.Writer) error {
			return writeHistogram(w, run.Histogram)
		}); err != nil {
			return "", fmt.Errorf("run %s: %w", id, err)
		}
	}

	if run.Snapshot != nil {
		if err := s.writeFile(path.Join(id, snapshotFile), func(w io.Writer) error {
			return json.NewEncoder(w).Encode(run.Snapshot)
		}); err != nil {
			return "", fmt.Errorf("run %s: %w", id, err)
		}
	}

	return id, nil
}

func (s *Store) newID(base string) (string, error) {
	id := base
	for n := 2; ; n++ {
		_, err := s.fs.Stat(id)
		if os.IsNotExist(err) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

func (s *Store) writeFile(name string, write func(w io.Writer) error) error {
	temp := name + ".partial"
	f, err := s.fs.OpenFile(temp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		err = multierr.Append(err, f.Close())
		return multierr.Append(err, s.fs.Remove(temp))
	}
	if err := f.Close(); err != nil {
		return multierr.Append(err, s.fs.Remove(temp))
	}
	return s.fs.Rename(temp, name)
}

func (s *Store) readFile(name string, read func(r io.Reader) error) (err error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return read(f)
}

// List returns the metadata of every readable run, oldest first. A missing
// data directory holds no runs.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := s.fs.ReadDir(".")
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

// Latest returns the id of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[len(runs)-1].ID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	var meta RunMetadata
	err := s.readFile(path.Join(runID, metadataFile), func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&meta)
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadStats(runID string) ([]sim.Stats, error) {
	var stats []sim.Stats
	err := s.readFile(path.Join(runID, statsFile), func(r io.Reader) error {
		var err error
		stats, err = readStats(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return stats, nil
}

func (s *Store) LoadHistogram(runID string) ([]analysis.Bin, error) {
	var bins []analysis.Bin
	err := s.readFile(path.Join(runID, histogramFile), func(r io.Reader) error {
		var err error
		bins, err = readHistogram(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return bins, nil
}

func (s *Store) LoadSnapshot(runID string) (*view.Snapshot, error) {
	var snap view.Snapshot
	err := s.readFile(path.Join(runID, snapshotFile), func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&snap)
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(snap.Blocks) != snap.BlocksX*snap.BlocksY {
		return nil, fmt.Errorf("run %s: snapshot has %d blocks, want %dx%d",
			runID, len(snap.Blocks), snap.BlocksX, snap.BlocksY)
	}
	return &snap, nil
}

var statsHeader = []string{
	"iteration", "injected", "topples", "max_avalanche", "lost", "total_grains", "rendered", "elapsed_us",
}

func writeStats(w io.Writer, rows []sim.Stats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(statsHeader); err != nil {
		return err
	}
	for _, s := range rows {
		record := []string{
			strconv.FormatInt(s.Iteration, 10),
			strconv.Itoa(s.Injected),
			strconv.Itoa(s.Topples),
			strconv.Itoa(s.MaxAvalanche),
			strconv.FormatInt(s.Lost, 10),
			strconv.FormatInt(s.TotalGrains, 10),
			strconv.FormatBool(s.Rendered),
			strconv.FormatInt(s.Elapsed.Microseconds(), 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readStats(r io.Reader) ([]sim.Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(statsHeader)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Stats{}, nil
	}

	rows := make([]sim.Stats, 0, len(records)-1)
	for _, rec := range records[1:] {
		var s sim.Stats
		var elapsed int64
		var errs error
		s.Iteration, err = strconv.ParseInt(rec[0], 10, 64)
		errs = multierr.Append(errs, err)
		s.Injected, err = strconv.Atoi(rec[1])
		errs = multierr.Append(errs, err)
		s.Topples, err = strconv.Atoi(rec[2])
		errs = multierr.Append(errs, err)
		s.MaxAvalanche, err = strconv.Atoi(rec[3])
		errs = multierr.Append(errs, err)
		s.Lost, err = strconv.ParseInt(rec[4], 10, 64)
		errs = multierr.Append(errs, err)
		s.TotalGrains, err = strconv.ParseInt(rec[5], 10, 64)
		errs = multierr.Append(errs, err)
		s.Rendered, err = strconv.ParseBool(rec[6])
		errs = multierr.Append(errs, err)
		elapsed, err = strconv.ParseInt(rec[7], 10, 64)
		errs = multierr.Append(errs, err)
		if errs != nil {
			return nil, errs
		}
		s.Elapsed = time.Duration(elapsed) * time.Microsecond
		rows = append(rows, s)
	}
	return rows, nil
}

func writeHistogram(w io.Writer, bins []analysis.Bin) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"lo", "hi", "count"}); err != nil {
		return err
	}
	for _, b := range bins {
		if err := cw.Write([]string{
			strconv.FormatInt(b.Lo, 10),
			strconv.FormatInt(b.Hi, 10),
			strconv.FormatInt(b.Count, 10),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readHistogram(r io.Reader) ([]analysis.Bin, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []analysis.Bin{}, nil
	}

	bins := make([]analysis.Bin, 0, len(records)-1)
	for _, rec := range records[1:] {
		var b analysis.Bin
		var errs error
		b.Lo, err = strconv.ParseInt(rec[0], 10, 64)
		errs = multierr.Append(errs, err)
		b.Hi, err = strconv.ParseInt(rec[1], 10, 64)
		errs = multierr.Append(errs, err)
		b.Count, err = strconv.ParseInt(rec[2], 10, 64)
		errs = multierr.Append(errs, err)
		if errs != nil {
			return nil, errs
		}
		bins = append(bins, b)
	}
	return bins, nil
}
