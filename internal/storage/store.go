package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/fluidsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "steps.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID              string             `json:"id"`
	Input           string             `json:"input"`
	Output          string             `json:"output"`
	Preset          string             `json:"preset,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
	Steps           int                `json:"steps"`
	StepsTaken      int                `json:"steps_taken"`
	PPM             float64            `json:"ppm"`
	Particles       int                `json:"particles"`
	Rebucket        bool               `json:"rebucket"`
	SelfInteraction bool               `json:"self_interaction"`
	ElapsedSeconds  float64            `json:"elapsed_seconds"`
	Metrics         map[string]float64 `json:"metrics"`
	Errors          []string           `json:"errors,omitempty"`
}

func runName(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "run"
	}
	return base
}

// Save writes a run directory holding metadata.json and, when the series is
// not empty, steps.csv. An empty ID or timestamp is filled in.
func (s *Store) Save(meta RunMetadata, series *sim.Series) (string, error) {
	now := time.Now()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = now
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", runName(meta.Input), now.UnixNano())
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if series == nil || series.Len() == 0 {
		return meta.ID, nil
	}

	csvFile, err := os.Create(filepath.Join(runDir, seriesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)

	header := append([]string{"step"}, series.Names...)
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i, vals := range series.Rows {
		row := make([]string, 0, len(vals)+1)
		row = append(row, strconv.Itoa(series.Steps[i]))
		for _, val := range vals {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// List returns the metadata of every stored run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
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

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSeries reads the per-step diagnostics of a run. A run without
// steps.csv yields an empty series.
func (s *Store) LoadSeries(runID string) (*sim.Series, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &sim.Series{}, nil
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	series := &sim.Series{}
	if len(records) == 0 {
		return series, nil
	}
	series.Names = append(series.Names, records[0][1:]...)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		step, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}

		row := make([]float64, len(series.Names))
		for j := 1; j < len(record) && j <= len(row); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			row[j-1] = val
		}
		series.Steps = append(series.Steps, step)
		series.Rows = append(series.Rows, row)
	}

	return series, nil
}

// Delete removes a run directory. Deleting an unknown run is an error.
func (s *Store) Delete(runID string) error {
	dir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
