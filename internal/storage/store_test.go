package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/fluidsim/internal/sim"
)

func testSeries() *sim.Series {
	return &sim.Series{
		Names: []string{"kinetic_energy", "max_speed"},
		Steps: []int{1, 2},
		Rows: [][]float64{
			{1.5, 0.1},
			{2.25, 0.125},
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Input:      "data/small.fld",
		Output:     "out.fld",
		Steps:      2,
		StepsTaken: 2,
		PPM:        204,
		Particles:  4800,
		Metrics:    map[string]float64{"kinetic_energy": 1.875},
	}

	runID, err := st.Save(meta, testSeries())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.ID != runID {
		t.Errorf("expected id '%s', got '%s'", runID, loaded.ID)
	}
	if loaded.Input != "data/small.fld" {
		t.Errorf("expected input 'data/small.fld', got '%s'", loaded.Input)
	}
	if loaded.Particles != 4800 {
		t.Errorf("expected 4800 particles, got %d", loaded.Particles)
	}
	if loaded.Metrics["kinetic_energy"] != 1.875 {
		t.Errorf("expected kinetic energy 1.875, got %f", loaded.Metrics["kinetic_energy"])
	}
	if loaded.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}

	if series.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", series.Len())
	}
	if got := series.Column("kinetic_energy"); len(got) != 2 || got[1] != 2.25 {
		t.Errorf("expected kinetic energy column [1.5 2.25], got %v", got)
	}
	if series.Steps[1] != 2 {
		t.Errorf("expected step 2, got %d", series.Steps[1])
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	older := RunMetadata{ID: "b", Timestamp: time.Unix(100, 0)}
	newer := RunMetadata{ID: "a", Timestamp: time.Unix(200, 0)}
	for _, meta := range []RunMetadata{newer, older} {
		if _, err := st.Save(meta, nil); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "b" || runs[1].ID != "a" {
		t.Errorf("expected runs ordered by time, got %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Input: "in.fld"}, testSeries())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "steps.csv")); os.IsNotExist(err) {
		t.Error("steps.csv not created")
	}

	emptyID, err := st.Save(RunMetadata{ID: "empty"}, &sim.Series{})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, emptyID, "steps.csv")); !os.IsNotExist(err) {
		t.Error("steps.csv should not be created for an empty series")
	}

	series, err := st.LoadSeries(emptyID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	if series.Len() != 0 {
		t.Errorf("expected empty series, got %d rows", series.Len())
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	meta := RunMetadata{ID: "run_1", Steps: 2}

	if err := ExportJSON(&buf, meta, testSeries()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Run.ID != "run_1" {
		t.Errorf("expected id run_1, got %s", got.Run.ID)
	}
	if len(got.Series.Rows) != 2 || got.Series.Rows[1][0] != 2.25 {
		t.Errorf("unexpected series %+v", got.Series)
	}
}

func TestStoreDelete(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	id, err := st.Save(RunMetadata{Input: "small.fld"}, testSeries())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := st.Delete(id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := st.Load(id); !os.IsNotExist(err) {
		t.Errorf("expected run to be gone, got %v", err)
	}
	if err := st.Delete(id); err == nil {
		t.Error("expected error deleting unknown run")
	}
}
