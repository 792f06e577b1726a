package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/fluidsim/internal/sim"
)

type ExportData struct {
	Run    RunMetadata  `json:"run"`
	Series ExportSeries `json:"series"`
}

type ExportSeries struct {
	Names []string    `json:"names"`
	Steps []int       `json:"steps"`
	Rows  [][]float64 `json:"rows"`
}

// ExportJSON writes the run metadata and its per-step series to w.
func ExportJSON(w io.Writer, meta RunMetadata, series *sim.Series) error {
	data := ExportData{Run: meta}
	if series != nil {
		data.Series = ExportSeries{
			Names: series.Names,
			Steps: series.Steps,
			Rows:  series.Rows,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSONFile(path string, meta RunMetadata, series *sim.Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return ExportJSON(file, meta, series)
}
