package results

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
)

// ExportData is the JSON layout for a saved run.
type ExportData struct {
	Model        string      `json:"model"`
	Species      []string    `json:"species"`
	Trajectories int         `json:"trajectories"`
	Times        []float64   `json:"times"`
	Counts       [][][]int32 `json:"counts"`
}

// ExportJSON writes the full trajectory array to path.
func ExportJSON(path string, r *SimulationResult) error {
	data := ExportData{
		Model:        r.Model.Name,
		Species:      r.Model.Species,
		Trajectories: r.NumTrajectories(),
		Times:        r.Tout,
		Counts:       r.Counts,
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes the counts in long format: one row per trajectory and
// timepoint, columns sim, time, then one per species.
func ExportCSV(path string, r *SimulationResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := append([]string{"sim", "time"}, r.Model.Species...)
	if err := w.Write(header); err != nil {
		return err
	}
	for s, traj := range r.Counts {
		for k, y := range traj {
			row := make([]string, 0, len(header))
			row = append(row, strconv.Itoa(s))
			row = append(row, strconv.FormatFloat(r.Tout[k], 'g', -1, 64))
			for _, v := range y {
				row = append(row, strconv.FormatInt(int64(v), 10))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}
