package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/sim"
)

type ExportData struct {
	Name       string                 `json:"name"`
	Stepper    string                 `json:"stepper"`
	Transport  string                 `json:"transport"`
	Channels   []string               `json:"channels"`
	Steps      int                    `json:"steps"`
	Rejected   int                    `json:"rejected"`
	Times      []float64              `json:"times"`
	Dts        []float64              `json:"dts"`
	Iterations []int                  `json:"iterations"`
	Profiles   map[string][][]float64 `json:"profiles"`
	Metrics    map[string]float64     `json:"metrics"`
}

func newExportData(cfg *config.Config, result *sim.Result) ExportData {
	data := ExportData{
		Name:       cfg.Name,
		Stepper:    cfg.Stepper.Stepper,
		Transport:  cfg.Transport.Model,
		Channels:   make([]string, len(result.Channels)),
		Steps:      result.StepsTaken,
		Rejected:   result.Rejected,
		Times:      result.Times,
		Dts:        result.Dts,
		Iterations: result.Iterations,
		Profiles:   make(map[string][][]float64, len(plasma.AllChannels)),
		Metrics:    result.Metrics,
	}
	for i, c := range result.Channels {
		data.Channels[i] = c.String()
	}
	for _, c := range plasma.AllChannels {
		rows := make([][]float64, len(result.Profiles))
		for i, p := range result.Profiles {
			rows[i] = p.Get(c).Value()
		}
		data.Profiles[c.String()] = rows
	}
	return data
}

// ExportJSON writes the whole run history to path.
func ExportJSON(path string, cfg *config.Config, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteJSON(file, cfg, result); err != nil {
		return err
	}
	return file.Close()
}

// WriteJSON encodes the run history to w.
func WriteJSON(w io.Writer, cfg *config.Config, result *sim.Result) error {
	return encode(w, newExportData(cfg, result))
}

// ExportRun encodes a saved run to w. Step sizes and iteration counts are
// not kept on disk, so those fields stay empty.
func (s *Store) ExportRun(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	history, err := s.LoadProfiles(runID)
	if err != nil {
		return err
	}
	return encode(w, ExportData{
		Name:      meta.Name,
		Stepper:   meta.Stepper,
		Transport: meta.Transport,
		Channels:  meta.Channels,
		Steps:     meta.Steps,
		Rejected:  meta.Rejected,
		Times:     history.Times,
		Profiles:  history.Profiles,
		Metrics:   meta.Metrics,
	})
}

func encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
