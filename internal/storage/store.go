package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/sim"
)

var ErrEmptyResult = errors.New("storage: result has no profiles")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Stepper   string             `json:"stepper"`
	Transport string             `json:"transport"`
	Channels  []string           `json:"channels"`
	TInitial  float64            `json:"t_initial"`
	TFinal    float64            `json:"t_final"`
	Steps     int                `json:"steps"`
	Rejected  int                `json:"rejected"`
	Metrics   map[string]float64 `json:"metrics"`
	// Config is the full run configuration as YAML.
	Config string `json:"config"`
}

// RunConfig decodes the stored configuration.
func (m *RunMetadata) RunConfig() (*config.Config, error) {
	return config.Parse([]byte(m.Config))
}

// History is the profile history read back from profiles.csv.
type History struct {
	Times []float64
	// Profiles maps a channel name to one row of cell values per time.
	Profiles map[string][][]float64
}

// Save writes metadata.json and profiles.csv into a new run directory and
// returns its id.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	if len(result.Profiles) == 0 {
		return "", ErrEmptyResult
	}
	runID, runDir, err := s.newRunDir(cfg.Name)
	if err != nil {
		return "", err
	}

	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	channels := make([]string, len(result.Channels))
	for i, c := range result.Channels {
		channels[i] = c.String()
	}
	meta := RunMetadata{
		ID:        runID,
		Name:      cfg.Name,
		Timestamp: time.Now(),
		Stepper:   cfg.Stepper.Stepper,
		Transport: cfg.Transport.Model,
		Channels:  channels,
		TInitial:  result.Times[0],
		TFinal:    result.Times[len(result.Times)-1],
		Steps:     result.StepsTaken,
		Rejected:  result.Rejected,
		Metrics:   result.Metrics,
		Config:    string(cfgYAML),
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeProfiles(filepath.Join(runDir, "profiles.csv"), result); err != nil {
		return "", err
	}
	return runID, nil
}

// newRunDir creates <base>/<name>_<unix>, adding a counter when a run of
// the same name was saved within the same second.
func (s *Store) newRunDir(name string) (string, string, error) {
	if name == "" {
		name = "run"
	}
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	runID := base
	for i := 2; ; i++ {
		dir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return runID, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeProfiles writes one row per time and channel:
// time,channel,c0,...,c(n-1).
func writeProfiles(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	ncell := result.Profiles[0].TempIon.Len()
	header := []string{"time", "channel"}
	for i := 0; i < ncell; i++ {
		header = append(header, fmt.Sprintf("c%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, p := range result.Profiles {
		t := strconv.FormatFloat(result.Times[i], 'g', -1, 64)
		for _, c := range plasma.AllChannels {
			row := []string{t, c.String()}
			for _, v := range p.Get(c).Value() {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

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
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadProfiles reads profiles.csv of a run.
func (s *Store) LoadProfiles(runID string) (*History, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "profiles.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	h := &History{Profiles: make(map[string][][]float64)}
	for line, record := range records {
		if line == 0 || len(record) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("profiles.csv line %d: %w", line+1, err)
		}
		if n := len(h.Times); n == 0 || h.Times[n-1] != t {
			h.Times = append(h.Times, t)
		}
		values := make([]float64, 0, len(record)-2)
		for _, field := range record[2:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("profiles.csv line %d: %w", line+1, err)
			}
			values = append(values, v)
		}
		h.Profiles[record[1]] = append(h.Profiles[record[1]], values)
	}
	return h, nil
}
