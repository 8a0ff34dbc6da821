package optim

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/torasim/internal/config"
)

var ErrUnknownParameter = errors.New("optim: unknown parameter")

// Setter writes one scalar into a configuration.
type Setter func(cfg *config.Config, v float64)

// Parameters are the scalars that scans and campaigns may vary.
var Parameters = map[string]Setter{
	"chi_i":       func(c *config.Config, v float64) { c.Transport.ChiI = v },
	"chi_e":       func(c *config.Config, v float64) { c.Transport.ChiE = v },
	"d_e":         func(c *config.Config, v float64) { c.Transport.De = v },
	"chi_stiff":   func(c *config.Config, v float64) { c.Transport.ChiStiff = v },
	"rlt_crit":    func(c *config.Config, v float64) { c.Transport.RLTCrit = v },
	"ptot":        func(c *config.Config, v float64) { c.Sources.Ptot = config.Constant(v) },
	"el_fraction": func(c *config.Config, v float64) { c.Sources.ElHeatFraction = v },
	"fext":        func(c *config.Config, v float64) { c.Sources.Fext = v },
	"ip":          func(c *config.Config, v float64) { c.Profiles.Ip = config.Constant(v) },
	"zeff":        func(c *config.Config, v float64) { c.Profiles.Zeff = v },
	"nrho":        func(c *config.Config, v float64) { c.Geometry.NRho = int(v) },
	"t_final":     func(c *config.Config, v float64) { c.Numerics.TFinal = v },
	"dtmult":      func(c *config.Config, v float64) { c.Numerics.DtMult = v },
	"theta_imp":   func(c *config.Config, v float64) { c.Stepper.ThetaImp = v },
}

func ParameterNames() []string {
	names := make([]string, 0, len(Parameters))
	for name := range Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply returns a copy of base with params set.
func Apply(base *config.Config, params map[string]float64) (*config.Config, error) {
	cfg := base.Clone()
	for name, v := range params {
		set, ok := Parameters[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
		}
		set(cfg, v)
	}
	return cfg, nil
}

// ParseRange parses "name=v1,v2,..." as used on the command line.
func ParseRange(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("optim: expected name=v1,v2,..., got %q", s)
	}
	if _, ok := Parameters[name]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	var values []float64
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return "", nil, fmt.Errorf("optim: %s: %w", name, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}
