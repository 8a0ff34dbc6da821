package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultNRho        = 25
	DefaultTFinal      = 1.0
	DefaultMaxDt       = 0.5
	DefaultMinDt       = 1e-8
	DefaultDtMult      = 9.0
	DefaultLargeValueT = 1.0e10
	DefaultLargeValueN = 1.0e8

	DefaultThetaImp             = 1.0
	DefaultCorrectorSteps       = 1
	DefaultChiPer               = 30.0
	DefaultDPer                 = 15.0
	DefaultMaxIter              = 30
	DefaultTol                  = 1e-6
	DefaultDeltaReductionFactor = 0.5
	DefaultTauMin               = 0.01
	DefaultDtReductionFactor    = 3.0

	StepperLinear        = "linear"
	StepperNewtonRaphson = "newton_raphson"
)

// Config is a complete run description.
type Config struct {
	Name      string          `yaml:"name"`
	Geometry  GeometryConfig  `yaml:"geometry"`
	Numerics  NumericsConfig  `yaml:"numerics"`
	Profiles  ProfilesConfig  `yaml:"profiles"`
	Transport TransportConfig `yaml:"transport"`
	Sources   SourcesConfig   `yaml:"sources"`
	Stepper   StepperConfig   `yaml:"stepper"`
}

// GeometryConfig describes a circular plasma cross-section.
type GeometryConfig struct {
	NRho int     `yaml:"nrho"`
	Rmaj float64 `yaml:"rmaj"` // major radius [m]
	Rmin float64 `yaml:"rmin"` // minor radius [m]
	B0   float64 `yaml:"b0"`   // toroidal field on axis [T]
}

type NumericsConfig struct {
	TInitial        float64 `yaml:"t_initial"`
	TFinal          float64 `yaml:"t_final"`
	MaxDt           float64 `yaml:"maxdt"`
	MinDt           float64 `yaml:"mindt"`
	DtMult          float64 `yaml:"dtmult"`
	FixedDt         float64 `yaml:"fixed_dt"` // zero selects the chi-based step
	IonHeatEq       bool    `yaml:"ion_heat_eq"`
	ElHeatEq        bool    `yaml:"el_heat_eq"`
	DensEq          bool    `yaml:"dens_eq"`
	CurrentEq       bool    `yaml:"current_eq"`
	ResistivityMult float64 `yaml:"resistivity_mult"`
	LargeValueT     float64 `yaml:"largeValue_T"`
	LargeValueN     float64 `yaml:"largeValue_n"`
}

// ProfilesConfig holds plasma composition, boundary values and pedestal
// settings. Temperatures are in keV, densities in 1e20 m^-3 and Ip in MA.
type ProfilesConfig struct {
	Ai           float64    `yaml:"Ai"`
	Zeff         float64    `yaml:"Zeff"`
	Zimp         float64    `yaml:"Zimp"`
	Ip           TimeSeries `yaml:"Ip"`
	TiBoundLeft  float64    `yaml:"Ti_bound_left"`
	TiBoundRight TimeSeries `yaml:"Ti_bound_right"`
	TeBoundLeft  float64    `yaml:"Te_bound_left"`
	TeBoundRight TimeSeries `yaml:"Te_bound_right"`
	Ne0          float64    `yaml:"ne0"`
	NeBoundRight TimeSeries `yaml:"ne_bound_right"`
	SetPedestal  bool       `yaml:"set_pedestal"`
	Tiped        TimeSeries `yaml:"Tiped"`
	Teped        TimeSeries `yaml:"Teped"`
	Neped        TimeSeries `yaml:"neped"`
	PedTop       TimeSeries `yaml:"Ped_top"`
}

type TransportConfig struct {
	Model  string  `yaml:"model"`
	ChiMin float64 `yaml:"chimin"`
	ChiMax float64 `yaml:"chimax"`
	DeMin  float64 `yaml:"Demin"`
	DeMax  float64 `yaml:"Demax"`
	VeMin  float64 `yaml:"Vemin"`
	VeMax  float64 `yaml:"Vemax"`

	// constant model
	ChiI float64 `yaml:"chii_const"`
	ChiE float64 `yaml:"chie_const"`
	De   float64 `yaml:"De_const"`
	Ve   float64 `yaml:"Ve_const"`

	// critical_gradient model
	ChiStiff  float64 `yaml:"chistiff"`
	RLTCrit   float64 `yaml:"RLTcrit"`
	Alpha     float64 `yaml:"alpha"`
	DeOverChi float64 `yaml:"De_over_chie"`
	VeOverDe  float64 `yaml:"Ve_over_De"`

	ApplyInnerPatch bool    `yaml:"apply_inner_patch"`
	RhoInner        float64 `yaml:"rho_inner"`
	ChiiInner       float64 `yaml:"chii_inner"`
	ChieInner       float64 `yaml:"chie_inner"`
	DeInner         float64 `yaml:"De_inner"`
	VeInner         float64 `yaml:"Ve_inner"`
}

// SourcesConfig holds the source amplitudes and shapes. Locations and widths
// are in normalized radius.
type SourcesConfig struct {
	Ptot           TimeSeries `yaml:"Ptot"` // W
	HeatLoc        float64    `yaml:"rsource"`
	HeatWidth      float64    `yaml:"w"`
	ElHeatFraction float64    `yaml:"el_heat_fraction"`

	SPuffTot        TimeSeries `yaml:"S_puff_tot"` // particles/s
	PuffDecayLength float64    `yaml:"puff_decay_length"`

	SNBITot  TimeSeries `yaml:"S_nbi_tot"` // particles/s
	NBILoc   float64    `yaml:"nbi_deposition_location"`
	NBIWidth float64    `yaml:"nbi_particle_width"`

	Fext float64 `yaml:"fext"`
	Rext float64 `yaml:"rext"`
	Wext float64 `yaml:"wext"`

	QeiMult       float64 `yaml:"Qei_mult"`
	RadiationMult float64 `yaml:"radiation_mult"`
}

type StepperConfig struct {
	Stepper                 string  `yaml:"stepper"`
	ThetaImp                float64 `yaml:"theta_imp"`
	PredictorCorrector      bool    `yaml:"predictor_corrector"`
	CorrectorSteps          int     `yaml:"corrector_steps"`
	ConvectionDirichletMode string  `yaml:"convection_dirichlet_mode"`
	ConvectionNeumannMode   string  `yaml:"convection_neumann_mode"`
	UsePereverzev           bool    `yaml:"use_pereverzev"`
	ChiPer                  float64 `yaml:"chi_per"`
	DPer                    float64 `yaml:"d_per"`
	InitialGuessMode        string  `yaml:"initial_guess_mode"`
	MaxIter                 int     `yaml:"maxiter"`
	Tol                     float64 `yaml:"tol"`
	DeltaReductionFactor    float64 `yaml:"delta_reduction_factor"`
	TauMin                  float64 `yaml:"tau_min"`
	DtReductionFactor       float64 `yaml:"dt_reduction_factor"`
	JacobianStep            float64 `yaml:"jacobian_step"`
	LogIterations           bool    `yaml:"log_iterations"`
}

// DefaultConfig is a reduced ITER hybrid-like scenario with constant
// transport, solved with Newton-Raphson from a linear initial guess.
func DefaultConfig() *Config {
	return &Config{
		Name: "default",
		Geometry: GeometryConfig{
			NRho: DefaultNRho,
			Rmaj: 6.2,
			Rmin: 2.0,
			B0:   5.3,
		},
		Numerics: NumericsConfig{
			TFinal:          DefaultTFinal,
			MaxDt:           DefaultMaxDt,
			MinDt:           DefaultMinDt,
			DtMult:          DefaultDtMult,
			IonHeatEq:       true,
			ElHeatEq:        true,
			DensEq:          false,
			CurrentEq:       false,
			ResistivityMult: 200,
			LargeValueT:     DefaultLargeValueT,
			LargeValueN:     DefaultLargeValueN,
		},
		Profiles: ProfilesConfig{
			Ai:           2.5,
			Zeff:         1.6,
			Zimp:         10,
			Ip:           Constant(10.5),
			TiBoundLeft:  15,
			TiBoundRight: Constant(0.2),
			TeBoundLeft:  15,
			TeBoundRight: Constant(0.2),
			Ne0:          1.0,
			NeBoundRight: Constant(0.25),
			Tiped:        Constant(4.5),
			Teped:        Constant(4.5),
			Neped:        Constant(0.62),
			PedTop:       Constant(0.9),
		},
		Transport: TransportConfig{
			Model:     "constant",
			ChiMin:    0.05,
			ChiMax:    100,
			DeMin:     0.05,
			DeMax:     50,
			VeMin:     -10,
			VeMax:     10,
			ChiI:      2,
			ChiE:      2,
			De:        1,
			Ve:        -0.3,
			ChiStiff:  2,
			RLTCrit:   4,
			Alpha:     1,
			DeOverChi: 0.5,
			VeOverDe:  -0.2,
			RhoInner:  0.2,
			ChiiInner: 1,
			ChieInner: 1,
			DeInner:   0.25,
		},
		Sources: SourcesConfig{
			Ptot:            Constant(51e6),
			HeatLoc:         0.127,
			HeatWidth:       0.073,
			ElHeatFraction:  0.68,
			SPuffTot:        Constant(6e21),
			PuffDecayLength: 0.3,
			SNBITot:         Constant(2.05e20),
			NBILoc:          0.3,
			NBIWidth:        0.25,
			Fext:            0.46,
			Rext:            0.36,
			Wext:            0.075,
			QeiMult:         1,
			RadiationMult:   1,
		},
		Stepper: StepperConfig{
			Stepper:                 StepperNewtonRaphson,
			ThetaImp:                DefaultThetaImp,
			PredictorCorrector:      true,
			CorrectorSteps:          DefaultCorrectorSteps,
			ConvectionDirichletMode: "ghost",
			ConvectionNeumannMode:   "ghost",
			UsePereverzev:           false,
			ChiPer:                  DefaultChiPer,
			DPer:                    DefaultDPer,
			InitialGuessMode:        "linear",
			MaxIter:                 DefaultMaxIter,
			Tol:                     DefaultTol,
			DeltaReductionFactor:    DefaultDeltaReductionFactor,
			TauMin:                  DefaultTauMin,
			DtReductionFactor:       DefaultDtReductionFactor,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults, so a partial document only
// overrides the keys it names.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns an independent copy. TimeSeries values are never modified
// in place, so a field copy is enough.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

// Validate checks the numeric settings the solver and driver rely on.
func (c *Config) Validate() error {
	g := c.Geometry
	if g.NRho < 2 {
		return fmt.Errorf("%w: nrho must be at least 2, got %d", ErrInvalidConfig, g.NRho)
	}
	if g.Rmin <= 0 || g.Rmaj <= g.Rmin {
		return fmt.Errorf("%w: need 0 < rmin < rmaj, got rmin=%g rmaj=%g", ErrInvalidConfig, g.Rmin, g.Rmaj)
	}

	n := c.Numerics
	if n.TFinal <= n.TInitial {
		return fmt.Errorf("%w: t_final %g must exceed t_initial %g", ErrInvalidConfig, n.TFinal, n.TInitial)
	}
	if n.MaxDt <= 0 || n.MinDt <= 0 || n.MinDt > n.MaxDt {
		return fmt.Errorf("%w: need 0 < mindt <= maxdt", ErrInvalidConfig)
	}
	if n.FixedDt < 0 || (n.FixedDt == 0 && n.DtMult <= 0) {
		return fmt.Errorf("%w: dtmult must be positive when fixed_dt is unset", ErrInvalidConfig)
	}
	if !n.IonHeatEq && !n.ElHeatEq && !n.DensEq && !n.CurrentEq {
		return fmt.Errorf("%w: no equation is evolved", ErrInvalidConfig)
	}

	p := c.Profiles
	if p.Zimp <= 1 || p.Zeff < 1 || p.Zeff > p.Zimp {
		return fmt.Errorf("%w: need 1 <= Zeff <= Zimp and Zimp > 1", ErrInvalidConfig)
	}
	if p.Ai <= 0 {
		return fmt.Errorf("%w: Ai must be positive", ErrInvalidConfig)
	}

	switch c.Transport.Model {
	case "constant", "critical_gradient":
	default:
		return fmt.Errorf("%w: unknown transport model %q", ErrInvalidConfig, c.Transport.Model)
	}
	if c.Transport.ChiMin <= 0 || c.Transport.ChiMax < c.Transport.ChiMin {
		return fmt.Errorf("%w: need 0 < chimin <= chimax", ErrInvalidConfig)
	}

	s := c.Stepper
	switch s.Stepper {
	case StepperLinear, StepperNewtonRaphson:
	default:
		return fmt.Errorf("%w: unknown stepper %q", ErrInvalidConfig, s.Stepper)
	}
	if s.ThetaImp < 0 || s.ThetaImp > 1 {
		return fmt.Errorf("%w: theta_imp must be in [0, 1], got %g", ErrInvalidConfig, s.ThetaImp)
	}
	if s.CorrectorSteps < 0 {
		return fmt.Errorf("%w: corrector_steps must be non-negative", ErrInvalidConfig)
	}
	if s.DtReductionFactor <= 1 {
		return fmt.Errorf("%w: dt_reduction_factor must exceed 1, got %g", ErrInvalidConfig, s.DtReductionFactor)
	}
	return nil
}
