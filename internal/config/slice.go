package config

// Slice is the configuration evaluated at one instant. Time-dependent
// values are resolved; static sections are copied by value.
type Slice struct {
	Time float64

	Ip           float64 // MA
	TiBoundRight float64
	TeBoundRight float64
	NeBoundRight float64
	Tiped        float64
	Teped        float64
	Neped        float64
	PedTop       float64

	Ptot     float64
	SPuffTot float64
	SNBITot  float64

	Geometry  GeometryConfig
	Numerics  NumericsConfig
	Profiles  ProfilesConfig
	Transport TransportConfig
	Sources   SourcesConfig
	Stepper   StepperConfig
}

// SliceAt evaluates c at time t.
func (c *Config) SliceAt(t float64) *Slice {
	p, s := c.Profiles, c.Sources
	return &Slice{
		Time:         t,
		Ip:           p.Ip.At(t),
		TiBoundRight: p.TiBoundRight.At(t),
		TeBoundRight: p.TeBoundRight.At(t),
		NeBoundRight: p.NeBoundRight.At(t),
		Tiped:        p.Tiped.At(t),
		Teped:        p.Teped.At(t),
		Neped:        p.Neped.At(t),
		PedTop:       p.PedTop.At(t),
		Ptot:         s.Ptot.At(t),
		SPuffTot:     s.SPuffTot.At(t),
		SNBITot:      s.SNBITot.At(t),
		Geometry:     c.Geometry,
		Numerics:     c.Numerics,
		Profiles:     c.Profiles,
		Transport:    c.Transport,
		Sources:      c.Sources,
		Stepper:      c.Stepper,
	}
}

// Dilution is the main-ion to electron density ratio for a single impurity.
func (s *Slice) Dilution() float64 {
	p := s.Profiles
	return (p.Zimp - p.Zeff) / (p.Zimp - 1)
}
