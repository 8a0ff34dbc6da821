package plasma

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/torasim/internal/fvm"
)

// Channel identifies a transported quantity.
type Channel int

const (
	TempIon Channel = iota
	TempEl
	Psi
	Ne
)

// AllChannels lists the channels in solver order.
var AllChannels = []Channel{TempIon, TempEl, Psi, Ne}

func (c Channel) String() string {
	switch c {
	case TempIon:
		return "temp_ion"
	case TempEl:
		return "temp_el"
	case Psi:
		return "psi"
	case Ne:
		return "ne"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// ParseChannel parses a channel name.
func ParseChannel(s string) (Channel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, c := range AllChannels {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// CoreProfiles holds the radial profiles at one time. Ni follows Ne through
// the dilution factor and is never evolved on its own.
type CoreProfiles struct {
	TempIon  fvm.CellVariable
	TempEl   fvm.CellVariable
	Ne       fvm.CellVariable
	Ni       fvm.CellVariable
	Psi      fvm.CellVariable
	Dilution float64
}

// Get returns the variable of channel c.
func (p CoreProfiles) Get(c Channel) fvm.CellVariable {
	switch c {
	case TempIon:
		return p.TempIon
	case TempEl:
		return p.TempEl
	case Ne:
		return p.Ne
	default:
		return p.Psi
	}
}

// With returns a copy with channel c replaced. Replacing Ne refreshes Ni.
func (p CoreProfiles) With(c Channel, v fvm.CellVariable) CoreProfiles {
	switch c {
	case TempIon:
		p.TempIon = v
	case TempEl:
		p.TempEl = v
	case Ne:
		p.Ne = v
		p.Ni = IonDensity(v, p.Dilution)
	case Psi:
		p.Psi = v
	}
	return p
}

// Extract returns the variables of the given channels in order.
func (p CoreProfiles) Extract(channels []Channel) []fvm.CellVariable {
	out := make([]fvm.CellVariable, len(channels))
	for i, c := range channels {
		out[i] = p.Get(c)
	}
	return out
}

// Merge returns a copy of p with the given channels replaced by vars.
// Channels not listed keep their current values.
func (p CoreProfiles) Merge(channels []Channel, vars []fvm.CellVariable) (CoreProfiles, error) {
	if len(channels) != len(vars) {
		return CoreProfiles{}, fmt.Errorf("%w: %d variables for %d channels", ErrChannelMismatch, len(vars), len(channels))
	}
	for i, c := range channels {
		p = p.With(c, vars[i])
	}
	return p, nil
}

// IonDensity scales ne by the dilution factor, keeping its constraints.
func IonDensity(ne fvm.CellVariable, dilution float64) fvm.CellVariable {
	value := ne.Value()
	for i := range value {
		value[i] *= dilution
	}
	b := ne.Boundary()
	b.Left.Value *= dilution
	b.Right.Value *= dilution
	return ne.WithValue(value).WithBoundary(b)
}

// Validate checks that every channel is finite and that temperatures and
// density are positive.
func (p CoreProfiles) Validate() error {
	for _, c := range AllChannels {
		v := p.Get(c)
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidProfiles, c, err)
		}
		for i, x := range v.Value() {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: %s cell %d is %g", ErrInvalidProfiles, c, i, x)
			}
			if c != Psi && x <= 0 {
				return fmt.Errorf("%w: %s cell %d is %g", ErrInvalidProfiles, c, i, x)
			}
		}
	}
	return nil
}

// MaxAbs returns the largest absolute cell value of channel c.
func (p CoreProfiles) MaxAbs(c Channel) float64 {
	m := 0.0
	for _, x := range p.Get(c).Value() {
		m = math.Max(m, math.Abs(x))
	}
	return m
}
