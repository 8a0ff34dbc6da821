package metrics

import (
	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/sim"
	"github.com/san-kum/torasim/internal/sources"
)

// StoredEnergy is the thermal energy 1.5 ∫(ne Te + ni Ti) dV in MJ at the
// latest observed step.
type StoredEnergy struct {
	name    string
	geo     *geometry.Geometry
	current float64
	samples int
}

func NewStoredEnergy(geo *geometry.Geometry) *StoredEnergy {
	return &StoredEnergy{name: "stored_energy_mj", geo: geo}
}

func (e *StoredEnergy) Name() string { return e.name }

func (e *StoredEnergy) Observe(rec sim.StepRecord) {
	e.current = ThermalEnergy(e.geo, rec)
	e.samples++
}

func (e *StoredEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.current
}

func (e *StoredEnergy) Reset() {
	e.current = 0
	e.samples = 0
}

// ThermalEnergy returns the plasma thermal energy of rec in MJ.
func ThermalEnergy(geo *geometry.Geometry, rec sim.StepRecord) float64 {
	p := rec.Profiles
	ne, te := p.Ne.Value(), p.TempEl.Value()
	ni, ti := p.Ni.Value(), p.TempIon.Value()
	density := make([]float64, len(ne))
	for i := range ne {
		density[i] = 1.5 * (ne[i]*te[i] + ni[i]*ti[i])
	}
	return geo.VolumeIntegral(density) * sources.EnergyUnit / 1e6
}

// EnergyDrift is the largest relative change of the stored energy from its
// first observed value.
type EnergyDrift struct {
	name     string
	geo      *geometry.Geometry
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(geo *geometry.Geometry) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", geo: geo}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(rec sim.StepRecord) {
	w := ThermalEnergy(e.geo, rec)
	if e.samples == 0 {
		e.initial = w
	}
	e.samples++
	if e.initial == 0 {
		return
	}
	drift := (w - e.initial) / e.initial
	if drift < 0 {
		drift = -drift
	}
	if drift > e.maxDrift {
		e.maxDrift = drift
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
