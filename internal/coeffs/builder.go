// Package coeffs assembles the coefficients of the transport equations for
// the evolving channels. Builder implements solver.CoeffsCallback.
package coeffs

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/torasim/internal/config"
	"github.com/san-kum/torasim/internal/fvm"
	"github.com/san-kum/torasim/internal/geometry"
	"github.com/san-kum/torasim/internal/plasma"
	"github.com/san-kum/torasim/internal/sources"
	"github.com/san-kum/torasim/internal/transport"
)

var (
	ErrNoChannels        = errors.New("coeffs: no evolving channels")
	ErrDuplicateChannel  = errors.New("coeffs: duplicate channel")
	ErrMissingDependency = errors.New("coeffs: missing geometry or transport model")
)

// Builder computes Block1DCoeffs for a candidate state of the evolving
// channels. Channels that are not evolved are read from Base.
type Builder struct {
	geo      *geometry.Geometry
	channels []plasma.Channel
	model    transport.Model
	base     plasma.CoreProfiles
}

// New returns a Builder for the given channels, in solver order.
func New(geo *geometry.Geometry, model transport.Model, channels []plasma.Channel) (*Builder, error) {
	if geo == nil || model == nil {
		return nil, ErrMissingDependency
	}
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}
	seen := make(map[plasma.Channel]bool, len(channels))
	for _, c := range channels {
		if seen[c] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChannel, c)
		}
		seen[c] = true
	}
	return &Builder{geo: geo, model: model, channels: append([]plasma.Channel(nil), channels...)}, nil
}

// WithBase returns a copy of b reading frozen channels from p.
func (b *Builder) WithBase(p plasma.CoreProfiles) *Builder {
	nb := *b
	nb.base = p
	return &nb
}

func (b *Builder) Channels() []plasma.Channel { return b.channels }

// Coeffs implements solver.CoeffsCallback.
func (b *Builder) Coeffs(x []fvm.CellVariable, s *config.Slice, allowPereverzev bool) (fvm.Block1DCoeffs, error) {
	p, err := b.base.Merge(b.channels, x)
	if err != nil {
		return fvm.Block1DCoeffs{}, err
	}
	geo := b.geo
	tc := b.model.Coeffs(p, geo, s)
	st := newState(geo, p, s)

	n := len(b.channels)
	out := fvm.Block1DCoeffs{
		TransientIn: make([][]float64, n),
		DFace:       make([][]float64, n),
		VFace:       make([][]float64, n),
		SourceMat:   make([][][]float64, n),
		Source:      make([][]float64, n),
		Aux: fvm.AuxiliaryOutput{
			"chi_face_ion": tc.ChiFaceIon,
			"chi_face_el":  tc.ChiFaceEl,
			"d_face_el":    tc.DFaceEl,
			"v_face_el":    tc.VFaceEl,
		},
	}
	index := make(map[plasma.Channel]int, n)
	for i, c := range b.channels {
		index[c] = i
		out.SourceMat[i] = make([][]float64, n)
	}

	for i, c := range b.channels {
		switch c {
		case plasma.TempIon:
			out.TransientIn[i] = st.heatTransient(p.Ni)
			out.DFace[i] = st.heatDiffusion(tc.ChiFaceIon, p.Ni)
			out.Source[i] = st.ionHeatSource()
		case plasma.TempEl:
			out.TransientIn[i] = st.heatTransient(p.Ne)
			out.DFace[i] = st.heatDiffusion(tc.ChiFaceEl, p.Ne)
			out.Source[i] = st.electronHeatSource(out.Aux)
		case plasma.Ne:
			out.TransientIn[i] = clone(geo.Vpr)
			out.DFace[i] = st.particleDiffusion(tc.DFaceEl)
			out.VFace[i] = st.particleConvection(tc.VFaceEl)
			out.Source[i] = st.particleSource()
		case plasma.Psi:
			out.TransientIn[i] = st.psiTransient()
			out.DFace[i] = clone(geo.RhoFace)
			out.Source[i] = st.psiSource(out.Aux)
		}
	}

	st.exchange(out, index)
	if s.Profiles.SetPedestal {
		st.pedestal(out, index)
	}
	if s.Stepper.UsePereverzev && allowPereverzev {
		st.pereverzev(out, index)
	}
	return out, nil
}

// state carries the quantities shared by the per-channel terms.
type state struct {
	geo   *geometry.Geometry
	p     plasma.CoreProfiles
	s     *config.Slice
	gFace []float64
}

func newState(geo *geometry.Geometry, p plasma.CoreProfiles, s *config.Slice) *state {
	g := make([]float64, len(geo.VprFace))
	floats.ScaleTo(g, 1/(geo.Rmin*geo.Rmin), geo.VprFace)
	return &state{geo: geo, p: p, s: s, gFace: g}
}

func (st *state) heatTransient(n fvm.CellVariable) []float64 {
	out := n.Value()
	for i := range out {
		out[i] *= 1.5 * st.geo.Vpr[i]
	}
	return out
}

func (st *state) heatDiffusion(chi []float64, n fvm.CellVariable) []float64 {
	out := n.FaceValue()
	for i := range out {
		out[i] *= chi[i] * st.gFace[i]
	}
	return out
}

func (st *state) ionHeatSource() []float64 {
	ion, _ := sources.Heating(st.geo, st.s)
	return st.toEnergyRate(ion)
}

func (st *state) electronHeatSource(aux fvm.AuxiliaryOutput) []float64 {
	_, el := sources.Heating(st.geo, st.s)
	prad := sources.Bremsstrahlung(st.p.Ne.Value(), st.p.TempEl.Value(), st.s)
	aux["p_rad"] = prad
	floats.Sub(el, prad)
	return st.toEnergyRate(el)
}

func (st *state) toEnergyRate(q []float64) []float64 {
	out := make([]float64, len(q))
	for i := range q {
		out[i] = st.geo.Vpr[i] * q[i] / sources.EnergyUnit
	}
	return out
}

func (st *state) particleDiffusion(d []float64) []float64 {
	out := make([]float64, len(d))
	floats.MulTo(out, d, st.gFace)
	return out
}

func (st *state) particleConvection(v []float64) []float64 {
	out := make([]float64, len(v))
	floats.MulTo(out, v, st.geo.VprFace)
	floats.Scale(1/st.geo.Rmin, out)
	return out
}

func (st *state) particleSource() []float64 {
	src := sources.GasPuff(st.geo, st.s)
	floats.Add(src, sources.NBIParticles(st.geo, st.s))
	for i := range src {
		src[i] *= st.geo.Vpr[i] / sources.DensityUnit
	}
	return src
}

func (st *state) psiTransient() []float64 {
	a := st.geo.Rmin
	sigma := sources.SpitzerConductivity(st.p.TempEl.Value(), st.s.Profiles.Zeff)
	out := make([]float64, len(sigma))
	for i := range sigma {
		out[i] = sources.Mu0 * a * a * sigma[i] * st.geo.RhoCell[i] / st.s.Numerics.ResistivityMult
	}
	return out
}

func (st *state) psiSource(aux fvm.AuxiliaryOutput) []float64 {
	a := st.geo.Rmin
	j := sources.ExternalCurrent(st.geo, st.s)
	aux["j_ext"] = j
	out := make([]float64, len(j))
	for i := range j {
		out[i] = -sources.Mu0 * a * a * st.geo.RhoCell[i] * j[i]
	}
	return out
}

// exchange couples the ion and electron heat equations. A channel that is
// not evolved enters the other one as an explicit source.
func (st *state) exchange(out fvm.Block1DCoeffs, index map[plasma.Channel]int) {
	ion, ionOK := index[plasma.TempIon]
	el, elOK := index[plasma.TempEl]
	if !ionOK && !elOK {
		return
	}
	q := sources.ExchangeCoefficient(st.p.Ne.Value(), st.p.TempEl.Value(), st.s)
	out.Aux["qei_coef"] = clone(q)
	for i := range q {
		q[i] *= st.geo.Vpr[i]
	}

	couple := func(self int, other plasma.Channel, otherIdx int, otherOK bool) {
		addDiag(out.SourceMat, self, self, q, -1)
		if otherOK {
			addDiag(out.SourceMat, self, otherIdx, q, 1)
			return
		}
		frozen := st.p.Get(other).Value()
		for k := range frozen {
			out.Source[self][k] += q[k] * frozen[k]
		}
	}
	if ionOK {
		couple(ion, plasma.TempEl, el, elOK)
	}
	if elOK {
		couple(el, plasma.TempIon, ion, ionOK)
	}
}

// pedestal pins the cell nearest the pedestal top to the pedestal value
// through a large implicit sink and matching source.
func (st *state) pedestal(out fvm.Block1DCoeffs, index map[plasma.Channel]int) {
	idx := st.geo.NearestCell(st.s.PedTop)
	nc := st.geo.NRho
	num := st.s.Numerics
	targets := []struct {
		c     plasma.Channel
		large float64
		value float64
	}{
		{plasma.TempIon, num.LargeValueT, st.s.Tiped},
		{plasma.TempEl, num.LargeValueT, st.s.Teped},
		{plasma.Ne, num.LargeValueN, st.s.Neped},
	}
	for _, t := range targets {
		i, ok := index[t.c]
		if !ok {
			continue
		}
		mask := make([]float64, nc)
		mask[idx] = t.large
		addDiag(out.SourceMat, i, i, mask, -1)
		out.Source[i][idx] += t.large * t.value
	}
}

// pereverzev adds a large diffusion and the convection that cancels its
// flux at the evaluation state. Both vanish outside the pedestal top.
func (st *state) pereverzev(out fvm.Block1DCoeffs, index map[plasma.Channel]int) {
	cfg := st.s.Stepper
	for i, c := range channelsOf(index) {
		var (
			v    fvm.CellVariable
			dPer []float64
		)
		switch c {
		case plasma.TempIon, plasma.TempEl:
			v = st.p.Get(c)
			n := st.p.Ne
			if c == plasma.TempIon {
				n = st.p.Ni
			}
			dPer = n.FaceValue()
			floats.Mul(dPer, st.gFace)
			floats.Scale(cfg.ChiPer, dPer)
		case plasma.Ne:
			v = st.p.Ne
			dPer = make([]float64, len(st.gFace))
			floats.ScaleTo(dPer, cfg.DPer, st.gFace)
		default:
			continue
		}
		face, grad := v.FaceValue(), v.FaceGrad()
		vPer := make([]float64, len(face))
		for k := range face {
			if st.s.Profiles.SetPedestal && st.geo.RhoFace[k] > st.s.PedTop {
				dPer[k] = 0
				continue
			}
			vPer[k] = dPer[k] * grad[k] / face[k]
		}
		if out.VFace[i] == nil {
			out.VFace[i] = make([]float64, len(face))
		}
		floats.Add(out.DFace[i], dPer)
		floats.Add(out.VFace[i], vPer)
		out.Aux["d_per_"+c.String()] = dPer
		out.Aux["v_per_"+c.String()] = vPer
	}
}

func channelsOf(index map[plasma.Channel]int) []plasma.Channel {
	out := make([]plasma.Channel, len(index))
	for c, i := range index {
		out[i] = c
	}
	return out
}

func addDiag(m [][][]float64, i, j int, v []float64, sign float64) {
	if m[i][j] == nil {
		m[i][j] = make([]float64, len(v))
	}
	floats.AddScaled(m[i][j], sign, v)
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
