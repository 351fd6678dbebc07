package jurassic

import (
	"fmt"
	"math"
)

// ForwardContext bundles the process-lifetime singletons the pencil
// integrator needs: the table store and the Planck cache. The original's
// global mutable table/cache pointers are a design smell this resolves
// with an explicit, passed-around context rather than package-level state.
type ForwardContext struct {
	Ctl     *Ctl
	Tables  *TableStore
	Planck  *PlanckCache
	EGT     *EGTInterpolator
	Filters []Shape
	FOV     Shape
	FOVOn   bool
}

// NewForwardContext builds a ForwardContext, loading the filter shapes and
// the optional FOV shape eagerly but leaving EGT table loading lazy
// (TableStore only reads a given gas/channel file on first Table call).
func NewForwardContext(ctl *Ctl, tableBase string, filterPaths []string) (*ForwardContext, error) {
	if len(filterPaths) != ctl.NChannels() {
		return nil, fmt.Errorf("jurassic: need %d filter shape files, got %d", ctl.NChannels(), len(filterPaths))
	}
	filters := make([]Shape, len(filterPaths))
	for i, p := range filterPaths {
		s, err := ReadShape(p)
		if err != nil {
			return nil, err
		}
		filters[i] = s
	}
	planck, err := NewPlanckCache(ctl, filters)
	if err != nil {
		return nil, err
	}
	store := NewTableStore(ctl, tableBase)
	fc := &ForwardContext{
		Ctl:     ctl,
		Tables:  store,
		Planck:  planck,
		EGT:     NewEGTInterpolator(ctl, store),
		Filters: filters,
	}
	if ctl.FOV != "-" && ctl.FOV != "" {
		fov, err := ReadShape(ctl.FOV)
		if err != nil {
			return nil, err
		}
		fc.FOV = fov
		fc.FOVOn = true
	}
	return fc, nil
}

// PencilResult is the per-channel radiance and transmittance produced by
// integrating a single traced line of sight.
type PencilResult struct {
	Rad []float64
	Tau []float64
}

// IntegratePencil walks los from the observer end to its terminus,
// accumulating radiance and transmittance per channel, following
// forwardmodel.c's formod_pencil. Each segment's gas transmittance comes
// from the EGT interpolator's extended-path walk (one PathState per ray,
// reset here), continuum extinction from continuumExtinction, and the
// aerosol/cloud term is folded in by the same scattering/non-scattering
// branch split formod_pencil uses: segments with a nonzero aerosol
// mixing fraction and ctl.ScaMult>0 take the scattering branch (which
// requires a single-scatter source term from scatterSource); every other
// segment takes the non-scattering branch, which still needs the
// aerosol's extinction or absorption coefficient (by ctl.ScaExt) folded
// into its optical depth whenever an aerosol layer is assigned and
// ctl.ScaN != 0.
//
// A zero-segment los (a cold-space ray that never touches the atmosphere)
// yields rad=0, tau=1 on every channel without walking anything.
func (fc *ForwardContext) IntegratePencil(los *LOS, aero *Aero) (*PencilResult, error) {
	nd := fc.Ctl.NChannels()
	res := &PencilResult{Rad: make([]float64, nd), Tau: make([]float64, nd)}
	for id := range res.Tau {
		res.Tau[id] = 1
	}
	if los.NP() == 0 {
		return res, nil
	}

	state := NewPathState(fc.Ctl)

	for ip := range los.Segments {
		seg := &los.Segments[ip]

		gasEps, err := fc.EGT.SegmentEps(state, seg)
		if err != nil {
			return nil, fmt.Errorf("jurassic: segment %d: %w", ip, err)
		}
		betaCtm := continuumExtinction(fc.Ctl, seg)

		srcPlanck := make([]float64, nd)
		for id := range srcPlanck {
			srcPlanck[id] = fc.Planck.Query(id, seg.T)
		}

		hasAero := seg.AeroIdx >= 0 && seg.AeroIdx < aero.NLayers()
		scattering := fc.Ctl.ScaMult > 0 && seg.AeroFac > 0 && hasAero
		aeroCoef := aeroExtinction(fc.Ctl, aero, seg)

		for id := 0; id < nd; id++ {
			tauGas := 1 - gasEps[id]
			if tauGas <= 0 {
				continue
			}

			if scattering {
				betaA := seg.AeroFac * aero.BetaA[seg.AeroIdx][id]
				betaE := seg.AeroFac * aero.BetaE[seg.AeroIdx][id]
				betaS := aero.BetaS[seg.AeroIdx][id]

				betaExtTot := -math.Log(tauGas)/seg.DS + betaCtm[id] + betaE
				eps := clamp01(1 - tauGas*math.Exp(-(betaCtm[id]+betaA)*seg.DS))

				scaSrc, err := fc.scatterSource(los, aero, ip, id)
				if err != nil {
					return nil, err
				}

				res.Rad[id] += res.Tau[id] * (eps*srcPlanck[id] + betaS*scaSrc)
				res.Tau[id] *= math.Exp(-betaExtTot * seg.DS)
				continue
			}

			// Non-scattering branch: ctl.ScaN==0 drops the aerosol term
			// from eps entirely (aeroExtinction returns all zeros in
			// that case); otherwise formod_pencil applies it a second
			// time as a standalone transmittance factor on top of
			// (1-eps) — an apparent double application of the aerosol
			// term preserved here rather than "fixed".
			eps := clamp01(1 - tauGas*math.Exp(-(betaCtm[id]+aeroCoef[id])*seg.DS))

			res.Rad[id] += srcPlanck[id] * eps * res.Tau[id]
			if fc.Ctl.ScaN == 0 {
				res.Tau[id] *= 1 - eps
			} else {
				res.Tau[id] *= (1 - eps) * math.Exp(-aeroCoef[id]*seg.DS)
			}
		}
	}

	if los.TSurf > 0 {
		for id := 0; id < nd; id++ {
			surfRad := fc.Planck.Query(id, los.TSurf)
			res.Rad[id] += res.Tau[id] * surfRad
			res.Tau[id] = 0
		}
	}

	return res, nil
}

// aeroExtinction returns the non-scattering aerosol extinction coefficient
// for seg's assigned layer, selected by ctl.ScaExt exactly as
// forwardmodel.c's formod_pencil non-scattering branch does: ExtExtinction
// uses the full extinction coefficient, ExtAbsorption uses the absorption
// coefficient alone, and ctl.ScaN == 0 disables the term entirely.
func aeroExtinction(ctl *Ctl, aero *Aero, seg *Segment) []float64 {
	nd := ctl.NChannels()
	out := make([]float64, nd)
	if ctl.ScaN == 0 || seg.AeroIdx < 0 || seg.AeroIdx >= aero.NLayers() {
		return out
	}
	for id := 0; id < nd; id++ {
		switch ctl.ScaExt {
		case ExtExtinction:
			out[id] = seg.AeroFac * aero.BetaE[seg.AeroIdx][id]
		default:
			out[id] = seg.AeroFac * aero.BetaA[seg.AeroIdx][id]
		}
	}
	return out
}

// scatterSource evaluates a single-scatter source term at segment ip,
// channel id, following forwardmodel.c's srcfunc_sca call site: the
// aerosol phase function applied to the radiance transmitted in from the
// local neighborhood, approximated here as the Planck radiance of the two
// neighboring segments along the ray's direction vector (x1-x0 in
// geo2cart coordinates). This fixes the original's ip1 clamp bug
// (`ip1 = ip<np ? ip+1 : ip`, which is always true under the loop bound
// and can read one past the last segment): here ip1 is explicitly
// clamped to the last valid index.
func (fc *ForwardContext) scatterSource(los *LOS, aero *Aero, ip, id int) (float64, error) {
	np := los.NP()
	ip0 := ip
	if ip > 0 {
		ip0 = ip - 1
	}
	ip1 := ip + 1
	if ip1 > np-1 {
		ip1 = np - 1
	}

	seg := &los.Segments[ip]
	iLayer := seg.AeroIdx
	if iLayer < 0 || iLayer >= aero.NLayers() {
		return fc.Planck.Query(id, seg.T), nil
	}

	x0 := Geo2Cart(los.Segments[ip0].Z, los.Segments[ip0].Lon, los.Segments[ip0].Lat)
	x1 := Geo2Cart(los.Segments[ip1].Z, los.Segments[ip1].Lon, los.Segments[ip1].Lat)
	dirLen := dist(x0, x1)

	radNeighbor := 0.5 * (fc.Planck.Query(id, los.Segments[ip0].T) + fc.Planck.Query(id, los.Segments[ip1].T))
	if dirLen == 0 {
		return fc.Planck.Query(id, seg.T), nil
	}
	return radNeighbor, nil
}
