package jurassic

import "math"

// RetrievalFlags selects which atmospheric quantities are part of the
// retrieval's state vector. Every included
// quantity contributes one state element per atm level (per gas/window for
// the vector quantities); a quantity left false is held fixed at its
// current atm value throughout the retrieval.
type RetrievalFlags struct {
	P bool
	T bool
	Q []bool // per gas, len == ctl.NGas()
	K []bool // per window, len == ctl.Windows
}

// clamp bounds applied to every retrieved atm quantity after each
// Levenberg-Marquardt step, matching optimal_estimation's x2atm clamp.
const (
	clampPMin = 5e-7
	clampPMax = 5e4
	clampTMin = 100.0
	clampTMax = 400.0
)

// AtmToX packs the atm levels selected by flags into a state vector x, in
// quantity-major order: P, then T, then each enabled gas, then each
// enabled window, each spanning every atm level.
func AtmToX(atm *Atm, flags RetrievalFlags) []float64 {
	np := atm.NP()
	var x []float64
	if flags.P {
		for _, p := range atm.Points {
			x = append(x, p.P)
		}
	}
	if flags.T {
		for _, p := range atm.Points {
			x = append(x, p.T)
		}
	}
	for ig, on := range flags.Q {
		if !on {
			continue
		}
		for i := 0; i < np; i++ {
			x = append(x, atm.Points[i].Q[ig])
		}
	}
	for iw, on := range flags.K {
		if !on {
			continue
		}
		for i := 0; i < np; i++ {
			x = append(x, atm.Points[i].K[iw])
		}
	}
	return x
}

// XToAtm rebuilds an atm from state vector x, starting from base (which
// supplies every quantity not included in flags) and clamping every
// retrieved value to the bounds x2atm enforces in the original: p in
// [5e-7,5e4], T in [100,400], q in [0,1], k >= 0.
func XToAtm(x []float64, base *Atm, flags RetrievalFlags) *Atm {
	out := base.Clone()
	np := out.NP()
	pos := 0
	if flags.P {
		for i := 0; i < np; i++ {
			out.Points[i].P = clampRange(x[pos], clampPMin, clampPMax)
			pos++
		}
	}
	if flags.T {
		for i := 0; i < np; i++ {
			out.Points[i].T = clampRange(x[pos], clampTMin, clampTMax)
			pos++
		}
	}
	for ig, on := range flags.Q {
		if !on {
			continue
		}
		for i := 0; i < np; i++ {
			out.Points[i].Q[ig] = clamp01(x[pos])
			pos++
		}
	}
	for iw, on := range flags.K {
		if !on {
			continue
		}
		for i := 0; i < np; i++ {
			out.Points[i].K[iw] = math.Max(0, x[pos])
			pos++
		}
	}
	return out
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// NX returns the length of the state vector AtmToX would produce for an
// atm of np levels under flags.
func NX(np int, flags RetrievalFlags) int {
	n := 0
	if flags.P {
		n += np
	}
	if flags.T {
		n += np
	}
	for _, on := range flags.Q {
		if on {
			n += np
		}
	}
	for _, on := range flags.K {
		if on {
			n += np
		}
	}
	return n
}

// obsIndex is one coordinate of a packed observation vector.
type obsIndex struct {
	id, ir int
}

// ObsToY packs every non-masked (non-NaN) Rad entry of obs into a
// measurement vector y, scanning channel-major (matching the original's
// id/ir loop nesting) and returns the coordinates it used so the same
// positions can be pulled from a different Obs (e.g. the simulated
// counterpart) with ObsToYAt.
func ObsToY(obs *Obs) (y []float64, idx []obsIndex) {
	for id := range obs.Rad {
		for ir := range obs.Rad[id] {
			if math.IsNaN(obs.Rad[id][ir]) {
				continue
			}
			y = append(y, obs.Rad[id][ir])
			idx = append(idx, obsIndex{id: id, ir: ir})
		}
	}
	return y, idx
}

// ObsToYAt pulls the values at idx (as produced by ObsToY on a possibly
// different Obs) out of obs, without re-checking its own mask. This is
// used to build the simulated-radiance vector at exactly the positions
// the measured vector's mask selected.
func ObsToYAt(obs *Obs, idx []obsIndex) []float64 {
	y := make([]float64, len(idx))
	for i, c := range idx {
		y[i] = obs.Rad[c.id][c.ir]
	}
	return y
}
