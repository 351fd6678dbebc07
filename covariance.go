package jurassic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// quantityBlocks returns, for a given flags/atm shape, the half-open index
// ranges of the state vector occupied by each enabled quantity, in the
// same order AtmToX appends them. Correlations in BuildApriori are only
// applied within a block: different quantities (or the same quantity at
// different gas/window indices) are uncorrelated, exactly as
// set_cov_apr's "same quantity" test requires.
func quantityBlocks(np int, flags RetrievalFlags) [][2]int {
	var blocks [][2]int
	pos := 0
	if flags.P {
		blocks = append(blocks, [2]int{pos, pos + np})
		pos += np
	}
	if flags.T {
		blocks = append(blocks, [2]int{pos, pos + np})
		pos += np
	}
	for _, on := range flags.Q {
		if on {
			blocks = append(blocks, [2]int{pos, pos + np})
			pos += np
		}
	}
	for _, on := range flags.K {
		if on {
			blocks = append(blocks, [2]int{pos, pos + np})
			pos += np
		}
	}
	return blocks
}

// corrFunction is the exponential, separable horizontal/vertical
// correlation length model from retrieval.c's corr_function:
// exp(-great_circle_distance/ch - |z0-z1|/cz).
func corrFunction(p0, p1 GridPoint, cz, ch float64) float64 {
	if cz <= 0 || ch <= 0 {
		if p0.Z == p1.Z && p0.Lon == p1.Lon && p0.Lat == p1.Lat {
			return 1
		}
		return 0
	}
	c0 := Geo2Cart(0, p0.Lon, p0.Lat)
	c1 := Geo2Cart(0, p1.Lon, p1.Lat)
	return math.Exp(-dist(c0, c1)/ch - math.Abs(p0.Z-p1.Z)/cz)
}

// BuildApriori assembles the a priori covariance matrix S_a:
// diagonal variance from the per-quantity error parameter (percent of the
// current value for p/q, absolute for T/k), with off-diagonal entries
// within the same quantity block set by corrFunction when both a
// vertical and horizontal correlation length are configured.
func BuildApriori(atm *Atm, flags RetrievalFlags, ctl *Ctl) (*mat.SymDense, error) {
	np := atm.NP()
	n := NX(np, flags)
	if n == 0 {
		return nil, fmt.Errorf("jurassic: a priori covariance requested with an empty state vector")
	}
	sigma := make([]float64, n)
	points := make([]GridPoint, n)
	cz := make([]float64, n)
	ch := make([]float64, n)

	pos := 0
	if flags.P {
		for i := 0; i < np; i++ {
			sigma[pos] = ctl.ErrPress / 100 * atm.Points[i].P
			points[pos] = atm.Points[i]
			cz[pos], ch[pos] = ctl.ErrPressCZ, ctl.ErrPressCH
			pos++
		}
	}
	if flags.T {
		for i := 0; i < np; i++ {
			sigma[pos] = ctl.ErrTemp
			points[pos] = atm.Points[i]
			cz[pos], ch[pos] = ctl.ErrTempCZ, ctl.ErrTempCH
			pos++
		}
	}
	for ig, on := range flags.Q {
		if !on {
			continue
		}
		for i := 0; i < np; i++ {
			sigma[pos] = ctl.ErrQ[ig] / 100 * atm.Points[i].Q[ig]
			points[pos] = atm.Points[i]
			cz[pos], ch[pos] = ctl.ErrQCZ[ig], ctl.ErrQCH[ig]
			pos++
		}
	}
	for iw, on := range flags.K {
		if !on {
			continue
		}
		for i := 0; i < np; i++ {
			sigma[pos] = ctl.ErrK[iw]
			points[pos] = atm.Points[i]
			cz[pos], ch[pos] = ctl.ErrKCZ[iw], ctl.ErrKCH[iw]
			pos++
		}
	}

	blocks := quantityBlocks(np, flags)
	sa := mat.NewSymDense(n, nil)
	for _, b := range blocks {
		for i := b[0]; i < b[1]; i++ {
			for j := i; j < b[1]; j++ {
				var v float64
				if i == j {
					v = sigma[i] * sigma[i]
				} else {
					v = sigma[i] * sigma[j] * corrFunction(points[i], points[j], cz[i], ch[i])
				}
				sa.SetSym(i, j, v)
			}
		}
	}
	return sa, nil
}

// MeasurementSigmaInv returns 1/sigma_eps for each packed measurement
// index, combining instrument noise and forward-model error in quadrature
// (retrieval.c's set_cov_meas): sig_eps_inv[i] = 1/sqrt(noise_i^2 +
// formod_i^2), with formod_i = |err_formod[id]/100 * rad_i|.
func MeasurementSigmaInv(ctl *Ctl, meas *Obs, idx []obsIndex) []float64 {
	sigNoise, sigFormod := MeasurementSigmaComponents(ctl, meas, idx)
	out := make([]float64, len(idx))
	for i := range idx {
		v := sigNoise[i]*sigNoise[i] + sigFormod[i]*sigFormod[i]
		if v <= 0 {
			out[i] = 0
			continue
		}
		out[i] = 1 / math.Sqrt(v)
	}
	return out
}

// MeasurementSigmaComponents returns the two error terms set_cov_meas
// combines in quadrature, kept separate so the error analysis can report
// how much of the retrieval's propagated error came from instrument noise
// versus forward-model error: sig_noise[i] = ctl.ErrNoise[id], sig_formod[i]
// = |ctl.ErrFormod[id]/100 * rad_i|.
func MeasurementSigmaComponents(ctl *Ctl, meas *Obs, idx []obsIndex) (sigNoise, sigFormod []float64) {
	sigNoise = make([]float64, len(idx))
	sigFormod = make([]float64, len(idx))
	for i, c := range idx {
		sigNoise[i] = ctl.ErrNoise[c.id]
		sigFormod[i] = math.Abs(ctl.ErrFormod[c.id] / 100 * meas.Rad[c.id][c.ir])
	}
	return sigNoise, sigFormod
}
