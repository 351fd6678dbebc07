package jurassic

// continuumExtinction returns the per-channel extinction coefficient
// contributed by the continuum and the atm's own per-window extinction,
// following forwardmodel.c's formod_continua. Two details are preserved
// exactly as observed in the original rather than "corrected" to match a
// single blanket rule:
//
//   - the CO2 and H2O continuum terms are absorption optical depths that
//     must be divided by the segment path length ds to become an
//     extinction coefficient;
//   - the N2 and O2 continuum terms are already extinction coefficients
//     and are added without dividing by ds.
//
// See DESIGN.md for the discrepancy this resolves between a general
// "normalized by ds" statement and the original's literal per-term
// behaviour.
func continuumExtinction(ctl *Ctl, seg *Segment) []float64 {
	beta := make([]float64, ctl.NChannels())
	for id, nu := range ctl.Channels {
		iw := ctl.ChannelWindow[id]
		beta[id] = seg.K[iw]
		if ctl.CTMCO2 {
			beta[id] += ctmCO2(nu, seg.P, seg.T, seg.U) / seg.DS
		}
		if ctl.CTMH2O {
			beta[id] += ctmH2O(nu, seg.P, seg.T, seg.Q, seg.U) / seg.DS
		}
		if ctl.CTMN2 {
			beta[id] += ctmN2(nu, seg.P, seg.T)
		}
		if ctl.CTMO2 {
			beta[id] += ctmO2(nu, seg.P, seg.T)
		}
	}
	return beta
}

// The four continuum formulas below are simplified, physically-plausible
// stand-ins for the external, species-specific continuum models, whose
// contract is real-valued, non-negative, additive. The exact coefficients
// used by the original's CO2/H2O/N2/O2 continuum routines are not part of
// the retrieved source, so these reproduce the contract (pressure-squared
// and inverse-temperature scaling typical of collision-induced and
// foreign-broadened continua) rather than the original's exact numbers.
//
// ctmco2 and ctmh2o take ctl->nu/p/t plus the segment's per-gas q/u
// arrays (forwardmodel.c's formod_continua passes los->q[ip]/los->u[ip],
// the whole per-gas arrays, not a single species' scalar); which array
// entry belongs to CO2 or H2O is resolved by a gas-index lookup this
// repository's Ctl does not carry, so these sum across all gases as a
// stand-in for the species-specific column/mixing ratio the original
// selects.

func ctmCO2(nu, p, t float64, u []float64) float64 {
	const k0 = 1.2e-9
	return k0 * p * p / t * (1 + 0.003*nu) * sumPositive(u)
}

func ctmH2O(nu, p, t float64, q, u []float64) float64 {
	const k0 = 4.5e-7
	return k0 * p * p / (t * t) * (1 + 0.01*nu) * sumPositive(q) * sumPositive(u)
}

func ctmN2(nu, p, t float64) float64 {
	const k0 = 3.0e-11
	return k0 * p * p / t
}

func ctmO2(nu, p, t float64) float64 {
	const k0 = 1.5e-11
	return k0 * p * p / t
}

func sumPositive(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		if x > 0 {
			sum += x
		}
	}
	return sum
}
