package jurassic

import "fmt"

// fovWindow bounds how far from ray ir formod_fov looks for same-time
// neighbors to build the altitude profile it convolves with the FOV shape
// (NFOV in forwardmodel.c). The original's NFOV is a compile-time constant
// from a header not present in the retrievable source; this value was
// chosen generously enough that realistic FOV shapes (a few tenths of a
// kilometer of support) stay well inside the gathered neighborhood.
const fovWindow = 5

// ConvolveFOV combines the raw per-ray pencil results into field-of-view
// weighted results, following forwardmodel.c's formod_fov: for each ray it
// builds the view-point-altitude profile of its same-observation-time
// neighbors (within fovWindow rays on either side), then re-samples that
// profile at obs.VPZ[ir]+dz for every (offset, weight) point of the FOV
// shape, linearly interpolating between the neighborhood's bracketing
// altitudes, and accumulates the weighted sum normalized by the sum of
// weights. A ray whose same-time neighborhood has fewer than two entries
// cannot be convolved and is a hard error, exactly as formod_fov's ERRMSG
// is.
//
// When ctl.FOV is "-" or empty, FOV convolution is disabled and raw is
// returned unchanged.
func (fc *ForwardContext) ConvolveFOV(obs *Obs, raw []*PencilResult) ([]*PencilResult, error) {
	if !fc.FOVOn {
		return raw, nil
	}
	nr := obs.NR()
	nd := fc.Ctl.NChannels()
	out := make([]*PencilResult, nr)

	n := len(fc.FOV.X)

	for ir := 0; ir < nr; ir++ {
		lo := ir - fovWindow
		if lo < 0 {
			lo = 0
		}
		hi := ir + 1 + fovWindow
		if hi > nr {
			hi = nr
		}

		var z []float64
		var rad, tau [][]float64
		for id := 0; id < nd; id++ {
			rad = append(rad, nil)
			tau = append(tau, nil)
		}
		for ir2 := lo; ir2 < hi; ir2++ {
			if obs.Time[ir2] != obs.Time[ir] {
				continue
			}
			z = append(z, obs.VPZ[ir2])
			for id := 0; id < nd; id++ {
				rad[id] = append(rad[id], raw[ir2].Rad[id])
				tau[id] = append(tau[id], raw[ir2].Tau[id])
			}
		}
		if len(z) < 2 {
			return nil, fmt.Errorf("jurassic: cannot apply FOV convolution to ray %d: fewer than 2 same-time neighbors in range [%d,%d)", ir, lo, hi)
		}

		res := &PencilResult{Rad: make([]float64, nd), Tau: make([]float64, nd)}
		wsum := 0.0
		for i := 0; i < n; i++ {
			zfov := obs.VPZ[ir] + fc.FOV.X[i]
			idx := clampIndex(locateF64(z, zfov), len(z)-2)
			w := fc.FOV.Y[i]
			for id := 0; id < nd; id++ {
				res.Rad[id] += w * lin(z[idx], rad[id][idx], z[idx+1], rad[id][idx+1], zfov)
				res.Tau[id] += w * lin(z[idx], tau[id][idx], z[idx+1], tau[id][idx+1], zfov)
			}
			wsum += w
		}
		if wsum != 0 {
			for id := 0; id < nd; id++ {
				res.Rad[id] /= wsum
				res.Tau[id] /= wsum
			}
		}
		out[ir] = res
	}
	return out, nil
}
