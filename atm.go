package jurassic

import "fmt"

// GridPoint is one level of an atmospheric state profile: a time/position
// tag plus pressure, temperature, per-gas volume mixing ratios and
// per-window extinction coefficients.
type GridPoint struct {
	Time float64
	Z    float64 // altitude [km]
	Lon  float64 // [deg]
	Lat  float64 // [deg]

	P float64 // pressure [hPa]
	T float64 // temperature [K]

	Q []float64 // volume mixing ratio per gas, len == ng
	K []float64 // extinction coefficient per window [km^-1], len == nw
}

// Atm is an ordered atmospheric profile. Points are kept sorted by
// ascending Z; Raytrace and Hydrostatic both depend on that ordering.
type Atm struct {
	Points []GridPoint
}

// NP returns np, the number of levels in the profile.
func (a *Atm) NP() int { return len(a.Points) }

// Clone returns a deep copy, used by the retrieval's state-perturbation
// loop so that a rejected Levenberg-Marquardt step can be rolled back
// without mutating the caller's atm.
func (a *Atm) Clone() *Atm {
	out := &Atm{Points: make([]GridPoint, len(a.Points))}
	for i, p := range a.Points {
		q := make([]float64, len(p.Q))
		copy(q, p.Q)
		k := make([]float64, len(p.K))
		copy(k, p.K)
		p.Q, p.K = q, k
		out.Points[i] = p
	}
	return out
}

// Validate checks the per-level invariants: p>0, T>0, 0<=q<=1 for every
// gas, k>=0 for every window, and ascending Z.
func (a *Atm) Validate(ng, nw int) error {
	lastZ := -1.0
	for i, p := range a.Points {
		if p.P <= 0 {
			return fmt.Errorf("jurassic: atm level %d has non-positive pressure %g", i, p.P)
		}
		if p.T <= 0 {
			return fmt.Errorf("jurassic: atm level %d has non-positive temperature %g", i, p.T)
		}
		if len(p.Q) != ng {
			return fmt.Errorf("jurassic: atm level %d has %d gas entries, want %d", i, len(p.Q), ng)
		}
		for ig, q := range p.Q {
			if q < 0 || q > 1 {
				return fmt.Errorf("jurassic: atm level %d gas %d mixing ratio %g out of [0,1]", i, ig, q)
			}
		}
		if len(p.K) != nw {
			return fmt.Errorf("jurassic: atm level %d has %d window entries, want %d", i, len(p.K), nw)
		}
		for iw, k := range p.K {
			if k < 0 {
				return fmt.Errorf("jurassic: atm level %d window %d extinction %g is negative", i, iw, k)
			}
		}
		if i > 0 && p.Z <= lastZ {
			return fmt.Errorf("jurassic: atm level %d altitude %g is not strictly above level %d altitude %g", i, p.Z, i-1, lastZ)
		}
		lastZ = p.Z
	}
	return nil
}

// atInterp linearly interpolates the profile at altitude z, clamping to the
// end levels outside [Points[0].Z, Points[last].Z]. It is used by Raytrace
// to sample (p, T, q, k) along a line of sight.
func (a *Atm) atInterp(z float64) GridPoint {
	n := len(a.Points)
	if n == 0 {
		return GridPoint{}
	}
	if n == 1 || z <= a.Points[0].Z {
		return a.Points[0]
	}
	if z >= a.Points[n-1].Z {
		return a.Points[n-1]
	}
	i := locateF64(zColumn(a.Points), z)
	lo, hi := a.Points[i], a.Points[i+1]
	t := (z - lo.Z) / (hi.Z - lo.Z)
	out := GridPoint{
		Time: lin(lo.Z, lo.Time, hi.Z, hi.Time, z),
		Z:    z,
		Lon:  lin(lo.Z, lo.Lon, hi.Z, hi.Lon, z),
		Lat:  lin(lo.Z, lo.Lat, hi.Z, hi.Lat, z),
		P:    lo.P * powLerp(hi.P/lo.P, t), // log-linear in pressure
		T:    lin(lo.Z, lo.T, hi.Z, hi.T, z),
		Q:    make([]float64, len(lo.Q)),
		K:    make([]float64, len(lo.K)),
	}
	for i := range out.Q {
		out.Q[i] = lin(lo.Z, lo.Q[i], hi.Z, hi.Q[i], z)
	}
	for i := range out.K {
		out.K[i] = lin(lo.Z, lo.K[i], hi.Z, hi.K[i], z)
	}
	return out
}

func zColumn(points []GridPoint) []float64 {
	z := make([]float64, len(points))
	for i, p := range points {
		z[i] = p.Z
	}
	return z
}
