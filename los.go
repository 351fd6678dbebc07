package jurassic

// Segment is one point along a traced line of sight:
// the atmospheric state sampled there, the path length of the segment it
// represents, and the aerosol-layer assignment used by the scattering
// source term.
type Segment struct {
	Z, Lon, Lat float64
	P, T        float64
	Q           []float64 // mixing ratio per gas, sampled from atm
	K           []float64 // extinction per window, sampled from atm
	U           []float64 // column density per gas local to this segment
	DS          float64   // segment path length [km]

	AeroIdx int     // index into Aero.BetaE/BetaA/BetaS, -1 if none
	AeroFac float64 // mixing fraction in [0,1] for the assigned aerosol layer
}

// LOS is a traced pencil beam: zero or more segments plus an optional
// surface-termination temperature.
type LOS struct {
	Segments []Segment
	// TSurf > 0 marks a surface-terminated path and gives the surface skin
	// temperature used by the forward driver's surface emission term.
	TSurf float64
}

// NP returns np, the number of segments in the traced path. Zero means the
// ray never intersects the atmosphere (cold space).
func (l *LOS) NP() int { return len(l.Segments) }
