package jurassic

import "fmt"

// Raytrace builds the line of sight for ray ir by walking a straight path
// between the observer position (obs.ObsZ/ObsLon/ObsLat) and the view-point
// position (obs.VPZ/VPLon/VPLat), sampling the atmospheric profile at each
// crossed level.
//
// Geometry is classified by the tangent altitude of that straight path
// (geo.go's tangentAltitude), matching forwardmodel.c's raytrace/formod
// split into cold-space, atmosphere-only and surface-terminated cases:
//
//   - tangent altitude above the top of atm: the path never touches the
//     atmosphere at all. Raytrace returns an empty LOS (np=0); the forward
//     driver treats that as rad=0, tau=1 on every channel.
//   - tangent altitude below the bottom of atm: the path is clipped at the
//     lowest level and marked surface-terminated, with TSurf taken from
//     the bottom level's temperature.
//   - otherwise: a plain atmosphere-only path between the two endpoints.
//
// This is a 1-D simplification of full 3-D geodetic ray tracing: atm is
// treated as a single vertical column and lon/lat are carried along by
// linear interpolation for bookkeeping only.
func Raytrace(ctl *Ctl, atm *Atm, aero *Aero, obs *Obs, ir int) (*LOS, error) {
	if atm.NP() < 2 {
		return nil, fmt.Errorf("jurassic: raytrace requires at least two atm levels, got %d", atm.NP())
	}
	if ir < 0 || ir >= obs.NR() {
		return nil, fmt.Errorf("jurassic: raytrace ray index %d out of range [0,%d)", ir, obs.NR())
	}

	z0, lon0, lat0 := obs.ObsZ[ir], obs.ObsLon[ir], obs.ObsLat[ir]
	z1, lon1, lat1 := obs.VPZ[ir], obs.VPLon[ir], obs.VPLat[ir]

	zTop := atm.Points[atm.NP()-1].Z
	zBot := atm.Points[0].Z

	tAlt := tangentAltitude(z0, lon0, lat0, z1, lon1, lat1)
	if tAlt > zTop {
		return &LOS{}, nil
	}

	surfaceHit := tAlt < zBot
	zLo, zHi := z0, z1
	if zLo > zHi {
		zLo, zHi = zHi, zLo
	}
	if surfaceHit {
		if zLo < zBot {
			zLo = zBot
		}
	}
	if zHi > zTop {
		zHi = zTop
	}

	levels := levelsBetween(atm, zLo, zHi)
	if len(levels) < 1 {
		levels = []float64{zLo, zHi}
	}

	descending := z0 > z1
	if descending {
		reverseFloats(levels)
	}

	p0 := Geo2Cart(z0, lon0, lat0)
	p1 := Geo2Cart(z1, lon1, lat1)
	totalDist := dist(p0, p1)
	totalSpan := zHi - zLo
	if totalSpan <= 0 {
		totalSpan = 1
	}

	los := &LOS{}
	ng := atm.Points[0].Q
	_ = ng
	naero := aero.NLayers()

	for i, z := range levels {
		gp := atm.atInterp(z)
		frac := (z - zLo) / totalSpan
		lon := lin(0, lon0, 1, lon1, frac)
		lat := lin(0, lat0, 1, lat1, frac)

		var ds float64
		switch {
		case len(levels) == 1:
			ds = totalDist
		case i == 0:
			ds = totalDist * (levels[1] - levels[0]) / (2 * totalSpan) * sign(z1-z0, descending)
			ds = absF(ds)
		case i == len(levels)-1:
			ds = totalDist * (levels[i] - levels[i-1]) / (2 * totalSpan)
			ds = absF(ds)
		default:
			ds = totalDist * (levels[i+1] - levels[i-1]) / (2 * totalSpan)
			ds = absF(ds)
		}

		seg := Segment{
			Z: z, Lon: lon, Lat: lat,
			P: gp.P, T: gp.T,
			Q:  append([]float64(nil), gp.Q...),
			K:  append([]float64(nil), gp.K...),
			DS: ds,
		}

		seg.AeroIdx, seg.AeroFac = assignAero(naero, z)

		// U holds the column density local to this segment (gas amount
		// along this one step of the path, at this step's own p/T), which
		// is what GasChannelTable.EpsAt expects: the emissivity of a
		// homogeneous path element of that amount.
		seg.U = make([]float64, len(gp.Q))
		n := numberDensity(gp.P, gp.T)
		for ig, q := range gp.Q {
			seg.U[ig] = q * n * ds * 1e5 // km -> cm
		}

		los.Segments = append(los.Segments, seg)
	}

	if surfaceHit {
		los.TSurf = atm.Points[0].T
	}
	return los, nil
}

// levelsBetween returns the atm level altitudes that fall within [zLo,zHi],
// plus the endpoints themselves, sorted ascending.
func levelsBetween(atm *Atm, zLo, zHi float64) []float64 {
	out := []float64{zLo}
	for _, p := range atm.Points {
		if p.Z > zLo && p.Z < zHi {
			out = append(out, p.Z)
		}
	}
	if zHi != zLo {
		out = append(out, zHi)
	}
	return out
}

func reverseFloats(xs []float64) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func sign(x float64, descending bool) float64 {
	if descending {
		return -x
	}
	return x
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// assignAero maps an altitude to the discrete aerosol layer catalog by
// 1 km bucket: layer i covers [i, i+1) km (z truncated to an integer),
// clamped to the catalog's first and last layers. It returns -1, 0 when
// the catalog is empty.
func assignAero(naero int, z float64) (int, float64) {
	if naero == 0 {
		return -1, 0
	}
	idx := int(z)
	if idx < 0 {
		idx = 0
	}
	if idx >= naero {
		idx = naero - 1
	}
	return idx, 1.0
}
