package jurassic

import "fmt"

// Obs is the observation geometry and measurement block: one entry per
// line of sight, each carrying an observer position, a view-point
// position the ray is aimed at, and a measured radiance/transmittance
// matrix indexed [channel][ray].
//
// A NaN in Rad[id][ir] is the mask sentinel: that channel/ray combination
// is excluded from the state/observation packing in pack.go and from the
// residual filtering in retrievalutil.RunDirList.
type Obs struct {
	Time    []float64 // per ray
	ObsZ    []float64
	ObsLon  []float64
	ObsLat  []float64
	VPZ     []float64
	VPLon   []float64
	VPLat   []float64
	Rad     [][]float64 // [channel][ray]
	Tau     [][]float64 // [channel][ray]
}

// NewObs allocates an Obs with nd channels and nr rays, all radiances and
// transmittances set to the NaN mask sentinel.
func NewObs(nd, nr int) *Obs {
	o := &Obs{
		Time:   make([]float64, nr),
		ObsZ:   make([]float64, nr),
		ObsLon: make([]float64, nr),
		ObsLat: make([]float64, nr),
		VPZ:    make([]float64, nr),
		VPLon:  make([]float64, nr),
		VPLat:  make([]float64, nr),
		Rad:    make([][]float64, nd),
		Tau:    make([][]float64, nd),
	}
	for id := 0; id < nd; id++ {
		o.Rad[id] = make([]float64, nr)
		o.Tau[id] = make([]float64, nr)
		for ir := 0; ir < nr; ir++ {
			o.Rad[id][ir] = nan
			o.Tau[id][ir] = nan
		}
	}
	return o
}

// NR returns nr, the number of rays.
func (o *Obs) NR() int { return len(o.Time) }

// ND returns nd, the number of channels, derived from the Rad matrix.
func (o *Obs) ND() int { return len(o.Rad) }

// Clone returns a deep copy of every per-ray and per-channel slice. The
// residual filter in retrievalutil masks obs in place and does not use it.
func (o *Obs) Clone() *Obs {
	out := *o
	out.Time = append([]float64(nil), o.Time...)
	out.ObsZ = append([]float64(nil), o.ObsZ...)
	out.ObsLon = append([]float64(nil), o.ObsLon...)
	out.ObsLat = append([]float64(nil), o.ObsLat...)
	out.VPZ = append([]float64(nil), o.VPZ...)
	out.VPLon = append([]float64(nil), o.VPLon...)
	out.VPLat = append([]float64(nil), o.VPLat...)
	out.Rad = make([][]float64, len(o.Rad))
	out.Tau = make([][]float64, len(o.Tau))
	for id := range o.Rad {
		out.Rad[id] = append([]float64(nil), o.Rad[id]...)
		out.Tau[id] = append([]float64(nil), o.Tau[id]...)
	}
	return &out
}

// Validate checks that every per-ray slice has length nr and every
// per-channel slice has length nd.
func (o *Obs) Validate(nd int) error {
	nr := o.NR()
	for _, s := range [][]float64{o.ObsZ, o.ObsLon, o.ObsLat, o.VPZ, o.VPLon, o.VPLat} {
		if len(s) != nr {
			return fmt.Errorf("jurassic: obs geometry slice length %d does not match %d rays", len(s), nr)
		}
	}
	if len(o.Rad) != nd || len(o.Tau) != nd {
		return fmt.Errorf("jurassic: obs rad/tau channel count (%d,%d) does not match %d channels", len(o.Rad), len(o.Tau), nd)
	}
	for id := range o.Rad {
		if len(o.Rad[id]) != nr || len(o.Tau[id]) != nr {
			return fmt.Errorf("jurassic: obs channel %d rad/tau length does not match %d rays", id, nr)
		}
	}
	return nil
}
