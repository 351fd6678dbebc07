package jurassic

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Formod is the forward driver: given an atmospheric state,
// observation geometry and aerosol catalog, it returns simulated radiance
// (or brightness temperature, if ctl.WriteBBT) and transmittance for every
// channel and ray.
//
// It rebalances atm's pressure profile hydrostatically before tracing
// (perturbing temperature during retrieval leaves pressure out of
// hydrostatic balance), traces and integrates one pencil beam per ray
// concurrently, applies FOV convolution, and finally restores the NaN mask
// from the input obs: every ray is still traced and integrated, but a
// masked channel/ray always comes back NaN (its computed value is
// discarded), mirroring the mask-save/restore convention around the
// original formod routine.
//
// Ray tracing and integration fan out across GOMAXPROCS goroutines using
// errgroup.Group rather than a bare sync.WaitGroup, because a bad ray here
// must surface as an error from Wait, not just silently corrupt a result
// slot. The group has no context, so rays already started still run to
// completion after a failure.
func Formod(fc *ForwardContext, atm *Atm, obs *Obs, aero *Aero) (*Obs, error) {
	if err := Hydrostatic(atm); err != nil {
		return nil, fmt.Errorf("jurassic: formod hydrostatic rebalance: %w", err)
	}

	nr := obs.NR()
	raw := make([]*PencilResult, nr)

	nprocs := runtime.GOMAXPROCS(0)
	var g errgroup.Group
	g.SetLimit(nprocs)
	for ir := 0; ir < nr; ir++ {
		ir := ir
		g.Go(func() error {
			los, err := Raytrace(fc.Ctl, atm, aero, obs, ir)
			if err != nil {
				return fmt.Errorf("ray %d: %w", ir, err)
			}
			pr, err := fc.IntegratePencil(los, aero)
			if err != nil {
				return fmt.Errorf("ray %d: %w", ir, err)
			}
			raw[ir] = pr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("jurassic: formod: %w", err)
	}

	combined, err := fc.ConvolveFOV(obs, raw)
	if err != nil {
		return nil, fmt.Errorf("jurassic: formod fov convolution: %w", err)
	}

	out := NewObs(fc.Ctl.NChannels(), nr)
	copy(out.Time, obs.Time)
	copy(out.ObsZ, obs.ObsZ)
	copy(out.ObsLon, obs.ObsLon)
	copy(out.ObsLat, obs.ObsLat)
	copy(out.VPZ, obs.VPZ)
	copy(out.VPLon, obs.VPLon)
	copy(out.VPLat, obs.VPLat)

	for id, nu := range fc.Ctl.Channels {
		for ir := 0; ir < nr; ir++ {
			if math.IsNaN(obs.Rad[id][ir]) {
				continue // masked: stays NaN
			}
			rad := combined[ir].Rad[id]
			if fc.Ctl.WriteBBT {
				rad = Brightness(rad, nu)
			}
			out.Rad[id][ir] = rad
			out.Tau[id][ir] = combined[ir].Tau[id]
		}
	}
	return out, nil
}
