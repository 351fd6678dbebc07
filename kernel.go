package jurassic

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// relStep is the relative finite-difference step used to perturb each
// state element when building the Jacobian, chosen to be resolvable in the
// clamp bounds pack.go enforces (a few K or a fraction of a percent).
const relStep = 1e-3

// Kernel computes the Jacobian K (m observations by n state elements) of
// the forward model at x0, by forward-differencing one state element at a
// time. Columns are independent forward-model evaluations and are fanned
// out across GOMAXPROCS goroutines with errgroup.Group, the same
// concurrency idiom forward.go uses for pencil rays, so the first column
// that fails has its error returned by Wait; other columns are not
// cancelled.
func Kernel(fc *ForwardContext, base *Atm, flags RetrievalFlags, obs *Obs, aero *Aero, idx []obsIndex, x0 []float64, y0 []float64) (*mat.Dense, error) {
	n := len(x0)
	m := len(idx)
	k := mat.NewDense(m, n, nil)

	nprocs := runtime.GOMAXPROCS(0)
	var g errgroup.Group
	g.SetLimit(nprocs)

	for j := 0; j < n; j++ {
		j := j
		g.Go(func() error {
			xPerturbed := append([]float64(nil), x0...)
			step := relStep * (absF(x0[j]) + 1)
			xPerturbed[j] += step

			atmP := XToAtm(xPerturbed, base, flags)
			simP, err := Formod(fc, atmP, obs, aero)
			if err != nil {
				return fmt.Errorf("jurassic: kernel column %d: %w", j, err)
			}
			yP := ObsToYAt(simP, idx)
			for i := 0; i < m; i++ {
				k.Set(i, j, (yP[i]-y0[i])/step)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return k, nil
}
