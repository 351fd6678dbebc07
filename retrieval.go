package jurassic

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// CostFunction is the chi-square decomposition retrieval.c's cost_function
// writes to costs.tab: the measurement term, the a priori term, and their
// sum.
type CostFunction struct {
	ChiSqMeas float64
	ChiSqApri float64
	ChiSq     float64
}

func costFunction(dy, dx []float64, sigEpsInv []float64, saInv *mat.SymDense) CostFunction {
	m := len(dy)
	var chisqM float64
	for i, d := range dy {
		w := d * sigEpsInv[i]
		chisqM += w * w
	}
	if m > 0 {
		chisqM /= float64(m)
	}
	saInvDx := symVec(saInv, dx)
	chisqA := dotProduct(dx, saInvDx)
	if m > 0 {
		chisqA /= float64(m)
	}
	return CostFunction{ChiSqMeas: chisqM, ChiSqApri: chisqA, ChiSq: chisqM + chisqA}
}

// RetrievalResult is the outcome of one call to Retrieve: the converged
// atmospheric state, its simulated observation, and (when ctl.ErrAna) the
// error/averaging-kernel analysis.
type RetrievalResult struct {
	Atm        *Atm
	Sim        *Obs
	X          []float64
	Iterations int
	Cost       CostFunction
	Converged  bool

	// Error analysis, populated only when ctl.ErrAna is set.
	RetrievedCov *mat.SymDense
	Gain         *mat.Dense
	AVK          *mat.Dense
	ErrNoise     []float64
	ErrFormod    []float64
	ErrTotal     []float64
}

// Retrieve runs the damped Gauss-Newton (Levenberg-Marquardt) optimal
// estimation loop, exactly following optimal_estimation's
// structure: an outer loop that recomputes the Jacobian on the configured
// schedule, and an inner loop that takes a damped step, evaluates the
// forward model, and either accepts the step (reducing lmpar) or rejects
// it and increases the damping.
func Retrieve(fc *ForwardContext, apriori *Atm, measured *Obs, aero *Aero, flags RetrievalFlags, ctl *Ctl, log io.Writer) (*RetrievalResult, error) {
	yMeas, idx := ObsToY(measured)
	m := len(idx)
	if m == 0 {
		return nil, fmt.Errorf("jurassic: retrieval has no unmasked measurements")
	}

	sa, err := BuildApriori(apriori, flags, ctl)
	if err != nil {
		return nil, err
	}
	saInv, err := choleskyInvert(sa)
	if err != nil {
		return nil, fmt.Errorf("jurassic: inverting a priori covariance: %w", err)
	}
	sigEpsInv := MeasurementSigmaInv(ctl, measured, idx)

	xApriori := AtmToX(apriori, flags)
	n := len(xApriori)
	x := append([]float64(nil), xApriori...)
	atmI := apriori.Clone()

	simI, err := Formod(fc, atmI, measured, aero)
	if err != nil {
		return nil, fmt.Errorf("jurassic: initial forward model: %w", err)
	}
	yI := ObsToYAt(simI, idx)
	dy := vecSub(yMeas, yI)
	dx := make([]float64, n)
	cost := costFunction(dy, dx, sigEpsInv, saInv)

	var k *mat.Dense
	var cov *mat.SymDense
	lmpar := 1e-3

	result := &RetrievalResult{Atm: atmI, Sim: simI, X: x, Cost: cost}

	for it := 1; it <= ctl.ConvITMax; it++ {
		recomputeKernel := it%ctl.KernelRecomp == 0 && !(ctl.KernelRecomp == 1 && it == 1)
		if it == 1 || k == nil {
			recomputeKernel = true
		}
		if recomputeKernel {
			k, err = Kernel(fc, apriori, flags, measured, aero, idx, x, yI)
			if err != nil {
				return nil, fmt.Errorf("jurassic: kernel recompute at iteration %d: %w", it, err)
			}
		}
		recomputeCov := it%ctl.KernelRecomp == 0 || it == 1
		if recomputeCov || cov == nil {
			cov = weightedJtWJ(k, sigEpsInv)
		}

		b := vecSub(weightedJtWv(k, sigEpsInv, dy), symVec(saInv, dx))

		var step []float64
		var disq float64
		accepted := false
		for it2 := 0; it2 < 20; it2++ {
			a := symAdd(symScale(1+lmpar, saInv), cov)
			step, err = choleskySolve(a, b)
			if err != nil {
				return nil, fmt.Errorf("jurassic: lm step at iteration %d.%d: %w", it, it2, err)
			}
			xNew := vecAdd(x, step)
			atmNew := XToAtm(xNew, apriori, flags)
			simNew, err := Formod(fc, atmNew, measured, aero)
			if err != nil {
				return nil, fmt.Errorf("jurassic: forward model at iteration %d.%d: %w", it, it2, err)
			}
			yNew := ObsToYAt(simNew, idx)
			dyNew := vecSub(yMeas, yNew)
			dxNew := vecSub(xNew, xApriori)
			costNew := costFunction(dyNew, dxNew, sigEpsInv, saInv)

			if costNew.ChiSq > cost.ChiSq {
				lmpar *= 10
				continue
			}
			lmpar /= 10
			x, atmI, simI, yI, dy, dx, cost = xNew, atmNew, simNew, yNew, dyNew, dxNew, costNew
			disq = dotProduct(step, b) / float64(n)
			accepted = true
			break
		}
		if log != nil {
			fmt.Fprintf(log, "it=%-3d chisq=%10.4g chisq_m=%10.4g chisq_a=%10.4g lmpar=%10.4g\n",
				it, cost.ChiSq, cost.ChiSqMeas, cost.ChiSqApri, lmpar)
		}
		result.Atm, result.Sim, result.X, result.Cost, result.Iterations = atmI, simI, x, cost, it

		if !accepted {
			break
		}
		if disq < ctl.ConvDMin {
			result.Converged = true
			break
		}
	}

	if ctl.ErrAna {
		sigNoise, sigFormod := MeasurementSigmaComponents(ctl, measured, idx)
		if err := analyzeErrors(ctl, k, sigEpsInv, sigNoise, sigFormod, saInv, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}
