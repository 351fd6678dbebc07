package jurassic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// analyzeErrors computes the retrieved covariance, gain matrix, averaging
// kernel and propagated noise/forward-model error (retrieval.c's error
// analysis branch of optimal_estimation, run when ctl.ErrAna is set):
//
//	cov_ret = (K^T S_eps^-1 K + S_a^-1)^-1
//	gain    = cov_ret * K^T * S_eps^-1
//	avk     = gain * K
//	err_noise_i  = || gain row_i applied to sigma_noise ||
//	err_formod_i = || gain row_i applied to sigma_formod ||
//
// sigNoise and sigFormod are the two components set_cov_meas combines in
// quadrature into sigEpsInv (MeasurementSigmaComponents); they are threaded
// through separately here because retrieval.c reports err_noise.tab and
// err_formod.tab as distinct quantities, not the same vector twice.
func analyzeErrors(ctl *Ctl, k *mat.Dense, sigEpsInv, sigNoise, sigFormod []float64, saInv *mat.SymDense, result *RetrievalResult) error {
	m, n := k.Dims()
	cov := weightedJtWJ(k, sigEpsInv)
	total := symAdd(cov, saInv)
	covRet, err := choleskyInvert(total)
	if err != nil {
		return fmt.Errorf("jurassic: retrieved covariance is singular: %w", err)
	}

	// gain = covRet * K^T * diag(sigEpsInv^2)
	gain := mat.NewDense(n, m, nil)
	for a := 0; a < n; a++ {
		for i := 0; i < m; i++ {
			var sum float64
			for b := 0; b < n; b++ {
				sum += covRet.At(a, b) * k.At(i, b)
			}
			gain.Set(a, i, sum*sigEpsInv[i]*sigEpsInv[i])
		}
	}

	avk := mat.NewDense(n, n, nil)
	avk.Mul(gain, k)

	errNoise := make([]float64, n)
	errFormod := make([]float64, n)
	errTotal := make([]float64, n)
	for a := 0; a < n; a++ {
		var sn, sf float64
		for i := 0; i < m; i++ {
			gv := gain.At(a, i)
			sn += gv * gv * sigNoise[i] * sigNoise[i]
			sf += gv * gv * sigFormod[i] * sigFormod[i]
		}
		errNoise[a] = math.Sqrt(sn)
		errFormod[a] = math.Sqrt(sf)
		errTotal[a] = math.Sqrt(covRet.At(a, a))
	}

	result.RetrievedCov = covRet
	result.Gain = gain
	result.AVK = avk
	result.ErrNoise = errNoise
	result.ErrFormod = errFormod
	result.ErrTotal = errTotal
	return nil
}

// QuantityAnalysis is the per-quantity summary analyze_avk_quantity writes
// for one retrieved quantity block (e.g. temperature, one gas, one
// window): the row sums of its averaging-kernel sub-block (contribution)
// and the reciprocal of its diagonal (resolution).
type QuantityAnalysis struct {
	Contribution []float64
	Resolution   []float64
}

// AnalyzeAVK splits the averaging kernel into per-quantity blocks and
// computes each block's contribution and resolution, following
// retrieval.c's analyze_avk/analyze_avk_quantity.
func AnalyzeAVK(avk *mat.Dense, np int, flags RetrievalFlags) []QuantityAnalysis {
	blocks := quantityBlocks(np, flags)
	out := make([]QuantityAnalysis, len(blocks))
	for bi, b := range blocks {
		size := b[1] - b[0]
		contrib := make([]float64, size)
		res := make([]float64, size)
		for i := 0; i < size; i++ {
			row := b[0] + i
			var sum float64
			for j := b[0]; j < b[1]; j++ {
				sum += avk.At(row, j)
			}
			contrib[i] = sum
			d := avk.At(row, row)
			if d != 0 {
				res[i] = 1 / d
			}
		}
		out[bi] = QuantityAnalysis{Contribution: contrib, Resolution: res}
	}
	return out
}

// FlattenQuantityAnalysis concatenates analysis's per-block contribution
// and resolution vectors back into the quantity-major order AtmToX packs a
// state vector in, so XToAtm can fold them back into atm-shaped profiles
// for atm_cont.tab/atm_res.tab.
func FlattenQuantityAnalysis(analysis []QuantityAnalysis) (contribution, resolution []float64) {
	for _, a := range analysis {
		contribution = append(contribution, a.Contribution...)
		resolution = append(resolution, a.Resolution...)
	}
	return contribution, resolution
}
