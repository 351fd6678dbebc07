package retrievalutil

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	jurassic "github.com/paul-f-baumeister/jurassic-scatter"
)

// RunDirList runs the retrieval for every directory listed in
// dirlistPath, one line per directory, following retrieval.c's main():
// for each directory, read atm_apr.tab/obs_meas.tab, retrieve, then filter
// out measurements whose relative residual exceeds ctl.ResMax and redo the
// retrieval while any bad measurements remain.
func RunDirList(cfg *Cfg, ctlPath, dirlistPath string) error {
	rc, err := ParseCtl(ctlPath)
	if err != nil {
		return err
	}

	fc, err := jurassic.NewForwardContext(rc.Ctl, rc.TableBase, rc.FilterFiles)
	if err != nil {
		return fmt.Errorf("retrievalutil: building forward context: %w", err)
	}

	dirs, err := readLines(dirlistPath)
	if err != nil {
		return fmt.Errorf("retrievalutil: reading dirlist %s: %w", dirlistPath, err)
	}

	logW, closeLog, err := openLog(cfg.GetString("log_file"))
	if err != nil {
		return err
	}
	defer closeLog()

	ng, nw := rc.Ctl.NGas(), rc.Ctl.Windows
	for _, dir := range dirs {
		if err := runOneDir(fc, rc, dir, ng, nw, cfg.GetString("output_dir"), logW, cfg.GetBool("verbose")); err != nil {
			return fmt.Errorf("retrievalutil: directory %s: %w", dir, err)
		}
	}
	return nil
}

func runOneDir(fc *jurassic.ForwardContext, rc *RetrievalConfig, dir string, ng, nw int, outDir string, logW *bufio.Writer, verbose bool) error {
	atm, err := ReadAtm(filepath.Join(dir, "atm_apr.tab"), ng, nw)
	if err != nil {
		return err
	}
	obs, err := ReadObs(filepath.Join(dir, "obs_meas.tab"), rc.Ctl.NChannels())
	if err != nil {
		return err
	}

	var aero jurassic.Aero // no aerosol catalog file is read here; an empty catalog disables scattering.

	var result *jurassic.RetrievalResult
	for {
		var logDst *bufio.Writer
		if verbose {
			logDst = logW
		}
		result, err = jurassic.Retrieve(fc, atm, obs, &aero, rc.Flags, rc.Ctl, logDst)
		if err != nil {
			return err
		}
		if logW != nil {
			logW.Flush()
		}

		if rc.Ctl.ResMax <= 0 {
			break
		}
		nbad := filterResiduals(obs, result.Sim, rc.Ctl.ResMax)
		if nbad == 0 {
			break
		}
		if m, _ := jurassic.ObsToY(obs); len(m) == 0 {
			break
		}
	}

	return writeResults(outDir, result, rc, ng, nw)
}

// filterResiduals masks out (sets to NaN in both obs and sim, mirroring
// the original's NaN-both convention) every measurement whose relative
// residual |1 - sim/meas| exceeds resmax percent, and returns how many it
// masked. This is the redo-while-bad-measurements-remain loop from
// retrieval.c's main().
func filterResiduals(obs, sim *jurassic.Obs, resmaxPercent float64) int {
	nbad := 0
	for id := range obs.Rad {
		for ir := range obs.Rad[id] {
			meas := obs.Rad[id][ir]
			if math.IsNaN(meas) {
				continue
			}
			s := sim.Rad[id][ir]
			if math.Abs(1-s/meas) > resmaxPercent/100 {
				obs.Rad[id][ir] = math.NaN()
				sim.Rad[id][ir] = math.NaN()
				nbad++
			}
		}
	}
	return nbad
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func openLog(path string) (*bufio.Writer, func(), error) {
	if path == "" || path == "-" {
		w := bufio.NewWriter(os.Stdout)
		return w, func() { w.Flush() }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("retrievalutil: opening log file %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	return w, func() { w.Flush(); f.Close() }, nil
}

// writeResults writes costs.tab, atm_final.tab and obs_final.tab for every
// retrieval, and, when rc.Ctl.ErrAna is set, the error-analysis files
// optimal_estimation writes after converging: matrix_cov_ret.tab,
// matrix_gain.tab, matrix_avk.tab, err_total.tab, err_noise.tab,
// err_formod.tab, atm_cont.tab and atm_res.tab.
func writeResults(outDir string, result *jurassic.RetrievalResult, rc *RetrievalConfig, ng, nw int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	if err := writeFile(outDir, "costs.tab", func(w *bufio.Writer) error {
		if err := WriteCostsHeader(w); err != nil {
			return err
		}
		m, _ := jurassic.ObsToY(result.Sim)
		return WriteCostsLine(w, result.Iterations, result.Cost, len(m), len(result.X))
	}); err != nil {
		return err
	}

	if err := writeFile(outDir, "atm_final.tab", func(w *bufio.Writer) error {
		return WriteAtm(w, result.Atm, ng, nw)
	}); err != nil {
		return err
	}

	if err := writeFile(outDir, "obs_final.tab", func(w *bufio.Writer) error {
		return WriteObs(w, result.Sim, rc.Ctl.NChannels())
	}); err != nil {
		return err
	}

	if !rc.Ctl.ErrAna {
		return nil
	}

	if err := writeFile(outDir, "matrix_cov_ret.tab", func(w *bufio.Writer) error {
		return WriteMatrix(w, result.RetrievedCov)
	}); err != nil {
		return err
	}
	if err := writeFile(outDir, "matrix_gain.tab", func(w *bufio.Writer) error {
		return WriteMatrix(w, result.Gain)
	}); err != nil {
		return err
	}
	if err := writeFile(outDir, "matrix_avk.tab", func(w *bufio.Writer) error {
		return WriteMatrix(w, result.AVK)
	}); err != nil {
		return err
	}
	if err := writeFile(outDir, "err_total.tab", func(w *bufio.Writer) error {
		return WriteStddev(w, "total", result.ErrTotal)
	}); err != nil {
		return err
	}
	if err := writeFile(outDir, "err_noise.tab", func(w *bufio.Writer) error {
		return WriteStddev(w, "noise", result.ErrNoise)
	}); err != nil {
		return err
	}
	if err := writeFile(outDir, "err_formod.tab", func(w *bufio.Writer) error {
		return WriteStddev(w, "formod", result.ErrFormod)
	}); err != nil {
		return err
	}

	analysis := jurassic.AnalyzeAVK(result.AVK, result.Atm.NP(), rc.Flags)
	contrib, resolution := jurassic.FlattenQuantityAnalysis(analysis)
	contAtm := jurassic.XToAtm(contrib, result.Atm, rc.Flags)
	resAtm := jurassic.XToAtm(resolution, result.Atm, rc.Flags)
	if err := writeFile(outDir, "atm_cont.tab", func(w *bufio.Writer) error {
		return WriteAtm(w, contAtm, ng, nw)
	}); err != nil {
		return err
	}
	return writeFile(outDir, "atm_res.tab", func(w *bufio.Writer) error {
		return WriteAtm(w, resAtm, ng, nw)
	})
}

func writeFile(outDir, name string, write func(*bufio.Writer) error) error {
	f, err := os.Create(filepath.Join(outDir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	return w.Flush()
}
