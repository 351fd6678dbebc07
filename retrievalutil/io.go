package retrievalutil

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	jurassic "github.com/paul-f-baumeister/jurassic-scatter"
	"gonum.org/v1/gonum/mat"
)

// ReadAtm reads an atmospheric profile file: one line per level,
// "time z lon lat p T q[0..ng) k[0..nw)" whitespace-separated fields,
// matching the column layout of the original's atm files.
func ReadAtm(path string, ng, nw int) (*jurassic.Atm, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("retrievalutil: reading atm file %s: %w", path, err)
	}
	defer f.Close()

	atm := &jurassic.Atm{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		want := 6 + ng + nw
		if len(fields) < want {
			return nil, fmt.Errorf("retrievalutil: atm file %s has a line with %d fields, want %d", path, len(fields), want)
		}
		vals, err := parseFloats(fields[:want])
		if err != nil {
			return nil, fmt.Errorf("retrievalutil: atm file %s: %w", path, err)
		}
		gp := jurassic.GridPoint{
			Time: vals[0], Z: vals[1], Lon: vals[2], Lat: vals[3],
			P: vals[4], T: vals[5],
			Q: append([]float64(nil), vals[6:6+ng]...),
			K: append([]float64(nil), vals[6+ng:6+ng+nw]...),
		}
		atm.Points = append(atm.Points, gp)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := atm.Validate(ng, nw); err != nil {
		return nil, fmt.Errorf("retrievalutil: atm file %s: %w", path, err)
	}
	return atm, nil
}

// ReadObs reads an observation file: one line per ray, "time obsz obslon
// obslat vpz vplon vplat rad[0..nd) tau[0..nd)", with rad/tau entries of
// "NaN" or "nan" read as the mask sentinel.
func ReadObs(path string, nd int) (*jurassic.Obs, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("retrievalutil: reading obs file %s: %w", path, err)
	}
	defer f.Close()

	var rows [][]string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	obs := jurassic.NewObs(nd, len(rows))
	for ir, fields := range rows {
		want := 7 + 2*nd
		if len(fields) < want {
			return nil, fmt.Errorf("retrievalutil: obs file %s line %d has %d fields, want %d", path, ir, len(fields), want)
		}
		vals, err := parseFloats(fields[:7])
		if err != nil {
			return nil, fmt.Errorf("retrievalutil: obs file %s: %w", path, err)
		}
		obs.Time[ir], obs.ObsZ[ir], obs.ObsLon[ir], obs.ObsLat[ir] = vals[0], vals[1], vals[2], vals[3]
		obs.VPZ[ir], obs.VPLon[ir], obs.VPLat[ir] = vals[4], vals[5], vals[6]
		for id := 0; id < nd; id++ {
			rad, err := strconv.ParseFloat(fields[7+id], 64)
			if err != nil {
				return nil, fmt.Errorf("retrievalutil: obs file %s line %d channel %d rad: %w", path, ir, id, err)
			}
			tau, err := strconv.ParseFloat(fields[7+nd+id], 64)
			if err != nil {
				return nil, fmt.Errorf("retrievalutil: obs file %s line %d channel %d tau: %w", path, ir, id, err)
			}
			obs.Rad[id][ir] = rad
			obs.Tau[id][ir] = tau
		}
	}
	if err := obs.Validate(nd); err != nil {
		return nil, fmt.Errorf("retrievalutil: obs file %s: %w", path, err)
	}
	return obs, nil
}

// WriteAtm writes atm in the same "time z lon lat p T q[0..ng) k[0..nw)"
// column layout ReadAtm reads, one line per level. This is the write-side
// counterpart write_atm produces for atm_final.tab (and, with a
// contribution/resolution-valued atm, atm_cont.tab/atm_res.tab).
func WriteAtm(w *bufio.Writer, atm *jurassic.Atm, ng, nw int) error {
	for _, p := range atm.Points {
		if _, err := fmt.Fprintf(w, "%g %g %g %g %g %g", p.Time, p.Z, p.Lon, p.Lat, p.P, p.T); err != nil {
			return err
		}
		for ig := 0; ig < ng; ig++ {
			if _, err := fmt.Fprintf(w, " %g", p.Q[ig]); err != nil {
				return err
			}
		}
		for iw := 0; iw < nw; iw++ {
			if _, err := fmt.Fprintf(w, " %g", p.K[iw]); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteObs writes obs in the same "time obsz obslon obslat vpz vplon vplat
// rad[0..nd) tau[0..nd)" column layout ReadObs reads, one line per ray,
// with masked (NaN) entries written as "NaN" so a round trip through
// ReadObs reproduces the mask. This is the write-side counterpart
// write_obs produces for obs_final.tab.
func WriteObs(w *bufio.Writer, obs *jurassic.Obs, nd int) error {
	nr := len(obs.Time)
	for ir := 0; ir < nr; ir++ {
		if _, err := fmt.Fprintf(w, "%g %g %g %g %g %g %g",
			obs.Time[ir], obs.ObsZ[ir], obs.ObsLon[ir], obs.ObsLat[ir],
			obs.VPZ[ir], obs.VPLon[ir], obs.VPLat[ir]); err != nil {
			return err
		}
		for id := 0; id < nd; id++ {
			if _, err := fmt.Fprintf(w, " %g", obs.Rad[id][ir]); err != nil {
				return err
			}
		}
		for id := 0; id < nd; id++ {
			if _, err := fmt.Fprintf(w, " %g", obs.Tau[id][ir]); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteMatrix writes m as whitespace-separated rows, one matrix row per
// line, the plain-text layout write_matrix uses for matrix_cov_apr.tab,
// matrix_cov_ret.tab, matrix_gain.tab, matrix_kernel.tab and
// matrix_avk.tab.
func WriteMatrix(w *bufio.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				if err := w.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%g", m.At(i, j)); err != nil {
				return err
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteStddev writes one state-vector-indexed standard deviation per line,
// the layout write_stddev uses for err_total.tab, err_noise.tab and
// err_formod.tab (the label argument in retrieval.c selects which error
// term is being written; here it just documents the call site).
func WriteStddev(w *bufio.Writer, label string, values []float64) error {
	for i, v := range values {
		if _, err := fmt.Fprintf(w, "%d %g\n", i, v); err != nil {
			return fmt.Errorf("retrievalutil: writing %s stddev: %w", label, err)
		}
	}
	return nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("field %d (%q): %w", i, f, err)
		}
		out[i] = v
	}
	return out, nil
}

// costsHeader is the exact 6-line header retrieval.c's cost_function
// writes at the top of costs.tab before the per-iteration rows.
const costsHeader = `# $1 = iteration number
# $2 = total cost function chi^2
# $3 = measurement cost function chi^2_m
# $4 = a priori cost function chi^2_a
# $5 = number of measurements
# $6 = number of state vector elements
`

// WriteCostsHeader writes the costs.tab header to w.
func WriteCostsHeader(w *bufio.Writer) error {
	_, err := w.WriteString(costsHeader)
	return err
}

// WriteCostsLine appends one iteration's row to costs.tab, in the exact
// "%d %g %g %g %d %d" format retrieval.c's cost_function uses.
func WriteCostsLine(w *bufio.Writer, it int, cost jurassic.CostFunction, m, n int) error {
	_, err := fmt.Fprintf(w, "%d %g %g %g %d %d\n", it, cost.ChiSq, cost.ChiSqMeas, cost.ChiSqApri, m, n)
	return err
}
