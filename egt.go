package jurassic

import "fmt"

// EGTInterpolator combines the per-gas emissivity growth tables in a
// TableStore into a per-channel segment transmittance, assuming the gases
// absorb independently: the segment's transmittance is the product over
// gases of (1 - eps_gas).
//
// Each gas/channel's segment emissivity is looked up with path memory,
// following intpol_tbl: the table gives emissivity as a function of
// the total column traversed since the start of the ray, not just the
// local segment, so a running transmittance (tau_path) is carried across
// segments. At each step the running transmittance is converted back to
// an equivalent column length via the table's inverse (UAt), the
// segment's own local column density is added, and the forward lookup
// (EpsAt) re-evaluates the combined path; the segment-local emissivity is
// then recovered by dividing the combined-path transmittance by the
// running transmittance carried in.
type EGTInterpolator struct {
	ctl   *Ctl
	store *TableStore
}

// NewEGTInterpolator builds an interpolator over the given table store.
func NewEGTInterpolator(ctl *Ctl, store *TableStore) *EGTInterpolator {
	return &EGTInterpolator{ctl: ctl, store: store}
}

// PathState carries the running, per-(gas,channel) path transmittance of
// a single traced ray across successive SegmentEps calls.
type PathState struct {
	tauPath [][]float64 // [gas][channel]
}

// NewPathState returns the path state at the start of a ray: every
// gas/channel's running transmittance initialized to 1, mirroring
// intpol_tbl's tau_path reset at ip<=0.
func NewPathState(ctl *Ctl) *PathState {
	ps := &PathState{tauPath: make([][]float64, ctl.NGas())}
	for ig := range ps.tauPath {
		row := make([]float64, ctl.NChannels())
		for id := range row {
			row[id] = 1
		}
		ps.tauPath[ig] = row
	}
	return ps
}

// minPathTau guards the tau_path division below against blowing up once a
// path has saturated to full absorption, mirroring intpol_tbl's own
// near-zero path-transmittance check.
const minPathTau = 1e-9

// SegmentEps returns, per channel, the combined emissivity of the gas
// column local to seg (seg.U) given the path state traversed so far, and
// advances state's running per-gas transmittance for the next segment.
func (e *EGTInterpolator) SegmentEps(state *PathState, seg *Segment) ([]float64, error) {
	nd := e.ctl.NChannels()
	out := make([]float64, nd)
	for id := range out {
		out[id] = 1
	}
	for ig := range e.ctl.Emitters {
		if ig >= len(seg.U) {
			return nil, fmt.Errorf("jurassic: segment has no column density for gas index %d", ig)
		}
		for id := range out {
			tbl, err := e.store.Table(ig, id)
			if err != nil {
				return nil, fmt.Errorf("jurassic: loading table for gas %s channel %d: %w", e.ctl.Emitters[ig], id, err)
			}

			var epsSeg float64
			tauPath := state.tauPath[ig][id]
			switch {
			case tbl.NP() < 2:
				epsSeg = 0
			case tauPath < minPathTau:
				epsSeg = 1
			default:
				uPath := tbl.UAt(seg.P, seg.T, 1-tauPath)
				epsExtended := clamp01(tbl.EpsAt(seg.P, seg.T, uPath+seg.U[ig]))
				epsSeg = clamp01(1 - (1-epsExtended)/tauPath)
			}

			state.tauPath[ig][id] *= 1 - epsSeg
			out[id] *= 1 - epsSeg
		}
	}
	for id := range out {
		out[id] = clamp01(1 - out[id])
	}
	return out, nil
}
