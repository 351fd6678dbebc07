package jurassic

import (
	"path/filepath"
	"testing"
)

func TestSegmentEpsCombinesGasesMultiplicatively(t *testing.T) {
	dir := t.TempDir()
	writeTestTable(t, dir, "CO2", 700)
	writeTestTable(t, dir, "H2O", 700)

	ctl := &Ctl{
		Channels: []float64{700},
		Emitters: []string{"CO2", "H2O"},
	}
	store := NewTableStore(ctl, filepath.Join(dir, "tbl"))
	egt := NewEGTInterpolator(ctl, store)

	seg := &Segment{P: 1000, T: 290, U: []float64{1e25, 1e25}}
	state := NewPathState(ctl)
	eps, err := egt.SegmentEps(state, seg)
	if err != nil {
		t.Fatalf("SegmentEps: %v", err)
	}
	if len(eps) != 1 {
		t.Fatalf("len(eps) = %d, want 1", len(eps))
	}

	tbl, err := store.Table(0, 0)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	epsCO2 := tbl.EpsAt(seg.P, seg.T, seg.U[0])
	tbl2, err := store.Table(1, 0)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	epsH2O := tbl2.EpsAt(seg.P, seg.T, seg.U[1])
	want := 1 - (1-epsCO2)*(1-epsH2O)
	if eps[0] < want-1e-9 || eps[0] > want+1e-9 {
		t.Errorf("eps[0] = %g, want %g (1 - product of per-gas transmittances)", eps[0], want)
	}
}

func TestSegmentEpsRejectsMissingColumnDensity(t *testing.T) {
	dir := t.TempDir()
	writeTestTable(t, dir, "CO2", 700)

	ctl := &Ctl{Channels: []float64{700}, Emitters: []string{"CO2"}}
	store := NewTableStore(ctl, filepath.Join(dir, "tbl"))
	egt := NewEGTInterpolator(ctl, store)

	seg := &Segment{P: 1000, T: 290, U: nil}
	state := NewPathState(ctl)
	if _, err := egt.SegmentEps(state, seg); err == nil {
		t.Error("expected an error for a segment missing column density")
	}
}

// TestSegmentEpsAccumulatesPathAcrossSegments checks the extended-path
// correction: two identical segments fed through one shared PathState
// must saturate to the same combined emissivity as a single segment
// carrying their summed column density, not to the (lower) emissivity a
// naive per-segment-independent lookup would produce.
func TestSegmentEpsAccumulatesPathAcrossSegments(t *testing.T) {
	dir := t.TempDir()
	writeTestTable(t, dir, "CO2", 700)

	ctl := &Ctl{Channels: []float64{700}, Emitters: []string{"CO2"}}
	store := NewTableStore(ctl, filepath.Join(dir, "tbl"))
	egt := NewEGTInterpolator(ctl, store)

	seg := &Segment{P: 1000, T: 290, U: []float64{1e25}}

	state := NewPathState(ctl)
	eps1, err := egt.SegmentEps(state, seg)
	if err != nil {
		t.Fatalf("SegmentEps (first segment): %v", err)
	}
	eps2, err := egt.SegmentEps(state, seg)
	if err != nil {
		t.Fatalf("SegmentEps (second segment): %v", err)
	}

	// Combined transmittance after both segments, from the path state.
	tauCombined := (1 - eps1[0]) * (1 - eps2[0])
	epsCombined := 1 - tauCombined

	tbl, err := store.Table(0, 0)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	epsWholePath := tbl.EpsAt(seg.P, seg.T, seg.U[0]+seg.U[0])
	if epsCombined < epsWholePath-1e-9 || epsCombined > epsWholePath+1e-9 {
		t.Errorf("combined eps = %g, want %g (eps at the summed column density)", epsCombined, epsWholePath)
	}

	// A stateless per-segment lookup (the naive, spec-incorrect
	// approximation) would instead apply the same single-segment eps
	// twice, producing a strictly smaller combined emissivity than the
	// extended-path walk above.
	epsNaive := tbl.EpsAt(seg.P, seg.T, seg.U[0])
	tauNaiveCombined := (1 - epsNaive) * (1 - epsNaive)
	if tauNaiveCombined <= tauCombined {
		t.Fatalf("test fixture does not exercise path-memory accumulation: naive tau %g <= path-corrected tau %g", tauNaiveCombined, tauCombined)
	}
}
