package jurassic

import (
	"math"
	"path/filepath"
	"testing"
)

func TestKernelMatchesFiniteDifference(t *testing.T) {
	dir := t.TempDir()
	nu := 700.0
	writeTestTable(t, dir, "CO2", nu)
	filterPath := writeTestFilter(t, dir, nu)

	ctl := &Ctl{
		Channels:      []float64{nu},
		Emitters:      []string{"CO2"},
		Windows:       1,
		ChannelWindow: []int{0},
		FOV:           "-",
	}
	fc, err := NewForwardContext(ctl, filepath.Join(dir, "tbl"), []string{filterPath})
	if err != nil {
		t.Fatalf("NewForwardContext: %v", err)
	}

	atm := testAtm()
	obs := simpleObs(1, 9)
	obs.Rad[0][0] = 0
	flags := RetrievalFlags{T: true}

	x0 := AtmToX(atm, flags)
	_, idx := ObsToY(obs)
	sim0, err := Formod(fc, XToAtm(x0, atm, flags), obs, &Aero{})
	if err != nil {
		t.Fatalf("Formod: %v", err)
	}
	y0 := ObsToYAt(sim0, idx)

	k, err := Kernel(fc, atm, flags, obs, &Aero{}, idx, x0, y0)
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}
	m, n := k.Dims()
	if m != len(idx) || n != len(x0) {
		t.Fatalf("dims = (%d,%d), want (%d,%d)", m, n, len(idx), len(x0))
	}

	// Cross-check column 0 against a plain forward difference at a larger step.
	step := 1.0
	xPerturbed := append([]float64(nil), x0...)
	xPerturbed[0] += step
	simP, err := Formod(fc, XToAtm(xPerturbed, atm, flags), obs, &Aero{})
	if err != nil {
		t.Fatalf("Formod perturbed: %v", err)
	}
	yP := ObsToYAt(simP, idx)
	fd := (yP[0] - y0[0]) / step
	if math.Signbit(fd) != math.Signbit(k.At(0, 0)) && fd != 0 && k.At(0, 0) != 0 {
		t.Errorf("kernel column 0 sign = %g, independently-computed finite difference sign = %g", k.At(0, 0), fd)
	}
}
