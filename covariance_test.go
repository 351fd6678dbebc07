package jurassic

import "testing"

func TestBuildApriori(t *testing.T) {
	atm := testAtm()
	ctl := &Ctl{
		ErrTemp:   2,
		ErrTempCZ: 3,
		ErrTempCH: 500,
	}
	flags := RetrievalFlags{T: true}

	sa, err := BuildApriori(atm, flags, ctl)
	if err != nil {
		t.Fatalf("BuildApriori: %v", err)
	}
	n, _ := sa.Dims()
	if n != atm.NP() {
		t.Fatalf("dims = %d, want %d", n, atm.NP())
	}
	for i := 0; i < n; i++ {
		if sa.At(i, i) != ctl.ErrTemp*ctl.ErrTemp {
			t.Errorf("diagonal %d = %g, want %g", i, sa.At(i, i), ctl.ErrTemp*ctl.ErrTemp)
		}
	}
	// Off-diagonal correlation should decay with altitude separation.
	if sa.At(0, 1) <= sa.At(0, 2) {
		t.Errorf("correlation should decay with distance: cov(0,1)=%g should exceed cov(0,2)=%g", sa.At(0, 1), sa.At(0, 2))
	}
}

func TestMeasurementSigmaInv(t *testing.T) {
	obs := NewObs(1, 2)
	obs.Rad[0][0] = 100
	obs.Rad[0][1] = 50
	ctl := &Ctl{ErrNoise: []float64{1}, ErrFormod: []float64{2}}

	_, idx := ObsToY(obs)
	sig := MeasurementSigmaInv(ctl, obs, idx)
	if len(sig) != 2 {
		t.Fatalf("len(sig) = %d, want 2", len(sig))
	}
	for _, s := range sig {
		if s <= 0 {
			t.Errorf("sigma_eps_inv should be positive, got %g", s)
		}
	}
}
