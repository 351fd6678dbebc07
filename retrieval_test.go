package jurassic

import (
	"math"
	"path/filepath"
	"testing"
)

func TestRetrieveReducesResidual(t *testing.T) {
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
		ConvITMax:     8,
		ConvDMin:      1e-6,
		KernelRecomp:  1,
		ErrNoise:      []float64{1e-3},
		ErrFormod:     []float64{1},
		ErrTemp:       5,
		ErrTempCZ:     0,
		ErrTempCH:     0,
	}
	fc, err := NewForwardContext(ctl, filepath.Join(dir, "tbl"), []string{filterPath})
	if err != nil {
		t.Fatalf("NewForwardContext: %v", err)
	}

	truth := testAtm()
	for i := range truth.Points {
		truth.Points[i].T += 8 // the "true" state is 8K warmer than the apriori guess
	}

	measured := simpleObs(1, 9)
	measured.Rad[0][0] = 0 // unmask
	measuredOut, err := Formod(fc, truth.Clone(), measured, &Aero{})
	if err != nil {
		t.Fatalf("Formod(truth): %v", err)
	}

	apriori := testAtm()
	flags := RetrievalFlags{T: true}

	result, err := Retrieve(fc, apriori, measuredOut, &Aero{}, flags, ctl, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if result.Iterations == 0 {
		t.Fatal("expected at least one retrieval iteration")
	}

	initialSim, err := Formod(fc, apriori.Clone(), measuredOut, &Aero{})
	if err != nil {
		t.Fatalf("Formod(apriori): %v", err)
	}
	initialResidual := math.Abs(initialSim.Rad[0][0] - measuredOut.Rad[0][0])
	finalResidual := math.Abs(result.Sim.Rad[0][0] - measuredOut.Rad[0][0])
	if finalResidual > initialResidual {
		t.Errorf("final residual %g should not exceed initial residual %g", finalResidual, initialResidual)
	}
}

func TestRetrieveRejectsEmptyMeasurement(t *testing.T) {
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
		ConvITMax:     1,
		ConvDMin:      1e-3,
		KernelRecomp:  1,
		ErrNoise:      []float64{1},
		ErrFormod:     []float64{1},
		ErrTemp:       5,
	}
	fc, err := NewForwardContext(ctl, filepath.Join(dir, "tbl"), []string{filterPath})
	if err != nil {
		t.Fatalf("NewForwardContext: %v", err)
	}
	measured := NewObs(1, 1) // every entry NaN: fully masked
	_, err = Retrieve(fc, testAtm(), measured, &Aero{}, RetrievalFlags{T: true}, ctl, nil)
	if err == nil {
		t.Error("expected an error retrieving against a fully masked observation")
	}
}
