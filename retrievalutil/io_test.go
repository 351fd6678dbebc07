package retrievalutil

import (
	"bufio"
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	jurassic "github.com/paul-f-baumeister/jurassic-scatter"
	"gonum.org/v1/gonum/mat"
)

func TestReadAtm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atm.tab")
	data := "0 0 10 20 1000 290 4e-4 0.01\n0 5 10 20 500 260 3.8e-4 0.02\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	atm, err := ReadAtm(path, 1, 1)
	if err != nil {
		t.Fatalf("ReadAtm: %v", err)
	}
	if atm.NP() != 2 {
		t.Fatalf("NP() = %d, want 2", atm.NP())
	}
	if atm.Points[0].P != 1000 || atm.Points[0].Q[0] != 4e-4 {
		t.Errorf("level 0 = %+v, want P=1000, Q[0]=4e-4", atm.Points[0])
	}
}

func TestReadAtmRejectsShortLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atm.tab")
	if err := os.WriteFile(path, []byte("0 0 10 20 1000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadAtm(path, 1, 1); err == nil {
		t.Error("expected an error for a short line")
	}
}

func TestReadObsMaskedEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "obs.tab")
	data := "0 1 10 20 9 10 20 NaN nan 0.5 0.9\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	obs, err := ReadObs(path, 2)
	if err != nil {
		t.Fatalf("ReadObs: %v", err)
	}
	if obs.NR() != 1 {
		t.Fatalf("NR() = %d, want 1", obs.NR())
	}
	if !math.IsNaN(obs.Rad[0][0]) {
		t.Errorf("Rad[0][0] = %g, want NaN", obs.Rad[0][0])
	}
	if obs.Tau[0][0] != 0.5 {
		t.Errorf("Tau[0][0] = %g, want 0.5", obs.Tau[0][0])
	}
}

func TestWriteAtmRoundTripsThroughReadAtm(t *testing.T) {
	atm := &jurassic.Atm{Points: []jurassic.GridPoint{
		{Time: 0, Z: 0, Lon: 10, Lat: 20, P: 1000, T: 290, Q: []float64{4e-4}, K: []float64{0.01}},
		{Time: 0, Z: 5, Lon: 10, Lat: 20, P: 500, T: 260, Q: []float64{3.8e-4}, K: []float64{0.02}},
	}}
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := WriteAtm(w, atm, 1, 1); err != nil {
		t.Fatalf("WriteAtm: %v", err)
	}
	w.Flush()

	dir := t.TempDir()
	path := filepath.Join(dir, "atm_final.tab")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadAtm(path, 1, 1)
	if err != nil {
		t.Fatalf("ReadAtm: %v", err)
	}
	if got.NP() != 2 || got.Points[1].P != 500 || got.Points[1].Q[0] != 3.8e-4 {
		t.Errorf("round-tripped atm = %+v, want level 1 P=500, Q[0]=3.8e-4", got.Points)
	}
}

func TestWriteObsRoundTripsThroughReadObs(t *testing.T) {
	obs := jurassic.NewObs(1, 2)
	obs.Time[0], obs.VPZ[0] = 0, 9
	obs.Rad[0][0], obs.Tau[0][0] = 100, 0.5
	obs.Rad[0][1] = math.NaN() // masked entry must survive the round trip
	obs.Tau[0][1] = math.NaN()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := WriteObs(w, obs, 1); err != nil {
		t.Fatalf("WriteObs: %v", err)
	}
	w.Flush()

	dir := t.TempDir()
	path := filepath.Join(dir, "obs_final.tab")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadObs(path, 1)
	if err != nil {
		t.Fatalf("ReadObs: %v", err)
	}
	if got.Rad[0][0] != 100 || got.Tau[0][0] != 0.5 {
		t.Errorf("round-tripped ray 0 = rad %g tau %g, want 100, 0.5", got.Rad[0][0], got.Tau[0][0])
	}
	if !math.IsNaN(got.Rad[0][1]) || !math.IsNaN(got.Tau[0][1]) {
		t.Error("masked ray 1 did not survive the write/read round trip")
	}
}

func TestWriteMatrixWritesOneRowPerLine(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := WriteMatrix(w, m); err != nil {
		t.Fatalf("WriteMatrix: %v", err)
	}
	w.Flush()
	want := "1 2 3\n4 5 6\n"
	if buf.String() != want {
		t.Errorf("WriteMatrix output = %q, want %q", buf.String(), want)
	}
}

func TestWriteStddevWritesOneValuePerLine(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := WriteStddev(w, "total", []float64{1.5, 2.5}); err != nil {
		t.Fatalf("WriteStddev: %v", err)
	}
	w.Flush()
	want := "0 1.5\n1 2.5\n"
	if buf.String() != want {
		t.Errorf("WriteStddev output = %q, want %q", buf.String(), want)
	}
}

func TestWriteCostsHeaderAndLine(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := WriteCostsHeader(w); err != nil {
		t.Fatalf("WriteCostsHeader: %v", err)
	}
	if err := WriteCostsLine(w, 1, jurassic.CostFunction{ChiSq: 3, ChiSqMeas: 2, ChiSqApri: 1}, 10, 5); err != nil {
		t.Fatalf("WriteCostsLine: %v", err)
	}
	w.Flush()
	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("1 3 2 1 10 5\n")) {
		t.Errorf("costs output = %q, want a line matching \"1 3 2 1 10 5\"", out)
	}
}
