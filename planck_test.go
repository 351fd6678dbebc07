package jurassic

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestReadShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shape.tab")
	data := "699 0.5\nnot a number\n700 1.0\n701 0.5\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := ReadShape(path)
	if err != nil {
		t.Fatalf("ReadShape: %v", err)
	}
	if len(s.X) != 3 {
		t.Fatalf("len(s.X) = %d, want 3 (malformed line skipped)", len(s.X))
	}
	if s.X[1] != 700 || s.Y[1] != 1.0 {
		t.Errorf("row 1 = (%g, %g), want (700, 1)", s.X[1], s.Y[1])
	}
}

func TestPlanckCacheQueryMatchesDirectComputation(t *testing.T) {
	ctl := &Ctl{Channels: []float64{700}}
	filt := Shape{X: []float64{700}, Y: []float64{1}}

	pc, err := NewPlanckCache(ctl, []Shape{filt})
	if err != nil {
		t.Fatalf("NewPlanckCache: %v", err)
	}

	// A single-line filter degenerates the weighted average to the bare
	// Planck function, so the cached lookup should track it closely at a
	// grid point.
	got := pc.Query(0, 250)
	want := planckFunction(250, 700)
	if math.Abs(got-want) > 1e-6*want {
		t.Errorf("Query(0, 250) = %g, want ~%g", got, want)
	}
}

func TestPlanckCacheMonotonicInTemperature(t *testing.T) {
	ctl := &Ctl{Channels: []float64{700}}
	filt := Shape{X: []float64{700}, Y: []float64{1}}
	pc, err := NewPlanckCache(ctl, []Shape{filt})
	if err != nil {
		t.Fatalf("NewPlanckCache: %v", err)
	}
	if pc.Query(0, 300) <= pc.Query(0, 200) {
		t.Error("Planck radiance should increase with temperature")
	}
}

func TestNewPlanckCacheRejectsEmptyFilter(t *testing.T) {
	ctl := &Ctl{Channels: []float64{700}}
	if _, err := NewPlanckCache(ctl, []Shape{{}}); err == nil {
		t.Error("expected an error for an empty filter shape")
	}
}
