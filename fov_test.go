package jurassic

import (
	"math"
	"testing"
)

func TestConvolveFOVDisabledPassesThrough(t *testing.T) {
	fc := &ForwardContext{FOVOn: false}
	raw := []*PencilResult{{Rad: []float64{1}, Tau: []float64{0.5}}}
	obs := NewObs(1, 1)
	out, err := fc.ConvolveFOV(obs, raw)
	if err != nil {
		t.Fatalf("ConvolveFOV: %v", err)
	}
	if out[0] != raw[0] {
		t.Error("FOV convolution disabled should return the raw slice unchanged")
	}
}

// TestConvolveFOVInterpolatesProfileAtShapeOffsets checks the literal
// formod_fov algorithm: each FOV shape point resamples the neighborhood's
// altitude profile at obs.VPZ[ir]+dz by linear interpolation, not by
// averaging the neighboring rays' raw results directly. A convex profile
// (100, 200, 350 at z=9,10,11) makes this distinguishable from both a
// same-timestamp average of neighbors and the ray's own unconvolved value.
func TestConvolveFOVInterpolatesProfileAtShapeOffsets(t *testing.T) {
	fc := &ForwardContext{
		FOVOn: true,
		FOV:   Shape{X: []float64{-0.5, 0, 0.5}, Y: []float64{1, 2, 1}},
	}
	obs := NewObs(1, 3)
	obs.Time[0], obs.Time[1], obs.Time[2] = 0, 0, 0
	obs.VPZ[0], obs.VPZ[1], obs.VPZ[2] = 9, 10, 11

	raw := []*PencilResult{
		{Rad: []float64{100}, Tau: []float64{0.9}},
		{Rad: []float64{200}, Tau: []float64{0.8}},
		{Rad: []float64{350}, Tau: []float64{0.7}},
	}
	out, err := fc.ConvolveFOV(obs, raw)
	if err != nil {
		t.Fatalf("ConvolveFOV: %v", err)
	}

	wantRad := 206.25
	if math.Abs(out[1].Rad[0]-wantRad) > 1e-9 {
		t.Errorf("Rad[0] for ray 1 = %g, want %g (profile-interpolated, not a same-time average)", out[1].Rad[0], wantRad)
	}
	wantTau := 0.8
	if math.Abs(out[1].Tau[0]-wantTau) > 1e-9 {
		t.Errorf("Tau[0] for ray 1 = %g, want %g", out[1].Tau[0], wantTau)
	}
}

// TestConvolveFOVRejectsTooFewNeighbors checks formod_fov's ERRMSG: a ray
// whose same-observation-time neighborhood has fewer than 2 entries cannot
// be convolved.
func TestConvolveFOVRejectsTooFewNeighbors(t *testing.T) {
	fc := &ForwardContext{
		FOVOn: true,
		FOV:   Shape{X: []float64{0}, Y: []float64{1}},
	}
	obs := NewObs(1, 2)
	obs.Time[0], obs.Time[1] = 0, 1 // distinct times: no ray has a same-time neighbor
	obs.VPZ[0], obs.VPZ[1] = 9, 10

	raw := []*PencilResult{
		{Rad: []float64{100}, Tau: []float64{0.9}},
		{Rad: []float64{200}, Tau: []float64{0.8}},
	}
	if _, err := fc.ConvolveFOV(obs, raw); err == nil {
		t.Error("expected an error when a ray's same-time neighborhood has fewer than 2 entries")
	}
}
