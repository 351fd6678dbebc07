package jurassic

import "testing"

func simpleCtl() *Ctl {
	return &Ctl{
		Channels:      []float64{700},
		Emitters:      []string{"CO2"},
		Windows:       1,
		ChannelWindow: []int{0},
	}
}

func simpleObs(obsZ, vpZ float64) *Obs {
	o := NewObs(1, 1)
	o.ObsZ[0], o.VPZ[0] = obsZ, vpZ
	return o
}

func TestRaytraceColdSpace(t *testing.T) {
	atm := testAtm() // levels at z=0,5,10
	obs := simpleObs(50, 60)
	los, err := Raytrace(simpleCtl(), atm, &Aero{}, obs, 0)
	if err != nil {
		t.Fatalf("Raytrace: %v", err)
	}
	if los.NP() != 0 {
		t.Errorf("expected an empty LOS for a path above the atmosphere, got %d segments", los.NP())
	}
}

func TestRaytraceSurfaceHit(t *testing.T) {
	atm := testAtm()
	obs := simpleObs(8, -5) // looking down past the bottom of the atmosphere
	los, err := Raytrace(simpleCtl(), atm, &Aero{}, obs, 0)
	if err != nil {
		t.Fatalf("Raytrace: %v", err)
	}
	if los.NP() == 0 {
		t.Fatal("expected a non-empty LOS for a surface-terminated path")
	}
	if los.TSurf <= 0 {
		t.Errorf("expected TSurf > 0 for a surface-terminated path, got %g", los.TSurf)
	}
}

func TestRaytraceAtmosphereOnly(t *testing.T) {
	atm := testAtm()
	obs := simpleObs(1, 9)
	los, err := Raytrace(simpleCtl(), atm, &Aero{}, obs, 0)
	if err != nil {
		t.Fatalf("Raytrace: %v", err)
	}
	if los.NP() == 0 {
		t.Fatal("expected a non-empty LOS for a path through the atmosphere")
	}
	if los.TSurf != 0 {
		t.Errorf("expected no surface term for an atmosphere-only path, got TSurf=%g", los.TSurf)
	}
	for i, seg := range los.Segments {
		if seg.DS <= 0 {
			t.Errorf("segment %d has non-positive path length %g", i, seg.DS)
		}
	}
}
