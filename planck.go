package jurassic

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Shape is a simple (x, y) curve used for both the instrument filter
// function and the field-of-view weighting function, both read from the
// same ASCII two-column format.
type Shape struct {
	X []float64
	Y []float64
}

// ReadShape parses a "x y" per line ASCII shape file, skipping malformed
// lines, mirroring forwardmodel.c's read_shape.
func ReadShape(path string) (Shape, error) {
	f, err := os.Open(path)
	if err != nil {
		return Shape{}, fmt.Errorf("jurassic: reading shape file %s: %w", path, err)
	}
	defer f.Close()
	return readShape(bufio.NewReader(f))
}

func readShape(r io.Reader) (Shape, error) {
	var s Shape
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		var x, y float64
		if n, err := fmt.Sscanf(sc.Text(), "%g %g", &x, &y); err != nil || n != 2 {
			continue
		}
		s.X = append(s.X, x)
		s.Y = append(s.Y, y)
	}
	if err := sc.Err(); err != nil {
		return Shape{}, err
	}
	if len(s.X) == 0 {
		return Shape{}, fmt.Errorf("jurassic: shape file has no valid rows")
	}
	return s, nil
}

const planckNumTemps = 1201

// PlanckCache precomputes, per channel, the filter-weighted Planck
// function over a fixed 100-400 K temperature grid so that the pencil
// integrator's per-segment source-function evaluation is a
// table lookup instead of a numerical integral over the filter shape.
// Unlike TableStore it is not lazy: NewPlanckCache fills the whole grid
// up front, once per Ctl/filter-shape set, and the result is shared by
// every pencil ray.
type PlanckCache struct {
	temps []float64
	vals  [][]float64 // [channel][temps]
}

// NewPlanckCache builds the cache for every channel in ctl, weighting the
// Planck function by the per-channel filter shape.
func NewPlanckCache(ctl *Ctl, filters []Shape) (*PlanckCache, error) {
	if len(filters) != ctl.NChannels() {
		return nil, fmt.Errorf("jurassic: planck cache needs %d filter shapes, got %d", ctl.NChannels(), len(filters))
	}
	pc := &PlanckCache{
		temps: make([]float64, planckNumTemps),
		vals:  make([][]float64, ctl.NChannels()),
	}
	for it := 0; it < planckNumTemps; it++ {
		pc.temps[it] = lin(0, 100, planckNumTemps-1, 400, float64(it))
	}
	for id, filt := range filters {
		if len(filt.X) == 0 {
			return nil, fmt.Errorf("jurassic: channel %d has an empty filter shape", id)
		}
		var wsum float64
		for _, w := range filt.Y {
			wsum += w
		}
		if wsum == 0 {
			return nil, fmt.Errorf("jurassic: channel %d filter shape weights sum to zero", id)
		}
		vals := make([]float64, planckNumTemps)
		for it, t := range pc.temps {
			var sum float64
			for i, nu := range filt.X {
				sum += filt.Y[i] * planckFunction(t, nu)
			}
			vals[it] = sum / wsum
		}
		pc.vals[id] = vals
	}
	return pc, nil
}

// Query returns the filter-weighted Planck radiance for channel id at
// temperature t, interpolating the precomputed grid.
func (pc *PlanckCache) Query(id int, t float64) float64 {
	vals := pc.vals[id]
	it := clampIndex(locateF64(pc.temps, t), len(pc.temps)-1)
	return lin(pc.temps[it], vals[it], pc.temps[it+1], vals[it+1], t)
}
