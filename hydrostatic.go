package jurassic

import (
	"fmt"
	"math"
)

// dryAirMolarMass is the molar mass of dry air [kg/mol], used by
// Hydrostatic to convert the hypsometric equation into a pressure ratio
// per level.
const dryAirMolarMass = 0.0289644

// gravity is the standard gravitational acceleration [m/s^2].
const gravity = 9.80665

// gasConstant is the universal gas constant [J/(mol K)].
const gasConstant = 8.31446

// Hydrostatic rebalances the pressure of every level above the first to
// satisfy the hypsometric equation given the profile's own temperatures,
// holding Points[0].P fixed. The forward driver calls it once per formod
// invocation since perturbing temperature during retrieval leaves the
// pressure profile out of hydrostatic balance.
//
// This is the simplest conforming implementation: a single-column,
// isothermal-layer barometric formula between adjacent levels. It is not a
// scientific-grade hydrostatic solver (hybrid-sigma coordinates, moisture
// correction, etc. are out of scope).
func Hydrostatic(atm *Atm) error {
	n := len(atm.Points)
	if n == 0 {
		return fmt.Errorf("jurassic: hydrostatic rebalance on empty atm")
	}
	for i := 1; i < n; i++ {
		lo, hi := atm.Points[i-1], atm.Points[i]
		if hi.Z <= lo.Z {
			return fmt.Errorf("jurassic: hydrostatic rebalance requires ascending altitude, level %d (%g) <= level %d (%g)", i, hi.Z, i-1, lo.Z)
		}
		tMean := 0.5 * (lo.T + hi.T)
		dz := (hi.Z - lo.Z) * 1000 // km -> m
		scaleExp := -dz * gravity * dryAirMolarMass / (gasConstant * tMean)
		atm.Points[i].P = lo.P * math.Exp(scaleExp)
	}
	return nil
}

// numberDensity returns the number density [molecules/cm^3] of an ideal
// gas at pressure p [hPa] and temperature t [K], used to turn a segment's
// mixing ratio into a column-density increment in raytrace.go.
func numberDensity(p, t float64) float64 {
	// p in hPa -> Pa is *100; n = p/(kB T) is in m^-3; /1e6 for cm^-3.
	return p * 100 / (boltzmannSI * t) / 1e6
}
