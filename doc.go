/*
Copyright (C) 2013-2014 Regents of the University of Minnesota.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package jurassic implements a pencil-beam infrared radiative-transfer
// forward model and a Levenberg-Marquardt optimal-estimation retrieval
// built on top of it.
//
// The forward model (formod, see forward.go) traces a pencil beam per
// observation geometry, looks up trace-gas transmittance from precomputed
// emissivity growth tables, adds continuum absorption and an optional
// single-scatter aerosol source, and accumulates radiance and
// transmittance along the path. The retrieval (see retrieval.go) treats
// the forward model as a black box y = F(x) and iterates a damped
// Gauss-Newton step until the state vector converges.
package jurassic

import "math"

// Physical constants used throughout the radiative-transfer core.
const (
	// planckC1 and planckC2 are the first and second radiation constants
	// in units matching wavenumber in cm^-1 and temperature in K, so that
	// planck(T, nu) has units of W/(m^2 sr cm^-1).
	planckC1 = 1.191042972e-8
	planckC2 = 1.4387769

	// earthRadiusKM is the mean radius used for the spherical-Earth
	// geometry in geo.go. Geodetic conversion is out of scope for this
	// core; this is the simplest conforming stand-in.
	earthRadiusKM = 6371.0

	// boltzmannSI is the Boltzmann constant [J/K], used to convert
	// pressure/temperature to number density for column-density
	// accumulation along the line of sight.
	boltzmannSI = 1.380649e-23
)

// nan is the mask sentinel used throughout obs.Rad/obs.Tau: a masked
// channel/ray combination carries NaN and is excluded from packing,
// residual filtering and cost-function accumulation.
var nan = math.NaN()

// planckFunction evaluates the spectral Planck radiance at temperature t
// [K] and wavenumber nu [cm^-1].
func planckFunction(t, nu float64) float64 {
	return planckC1 * nu * nu * nu / math.Expm1(planckC2*nu/t)
}

// Brightness converts a spectral radiance to brightness temperature at
// wavenumber nu, inverting planckFunction.
func Brightness(rad, nu float64) float64 {
	return planckC2 * nu / math.Log1p(planckC1*nu*nu*nu/rad)
}
