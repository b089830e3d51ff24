package orbits

// Predict returns the predicted (RA, Dec) in degrees of the orbit at the
// given MJD, using the linearized sky-plane motion around the fit epoch.
// Good enough for windowed precovery search; the refinement routine owns the
// full dynamics.
func Predict(orbit FittedOrbit, mjd float64) (raDeg, decDeg float64) {
	dt := mjd - orbit.EpochMJD
	return orbit.RADeg + orbit.RAVelDegDay*dt, orbit.DecDeg + orbit.DecVelDegDay*dt
}
