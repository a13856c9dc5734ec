package trigger

import "math"

// Phi is the azimuthal angle folded into (-pi/2, pi/2).
func Phi(px, py float64) float64 {
	return math.Atan(py / px)
}

// Theta is the polar angle.
func Theta(pz, p float64) float64 {
	return math.Acos(pz / p)
}

// VectorPT is the transverse momentum of a momentum sum.
func VectorPT(px, py float64) float64 {
	return math.Hypot(px, py)
}
