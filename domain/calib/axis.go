package calib

import (
	"fmt"
	"math"

	"trgemu/domain/core"
)

// Axis is a fixed linear binning over [Low, High) with Bins bins.
type Axis struct {
	Bins int     `json:"bins"`
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// NewAxis validates and returns an axis.
func NewAxis(bins int, low, high float64) (Axis, error) {
	a := Axis{Bins: bins, Low: low, High: high}
	return a, a.Validate()
}

// Validate rejects empty or inverted axes.
func (a Axis) Validate() error {
	if a.Bins <= 0 {
		return fmt.Errorf("%w: axis needs at least one bin, got %d", core.ErrConfiguration, a.Bins)
	}
	if !(a.High > a.Low) {
		return fmt.Errorf("%w: axis range [%g, %g) is empty", core.ErrConfiguration, a.Low, a.High)
	}
	return nil
}

// Bin maps x to a bin index in [0, Bins-1]. Out of range values clamp to
// the nearest edge bin; NaN maps to bin 0.
func (a Axis) Bin(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	f := math.Floor((x - a.Low) / (a.High - a.Low) * float64(a.Bins))
	if f < 0 {
		return 0
	}
	if f >= float64(a.Bins) {
		return a.Bins - 1
	}
	return int(f)
}

// Width returns the width of one bin.
func (a Axis) Width() float64 {
	return (a.High - a.Low) / float64(a.Bins)
}

// LowEdge returns the lower edge of bin i.
func (a Axis) LowEdge(i int) float64 {
	return a.Low + float64(i)*a.Width()
}
