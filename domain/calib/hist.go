package calib

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"trgemu/domain/core"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Hist1D is a one-dimensional histogram. Entries is the number of samples
// that were filled into it, which may differ from the sum of Contents when
// the histogram was weighted or normalised.
type Hist1D struct {
	Axis     Axis      `json:"axis"`
	Contents []float64 `json:"contents"`
	Entries  float64   `json:"entries"`

	cumulative []float64
}

// NewHist1D validates the shape and precomputes the cumulative content.
func NewHist1D(axis Axis, contents []float64, entries float64) (*Hist1D, error) {
	h := &Hist1D{Axis: axis, Contents: contents, Entries: entries}
	if err := h.Init(); err != nil {
		return nil, err
	}
	return h, nil
}

// Init validates a histogram built by decoding and prepares it for sampling.
func (h *Hist1D) Init() error {
	if err := h.Axis.Validate(); err != nil {
		return err
	}
	if len(h.Contents) != h.Axis.Bins {
		return fmt.Errorf("%w: histogram has %d contents for %d bins", core.ErrConfiguration, len(h.Contents), h.Axis.Bins)
	}
	for i, c := range h.Contents {
		if c < 0 {
			return fmt.Errorf("%w: negative content %g in bin %d", core.ErrConfiguration, c, i)
		}
	}
	h.cumulative = floats.CumSum(make([]float64, len(h.Contents)), h.Contents)
	return nil
}

// Content returns the content of the bin containing x, clamped.
func (h *Hist1D) Content(x float64) float64 {
	return h.Contents[h.Axis.Bin(x)]
}

// Integral returns the sum of all bin contents.
func (h *Hist1D) Integral() float64 {
	if len(h.cumulative) == 0 {
		return floats.Sum(h.Contents)
	}
	return h.cumulative[len(h.cumulative)-1]
}

// IsEmpty reports whether the histogram carries no samples.
func (h *Hist1D) IsEmpty() bool {
	return h.Entries == 0 || h.Integral() <= 0
}

// Sample draws a value distributed like the histogram: a bin is chosen with
// probability proportional to its content, then a position uniformly inside
// it. Empty histograms return 0.
func (h *Hist1D) Sample(src rand.Source) float64 {
	if h.IsEmpty() {
		return 0
	}
	cum := h.cumulative
	if cum == nil {
		cum = floats.CumSum(make([]float64, len(h.Contents)), h.Contents)
	}
	total := cum[len(cum)-1]

	u := distuv.Uniform{Min: 0, Max: total, Src: src}.Rand()
	bin := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
	if bin >= h.Axis.Bins {
		bin = h.Axis.Bins - 1
	}

	lo := h.Axis.LowEdge(bin)
	return distuv.Uniform{Min: lo, Max: lo + h.Axis.Width(), Src: src}.Rand()
}

// Hist2D is a two-dimensional histogram stored row-major by X bin.
type Hist2D struct {
	X        Axis      `json:"x"`
	Y        Axis      `json:"y"`
	Contents []float64 `json:"contents"`
}

// NewHist2D validates the shape.
func NewHist2D(x, y Axis, contents []float64) (*Hist2D, error) {
	h := &Hist2D{X: x, Y: y, Contents: contents}
	return h, h.Validate()
}

func (h *Hist2D) Validate() error {
	if err := h.X.Validate(); err != nil {
		return err
	}
	if err := h.Y.Validate(); err != nil {
		return err
	}
	if want := h.X.Bins * h.Y.Bins; len(h.Contents) != want {
		return fmt.Errorf("%w: 2D histogram has %d contents, expected %d", core.ErrConfiguration, len(h.Contents), want)
	}
	return nil
}

// Content returns the content of the cell containing (x, y), clamped on both axes.
func (h *Hist2D) Content(x, y float64) float64 {
	return h.At(h.X.Bin(x), h.Y.Bin(y))
}

// At returns the content of cell (i, j).
func (h *Hist2D) At(i, j int) float64 {
	return h.Contents[i*h.Y.Bins+j]
}
