package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Summary holds the distribution of one output column. For boolean trigger
// columns Mean is the firing rate.
type Summary struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Count    int     `json:"count"`
	NaN      int     `json:"nan"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Outliers int     `json:"outliers"`
}

// summarize fills the distribution fields from the finite values of data
func summarize(s *Summary, data []float64) error {
	finite := make([]float64, 0, len(data))
	for _, x := range data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			s.NaN++
			continue
		}
		finite = append(finite, x)
	}
	s.Count = len(data)
	if len(finite) == 0 {
		return stats.ErrEmptyInput
	}

	var err error
	if s.Mean, err = stats.Mean(finite); err != nil {
		return err
	}
	if s.StdDev, err = stats.StandardDeviation(finite); err != nil {
		return err
	}
	if s.Min, err = stats.Min(finite); err != nil {
		return err
	}
	if s.Max, err = stats.Max(finite); err != nil {
		return err
	}
	if s.Median, err = stats.Median(finite); err != nil {
		return err
	}

	// Quartiles for IQR-based outlier detection
	if s.Q25, err = stats.Percentile(finite, 25); err != nil {
		return err
	}
	if s.Q75, err = stats.Percentile(finite, 75); err != nil {
		return err
	}

	s.Skewness = calculateSkewness(finite, s.Mean, s.StdDev)
	s.Outliers = detectOutliers(finite, s.Q25, s.Q75)
	return nil
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n
	return skewness * math.Sqrt(n*(n-1)) / (n - 2)
}

// detectOutliers counts values outside 1.5 IQR of the quartiles
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
