package trend

import (
	"math"

	"github.com/riverbyte/capacity-engine/pkg/models"
)

// Estimate holds short-horizon trend statistics for one metric's history.
// Slope is in demand units per sample interval.
type Estimate struct {
	Slope      float64
	Volatility float64
	Samples    int
}

type Estimator struct {
	windowSize int
}

func NewEstimator(windowSize int) *Estimator {
	if windowSize <= 0 {
		windowSize = 24
	}
	return &Estimator{windowSize: windowSize}
}

func (e *Estimator) WindowSize() int {
	return e.windowSize
}

// Estimate fits a least-squares line over the most recent window of history
// and reports its slope plus the standard deviation of the values as
// volatility. Fewer than 2 samples yields a zero estimate, not an error:
// downstream confidence scoring handles the low-data case.
func (e *Estimator) Estimate(history []models.MetricSample) Estimate {
	window := history
	if len(window) > e.windowSize {
		window = window[len(window)-e.windowSize:]
	}

	n := len(window)
	if n < 2 {
		return Estimate{Samples: n}
	}

	values := make([]float64, n)
	for i, s := range window {
		values[i] = s.Value
	}

	return Estimate{
		Slope:      Slope(values),
		Volatility: StdDev(values),
		Samples:    n,
	}
}

// Slope is the least-squares slope of values against their indices.
func Slope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// Correlation is the Pearson coefficient of two equal-length series.
// Returns 0 when either series is degenerate.
func Correlation(a, b []float64) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0
	}

	meanA := Mean(a)
	meanB := Mean(b)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
