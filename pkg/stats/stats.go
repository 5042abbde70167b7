// Package stats provides the small set of statistics the forecasting and
// segmentation models need: ordinary least squares over an index series,
// sample standard deviation, and empirical quantiles.
package stats

import (
	"math"
	"sort"
)

// Regression holds the fitted line y = Slope*x + Intercept plus its
// coefficient of determination.
type Regression struct {
	Slope     float64
	Intercept float64
	R2        float64
}

// LinearRegression fits an ordinary least squares line over ys indexed by
// position (x = 0, 1, 2, ...). It returns a zero Regression when fewer than
// two points are given or the x variance is zero.
func LinearRegression(ys []float64) Regression {
	n := float64(len(ys))
	if len(ys) < 2 {
		return Regression{}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Regression{}
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range ys {
		fitted := slope*float64(i) + intercept
		ssTot += (y - meanY) * (y - meanY)
		ssRes += (y - fitted) * (y - fitted)
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	} else if ssRes == 0 {
		// Constant series fitted exactly.
		r2 = 1
	}

	return Regression{Slope: slope, Intercept: intercept, R2: r2}
}

// Predict evaluates the fitted line at x.
func (r Regression) Predict(x float64) float64 {
	return r.Slope*x + r.Intercept
}

// StdDev returns the sample standard deviation (n-1 denominator). It returns
// 0 for fewer than two values.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(n-1))
}

// Quantile returns the value at quantile q (0..1) using linear interpolation
// between closest ranks. The input is not modified.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
