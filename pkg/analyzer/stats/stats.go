// Package stats contains the small numeric helpers shared by the analyzers.
package stats

import "math"

// Clamp01 limits v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance calculates the population variance of a slice of values
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	varSum := 0.0
	for _, v := range values {
		diff := v - mean
		varSum += diff * diff
	}
	return varSum / float64(len(values))
}

// StdDev is the population standard deviation
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// NormalizedEntropy returns the Shannon entropy of a histogram divided by log2 of its
// bin count, so a uniform histogram scores 1. Empty histograms score 0.
func NormalizedEntropy(hist []float64) float64 {
	if len(hist) < 2 {
		return 0
	}
	total := 0.0
	for _, h := range hist {
		total += h
	}
	if total <= 0 {
		return 0
	}

	entropy := 0.0
	for _, h := range hist {
		if h <= 0 {
			continue
		}
		p := h / total
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(float64(len(hist)))
}

// Running accumulates mean and variance in one pass (Welford)
type Running struct {
	n    int
	mean float64
	m2   float64
}

// Add folds one observation into the accumulator
func (r *Running) Add(v float64) {
	r.n++
	delta := v - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (v - r.mean)
}

// Count returns the number of observations
func (r *Running) Count() int { return r.n }

// Mean returns the running mean
func (r *Running) Mean() float64 { return r.mean }

// Variance returns the population variance, 0 before any observation
func (r *Running) Variance() float64 {
	if r.n == 0 {
		return 0
	}
	return math.Max(r.m2/float64(r.n), 0)
}

// Pearson returns the correlation coefficient of two equal-length series. It returns
// ok=false when either series has no variance.
func Pearson(a, b []float64) (corr float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	ma, mb := Mean(a), Mean(b)
	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0, false
	}
	return cov / math.Sqrt(va*vb), true
}
