// Package dsp holds the signal transforms shared by the analyzers.
package dsp

import (
	"context"
	"fmt"
	"math"
	"math/bits"
)

// IsPowerOfTwo reports whether n is a positive power of two
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// FFT performs an in-place radix-2 Cooley-Tukey transform of (re, im)
func FFT(re, im []float64) error {
	n := len(re)
	if len(im) != n {
		return fmt.Errorf("fft: real and imaginary parts differ in length (%d vs %d)", n, len(im))
	}
	if !IsPowerOfTwo(n) {
		return fmt.Errorf("fft: length %d is not a power of two", n)
	}
	if n == 1 {
		return nil
	}

	// Bit-reversal permutation
	shift := 64 - uint(bits.TrailingZeros(uint(n)))
	for i := 0; i < n; i++ {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if j > i {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := -2 * math.Pi / float64(size)
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				wr, wi := math.Cos(step*float64(k)), math.Sin(step*float64(k))
				a, b := start+k, start+k+half
				tr := wr*re[b] - wi*im[b]
				ti := wr*im[b] + wi*re[b]
				re[b], im[b] = re[a]-tr, im[a]-ti
				re[a], im[a] = re[a]+tr, im[a]+ti
			}
		}
	}
	return nil
}

// FFT2D transforms a row-major width×height grid in place, rows first then columns.
// The context is checked before every row and column.
func FFT2D(ctx context.Context, re, im []float64, width, height int) error {
	if len(re) != width*height || len(im) != width*height {
		return fmt.Errorf("fft2d: buffers do not match %dx%d", width, height)
	}
	if !IsPowerOfTwo(width) || !IsPowerOfTwo(height) {
		return fmt.Errorf("fft2d: %dx%d is not a power-of-two grid", width, height)
	}

	for y := 0; y < height; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := y * width
		if err := FFT(re[row:row+width], im[row:row+width]); err != nil {
			return err
		}
	}

	colRe := make([]float64, height)
	colIm := make([]float64, height)
	for x := 0; x < width; x++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for y := 0; y < height; y++ {
			colRe[y] = re[y*width+x]
			colIm[y] = im[y*width+x]
		}
		if err := FFT(colRe, colIm); err != nil {
			return err
		}
		for y := 0; y < height; y++ {
			re[y*width+x] = colRe[y]
			im[y*width+x] = colIm[y]
		}
	}
	return nil
}

// Magnitude returns |re + i·im| element-wise
func Magnitude(re, im []float64) []float64 {
	out := make([]float64, len(re))
	for i := range re {
		out[i] = math.Hypot(re[i], im[i])
	}
	return out
}
