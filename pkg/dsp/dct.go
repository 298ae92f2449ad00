package dsp

import "math"

// BlockSize is the edge of a JPEG-style DCT block
const BlockSize = 8

var blockCos = func() [BlockSize][BlockSize]float64 {
	var t [BlockSize][BlockSize]float64
	for x := 0; x < BlockSize; x++ {
		for u := 0; u < BlockSize; u++ {
			t[x][u] = math.Cos(float64(2*x+1) * float64(u) * math.Pi / (2 * BlockSize))
		}
	}
	return t
}()

func dctNorm(k int) float64 {
	if k == 0 {
		return 1 / math.Sqrt2
	}
	return 1
}

// DCT8x8 computes the 2D DCT-II of a row-major 8×8 block. Coefficients are returned
// row-major, index v*8+u, so index 0 is DC.
func DCT8x8(block *[BlockSize * BlockSize]float64) [BlockSize * BlockSize]float64 {
	var out [BlockSize * BlockSize]float64
	for v := 0; v < BlockSize; v++ {
		for u := 0; u < BlockSize; u++ {
			sum := 0.0
			for y := 0; y < BlockSize; y++ {
				for x := 0; x < BlockSize; x++ {
					sum += block[y*BlockSize+x] * blockCos[x][u] * blockCos[y][v]
				}
			}
			out[v*BlockSize+u] = 0.25 * dctNorm(u) * dctNorm(v) * sum
		}
	}
	return out
}

// DCTLowBand computes the top-left size×size coefficients of the 2D DCT-II of a
// row-major n×n grid.
func DCTLowBand(pixels []float64, n, size int) []float64 {
	cosTable := make([]float64, n*size)
	for x := 0; x < n; x++ {
		for u := 0; u < size; u++ {
			cosTable[x*size+u] = math.Cos(float64(2*x+1) * float64(u) * math.Pi / float64(2*n))
		}
	}

	out := make([]float64, size*size)
	for v := 0; v < size; v++ {
		for u := 0; u < size; u++ {
			sum := 0.0
			for y := 0; y < n; y++ {
				cy := cosTable[y*size+v]
				for x := 0; x < n; x++ {
					sum += pixels[y*n+x] * cosTable[x*size+u] * cy
				}
			}
			out[v*size+u] = 0.25 * dctNorm(u) * dctNorm(v) * sum
		}
	}
	return out
}
