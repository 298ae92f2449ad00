package standardize

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// lanczos3 is the Lanczos kernel with a = 3
var lanczos3 = &draw.Kernel{
	Support: 3,
	At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		x := math.Pi * t
		return 3 * math.Sin(x) * math.Sin(x/3) / (x * x)
	},
}

// analysisKernels are the candidates for randomized analysis-frame resampling
var analysisKernels = []*draw.Kernel{lanczos3, draw.CatmullRom}

func scale(src *image.RGBA, sr image.Rectangle, w, h int, k *draw.Kernel) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	k.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
	return dst
}

// fitInside shrinks src so its longest edge is at most maxEdge, keeping the aspect
// ratio. Smaller images are returned as-is.
func fitInside(src *image.RGBA, maxEdge int) *image.RGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}
	nw, nh := maxEdge, maxEdge
	if w >= h {
		nh = max(1, int(math.Round(float64(h)*float64(maxEdge)/float64(w))))
	} else {
		nw = max(1, int(math.Round(float64(w)*float64(maxEdge)/float64(h))))
	}
	return scale(src, src.Bounds(), nw, nh, lanczos3)
}

// cover scales the centred square crop of src to size×size
func cover(src *image.RGBA, size int, k *draw.Kernel) *image.RGBA {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	return scale(src, image.Rect(x0, y0, x0+side, y0+side), size, size, k)
}

// fill scales src to exactly w×h, ignoring the aspect ratio
func fill(src *image.RGBA, w, h int, k *draw.Kernel) *image.RGBA {
	return scale(src, src.Bounds(), w, h, k)
}

// gaussianBlur applies a separable Gaussian blur with edge clamping
func gaussianBlur(src *image.RGBA, sigma float64) *image.RGBA {
	radius := int(math.Ceil(3 * sigma))
	weights := make([]float64, 2*radius+1)
	total := 0.0
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		weights[i+radius] = w
		total += w
	}
	for i := range weights {
		weights[i] /= total
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := make([]float64, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			for k := -radius; k <= radius; k++ {
				sx := min(max(x+k, 0), w-1)
				o := src.PixOffset(b.Min.X+sx, b.Min.Y+y)
				for c := 0; c < 3; c++ {
					acc[c] += weights[k+radius] * float64(src.Pix[o+c])
				}
			}
			copy(tmp[(y*w+x)*3:], acc[:])
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			for k := -radius; k <= radius; k++ {
				sy := min(max(y+k, 0), h-1)
				for c := 0; c < 3; c++ {
					acc[c] += weights[k+radius] * tmp[(sy*w+x)*3+c]
				}
			}
			o := dst.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				dst.Pix[o+c] = uint8(math.Min(math.Round(acc[c]), 255))
			}
			dst.Pix[o+3] = 0xff
		}
	}
	return dst
}
