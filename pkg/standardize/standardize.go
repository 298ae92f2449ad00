// Package standardize decodes untrusted image bytes into the fixed set of frames,
// hashes and raw metadata blocks every analyzer works from.
package standardize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/rand/v2"
	"time"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"DeSynth/pkg/models"
)

const (
	// DefaultMaxPixels bounds the decoded area of an input
	DefaultMaxPixels = 4096 * 4096
	// MaxEdge caps the longest edge of the full-resolution frame
	MaxEdge = 512
	// AnalysisSize is the edge of the square analysis frame
	AnalysisSize = 256
	// PHashSize is the edge of the perceptual-hash luma sample
	PHashSize = 32
)

// Options controls a single standardization
type Options struct {
	// Randomize picks the analysis-frame resampling kernel at random and applies a
	// light blur, making adversarial tuning against a fixed resampler harder.
	Randomize bool
	// Seed seeds the randomizer; 0 means time-seeded.
	Seed uint64
	// MaxPixels overrides DefaultMaxPixels when positive.
	MaxPixels int
}

// Frame is an RGB raster with its BT.709 luma plane
type Frame struct {
	Width  int
	Height int
	RGB    []uint8   // 3 bytes per pixel, row-major
	Luma   []float64 // [0,1], row-major
}

// At returns the RGB triple of pixel (x, y)
func (f *Frame) At(x, y int) (r, g, b uint8) {
	o := (y*f.Width + x) * 3
	return f.RGB[o], f.RGB[o+1], f.RGB[o+2]
}

// Metadata holds the raw, undecoded metadata blocks of the input container
type Metadata struct {
	Format string
	EXIF   []byte
	ICC    []byte
}

// Image is the canonical form of one input. It is shared read-only by every analyzer.
type Image struct {
	SourceWidth  int
	SourceHeight int
	Width        int
	Height       int
	Full         Frame
	Analysis     Frame
	PHashSample  []float64 // PHashSize×PHashSize luma
	Hashes       models.Hashes
	Metadata     Metadata
}

// Info summarizes the image for results
func (img *Image) Info() models.ImageInfo {
	return models.ImageInfo{
		Format:       img.Metadata.Format,
		SourceWidth:  img.SourceWidth,
		SourceHeight: img.SourceHeight,
		Width:        img.Width,
		Height:       img.Height,
	}
}

// Standardize validates and decodes data into an Image
func Standardize(ctx context.Context, data []byte, opts Options) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxPixels := opts.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Reason: ReasonUndecodable, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, &ValidationError{
			Reason: ReasonDimensionsOutOfRange,
			Detail: fmt.Sprintf("%dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels),
		}
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Reason: ReasonUndecodable, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := toRGBA(decoded)
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()

	full := fitInside(src, MaxEdge)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kernel := lanczos3
	var rng *rand.Rand
	if opts.Randomize {
		seed := opts.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		kernel = analysisKernels[rng.IntN(len(analysisKernels))]
	}
	analysis := cover(src, AnalysisSize, kernel)
	if opts.Randomize {
		analysis = gaussianBlur(analysis, 0.3)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sample := fill(src, PHashSize, PHashSize, lanczos3)
	sampleFrame := newFrame(sample)

	img := &Image{
		SourceWidth:  sw,
		SourceHeight: sh,
		Width:        full.Bounds().Dx(),
		Height:       full.Bounds().Dy(),
		Full:         newFrame(full),
		Analysis:     newFrame(analysis),
		PHashSample:  sampleFrame.Luma,
		Hashes: models.Hashes{
			SHA256: contentHash(data),
			PHash:  perceptualHash(sampleFrame.Luma),
		},
		Metadata: isolateMetadata(format, data),
	}
	return img, nil
}

// Luma is the BT.709 luminance of an 8-bit RGB triple, in [0,1]
func Luma(r, g, b uint8) float64 {
	return (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 255
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func newFrame(img *image.RGBA) Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	f := Frame{
		Width:  w,
		Height: h,
		RGB:    make([]uint8, w*h*3),
		Luma:   make([]float64, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			r, g, bl := img.Pix[o], img.Pix[o+1], img.Pix[o+2]
			i := y*w + x
			f.RGB[i*3], f.RGB[i*3+1], f.RGB[i*3+2] = r, g, bl
			f.Luma[i] = Luma(r, g, bl)
		}
	}
	return f
}
