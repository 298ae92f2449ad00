package dsp

// Sobel returns the horizontal and vertical Sobel responses of a row-major grid.
// Border pixels are left at zero.
func Sobel(gray []float64, width, height int) (gx, gy []float64) {
	gx = make([]float64, width*height)
	gy = make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			tl := gray[(y-1)*width+x-1]
			tc := gray[(y-1)*width+x]
			tr := gray[(y-1)*width+x+1]
			ml := gray[y*width+x-1]
			mr := gray[y*width+x+1]
			bl := gray[(y+1)*width+x-1]
			bc := gray[(y+1)*width+x]
			br := gray[(y+1)*width+x+1]

			i := y*width + x
			gx[i] = (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy[i] = (bl + 2*bc + br) - (tl + 2*tc + tr)
		}
	}
	return gx, gy
}

// Laplacian returns the 4-neighbour Laplacian of a row-major grid. Border pixels are zero.
func Laplacian(gray []float64, width, height int) []float64 {
	out := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			out[i] = gray[i-width] + gray[i+width] + gray[i-1] + gray[i+1] - 4*gray[i]
		}
	}
	return out
}
