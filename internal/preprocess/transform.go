package preprocess

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	// Channel value below which a pixel counts as menu content rather
	// than white margin during auto-crop.
	autoCropThreshold = 250

	// Padding added around the detected content box, clamped to bounds.
	autoCropPadding = 10

	// Blend strength of the Laplacian sharpening pass in optimizeForOCR.
	sharpenStrength = 0.5
)

// rotateQuarter rotates the buffer by a multiple of 90 degrees clockwise.
// degrees may be negative; it is normalized to [0, 360).
func rotateQuarter(pix *image.NRGBA, degrees int) (*image.NRGBA, error) {
	if degrees%90 != 0 {
		return nil, fmt.Errorf("rotation must be a multiple of 90 degrees, got %d", degrees)
	}
	norm := degrees % 360
	if norm < 0 {
		norm += 360
	}
	switch norm {
	case 0:
		return imaging.Clone(pix), nil
	case 90:
		// imaging rotates counter-clockwise, so 90° CW is Rotate270.
		return imaging.Rotate270(pix), nil
	case 180:
		return imaging.Rotate180(pix), nil
	default: // 270
		return imaging.Rotate90(pix), nil
	}
}

// cropRect validates and extracts the sub-rectangle (x, y, w, h).
func cropRect(pix *image.NRGBA, x, y, w, h int) (*image.NRGBA, error) {
	bounds := pix.Bounds()
	if w <= 0 || h <= 0 || x < 0 || y < 0 || x+w > bounds.Dx() || y+h > bounds.Dy() {
		return nil, fmt.Errorf("%w: (%d,%d %dx%d) within %dx%d",
			ErrInvalidCropArea, x, y, w, h, bounds.Dx(), bounds.Dy())
	}
	return imaging.Crop(pix, image.Rect(x, y, x+w, y+h)), nil
}

// autoCrop trims near-white margins: it finds the bounding box of pixels
// whose R, G, or B channel falls below the threshold, pads it, and crops.
// A fully white image is returned unchanged. This is a margin heuristic,
// not document-edge detection.
func autoCrop(pix *image.NRGBA) *image.NRGBA {
	w := pix.Bounds().Dx()
	h := pix.Bounds().Dy()

	minX, minY := w, h
	maxX, maxY := -1, -1

	for y := 0; y < h; y++ {
		row := pix.Pix[y*pix.Stride : y*pix.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			if row[i] < autoCropThreshold || row[i+1] < autoCropThreshold || row[i+2] < autoCropThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if maxX < 0 {
		// Blank image, nothing to crop toward.
		return pix
	}

	x0 := maxInt(0, minX-autoCropPadding)
	y0 := maxInt(0, minY-autoCropPadding)
	x1 := minInt(w, maxX+1+autoCropPadding)
	y1 := minInt(h, maxY+1+autoCropPadding)

	return imaging.Crop(pix, image.Rect(x0, y0, x1, y1))
}

// adjustContrast applies the standard linear contrast transform per RGB
// channel. contrast is in [-1, 1]; alpha is untouched.
func adjustContrast(pix *image.NRGBA, contrast float64) *image.NRGBA {
	c := contrast * 255
	factor := (259 * (c + 255)) / (255 * (259 - c))

	out := imaging.Clone(pix)
	w := out.Bounds().Dx()
	h := out.Bounds().Dy()
	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			row[i] = clampByte(factor*(float64(row[i])-128) + 128)
			row[i+1] = clampByte(factor*(float64(row[i+1])-128) + 128)
			row[i+2] = clampByte(factor*(float64(row[i+2])-128) + 128)
		}
	}
	return out
}

// optimizeForOCR runs the fixed three-stage text-extraction pipeline:
// luma grayscale, histogram stretch to [0,255], then a 3x3 Laplacian
// sharpen blended at fixed strength. Border pixels are left unsharpened.
func optimizeForOCR(pix *image.NRGBA) *image.NRGBA {
	w := pix.Bounds().Dx()
	h := pix.Bounds().Dy()

	// Stage 1: grayscale via luma weights.
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := pix.Pix[y*pix.Stride : y*pix.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			gray[y*w+x] = 0.299*float64(row[i]) + 0.587*float64(row[i+1]) + 0.114*float64(row[i+2])
		}
	}

	// Stage 2: histogram stretch using observed min/max.
	lo, hi := 255.0, 0.0
	for _, g := range gray {
		if g < lo {
			lo = g
		}
		if g > hi {
			hi = g
		}
	}
	if hi > lo {
		scale := 255 / (hi - lo)
		for i := range gray {
			gray[i] = (gray[i] - lo) * scale
		}
	}

	// Stage 3: Laplacian sharpen (center*4 - 4-neighbor sum) blended at
	// fixed strength, skipping the first/last row and column.
	sharp := make([]float64, len(gray))
	copy(sharp, gray)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			lap := 4*gray[i] - gray[i-1] - gray[i+1] - gray[i-w] - gray[i+w]
			sharp[i] = gray[i] + sharpenStrength*lap
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w*4]
		src := pix.Pix[y*pix.Stride : y*pix.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			v := clampByte(sharp[y*w+x])
			row[i] = v
			row[i+1] = v
			row[i+2] = v
			row[i+3] = src[i+3]
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
