package preprocess

import (
	"fmt"
	"image"
	"log"
)

// Preprocessor normalizes one captured menu photo for text extraction.
// It owns the current working buffer for a single capture; each operation
// replaces the buffer with a newly derived one and recomputes the blob and
// data-URI encodings. The original decoded buffer is kept separately and
// never mutated. Not safe for concurrent use; one instance per capture.
type Preprocessor struct {
	current  *RasterImage
	original *RasterImage
}

// NewPreprocessor creates an empty preprocessing session.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Load decodes JPEG/PNG/WebP bytes, retains an unmodified original, and
// applies the EXIF orientation correction (JPEG only; other formats and
// unparsable EXIF default to identity). Width/height may swap for
// orientations 5-8.
func (p *Preprocessor) Load(data []byte, mimeType string) error {
	pix, err := decodeImage(data, mimeType)
	if err != nil {
		return err
	}

	original, err := newRaster(pix)
	if err != nil {
		return err
	}

	oriented := pix
	if orientation := readOrientation(data, mimeType); orientation != 1 {
		log.Printf("[Preprocess] Applying EXIF orientation %d", orientation)
		oriented = applyOrientation(pix, orientation)
	}
	current, err := newRaster(oriented)
	if err != nil {
		return err
	}

	p.original = original
	p.current = current
	return nil
}

// Current returns the working buffer, or nil before Load.
func (p *Preprocessor) Current() *RasterImage {
	return p.current
}

// Original returns the untouched decoded snapshot, or nil before Load.
func (p *Preprocessor) Original() *RasterImage {
	return p.original
}

// Rotate turns the buffer by a multiple of 90 degrees clockwise (negative
// for counter-clockwise). Width and height swap for odd quarter turns.
func (p *Preprocessor) Rotate(degrees int) error {
	if p.current == nil {
		return ErrNoImageLoaded
	}
	pix, err := rotateQuarter(p.current.pix, degrees)
	if err != nil {
		return err
	}
	return p.replace(pix)
}

// Crop replaces the buffer with the sub-rectangle (x, y, w, h).
func (p *Preprocessor) Crop(x, y, w, h int) error {
	if p.current == nil {
		return ErrNoImageLoaded
	}
	pix, err := cropRect(p.current.pix, x, y, w, h)
	if err != nil {
		return err
	}
	return p.replace(pix)
}

// AutoCrop trims near-white margins around the menu content. A fully
// blank image is left unchanged.
func (p *Preprocessor) AutoCrop() error {
	if p.current == nil {
		return ErrNoImageLoaded
	}
	pix := autoCrop(p.current.pix)
	if pix == p.current.pix {
		return nil
	}
	return p.replace(pix)
}

// AdjustContrast applies a linear contrast change, contrast in [-1, 1].
func (p *Preprocessor) AdjustContrast(contrast float64) error {
	if p.current == nil {
		return ErrNoImageLoaded
	}
	if contrast < -1 || contrast > 1 {
		return fmt.Errorf("contrast must be within [-1, 1], got %v", contrast)
	}
	return p.replace(adjustContrast(p.current.pix, contrast))
}

// OptimizeForOCR runs the fixed grayscale/stretch/sharpen pipeline.
func (p *Preprocessor) OptimizeForOCR() error {
	if p.current == nil {
		return ErrNoImageLoaded
	}
	return p.replace(optimizeForOCR(p.current.pix))
}

// Reset discards all state, returning the session to its pre-Load condition.
func (p *Preprocessor) Reset() {
	p.current = nil
	p.original = nil
}

// replace swaps in a new buffer only after its encodings succeed, so a
// failed operation leaves the previous buffer intact.
func (p *Preprocessor) replace(pix *image.NRGBA) error {
	raster, err := newRaster(pix)
	if err != nil {
		return err
	}
	p.current = raster
	return nil
}
