package preprocess

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Errors surfaced by the preprocessing pipeline. A failed operation leaves
// the current buffer at its pre-call state.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrNoImageLoaded     = errors.New("no image loaded")
	ErrInvalidCropArea   = errors.New("invalid crop area")
)

// JPEG re-encode quality for the derived blob after every mutation.
const encodeQuality = 92

// RasterImage is an owned pixel buffer plus its derived encodings. Each
// preprocessing step produces a new RasterImage; buffers are never mutated
// after construction.
type RasterImage struct {
	pix *image.NRGBA

	Width  int
	Height int

	// Derived encodings, recomputed on construction.
	Blob    []byte // JPEG, quality 92
	DataURI string // base64 data URI of Blob
}

// newRaster wraps a pixel buffer and computes its derived encodings.
func newRaster(pix *image.NRGBA) (*RasterImage, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, pix, &jpeg.Options{Quality: encodeQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode buffer: %w", err)
	}
	blob := buf.Bytes()
	return &RasterImage{
		pix:     pix,
		Width:   pix.Bounds().Dx(),
		Height:  pix.Bounds().Dy(),
		Blob:    blob,
		DataURI: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(blob),
	}, nil
}

// NRGBA returns the underlying buffer. Callers must treat it as read-only.
func (r *RasterImage) NRGBA() *image.NRGBA {
	return r.pix
}

// decodeImage decodes JPEG/PNG/WebP bytes according to the declared MIME
// type. Any other MIME type is rejected before looking at the bytes.
func decodeImage(data []byte, mimeType string) (*image.NRGBA, error) {
	switch mimeType {
	case "image/jpeg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode JPEG: %w", err)
		}
		return imaging.Clone(img), nil
	case "image/png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode PNG: %w", err)
		}
		return imaging.Clone(img), nil
	case "image/webp":
		// Try the registered x/image decoder first, then the chai2010
		// decoder, matching how lossless and lossy files differ.
		if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			return imaging.Clone(img), nil
		}
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode WebP: %w", err)
		}
		return imaging.Clone(img), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
}
