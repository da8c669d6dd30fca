package preprocess

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// readOrientation extracts the EXIF orientation tag from JPEG bytes.
// Non-JPEG input, missing EXIF, or an out-of-range value all yield 1
// (identity), so an unparsable photo is displayed as captured.
func readOrientation(data []byte, mimeType string) int {
	if mimeType != "image/jpeg" {
		return 1
	}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		return 1
	}
	return orientation
}

// applyOrientation applies the corrective transform for an EXIF orientation
// value (1-8). Orientations 5-8 swap width and height.
func applyOrientation(pix *image.NRGBA, orientation int) *image.NRGBA {
	switch orientation {
	case 2:
		return imaging.FlipH(pix)
	case 3:
		return imaging.Rotate180(pix)
	case 4:
		return imaging.FlipV(pix)
	case 5:
		return imaging.Transpose(pix)
	case 6:
		// Camera rotated 90° CW: rotate the raster 90° CW to compensate.
		return imaging.Rotate270(pix)
	case 7:
		return imaging.Transverse(pix)
	case 8:
		return imaging.Rotate90(pix)
	default:
		return pix
	}
}
