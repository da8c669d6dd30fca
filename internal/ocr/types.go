package ocr

import "fmt"

// BoundingBox locates a text span inside the source image. Width and
// height are always >= 0 and the box lies within the image dimensions.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TextSpan is one recognized run of text with its confidence and location.
type TextSpan struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// ExtractedText is the immutable result of one OCR attempt: the ordered
// spans plus the concatenated full text.
type ExtractedText struct {
	Spans         []TextSpan `json:"spans"`
	FullText      string     `json:"full_text"`
	AvgConfidence float64    `json:"avg_confidence"`
}

// Empty reports whether the attempt produced no usable text.
func (e *ExtractedText) Empty() bool {
	return e == nil || len(e.FullText) == 0
}

// Validate checks the bounding-box invariants against the source image
// dimensions.
func (e *ExtractedText) Validate(imageWidth, imageHeight int) error {
	for i, s := range e.Spans {
		b := s.Box
		if b.Width < 0 || b.Height < 0 {
			return fmt.Errorf("span %d: negative box dimensions %dx%d", i, b.Width, b.Height)
		}
		if b.X < 0 || b.Y < 0 || b.X+b.Width > imageWidth || b.Y+b.Height > imageHeight {
			return fmt.Errorf("span %d: box (%d,%d %dx%d) outside image %dx%d",
				i, b.X, b.Y, b.Width, b.Height, imageWidth, imageHeight)
		}
	}
	return nil
}

// clampBox clips a raw box to the image so a slightly out-of-frame OCR
// vertex never violates the invariant.
func clampBox(x0, y0, x1, y1, imageWidth, imageHeight int) BoundingBox {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > imageWidth {
		x1 = imageWidth
	}
	if y1 > imageHeight {
		y1 = imageHeight
	}
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
