package preprocess

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// fill creates a w×h buffer filled with a single color.
func fill(w, h int, c color.NRGBA) *image.NRGBA {
	pix := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix.SetNRGBA(x, y, c)
		}
	}
	return pix
}

func pngBytes(t *testing.T, pix *image.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, pix); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func loadTestImage(t *testing.T, w, h int) *Preprocessor {
	t.Helper()
	p := NewPreprocessor()
	data := pngBytes(t, fill(w, h, color.NRGBA{200, 150, 100, 255}))
	if err := p.Load(data, "image/png"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return p
}

func TestLoadUnsupportedFormat(t *testing.T) {
	p := NewPreprocessor()
	err := p.Load([]byte("GIF89a..."), "image/gif")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadGarbageData(t *testing.T) {
	p := NewPreprocessor()
	if err := p.Load([]byte("not an image"), "image/jpeg"); err == nil {
		t.Fatal("expected decode error for garbage data")
	}
	if p.Current() != nil {
		t.Fatal("failed load must not leave a working buffer")
	}
}

func TestOperationsBeforeLoad(t *testing.T) {
	p := NewPreprocessor()
	ops := map[string]error{
		"rotate":   p.Rotate(90),
		"crop":     p.Crop(0, 0, 10, 10),
		"autocrop": p.AutoCrop(),
		"contrast": p.AdjustContrast(0.5),
		"optimize": p.OptimizeForOCR(),
	}
	for name, err := range ops {
		if !errors.Is(err, ErrNoImageLoaded) {
			t.Errorf("%s before load: expected ErrNoImageLoaded, got %v", name, err)
		}
	}
}

func TestLoadProducesBlobAndDataURI(t *testing.T) {
	p := loadTestImage(t, 40, 30)
	cur := p.Current()
	if cur.Width != 40 || cur.Height != 30 {
		t.Fatalf("dimensions = %dx%d, want 40x30", cur.Width, cur.Height)
	}
	if len(cur.Blob) == 0 {
		t.Fatal("blob not populated")
	}
	const prefix = "data:image/jpeg;base64,"
	if len(cur.DataURI) <= len(prefix) || cur.DataURI[:len(prefix)] != prefix {
		t.Fatalf("data URI prefix wrong: %.40s", cur.DataURI)
	}
	if p.Original() == nil {
		t.Fatal("original snapshot missing")
	}
}

func TestRotateSwapsDimensions(t *testing.T) {
	tests := []struct {
		degrees      int
		wantW, wantH int
	}{
		{90, 30, 40},
		{180, 40, 30},
		{270, 30, 40},
		{360, 40, 30},
		{-90, 30, 40},
	}
	for _, tt := range tests {
		p := loadTestImage(t, 40, 30)
		if err := p.Rotate(tt.degrees); err != nil {
			t.Fatalf("Rotate(%d): %v", tt.degrees, err)
		}
		cur := p.Current()
		if cur.Width != tt.wantW || cur.Height != tt.wantH {
			t.Errorf("Rotate(%d) = %dx%d, want %dx%d", tt.degrees, cur.Width, cur.Height, tt.wantW, tt.wantH)
		}
	}
}

func TestRotateFullCircleRestoresDimensions(t *testing.T) {
	p := loadTestImage(t, 40, 30)
	for i := 0; i < 4; i++ {
		if err := p.Rotate(90); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}
	cur := p.Current()
	if cur.Width != 40 || cur.Height != 30 {
		t.Fatalf("after 4 quarter turns: %dx%d, want 40x30", cur.Width, cur.Height)
	}
}

func TestRotateRejectsNonQuarter(t *testing.T) {
	p := loadTestImage(t, 40, 30)
	if err := p.Rotate(45); err == nil {
		t.Fatal("expected error for 45 degree rotation")
	}
}

func TestCropBounds(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		ok         bool
	}{
		{"full frame", 0, 0, 40, 30, true},
		{"interior", 5, 5, 10, 10, true},
		{"zero width", 0, 0, 0, 10, false},
		{"negative origin", -1, 0, 10, 10, false},
		{"exceeds right edge", 35, 0, 10, 10, false},
		{"exceeds bottom edge", 0, 25, 10, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := loadTestImage(t, 40, 30)
			err := p.Crop(tt.x, tt.y, tt.w, tt.h)
			if tt.ok {
				if err != nil {
					t.Fatalf("Crop: %v", err)
				}
				cur := p.Current()
				if cur.Width != tt.w || cur.Height != tt.h {
					t.Errorf("cropped to %dx%d, want %dx%d", cur.Width, cur.Height, tt.w, tt.h)
				}
				return
			}
			if !errors.Is(err, ErrInvalidCropArea) {
				t.Fatalf("expected ErrInvalidCropArea, got %v", err)
			}
			// A rejected crop must leave the buffer untouched.
			cur := p.Current()
			if cur.Width != 40 || cur.Height != 30 {
				t.Errorf("buffer changed after rejected crop: %dx%d", cur.Width, cur.Height)
			}
		})
	}
}

func TestAutoCropBlankImage(t *testing.T) {
	white := fill(60, 60, color.NRGBA{255, 255, 255, 255})
	if got := autoCrop(white); got != white {
		t.Fatal("blank image should be returned unchanged")
	}
}

func TestAutoCropTrimsWhiteMargins(t *testing.T) {
	pix := fill(100, 100, color.NRGBA{255, 255, 255, 255})
	for y := 40; y < 60; y++ {
		for x := 40; x < 60; x++ {
			pix.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}
	got := autoCrop(pix)
	// Content box 40..59 plus 10px padding on each side.
	if got.Bounds().Dx() != 40 || got.Bounds().Dy() != 40 {
		t.Fatalf("cropped to %dx%d, want 40x40", got.Bounds().Dx(), got.Bounds().Dy())
	}
}

func TestAutoCropPaddingClampedAtEdges(t *testing.T) {
	pix := fill(50, 50, color.NRGBA{255, 255, 255, 255})
	// Content touching the top-left corner.
	pix.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 255})
	got := autoCrop(pix)
	if got.Bounds().Dx() != 11 || got.Bounds().Dy() != 11 {
		t.Fatalf("cropped to %dx%d, want 11x11", got.Bounds().Dx(), got.Bounds().Dy())
	}
}

func TestAdjustContrastRange(t *testing.T) {
	p := loadTestImage(t, 20, 20)
	if err := p.AdjustContrast(1.5); err == nil {
		t.Fatal("expected error for contrast outside [-1, 1]")
	}
	if err := p.AdjustContrast(0.3); err != nil {
		t.Fatalf("AdjustContrast(0.3): %v", err)
	}
}

func TestAdjustContrastZeroIsIdentity(t *testing.T) {
	pix := fill(10, 10, color.NRGBA{100, 150, 200, 255})
	out := adjustContrast(pix, 0)
	for i := range pix.Pix {
		if out.Pix[i] != pix.Pix[i] {
			t.Fatalf("pixel byte %d changed: %d -> %d", i, pix.Pix[i], out.Pix[i])
		}
	}
}

func TestAdjustContrastPushesApart(t *testing.T) {
	pix := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	pix.SetNRGBA(0, 0, color.NRGBA{100, 100, 100, 255})
	pix.SetNRGBA(1, 0, color.NRGBA{160, 160, 160, 255})
	out := adjustContrast(pix, 0.5)
	dark := out.NRGBAAt(0, 0).R
	light := out.NRGBAAt(1, 0).R
	if dark >= 100 {
		t.Errorf("dark pixel should move toward 0, got %d", dark)
	}
	if light <= 160 {
		t.Errorf("light pixel should move toward 255, got %d", light)
	}
}

func TestOptimizeForOCRProducesGrayscale(t *testing.T) {
	pix := fill(30, 30, color.NRGBA{200, 120, 60, 255})
	// A dark patch so the stretch has a real range to work with.
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			pix.SetNRGBA(x, y, color.NRGBA{20, 20, 20, 255})
		}
	}
	out := optimizeForOCR(pix)
	if out.Bounds().Dx() != 30 || out.Bounds().Dy() != 30 {
		t.Fatalf("dimensions changed: %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			c := out.NRGBAAt(x, y)
			if c.R != c.G || c.G != c.B {
				t.Fatalf("pixel (%d,%d) not grayscale: %v", x, y, c)
			}
			if c.A != 255 {
				t.Fatalf("pixel (%d,%d) alpha changed: %d", x, y, c.A)
			}
		}
	}
}

func TestOptimizeForOCRStretchesHistogram(t *testing.T) {
	pix := fill(20, 20, color.NRGBA{120, 120, 120, 255})
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			pix.SetNRGBA(x, y, color.NRGBA{160, 160, 160, 255})
		}
	}
	out := optimizeForOCR(pix)
	// The darkest input maps to 0 and the brightest to 255; corners are
	// outside the sharpening interior so they keep the stretched value.
	if got := out.NRGBAAt(0, 0).R; got != 0 {
		t.Errorf("stretched minimum = %d, want 0", got)
	}
}

func TestOptimizeForOCRAppliedTwice(t *testing.T) {
	// Dimensions stay stable across repeated applications.
	p := loadTestImage(t, 30, 20)
	for i := 0; i < 2; i++ {
		if err := p.OptimizeForOCR(); err != nil {
			t.Fatalf("pass %d: %v", i+1, err)
		}
		cur := p.Current()
		if cur.Width != 30 || cur.Height != 20 {
			t.Fatalf("pass %d: dimensions %dx%d, want 30x20", i+1, cur.Width, cur.Height)
		}
	}
}

func TestOptimizeForOCRFixedPointOnFlatImage(t *testing.T) {
	// On a flat buffer there is no histogram range to stretch and the
	// Laplacian is zero everywhere, so a second pass changes nothing.
	flat := fill(24, 24, color.NRGBA{180, 140, 90, 255})
	once := optimizeForOCR(flat)
	twice := optimizeForOCR(once)
	if twice.Bounds() != once.Bounds() {
		t.Fatalf("bounds changed: %v -> %v", once.Bounds(), twice.Bounds())
	}
	for i := range once.Pix {
		if twice.Pix[i] != once.Pix[i] {
			t.Fatalf("pixel byte %d changed on second pass: %d -> %d", i, once.Pix[i], twice.Pix[i])
		}
	}
}

func TestApplyOrientationIdentity(t *testing.T) {
	pix := fill(12, 8, color.NRGBA{10, 20, 30, 255})
	tests := []struct {
		orientation  int
		wantW, wantH int
	}{
		{1, 12, 8},
		{2, 12, 8},
		{3, 12, 8},
		{4, 12, 8},
		{5, 8, 12},
		{6, 8, 12},
		{7, 8, 12},
		{8, 8, 12},
	}
	for _, tt := range tests {
		out := applyOrientation(pix, tt.orientation)
		if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
			t.Errorf("orientation %d: %dx%d, want %dx%d",
				tt.orientation, out.Bounds().Dx(), out.Bounds().Dy(), tt.wantW, tt.wantH)
		}
	}
}

func TestResetClearsState(t *testing.T) {
	p := loadTestImage(t, 20, 20)
	p.Reset()
	if p.Current() != nil || p.Original() != nil {
		t.Fatal("Reset should discard both buffers")
	}
	if err := p.Rotate(90); !errors.Is(err, ErrNoImageLoaded) {
		t.Fatalf("expected ErrNoImageLoaded after Reset, got %v", err)
	}
}
