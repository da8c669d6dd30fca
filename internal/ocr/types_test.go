package ocr

import "testing"

func TestExtractedTextEmpty(t *testing.T) {
	var nilText *ExtractedText
	if !nilText.Empty() {
		t.Error("nil result should be empty")
	}
	if !(&ExtractedText{}).Empty() {
		t.Error("zero result should be empty")
	}
	if (&ExtractedText{FullText: "메뉴"}).Empty() {
		t.Error("result with text should not be empty")
	}
}

func TestClampBox(t *testing.T) {
	tests := []struct {
		name           string
		x0, y0, x1, y1 int
		want           BoundingBox
	}{
		{"inside", 10, 10, 30, 20, BoundingBox{10, 10, 20, 10}},
		{"negative origin", -5, -3, 10, 10, BoundingBox{0, 0, 10, 10}},
		{"past right and bottom", 90, 90, 150, 150, BoundingBox{90, 90, 10, 10}},
		{"inverted", 50, 50, 40, 40, BoundingBox{50, 50, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampBox(tt.x0, tt.y0, tt.x1, tt.y1, 100, 100)
			if got != tt.want {
				t.Fatalf("clampBox = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateBoxes(t *testing.T) {
	good := &ExtractedText{Spans: []TextSpan{
		{Text: "김치", Box: BoundingBox{X: 0, Y: 0, Width: 50, Height: 20}},
		{Text: "찌개", Box: BoundingBox{X: 60, Y: 0, Width: 40, Height: 20}},
	}}
	if err := good.Validate(100, 100); err != nil {
		t.Fatalf("valid boxes rejected: %v", err)
	}

	bad := &ExtractedText{Spans: []TextSpan{
		{Text: "김치", Box: BoundingBox{X: 90, Y: 0, Width: 20, Height: 20}},
	}}
	if err := bad.Validate(100, 100); err == nil {
		t.Fatal("out-of-frame box accepted")
	}
}
