package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"math"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// TextExtractor is the boundary to the external text-recognition service.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageBytes []byte, imageWidth, imageHeight int) (*ExtractedText, error)
}

// VisionOCR extracts menu text through the Google Cloud Vision API.
type VisionOCR struct {
	apiKey   string
	language string
}

// NewVisionOCR creates a Vision-backed extractor. language is an OCR hint
// (e.g. "ko"), not the response locale.
func NewVisionOCR(apiKey, language string) *VisionOCR {
	if language == "" {
		language = "ko"
	}
	return &VisionOCR{apiKey: apiKey, language: language}
}

// ExtractText sends the prepared image to Vision and converts the
// annotations into an ExtractedText with clamped bounding boxes.
func (v *VisionOCR) ExtractText(ctx context.Context, imageBytes []byte, imageWidth, imageHeight int) (*ExtractedText, error) {
	svc, err := vision.NewService(ctx, option.WithAPIKey(v.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image: &vision.Image{
					Content: base64.StdEncoding.EncodeToString(imageBytes),
				},
				Features: []*vision.Feature{
					{Type: "TEXT_DETECTION"},
				},
				ImageContext: &vision.ImageContext{
					LanguageHints: []string{v.language},
				},
			},
		},
	}

	resp, err := svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("vision annotate failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("vision returned no responses")
	}
	annotated := resp.Responses[0]
	if annotated.Error != nil {
		return nil, fmt.Errorf("vision error: %s", annotated.Error.Message)
	}

	result := &ExtractedText{}
	if len(annotated.TextAnnotations) == 0 {
		log.Printf("[OCR] Vision found no text")
		return result, nil
	}

	// The first annotation is the whole detected block; the rest are the
	// individual words.
	result.FullText = annotated.TextAnnotations[0].Description

	var confSum float64
	var confCount int
	for _, word := range annotated.TextAnnotations[1:] {
		span := TextSpan{
			Text:       word.Description,
			Confidence: word.Confidence,
			Box:        polyToBox(word.BoundingPoly, imageWidth, imageHeight),
		}
		if span.Confidence > 0 {
			confSum += span.Confidence
			confCount++
		}
		result.Spans = append(result.Spans, span)
	}
	if confCount > 0 {
		result.AvgConfidence = confSum / float64(confCount)
	} else {
		// Vision omits per-word confidence on some languages; treat the
		// presence of text as a strong signal rather than a weak one.
		result.AvgConfidence = 0.9
	}

	log.Printf("[OCR] Vision extracted %d spans, %d chars", len(result.Spans), len(result.FullText))
	return result, nil
}

// polyToBox converts a Vision bounding polygon to an axis-aligned box
// clamped to the image.
func polyToBox(poly *vision.BoundingPoly, imageWidth, imageHeight int) BoundingBox {
	if poly == nil || len(poly.Vertices) == 0 {
		return BoundingBox{}
	}
	x0, y0 := math.MaxInt32, math.MaxInt32
	x1, y1 := math.MinInt32, math.MinInt32
	for _, vtx := range poly.Vertices {
		x := int(vtx.X)
		y := int(vtx.Y)
		if x < x0 {
			x0 = x
		}
		if x > x1 {
			x1 = x
		}
		if y < y0 {
			y0 = y
		}
		if y > y1 {
			y1 = y
		}
	}
	return clampBox(x0, y0, x1, y1, imageWidth, imageHeight)
}
