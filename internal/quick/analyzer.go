package quick

import (
	"strings"
	"unicode/utf8"

	"github.com/safemeals/menu-analysis-service/internal/models"
	"github.com/safemeals/menu-analysis-service/internal/ocr"
)

// Analyzer produces the immediate, deterministic provisional verdict from
// OCR text alone, before any AI call completes. It is fully synchronous
// and performs no I/O.
type Analyzer struct{}

// NewAnalyzer creates a quick analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze applies the fixed rule order:
//
//  1. OCR failed entirely           -> CAUTION, _OCR_FAILED, low
//  2. full text under 10 chars      -> CAUTION, _TEXT_TOO_SHORT, medium
//  3. allergy/diet keyword matched  -> DANGER, matched codes, high
//  4. otherwise                     -> SAFE, confidence from OCR signal
//
// The first applicable rule decides the level; keyword matches from rule 3
// accumulate trigger codes in profile order. The summary and staff question
// are localized for locale; the decision itself is locale-independent.
func (a *Analyzer) Analyze(text *ocr.ExtractedText, user models.UserSafetyContext, locale string) models.QuickVerdict {
	if text.Empty() {
		return models.QuickVerdict{
			Level:            models.StatusCaution,
			TriggerCodes:     []string{TriggerOCRFailed},
			TriggerLabels:    []string{},
			Summary:          localize(locale, msgOCRFailed),
			Confidence:       models.ConfidenceLow,
			QuestionForStaff: localize(locale, questionGeneric),
		}
	}

	if utf8.RuneCountInString(text.FullText) < minReadableTextLen {
		return models.QuickVerdict{
			Level:            models.StatusCaution,
			TriggerCodes:     []string{TriggerTextTooShort},
			TriggerLabels:    []string{},
			Summary:          localize(locale, msgTextTooShort),
			Confidence:       models.ConfidenceMedium,
			QuestionForStaff: localize(locale, questionGeneric),
		}
	}

	lowered := strings.ToLower(text.FullText)

	var codes, labels []string
	allergyHit := false
	dietHit := false

	for _, allergy := range user.Allergies {
		if matchAny(lowered, allergenKeywords[allergy.Code]) {
			codes = append(codes, allergy.Code)
			labels = append(labels, LabelForAllergen(allergy.Code))
			allergyHit = true
		}
	}
	for _, diet := range user.Diets {
		if matchAny(lowered, dietKeywords[diet]) {
			codes = append(codes, dietTriggerPrefix+diet)
			if label, ok := dietLabels[diet]; ok {
				labels = append(labels, label)
			} else {
				labels = append(labels, diet)
			}
			dietHit = true
		}
	}

	if len(codes) > 0 {
		question := questionGeneric
		switch {
		case allergyHit:
			question = questionAllergy
		case dietHit:
			question = questionDiet
		}
		return models.QuickVerdict{
			Level:            models.StatusDanger,
			TriggerCodes:     codes,
			TriggerLabels:    labels,
			Summary:          localize(locale, msgDanger),
			Confidence:       models.ConfidenceHigh,
			QuestionForStaff: localize(locale, question),
		}
	}

	return models.QuickVerdict{
		Level:            models.StatusSafe,
		TriggerCodes:     []string{},
		TriggerLabels:    []string{},
		Summary:          localize(locale, msgSafe),
		Confidence:       safeConfidence(text.AvgConfidence),
		QuestionForStaff: localize(locale, questionGeneric),
	}
}

// safeConfidence grades a SAFE verdict by the OCR engine's own signal:
// a clean keyword scan over barely-legible text is still a weak answer.
func safeConfidence(avg float64) models.Confidence {
	switch {
	case avg >= 0.7:
		return models.ConfidenceHigh
	case avg >= 0.4:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func matchAny(loweredText string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(loweredText, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
