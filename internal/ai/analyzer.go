package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safemeals/menu-analysis-service/internal/models"
)

// Analyzer handles AI-based menu analysis against a user's safety profile.
type Analyzer struct {
	provider Provider
}

// NewAnalyzer creates a new AI analyzer.
func NewAnalyzer(provider Provider) *Analyzer {
	return &Analyzer{provider: provider}
}

// Analysis is the validated AI output before the DB cross-check.
type Analysis struct {
	Menus   []models.MenuItemVerdict
	Summary string
}

// Analyze sends the menu image plus the user's allergy/diet context to the
// model and strictly validates the structured response. Malformed output is
// a hard failure with a specific error code, never a silent SAFE.
func (a *Analyzer) Analyze(ctx context.Context, imageBytes []byte, mimeFormat, locale string, user models.UserSafetyContext) (*Analysis, time.Duration, error) {
	start := time.Now()

	prompt := buildMenuPrompt(locale, user)
	response, err := a.provider.AnalyzeImage(ctx, prompt, imageBytes, mimeFormat)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, err
	}

	log.Printf("[AI] %s responded with %d chars", a.provider.Name(), len(response))

	analysis, err := parseMenuResponse(response)
	if err != nil {
		return nil, elapsed, err
	}
	return analysis, elapsed, nil
}

// buildMenuPrompt creates the vision prompt embedding the user's profile.
func buildMenuPrompt(locale string, user models.UserSafetyContext) string {
	var allergies []string
	for _, a := range user.Allergies {
		allergies = append(allergies, fmt.Sprintf("%s (severity: %s)", a.Code, a.Severity))
	}
	allergyList := "none"
	if len(allergies) > 0 {
		allergyList = strings.Join(allergies, ", ")
	}
	dietList := "none"
	if len(user.Diets) > 0 {
		dietList = strings.Join(user.Diets, ", ")
	}
	if locale == "" {
		locale = "en"
	}

	return fmt.Sprintf(`You are an expert at reading restaurant menus and assessing food safety for people with allergies and dietary restrictions.

## READING INSTRUCTIONS

STEP 1 - EXAMINE THE WHOLE IMAGE:
- Read every menu item name, even stylized or handwritten text
- Read descriptions and side notes; they often list ingredients
- Ignore prices, logos and decorations

STEP 2 - FOR EACH MENU ITEM, INFER THE TYPICAL INGREDIENTS:
- Use your knowledge of the cuisine to list the ingredients this dish normally contains
- Include hidden ingredients (broths, sauces, marinades, cooking fats)
- NEVER invent dishes that are not on the menu

STEP 3 - ASSESS SAFETY FOR THIS USER:
- User allergies: %s
- User dietary restrictions: %s
- safety_status must be exactly one of: SAFE, CAUTION, DANGER
- DANGER: the dish almost certainly contains an allergen or forbidden ingredient
- CAUTION: the dish may contain one (hidden ingredients, cross-contamination, uncertain recipe)
- SAFE: no indication of any conflict

## OUTPUT FORMAT

Return ONLY valid JSON (no markdown, no comments):
{
  "menus": [
    {
      "name": "original item name exactly as printed",
      "translated_name": "item name translated to locale %s",
      "description": "one-line description in locale %s",
      "ingredients": ["ingredient", "..."],
      "safety_status": "SAFE|CAUTION|DANGER",
      "rationale": "short reason in locale %s"
    }
  ],
  "summary": "one-sentence overall summary in locale %s"
}

## CRITICAL RULES

1. Every detected menu item gets exactly one entry
2. ingredients must be in the menu's original language so they can be cross-checked
3. NEVER return a status other than SAFE, CAUTION or DANGER
4. NEVER omit safety_status or name
5. When in doubt between two statuses, pick the more severe one
6. If the image contains no menu at all, return {"menus": [], "summary": "..."}

NOW ANALYZE THE MENU IMAGE CAREFULLY.`, allergyList, dietList, locale, locale, locale, locale)
}

// parseMenuResponse converts the raw model text into a validated Analysis.
func parseMenuResponse(response string) (*Analysis, error) {
	// Clean response (remove markdown code blocks if present)
	cleaned := strings.TrimSpace(response)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var raw struct {
		Menus []struct {
			Name           string   `json:"name"`
			TranslatedName string   `json:"translated_name"`
			Description    string   `json:"description"`
			Ingredients    []string `json:"ingredients"`
			SafetyStatus   *string  `json:"safety_status"`
			Rationale      string   `json:"rationale"`
		} `json:"menus"`
		Summary string `json:"summary"`
	}

	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, &ProviderError{Code: CodeParseError, Err: fmt.Errorf("JSON parse error: %w", err)}
	}
	if raw.Menus == nil {
		return nil, &ProviderError{Code: CodeInvalidFormat, Err: fmt.Errorf("response missing required field: menus")}
	}

	analysis := &Analysis{
		Menus:   make([]models.MenuItemVerdict, 0, len(raw.Menus)),
		Summary: raw.Summary,
	}
	for i, item := range raw.Menus {
		if item.Name == "" {
			return nil, &ProviderError{Code: CodeInvalidFormat, Err: fmt.Errorf("menu item %d missing name", i)}
		}
		if item.SafetyStatus == nil {
			return nil, &ProviderError{Code: CodeInvalidFormat, Err: fmt.Errorf("menu item %q missing safety_status", item.Name)}
		}
		status := models.SafetyStatus(strings.ToUpper(strings.TrimSpace(*item.SafetyStatus)))
		if !status.Valid() {
			return nil, &ProviderError{Code: CodeInvalidStatusValue, Err: fmt.Errorf("menu item %q has status %q", item.Name, *item.SafetyStatus)}
		}

		ingredients := item.Ingredients
		if ingredients == nil {
			ingredients = []string{}
		}
		analysis.Menus = append(analysis.Menus, models.MenuItemVerdict{
			ID:             uuid.New().String(),
			Name:           item.Name,
			TranslatedName: item.TranslatedName,
			Description:    item.Description,
			Ingredients:    ingredients,
			Status:         status,
			Rationale:      item.Rationale,
		})
	}
	return analysis, nil
}
