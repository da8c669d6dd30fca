package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/safemeals/menu-analysis-service/internal/models"
)

const validResponse = `{
	"menus": [
		{
			"name": "크림 파스타",
			"translated_name": "Cream Pasta",
			"description": "Pasta in a dairy cream sauce",
			"ingredients": ["크림", "우유", "밀가루"],
			"safety_status": "DANGER",
			"rationale": "Contains dairy"
		},
		{
			"name": "비빔밥",
			"translated_name": "Bibimbap",
			"ingredients": ["쌀", "야채", "고추장"],
			"safety_status": "SAFE"
		}
	],
	"summary": "One dish conflicts with your milk allergy."
}`

func TestParseMenuResponseValid(t *testing.T) {
	analysis, err := parseMenuResponse(validResponse)
	if err != nil {
		t.Fatalf("parseMenuResponse: %v", err)
	}
	if len(analysis.Menus) != 2 {
		t.Fatalf("parsed %d items, want 2", len(analysis.Menus))
	}
	first := analysis.Menus[0]
	if first.Status != models.StatusDanger {
		t.Errorf("status = %s, want DANGER", first.Status)
	}
	if first.ID == "" || analysis.Menus[1].ID == "" {
		t.Error("items must be assigned ids")
	}
	if first.ID == analysis.Menus[1].ID {
		t.Error("item ids must be unique")
	}
	if analysis.Summary == "" {
		t.Error("summary missing")
	}
}

func TestParseMenuResponseStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"
	analysis, err := parseMenuResponse(fenced)
	if err != nil {
		t.Fatalf("parseMenuResponse: %v", err)
	}
	if len(analysis.Menus) != 2 {
		t.Fatalf("parsed %d items, want 2", len(analysis.Menus))
	}
}

func TestParseMenuResponseEmptyMenuList(t *testing.T) {
	analysis, err := parseMenuResponse(`{"menus": [], "summary": "No menu detected."}`)
	if err != nil {
		t.Fatalf("parseMenuResponse: %v", err)
	}
	if len(analysis.Menus) != 0 {
		t.Fatalf("parsed %d items, want 0", len(analysis.Menus))
	}
}

func TestParseMenuResponseNilIngredients(t *testing.T) {
	analysis, err := parseMenuResponse(`{"menus": [{"name": "물", "safety_status": "SAFE"}], "summary": "ok"}`)
	if err != nil {
		t.Fatalf("parseMenuResponse: %v", err)
	}
	if analysis.Menus[0].Ingredients == nil {
		t.Fatal("ingredients must never be nil")
	}
}

func TestParseMenuResponseErrors(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantCode string
	}{
		{"not json", "I could not read the menu, sorry!", CodeParseError},
		{"truncated json", `{"menus": [{"name": "비빔`, CodeParseError},
		{"missing menus field", `{"summary": "looks fine"}`, CodeInvalidFormat},
		{"missing item name", `{"menus": [{"safety_status": "SAFE"}], "summary": "x"}`, CodeInvalidFormat},
		{"missing safety status", `{"menus": [{"name": "비빔밥"}], "summary": "x"}`, CodeInvalidFormat},
		{"unknown status value", `{"menus": [{"name": "비빔밥", "safety_status": "MOSTLY_FINE"}], "summary": "x"}`, CodeInvalidStatusValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseMenuResponse(tt.response)
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProviderError, got %T", err)
			}
			if perr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", perr.Code, tt.wantCode)
			}
		})
	}
}

func TestParseMenuResponseNormalizesStatusCase(t *testing.T) {
	analysis, err := parseMenuResponse(`{"menus": [{"name": "비빔밥", "safety_status": " safe "}], "summary": "x"}`)
	if err != nil {
		t.Fatalf("parseMenuResponse: %v", err)
	}
	if analysis.Menus[0].Status != models.StatusSafe {
		t.Fatalf("status = %s, want SAFE", analysis.Menus[0].Status)
	}
}

// stubProvider returns a canned response and records the prompt.
type stubProvider struct {
	response string
	err      error
	prompt   string
}

func (s *stubProvider) AnalyzeImage(ctx context.Context, prompt string, imageBytes []byte, mimeFormat string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func (s *stubProvider) Name() string { return "stub" }

func TestAnalyzeEmbedsUserProfileInPrompt(t *testing.T) {
	stub := &stubProvider{response: validResponse}
	a := NewAnalyzer(stub)

	user := models.UserSafetyContext{
		Allergies: []models.Allergy{{Code: "milk", Severity: models.SeverityLifeThreatening}},
		Diets:     []string{"halal"},
	}
	_, _, err := a.Analyze(context.Background(), []byte{0xff, 0xd8}, "jpeg", "ko", user)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for _, want := range []string{"milk", "life_threatening", "halal", "ko"} {
		if !strings.Contains(stub.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnalyzePropagatesProviderError(t *testing.T) {
	stub := &stubProvider{err: &ProviderError{Code: CodeAPIError, RateLimit: true, RetryAfter: 30, Err: errors.New("quota")}}
	a := NewAnalyzer(stub)

	_, _, err := a.Analyze(context.Background(), nil, "jpeg", "en", models.UserSafetyContext{})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !perr.RateLimit || perr.RetryAfter != 30 {
		t.Errorf("rate limit hint lost: %+v", perr)
	}
}

func TestAsProviderErrorWrapsUnknown(t *testing.T) {
	perr := AsProviderError(errors.New("boom"))
	if perr.Code != CodeAPIError {
		t.Fatalf("code = %s, want %s", perr.Code, CodeAPIError)
	}
	known := &ProviderError{Code: CodeParseError}
	if got := AsProviderError(known); got != known {
		t.Fatal("existing ProviderError should pass through unchanged")
	}
}
