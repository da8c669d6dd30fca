package models

import (
	"time"
)

// SafetyStatus is the per-item and overall menu safety classification.
type SafetyStatus string

const (
	StatusSafe    SafetyStatus = "SAFE"
	StatusCaution SafetyStatus = "CAUTION"
	StatusDanger  SafetyStatus = "DANGER"
)

// statusRank orders statuses by severity for monotonic escalation.
var statusRank = map[SafetyStatus]int{
	StatusSafe:    0,
	StatusCaution: 1,
	StatusDanger:  2,
}

// Valid reports whether s is one of the three known statuses.
func (s SafetyStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the severity rank (SAFE=0 < CAUTION=1 < DANGER=2).
// Unknown statuses rank below SAFE so they can never mask a real verdict.
func (s SafetyStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// MoreSevereThan reports whether s outranks other.
func (s SafetyStatus) MoreSevereThan(other SafetyStatus) bool {
	return s.Rank() > other.Rank()
}

// Confidence tiers for the quick verdict.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Severity tiers for a user allergy.
type Severity string

const (
	SeverityMild            Severity = "mild"
	SeverityModerate        Severity = "moderate"
	SeveritySevere          Severity = "severe"
	SeverityLifeThreatening Severity = "life_threatening"
)

// ValidSeverity reports whether s is a known severity tier.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityLifeThreatening:
		return true
	}
	return false
}

// Allergy is one entry of a user's allergy profile.
type Allergy struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
}

// UserSafetyContext is an immutable snapshot of the user's allergy and diet
// profile, fetched once per analysis request and shared read-only afterwards.
type UserSafetyContext struct {
	Allergies []Allergy `json:"allergies"`
	Diets     []string  `json:"diets"`
}

// AllergyCodes returns the allergy codes in profile order.
func (c UserSafetyContext) AllergyCodes() []string {
	codes := make([]string, 0, len(c.Allergies))
	for _, a := range c.Allergies {
		codes = append(codes, a.Code)
	}
	return codes
}

// HasAllergies reports whether the user declared at least one allergy.
func (c UserSafetyContext) HasAllergies() bool {
	return len(c.Allergies) > 0
}

// QuickVerdict is the fast, local, keyword-only provisional classification
// produced before any AI call returns. Immutable after creation; a
// FinalVerdict always supersedes it and is never merged with it.
type QuickVerdict struct {
	Level            SafetyStatus `json:"level"`
	TriggerCodes     []string     `json:"trigger_codes"`
	TriggerLabels    []string     `json:"trigger_labels"`
	Summary          string       `json:"summary"`
	Confidence       Confidence   `json:"confidence"`
	QuestionForStaff string       `json:"question_for_staff"`
}

// MenuItemVerdict is the AI-derived verdict for one detected menu item.
// Status may be escalated (never downgraded) by the DB cross-check.
type MenuItemVerdict struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	TranslatedName   string       `json:"translated_name,omitempty"`
	Description      string       `json:"description,omitempty"`
	Ingredients      []string     `json:"ingredients"`
	Status           SafetyStatus `json:"safety_status"`
	Rationale        string       `json:"rationale,omitempty"`
	MatchedAllergens []string     `json:"matched_allergens,omitempty"`
	DBEscalated      bool         `json:"db_escalated,omitempty"`
}

// FinalVerdict is the AI-derived, DB-cross-checked, escalated result.
type FinalVerdict struct {
	Menus []MenuItemVerdict `json:"menus"`

	// Results mirrors Menus; older clients read the escalated items here.
	Results []MenuItemVerdict `json:"results"`

	Summary    string       `json:"summary"`
	Overall    SafetyStatus `json:"overall_status"`
	DBEnhanced bool         `json:"db_enhanced"`
}

// Timings carries per-phase durations in milliseconds.
type Timings struct {
	QuickMs  int64 `json:"quickMs"`
	GeminiMs int64 `json:"geminiMs,omitempty"`
	TotalMs  int64 `json:"totalMs,omitempty"`
}

// AnalysisStatus is the protocol phase of an analysis job.
type AnalysisStatus string

const (
	AnalysisPartial AnalysisStatus = "PARTIAL"
	AnalysisFinal   AnalysisStatus = "FINAL"
	AnalysisFailed  AnalysisStatus = "FAILED"
)

// AnalyzeRequest is the JSON body accepted by the analysis endpoint.
type AnalyzeRequest struct {
	Image       string             `json:"image"` // base64 data URI (JPEG/PNG/WebP)
	Language    string             `json:"language"`
	UserContext *UserSafetyContext `json:"user_context,omitempty"`
	DeviceInfo  DeviceInfo         `json:"device_info,omitempty"`
}

// DeviceInfo is opaque client metadata, logged but never interpreted.
type DeviceInfo struct {
	Platform  string `json:"platform,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// AnalyzeResponse is the two-shape response of the analysis endpoint:
// PARTIAL carries only the quick verdict, FINAL adds the full result.
// On a transient AI failure the quick verdict is still delivered, with
// the failure's code and retry hint alongside.
type AnalyzeResponse struct {
	Status      AnalysisStatus `json:"status"`
	JobID       string         `json:"jobId"`
	QuickResult *QuickVerdict  `json:"quickResult,omitempty"`
	Result      *FinalVerdict  `json:"result,omitempty"`
	Timings     Timings        `json:"timings"`
	ErrorCode   string         `json:"error_code,omitempty"`
	RetryAfter  int            `json:"retry_after,omitempty"`
}

// ErrorResponse is the failure envelope for every endpoint.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ErrorCode  string `json:"error_code,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// AnalysisRecord is the persisted form of a completed analysis.
type AnalysisRecord struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	JobID          string         `json:"job_id"`
	ImageURL       string         `json:"image_url,omitempty"`
	Language       string         `json:"language"`
	Status         AnalysisStatus `json:"status"`
	Overall        SafetyStatus   `json:"overall_status,omitempty"`
	QuickLevel     SafetyStatus   `json:"quick_level,omitempty"`
	ResultJSON     string         `json:"result_json,omitempty"`
	QuickJSON      string         `json:"quick_json,omitempty"`
	OCRText        string         `json:"ocr_text,omitempty"`
	ItemCount      int            `json:"item_count"`
	QuickMs        int64          `json:"quick_ms"`
	GeminiMs       int64          `json:"gemini_ms"`
	TotalMs        int64          `json:"total_ms"`
	CreatedAt      time.Time      `json:"created_at"`
	DevicePlatform string         `json:"device_platform,omitempty"`
}
