package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// AI config
	AI AIConfig `yaml:"ai"`

	// Analysis pipeline config
	Analysis AnalysisConfig `yaml:"analysis"`
}

// OCRConfig for the text-extraction boundary
type OCRConfig struct {
	Engine   string `yaml:"engine"`   // "vision" (Google Cloud Vision)
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"` // hint passed to the OCR engine, e.g. "ko"
}

// AIConfig represents AI provider configuration
type AIConfig struct {
	Gemini GeminiConfig `yaml:"gemini"`
	OpenAI OpenAIConfig `yaml:"openai"`

	// Default provider
	DefaultProvider string `yaml:"default_provider"` // "gemini" or "openai"
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-1.5-flash"
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`              // Default: "gpt-4o"
}

// AnalysisConfig tunes the two-phase protocol
type AnalysisConfig struct {
	// Maximum time the request handler waits for the AI path before
	// returning the quick verdict as a PARTIAL response (seconds).
	FinalDeadlineSeconds int `yaml:"final_deadline_seconds"`

	// Hard upper bound for one AI call (seconds).
	AITimeoutSeconds int `yaml:"ai_timeout_seconds"`

	// How long finished jobs are retained for polling (seconds).
	JobRetentionSeconds int `yaml:"job_retention_seconds"`
}
