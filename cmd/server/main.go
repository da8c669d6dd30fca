package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/safemeals/menu-analysis-service/api"
	"github.com/safemeals/menu-analysis-service/internal/ai"
	"github.com/safemeals/menu-analysis-service/internal/auth"
	"github.com/safemeals/menu-analysis-service/internal/db"
	"github.com/safemeals/menu-analysis-service/internal/models"
	"github.com/safemeals/menu-analysis-service/internal/ocr"
	"github.com/safemeals/menu-analysis-service/internal/pipeline"
	"github.com/safemeals/menu-analysis-service/internal/storage"
)

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := auth.Init(); err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	// Database is optional: without it the service still analyzes, using
	// the compiled-in keyword set and skipping history.
	if err := db.Init(); err != nil {
		log.Printf("WARNING: Database not available: %v", err)
		log.Printf("Running without persistence and stored safety profiles")
	} else {
		defer db.Close()
		log.Println("Database connected")
	}

	// Storage is optional too: captures are simply not retained.
	if err := storage.Init(); err != nil {
		log.Printf("WARNING: Storage not available: %v", err)
		log.Printf("Running without image retention")
	} else {
		log.Printf("Storage connected (bucket: %s)", storage.BucketName)
	}

	provider, err := buildProvider(config)
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	log.Printf("Using AI provider: %s", provider.Name())

	extractor := ocr.NewVisionOCR(config.OCR.APIKey, config.OCR.Language)

	svc := pipeline.NewService(config.Analysis, extractor, provider)
	handler := api.NewHandler(svc)
	router := api.SetupRoutes(handler)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Menu analysis service listening on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildProvider selects the configured vision model backend.
func buildProvider(config *models.Config) (ai.Provider, error) {
	switch config.AI.DefaultProvider {
	case "", "gemini":
		if config.AI.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini api key is required (GEMINI_API_KEY)")
		}
		return ai.NewGeminiProvider(config.AI.Gemini.APIKey, config.AI.Gemini.Model), nil
	case "openai":
		if config.AI.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai api key is required (OPENAI_API_KEY)")
		}
		return ai.NewOpenAIProvider(config.AI.OpenAI.APIKey, config.AI.OpenAI.BaseURL, config.AI.OpenAI.Model), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", config.AI.DefaultProvider)
	}
}

// loadConfig reads the YAML config file and applies environment overrides.
// A missing file is fine; env vars alone can configure the service.
func loadConfig(path string) (*models.Config, error) {
	config := &models.Config{
		Port: 8080,
		Host: "0.0.0.0",
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Environment overrides
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Port = port
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.AI.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.AI.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		config.AI.OpenAI.BaseURL = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		config.AI.DefaultProvider = v
	}
	if v := os.Getenv("VISION_API_KEY"); v != "" {
		config.OCR.APIKey = v
	}
	if v := os.Getenv("OCR_LANGUAGE"); v != "" {
		config.OCR.Language = v
	}

	if config.OCR.APIKey == "" {
		return nil, fmt.Errorf("vision api key is required (VISION_API_KEY)")
	}

	return config, nil
}
