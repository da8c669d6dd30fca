package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/safemeals/menu-analysis-service/internal/auth"
	"github.com/safemeals/menu-analysis-service/internal/db"
	"github.com/safemeals/menu-analysis-service/internal/models"
	"github.com/safemeals/menu-analysis-service/internal/pipeline"
)

// Handler holds HTTP handler dependencies.
type Handler struct {
	pipeline *pipeline.Service
}

// NewHandler creates a new API handler.
func NewHandler(p *pipeline.Service) *Handler {
	return &Handler{pipeline: p}
}

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check (no auth)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	api.HandleFunc("/analyze-menu", h.AnalyzeMenu).Methods("POST")
	api.HandleFunc("/analysis/{jobId}", h.PollAnalysis).Methods("GET")

	api.HandleFunc("/analyses", h.ListAnalyses).Methods("GET")
	api.HandleFunc("/analyses/{id}", h.GetAnalysis).Methods("GET")
	api.HandleFunc("/analyses/{id}", h.DeleteAnalysis).Methods("DELETE")

	return r
}

// HealthCheck returns service status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":   "ok",
		"service":  "menu-analysis",
		"database": db.Pool != nil,
	}
	sendJSON(w, http.StatusOK, status)
}

// sendJSON writes a JSON response
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

// sendError writes the failure envelope. message is client-safe text;
// internal error details stay in the logs only.
func sendError(w http.ResponseWriter, status int, message, errorCode string, retryAfter int) {
	sendJSON(w, status, models.ErrorResponse{
		Success:    false,
		Message:    message,
		ErrorCode:  errorCode,
		RetryAfter: retryAfter,
	})
}
