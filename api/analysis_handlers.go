package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/safemeals/menu-analysis-service/internal/ai"
	"github.com/safemeals/menu-analysis-service/internal/auth"
	"github.com/safemeals/menu-analysis-service/internal/db"
	"github.com/safemeals/menu-analysis-service/internal/models"
	"github.com/safemeals/menu-analysis-service/internal/pipeline"
	"github.com/safemeals/menu-analysis-service/internal/storage"
)

// AnalyzeMenu runs a captured menu photo through the analysis pipeline.
// The response is FINAL when the AI path finishes within the deadline,
// otherwise PARTIAL with a job id to poll.
func (h *Handler) AnalyzeMenu(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		sendError(w, http.StatusUnauthorized, "Unauthorized", "", 0)
		return
	}

	req, err := decodeAnalyzeRequest(r)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error(), "", 0)
		return
	}

	log.Printf("[API] Analyze request from user %s (lang=%s, platform=%s)",
		claims.UserID, req.Language, req.DeviceInfo.Platform)

	resp, err := h.pipeline.Analyze(r.Context(), claims.UserID, req)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, resp)
}

// decodeAnalyzeRequest accepts either a JSON body with a base64 data URI
// or a multipart upload with an "image" file field.
func decodeAnalyzeRequest(r *http.Request) (*models.AnalyzeRequest, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(20 << 20); err != nil {
			return nil, errors.New("invalid multipart form")
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return nil, errors.New("image file is required")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.New("failed to read image file")
		}
		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}

		req := &models.AnalyzeRequest{
			Image:    "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
			Language: r.FormValue("language"),
		}
		if ucJSON := r.FormValue("user_context"); ucJSON != "" {
			var uc models.UserSafetyContext
			if err := json.Unmarshal([]byte(ucJSON), &uc); err != nil {
				return nil, errors.New("invalid user_context field")
			}
			req.UserContext = &uc
		}
		return req, nil
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.New("invalid request body")
	}
	if req.Image == "" {
		return nil, errors.New("image is required")
	}
	return &req, nil
}

// PollAnalysis returns the current state of a background analysis job.
func (h *Handler) PollAnalysis(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		sendError(w, http.StatusUnauthorized, "Unauthorized", "", 0)
		return
	}

	jobID := mux.Vars(r)["jobId"]
	resp, err := h.pipeline.Poll(jobID, claims.UserID)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, resp)
}

// ListAnalyses returns the user's analysis history, newest first.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		sendError(w, http.StatusUnauthorized, "Unauthorized", "", 0)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	records, err := db.GetAnalyses(r.Context(), claims.UserID, limit)
	if err != nil {
		if err == db.ErrNoDatabase {
			sendJSON(w, http.StatusOK, map[string]interface{}{"analyses": []models.AnalysisRecord{}})
			return
		}
		log.Printf("[API] Failed to list analyses for %s: %v", claims.UserID, err)
		sendError(w, http.StatusInternalServerError, "Failed to load analyses", "", 0)
		return
	}
	if records == nil {
		records = []models.AnalysisRecord{}
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"analyses": records})
}

// GetAnalysis returns one stored analysis, with a fresh presigned image
// URL when storage is configured.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		sendError(w, http.StatusUnauthorized, "Unauthorized", "", 0)
		return
	}

	id := mux.Vars(r)["id"]
	rec, err := db.GetAnalysisByID(r.Context(), claims.UserID, id)
	if err != nil {
		if err == pgx.ErrNoRows || err == db.ErrNoDatabase {
			sendError(w, http.StatusNotFound, "Analysis not found", "", 0)
			return
		}
		log.Printf("[API] Failed to load analysis %s: %v", id, err)
		sendError(w, http.StatusInternalServerError, "Failed to load analysis", "", 0)
		return
	}

	if rec.ImageURL != "" && storage.Client != nil {
		if url, err := storage.GetPresignedURL(r.Context(), rec.ImageURL); err == nil {
			rec.ImageURL = url
		} else {
			log.Printf("[API] Failed to presign image for analysis %s: %v", id, err)
		}
	}
	sendJSON(w, http.StatusOK, rec)
}

// DeleteAnalysis removes one stored analysis and its image.
func (h *Handler) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		sendError(w, http.StatusUnauthorized, "Unauthorized", "", 0)
		return
	}

	id := mux.Vars(r)["id"]
	rec, err := db.GetAnalysisByID(r.Context(), claims.UserID, id)
	if err != nil {
		if err == pgx.ErrNoRows || err == db.ErrNoDatabase {
			sendError(w, http.StatusNotFound, "Analysis not found", "", 0)
			return
		}
		log.Printf("[API] Failed to load analysis %s: %v", id, err)
		sendError(w, http.StatusInternalServerError, "Failed to delete analysis", "", 0)
		return
	}

	if err := db.DeleteAnalysis(r.Context(), claims.UserID, id); err != nil {
		log.Printf("[API] Failed to delete analysis %s: %v", id, err)
		sendError(w, http.StatusInternalServerError, "Failed to delete analysis", "", 0)
		return
	}

	if rec.ImageURL != "" && storage.Client != nil {
		if err := storage.DeleteImage(r.Context(), rec.ImageURL); err != nil {
			log.Printf("[API] Failed to delete image for analysis %s: %v", id, err)
		}
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// writeAnalysisError maps pipeline errors onto HTTP statuses and the
// failure envelope. Upstream AI error text never reaches the client.
func writeAnalysisError(w http.ResponseWriter, err error) {
	var inputErr *pipeline.InputError
	if errors.As(err, &inputErr) {
		sendError(w, http.StatusBadRequest, inputErr.Message, "", 0)
		return
	}
	if errors.Is(err, pipeline.ErrJobNotFound) {
		sendError(w, http.StatusNotFound, "Analysis job not found", "", 0)
		return
	}

	var perr *ai.ProviderError
	if errors.As(err, &perr) {
		switch {
		case perr.RateLimit:
			sendError(w, http.StatusTooManyRequests, "AI service is rate limited, please retry", perr.Code, perr.RetryAfter)
		case perr.Timeout:
			sendError(w, http.StatusGatewayTimeout, "AI analysis timed out", perr.Code, 0)
		default:
			sendError(w, http.StatusInternalServerError, "Menu analysis failed", perr.Code, 0)
		}
		return
	}

	log.Printf("[API] Analysis failed: %v", err)
	sendError(w, http.StatusInternalServerError, "Menu analysis failed", "", 0)
}
