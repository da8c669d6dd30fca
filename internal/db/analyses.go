package db

import (
	"context"

	"github.com/safemeals/menu-analysis-service/internal/models"
)

// SaveAnalysis persists one completed (or failed) analysis for the user.
func SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	if Pool == nil {
		return ErrNoDatabase
	}

	query := `
		INSERT INTO menu_analyses (
			user_id, job_id, image_url, language, status,
			overall_status, quick_level, result_json, quick_json, ocr_text,
			item_count, quick_ms, gemini_ms, total_ms, device_platform
		) VALUES (
			$1::uuid, $2::uuid, $3, $4, $5,
			$6, $7, $8::jsonb, $9::jsonb, $10,
			$11, $12, $13, $14, $15
		)
		RETURNING id, created_at
	`

	// Handle nullable JSONB
	var resultJSON, quickJSON interface{}
	if rec.ResultJSON != "" {
		resultJSON = rec.ResultJSON
	}
	if rec.QuickJSON != "" {
		quickJSON = rec.QuickJSON
	}

	return Pool.QueryRow(ctx, query,
		rec.UserID, rec.JobID, rec.ImageURL, rec.Language, string(rec.Status),
		string(rec.Overall), string(rec.QuickLevel), resultJSON, quickJSON, rec.OCRText,
		rec.ItemCount, rec.QuickMs, rec.GeminiMs, rec.TotalMs, rec.DevicePlatform,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// GetAnalyses returns the user's analyses, newest first.
func GetAnalyses(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT id, user_id, job_id, COALESCE(image_url, ''), COALESCE(language, ''),
		       COALESCE(status, 'FINAL'), COALESCE(overall_status, ''), COALESCE(quick_level, ''),
		       COALESCE(result_json::text, ''), COALESCE(quick_json::text, ''),
		       COALESCE(item_count, 0), COALESCE(quick_ms, 0), COALESCE(gemini_ms, 0),
		       COALESCE(total_ms, 0), created_at
		FROM menu_analyses
		WHERE user_id = $1::uuid
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		var rec models.AnalysisRecord
		var status, overall, quickLevel string
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.JobID, &rec.ImageURL, &rec.Language,
			&status, &overall, &quickLevel,
			&rec.ResultJSON, &rec.QuickJSON,
			&rec.ItemCount, &rec.QuickMs, &rec.GeminiMs,
			&rec.TotalMs, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.Status = models.AnalysisStatus(status)
		rec.Overall = models.SafetyStatus(overall)
		rec.QuickLevel = models.SafetyStatus(quickLevel)
		records = append(records, rec)
	}

	return records, nil
}

// GetAnalysisByID returns one analysis owned by the user.
func GetAnalysisByID(ctx context.Context, userID, analysisID string) (*models.AnalysisRecord, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT id, user_id, job_id, COALESCE(image_url, ''), COALESCE(language, ''),
		       COALESCE(status, 'FINAL'), COALESCE(overall_status, ''), COALESCE(quick_level, ''),
		       COALESCE(result_json::text, ''), COALESCE(quick_json::text, ''),
		       COALESCE(ocr_text, ''),
		       COALESCE(item_count, 0), COALESCE(quick_ms, 0), COALESCE(gemini_ms, 0),
		       COALESCE(total_ms, 0), created_at
		FROM menu_analyses
		WHERE user_id = $1::uuid AND id = $2::uuid
	`

	var rec models.AnalysisRecord
	var status, overall, quickLevel string
	err := Pool.QueryRow(ctx, query, userID, analysisID).Scan(
		&rec.ID, &rec.UserID, &rec.JobID, &rec.ImageURL, &rec.Language,
		&status, &overall, &quickLevel,
		&rec.ResultJSON, &rec.QuickJSON,
		&rec.OCRText,
		&rec.ItemCount, &rec.QuickMs, &rec.GeminiMs,
		&rec.TotalMs, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = models.AnalysisStatus(status)
	rec.Overall = models.SafetyStatus(overall)
	rec.QuickLevel = models.SafetyStatus(quickLevel)
	return &rec, nil
}

// DeleteAnalysis removes one analysis owned by the user.
func DeleteAnalysis(ctx context.Context, userID, analysisID string) error {
	if Pool == nil {
		return ErrNoDatabase
	}

	query := `DELETE FROM menu_analyses WHERE user_id = $1::uuid AND id = $2::uuid`
	_, err := Pool.Exec(ctx, query, userID, analysisID)
	return err
}
