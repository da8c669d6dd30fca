package db

import (
	"context"
	"fmt"

	"github.com/safemeals/menu-analysis-service/internal/models"
)

// GetUserSafetyContext loads the user's allergy and diet profile. The
// snapshot is fetched once per analysis request and treated as read-only
// afterwards. Duplicate allergy codes are collapsed, keeping the first
// (most recently updated) severity.
func GetUserSafetyContext(ctx context.Context, userID string) (*models.UserSafetyContext, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}

	profile := &models.UserSafetyContext{}

	rows, err := Pool.Query(ctx, `
		SELECT allergen_code, COALESCE(severity, 'moderate')
		FROM user_allergies
		WHERE user_id = $1::uuid
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allergies: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var code string
		var severity string
		if err := rows.Scan(&code, &severity); err != nil {
			return nil, err
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		sev := models.Severity(severity)
		if !models.ValidSeverity(sev) {
			sev = models.SeverityModerate
		}
		profile.Allergies = append(profile.Allergies, models.Allergy{Code: code, Severity: sev})
	}

	dietRows, err := Pool.Query(ctx, `
		SELECT diet_code FROM user_diets WHERE user_id = $1::uuid ORDER BY diet_code
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query diets: %w", err)
	}
	defer dietRows.Close()

	for dietRows.Next() {
		var code string
		if err := dietRows.Scan(&code); err != nil {
			return nil, err
		}
		profile.Diets = append(profile.Diets, code)
	}

	return profile, nil
}

// MatchAllergenKeywords returns the allergen codes, out of the given set,
// whose keyword table contains a substring of the ingredient name.
// Matching is case-insensitive and done in SQL so the keyword table stays
// the single source of truth.
func MatchAllergenKeywords(ctx context.Context, ingredient string, allergenCodes []string) ([]string, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}

	rows, err := Pool.Query(ctx, `
		SELECT DISTINCT allergen_code
		FROM allergen_keywords
		WHERE allergen_code = ANY($1)
		  AND POSITION(LOWER(keyword) IN LOWER($2)) > 0
		ORDER BY allergen_code
	`, allergenCodes, ingredient)
	if err != nil {
		return nil, fmt.Errorf("keyword lookup failed: %w", err)
	}
	defer rows.Close()

	var matched []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		matched = append(matched, code)
	}
	return matched, rows.Err()
}
