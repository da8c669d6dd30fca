package verify

import (
	"context"
	"log"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/safemeals/menu-analysis-service/internal/db"
	"github.com/safemeals/menu-analysis-service/internal/models"
	"github.com/safemeals/menu-analysis-service/internal/quick"
)

// Lookup matches one ingredient name against the allergen keyword table
// and returns the matched allergen codes out of the given set.
type Lookup func(ctx context.Context, ingredient string, allergenCodes []string) ([]string, error)

// Result is the verifier's independent judgment for one menu item.
type Result struct {
	IsDangerous      bool     `json:"is_dangerous"`
	MatchedAllergens []string `json:"matched_allergens"`
}

// Verifier cross-checks AI-extracted ingredient names against the allergen
// keyword mapping, independent of the AI's own safety judgment. A lookup
// failure is treated as "no additional evidence": the verifier fails open
// (is_dangerous=false), logs, and never blocks the pipeline.
type Verifier struct {
	lookup Lookup
}

// NewVerifier creates a verifier backed by the Postgres keyword table,
// falling back to the compiled-in keyword set when no database is
// configured.
func NewVerifier() *Verifier {
	return &Verifier{lookup: dbLookup}
}

// NewVerifierWithLookup creates a verifier with a custom lookup.
func NewVerifierWithLookup(lookup Lookup) *Verifier {
	return &Verifier{lookup: lookup}
}

// VerifyItem checks one item's ingredient list against the user's allergy
// codes. Short-circuits without any lookup when there is nothing to check.
func (v *Verifier) VerifyItem(ctx context.Context, item models.MenuItemVerdict, user models.UserSafetyContext) Result {
	if len(item.Ingredients) == 0 || !user.HasAllergies() {
		return Result{MatchedAllergens: []string{}}
	}

	codes := user.AllergyCodes()
	matched := map[string]bool{}
	for _, ingredient := range item.Ingredients {
		found, err := v.lookup(ctx, ingredient, codes)
		if err != nil {
			// Fail open: an unreachable table must not block the verdict,
			// and the caller treats this as "unverified", not "safe".
			log.Printf("[Verify] keyword lookup failed for %q: %v", ingredient, err)
			continue
		}
		for _, code := range found {
			matched[code] = true
		}
	}

	result := Result{MatchedAllergens: make([]string, 0, len(matched))}
	for code := range matched {
		result.MatchedAllergens = append(result.MatchedAllergens, code)
	}
	sort.Strings(result.MatchedAllergens)
	result.IsDangerous = len(result.MatchedAllergens) > 0
	return result
}

// VerifyAll runs the per-item checks concurrently and returns results in
// item order once all lookups have completed. Individual ordering between
// lookups is irrelevant; only their joint completion matters.
func (v *Verifier) VerifyAll(ctx context.Context, items []models.MenuItemVerdict, user models.UserSafetyContext) []Result {
	results := make([]Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			results[i] = v.VerifyItem(gctx, item, user)
			return nil
		})
	}
	// VerifyItem never returns an error (failures are absorbed per item).
	_ = g.Wait()
	return results
}

// dbLookup queries the allergen_keywords table, falling back to the
// compiled-in keyword set when the service runs without a database.
func dbLookup(ctx context.Context, ingredient string, allergenCodes []string) ([]string, error) {
	matched, err := db.MatchAllergenKeywords(ctx, ingredient, allergenCodes)
	if err == nil {
		return matched, nil
	}
	if err != db.ErrNoDatabase {
		return nil, err
	}
	return staticLookup(ingredient, allergenCodes), nil
}

// staticLookup is the in-memory mirror of the keyword table.
func staticLookup(ingredient string, allergenCodes []string) []string {
	lowered := strings.ToLower(ingredient)
	var matched []string
	for _, code := range allergenCodes {
		for _, kw := range quick.KeywordsForAllergen(code) {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				matched = append(matched, code)
				break
			}
		}
	}
	return matched
}
