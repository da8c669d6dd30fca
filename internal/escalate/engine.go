package escalate

import (
	"log"

	"github.com/safemeals/menu-analysis-service/internal/models"
	"github.com/safemeals/menu-analysis-service/internal/verify"
)

// Engine merges the AI's own safety judgment with the independent DB
// cross-check. The DB check can only make a verdict more severe, never
// less: SAFE -> CAUTION and CAUTION -> DANGER on a keyword match, and
// DANGER is absorbing.
type Engine struct{}

// NewEngine creates a risk escalation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// EscalateItem applies the one-directional transition for a single item.
func (e *Engine) EscalateItem(item models.MenuItemVerdict, check verify.Result) models.MenuItemVerdict {
	item.MatchedAllergens = check.MatchedAllergens

	if !check.IsDangerous {
		// Zero matches never downgrade an AI-assigned CAUTION/DANGER.
		return item
	}

	switch item.Status {
	case models.StatusSafe:
		item.Status = models.StatusCaution
		item.DBEscalated = true
	case models.StatusCaution:
		item.Status = models.StatusDanger
		item.DBEscalated = true
	case models.StatusDanger:
		// Already at the most severe tier.
	}
	return item
}

// Apply escalates every item, then derives the overall status over the
// finalized list. The overall recomputation deliberately runs after all
// items are settled: an early SAFE item must not fix the overall status
// before a later item is found DANGER.
func (e *Engine) Apply(items []models.MenuItemVerdict, checks []verify.Result) ([]models.MenuItemVerdict, models.SafetyStatus) {
	escalated := make([]models.MenuItemVerdict, len(items))
	for i, item := range items {
		var check verify.Result
		if i < len(checks) {
			check = checks[i]
		}
		escalated[i] = e.EscalateItem(item, check)
		if escalated[i].DBEscalated {
			log.Printf("[Escalate] %q: %s -> %s (matched %v)",
				item.Name, item.Status, escalated[i].Status, check.MatchedAllergens)
		}
	}
	return escalated, Overall(escalated)
}

// Overall derives the aggregate status: DANGER if any item is DANGER,
// else CAUTION if any item is CAUTION, else SAFE.
func Overall(items []models.MenuItemVerdict) models.SafetyStatus {
	hasDanger := false
	hasCaution := false
	for _, item := range items {
		switch item.Status {
		case models.StatusDanger:
			hasDanger = true
		case models.StatusCaution:
			hasCaution = true
		}
	}
	switch {
	case hasDanger:
		return models.StatusDanger
	case hasCaution:
		return models.StatusCaution
	default:
		return models.StatusSafe
	}
}
