// Package rules decides whether an observed domain condition should produce
// a notification, de-duplicating repeat firings per (rule, entity).
package rules

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// FireDecision is the outcome of evaluating one observation.
type FireDecision struct {
	ShouldFire bool
	Severity   models.Severity
}

// comparator kinds, keyed per category.
type comparison int

const (
	// fire when the observed value is at or below the threshold
	// (days remaining, units in stock).
	compareAtOrBelow comparison = iota
	// fire when the observed value is at or above the threshold
	// (age in days, days since last growth).
	compareAtOrAbove
	// fire on every observation, threshold ignored.
	compareAlways
)

func comparatorFor(category models.Category) comparison {
	switch category {
	case models.CategoryContamination:
		return compareAlways
	case models.CategoryLCAge, models.CategorySlowGrowth, models.CategoryStageTransition:
		return compareAtOrAbove
	default:
		return compareAtOrBelow
	}
}

// Engine holds the rule set and the per-(rule, entity) last-fired state.
// The last-fired update is a check-and-set under one lock so two
// near-simultaneous observations cannot both decide to fire.
type Engine struct {
	mu        sync.Mutex
	rules     map[models.Category]*models.NotificationRule
	lastFired map[string]time.Time
	log       logger.Logger
}

func NewEngine(log logger.Logger) *Engine {
	e := &Engine{
		rules:     make(map[models.Category]*models.NotificationRule),
		lastFired: make(map[string]time.Time),
		log:       log,
	}
	e.SetRules(DefaultRules())
	return e
}

// DefaultRules is the rule table seeded at startup when no rules blob has
// been persisted yet.
func DefaultRules() []models.NotificationRule {
	newRule := func(c models.Category, threshold int, severity models.Severity, repeatHours int) models.NotificationRule {
		return models.NotificationRule{
			ID:                  uuid.Must(uuid.NewV4()),
			Category:            c,
			Enabled:             true,
			IsActive:            true,
			ThresholdDays:       threshold,
			NotifyType:          severity,
			RepeatIntervalHours: repeatHours,
		}
	}

	return []models.NotificationRule{
		newRule(models.CategoryCultureExpiring, 7, models.SeverityWarning, 24),
		newRule(models.CategoryLCAge, 30, models.SeverityWarning, 24),
		newRule(models.CategoryLowInventory, 5, models.SeverityWarning, 24),
		newRule(models.CategoryHarvestReady, 2, models.SeverityInfo, 12),
		// Every contamination occurrence matters: no threshold, no suppression.
		newRule(models.CategoryContamination, 0, models.SeverityError, 0),
		newRule(models.CategoryStageTransition, 0, models.SeverityInfo, 6),
		newRule(models.CategorySlowGrowth, 14, models.SeverityWarning, 48),
	}
}

// Evaluate decides whether the observed condition should fire. On a firing
// decision the last-fired timestamp for (rule, entity) is updated in the
// same critical section.
func (e *Engine) Evaluate(category models.Category, observedValue int, entityID string, now time.Time) FireDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[category]
	if !ok {
		// Unknown category behaves like a disabled rule.
		e.log.Debug("No rule for category", "category", category)
		return FireDecision{}
	}
	if !rule.Enabled || !rule.IsActive {
		return FireDecision{}
	}

	if !conditionMet(rule, observedValue) {
		return FireDecision{}
	}

	key := firedKey(rule.ID, entityID)
	if rule.RepeatIntervalHours > 0 {
		if last, fired := e.lastFired[key]; fired {
			interval := time.Duration(rule.RepeatIntervalHours) * time.Hour
			if now.Sub(last) < interval {
				return FireDecision{}
			}
		}
	}

	e.lastFired[key] = now
	return FireDecision{ShouldFire: true, Severity: rule.NotifyType}
}

func conditionMet(rule *models.NotificationRule, observed int) bool {
	switch comparatorFor(rule.Category) {
	case compareAlways:
		return true
	case compareAtOrAbove:
		return observed >= rule.ThresholdDays
	default:
		return observed <= rule.ThresholdDays
	}
}

func firedKey(ruleID uuid.UUID, entityID string) string {
	return fmt.Sprintf("%s:%s", ruleID.String(), entityID)
}

// Rules returns a snapshot of the current rule set.
func (e *Engine) Rules() []models.NotificationRule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.NotificationRule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, *r)
	}
	return out
}

// SetRules replaces the rule set wholesale, e.g. after rehydrating the
// persisted rules blob. De-duplication state survives the swap; rule IDs are
// stable across a reload.
func (e *Engine) SetRules(rules []models.NotificationRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = make(map[models.Category]*models.NotificationRule, len(rules))
	for i := range rules {
		r := rules[i]
		e.rules[r.Category] = &r
	}
}

// UpdateRule mutates the rule for a category. Unknown categories are
// ignored; rules are disabled, never removed.
func (e *Engine) UpdateRule(category models.Category, apply func(*models.NotificationRule)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[category]
	if !ok {
		return false
	}
	apply(rule)
	return true
}
