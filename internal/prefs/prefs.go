// Package prefs holds the per-category channel preferences and their
// defaults. Event preferences use a two-tier lookup: a stored override wins,
// otherwise the hard-coded default table applies.
package prefs

import (
	"sync"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
)

// defaultEventPreference is the fallback used when no explicit record exists
// for a category: email on, SMS only for contamination, push on.
func defaultEventPreference(category models.Category) models.EventPreference {
	return models.EventPreference{
		Category:      category,
		EmailEnabled:  true,
		SMSEnabled:    category == models.CategoryContamination,
		PushEnabled:   true,
		SMSUrgentOnly: false,
		Priority:      models.PriorityNormal,
	}
}

// Store holds the global notification preferences and per-category event
// preferences. Single writer (the settings UI), multiple readers.
type Store struct {
	mu     sync.RWMutex
	global models.NotificationPreferences
	events map[models.Category]models.EventPreference
}

func NewStore() *Store {
	return &Store{
		global: models.DefaultPreferences(),
		events: make(map[models.Category]models.EventPreference),
	}
}

// Global returns a copy of the global preference set.
func (s *Store) Global() models.NotificationPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}

// SetGlobal replaces the global preference set wholesale.
func (s *Store) SetGlobal(p models.NotificationPreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = p
}

// Patch applies a partial update to the global preference set.
func (s *Store) Patch(apply func(*models.NotificationPreferences)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.global)
}

// EventPreference resolves the per-category channel preference: the stored
// override if one exists, else the default table.
func (s *Store) EventPreference(category models.Category) models.EventPreference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.events[category]; ok {
		return p
	}
	return defaultEventPreference(category)
}

// SetEventPreference stores an explicit per-category override.
func (s *Store) SetEventPreference(p models.EventPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[p.Category] = p
}

// ClearEventPreference drops the override so the default applies again.
func (s *Store) ClearEventPreference(category models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, category)
}
