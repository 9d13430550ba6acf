// Package store owns the authoritative, persisted notification collection
// and its lifecycle (unread, read, dismissed).
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
	"github.com/twitchyvr/MycoLab-sub010/internal/prefs"
	"github.com/twitchyvr/MycoLab-sub010/internal/repository"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// BlobStore is the durable key-value surface the store persists through.
type BlobStore interface {
	Save(ctx context.Context, key string, value interface{}) error
	Load(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
}

// Toaster shows a transient toast alongside a persisted notification.
type Toaster interface {
	Show(t models.Toast) uuid.UUID
}

// Store holds the persisted collection newest-first. Every mutation is
// written through to the blob store; a failed write is logged and the
// in-memory state stands (the next successful mutation persists it).
// Mutations are serialized under one lock so no two interleave mid-update.
type Store struct {
	mu            sync.Mutex
	notifications []*models.Notification
	prefs         *prefs.Store
	toaster       Toaster
	blobs         BlobStore
	log           logger.Logger
}

func NewStore(blobs BlobStore, prefStore *prefs.Store, toaster Toaster, log logger.Logger) *Store {
	return &Store{
		prefs:   prefStore,
		toaster: toaster,
		blobs:   blobs,
		log:     log,
	}
}

// Load rehydrates the notification and preference blobs. A missing blob
// starts empty; a corrupt one is discarded with a warning. Load never fails
// startup.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notifications []*models.Notification
	err := s.blobs.Load(ctx, repository.KeyNotifications, &notifications)
	switch {
	case err == nil:
		s.notifications = notifications
	case errors.Is(err, repository.ErrNotFound):
		// First run.
	default:
		s.log.Error("Discarding unreadable notifications blob", "error", err)
	}

	var stored models.NotificationPreferences
	err = s.blobs.Load(ctx, repository.KeyPreferences, &stored)
	switch {
	case err == nil:
		s.prefs.SetGlobal(stored)
	case errors.Is(err, repository.ErrNotFound):
	default:
		s.log.Error("Discarding unreadable preferences blob, using defaults", "error", err)
	}

	s.log.Info("Notification store loaded", "count", len(s.notifications))
}

// AddParams is the payload a domain caller supplies for a new notification.
type AddParams struct {
	Category      models.Category
	Type          models.Severity
	Title         string
	Message       string
	EntityType    string
	EntityID      string
	EntityName    string
	AutoDismiss   bool
	AutoDismissMs int
}

// Add creates a notification. It is a no-op, returning nil, when the master
// kill switch or the per-category toggle is off. When toasts are enabled and the payload
// does not suppress auto-dismiss, a companion toast is shown with the same
// title, message and severity.
func (s *Store) Add(ctx context.Context, params AddParams) *models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.prefs.Global()
	if !p.Enabled {
		s.log.Debug("Notifications disabled, dropping", "category", params.Category)
		return nil
	}
	if !p.CategoryEnabled(params.Category) {
		s.log.Debug("Category muted, dropping", "category", params.Category)
		return nil
	}

	n := &models.Notification{
		ID:            uuid.Must(uuid.NewV4()),
		Category:      params.Category,
		Type:          params.Type,
		Title:         params.Title,
		Message:       params.Message,
		EntityType:    params.EntityType,
		EntityID:      params.EntityID,
		EntityName:    params.EntityName,
		CreatedAt:     time.Now(),
		AutoDismiss:   params.AutoDismiss,
		AutoDismissMs: params.AutoDismissMs,
	}

	// Newest first.
	s.notifications = append([]*models.Notification{n}, s.notifications...)
	s.persist(ctx)

	if p.ShowToasts && params.AutoDismiss && s.toaster != nil {
		s.toaster.Show(models.Toast{
			Type:          n.Type,
			Title:         n.Title,
			Message:       n.Message,
			AutoDismissMs: params.AutoDismissMs,
		})
	}

	s.log.Info("Notification created",
		"id", n.ID,
		"category", n.Category,
		"type", n.Type,
		"entity_id", n.EntityID,
	)
	return n
}

// MarkAsRead sets readAt once. Repeated calls are no-ops; the timestamp is
// never moved.
func (s *Store) MarkAsRead(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.find(id)
	if n == nil || n.ReadAt != nil {
		return
	}

	now := time.Now()
	n.ReadAt = &now
	s.persist(ctx)
}

// MarkAllAsRead sets readAt on every unread notification, leaving existing
// timestamps untouched.
func (s *Store) MarkAllAsRead(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	changed := false
	for _, n := range s.notifications {
		if n.ReadAt == nil {
			n.ReadAt = &now
			changed = true
		}
	}
	if changed {
		s.persist(ctx)
	}
}

// Dismiss sets dismissedAt once. The notification leaves the active views
// but stays in the collection until ClearAll.
func (s *Store) Dismiss(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.find(id)
	if n == nil || n.DismissedAt != nil {
		return
	}

	now := time.Now()
	n.DismissedAt = &now
	s.persist(ctx)
}

// ClearAll purges the whole collection. Unlike Dismiss this destroys
// history: the backing blob is deleted, so a reload starts empty.
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = nil
	if err := s.blobs.Delete(ctx, repository.KeyNotifications); err != nil {
		s.log.Error("Failed to purge notifications blob", "error", err)
	}
	s.log.Info("Notification history cleared")
}

// UnreadCount is derived on every call: entries with neither readAt nor
// dismissedAt set.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.notifications {
		if n.Unread() {
			count++
		}
	}
	return count
}

// Active returns the non-dismissed notifications, newest first.
func (s *Store) Active() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Notification
	for _, n := range s.notifications {
		if n.DismissedAt == nil {
			out = append(out, n)
		}
	}
	return out
}

// All returns the full collection including dismissed entries, newest first.
func (s *Store) All() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// Preferences returns the current global preferences.
func (s *Store) Preferences() models.NotificationPreferences {
	return s.prefs.Global()
}

// SetPreferences replaces the global preferences and persists them.
func (s *Store) SetPreferences(ctx context.Context, p models.NotificationPreferences) {
	s.prefs.SetGlobal(p)
	if err := s.blobs.Save(ctx, repository.KeyPreferences, p); err != nil {
		s.log.Error("Failed to persist preferences", "error", err)
	}
}

// PatchPreferences applies a partial update and persists the result.
func (s *Store) PatchPreferences(ctx context.Context, apply func(*models.NotificationPreferences)) {
	s.prefs.Patch(apply)
	if err := s.blobs.Save(ctx, repository.KeyPreferences, s.prefs.Global()); err != nil {
		s.log.Error("Failed to persist preferences", "error", err)
	}
}

func (s *Store) find(id uuid.UUID) *models.Notification {
	for _, n := range s.notifications {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (s *Store) persist(ctx context.Context) {
	if err := s.blobs.Save(ctx, repository.KeyNotifications, s.notifications); err != nil {
		// Keep serving from memory; the next mutation retries the write.
		s.log.Error("Failed to persist notifications", "error", err)
	}
}
