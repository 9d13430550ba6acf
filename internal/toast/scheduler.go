// Package toast manages ephemeral notifications with auto-dismiss timers.
// Toasts share the notification payload shape but are never persisted.
package toast

import (
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// Scheduler owns the active toast list and one cancellation handle per
// toast. Timer expiry and manual dismissal may race; both paths are
// idempotent, so the loser finds nothing to do.
type Scheduler struct {
	mu                sync.Mutex
	toasts            []*models.Toast
	timers            map[uuid.UUID]*time.Timer
	defaultDurationMs func() int
	closed            bool
	log               logger.Logger
}

// NewScheduler builds a scheduler. defaultDurationMs supplies the global
// toast duration preference at show time, so preference changes apply to
// toasts created after the change.
func NewScheduler(defaultDurationMs func() int, log logger.Logger) *Scheduler {
	return &Scheduler{
		timers:            make(map[uuid.UUID]*time.Timer),
		defaultDurationMs: defaultDurationMs,
		log:               log,
	}
}

// Show assigns an id, appends the toast and, when its resolved duration is
// positive, schedules a one-shot dismissal. A duration of zero or less means
// the toast persists until manually dismissed.
func (s *Scheduler) Show(t models.Toast) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return uuid.Nil
	}

	t.ID = uuid.Must(uuid.NewV4())
	toast := t
	s.toasts = append(s.toasts, &toast)

	duration := t.AutoDismissMs
	if duration == 0 && s.defaultDurationMs != nil {
		duration = s.defaultDurationMs()
	}

	if duration > 0 {
		id := toast.ID
		s.timers[id] = time.AfterFunc(time.Duration(duration)*time.Millisecond, func() {
			s.Dismiss(id)
		})
	}

	s.log.Debug("Toast shown", "id", toast.ID, "type", toast.Type, "auto_dismiss_ms", duration)
	return toast.ID
}

// Dismiss removes the toast and cancels its pending timer. Dismissing twice,
// or an unknown id, is a no-op.
func (s *Scheduler) Dismiss(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}

	for i, t := range s.toasts {
		if t.ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			s.log.Debug("Toast dismissed", "id", id)
			return
		}
	}
}

// Active returns a snapshot of the currently visible toasts.
func (s *Scheduler) Active() []models.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Toast, len(s.toasts))
	for i, t := range s.toasts {
		out[i] = *t
	}
	return out
}

// Close cancels every pending timer and drops all toasts. Timers that
// already fired find the list empty and do nothing.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
	s.closed = true
}
