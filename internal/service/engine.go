// Package service wires the rule engine, notification store, toast
// scheduler and delivery dispatcher into the alerting engine the
// application talks to.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/twitchyvr/MycoLab-sub010/internal/dispatch"
	"github.com/twitchyvr/MycoLab-sub010/internal/models"
	"github.com/twitchyvr/MycoLab-sub010/internal/repository"
	"github.com/twitchyvr/MycoLab-sub010/internal/rules"
	"github.com/twitchyvr/MycoLab-sub010/internal/store"
	"github.com/twitchyvr/MycoLab-sub010/internal/toast"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// DeliveryReader is the read side of the delivery log.
type DeliveryReader interface {
	History(ctx context.Context, limit int) ([]*models.DeliveryLogEntry, error)
	PendingRetries(ctx context.Context, now time.Time) ([]*models.DeliveryLogEntry, error)
}

// Engine is the notification & alerting engine façade. Domain callers
// report observations; the engine decides, records, toasts and dispatches.
type Engine struct {
	rules      *rules.Engine
	store      *store.Store
	toasts     *toast.Scheduler
	dispatcher *dispatch.Dispatcher
	deliveries DeliveryReader
	blobs      store.BlobStore
	settings   models.AppSettings
	log        logger.Logger
	wg         sync.WaitGroup
}

func NewEngine(
	ruleEngine *rules.Engine,
	notificationStore *store.Store,
	toasts *toast.Scheduler,
	dispatcher *dispatch.Dispatcher,
	deliveries DeliveryReader,
	blobs store.BlobStore,
	settings models.AppSettings,
	log logger.Logger,
) *Engine {
	return &Engine{
		rules:      ruleEngine,
		store:      notificationStore,
		toasts:     toasts,
		dispatcher: dispatcher,
		deliveries: deliveries,
		blobs:      blobs,
		settings:   settings,
		log:        log,
	}
}

// Start rehydrates persisted state. A missing rules blob seeds the default
// table; a corrupt one is discarded in favor of the defaults. Start never
// fails on bad persisted data.
func (e *Engine) Start(ctx context.Context) error {
	e.store.Load(ctx)

	var stored []models.NotificationRule
	err := e.blobs.Load(ctx, repository.KeyRules, &stored)
	switch {
	case err == nil && len(stored) > 0:
		e.rules.SetRules(stored)
		e.log.Info("Notification rules loaded", "count", len(stored))
	case errors.Is(err, repository.ErrNotFound) || (err == nil && len(stored) == 0):
		if saveErr := e.blobs.Save(ctx, repository.KeyRules, e.rules.Rules()); saveErr != nil {
			e.log.Error("Failed to seed default rules", "error", saveErr)
		}
		e.log.Info("Seeded default notification rules")
	default:
		e.log.Error("Discarding unreadable rules blob, using defaults", "error", err)
	}

	return nil
}

// Observe reports a domain condition. When the matching rule fires, a
// notification is created (with companion toast per preferences) and
// out-of-band delivery starts in the background. Observe never waits on
// delivery.
func (e *Engine) Observe(ctx context.Context, obs models.Observation) *models.Notification {
	decision := e.rules.Evaluate(obs.Category, obs.ObservedValue, obs.EntityID, time.Now())
	if !decision.ShouldFire {
		return nil
	}

	n := e.store.Add(ctx, store.AddParams{
		Category:    obs.Category,
		Type:        decision.Severity,
		Title:       obs.Title,
		Message:     obs.Message,
		EntityType:  obs.EntityType,
		EntityID:    obs.EntityID,
		EntityName:  obs.EntityName,
		AutoDismiss: true,
	})
	if n == nil {
		return nil
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// Detach from the caller's context: once dispatched, a delivery
		// runs to completion or provider timeout.
		results := e.dispatcher.SendNotification(context.Background(), n, e.settings)
		for _, r := range results {
			if !r.Success {
				e.log.Debug("Out-of-band delivery unsuccessful",
					"notification_id", n.ID,
					"channel", r.Channel,
					"error", r.Error,
				)
			}
		}
	}()

	return n
}

// Notify creates a notification directly, bypassing rule evaluation. Used
// for one-off alerts the caller has already decided to raise.
func (e *Engine) Notify(ctx context.Context, params store.AddParams) *models.Notification {
	return e.store.Add(ctx, params)
}

// UpdateRule mutates one category's rule and persists the rule set.
func (e *Engine) UpdateRule(ctx context.Context, category models.Category, apply func(*models.NotificationRule)) bool {
	if !e.rules.UpdateRule(category, apply) {
		return false
	}
	if err := e.blobs.Save(ctx, repository.KeyRules, e.rules.Rules()); err != nil {
		e.log.Error("Failed to persist rules", "error", err)
	}
	return true
}

// DeliveryHistory lists recent delivery attempts, newest first, for the
// delivery-history panel.
func (e *Engine) DeliveryHistory(ctx context.Context, limit int) ([]*models.DeliveryLogEntry, error) {
	return e.deliveries.History(ctx, limit)
}

// PendingDeliveryRetries lists failed attempts whose backoff has elapsed,
// for the periodic retry sweep.
func (e *Engine) PendingDeliveryRetries(ctx context.Context, now time.Time) ([]*models.DeliveryLogEntry, error) {
	return e.deliveries.PendingRetries(ctx, now)
}

// Store exposes the notification store for lifecycle calls from the UI.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Toasts exposes the toast scheduler for manual dismissal from the UI.
func (e *Engine) Toasts() *toast.Scheduler {
	return e.toasts
}

// Rules exposes the rule engine for the settings UI.
func (e *Engine) Rules() *rules.Engine {
	return e.rules
}

// Shutdown waits for in-flight deliveries and tears down toast timers.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.log.Info("Shutting down notification engine")

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		e.toasts.Close()
		e.log.Error("Shutdown timeout waiting for in-flight deliveries")
		return ctx.Err()
	}

	e.toasts.Close()
	e.log.Info("Notification engine stopped")
	return nil
}
