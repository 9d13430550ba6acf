// Package dispatch sends notifications through external channels subject to
// user preferences and quiet hours, and records every attempt in the
// delivery log. Delivery failures are data, never errors: nothing in this
// package propagates a failed send to the caller.
package dispatch

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/twitchyvr/MycoLab-sub010/internal/delivery"
	"github.com/twitchyvr/MycoLab-sub010/internal/models"
	"github.com/twitchyvr/MycoLab-sub010/internal/quiethours"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// retryBackoff is the interval written to next_retry_at on a failed attempt
// for the external retry sweep to pick up.
const retryBackoff = 15 * time.Minute

// DeliveryLog is the append-only record of delivery attempts.
type DeliveryLog interface {
	Append(ctx context.Context, entry *models.DeliveryLogEntry) error
}

// PreferenceSource resolves the global and per-category preferences.
type PreferenceSource interface {
	Global() models.NotificationPreferences
	EventPreference(category models.Category) models.EventPreference
}

// Dispatcher resolves preferences, checks quiet hours and invokes the
// channel providers. Any sender may be nil when the channel is not
// configured; an attempted send on a nil sender is recorded as a failure.
type Dispatcher struct {
	email       delivery.EmailSender
	sms         delivery.SMSSender
	push        delivery.PushSender
	deviceToken string
	prefs       PreferenceSource
	deliveryLog DeliveryLog
	log         logger.Logger
	now         func() time.Time
}

func NewDispatcher(
	email delivery.EmailSender,
	sms delivery.SMSSender,
	push delivery.PushSender,
	deviceToken string,
	prefs PreferenceSource,
	deliveryLog DeliveryLog,
	log logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		email:       email,
		sms:         sms,
		push:        push,
		deviceToken: deviceToken,
		prefs:       prefs,
		deliveryLog: deliveryLog,
		log:         log,
		now:         time.Now,
	}
}

// SendNotification attempts out-of-band delivery for one notification and
// returns the per-channel outcomes. With no user context, a muted category,
// or inside quiet hours, no channel is attempted and the result list is empty. In-app
// notification creation is never affected by anything that happens here.
func (d *Dispatcher) SendNotification(ctx context.Context, n *models.Notification, settings models.AppSettings) []models.DeliveryResult {
	if settings.UserID == "" {
		d.log.Debug("No user context, skipping delivery", "notification_id", n.ID)
		return nil
	}

	global := d.prefs.Global()
	if !global.CategoryEnabled(n.Category) {
		d.log.Debug("Category muted, skipping delivery",
			"notification_id", n.ID,
			"category", n.Category,
		)
		return nil
	}

	now := d.now()
	if quiethours.IsInQuietHours(settings, now) {
		d.log.Debug("Inside quiet hours, suppressing out-of-band delivery",
			"notification_id", n.ID,
			"window_start", settings.QuietHoursStart,
			"window_end", settings.QuietHoursEnd,
		)
		return nil
	}

	pref := d.prefs.EventPreference(n.Category)
	priority := n.Type.Priority()

	var results []models.DeliveryResult

	if settings.EmailNotificationsEnabled && pref.EmailEnabled {
		results = append(results, d.attemptEmail(ctx, n, settings, priority, now))
	}

	if settings.SMSNotificationsEnabled && pref.SMSEnabled {
		if !pref.SMSUrgentOnly || priority.Urgent() {
			results = append(results, d.attemptSMS(ctx, n, settings, priority, now))
		} else {
			d.log.Debug("SMS gated to urgent only, skipping",
				"notification_id", n.ID,
				"priority", priority,
			)
		}
	}

	if global.PushEnabled && pref.PushEnabled {
		results = append(results, d.attemptPush(ctx, n, priority, now))
	}

	return results
}

func (d *Dispatcher) attemptEmail(ctx context.Context, n *models.Notification, settings models.AppSettings, priority models.Priority, now time.Time) models.DeliveryResult {
	var (
		messageID string
		err       error
		errCode   string
	)

	switch {
	case settings.NotificationEmail == "":
		err = errNoDestination
		errCode = codeNoDestination
	case d.email == nil:
		err = errNotConfigured
		errCode = codeNotConfigured
	default:
		messageID, err = d.email.SendEmail(ctx, delivery.EmailMessage{
			To:       settings.NotificationEmail,
			Subject:  n.Title,
			Body:     n.Message,
			Category: n.Category,
			Priority: priority,
		})
		if err != nil {
			errCode = codeProviderError
		}
	}

	return d.record(ctx, n, models.ChannelEmail, messageID, err, errCode, now)
}

func (d *Dispatcher) attemptSMS(ctx context.Context, n *models.Notification, settings models.AppSettings, priority models.Priority, now time.Time) models.DeliveryResult {
	var (
		messageID string
		err       error
		errCode   string
	)

	switch {
	case settings.PhoneNumber == "":
		err = errNoDestination
		errCode = codeNoDestination
	case !settings.PhoneVerified:
		err = errUnverified
		errCode = codeUnverified
	case d.sms == nil:
		err = errNotConfigured
		errCode = codeNotConfigured
	default:
		messageID, err = d.sms.SendSMS(ctx, delivery.SMSMessage{
			To:       settings.PhoneNumber,
			Body:     n.Title + ": " + n.Message,
			Category: n.Category,
			Priority: priority,
		})
		if err != nil {
			errCode = codeProviderError
		}
	}

	return d.record(ctx, n, models.ChannelSMS, messageID, err, errCode, now)
}

func (d *Dispatcher) attemptPush(ctx context.Context, n *models.Notification, priority models.Priority, now time.Time) models.DeliveryResult {
	var (
		messageID string
		err       error
		errCode   string
	)

	switch {
	case d.deviceToken == "":
		err = errNoDestination
		errCode = codeNoDestination
	case d.push == nil:
		err = errNotConfigured
		errCode = codeNotConfigured
	default:
		messageID, err = d.push.SendPush(ctx, delivery.PushMessage{
			Token:    d.deviceToken,
			Title:    n.Title,
			Body:     n.Message,
			Category: n.Category,
			Priority: priority,
		})
		if err != nil {
			errCode = codeProviderError
		}
	}

	return d.record(ctx, n, models.ChannelPush, messageID, err, errCode, now)
}

// record builds the log entry for one attempt, appends it unconditionally
// and converts the outcome into a DeliveryResult.
func (d *Dispatcher) record(ctx context.Context, n *models.Notification, channel models.ChannelType, messageID string, sendErr error, errCode string, now time.Time) models.DeliveryResult {
	entry := &models.DeliveryLogEntry{
		ID:             uuid.Must(uuid.NewV4()),
		NotificationID: n.ID,
		ChannelType:    channel,
		EventCategory:  n.Category,
		Status:         models.StatusSent,
		SentAt:         now,
	}

	result := models.DeliveryResult{
		Channel: channel,
		Success: sendErr == nil,
	}

	if sendErr != nil {
		next := now.Add(retryBackoff)
		entry.Status = models.StatusFailed
		entry.ErrorCode = errCode
		entry.ErrorMessage = sendErr.Error()
		entry.NextRetryAt = &next
		result.Error = sendErr.Error()

		d.log.Error("Delivery failed",
			"notification_id", n.ID,
			"channel", channel,
			"error_code", errCode,
			"error", sendErr,
		)
	} else {
		entry.ProviderMessageID = messageID
		result.ProviderMessageID = messageID

		d.log.Info("Delivery succeeded",
			"notification_id", n.ID,
			"channel", channel,
			"provider_message_id", messageID,
		)
	}

	if err := d.deliveryLog.Append(ctx, entry); err != nil {
		// The attempt already happened; a log write failure must not
		// surface as a delivery failure.
		d.log.Error("Failed to append delivery log entry", "error", err, "channel", channel)
	}

	return result
}
