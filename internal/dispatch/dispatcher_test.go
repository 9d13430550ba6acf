package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twitchyvr/MycoLab-sub010/internal/delivery"
	"github.com/twitchyvr/MycoLab-sub010/internal/models"
	"github.com/twitchyvr/MycoLab-sub010/internal/prefs"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

type fakeEmail struct {
	sent []delivery.EmailMessage
	err  error
}

func (f *fakeEmail) SendEmail(_ context.Context, msg delivery.EmailMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "email-msg-1", nil
}

type fakeSMS struct {
	sent []delivery.SMSMessage
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, msg delivery.SMSMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "sms-msg-1", nil
}

type fakeLog struct {
	entries []*models.DeliveryLogEntry
}

func (f *fakeLog) Append(_ context.Context, entry *models.DeliveryLogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fixture struct {
	dispatcher *Dispatcher
	email      *fakeEmail
	sms        *fakeSMS
	deliveries *fakeLog
	prefs      *prefs.Store
}

func newFixture() *fixture {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	deliveries := &fakeLog{}
	prefStore := prefs.NewStore()
	// Push is off by default in these tests; it has its own cases.
	prefStore.Patch(func(p *models.NotificationPreferences) { p.PushEnabled = false })

	d := NewDispatcher(email, sms, nil, "", prefStore, deliveries, logger.NewNop())
	d.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	}

	return &fixture{dispatcher: d, email: email, sms: sms, deliveries: deliveries, prefs: prefStore}
}

func notification(category models.Category, severity models.Severity) *models.Notification {
	return &models.Notification{
		ID:        uuid.Must(uuid.NewV4()),
		Category:  category,
		Type:      severity,
		Title:     "Alert",
		Message:   "something happened",
		CreatedAt: time.Now(),
	}
}

func settings() models.AppSettings {
	return models.AppSettings{
		UserID:                    "user-1",
		EmailNotificationsEnabled: true,
		SMSNotificationsEnabled:   true,
		NotificationEmail:         "grower@example.com",
		PhoneNumber:               "+15550100",
		PhoneVerified:             true,
	}
}

func TestNoUserContextDeliversNothing(t *testing.T) {
	f := newFixture()
	s := settings()
	s.UserID = ""

	results := f.dispatcher.SendNotification(context.Background(), notification(models.CategoryContamination, models.SeverityError), s)

	assert.Empty(t, results)
	assert.Empty(t, f.deliveries.entries)
}

func TestQuietHoursSuppressAllChannels(t *testing.T) {
	f := newFixture()
	f.dispatcher.now = func() time.Time {
		return time.Date(2025, 6, 15, 23, 30, 0, 0, time.Local)
	}
	s := settings()
	s.QuietHoursStart = "22:00"
	s.QuietHoursEnd = "08:00"

	results := f.dispatcher.SendNotification(context.Background(), notification(models.CategoryContamination, models.SeverityError), s)

	assert.Empty(t, results)
	assert.Empty(t, f.email.sent)
	assert.Empty(t, f.sms.sent)
	assert.Empty(t, f.deliveries.entries)
}

func TestDisabledCategoryToggleSkipsDelivery(t *testing.T) {
	f := newFixture()
	f.prefs.Patch(func(p *models.NotificationPreferences) { p.Contamination = false })

	results := f.dispatcher.SendNotification(context.Background(), notification(models.CategoryContamination, models.SeverityError), settings())

	assert.Empty(t, results)
	assert.Empty(t, f.email.sent)
	assert.Empty(t, f.sms.sent)
	assert.Empty(t, f.deliveries.entries)
}

func TestEmailAndSMSAttemptedForContamination(t *testing.T) {
	f := newFixture()

	results := f.dispatcher.SendNotification(context.Background(), notification(models.CategoryContamination, models.SeverityError), settings())

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, models.ChannelEmail, results[0].Channel)
	assert.Equal(t, "email-msg-1", results[0].ProviderMessageID)
	assert.True(t, results[1].Success)
	assert.Equal(t, models.ChannelSMS, results[1].Channel)

	require.Len(t, f.deliveries.entries, 2)
	for _, e := range f.deliveries.entries {
		assert.Equal(t, models.StatusSent, e.Status)
		assert.Equal(t, models.CategoryContamination, e.EventCategory)
		assert.NotEmpty(t, e.ProviderMessageID)
	}
}

func TestSMSUrgentOnlyGate(t *testing.T) {
	f := newFixture()
	f.prefs.SetEventPreference(models.EventPreference{
		Category:      models.CategoryLowInventory,
		EmailEnabled:  false,
		SMSEnabled:    true,
		SMSUrgentOnly: true,
	})

	// Info severity maps to normal priority: gated.
	results := f.dispatcher.SendNotification(context.Background(), notification(models.CategoryLowInventory, models.SeverityInfo), settings())
	assert.Empty(t, results)
	assert.Empty(t, f.sms.sent)

	// Error severity maps to urgent priority: attempted.
	results = f.dispatcher.SendNotification(context.Background(), notification(models.CategoryLowInventory, models.SeverityError), settings())
	require.Len(t, results, 1)
	assert.Equal(t, models.ChannelSMS, results[0].Channel)
	assert.True(t, results[0].Success)
}

func TestPerCategoryPreferenceGatesEmail(t *testing.T) {
	f := newFixture()

	// Default table: SMS off for anything but contamination, email on.
	results := f.dispatcher.SendNotification(context.Background(), notification(models.CategoryHarvestReady, models.SeverityInfo), settings())
	require.Len(t, results, 1)
	assert.Equal(t, models.ChannelEmail, results[0].Channel)

	// Global email toggle off: nothing attempted.
	s := settings()
	s.EmailNotificationsEnabled = false
	results = f.dispatcher.SendNotification(context.Background(), notification(models.CategoryHarvestReady, models.SeverityInfo), s)
	assert.Empty(t, results)
}

func TestProviderFailureIsRecordedNotRaised(t *testing.T) {
	f := newFixture()
	f.email.err = errors.New("550 mailbox unavailable")

	results := f.dispatcher.SendNotification(context.Background(), notification(models.CategoryHarvestReady, models.SeverityInfo), settings())

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "mailbox unavailable")

	require.Len(t, f.deliveries.entries, 1)
	entry := f.deliveries.entries[0]
	assert.Equal(t, models.StatusFailed, entry.Status)
	assert.Equal(t, "provider_error", entry.ErrorCode)
	require.NotNil(t, entry.NextRetryAt)
	assert.True(t, entry.NextRetryAt.After(entry.SentAt))
}

func TestMissingDestinationsAreFailures(t *testing.T) {
	f := newFixture()
	s := settings()
	s.NotificationEmail = ""
	s.PhoneVerified = false

	results := f.dispatcher.SendNotification(context.Background(), notification(models.CategoryContamination, models.SeverityError), s)

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.False(t, results[1].Success)

	require.Len(t, f.deliveries.entries, 2)
	assert.Equal(t, "no_destination", f.deliveries.entries[0].ErrorCode)
	assert.Equal(t, "unverified_destination", f.deliveries.entries[1].ErrorCode)
	assert.Empty(t, f.email.sent)
	assert.Empty(t, f.sms.sent)
}

func TestPushGatedByGlobalToggle(t *testing.T) {
	f := newFixture()
	f.prefs.Patch(func(p *models.NotificationPreferences) { p.PushEnabled = true })
	s := settings()
	s.EmailNotificationsEnabled = false
	s.SMSNotificationsEnabled = false

	// Push enabled but no sender configured: attempted, recorded as failed.
	results := f.dispatcher.SendNotification(context.Background(), notification(models.CategoryHarvestReady, models.SeverityInfo), s)

	require.Len(t, results, 1)
	assert.Equal(t, models.ChannelPush, results[0].Channel)
	assert.False(t, results[0].Success)
	require.Len(t, f.deliveries.entries, 1)
	assert.Equal(t, "no_destination", f.deliveries.entries[0].ErrorCode)
}
