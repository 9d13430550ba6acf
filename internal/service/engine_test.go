package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twitchyvr/MycoLab-sub010/internal/delivery"
	"github.com/twitchyvr/MycoLab-sub010/internal/dispatch"
	"github.com/twitchyvr/MycoLab-sub010/internal/models"
	"github.com/twitchyvr/MycoLab-sub010/internal/prefs"
	"github.com/twitchyvr/MycoLab-sub010/internal/repository"
	"github.com/twitchyvr/MycoLab-sub010/internal/rules"
	"github.com/twitchyvr/MycoLab-sub010/internal/store"
	"github.com/twitchyvr/MycoLab-sub010/internal/toast"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: make(map[string][]byte)}
}

func (m *memBlobs) Save(_ context.Context, key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memBlobs) Load(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return repository.ErrNotFound
	}
	return json.Unmarshal(b, dest)
}

type memLog struct {
	mu      sync.Mutex
	entries []*models.DeliveryLogEntry
}

func (m *memLog) Append(_ context.Context, entry *models.DeliveryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memLog) History(_ context.Context, limit int) ([]*models.DeliveryLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.DeliveryLogEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *memLog) PendingRetries(_ context.Context, now time.Time) ([]*models.DeliveryLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.DeliveryLogEntry
	for _, e := range m.entries {
		if e.Status == models.StatusFailed && e.NextRetryAt != nil && !e.NextRetryAt.After(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLog) all() []*models.DeliveryLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.DeliveryLogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

type stubEmail struct{}

func (stubEmail) SendEmail(context.Context, delivery.EmailMessage) (string, error) {
	return "stub-msg", nil
}

type fixture struct {
	engine     *Engine
	blobs      *memBlobs
	deliveries *memLog
	toasts     *toast.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.NewNop()
	blobs := newMemBlobs()
	deliveries := &memLog{}
	prefStore := prefs.NewStore()
	toasts := toast.NewScheduler(func() int { return prefStore.Global().ToastDurationMs }, log)
	t.Cleanup(toasts.Close)

	notificationStore := store.NewStore(blobs, prefStore, toasts, log)
	ruleEngine := rules.NewEngine(log)
	dispatcher := dispatch.NewDispatcher(stubEmail{}, nil, nil, "", prefStore, deliveries, log)

	settings := models.AppSettings{
		UserID:                    "grower",
		EmailNotificationsEnabled: true,
		NotificationEmail:         "grower@example.com",
	}

	engine := NewEngine(ruleEngine, notificationStore, toasts, dispatcher, deliveries, blobs, settings, log)
	require.NoError(t, engine.Start(context.Background()))

	return &fixture{engine: engine, blobs: blobs, deliveries: deliveries, toasts: toasts}
}

func shutdown(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))
}

func TestContaminationFiresOnEveryObservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	obs := models.Observation{
		Category: models.CategoryContamination,
		EntityID: "grow-7",
		Title:    "Contamination detected",
		Message:  "Grow 7 shows green mold",
	}

	first := f.engine.Observe(ctx, obs)
	second := f.engine.Observe(ctx, obs)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, models.SeverityError, first.Type)
	assert.Len(t, f.engine.Store().All(), 2)

	shutdown(t, f.engine)
}

func TestRepeatIntervalSuppressesSecondObservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	obs := models.Observation{
		Category:      models.CategoryCultureExpiring,
		ObservedValue: 3,
		EntityID:      "culture-12",
		Title:         "Culture expiring",
		Message:       "Culture 12 expires in 3 days",
	}

	require.NotNil(t, f.engine.Observe(ctx, obs))
	assert.Nil(t, f.engine.Observe(ctx, obs))
	assert.Len(t, f.engine.Store().All(), 1)

	shutdown(t, f.engine)
}

func TestObserveDispatchesOutOfBandWithoutBlocking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n := f.engine.Observe(ctx, models.Observation{
		Category: models.CategoryContamination,
		EntityID: "grow-1",
		Title:    "Contamination detected",
		Message:  "Agar plate 3",
	})
	require.NotNil(t, n)

	// Shutdown waits for in-flight deliveries, so afterwards the log holds
	// the attempt.
	shutdown(t, f.engine)

	entries := f.deliveries.all()
	require.NotEmpty(t, entries)
	assert.Equal(t, models.ChannelEmail, entries[0].ChannelType)
	assert.Equal(t, models.StatusSent, entries[0].Status)
	assert.Equal(t, n.ID, entries[0].NotificationID)
}

func TestDeliveryHistoryAndRetrySweepViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n := f.engine.Observe(ctx, models.Observation{
		Category: models.CategoryContamination,
		EntityID: "grow-2",
		Title:    "Contamination detected",
		Message:  "Jar 2 smells off",
	})
	require.NotNil(t, n)
	shutdown(t, f.engine)

	// Email succeeded; push had no device token, so it failed with a backoff.
	history, err := f.engine.DeliveryHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ChannelPush, history[0].ChannelType)
	assert.Equal(t, models.ChannelEmail, history[1].ChannelType)

	limited, err := f.engine.DeliveryHistory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	due, err := f.engine.PendingDeliveryRetries(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, models.ChannelPush, due[0].ChannelType)
	assert.Equal(t, models.StatusFailed, due[0].Status)
}

func TestObservationBelowThresholdCreatesNothing(t *testing.T) {
	f := newFixture(t)

	n := f.engine.Observe(context.Background(), models.Observation{
		Category:      models.CategoryCultureExpiring,
		ObservedValue: 20,
		EntityID:      "culture-1",
		Title:         "ignored",
	})

	assert.Nil(t, n)
	assert.Empty(t, f.engine.Store().All())
	shutdown(t, f.engine)
}

func TestRuleUpdatesPersistAcrossRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok := f.engine.UpdateRule(ctx, models.CategoryLCAge, func(r *models.NotificationRule) {
		r.ThresholdDays = 45
		r.Enabled = false
	})
	require.True(t, ok)
	shutdown(t, f.engine)

	// A fresh engine over the same storage sees the mutated rule.
	log := logger.NewNop()
	prefStore := prefs.NewStore()
	toasts := toast.NewScheduler(nil, log)
	t.Cleanup(toasts.Close)
	ruleEngine := rules.NewEngine(log)
	engine := NewEngine(
		ruleEngine,
		store.NewStore(f.blobs, prefStore, toasts, log),
		toasts,
		dispatch.NewDispatcher(nil, nil, nil, "", prefStore, f.deliveries, log),
		f.deliveries,
		f.blobs,
		models.AppSettings{},
		log,
	)
	require.NoError(t, engine.Start(ctx))

	var reloaded *models.NotificationRule
	for _, r := range ruleEngine.Rules() {
		if r.Category == models.CategoryLCAge {
			rr := r
			reloaded = &rr
		}
	}
	require.NotNil(t, reloaded)
	assert.Equal(t, 45, reloaded.ThresholdDays)
	assert.False(t, reloaded.Enabled)
	shutdown(t, engine)
}
