package models

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Alert Categories
type Category string

const (
	CategoryCultureExpiring Category = "culture_expiring"
	CategoryLCAge           Category = "lc_age"
	CategoryLowInventory    Category = "low_inventory"
	CategoryHarvestReady    Category = "harvest_ready"
	CategoryContamination   Category = "contamination"
	CategoryStageTransition Category = "stage_transition"
	CategorySlowGrowth      Category = "slow_growth"
)

// Categories lists every known alert category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryCultureExpiring,
		CategoryLCAge,
		CategoryLowInventory,
		CategoryHarvestReady,
		CategoryContamination,
		CategoryStageTransition,
		CategorySlowGrowth,
	}
}

// Notification Severities
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Delivery Priorities
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Priority derives the delivery priority from a notification severity.
// Severity is the canonical field; priority is never set independently.
func (s Severity) Priority() Priority {
	switch s {
	case SeverityError:
		return PriorityUrgent
	case SeverityWarning:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// Urgent reports whether the priority passes an urgent-only gate.
func (p Priority) Urgent() bool {
	return p == PriorityUrgent || p == PriorityHigh
}

// Delivery Channels
type ChannelType string

const (
	ChannelEmail ChannelType = "email"
	ChannelSMS   ChannelType = "sms"
	ChannelPush  ChannelType = "push"
)

// Delivery Status
type DeliveryStatus string

const (
	StatusSent     DeliveryStatus = "sent"
	StatusFailed   DeliveryStatus = "failed"
	StatusPending  DeliveryStatus = "pending"
	StatusRetrying DeliveryStatus = "retrying"
)

// Notification is a persisted, user-facing alert.
type Notification struct {
	ID            uuid.UUID  `json:"id" db:"notification_id"`
	Category      Category   `json:"category" db:"category"`
	Type          Severity   `json:"type" db:"type"`
	Title         string     `json:"title" db:"title"`
	Message       string     `json:"message" db:"message"`
	EntityType    string     `json:"entity_type,omitempty" db:"entity_type"`
	EntityID      string     `json:"entity_id,omitempty" db:"entity_id"`
	EntityName    string     `json:"entity_name,omitempty" db:"entity_name"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	ReadAt        *time.Time `json:"read_at,omitempty" db:"read_at"`
	DismissedAt   *time.Time `json:"dismissed_at,omitempty" db:"dismissed_at"`
	AutoDismiss   bool       `json:"auto_dismiss" db:"auto_dismiss"`
	AutoDismissMs int        `json:"auto_dismiss_ms,omitempty" db:"auto_dismiss_ms"`
}

// Unread reports whether the notification is neither read nor dismissed.
func (n *Notification) Unread() bool {
	return n.ReadAt == nil && n.DismissedAt == nil
}

// NotificationRule is the per-category alerting configuration. Rules are
// created from defaults at startup and mutated by the user; they are
// disabled rather than deleted.
type NotificationRule struct {
	ID                  uuid.UUID `json:"id" db:"rule_id"`
	Category            Category  `json:"category" db:"category"`
	Enabled             bool      `json:"enabled" db:"enabled"`
	IsActive            bool      `json:"is_active" db:"is_active"`
	ThresholdDays       int       `json:"threshold_days" db:"threshold_days"`
	NotifyType          Severity  `json:"notify_type" db:"notify_type"`
	RepeatIntervalHours int       `json:"repeat_interval_hours" db:"repeat_interval_hours"`
}

// NotificationPreferences are the global, user-editable toggles read by both
// the notification store and the delivery dispatcher.
type NotificationPreferences struct {
	Enabled          bool `json:"enabled"`
	CultureExpiring  bool `json:"culture_expiring"`
	StageTransitions bool `json:"stage_transitions"`
	LowInventory     bool `json:"low_inventory"`
	HarvestReady     bool `json:"harvest_ready"`
	Contamination    bool `json:"contamination"`
	LCAge            bool `json:"lc_age"`
	SlowGrowth       bool `json:"slow_growth"`
	ShowToasts       bool `json:"show_toasts"`
	ToastDurationMs  int  `json:"toast_duration_ms"`
	SoundEnabled     bool `json:"sound_enabled"`
	PushEnabled      bool `json:"push_enabled"`
}

// CategoryEnabled reports whether the per-category toggle for c is on.
// Unknown categories default to enabled so a new alert type is not silently
// dropped before a toggle exists for it.
func (p *NotificationPreferences) CategoryEnabled(c Category) bool {
	switch c {
	case CategoryCultureExpiring:
		return p.CultureExpiring
	case CategoryStageTransition:
		return p.StageTransitions
	case CategoryLowInventory:
		return p.LowInventory
	case CategoryHarvestReady:
		return p.HarvestReady
	case CategoryContamination:
		return p.Contamination
	case CategoryLCAge:
		return p.LCAge
	case CategorySlowGrowth:
		return p.SlowGrowth
	default:
		return true
	}
}

// EventPreference is the per-category, per-channel delivery preference.
type EventPreference struct {
	Category             Category `json:"category"`
	EmailEnabled         bool     `json:"email_enabled"`
	SMSEnabled           bool     `json:"sms_enabled"`
	PushEnabled          bool     `json:"push_enabled"`
	SMSUrgentOnly        bool     `json:"sms_urgent_only"`
	Priority             Priority `json:"priority"`
	BatchIntervalMinutes int      `json:"batch_interval_minutes"`
}

// Toast is an ephemeral notification; it lives only inside the active
// session and is never written to durable storage.
type Toast struct {
	ID            uuid.UUID `json:"id"`
	Type          Severity  `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	ActionLabel   string    `json:"action_label,omitempty"`
	OnAction      func()    `json:"-"`
	AutoDismissMs int       `json:"auto_dismiss_ms"`
}

// DeliveryLogEntry records one delivery attempt on one channel. The log is
// append-only; the retry bookkeeping fields are written for an external
// sweep to consume, never acted on inside the dispatch call.
type DeliveryLogEntry struct {
	ID                uuid.UUID      `json:"id" db:"delivery_id"`
	NotificationID    uuid.UUID      `json:"notification_id" db:"notification_id"`
	ChannelType       ChannelType    `json:"channel_type" db:"channel_type"`
	EventCategory     Category       `json:"event_category" db:"event_category"`
	Status            DeliveryStatus `json:"status" db:"status"`
	SentAt            time.Time      `json:"sent_at" db:"sent_at"`
	ErrorCode         string         `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage      string         `json:"error_message,omitempty" db:"error_message"`
	RetryCount        int            `json:"retry_count" db:"retry_count"`
	NextRetryAt       *time.Time     `json:"next_retry_at,omitempty" db:"next_retry_at"`
	ProviderMessageID string         `json:"provider_message_id,omitempty" db:"provider_message_id"`
}

// DeliveryResult is the per-channel outcome returned to the caller of a
// dispatch. Failures are data here, never errors.
type DeliveryResult struct {
	Channel           ChannelType `json:"channel"`
	Success           bool        `json:"success"`
	ProviderMessageID string      `json:"provider_message_id,omitempty"`
	Error             string      `json:"error,omitempty"`
}

// AppSettings is the read-only settings surface the dispatcher consumes.
type AppSettings struct {
	UserID                    string `json:"user_id"`
	EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
	SMSNotificationsEnabled   bool   `json:"sms_notifications_enabled"`
	NotificationEmail         string `json:"notification_email"`
	PhoneNumber               string `json:"phone_number"`
	PhoneVerified             bool   `json:"phone_verified"`
	QuietHoursStart           string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd             string `json:"quiet_hours_end,omitempty"`
}

// Observation is a domain condition reported by a caller, e.g. "culture X is
// 32 days old".
type Observation struct {
	Category      Category `json:"category"`
	ObservedValue int      `json:"observed_value"`
	EntityType    string   `json:"entity_type,omitempty"`
	EntityID      string   `json:"entity_id"`
	EntityName    string   `json:"entity_name,omitempty"`
	Title         string   `json:"title"`
	Message       string   `json:"message"`
}

// DefaultPreferences returns the global preference set used before the user
// has saved any, and after a corrupt preferences blob is discarded.
func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{
		Enabled:          true,
		CultureExpiring:  true,
		StageTransitions: true,
		LowInventory:     true,
		HarvestReady:     true,
		Contamination:    true,
		LCAge:            true,
		SlowGrowth:       true,
		ShowToasts:       true,
		ToastDurationMs:  5000,
		SoundEnabled:     false,
		PushEnabled:      true,
	}
}
