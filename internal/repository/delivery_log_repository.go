package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// DeliveryLogRepository owns the append-only delivery log. One row per
// delivery attempt per channel per notification.
type DeliveryLogRepository struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

func NewDeliveryLogRepository(pool *pgxpool.Pool, log logger.Logger) *DeliveryLogRepository {
	return &DeliveryLogRepository{
		pool: pool,
		log:  log,
	}
}

// EnsureSchema creates the delivery_log table if it does not exist.
func (r *DeliveryLogRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS delivery_log (
			delivery_id         UUID PRIMARY KEY,
			notification_id     UUID NOT NULL,
			channel_type        TEXT NOT NULL,
			event_category      TEXT NOT NULL,
			status              TEXT NOT NULL,
			sent_at             TIMESTAMPTZ NOT NULL,
			error_code          TEXT,
			error_message       TEXT,
			retry_count         INT NOT NULL DEFAULT 0,
			next_retry_at       TIMESTAMPTZ,
			provider_message_id TEXT
		)
	`

	_, err := r.pool.Exec(ctx, query)
	return err
}

// Append writes one delivery attempt. The log is never updated in place.
func (r *DeliveryLogRepository) Append(ctx context.Context, entry *models.DeliveryLogEntry) error {
	query := `
		INSERT INTO delivery_log (
			delivery_id, notification_id, channel_type, event_category, status,
			sent_at, error_code, error_message, retry_count, next_retry_at,
			provider_message_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(
		ctx, query,
		entry.ID,
		entry.NotificationID,
		entry.ChannelType,
		entry.EventCategory,
		entry.Status,
		entry.SentAt,
		nullable(entry.ErrorCode),
		nullable(entry.ErrorMessage),
		entry.RetryCount,
		entry.NextRetryAt,
		nullable(entry.ProviderMessageID),
	)

	if err != nil {
		r.log.Error("Failed to append delivery log entry",
			"error", err,
			"notification_id", entry.NotificationID,
			"channel", entry.ChannelType,
		)
		return err
	}

	r.log.Debug("Delivery log entry appended",
		"notification_id", entry.NotificationID,
		"channel", entry.ChannelType,
		"status", entry.Status,
	)
	return nil
}

// History returns the most recent delivery attempts, newest first, for the
// delivery-history view.
func (r *DeliveryLogRepository) History(ctx context.Context, limit int) ([]*models.DeliveryLogEntry, error) {
	query := `
		SELECT delivery_id, notification_id, channel_type, event_category, status,
		       sent_at, error_code, error_message, retry_count, next_retry_at,
		       provider_message_id
		FROM delivery_log
		ORDER BY sent_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// PendingRetries returns failed attempts whose next_retry_at has elapsed.
// Consumed by an external retry sweep; the dispatcher itself never retries.
func (r *DeliveryLogRepository) PendingRetries(ctx context.Context, now time.Time) ([]*models.DeliveryLogEntry, error) {
	query := `
		SELECT delivery_id, notification_id, channel_type, event_category, status,
		       sent_at, error_code, error_message, retry_count, next_retry_at,
		       provider_message_id
		FROM delivery_log
		WHERE status IN ('failed', 'retrying') AND next_retry_at IS NOT NULL AND next_retry_at <= $1
		ORDER BY next_retry_at ASC
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEntries(rows rowScanner) ([]*models.DeliveryLogEntry, error) {
	var entries []*models.DeliveryLogEntry
	for rows.Next() {
		var (
			e          models.DeliveryLogEntry
			errCode    *string
			errMsg     *string
			providerID *string
		)

		err := rows.Scan(
			&e.ID,
			&e.NotificationID,
			&e.ChannelType,
			&e.EventCategory,
			&e.Status,
			&e.SentAt,
			&errCode,
			&errMsg,
			&e.RetryCount,
			&e.NextRetryAt,
			&providerID,
		)
		if err != nil {
			return nil, err
		}

		if errCode != nil {
			e.ErrorCode = *errCode
		}
		if errMsg != nil {
			e.ErrorMessage = *errMsg
		}
		if providerID != nil {
			e.ProviderMessageID = *providerID
		}

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
