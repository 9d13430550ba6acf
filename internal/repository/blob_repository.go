package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// Keys for the three persisted blobs.
const (
	KeyNotifications = "notifications"
	KeyPreferences   = "notification_preferences"
	KeyRules         = "notification_rules"
)

// ErrNotFound is returned by Load when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// BlobRepository is the key-value persistence surface. Each value is one
// independent JSON document; date fields round-trip through RFC 3339.
type BlobRepository struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

func NewBlobRepository(pool *pgxpool.Pool, log logger.Logger) *BlobRepository {
	return &BlobRepository{
		pool: pool,
		log:  log,
	}
}

// EnsureSchema creates the kv_blobs table if it does not exist.
func (r *BlobRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS kv_blobs (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create kv_blobs table: %w", err)
	}
	return nil
}

// Save serializes value and upserts it under key.
func (r *BlobRepository) Save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal blob %q: %w", key, err)
	}

	query := `
		INSERT INTO kv_blobs (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.pool.Exec(ctx, query, key, data, time.Now()); err != nil {
		r.log.Error("Failed to save blob", "error", err, "key", key)
		return err
	}

	r.log.Debug("Blob saved", "key", key, "bytes", len(data))
	return nil
}

// Load reads the blob under key into dest. Returns ErrNotFound when the key
// has never been written. A blob that exists but does not parse is returned
// as an ordinary error; callers are expected to fail soft on it.
func (r *BlobRepository) Load(ctx context.Context, key string, dest interface{}) error {
	query := `SELECT value FROM kv_blobs WHERE key = $1`

	var data []byte
	err := r.pool.QueryRow(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal blob %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob under key. Deleting a missing key is a no-op.
func (r *BlobRepository) Delete(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM kv_blobs WHERE key = $1`, key)
	return err
}
