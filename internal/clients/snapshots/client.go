// Package snapshots fetches context snapshots from the snapshot
// service, with a short-lived local cache so the per-instrument bundle
// is fetched at most once per trading cycle.
package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mkosta/warroom/internal/database"
	"github.com/mkosta/warroom/internal/domain"
)

// Client talks to the snapshot service over HTTP and caches payloads in
// the local snapshots database (msgpack-encoded, cache profile).
type Client struct {
	baseURL string
	http    *http.Client
	cache   *database.DB
	ttl     time.Duration
	log     zerolog.Logger
}

// NewClient creates a snapshot client. ttl bounds cache staleness; a
// ttl at or below zero disables the cache.
func NewClient(baseURL string, cache *database.DB, ttl time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		ttl:     ttl,
		log:     log.With().Str("client", "snapshots").Logger(),
	}
}

// Snapshot implements domain.SnapshotProvider.
func (c *Client) Snapshot(ctx context.Context, instrument string) (*domain.ContextSnapshot, error) {
	if cached := c.fromCache(instrument); cached != nil {
		return cached, nil
	}

	snapshot, err := c.fetch(ctx, instrument)
	if err != nil {
		return nil, err
	}

	c.store(instrument, snapshot)
	return snapshot, nil
}

// CurrentPrice implements the outcome tracker's price source using the
// same snapshot feed.
func (c *Client) CurrentPrice(ctx context.Context, instrument string) (float64, error) {
	snapshot, err := c.Snapshot(ctx, instrument)
	if err != nil {
		return 0, err
	}
	if snapshot.Market.CurrentPrice <= 0 {
		return 0, fmt.Errorf("snapshot for %s carries no price", instrument)
	}
	return snapshot.Market.CurrentPrice, nil
}

func (c *Client) fetch(ctx context.Context, instrument string) (*domain.ContextSnapshot, error) {
	endpoint := fmt.Sprintf("%s/snapshots/%s", c.baseURL, url.PathEscape(instrument))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed for %s: %w", instrument, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot service returned %d for %s", resp.StatusCode, instrument)
	}

	var snapshot domain.ContextSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for %s: %w", instrument, err)
	}
	snapshot.Instrument = instrument
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	return &snapshot, nil
}

// fromCache returns a fresh cached snapshot or nil. Cache trouble is
// never fatal; the fetch path always works without it.
func (c *Client) fromCache(instrument string) *domain.ContextSnapshot {
	if c.cache == nil || c.ttl <= 0 {
		return nil
	}

	var fetchedAt int64
	var payload []byte
	err := c.cache.QueryRow(
		`SELECT fetched_at, payload FROM snapshot_cache WHERE instrument = ?`, instrument).
		Scan(&fetchedAt, &payload)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		c.log.Warn().Err(err).Str("instrument", instrument).Msg("snapshot cache read failed")
		return nil
	}

	if time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		return nil
	}

	var snapshot domain.ContextSnapshot
	if err := msgpack.Unmarshal(payload, &snapshot); err != nil {
		c.log.Warn().Err(err).Str("instrument", instrument).Msg("snapshot cache payload corrupt")
		return nil
	}
	return &snapshot
}

func (c *Client) store(instrument string, snapshot *domain.ContextSnapshot) {
	if c.cache == nil || c.ttl <= 0 {
		return
	}

	payload, err := msgpack.Marshal(snapshot)
	if err != nil {
		c.log.Warn().Err(err).Str("instrument", instrument).Msg("failed to encode snapshot for cache")
		return
	}

	_, err = c.cache.Exec(`
		INSERT INTO snapshot_cache (instrument, fetched_at, payload) VALUES (?, ?, ?)
		ON CONFLICT(instrument) DO UPDATE SET fetched_at = excluded.fetched_at, payload = excluded.payload`,
		instrument, time.Now().Unix(), payload)
	if err != nil {
		c.log.Warn().Err(err).Str("instrument", instrument).Msg("snapshot cache write failed")
	}
}
