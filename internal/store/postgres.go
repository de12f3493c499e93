package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/millionvolts/adgather/internal/config"
	"github.com/millionvolts/adgather/internal/model"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// Connect creates a connection pool and verifies it.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// PostgresStore persists baselines in two tables and mirrors them in memory,
// so round-time reads never touch the pool. Writes go to the database first;
// memory is updated only after the write succeeds.
type PostgresStore struct {
	pool   *pgxpool.Pool
	mem    *MemoryStore
	logger *slog.Logger
}

// NewPostgresStore wraps an existing pool. Call EnsureSchema and Load before
// first use.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, mem: NewMemoryStore(), logger: logger}
}

// EnsureSchema creates the baseline tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS baseline_entries (
			key             TEXT PRIMARY KEY,
			account_id      TEXT NOT NULL,
			campaign_id     TEXT NOT NULL,
			campaign_name   TEXT NOT NULL DEFAULT '',
			spend           DOUBLE PRECISION NOT NULL DEFAULT 0,
			results         DOUBLE PRECISION NOT NULL DEFAULT 0,
			clicks          DOUBLE PRECISION NOT NULL DEFAULT 0,
			impressions     DOUBLE PRECISION NOT NULL DEFAULT 0,
			comments        DOUBLE PRECISION NOT NULL DEFAULT 0,
			cost_per_result DOUBLE PRECISION NOT NULL DEFAULT 0,
			budget          DOUBLE PRECISION NOT NULL DEFAULT 0,
			currency        TEXT NOT NULL DEFAULT '',
			updated_at      TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS baseline_state (
			id          INT PRIMARY KEY CHECK (id = 1),
			initialized BOOLEAN NOT NULL DEFAULT FALSE
		);`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load hydrates the in-memory mirror from the database.
func (s *PostgresStore) Load(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `
		SELECT account_id, campaign_id, campaign_name,
		       spend, results, clicks, impressions, comments, cost_per_result,
		       budget, currency, updated_at
		FROM baseline_entries`)
	if err != nil {
		return fmt.Errorf("load baselines: %w", err)
	}
	defer rows.Close()

	var entries []model.BaselineEntry
	for rows.Next() {
		var e model.BaselineEntry
		if err := rows.Scan(
			&e.AccountID, &e.CampaignID, &e.CampaignName,
			&e.Spend, &e.Results, &e.Clicks, &e.Impressions, &e.Comments, &e.CostPerResult,
			&e.Budget, &e.Currency, &e.UpdatedAt,
		); err != nil {
			return fmt.Errorf("scan baseline: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load baselines: %w", err)
	}

	var initialized bool
	err = s.pool.QueryRow(ctx,
		`SELECT initialized FROM baseline_state WHERE id = 1`).Scan(&initialized)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("load baseline state: %w", err)
	}

	if err := s.mem.PutAll(ctx, entries); err != nil {
		return err
	}
	if initialized {
		if err := s.mem.MarkInitialized(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("baseline store loaded",
		"entries", len(entries), "initialized", initialized)
	return nil
}

func (s *PostgresStore) Get(accountID, campaignID string) (model.BaselineEntry, bool) {
	return s.mem.Get(accountID, campaignID)
}

func (s *PostgresStore) Entries() []model.BaselineEntry {
	return s.mem.Entries()
}

func (s *PostgresStore) Initialized() bool {
	return s.mem.Initialized()
}

// PutAll upserts the entries in one batch round trip.
func (s *PostgresStore) PutAll(ctx context.Context, entries []model.BaselineEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO baseline_entries (
				key, account_id, campaign_id, campaign_name,
				spend, results, clicks, impressions, comments, cost_per_result,
				budget, currency, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (key) DO UPDATE SET
				campaign_name = EXCLUDED.campaign_name,
				spend = EXCLUDED.spend,
				results = EXCLUDED.results,
				clicks = EXCLUDED.clicks,
				impressions = EXCLUDED.impressions,
				comments = EXCLUDED.comments,
				cost_per_result = EXCLUDED.cost_per_result,
				budget = EXCLUDED.budget,
				currency = EXCLUDED.currency,
				updated_at = EXCLUDED.updated_at`,
			e.Key(), e.AccountID, e.CampaignID, e.CampaignName,
			e.Spend, e.Results, e.Clicks, e.Impressions, e.Comments, e.CostPerResult,
			e.Budget, e.Currency, e.UpdatedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert baseline: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return s.mem.PutAll(ctx, entries)
}

func (s *PostgresStore) MarkInitialized(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO baseline_state (id, initialized) VALUES (1, TRUE)
		ON CONFLICT (id) DO UPDATE SET initialized = TRUE`)
	if err != nil {
		return fmt.Errorf("mark initialized: %w", err)
	}
	return s.mem.MarkInitialized(ctx)
}
