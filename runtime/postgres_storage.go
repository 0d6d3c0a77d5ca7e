package runtime

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStorageConfig configures the PostgreSQL spec store.
type PostgresStorageConfig struct {
	DSN             string        `json:"dsn" yaml:"dsn"`
	MaxConnections  int           `json:"max_connections" yaml:"max_connections"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `json:"auto_migrate" yaml:"auto_migrate"`
}

// PostgresStorage implements SpecStorage on PostgreSQL.
type PostgresStorage struct {
	pool   *pgxpool.Pool
	config *PostgresStorageConfig
}

// NewPostgresStorage connects a pool and optionally runs embedded migrations.
func NewPostgresStorage(ctx context.Context, config *PostgresStorageConfig) (*PostgresStorage, error) {
	if config.MaxConnections == 0 {
		config.MaxConnections = 25
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = time.Hour
	}
	if config.ConnMaxIdleTime == 0 {
		config.ConnMaxIdleTime = 30 * time.Minute
	}

	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolConfig.MaxConns = int32(config.MaxConnections)
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = config.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	storage := &PostgresStorage{pool: pool, config: config}
	if config.AutoMigrate {
		if err := storage.runMigrations(); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return storage, nil
}

// runMigrations applies the embedded goose migrations through the pgx stdlib
// driver; goose needs a database/sql handle.
func (p *PostgresStorage) runMigrations() error {
	db, err := sql.Open("pgx", p.config.DSN)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.Up(db, "migrations")
}

// StoreSpec upserts a spec by (name, version) and records an audit entry.
func (p *PostgresStorage) StoreSpec(ctx context.Context, spec *StoredSpec) error {
	if spec.Name == "" || spec.Version == "" {
		return fmt.Errorf("spec name and version are required")
	}
	if spec.Status == "" {
		spec.Status = SpecStatusDraft
	}
	metadata, err := json.Marshal(spec.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO chain_specs (name, version, status, spec, description, created_by, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name, version) DO UPDATE SET
			status = EXCLUDED.status,
			spec = EXCLUDED.spec,
			description = EXCLUDED.description,
			metadata = EXCLUDED.metadata,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		spec.Name, spec.Version, string(spec.Status), spec.SpecJSON,
		spec.Description, spec.CreatedBy, metadata)

	if err := row.Scan(&spec.ID, &spec.CreatedAt, &spec.UpdatedAt); err != nil {
		return fmt.Errorf("storing spec: %w", err)
	}

	audit := &AuditEntry{
		Action:      "store_spec",
		SpecName:    spec.Name,
		SpecVersion: spec.Version,
		Result:      "success",
	}
	if err := p.RecordActivity(ctx, audit); err != nil {
		// Audit failure does not fail the store.
		fmt.Printf("failed to record audit entry: %v\n", err)
	}
	return nil
}

// GetSpec retrieves one spec by name and version.
func (p *PostgresStorage) GetSpec(ctx context.Context, name, version string) (*StoredSpec, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, version, status, spec, description, created_by, metadata, created_at, updated_at
		FROM chain_specs WHERE name = $1 AND version = $2`, name, version)
	return scanSpec(row)
}

// GetActiveSpec retrieves the spec marked active for a name.
func (p *PostgresStorage) GetActiveSpec(ctx context.Context, name string) (*StoredSpec, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, version, status, spec, description, created_by, metadata, created_at, updated_at
		FROM chain_specs WHERE name = $1 AND status = 'active'
		ORDER BY updated_at DESC LIMIT 1`, name)
	return scanSpec(row)
}

// ListSpecs lists specs matching the filters, newest first.
func (p *PostgresStorage) ListSpecs(ctx context.Context, filters *SpecFilters) ([]*StoredSpec, error) {
	if filters == nil {
		filters = &SpecFilters{}
	}
	limit := filters.Limit
	if limit == 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, name, version, status, spec, description, created_by, metadata, created_at, updated_at
		FROM chain_specs
		WHERE ($1 = '' OR name = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY updated_at DESC
		LIMIT $3`, filters.Name, string(filters.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("listing specs: %w", err)
	}
	defer rows.Close()

	var specs []*StoredSpec
	for rows.Next() {
		spec, err := scanSpec(rows)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

// SetActiveVersion marks one version active and archives the previous one.
func (p *PostgresStorage) SetActiveVersion(ctx context.Context, name, version string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE chain_specs SET status = 'active', updated_at = now()
		WHERE name = $1 AND version = $2`, name, version)
	if err != nil {
		return fmt.Errorf("activating spec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("spec not found: %s:%s", name, version)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE chain_specs SET status = 'archived', updated_at = now()
		WHERE name = $1 AND version <> $2 AND status = 'active'`, name, version); err != nil {
		return fmt.Errorf("archiving previous versions: %w", err)
	}
	return tx.Commit(ctx)
}

// DeleteSpec removes one version of a spec.
func (p *PostgresStorage) DeleteSpec(ctx context.Context, name, version string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM chain_specs WHERE name = $1 AND version = $2`, name, version)
	if err != nil {
		return fmt.Errorf("deleting spec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("spec not found: %s:%s", name, version)
	}
	return nil
}

// RecordActivity appends one audit entry.
func (p *PostgresStorage) RecordActivity(ctx context.Context, entry *AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshaling audit details: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO transform_audit (action, spec_name, spec_version, result, error_message, duration_ms, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.Action, entry.SpecName, entry.SpecVersion, entry.Result,
		entry.ErrorMsg, entry.DurationMs, details)
	if err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}

// GetAuditLog retrieves audit entries matching the filters, newest first.
func (p *PostgresStorage) GetAuditLog(ctx context.Context, filters *AuditFilters) ([]*AuditEntry, error) {
	if filters == nil {
		filters = &AuditFilters{}
	}
	limit := filters.Limit
	if limit == 0 {
		limit = 100
	}
	start := filters.StartTime
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	end := filters.EndTime
	if end.IsZero() {
		end = time.Now().Add(time.Hour)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, timestamp, action, spec_name, spec_version, result, error_message, duration_ms, details
		FROM transform_audit
		WHERE ($1 = '' OR action = $1)
		  AND ($2 = '' OR spec_name = $2)
		  AND timestamp BETWEEN $3 AND $4
		ORDER BY timestamp DESC
		LIMIT $5`, filters.Action, filters.SpecName, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("getting audit log: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Action, &entry.SpecName,
			&entry.SpecVersion, &entry.Result, &entry.ErrorMsg, &entry.DurationMs, &details); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if len(details) > 0 {
			json.Unmarshal(details, &entry.Details)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// HealthCheck pings the pool.
func (p *PostgresStorage) HealthCheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool.
func (p *PostgresStorage) Close() {
	p.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpec(row rowScanner) (*StoredSpec, error) {
	spec := &StoredSpec{}
	var status string
	var metadata []byte
	err := row.Scan(&spec.ID, &spec.Name, &spec.Version, &status, &spec.SpecJSON,
		&spec.Description, &spec.CreatedBy, &metadata, &spec.CreatedAt, &spec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("spec not found")
		}
		return nil, fmt.Errorf("scanning spec: %w", err)
	}
	spec.Status = SpecStatus(status)
	if len(metadata) > 0 {
		json.Unmarshal(metadata, &spec.Metadata)
	}
	return spec, nil
}
