package schemacache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/datacue/datacue-engine/pkg/apperrors"
	"github.com/datacue/datacue-engine/pkg/database"
)

// PostgresStore persists cache entries in the engine store.
type PostgresStore struct {
	db *database.EngineDB
}

// NewPostgresStore creates a store over the engine database.
func NewPostgresStore(db *database.EngineDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, tenantID string) (*Entry, error) {
	const query = `
		SELECT tenant_id, schema_data, main_table, column_count, row_count,
		       database_name, discovery_duration_ms, created_at, expires_at
		FROM schema_cache
		WHERE tenant_id = $1`

	var e Entry
	err := s.db.QueryRow(ctx, query, tenantID).Scan(
		&e.TenantID, &e.SchemaData, &e.MainTable, &e.ColumnCount, &e.RowCount,
		&e.DatabaseName, &e.DiscoveryDurationMS, &e.CreatedAt, &e.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select schema_cache: %w", err)
	}
	return &e, nil
}

// Upsert implements Store with insert-or-update-on-conflict semantics.
func (s *PostgresStore) Upsert(ctx context.Context, entry *Entry) error {
	const query = `
		INSERT INTO schema_cache
			(tenant_id, schema_data, main_table, column_count, row_count,
			 database_name, discovery_duration_ms, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now(), $8)
		ON CONFLICT (tenant_id) DO UPDATE SET
			schema_data = EXCLUDED.schema_data,
			main_table = EXCLUDED.main_table,
			column_count = EXCLUDED.column_count,
			row_count = EXCLUDED.row_count,
			database_name = EXCLUDED.database_name,
			discovery_duration_ms = EXCLUDED.discovery_duration_ms,
			updated_at = now(),
			expires_at = EXCLUDED.expires_at`

	_, err := s.db.Exec(ctx, query,
		entry.TenantID, entry.SchemaData, entry.MainTable, entry.ColumnCount,
		entry.RowCount, entry.DatabaseName, entry.DiscoveryDurationMS, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert schema_cache: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, tenantID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM schema_cache WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("delete schema_cache: %w", err)
	}
	return nil
}

// Stats implements Store.
func (s *PostgresStore) Stats(ctx context.Context) (*StoreStats, error) {
	const query = `
		SELECT COUNT(*),
		       COALESCE(AVG(column_count), 0),
		       COALESCE(AVG(discovery_duration_ms), 0),
		       COALESCE(SUM(CASE WHEN expires_at < now() THEN 1 ELSE 0 END), 0)
		FROM schema_cache`

	var stats StoreStats
	err := s.db.QueryRow(ctx, query).Scan(
		&stats.Tenants, &stats.AvgColumnCount, &stats.AvgDiscoveryTimeMS, &stats.Expired,
	)
	if err != nil {
		return nil, fmt.Errorf("schema_cache stats: %w", err)
	}
	return &stats, nil
}

var _ Store = (*PostgresStore)(nil)
