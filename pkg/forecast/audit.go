package forecast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/datacue/datacue-engine/pkg/database"
)

// AuditEntry is one forecast invocation, persisted for later review of model
// inputs and outputs.
type AuditEntry struct {
	TenantID     string
	ForecastType string
	Params       any
	Result       any
	Confidence   float64
	Model        string
}

// AuditStore persists forecast audit entries. Write-only; nothing in the
// engine reads them back.
type AuditStore interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// PostgresAuditStore writes audit rows to the engine database.
type PostgresAuditStore struct {
	db *database.EngineDB
}

// NewPostgresAuditStore creates an audit store on the engine pool.
func NewPostgresAuditStore(db *database.EngineDB) *PostgresAuditStore {
	return &PostgresAuditStore{db: db}
}

// Record inserts one audit row.
func (s *PostgresAuditStore) Record(ctx context.Context, entry AuditEntry) error {
	params, err := json.Marshal(entry.Params)
	if err != nil {
		return fmt.Errorf("marshal audit params: %w", err)
	}
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("marshal audit result: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO forecast_audit (id, tenant_id, forecast_type, input_params, result, confidence_score, model_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), entry.TenantID, entry.ForecastType, params, result, entry.Confidence, entry.Model)
	if err != nil {
		return fmt.Errorf("insert forecast audit: %w", err)
	}
	return nil
}
