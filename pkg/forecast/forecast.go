// Package forecast predicts sales for a future month by fitting a linear
// trend over the tenant's monthly revenue series.
package forecast

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/datacue/datacue-engine/pkg/apperrors"
	"github.com/datacue/datacue-engine/pkg/schema"
	"github.com/datacue/datacue-engine/pkg/stats"
)

const modelName = "linear_regression"

// Params selects what to forecast.
type Params struct {
	// Product optionally restricts the series to products whose name
	// contains the fragment.
	Product string
	// HorizonMonths is how many months past the last observed period to
	// predict. Minimum 1.
	HorizonMonths int
}

// Result is the forecast returned to the chatbot layer.
type Result struct {
	Prediction  float64 `json:"prediccion"`
	IntervalMin float64 `json:"intervalo_min"`
	IntervalMax float64 `json:"intervalo_max"`
	Confidence  float64 `json:"confianza"`
	Periods     int     `json:"datos_historicos"`
	Model       string  `json:"modelo"`
}

// Engine runs forecasts against the tenant datasource and records every
// invocation in the engine's audit table.
type Engine struct {
	db     *sql.DB
	audit  AuditStore
	logger *zap.Logger
}

// NewEngine creates a forecast engine. audit may be nil when auditing is
// disabled (tests).
func NewEngine(db *sql.DB, audit AuditStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{db: db, audit: audit, logger: logger.Named("forecast")}
}

// Predict forecasts the tenant's monthly revenue HorizonMonths ahead of the
// last observed period. It needs at least three monthly periods, otherwise
// it returns apperrors.ErrInsufficientData.
func (e *Engine) Predict(ctx context.Context, tenantID string, desc *schema.Descriptor, params Params) (*Result, error) {
	if params.HorizonMonths < 1 {
		params.HorizonMonths = 1
	}

	series, err := e.monthlySeries(ctx, desc, params.Product)
	if err != nil {
		return nil, err
	}
	if len(series) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 monthly periods, have %d",
			apperrors.ErrInsufficientData, len(series))
	}

	reg := stats.LinearRegression(series)

	// The last observed period sits at index n-1, so one month ahead is
	// index n, matching horizon arithmetic n + horizon - 1.
	idx := float64(len(series) + params.HorizonMonths - 1)
	prediction := reg.Predict(idx)

	dev := stats.StdDev(series)
	result := &Result{
		Prediction:  math.Round(prediction),
		IntervalMin: math.Round(math.Max(0, prediction-1.96*dev)),
		IntervalMax: math.Round(prediction + 1.96*dev),
		Confidence:  reg.R2,
		Periods:     len(series),
		Model:       modelName,
	}

	e.recordAudit(ctx, tenantID, params, result)

	return result, nil
}

// monthlySeries returns SUM(venta) per calendar month over the trailing 24
// months, ordered oldest first.
func (e *Engine) monthlySeries(ctx context.Context, desc *schema.Descriptor, product string) ([]float64, error) {
	main := desc.Table(desc.MainTable)
	if main == nil {
		return nil, fmt.Errorf("main table %q not in schema", desc.MainTable)
	}

	ventaCol := desc.BusinessTerms[schema.TermVenta]
	if ventaCol == "" {
		if metrics := main.Metrics(); len(metrics) > 0 {
			ventaCol = metrics[0].Name
		}
	}
	fechaCol := desc.BusinessTerms[schema.TermFecha]
	if fechaCol == "" {
		if dates := main.Dates(); len(dates) > 0 {
			fechaCol = dates[0].Name
		}
	}
	productCol := desc.BusinessTerms[schema.TermProducto]

	if ventaCol == "" || fechaCol == "" {
		return nil, fmt.Errorf("%w: schema has no sales or date column", apperrors.ErrMissingBusinessTerm)
	}

	ref := desc.MainTableRef()
	if ref.IsVirtual() {
		// Rebuild the union over only the columns this query touches.
		// SELECT * over large year shards can overflow temp table space.
		if yearTables := desc.YearTables(); len(yearTables) > 0 {
			cols := []string{fechaCol, ventaCol}
			if product != "" && productCol != "" {
				cols = append(cols, productCol)
			}
			ref.VirtualSQL = schema.SelectiveUnionSQL(yearTables, cols)
		}
	}

	query := fmt.Sprintf(`SELECT DATE_FORMAT(%s, '%%Y-%%m') AS periodo, SUM(%s) AS value FROM %s WHERE %s >= DATE_SUB(CURDATE(), INTERVAL 24 MONTH)`,
		schema.QuoteIdent(fechaCol), schema.QuoteIdent(ventaCol), ref.FromClause(), schema.QuoteIdent(fechaCol))

	var args []any
	if product != "" && productCol != "" {
		query += fmt.Sprintf(" AND %s LIKE ?", schema.QuoteIdent(productCol))
		args = append(args, "%"+product+"%")
	}
	query += " GROUP BY periodo ORDER BY periodo ASC"

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query monthly series: %w", err)
	}
	defer rows.Close()

	var series []float64
	for rows.Next() {
		var periodo string
		var value float64
		if err := rows.Scan(&periodo, &value); err != nil {
			return nil, fmt.Errorf("scan monthly series: %w", err)
		}
		series = append(series, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read monthly series: %w", err)
	}
	return series, nil
}

// recordAudit writes the invocation to the engine store. Audit failures are
// logged and never fail the forecast.
func (e *Engine) recordAudit(ctx context.Context, tenantID string, params Params, result *Result) {
	if e.audit == nil {
		return
	}
	err := e.audit.Record(ctx, AuditEntry{
		TenantID:     tenantID,
		ForecastType: "sales_forecast",
		Params:       params,
		Result:       result,
		Confidence:   result.Confidence,
		Model:        modelName,
	})
	if err != nil {
		e.logger.Warn("forecast audit write failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
}
