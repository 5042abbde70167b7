package forecast

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacue/datacue-engine/pkg/apperrors"
	"github.com/datacue/datacue-engine/pkg/schema"
)

type fakeAudit struct {
	entries []AuditEntry
}

func (f *fakeAudit) Record(_ context.Context, entry AuditEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func salesDescriptor() *schema.Descriptor {
	return &schema.Descriptor{
		DatabaseName: "ventas_db",
		MainTable:    "ventas",
		Tables: []schema.Table{{
			Name: "ventas",
			Columns: []schema.Column{
				{Name: "fecha venta", DataType: "date", Role: schema.RoleDate},
				{Name: "venta neto", DataType: "decimal", Role: schema.RoleMetricMonetary},
				{Name: "nombre producto", DataType: "varchar", Role: schema.RoleCategory},
			},
		}},
		BusinessTerms: map[string]string{
			schema.TermVenta:    "venta neto",
			schema.TermFecha:    "fecha venta",
			schema.TermProducto: "nombre producto",
		},
	}
}

func seriesRows(values ...float64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"periodo", "value"})
	months := []string{"2025-01", "2025-02", "2025-03", "2025-04", "2025-05", "2025-06"}
	for i, v := range values {
		rows.AddRow(months[i], v)
	}
	return rows
}

func TestPredict_LinearTrend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT DATE_FORMAT").WillReturnRows(seriesRows(100, 110, 120))

	audit := &fakeAudit{}
	engine := NewEngine(db, audit, nil)

	result, err := engine.Predict(context.Background(), "tenant-1", salesDescriptor(), Params{HorizonMonths: 1})
	require.NoError(t, err)

	assert.InDelta(t, 130, result.Prediction, 0.5)
	assert.InDelta(t, 1, result.Confidence, 1e-9)
	assert.Equal(t, 3, result.Periods)
	// stddev of 100,110,120 is 10, so the band is prediction ± 19.6.
	assert.InDelta(t, 110, result.IntervalMin, 1)
	assert.InDelta(t, 150, result.IntervalMax, 1)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "tenant-1", audit.entries[0].TenantID)
	assert.Equal(t, "sales_forecast", audit.entries[0].ForecastType)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredict_InsufficientData(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT DATE_FORMAT").WillReturnRows(seriesRows(100, 110))

	engine := NewEngine(db, nil, nil)
	_, err = engine.Predict(context.Background(), "tenant-1", salesDescriptor(), Params{HorizonMonths: 1})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
}

func TestPredict_ProductFilterIsParameterized(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("AND `nombre producto` LIKE").
		WithArgs("%aguardiente%").
		WillReturnRows(seriesRows(10, 20, 30, 40))

	engine := NewEngine(db, nil, nil)
	result, err := engine.Predict(context.Background(), "tenant-1", salesDescriptor(),
		Params{Product: "aguardiente", HorizonMonths: 2})
	require.NoError(t, err)

	// slope 10, intercept 10; index 4+2-1=5 predicts 60.
	assert.InDelta(t, 60, result.Prediction, 0.5)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredict_VirtualTableUsesSelectiveUnion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	desc := &schema.Descriptor{
		DatabaseName: "ventas_db",
		MainTable:    schema.VirtualUnionTableName,
		Tables: []schema.Table{
			{
				Name:       schema.VirtualUnionTableName,
				IsVirtual:  true,
				VirtualSQL: "SELECT * FROM `2024` UNION ALL SELECT * FROM `2025`",
				Columns: []schema.Column{
					{Name: "fecha", DataType: "date", Role: schema.RoleDate},
					{Name: "venta", DataType: "decimal", Role: schema.RoleMetricMonetary},
				},
			},
			{Name: "2024"},
			{Name: "2025"},
		},
		BusinessTerms: map[string]string{
			schema.TermVenta: "venta",
			schema.TermFecha: "fecha",
		},
	}

	// The broad SELECT * union must be replaced by a projection of just
	// the date and sales columns.
	mock.ExpectQuery("SELECT `fecha`, `venta` FROM `2024` UNION ALL SELECT `fecha`, `venta` FROM `2025`").
		WillReturnRows(seriesRows(100, 110, 120))

	engine := NewEngine(db, nil, nil)
	_, err = engine.Predict(context.Background(), "tenant-1", desc, Params{HorizonMonths: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredict_MissingBusinessTerms(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	desc := &schema.Descriptor{
		MainTable: "ventas",
		Tables: []schema.Table{{
			Name: "ventas",
			Columns: []schema.Column{
				{Name: "nota", DataType: "varchar", Role: schema.RoleLabel},
			},
		}},
		BusinessTerms: map[string]string{},
	}

	engine := NewEngine(db, nil, nil)
	_, err = engine.Predict(context.Background(), "tenant-1", desc, Params{})
	assert.ErrorIs(t, err, apperrors.ErrMissingBusinessTerm)
}
