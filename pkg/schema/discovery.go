package schema

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// VirtualUnionTableName is the synthesized name of the union view presented
// over year-partitioned tables.
const VirtualUnionTableName = "ventas_union_anuales"

// yearTablePattern matches tables sharded by year, e.g. "2023", "2024".
var yearTablePattern = regexp.MustCompile(`^20[2-9][0-9]$`)

// Discoverer introspects a tenant MySQL database and produces a Descriptor.
type Discoverer struct {
	db           *sql.DB
	databaseName string
	logger       *zap.Logger
}

// NewDiscoverer creates a schema discoverer over the tenant datasource.
// If logger is nil, a no-op logger is used.
func NewDiscoverer(db *sql.DB, databaseName string, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{db: db, databaseName: databaseName, logger: logger.Named("schema")}
}

const discoverTablesQuery = `
		SELECT TABLE_NAME, COALESCE(TABLE_ROWS, 0) AS row_count
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		  AND TABLE_TYPE = 'BASE TABLE'
		  AND TABLE_NAME NOT LIKE '%backup%'
		  AND TABLE_NAME NOT LIKE '%old%'
		  AND TABLE_NAME NOT LIKE '%_bak%'
		  AND TABLE_NAME NOT LIKE '%_tmp%'
		ORDER BY TABLE_ROWS DESC`

const discoverColumnsQuery = `
		SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

// Discover enumerates base tables and columns, classifies column roles,
// synthesizes the virtual union view when year-sharded tables exist, and
// derives business terms. Any connectivity error propagates; callers must
// not cache a failed discovery.
func (d *Discoverer) Discover(ctx context.Context) (*Descriptor, error) {
	start := time.Now()

	desc := &Descriptor{
		DatabaseName: d.databaseName,
		DiscoveredAt: time.Now().UTC(),
	}

	rows, err := d.db.QueryContext(ctx, discoverTablesQuery, d.databaseName)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	type tableRow struct {
		name     string
		rowCount int64
	}
	var tableRows []tableRow
	for rows.Next() {
		var tr tableRow
		if err := rows.Scan(&tr.name, &tr.rowCount); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tableRows = append(tableRows, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	var yearTables []string
	for _, tr := range tableRows {
		if yearTablePattern.MatchString(tr.name) {
			yearTables = append(yearTables, tr.name)
		}

		columns, err := d.discoverColumns(ctx, tr.name)
		if err != nil {
			return nil, err
		}

		desc.Tables = append(desc.Tables, Table{
			Name:     tr.name,
			RowCount: tr.rowCount,
			Columns:  columns,
		})
	}

	if len(yearTables) > 1 {
		d.synthesizeUnionTable(desc, yearTables)
	} else if len(desc.Tables) > 0 {
		desc.MainTable = desc.Tables[0].Name
	}

	desc.BusinessTerms = deriveBusinessTerms(desc)

	d.logger.Info("schema discovered",
		zap.String("database", d.databaseName),
		zap.Int("tables", len(desc.Tables)),
		zap.Int("year_tables", len(yearTables)),
		zap.String("main_table", desc.MainTable),
		zap.Duration("elapsed", time.Since(start)))

	return desc, nil
}

func (d *Discoverer) discoverColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := d.db.QueryContext(ctx, discoverColumnsQuery, d.databaseName, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var name, dataType, fullType, nullable, keyType string
		if err := rows.Scan(&name, &dataType, &fullType, &nullable, &keyType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		isPK := keyType == "PRI"
		role := ClassifyRole(name, dataType, isPK)
		columns = append(columns, Column{
			Name:                 name,
			DataType:             dataType,
			FullType:             fullType,
			Nullable:             nullable == "YES",
			IsPrimaryKey:         isPK,
			Role:                 role,
			SuggestedAggregation: SuggestAggregation(role),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns for %s: %w", table, err)
	}

	return columns, nil
}

// synthesizeUnionTable hides manual year-sharding behind one virtual view.
// The generation layer and the end user only ever see the union table.
func (d *Discoverer) synthesizeUnionTable(desc *Descriptor, yearTables []string) {
	template := desc.Table(yearTables[0])
	if template == nil {
		return
	}

	selects := make([]string, len(yearTables))
	for i, t := range yearTables {
		selects[i] = "SELECT * FROM " + QuoteIdent(t)
	}

	union := Table{
		Name:       VirtualUnionTableName,
		RowCount:   template.RowCount,
		Columns:    template.Columns,
		IsVirtual:  true,
		VirtualSQL: strings.Join(selects, " UNION ALL "),
	}

	desc.Tables = append([]Table{union}, desc.Tables...)
	desc.MainTable = union.Name
}

// YearTables returns the names of year-sharded tables in the descriptor.
func (d *Descriptor) YearTables() []string {
	var out []string
	for _, t := range d.Tables {
		if yearTablePattern.MatchString(t.Name) {
			out = append(out, t.Name)
		}
	}
	return out
}
