package schema

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesColumns() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_KEY"}).
		AddRow("id", "int", "int(11)", "NO", "PRI").
		AddRow("fecha", "date", "date", "YES", "").
		AddRow("venta_neta", "decimal", "decimal(12,2)", "YES", "").
		AddRow("venta_bruta", "decimal", "decimal(12,2)", "YES", "").
		AddRow("nombre producto", "varchar", "varchar(120)", "YES", "").
		AddRow("cliente", "varchar", "varchar(120)", "YES", "").
		AddRow("marca", "varchar", "varchar(60)", "YES", "").
		AddRow("nombre Municipio", "varchar", "varchar(80)", "YES", "")
}

func TestDiscover_YearShardsBecomeVirtualUnion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.TABLES")).
		WithArgs("salesdb").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "row_count"}).
			AddRow("2024", int64(500000)).
			AddRow("2023", int64(450000)).
			AddRow("productos", int64(1200)))

	for range 3 {
		mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.COLUMNS")).
			WillReturnRows(salesColumns())
	}

	desc, err := NewDiscoverer(db, "salesdb", nil).Discover(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, VirtualUnionTableName, desc.MainTable)
	require.Len(t, desc.Tables, 4)

	union := desc.Table(VirtualUnionTableName)
	require.NotNil(t, union)
	assert.True(t, union.IsVirtual)
	assert.Equal(t, "SELECT * FROM `2024` UNION ALL SELECT * FROM `2023`", union.VirtualSQL)

	// The virtual table is promoted to the front of the table list.
	assert.Equal(t, VirtualUnionTableName, desc.Tables[0].Name)
	assert.Equal(t, []string{"2024", "2023"}, desc.YearTables())

	ref := desc.MainTableRef()
	assert.True(t, ref.IsVirtual())
	assert.Equal(t, "(SELECT * FROM `2024` UNION ALL SELECT * FROM `2023`) AS `ventas_union_anuales`", ref.FromClause())
}

func TestDiscover_BusinessTerms(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.TABLES")).
		WithArgs("salesdb").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "row_count"}).
			AddRow("ventas", int64(90000)))

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.COLUMNS")).
		WillReturnRows(salesColumns())

	desc, err := NewDiscoverer(db, "salesdb", nil).Discover(context.Background())
	require.NoError(t, err)

	// Single table, highest row count: no virtual view.
	assert.Equal(t, "ventas", desc.MainTable)
	assert.False(t, desc.MainTableRef().IsVirtual())

	// "neto" wins over other monetary sales columns.
	assert.Equal(t, "venta_neta", desc.BusinessTerms[TermVenta])
	assert.Equal(t, "nombre producto", desc.BusinessTerms[TermProducto])
	assert.Equal(t, "cliente", desc.BusinessTerms[TermCliente])
	assert.Equal(t, "marca", desc.BusinessTerms[TermMarca])
	assert.Equal(t, "fecha", desc.BusinessTerms[TermFecha])

	// Every term must name a real main-table column.
	main := desc.Table(desc.MainTable)
	for term, col := range desc.BusinessTerms {
		found := false
		for _, c := range main.Columns {
			if c.Name == col {
				found = true
				break
			}
		}
		assert.True(t, found, "term %s points at missing column %s", term, col)
	}
}

func TestDiscover_PropagatesConnectivityErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.TABLES")).
		WillReturnError(assert.AnError)

	_, err = NewDiscoverer(db, "salesdb", nil).Discover(context.Background())
	require.Error(t, err)
}

func TestSelectiveUnionSQL(t *testing.T) {
	got := SelectiveUnionSQL([]string{"2023", "2024"}, []string{"fecha", "venta_neta"})
	assert.Equal(t,
		"SELECT `fecha`, `venta_neta` FROM `2023` UNION ALL SELECT `fecha`, `venta_neta` FROM `2024`",
		got)
}
