package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datacue/datacue-engine/pkg/apperrors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		wantErr   error
	}{
		{"plain select", "SELECT * FROM `ventas` LIMIT 10", nil},
		{"cte", "WITH t AS (SELECT 1) SELECT * FROM t", nil},
		{"lowercase select", "select `venta` from `ventas`", nil},
		{"leading whitespace", "  \n SELECT 1", nil},
		{"insert", "INSERT INTO ventas VALUES (1)", apperrors.ErrForbiddenStatement},
		{"update", "UPDATE ventas SET v = 0", apperrors.ErrForbiddenStatement},
		{"delete", "DELETE FROM ventas", apperrors.ErrForbiddenStatement},
		{"drop", "DROP TABLE ventas", apperrors.ErrForbiddenStatement},
		{"alter", "ALTER TABLE ventas ADD COLUMN x INT", apperrors.ErrForbiddenStatement},
		{"truncate", "TRUNCATE ventas", apperrors.ErrForbiddenStatement},
		{"grant", "GRANT ALL ON *.* TO 'x'", apperrors.ErrForbiddenStatement},
		{"revoke", "REVOKE ALL ON *.* FROM 'x'", apperrors.ErrForbiddenStatement},
		{"embedded delete", "SELECT 1; DELETE FROM ventas", apperrors.ErrForbiddenStatement},
		{"into outfile", "SELECT * FROM v INTO OUTFILE '/tmp/x'", apperrors.ErrForbiddenStatement},
		{"load_file", "SELECT LOAD_FILE('/etc/passwd')", apperrors.ErrForbiddenStatement},
		{"sleep", "SELECT SLEEP(10)", apperrors.ErrForbiddenStatement},
		{"benchmark", "SELECT BENCHMARK(1000000, MD5('x'))", apperrors.ErrForbiddenStatement},
		{"not a select", "SHOW TABLES", apperrors.ErrNotSelect},
		{"empty", "", apperrors.ErrNotSelect},
		{"whitespace only", "   ", apperrors.ErrNotSelect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.statement)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestComputeMetrics(t *testing.T) {
	rows := []Row{
		{"municipio": "Medellín", "total": 100.0, "unidades": "5"},
		{"municipio": "Bogotá", "total": 300.0, "unidades": "15"},
	}

	metrics := ComputeMetrics(rows)

	assert.NotContains(t, metrics, "municipio")

	total := metrics["total"]
	assert.InDelta(t, 400, total.Total, 1e-9)
	assert.InDelta(t, 200, total.Average, 1e-9)
	assert.InDelta(t, 300, total.Max, 1e-9)
	assert.InDelta(t, 100, total.Min, 1e-9)

	// Stringified numbers (MySQL decimals arrive as text) still count.
	unidades := metrics["unidades"]
	assert.InDelta(t, 20, unidades.Total, 1e-9)

	assert.Empty(t, ComputeMetrics(nil))
}
