package sqlgen

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Row is one result row keyed by column name.
type Row map[string]any

// ColumnMetrics summarizes one numeric result column.
type ColumnMetrics struct {
	Total   float64 `json:"total"`
	Average float64 `json:"promedio"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// ComputeMetrics aggregates every numeric column of the result set. A column
// counts as numeric when its value in the first row parses as a number;
// non-parsing values in later rows count as zero.
func ComputeMetrics(rows []Row) map[string]ColumnMetrics {
	metrics := make(map[string]ColumnMetrics)
	if len(rows) == 0 {
		return metrics
	}

	for col, v := range rows[0] {
		if _, ok := toFloat(v); !ok {
			continue
		}

		var m ColumnMetrics
		for i, row := range rows {
			val, _ := toFloat(row[col])
			m.Total += val
			if i == 0 || val > m.Max {
				m.Max = val
			}
			if i == 0 || val < m.Min {
				m.Min = val
			}
		}
		m.Average = m.Total / float64(len(rows))
		metrics[col] = m
	}
	return metrics
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// queryRows executes a read statement and materializes every row. MySQL
// drivers frequently hand back []byte for text and decimal columns; those
// are normalized to string so rows marshal cleanly into prompts and
// responses.
func queryRows(ctx context.Context, db *sql.DB, statement string) ([]Row, error) {
	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
