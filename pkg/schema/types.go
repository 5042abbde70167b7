// Package schema discovers and describes a tenant's sales database: tables,
// column roles, business-term bindings, and the synthesized union view over
// year-partitioned tables.
package schema

import "time"

// Descriptor is the normalized description of one tenant's database. It is
// what the generation layer embeds into prompts and what the schema cache
// persists.
type Descriptor struct {
	DatabaseName  string            `json:"database_name"`
	DiscoveredAt  time.Time         `json:"discovered_at"`
	Tables        []Table           `json:"tables"`
	MainTable     string            `json:"main_table"`
	BusinessTerms map[string]string `json:"business_terms"`
}

// Table describes one table (or the synthesized virtual union view).
type Table struct {
	Name       string   `json:"name"`
	RowCount   int64    `json:"row_count"`
	Columns    []Column `json:"columns"`
	IsVirtual  bool     `json:"is_virtual,omitempty"`
	VirtualSQL string   `json:"virtual_sql,omitempty"`
}

// Column describes one column with its inferred analytical role.
type Column struct {
	Name                 string `json:"name"`
	DataType             string `json:"data_type"`
	FullType             string `json:"full_type"`
	Nullable             bool   `json:"nullable"`
	IsPrimaryKey         bool   `json:"is_primary_key"`
	Role                 Role   `json:"role"`
	SuggestedAggregation string `json:"suggested_aggregation,omitempty"`
}

// Metrics returns the table's metric columns. Derived on demand; the
// underlying column list is the single source of truth.
func (t *Table) Metrics() []Column {
	return t.filter(func(c Column) bool {
		return c.Role == RoleMetricMonetary || c.Role == RoleMetricQuantity
	})
}

// Categories returns the table's category columns.
func (t *Table) Categories() []Column {
	return t.filter(func(c Column) bool { return c.Role == RoleCategory })
}

// Dates returns the table's date columns.
func (t *Table) Dates() []Column {
	return t.filter(func(c Column) bool { return c.Role == RoleDate })
}

func (t *Table) filter(keep func(Column) bool) []Column {
	var out []Column
	for _, c := range t.Columns {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Table returns the named table descriptor, or nil if absent.
func (d *Descriptor) Table(name string) *Table {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i]
		}
	}
	return nil
}

// MainTableRef returns a TableRef for the main table, carrying the virtual
// subquery text when the main table is the synthesized union view.
func (d *Descriptor) MainTableRef() TableRef {
	t := d.Table(d.MainTable)
	if t == nil {
		return TableRef{Name: d.MainTable}
	}
	if t.IsVirtual {
		return TableRef{Name: t.Name, VirtualSQL: t.VirtualSQL}
	}
	return TableRef{Name: t.Name}
}
