package schema

import (
	"fmt"
	"strings"
)

// TableRef is a reference to a queryable table with two cases: a concrete
// table name, or a virtual table backed by an inline subquery. Every query
// site uses FromClause instead of interpolating names ad hoc.
type TableRef struct {
	Name       string
	VirtualSQL string
}

// IsVirtual reports whether the reference is backed by a subquery.
func (r TableRef) IsVirtual() bool {
	return r.VirtualSQL != ""
}

// FromClause returns the SQL fragment to place after FROM.
func (r TableRef) FromClause() string {
	if r.IsVirtual() {
		return fmt.Sprintf("(%s) AS %s", r.VirtualSQL, QuoteIdent(r.Name))
	}
	return QuoteIdent(r.Name)
}

// SelectiveUnionSQL rebuilds the year-union subquery selecting only the
// given columns. Unioning SELECT * over large year shards can exhaust
// temporary table space; narrowing the projection avoids that.
func SelectiveUnionSQL(yearTables []string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdent(c)
	}
	selects := make([]string, len(yearTables))
	for i, t := range yearTables {
		selects[i] = fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), QuoteIdent(t))
	}
	return strings.Join(selects, " UNION ALL ")
}

// QuoteIdent backtick-quotes a MySQL identifier, escaping embedded backticks.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
