package schema

import "strings"

// Canonical business terms the rest of the engine resolves against.
const (
	TermVenta    = "venta"
	TermProducto = "producto"
	TermCliente  = "cliente"
	TermMarca    = "marca"
	TermFecha    = "fecha"
)

// deriveBusinessTerms maps canonical business concepts to concrete columns
// of the main table. Every value it produces names a column that exists in
// the main table. Priority rules:
//   - venta: a monetary sales column; one containing "net" wins.
//   - producto: a product category column that is not an id/code; one
//     containing a name token wins.
//   - fecha: a full date column; year/month-only columns lose.
func deriveBusinessTerms(d *Descriptor) map[string]string {
	terms := make(map[string]string)
	main := d.Table(d.MainTable)
	if main == nil {
		return terms
	}

	var ventaCols []Column
	for _, c := range main.Metrics() {
		lower := strings.ToLower(c.Name)
		if c.Role == RoleMetricMonetary && (strings.Contains(lower, "venta") || strings.Contains(lower, "sale")) {
			ventaCols = append(ventaCols, c)
		}
	}
	if neta := firstMatch(ventaCols, "net"); neta != "" {
		terms[TermVenta] = neta
	} else if len(ventaCols) > 0 {
		terms[TermVenta] = ventaCols[0].Name
	}

	var productoCols []Column
	for _, c := range main.Categories() {
		lower := strings.ToLower(c.Name)
		if (strings.Contains(lower, "producto") || strings.Contains(lower, "product")) &&
			!strings.Contains(lower, "id") && !strings.Contains(lower, "cod") {
			productoCols = append(productoCols, c)
		}
	}
	if named := firstMatch(productoCols, "nombre", "name"); named != "" {
		terms[TermProducto] = named
	} else if len(productoCols) > 0 {
		terms[TermProducto] = productoCols[0].Name
	}

	for _, c := range main.Categories() {
		lower := strings.ToLower(c.Name)
		if strings.Contains(lower, "cliente") || strings.Contains(lower, "customer") || strings.Contains(lower, "client") {
			terms[TermCliente] = c.Name
			break
		}
	}

	for _, c := range main.Categories() {
		lower := strings.ToLower(c.Name)
		if strings.Contains(lower, "marca") || strings.Contains(lower, "brand") {
			terms[TermMarca] = c.Name
			break
		}
	}

	dates := main.Dates()
	for _, c := range dates {
		lower := strings.ToLower(c.Name)
		if (strings.Contains(lower, "fecha") || strings.Contains(lower, "date")) &&
			!strings.Contains(lower, "año") && !strings.Contains(lower, "year") {
			terms[TermFecha] = c.Name
			break
		}
	}
	if _, ok := terms[TermFecha]; !ok && len(dates) > 0 {
		terms[TermFecha] = dates[0].Name
	}

	return terms
}

// firstMatch returns the name of the first column whose lowercased name
// contains any of the tokens, or "".
func firstMatch(cols []Column, tokens ...string) string {
	for _, c := range cols {
		lower := strings.ToLower(c.Name)
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				return c.Name
			}
		}
	}
	return ""
}
