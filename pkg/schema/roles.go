package schema

import "strings"

// Role labels the analytical purpose of a column.
type Role string

const (
	RoleIdentifier     Role = "identifier"
	RoleDate           Role = "date"
	RoleMetricMonetary Role = "metric_monetary"
	RoleMetricQuantity Role = "metric_quantity"
	RoleCategory       Role = "category"
	RoleCoordinate     Role = "coordinate"
	RoleLabel          Role = "label"
	RoleUnknown        Role = "unknown"
)

// RoleRule is one classification predicate. Rules are evaluated in order and
// the first match wins; the order itself is part of the contract (an
// id-suffixed monetary column is an identifier, not a metric).
type RoleRule struct {
	Role  Role
	Match func(name, dataType string, isPrimaryKey bool) bool
}

// Keyword sets are bilingual (Spanish/English) because tenant databases mix
// both conventions.
var (
	identifierTokens = []string{"id", "codigo", "code"}
	dateTokens       = []string{"fecha", "date", "año", "mes", "year", "month"}
	monetaryTokens   = []string{"venta", "sale", "precio", "price", "monto", "amount", "total", "costo", "cost", "net", "$"}
	quantityTokens   = []string{"cantidad", "quantity", "qty", "unidades", "units", "cajas", "boxes"}
	categoryTokens   = []string{"nombre", "name", "tipo", "type", "categoria", "category", "marca", "brand", "estado", "status", "producto", "cliente"}
	coordinateTokens = []string{"latitud", "latitude", "longitud", "longitude"}
)

// RoleRules is the fixed, ordered classification table. Classification is a
// pure function of (name, declared type, primary-key flag); it never samples
// data.
var RoleRules = []RoleRule{
	{RoleIdentifier, func(name, _ string, pk bool) bool {
		return pk || containsAny(name, identifierTokens)
	}},
	{RoleDate, func(name, dataType string, _ bool) bool {
		return containsAny(name, dateTokens) ||
			strings.Contains(dataType, "date") || strings.Contains(dataType, "timestamp")
	}},
	{RoleMetricMonetary, func(name, dataType string, _ bool) bool {
		return containsAny(name, monetaryTokens) &&
			(strings.Contains(dataType, "decimal") || strings.Contains(dataType, "float") || strings.Contains(dataType, "double"))
	}},
	{RoleMetricQuantity, func(name, dataType string, _ bool) bool {
		return containsAny(name, quantityTokens) &&
			(strings.Contains(dataType, "int") || strings.Contains(dataType, "decimal"))
	}},
	{RoleCategory, func(name, _ string, _ bool) bool {
		return containsAny(name, categoryTokens)
	}},
	{RoleCoordinate, func(name, _ string, _ bool) bool {
		return containsAny(name, coordinateTokens)
	}},
	{RoleLabel, func(_, dataType string, _ bool) bool {
		return dataType == "varchar" || dataType == "text"
	}},
}

// ClassifyRole infers a column's role from its name, declared type, and
// primary-key flag, using RoleRules in order.
func ClassifyRole(name, dataType string, isPrimaryKey bool) Role {
	name = strings.ToLower(name)
	dataType = strings.ToLower(dataType)
	for _, rule := range RoleRules {
		if rule.Match(name, dataType, isPrimaryKey) {
			return rule.Role
		}
	}
	return RoleUnknown
}

// SuggestAggregation maps a role to the SQL construct the generation prompt
// should hint at for that column.
func SuggestAggregation(role Role) string {
	switch role {
	case RoleMetricMonetary, RoleMetricQuantity:
		return "SUM"
	case RoleCategory, RoleLabel:
		return "GROUP BY"
	case RoleDate, RoleIdentifier:
		return "WHERE"
	default:
		return ""
	}
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
