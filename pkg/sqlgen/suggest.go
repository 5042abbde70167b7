package sqlgen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/datacue/datacue-engine/pkg/schema"
)

const maxSuggestions = 8

// stopWords are question words and filler that would only produce noise
// matches against place-name columns.
var stopWords = map[string]bool{
	"cuanto": true, "cuánto": true, "cuanta": true, "cuánta": true,
	"cuantos": true, "cuántos": true, "cuales": true, "cuáles": true,
	"donde": true, "dónde": true, "como": true, "cómo": true,
	"para": true, "desde": true, "hasta": true, "entre": true,
	"sobre": true, "durante": true, "total": true, "ventas": true,
	"venta": true, "dame": true, "muestra": true, "lista": true,
	"what": true, "which": true, "where": true, "show": true,
	"sales": true, "during": true, "from": true,
}

// SearchSuggestions looks up place names resembling the question's tokens.
// It is a recovery aid for queries that returned zero rows, typically
// because the user misspelled a municipality or department. Any failure
// degrades to no suggestions.
func SearchSuggestions(ctx context.Context, db *sql.DB, desc *schema.Descriptor, question string) []string {
	tokens := questionTokens(question)
	if len(tokens) == 0 {
		return nil
	}

	nameCol, searchCols := placeColumns(desc)
	if nameCol == "" {
		return nil
	}

	var conditions []string
	var args []any
	for _, tok := range tokens {
		for _, col := range searchCols {
			conditions = append(conditions, schema.QuoteIdent(col)+" LIKE ?")
			args = append(args, "%"+tok+"%")
		}
	}

	query := fmt.Sprintf("SELECT DISTINCT %s AS lugar FROM %s WHERE %s LIMIT %d",
		schema.QuoteIdent(nameCol), desc.MainTableRef().FromClause(),
		strings.Join(conditions, " OR "), maxSuggestions)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var suggestions []string
	for rows.Next() {
		var lugar sql.NullString
		if err := rows.Scan(&lugar); err != nil {
			return nil
		}
		if lugar.Valid && lugar.String != "" {
			suggestions = append(suggestions, lugar.String)
		}
	}
	if rows.Err() != nil {
		return nil
	}
	return suggestions
}

// questionTokens extracts search candidates: lowercase words longer than
// three characters that are not stop words.
func questionTokens(question string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, "¿?¡!.,;:\"'()")
		if len([]rune(word)) > 3 && !stopWords[word] {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// placeColumns picks the geography columns of the main table: the first
// column whose name mentions a municipality is the suggestion source, and
// department columns widen the match. Falls back to the first category
// column when no place column exists.
func placeColumns(desc *schema.Descriptor) (nameCol string, searchCols []string) {
	main := desc.Table(desc.MainTable)
	if main == nil {
		return "", nil
	}

	for _, c := range main.Columns {
		lower := strings.ToLower(c.Name)
		if strings.Contains(lower, "municipio") || strings.Contains(lower, "city") {
			if nameCol == "" {
				nameCol = c.Name
			}
			searchCols = append(searchCols, c.Name)
		} else if strings.Contains(lower, "departamento") || strings.Contains(lower, "region") || strings.Contains(lower, "state") {
			searchCols = append(searchCols, c.Name)
		}
	}

	if nameCol == "" && len(searchCols) > 0 {
		nameCol = searchCols[0]
	}
	if nameCol == "" {
		if cats := main.Categories(); len(cats) > 0 {
			nameCol = cats[0].Name
			searchCols = []string{nameCol}
		}
	}
	return nameCol, searchCols
}
