// Package sqlgen turns natural-language questions into validated, executed
// MySQL SELECT statements via an LLM generation loop with bounded retries.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/datacue/datacue-engine/pkg/apperrors"
)

// forbiddenKeywords is the write/DDL/exfiltration denylist. Matching is
// uppercase substring containment, which is coarse: a column literally named
// "created_at" in generated SQL will be rejected. That tradeoff is accepted;
// the datasource user is read-only and this check is belt-and-suspenders.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE",
	"EXEC", "CREATE", "GRANT", "REVOKE",
	"INTO OUTFILE", "LOAD_FILE", "SLEEP", "BENCHMARK", "XP_CMDSHELL",
}

// Validate rejects statements that are not plain read queries. Empty input
// is rejected.
func Validate(statement string) error {
	upper := strings.ToUpper(strings.TrimSpace(statement))
	if upper == "" {
		return fmt.Errorf("%w: empty statement", apperrors.ErrNotSelect)
	}

	for _, kw := range forbiddenKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("%w: %s", apperrors.ErrForbiddenStatement, kw)
		}
	}

	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("%w: statement must start with SELECT or WITH", apperrors.ErrNotSelect)
	}
	return nil
}
