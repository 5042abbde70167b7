package sqlgen

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/datacue/datacue-engine/pkg/llm"
	"github.com/datacue/datacue-engine/pkg/logging"
	"github.com/datacue/datacue-engine/pkg/schema"
)

// state names the phases of one generation run. The loop below is an
// explicit state machine so the retry/fallback paths stay auditable.
type state int

const (
	stateGenerating state = iota
	stateValidating
	stateExecuting
	stateSuggesting
	stateFallback
	stateDone
	stateFailed
)

// modelResponse is the JSON contract the model is asked to honor.
type modelResponse struct {
	SQL         string `json:"sql"`
	Alternativa string `json:"alternativa"`
	Explicacion string `json:"explicacion"`
}

// Result is the outcome of a generation run. SQLError is set when every
// attempt (including the alternativa fallback) failed to execute; the
// orchestrator still produces a narrative in that case.
type Result struct {
	Rows        []Row
	ExecutedSQL string
	Attempts    int
	Suggestions []string
	SQLError    string
}

// Generator runs the generate-validate-execute loop against the tenant
// datasource.
type Generator struct {
	llm         llm.Client
	db          *sql.DB
	logger      *zap.Logger
	maxAttempts int
	temperature float64
}

// NewGenerator creates a generator. maxAttempts below 1 is raised to 3.
func NewGenerator(client llm.Client, db *sql.DB, maxAttempts int, temperature float64, logger *zap.Logger) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		llm:         client,
		db:          db,
		logger:      logger.Named("sqlgen"),
		maxAttempts: maxAttempts,
		temperature: temperature,
	}
}

// Generate answers a question with data. Each attempt asks the model for a
// statement, validates it, and executes it. Empty results trigger a fuzzy
// place-name search whose hits seed the next prompt; an execution error on
// the final attempt falls back once to the model's alternativa statement.
// The returned error is reserved for model-transport failures; SQL-level
// failures terminate in Result.SQLError.
func (g *Generator) Generate(ctx context.Context, desc *schema.Descriptor, question string) (*Result, error) {
	result := &Result{}
	var resp modelResponse
	var execErr error

	st := stateGenerating
	for st != stateDone && st != stateFailed {
		switch st {
		case stateGenerating:
			result.Attempts++
			prompt := BuildSQLPrompt(desc, question, result.Attempts, result.Suggestions)

			raw, err := g.llm.GenerateResponse(ctx, prompt, sqlSystemMessage, g.temperature)
			if err != nil {
				return nil, fmt.Errorf("sql generation attempt %d: %w", result.Attempts, err)
			}

			parsed, err := llm.ParseJSONResponse[modelResponse](raw)
			if err != nil {
				g.logger.Warn("model response was not valid JSON",
					zap.Int("attempt", result.Attempts),
					zap.String("response", logging.TruncateString(raw, 200)))
				if result.Attempts >= g.maxAttempts {
					st = stateFailed
				}
				continue
			}
			resp = parsed

			if resp.SQL == "" {
				// The model declined to produce a statement.
				st = stateFailed
				continue
			}
			st = stateValidating

		case stateValidating:
			if err := Validate(resp.SQL); err != nil {
				g.logger.Warn("generated statement rejected",
					zap.Int("attempt", result.Attempts),
					zap.String("statement", logging.SanitizeQuery(resp.SQL)),
					zap.Error(err))
				execErr = err
				if result.Attempts >= g.maxAttempts {
					st = stateFallback
				} else {
					st = stateGenerating
				}
				continue
			}
			st = stateExecuting

		case stateExecuting:
			stmt := expandVirtualRefs(resp.SQL, desc)
			rows, err := queryRows(ctx, g.db, stmt)
			if err != nil {
				g.logger.Warn("generated statement failed",
					zap.Int("attempt", result.Attempts),
					zap.String("statement", logging.SanitizeQuery(stmt)),
					zap.Error(err))
				execErr = err
				if result.Attempts >= g.maxAttempts {
					st = stateFallback
				} else {
					st = stateGenerating
				}
				continue
			}

			if len(rows) == 0 && result.Attempts < g.maxAttempts {
				st = stateSuggesting
				continue
			}

			result.Rows = rows
			result.ExecutedSQL = stmt
			st = stateDone

		case stateSuggesting:
			result.Suggestions = SearchSuggestions(ctx, g.db, desc, question)
			if len(result.Suggestions) > 0 {
				g.logger.Debug("seeding retry with place suggestions",
					zap.Strings("suggestions", result.Suggestions))
			}
			st = stateGenerating

		case stateFallback:
			if resp.Alternativa == "" {
				st = stateFailed
				continue
			}
			if err := Validate(resp.Alternativa); err != nil {
				st = stateFailed
				continue
			}
			stmt := expandVirtualRefs(resp.Alternativa, desc)
			rows, err := queryRows(ctx, g.db, stmt)
			if err != nil {
				g.logger.Warn("alternativa statement also failed",
					zap.String("statement", logging.SanitizeQuery(stmt)),
					zap.Error(err))
				st = stateFailed
				continue
			}
			result.Rows = rows
			result.ExecutedSQL = stmt
			st = stateDone
		}
	}

	if st == stateFailed && execErr != nil {
		result.SQLError = execErr.Error()
	}

	// Last-chance suggestions: a run that produced no rows still gets
	// place-name hints into the narrative. This also covers a final attempt
	// that executed cleanly but found nothing after earlier attempts erred.
	if len(result.Rows) == 0 && len(result.Suggestions) == 0 {
		result.Suggestions = SearchSuggestions(ctx, g.db, desc, question)
	}

	generationAttempts.Observe(float64(result.Attempts))
	if st == stateFailed {
		generationFailures.Inc()
	}
	return result, nil
}

// expandVirtualRefs inlines the backing subquery of virtual tables wherever
// a statement names them after FROM or JOIN. The prompt already asks the
// model to inline virtual_sql itself; statements that name the table anyway
// still execute.
func expandVirtualRefs(stmt string, desc *schema.Descriptor) string {
	for i := range desc.Tables {
		t := &desc.Tables[i]
		if !t.IsVirtual || t.VirtualSQL == "" {
			continue
		}
		ref := schema.TableRef{Name: t.Name, VirtualSQL: t.VirtualSQL}
		from := strings.ReplaceAll(ref.FromClause(), "$", "$$")
		pattern := regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+` + "`?" + regexp.QuoteMeta(t.Name) + "`?")
		stmt = pattern.ReplaceAllString(stmt, "${1} "+from)
	}
	return stmt
}
