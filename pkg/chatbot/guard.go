package chatbot

import (
	"fmt"
	"regexp"

	"github.com/corazawaf/libinjection-go"

	"github.com/datacue/datacue-engine/pkg/apperrors"
)

// suspiciousPatterns rejects prompt-injection and SQL-smuggling attempts
// before the question reaches a model or the datasource.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignora\s+(las\s+)?instrucciones`),
	regexp.MustCompile(`(?i)olvida\s+(las\s+)?reglas`),
	regexp.MustCompile(`(?i)genera\s+este\s+sql`),
	regexp.MustCompile(`(?i)ejecuta\s+este\s+select`),
	regexp.MustCompile(`(?i)information_schema`),
	regexp.MustCompile(`(?i)mysql\.user`),
	regexp.MustCompile(`--\s*$`),
	regexp.MustCompile(`(?i);\s*select`),
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)into\s+outfile`),
	regexp.MustCompile(`(?i)load_file`),
}

// validateQuestion applies the input guards. Rejections wrap
// apperrors.ErrQuestionRejected; nothing else in the pipeline runs after a
// rejection.
func validateQuestion(question string, maxLen int) error {
	if question == "" {
		return fmt.Errorf("%w: empty question", apperrors.ErrQuestionRejected)
	}
	if len([]rune(question)) > maxLen {
		return fmt.Errorf("%w: question exceeds %d characters", apperrors.ErrQuestionRejected, maxLen)
	}
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(question) {
			return fmt.Errorf("%w: contains disallowed terms", apperrors.ErrQuestionRejected)
		}
	}
	if isSQLi, _ := libinjection.IsSQLi(question); isSQLi {
		return fmt.Errorf("%w: looks like SQL injection", apperrors.ErrQuestionRejected)
	}
	return nil
}
