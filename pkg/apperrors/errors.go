package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrQuestionRejected    = errors.New("question rejected")
	ErrInsufficientData    = errors.New("insufficient historical data")
	ErrMissingBusinessTerm = errors.New("required business term not resolved")
	ErrForbiddenStatement  = errors.New("statement contains a forbidden keyword")
	ErrNotSelect           = errors.New("only SELECT or WITH statements are allowed")
)
