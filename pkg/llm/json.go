package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON indicates the model response contained no parseable JSON. The
// generation loop treats this as a retryable soft failure.
var ErrNoJSON = errors.New("no valid JSON found in response")

// codeFencePattern matches ```json / ``` markers the model may wrap its
// answer in.
var codeFencePattern = regexp.MustCompile("```(?:json)?")

// ExtractJSON extracts JSON content from an LLM response that may contain
// markdown code fences or surrounding prose. It first tries the stripped
// response verbatim, then salvages the first balanced JSON object or array.
func ExtractJSON(response string) (string, error) {
	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(response, ""))

	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if jsonStr, ok := extractBalancedJSON(cleaned, '{', '}'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	if arrStart >= 0 {
		if jsonStr, ok := extractBalancedJSON(cleaned, '[', ']'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	return "", ErrNoJSON
}

// extractBalancedJSON finds the first balanced JSON structure starting with
// openChar. It handles nested structures by counting bracket depth.
func extractBalancedJSON(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the
// target type. Parse errors never escape as panics; callers get ErrNoJSON or
// a wrapped unmarshal error.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
