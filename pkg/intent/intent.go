// Package intent routes questions to statistical models or the SQL pipeline
// using ordered keyword rules.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent labels where a question should be handled.
type Intent string

const (
	IntentSQL          Intent = "sql"
	IntentPrediction   Intent = "prediction"
	IntentSegmentation Intent = "segmentation"
	// IntentChurn is classified but has no dedicated handler; the chatbot
	// routes it down the generic SQL path.
	IntentChurn Intent = "churn"
)

// Rule binds one intent to its keyword list. Rules are evaluated in order
// and the first list with a match wins; there is no scoring.
type Rule struct {
	Intent   Intent
	Keywords []string
}

// Rules is the fixed evaluation order: prediction, segmentation, churn,
// then the sql default. Keyword lists are bilingual.
var Rules = []Rule{
	{IntentPrediction, []string{
		"venderemos", "venderé", "proyecta", "proyección", "predice", "predicción",
		"estima", "estimación", "próximo", "futuro", "será", "pasará",
		"will sell", "forecast", "predict", "estimate", "next month", "next year",
	}},
	{IntentSegmentation, []string{
		"segmenta", "segmentación", "rfm", "clientes frecuentes", "mejores clientes",
		"segment", "segmentation", "best customers", "top customers",
	}},
	{IntentChurn, []string{
		"churn", "abandonar", "dejarán", "riesgo", "inactivos",
		"will leave", "at risk", "inactive",
	}},
}

// Detect classifies a question. Unmatched questions default to IntentSQL.
func Detect(question string) Intent {
	lower := strings.ToLower(question)
	for _, rule := range Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Intent
			}
		}
	}
	return IntentSQL
}

// Params carries parameters extracted from a non-sql question.
type Params struct {
	// HorizonMonths is how many months ahead a prediction question asks
	// about. Defaults to 1.
	HorizonMonths int
	// Product is an optional product-name fragment. The capture is
	// heuristic; nothing validates that it names a real product.
	Product string
}

var (
	horizonPattern = regexp.MustCompile(`(?i)(\d+)\s*(mes|meses|month|months)`)
	productPattern = regexp.MustCompile(`(?i)de\s+([a-záéíóúñ\s]+?)(?:\s+en|\s+para|$)`)
)

// ExtractParams pulls the forecast horizon and product fragment out of a
// prediction question. Other intents carry no parameters.
func ExtractParams(question string, detected Intent) Params {
	params := Params{HorizonMonths: 1}
	if detected != IntentPrediction {
		return params
	}

	if m := horizonPattern.FindStringSubmatch(question); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			params.HorizonMonths = n
		}
	}

	if m := productPattern.FindStringSubmatch(question); m != nil {
		params.Product = strings.TrimSpace(m[1])
	}

	return params
}
