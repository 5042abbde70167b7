package sqlgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/datacue/datacue-engine/pkg/schema"
)

// sqlSystemMessage frames the generation call. Prompts stay in Spanish: the
// tenant base asks questions in Spanish and the model's SQL quality is
// noticeably better when the instruction language matches.
const sqlSystemMessage = "Eres un experto en MySQL especializado en análisis de ventas. " +
	"Conviertes preguntas en español a consultas MySQL correctas y respondes únicamente con JSON."

// BuildSQLPrompt assembles the generation prompt. From the second attempt
// on, place-name suggestions from the fuzzy search are appended so the model
// can correct a misspelled or mismatched filter value.
func BuildSQLPrompt(desc *schema.Descriptor, question string, attempt int, suggestions []string) string {
	schemaJSON, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		schemaJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("# CONTEXTO Y ROL\n")
	b.WriteString("Eres un experto en MySQL especializado en análisis de ventas.\n")
	b.WriteString("Tu misión: convertir preguntas en español a consultas MySQL perfectas.\n\n")

	b.WriteString("## ESQUEMA DE BASE DE DATOS\n")
	b.Write(schemaJSON)
	b.WriteString("\n\n")

	b.WriteString("## REGLAS\n")
	b.WriteString("1. Usa backticks (`) para nombres de tablas y columnas.\n")
	b.WriteString("2. Usa LIMIT N para limitar resultados (no TOP).\n")
	b.WriteString("3. MySQL es case-insensitive por defecto.\n")
	b.WriteString("4. Las tablas virtuales deben consultarse con su virtual_sql como subquery.\n")
	b.WriteString("5. Genera solo consultas de lectura (SELECT o WITH).\n\n")

	b.WriteString("## PREGUNTA DEL USUARIO\n")
	fmt.Fprintf(&b, "%q\n\n", question)

	if attempt > 1 && len(suggestions) > 0 {
		fmt.Fprintf(&b, "Sugerencias de lugares existentes en los datos: %s\n\n", strings.Join(suggestions, ", "))
	}

	b.WriteString("## RESPUESTA REQUERIDA (JSON)\n")
	b.WriteString("{\n")
	b.WriteString("  \"sql\": \"SELECT ...\",\n")
	b.WriteString("  \"alternativa\": \"SELECT ... (consulta más simple por si la principal falla)\",\n")
	b.WriteString("  \"explicacion\": \"...\"\n")
	b.WriteString("}\n")
	return b.String()
}

// maxRowsInPrompt bounds how many result rows are embedded in the analysis
// prompt.
const maxRowsInPrompt = 10

// BuildAnalysisPrompt assembles the business-narrative prompt over the
// executed query's rows and metrics.
func BuildAnalysisPrompt(question string, rows []Row, metrics map[string]ColumnMetrics, suggestions []string) string {
	sample := rows
	if len(sample) > maxRowsInPrompt {
		sample = sample[:maxRowsInPrompt]
	}
	if sample == nil {
		sample = []Row{}
	}
	rowsJSON, err := json.Marshal(sample)
	if err != nil {
		rowsJSON = []byte("[]")
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		metricsJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("# TU ROL\n")
	b.WriteString("Eres un asistente de ventas profesional. Analiza los datos comerciales.\n\n")

	b.WriteString("## CONTEXTO\n")
	fmt.Fprintf(&b, "PREGUNTA: %q\n", question)
	fmt.Fprintf(&b, "DATOS: %s\n", rowsJSON)
	fmt.Fprintf(&b, "METRICAS: %s\n", metricsJSON)
	if len(suggestions) > 0 {
		fmt.Fprintf(&b, "LUGARES SIMILARES ENCONTRADOS: %s\n", strings.Join(suggestions, ", "))
	}
	b.WriteString("\n## INSTRUCCIONES\n")
	b.WriteString("1. Tono amigable y profesional.\n")
	b.WriteString("2. Resumen ejecutivo, análisis detallado e insights proactivos.\n")
	b.WriteString("3. Si no hay datos, ofrece disculpas y alternativas.\n")
	b.WriteString("4. NO uses jerga técnica (SQL, query).\n\n")
	b.WriteString("Genera la respuesta en texto natural.\n")
	return b.String()
}
