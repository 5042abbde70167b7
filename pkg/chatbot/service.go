// Package chatbot orchestrates the question pipeline: input guards, intent
// routing, the SQL generation loop, the statistical engines, and the final
// business narrative.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datacue/datacue-engine/pkg/apperrors"
	"github.com/datacue/datacue-engine/pkg/forecast"
	"github.com/datacue/datacue-engine/pkg/intent"
	"github.com/datacue/datacue-engine/pkg/llm"
	"github.com/datacue/datacue-engine/pkg/logging"
	"github.com/datacue/datacue-engine/pkg/querycache"
	"github.com/datacue/datacue-engine/pkg/schema"
	"github.com/datacue/datacue-engine/pkg/segment"
	"github.com/datacue/datacue-engine/pkg/sqlgen"
)

// Response is the answer envelope returned for every question. Field names
// stay in Spanish on the wire; the frontend renders them verbatim.
type Response struct {
	Success     bool                            `json:"success"`
	Explanation string                          `json:"explicacion"`
	Results     []sqlgen.Row                    `json:"resultados"`
	Metrics     map[string]sqlgen.ColumnMetrics `json:"metricas"`
	Suggestions []string                        `json:"sugerencias"`
	Attempts    int                             `json:"intentos"`
	ExecutedSQL string                          `json:"sql_ejecutado,omitempty"`
}

// SchemaProvider yields the tenant's schema descriptor.
type SchemaProvider interface {
	Get(ctx context.Context, tenantID string) (*schema.Descriptor, error)
}

// SQLGenerator runs the generation loop.
type SQLGenerator interface {
	Generate(ctx context.Context, desc *schema.Descriptor, question string) (*sqlgen.Result, error)
}

// Forecaster predicts future sales.
type Forecaster interface {
	Predict(ctx context.Context, tenantID string, desc *schema.Descriptor, params forecast.Params) (*forecast.Result, error)
}

// RFMSegmenter groups customers.
type RFMSegmenter interface {
	SegmentRFM(ctx context.Context, desc *schema.Descriptor) (*segment.Result, error)
}

// Config bounds the service's inputs.
type Config struct {
	MaxQuestionLength int
	HistoryLimit      int
	Temperature       float64
}

// Service is the chatbot orchestrator.
type Service struct {
	schemas    SchemaProvider
	queries    *querycache.Cache
	generator  SQLGenerator
	forecaster Forecaster
	segmenter  RFMSegmenter
	llm        llm.Client
	history    HistoryStore
	cfg        Config
	logger     *zap.Logger
}

// New creates the chatbot service. history may be nil when persistence is
// disabled.
func New(schemas SchemaProvider, queries *querycache.Cache, generator SQLGenerator,
	forecaster Forecaster, segmenter RFMSegmenter, client llm.Client,
	history HistoryStore, cfg Config, logger *zap.Logger) *Service {

	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = 500
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		schemas:    schemas,
		queries:    queries,
		generator:  generator,
		forecaster: forecaster,
		segmenter:  segmenter,
		llm:        client,
		history:    history,
		cfg:        cfg,
		logger:     logger.Named("chatbot"),
	}
}

// Ask answers one question. Rejections surface as
// apperrors.ErrQuestionRejected; any other returned error has already been
// logged with full detail and should reach the caller as a generic message.
func (s *Service) Ask(ctx context.Context, tenantID, userID, question string) (*Response, error) {
	question = strings.TrimSpace(question)
	log := s.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("tenant_id", tenantID),
		zap.String("question", logging.SanitizeQuestion(question)))

	if err := validateQuestion(question, s.cfg.MaxQuestionLength); err != nil {
		log.Warn("question rejected", zap.Error(err))
		return nil, err
	}

	detected := intent.Detect(question)
	log.Info("question accepted", zap.String("intent", string(detected)))

	var resp *Response
	var err error
	switch detected {
	case intent.IntentPrediction:
		resp, err = s.askForecast(ctx, tenantID, question, detected)
	case intent.IntentSegmentation:
		resp, err = s.askSegmentation(ctx, tenantID)
	default:
		// churn has no dedicated engine and rides the SQL path.
		resp, err = s.askSQL(ctx, tenantID, question, log)
	}
	if err != nil {
		log.Error("question processing failed", zap.Error(err))
		return nil, err
	}

	s.appendHistory(ctx, tenantID, userID, question, resp.Explanation, log)
	return resp, nil
}

// History returns the user's recent exchanges.
func (s *Service) History(ctx context.Context, tenantID, userID string) ([]HistoryEntry, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(ctx, tenantID, userID, s.cfg.HistoryLimit)
}

func (s *Service) askSQL(ctx context.Context, tenantID, question string, log *zap.Logger) (*Response, error) {
	if cached, ok := s.queries.Get(tenantID, question); ok {
		if resp, ok := cached.(*Response); ok {
			log.Debug("served from query cache")
			return resp, nil
		}
	}

	desc, err := s.schemas.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	result, err := s.generator.Generate(ctx, desc, question)
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}

	metrics := sqlgen.ComputeMetrics(result.Rows)

	rows := result.Rows
	if len(rows) == 0 && result.SQLError != "" {
		// A terminal SQL failure still reaches the narrative step: the
		// error text rides as the data the model explains.
		rows = []sqlgen.Row{{"error_sql": result.SQLError}}
	}

	prompt := sqlgen.BuildAnalysisPrompt(question, rows, metrics, result.Suggestions)
	explanation, err := s.llm.GenerateResponse(ctx, prompt, analysisSystem, s.cfg.Temperature)
	if err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	resp := &Response{
		Success:     true,
		Explanation: strings.TrimSpace(explanation),
		Results:     rows,
		Metrics:     metrics,
		Suggestions: result.Suggestions,
		Attempts:    result.Attempts,
		ExecutedSQL: result.ExecutedSQL,
	}

	if result.ExecutedSQL != "" {
		s.queries.Set(tenantID, question, resp, result.ExecutedSQL)
	}
	return resp, nil
}

func (s *Service) askForecast(ctx context.Context, tenantID, question string, detected intent.Intent) (*Response, error) {
	desc, err := s.schemas.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	params := intent.ExtractParams(question, detected)
	result, err := s.forecaster.Predict(ctx, tenantID, desc, forecast.Params{
		Product:       params.Product,
		HorizonMonths: params.HorizonMonths,
	})
	if err != nil {
		if friendly := friendlyAnalyticsError(err); friendly != "" {
			return &Response{Success: false, Explanation: friendly}, nil
		}
		return nil, fmt.Errorf("forecast: %w", err)
	}

	explanation := fmt.Sprintf(
		"Según la tendencia de los últimos %d meses, la proyección de ventas es de %.0f "+
			"(entre %.0f y %.0f, confianza del %.0f%%).",
		result.Periods, result.Prediction, result.IntervalMin, result.IntervalMax,
		result.Confidence*100)
	if params.Product != "" {
		explanation = fmt.Sprintf("Para %q: %s", params.Product, explanation)
	}

	return &Response{
		Success:     true,
		Explanation: explanation,
		Results: []sqlgen.Row{{
			"prediccion":       result.Prediction,
			"intervalo_min":    result.IntervalMin,
			"intervalo_max":    result.IntervalMax,
			"confianza":        result.Confidence,
			"datos_historicos": result.Periods,
			"modelo":           result.Model,
		}},
		Attempts: 1,
	}, nil
}

// segmentOrder fixes the reporting order of RFM groups.
var segmentOrder = []string{
	segment.SegmentCampeones, segment.SegmentLeales, segment.SegmentPotenciales,
	segment.SegmentEnRiesgo, segment.SegmentPerdidos, segment.SegmentOtros,
}

func (s *Service) askSegmentation(ctx context.Context, tenantID string) (*Response, error) {
	desc, err := s.schemas.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	result, err := s.segmenter.SegmentRFM(ctx, desc)
	if err != nil {
		if friendly := friendlyAnalyticsError(err); friendly != "" {
			return &Response{Success: false, Explanation: friendly}, nil
		}
		return nil, fmt.Errorf("segmentation: %w", err)
	}

	var parts []string
	for _, name := range segmentOrder {
		if summary, ok := result.Segments[name]; ok {
			parts = append(parts, fmt.Sprintf("%s: %d clientes (%.0f en compras)",
				name, summary.Count, summary.TotalMonetary))
		}
	}
	explanation := fmt.Sprintf("Se analizaron %d clientes de los últimos 12 meses. %s.",
		result.TotalCustomers, strings.Join(parts, "; "))

	rows := make([]sqlgen.Row, 0, len(result.Customers))
	for _, c := range result.Customers {
		rows = append(rows, sqlgen.Row{
			"cliente":   c.Cliente,
			"recency":   c.Recency,
			"frequency": c.Frequency,
			"monetary":  c.Monetary,
			"segmento":  c.Segment,
		})
	}

	return &Response{
		Success:     true,
		Explanation: explanation,
		Results:     rows,
		Attempts:    1,
	}, nil
}

// friendlyAnalyticsError maps expected analytics failures to tenant-facing
// prose. Unexpected errors return "" and bubble up as internal failures.
func friendlyAnalyticsError(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInsufficientData):
		return "No hay suficientes datos históricos para responder esa pregunta. " +
			"Se necesitan al menos 3 meses de ventas registradas."
	case errors.Is(err, apperrors.ErrMissingBusinessTerm):
		return "Los datos disponibles no incluyen las columnas necesarias para este análisis."
	default:
		return ""
	}
}

func (s *Service) appendHistory(ctx context.Context, tenantID, userID, question, answer string, log *zap.Logger) {
	if s.history == nil || userID == "" {
		return
	}
	if err := s.history.Append(ctx, tenantID, userID, question, answer); err != nil {
		// History is best-effort; the answer already exists.
		log.Warn("failed to persist chat history", zap.Error(err))
	}
}

// analysisSystem frames the narrative generation call.
const analysisSystem = "Eres un asistente de ventas profesional. " +
	"Explicas resultados de datos comerciales en lenguaje natural, sin jerga técnica."
