// Package segment groups a tenant's customers into RFM segments over their
// trailing twelve months of purchases.
package segment

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/datacue/datacue-engine/pkg/apperrors"
	"github.com/datacue/datacue-engine/pkg/schema"
	"github.com/datacue/datacue-engine/pkg/stats"
)

// Segment names. The chatbot surfaces these verbatim, so they stay in the
// tenant-facing language.
const (
	SegmentCampeones   = "Campeones"
	SegmentLeales      = "Leales"
	SegmentPotenciales = "Potenciales"
	SegmentEnRiesgo    = "En Riesgo"
	SegmentPerdidos    = "Perdidos"
	SegmentOtros       = "Otros"
)

// maxListedCustomers bounds the per-customer detail in a response. The
// per-segment summary still covers everyone.
const maxListedCustomers = 50

// Customer is one scored customer.
type Customer struct {
	Cliente   string  `json:"cliente"`
	Recency   int     `json:"recency"`
	Frequency int     `json:"frequency"`
	Monetary  float64 `json:"monetary"`
	RScore    int     `json:"r_score"`
	FScore    int     `json:"f_score"`
	MScore    int     `json:"m_score"`
	Segment   string  `json:"segmento"`
}

// Summary aggregates one segment.
type Summary struct {
	Count         int     `json:"count"`
	TotalMonetary float64 `json:"total_monetary"`
}

// Result is the full segmentation outcome.
type Result struct {
	TotalCustomers int                `json:"total_clientes"`
	Segments       map[string]Summary `json:"segmentos"`
	Customers      []Customer         `json:"clientes"`
}

// Segmenter computes RFM segments against the tenant datasource.
type Segmenter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSegmenter creates a segmenter.
func NewSegmenter(db *sql.DB, logger *zap.Logger) *Segmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Segmenter{db: db, logger: logger.Named("segment")}
}

// SegmentRFM scores every customer with purchases in the trailing twelve
// months on recency, frequency, and monetary value, then assigns segments
// from the fixed decision table. Requires the venta, fecha, and cliente
// business terms to be bound.
func (s *Segmenter) SegmentRFM(ctx context.Context, desc *schema.Descriptor) (*Result, error) {
	ventaCol := desc.BusinessTerms[schema.TermVenta]
	fechaCol := desc.BusinessTerms[schema.TermFecha]
	clienteCol := desc.BusinessTerms[schema.TermCliente]
	if ventaCol == "" || fechaCol == "" || clienteCol == "" {
		return nil, fmt.Errorf("%w: RFM needs venta, fecha, and cliente columns", apperrors.ErrMissingBusinessTerm)
	}

	customers, err := s.fetchRFM(ctx, desc, ventaCol, fechaCol, clienteCol)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, fmt.Errorf("%w: no purchases in the trailing 12 months", apperrors.ErrInsufficientData)
	}

	recencies := make([]float64, len(customers))
	frequencies := make([]float64, len(customers))
	monetaries := make([]float64, len(customers))
	for i, c := range customers {
		recencies[i] = float64(c.Recency)
		frequencies[i] = float64(c.Frequency)
		monetaries[i] = c.Monetary
	}

	r33, r67 := stats.Quantile(recencies, 0.33), stats.Quantile(recencies, 0.67)
	f33, f67 := stats.Quantile(frequencies, 0.33), stats.Quantile(frequencies, 0.67)
	m33, m67 := stats.Quantile(monetaries, 0.33), stats.Quantile(monetaries, 0.67)

	segments := make(map[string]Summary)
	for i := range customers {
		c := &customers[i]

		// Low recency is good: the score direction is inverted.
		switch {
		case float64(c.Recency) <= r33:
			c.RScore = 3
		case float64(c.Recency) <= r67:
			c.RScore = 2
		default:
			c.RScore = 1
		}
		switch {
		case float64(c.Frequency) >= f67:
			c.FScore = 3
		case float64(c.Frequency) >= f33:
			c.FScore = 2
		default:
			c.FScore = 1
		}
		switch {
		case c.Monetary >= m67:
			c.MScore = 3
		case c.Monetary >= m33:
			c.MScore = 2
		default:
			c.MScore = 1
		}

		c.Segment = classify(c.RScore, c.FScore, c.MScore)
		c.Monetary = math.Round(c.Monetary)

		summary := segments[c.Segment]
		summary.Count++
		summary.TotalMonetary += c.Monetary
		segments[c.Segment] = summary
	}

	listed := customers
	if len(listed) > maxListedCustomers {
		listed = listed[:maxListedCustomers]
	}

	return &Result{
		TotalCustomers: len(customers),
		Segments:       segments,
		Customers:      listed,
	}, nil
}

// classify applies the decision table. The branches are order-sensitive:
// earlier rules shadow later ones for overlapping score combinations.
func classify(r, f, m int) string {
	switch {
	case r == 3 && f == 3 && m == 3:
		return SegmentCampeones
	case r >= 2 && f >= 2 && m >= 2:
		return SegmentLeales
	case r >= 2 && f <= 2 && m >= 2:
		return SegmentPotenciales
	case r <= 2 && f >= 2:
		return SegmentEnRiesgo
	case r == 1:
		return SegmentPerdidos
	default:
		return SegmentOtros
	}
}

func (s *Segmenter) fetchRFM(ctx context.Context, desc *schema.Descriptor, ventaCol, fechaCol, clienteCol string) ([]Customer, error) {
	ref := desc.MainTableRef()

	query := fmt.Sprintf(`SELECT %s AS cliente, DATEDIFF(CURDATE(), MAX(%s)) AS recency, COUNT(DISTINCT %s) AS frequency, SUM(%s) AS monetary FROM %s WHERE %s >= DATE_SUB(CURDATE(), INTERVAL 12 MONTH) GROUP BY %s HAVING monetary > 0`,
		schema.QuoteIdent(clienteCol), schema.QuoteIdent(fechaCol), schema.QuoteIdent(fechaCol),
		schema.QuoteIdent(ventaCol), ref.FromClause(), schema.QuoteIdent(fechaCol), schema.QuoteIdent(clienteCol))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rfm aggregates: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.Cliente, &c.Recency, &c.Frequency, &c.Monetary); err != nil {
			return nil, fmt.Errorf("scan rfm row: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rfm rows: %w", err)
	}
	return customers, nil
}
