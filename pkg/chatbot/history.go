package chatbot

import (
	"context"
	"fmt"
	"time"

	"github.com/datacue/datacue-engine/pkg/database"
)

// HistoryEntry is one stored question/answer pair.
type HistoryEntry struct {
	Question  string    `json:"pregunta"`
	Answer    string    `json:"respuesta"`
	CreatedAt time.Time `json:"fecha"`
}

// HistoryStore persists the conversation log.
type HistoryStore interface {
	Append(ctx context.Context, tenantID, userID, question, answer string) error
	Recent(ctx context.Context, tenantID, userID string, limit int) ([]HistoryEntry, error)
}

// PostgresHistoryStore keeps chat history in the engine database.
type PostgresHistoryStore struct {
	db *database.EngineDB
}

// NewPostgresHistoryStore creates a history store on the engine pool.
func NewPostgresHistoryStore(db *database.EngineDB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

// Append records one exchange.
func (s *PostgresHistoryStore) Append(ctx context.Context, tenantID, userID, question, answer string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO chat_history (tenant_id, user_id, question, answer)
		VALUES ($1, $2, $3, $4)`,
		tenantID, userID, question, answer)
	if err != nil {
		return fmt.Errorf("insert chat history: %w", err)
	}
	return nil
}

// Recent returns the user's last exchanges, oldest first.
func (s *PostgresHistoryStore) Recent(ctx context.Context, tenantID, userID string, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT question, answer, created_at FROM (
			SELECT question, answer, created_at
			FROM chat_history
			WHERE tenant_id = $1 AND user_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		) latest
		ORDER BY created_at ASC`,
		tenantID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Question, &e.Answer, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
