package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/datacue/datacue-engine/pkg/apperrors"
	"github.com/datacue/datacue-engine/pkg/chatbot"
)

// Tenant and user identity arrive as headers set by the upstream gateway.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// ChatService is the orchestrator surface the handler needs.
type ChatService interface {
	Ask(ctx context.Context, tenantID, userID, question string) (*chatbot.Response, error)
	History(ctx context.Context, tenantID, userID string) ([]chatbot.HistoryEntry, error)
}

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Question string `json:"pregunta"`
}

// ChatHandler serves the conversational endpoints.
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// RegisterRoutes registers the chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Chat)
	mux.HandleFunc("GET /api/chat/history", h.History)
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(HeaderTenantID)
	if tenantID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-ID header is required")
		return
	}
	userID := r.Header.Get(HeaderUserID)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with a pregunta field")
		return
	}

	resp, err := h.service.Ask(r.Context(), tenantID, userID, req.Question)
	if err != nil {
		if errors.Is(err, apperrors.ErrQuestionRejected) {
			_ = ErrorResponse(w, http.StatusBadRequest, "question_rejected",
				"La pregunta contiene términos no permitidos o es demasiado larga")
			return
		}
		// Details were already logged by the service.
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error",
			"Ocurrió un error procesando tu consulta.")
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode chat response", zap.Error(err))
	}
}

// History handles GET /api/chat/history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(HeaderTenantID)
	userID := r.Header.Get(HeaderUserID)
	if tenantID == "" || userID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_identity", "X-Tenant-ID and X-User-ID headers are required")
		return
	}

	entries, err := h.service.History(r.Context(), tenantID, userID)
	if err != nil {
		h.logger.Error("Failed to load chat history",
			zap.String("tenant_id", tenantID), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Error al cargar historial")
		return
	}
	if entries == nil {
		entries = []chatbot.HistoryEntry{}
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"success": true, "history": entries}); err != nil {
		h.logger.Error("Failed to encode history response", zap.Error(err))
	}
}
