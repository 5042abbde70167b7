package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/datacue/datacue-engine/pkg/querycache"
	"github.com/datacue/datacue-engine/pkg/schema"
	"github.com/datacue/datacue-engine/pkg/schemacache"
)

// SchemaCache is the admin surface of the schema cache.
type SchemaCache interface {
	Refresh(ctx context.Context, tenantID string) (*schema.Descriptor, error)
	Stats(ctx context.Context) (*schemacache.CacheStats, error)
}

// AdminHandler serves cache administration endpoints.
type AdminHandler struct {
	schemas SchemaCache
	queries *querycache.Cache
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(schemas SchemaCache, queries *querycache.Cache, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{schemas: schemas, queries: queries, logger: logger}
}

// RegisterRoutes registers the admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/admin/schema/refresh", h.RefreshSchema)
	mux.HandleFunc("GET /api/admin/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/admin/cache/invalidate", h.InvalidateQueryCache)
}

// RefreshSchema handles POST /api/admin/schema/refresh. A refreshed schema
// invalidates the tenant's cached answers too: they may cite stale columns.
func (h *AdminHandler) RefreshSchema(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(HeaderTenantID)
	if tenantID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-ID header is required")
		return
	}

	desc, err := h.schemas.Refresh(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("Schema refresh failed",
			zap.String("tenant_id", tenantID), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "refresh_failed", "schema refresh failed")
		return
	}

	removed := h.queries.Invalidate(tenantID)

	response := map[string]any{
		"success":                   true,
		"main_table":                desc.MainTable,
		"tables":                    len(desc.Tables),
		"query_entries_invalidated": removed,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode refresh response", zap.Error(err))
	}
}

// CacheStats handles GET /api/admin/cache/stats.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	schemaStats, err := h.schemas.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to read schema cache stats", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "stats_failed", "failed to read cache stats")
		return
	}

	response := map[string]any{
		"schema_cache": schemaStats,
		"query_cache":  h.queries.Stats(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode stats response", zap.Error(err))
	}
}

// InvalidateQueryCache handles POST /api/admin/cache/invalidate.
func (h *AdminHandler) InvalidateQueryCache(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(HeaderTenantID)
	if tenantID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-ID header is required")
		return
	}

	removed := h.queries.Invalidate(tenantID)
	if err := WriteJSON(w, http.StatusOK, map[string]any{"success": true, "removed": removed}); err != nil {
		h.logger.Error("Failed to encode invalidate response", zap.Error(err))
	}
}
