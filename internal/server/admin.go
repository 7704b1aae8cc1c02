package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/copycats/copycat-api/internal/db/repository"
	"github.com/copycats/copycat-api/internal/maintenance"
	httperrors "github.com/copycats/copycat-api/pkg/http/errors"
)

// ExplanationCleaner runs the explanation cleanup job.
type ExplanationCleaner interface {
	CleanupExplanations(ctx context.Context) (maintenance.Report, error)
}

// GenerationLister reads the generation log.
type GenerationLister interface {
	ListRecent(ctx context.Context, limit int) ([]repository.Generation, error)
}

// AdminHandler serves the operator endpoints. Both dependencies are optional.
type AdminHandler struct {
	cleaner     ExplanationCleaner
	generations GenerationLister
	logger      zerolog.Logger
}

func NewAdminHandler(cleaner ExplanationCleaner, generations GenerationLister, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		cleaner:     cleaner,
		generations: generations,
		logger:      logger.With().Str("component", "admin_http").Logger(),
	}
}

// HandleCleanupExplanations serves POST /v1/admin/cleanup-explanations.
func (h *AdminHandler) HandleCleanupExplanations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	if h.cleaner == nil {
		httperrors.RespondError(w, http.StatusServiceUnavailable, "Maintenance is not configured")
		return
	}
	report, err := h.cleaner.CleanupExplanations(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("cleanup explanations failed")
		httperrors.RespondErrorWithDetails(w, http.StatusInternalServerError, "Failed to clean up explanations", err.Error())
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, report)
}

// HandleGenerations serves GET /v1/admin/generations.
func (h *AdminHandler) HandleGenerations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}
	if h.generations == nil {
		httperrors.RespondError(w, http.StatusServiceUnavailable, "Generation log is not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httperrors.RespondBadRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}
	rows, err := h.generations.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list generations failed")
		httperrors.RespondInternalError(w, "Failed to list generations")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]any{"generations": rows})
}
