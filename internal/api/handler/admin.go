package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/alertgrid/alertgrid/internal/api/middleware"
	"github.com/alertgrid/alertgrid/internal/api/models"
	"github.com/alertgrid/alertgrid/internal/api/response"
)

// SettingsInvalidator drops cached dispatch settings.
type SettingsInvalidator interface {
	Invalidate()
}

// AdminHandler handles internal admin operations.
type AdminHandler struct {
	dispatch DispatchStatus
	settings SettingsInvalidator
	logger   zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(dispatch DispatchStatus, settings SettingsInvalidator, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		dispatch: dispatch,
		settings: settings,
		logger:   logger,
	}
}

// GetDuplicateDetection handles GET /v1/admin/duplicate-detection.
func (h *AdminHandler) GetDuplicateDetection(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.DuplicateDetectionResponse{
		Enabled: h.dispatch.DuplicateDetectionEnabled(),
	})
}

// SetDuplicateDetection handles PUT /v1/admin/duplicate-detection.
// Debug escape hatch; never disable detection in production traffic.
func (h *AdminHandler) SetDuplicateDetection(w http.ResponseWriter, r *http.Request) {
	var req models.DuplicateDetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if req.Enabled == nil {
		response.BadRequest(w, r, "enabled is required", []models.FieldError{
			{Field: "enabled", Message: "must be true or false", Code: "required"},
		})
		return
	}

	h.dispatch.SetDuplicateDetection(*req.Enabled)

	h.logger.Warn().
		Bool("enabled", *req.Enabled).
		Str("operator", middleware.GetOperator(r.Context()).Subject).
		Msg("duplicate detection toggled via admin API")

	response.JSON(w, r, http.StatusOK, models.DuplicateDetectionResponse{
		Enabled: h.dispatch.DuplicateDetectionEnabled(),
	})
}

// InvalidateSettings handles POST /v1/admin/settings/invalidate.
// Called when carrier dispatch settings change out of band.
func (h *AdminHandler) InvalidateSettings(w http.ResponseWriter, r *http.Request) {
	h.settings.Invalidate()

	h.logger.Info().
		Str("operator", middleware.GetOperator(r.Context()).Subject).
		Msg("dispatch settings cache invalidated via admin API")

	response.NoContent(w, r)
}
