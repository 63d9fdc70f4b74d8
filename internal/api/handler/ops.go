// Package handler provides HTTP handlers for the dispatcher's ops and admin
// API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/alertgrid/alertgrid/internal/api/models"
	"github.com/alertgrid/alertgrid/internal/api/response"
)

// DispatchStatus is the slice of the orchestrator the API reads and toggles.
type DispatchStatus interface {
	MetricsSnapshot() map[string]interface{}
	DuplicateDetectionEnabled() bool
	SetDuplicateDetection(enabled bool)
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	dispatch  DispatchStatus
	// ready reports whether downstream dependencies are reachable.
	// Typically a database ping.
	ready func(ctx context.Context) error
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, dispatch DispatchStatus, ready func(ctx context.Context) error) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		dispatch:  dispatch,
		ready:     ready,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			response.ServiceUnavailable(w, r, "message store unreachable")
			return
		}
	}
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - dispatch counters and subsystem
// health.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())

	storeStatus := models.HealthStatusOK
	overall := models.HealthStatusOK
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			storeStatus = models.HealthStatusFail
			overall = models.HealthStatusDegraded
		}
	}

	status := models.SystemStatus{
		Status: overall,
		Time:   now,
		Subsystems: []models.SubsystemStatus{
			{Name: "message-store", Status: storeStatus},
		},
		Dispatch:                  h.dispatch.MetricsSnapshot(),
		DuplicateDetectionEnabled: h.dispatch.DuplicateDetectionEnabled(),
	}
	response.JSON(w, r, http.StatusOK, status)
}
