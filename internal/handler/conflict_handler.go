package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univ-exams/exam-planner-api/internal/service"
	"github.com/univ-exams/exam-planner-api/pkg/response"
)

// ConflictHandler exposes schedule audit endpoints.
type ConflictHandler struct {
	conflicts *service.ConflictService
	stats     *service.StatsService
}

// NewConflictHandler constructs ConflictHandler.
func NewConflictHandler(conflicts *service.ConflictService, stats *service.StatsService) *ConflictHandler {
	return &ConflictHandler{conflicts: conflicts, stats: stats}
}

// Report godoc
// @Summary Audit the session's committed schedule for constraint violations
// @Tags Conflicts
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/conflicts [get]
func (h *ConflictHandler) Report(c *gin.Context) {
	report, err := h.conflicts.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Stats godoc
// @Summary Scheduling progress counters for a session
// @Tags Conflicts
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/stats [get]
func (h *ConflictHandler) Stats(c *gin.Context) {
	stats, err := h.stats.SessionStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
