package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univ-exams/exam-planner-api/internal/service"
	"github.com/univ-exams/exam-planner-api/pkg/response"
)

// SupervisorHandler exposes supervisor assignment endpoints.
type SupervisorHandler struct {
	supervisors *service.SupervisorService
}

// NewSupervisorHandler constructs SupervisorHandler.
func NewSupervisorHandler(supervisors *service.SupervisorService) *SupervisorHandler {
	return &SupervisorHandler{supervisors: supervisors}
}

// Assign godoc
// @Summary Staff every scheduled exam of the session with supervisors
// @Tags Supervisors
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/supervisors [post]
func (h *SupervisorHandler) Assign(c *gin.Context) {
	result, err := h.supervisors.Assign(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
