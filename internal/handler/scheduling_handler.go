package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/univ-exams/exam-planner-api/internal/service"
	"github.com/univ-exams/exam-planner-api/pkg/response"
)

// SchedulingHandler exposes the scheduling engine endpoints.
type SchedulingHandler struct {
	scheduler *service.SchedulerService
}

// NewSchedulingHandler constructs SchedulingHandler.
func NewSchedulingHandler(scheduler *service.SchedulerService) *SchedulingHandler {
	return &SchedulingHandler{scheduler: scheduler}
}

// PrepareSession godoc
// @Summary Create pending exams for every active module of the session's year
// @Tags Scheduling
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/prepare [post]
func (h *SchedulingHandler) PrepareSession(c *gin.Context) {
	result, err := h.scheduler.PrepareSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AutoSchedule godoc
// @Summary Place every pending exam of the session
// @Tags Scheduling
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/schedule [post]
func (h *SchedulingHandler) AutoSchedule(c *gin.Context) {
	result, err := h.scheduler.AutoSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AvailableSlots godoc
// @Summary Preview scored feasible slots for one exam
// @Tags Scheduling
// @Produce json
// @Param id path string true "Exam ID"
// @Param limit query int false "Max slots returned" default(20)
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exams/{id}/available-slots [get]
func (h *SchedulingHandler) AvailableSlots(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	slots, err := h.scheduler.AvailableSlots(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// ClearSchedule godoc
// @Summary Reset the session's exams to pending and drop assignments
// @Tags Scheduling
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/schedule [delete]
func (h *SchedulingHandler) ClearSchedule(c *gin.Context) {
	result, err := h.scheduler.ClearSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
