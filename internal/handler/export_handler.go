package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/univ-exams/exam-planner-api/internal/service"
	"github.com/univ-exams/exam-planner-api/pkg/response"
)

// ExportHandler streams rendered timetables.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Timetable godoc
// @Summary Export the session timetable
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/export [get]
func (h *ExportHandler) Timetable(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.exports.Timetable(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+file.Filename)
	c.Data(200, file.ContentType, file.Data)
}
