package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/univ-exams/exam-planner-api/internal/models"
	appErrors "github.com/univ-exams/exam-planner-api/pkg/errors"
	"github.com/univ-exams/exam-planner-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(t export.Timetable) ([]byte, error)
}

type pdfRenderer interface {
	Render(t export.Timetable) ([]byte, error)
}

// ExportFile is a rendered timetable ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a session's committed schedule as a CSV or PDF
// timetable, supervisors included.
type ExportService struct {
	sessions    sessionReader
	examDetails examDetailReader
	supervisors supervisorStore
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back
// to the package defaults.
func NewExportService(sessions sessionReader, examDetails examDetailReader, supervisors supervisorStore, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		sessions:    sessions,
		examDetails: examDetails,
		supervisors: supervisors,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
	}
}

// Timetable renders the session schedule in the requested format.
func (s *ExportService) Timetable(ctx context.Context, sessionID string, format ExportFormat) (*ExportFile, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	details, err := s.examDetails.ListDetailsBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exams")
	}
	supervisions, err := s.supervisors.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	timetable := buildTimetable(session, details, supervisions)

	var payload []byte
	var contentType, extension string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(timetable)
		contentType = "text/csv"
		extension = "csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(timetable)
		contentType = "application/pdf"
		extension = "pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	s.logger.Info("timetable exported",
		zap.String("session_id", sessionID),
		zap.String("format", string(format)),
		zap.Int("rows", len(timetable.Rows)),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("timetable-%s-%s.%s", slugify(session.Name), time.Now().UTC().Format("20060102"), extension),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func buildTimetable(session *models.Session, details []models.ExamDetail, supervisions []models.SupervisionDetail) export.Timetable {
	supervisorNames := make(map[string][]string)
	for _, detail := range supervisions {
		supervisorNames[detail.ExamID] = append(supervisorNames[detail.ExamID], detail.ProfessorName())
	}

	var scheduled []models.ExamDetail
	for _, detail := range details {
		if detail.Status != models.ExamStatusScheduled || detail.ScheduledDate == nil || detail.StartTime == nil {
			continue
		}
		scheduled = append(scheduled, detail)
	}
	sort.SliceStable(scheduled, func(i, j int) bool {
		a, b := scheduled[i], scheduled[j]
		if !a.ScheduledDate.Equal(*b.ScheduledDate) {
			return a.ScheduledDate.Before(*b.ScheduledDate)
		}
		if *a.StartTime != *b.StartTime {
			return *a.StartTime < *b.StartTime
		}
		return a.ModuleName < b.ModuleName
	})

	rows := make([][]string, 0, len(scheduled))
	for _, detail := range scheduled {
		rows = append(rows, []string{
			detail.ScheduledDate.Format("2006-01-02"),
			*detail.StartTime,
			detail.ModuleName,
			detail.RoomName,
			fmt.Sprintf("%d min", detail.DurationMinutes),
			fmt.Sprintf("%d", detail.ExpectedStudents),
			strings.Join(supervisorNames[detail.ID], ", "),
		})
	}

	return export.Timetable{
		Title:   session.Name + " exam timetable",
		Headers: []string{"Date", "Time", "Module", "Room", "Duration", "Students", "Supervisors"},
		Rows:    rows,
	}
}

func slugify(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "session"
	}
	return slug
}
