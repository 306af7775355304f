package http

import (
	"github.com/gofiber/fiber/v2"

	"carma_server/core/service/report"
)

type ReportHandler struct {
	reportService *report.Service
}

func NewReportHandler(reportService *report.Service) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) Register(router fiber.Router) {
	router.Post("/reports/weekly", h.Weekly)
}

// Weekly generates the weekly status report for a project and date range.
func (h *ReportHandler) Weekly(c *fiber.Ctx) error {
	var req report.WeeklyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.reportService.Weekly(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":         "success",
		"project_name":   res.ProjectName,
		"report_file":    res.ReportFile,
		"report_summary": res.ReportSummary,
		"ai_confidence":  res.AIConfidence,
		"full_report":    res.FullReport,
	})
}
