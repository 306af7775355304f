package http

import (
	"github.com/gofiber/fiber/v2"

	"carma_server/core/service/procurement"
)

type ProcurementHandler struct {
	procurement *procurement.Service
}

func NewProcurementHandler(procurementService *procurement.Service) *ProcurementHandler {
	return &ProcurementHandler{procurement: procurementService}
}

func (h *ProcurementHandler) Register(router fiber.Router) {
	router.Post("/procurement/analyze", h.AnalyzeLogs)
	router.Post("/procurement/emails/extract", h.ExtractFromEmails)
}

func (h *ProcurementHandler) AnalyzeLogs(c *fiber.Ctx) error {
	res, err := h.procurement.AnalyzeLogs(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":         "success",
		"file_saved":     res.FileSaved,
		"files_analyzed": res.FilesAnalyzed,
		"result":         res.Result,
	})
}

type extractRequest struct {
	Projects []string `json:"projects"`
}

func (h *ProcurementHandler) ExtractFromEmails(c *fiber.Ctx) error {
	var req extractRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	records, err := h.procurement.ExtractFromEmails(c.UserContext(), req.Projects)
	if err != nil {
		return err
	}
	return c.JSON(records)
}
