package http

import (
	"github.com/gofiber/fiber/v2"

	"carma_server/core/service/vendor"
	"carma_server/pkg/apperr"
)

type VendorHandler struct {
	vendor *vendor.Service
}

func NewVendorHandler(vendorService *vendor.Service) *VendorHandler {
	return &VendorHandler{vendor: vendorService}
}

func (h *VendorHandler) Register(router fiber.Router) {
	router.Get("/non-responsive-subcontractors", h.NonResponsive)
	router.Post("/vendors/generate-reply", h.GenerateReply)
}

func (h *VendorHandler) NonResponsive(c *fiber.Ctx) error {
	rows, err := h.vendor.NonResponsive(c.UserContext(), c.Query("project"))
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

type generateReplyRequest struct {
	SubcontractorData *vendor.ReplyContext `json:"subcontractor_data"`
}

func (h *VendorHandler) GenerateReply(c *fiber.Ctx) error {
	var req generateReplyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.SubcontractorData == nil {
		return apperr.MissingField("subcontractor_data")
	}
	return c.JSON(h.vendor.GenerateReply(c.UserContext(), *req.SubcontractorData))
}
