package http

import (
	"github.com/gofiber/fiber/v2"

	"carma_server/core/service/category"
	"carma_server/core/service/inbox"
	"carma_server/core/service/summary"
	"carma_server/core/service/vendor"
	"carma_server/pkg/apperr"
)

// EmailHandler serves the inbox, summarization and reply endpoints.
type EmailHandler struct {
	inbox   *inbox.Service
	summary *summary.Service
	vendor  *vendor.Service
}

func NewEmailHandler(inboxService *inbox.Service, summaryService *summary.Service, vendorService *vendor.Service) *EmailHandler {
	return &EmailHandler{
		inbox:   inboxService,
		summary: summaryService,
		vendor:  vendorService,
	}
}

func (h *EmailHandler) Register(router fiber.Router) {
	router.Get("/emails/fetch", h.Fetch)
	router.Get("/emails/fetch-with-attachments", h.FetchWithAttachments)
	router.Post("/emails/analyze", h.Analyze)

	router.Get("/summarize", h.SummarizeQuery)
	router.Post("/summarize", h.SummarizeBody)
	router.Get("/data", h.Stored)

	router.Post("/ai/reply", h.ReplyOptions)
	router.Post("/sendEmail", h.Send)
}

// =============================================================================
// Inbox
// =============================================================================

func (h *EmailHandler) Fetch(c *fiber.Ctx) error {
	emails, err := h.inbox.Fetch(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":    "success",
		"count":     len(emails),
		"emails":    emails,
		"file_path": inbox.CleanedFile,
	})
}

func (h *EmailHandler) FetchWithAttachments(c *fiber.Ctx) error {
	emails, err := h.inbox.FetchWithAttachments(c.UserContext())
	if err != nil {
		return err
	}

	total := 0
	for _, e := range emails {
		total += len(e.Attachments)
	}
	return c.JSON(fiber.Map{
		"status":            "success",
		"count":             len(emails),
		"total_attachments": total,
		"emails":            emails,
		"file_path":         inbox.WithAttachmentsFile,
	})
}

func (h *EmailHandler) Analyze(c *fiber.Ctx) error {
	res, err := h.inbox.Analyze(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":         "success",
		"thread_count":   res.ThreadCount,
		"total_emails":   res.TotalEmails,
		"non_responsive": res.NonResponsive,
		"analyses":       res.Analyses,
		"file_path":      res.FilePath,
	})
}

// =============================================================================
// Summaries
// =============================================================================

func (h *EmailHandler) SummarizeQuery(c *fiber.Ctx) error {
	return h.summarize(c, summary.Query{
		Project:  c.Query("project"),
		Category: c.Query("category", category.All),
		Priority: c.Query("priority"),
		Role:     c.Query("role"),
	})
}

func (h *EmailHandler) SummarizeBody(c *fiber.Ctx) error {
	var q summary.Query
	if err := parseBody(c, &q); err != nil {
		return err
	}
	return h.summarize(c, q)
}

func (h *EmailHandler) summarize(c *fiber.Ctx, q summary.Query) error {
	if q.Category == "" {
		q.Category = category.All
	}
	res, err := h.summary.Summarize(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   res.Message,
		"count":     len(res.Summaries),
		"project":   res.Project,
		"summaries": res.Summaries,
	})
}

func (h *EmailHandler) Stored(c *fiber.Ctx) error {
	project, err := requireQuery(c, "project")
	if err != nil {
		return err
	}
	rows, err := h.summary.Stored(c.UserContext(), project, c.Query("category", category.All))
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

// =============================================================================
// Replies
// =============================================================================

type replyOptionsRequest struct {
	Email *vendor.EmailContext `json:"email"`
}

func (h *EmailHandler) ReplyOptions(c *fiber.Ctx) error {
	var req replyOptionsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == nil {
		return apperr.MissingField("email")
	}

	replies, err := h.vendor.ReplyOptions(c.UserContext(), *req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"replies": replies})
}

type sendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *EmailHandler) Send(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sent, err := h.vendor.Send(c.UserContext(), req.To, req.Subject, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  sent.Status,
		"id":      sent.ID,
		"to":      sent.To,
		"subject": sent.Subject,
		"message": "Email sent successfully (mock)",
	})
}
