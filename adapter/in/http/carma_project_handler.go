package http

import (
	"github.com/gofiber/fiber/v2"

	"carma_server/core/service/project"
)

type ProjectHandler struct {
	projects *project.Service
}

func NewProjectHandler(projects *project.Service) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) Register(router fiber.Router) {
	router.Get("/projects", h.Names)
	router.Get("/data/projects", h.Projects)
	router.Get("/data/categories", h.Categories)
	router.Get("/data/roles", h.Roles)
	router.Get("/data/emails", h.Emails)
}

func (h *ProjectHandler) Names(c *fiber.Ctx) error {
	names, err := h.projects.Names(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(names)
}

func (h *ProjectHandler) Projects(c *fiber.Ctx) error {
	projects, err := h.projects.Projects(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(projects)
}

func (h *ProjectHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.projects.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

func (h *ProjectHandler) Roles(c *fiber.Ctx) error {
	roles, err := h.projects.Roles(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(roles)
}

func (h *ProjectHandler) Emails(c *fiber.Ctx) error {
	emails, err := h.projects.Emails(c.UserContext(), project.EmailFilter{
		Project:  c.Query("project"),
		Category: c.Query("category"),
		Priority: c.Query("priority"),
		Role:     c.Query("role"),
	})
	if err != nil {
		return err
	}
	return c.JSON(emails)
}
