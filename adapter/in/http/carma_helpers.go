package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"carma_server/pkg/apperr"
)

// parseBody decodes a JSON body. An empty body leaves dst untouched.
func parseBody(c *fiber.Ctx, dst any) error {
	if len(strings.TrimSpace(string(c.Body()))) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return apperr.BadRequest("Invalid request body: " + err.Error())
	}
	return nil
}

// requireQuery returns the trimmed query value or a missing-field error.
func requireQuery(c *fiber.Ctx, key string) (string, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return "", apperr.MissingField(key)
	}
	return v, nil
}
