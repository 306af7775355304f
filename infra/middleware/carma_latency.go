package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"carma_server/pkg/metrics"
)

// Latency records handler time per matched route, keyed "METHOD /route/pattern".
func Latency(reg *metrics.LatencyRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		reg.Record(c.Method()+" "+c.Route().Path, time.Since(start))
		return err
	}
}
