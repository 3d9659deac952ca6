package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		case path == "/v1/employees" || strings.HasSuffix(path, "/decision"):
			ttl = "no-cache" // Live state must never be stale

		case strings.Contains(path, "/route") || strings.Contains(path, "/stops"):
			ttl = "public, max-age=60" // Historical views: 1 min

		case strings.Contains(path, "/heatmap"):
			ttl = "public, max-age=300" // Heatmaps tolerate more staleness

		case path == "/v1/stats":
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/tasks"):
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=30" // Conservative default
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
