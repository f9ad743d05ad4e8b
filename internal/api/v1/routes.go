package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterHandlers attaches the v1 API routes to the given router group.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)
	router.Get("/zip/:zip", s.GetResolveZip)
	router.Get("/plans", s.GetPlans)
}
