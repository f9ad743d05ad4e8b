package router

import (
	apiv1 "github.com/choosemypower/ziproute/internal/api/v1"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type AnalyticsRouter struct {
}

// InstallRouter mounts the analytics endpoints. They are consumed by the
// admin dashboard on another origin, so the group carries permissive CORS
// (which also answers the OPTIONS preflight).
func (h AnalyticsRouter) InstallRouter(app *fiber.App) {
	group := app.Group("/api/analytics", cors.New())

	apiServer := apiv1.NewAPIServer()
	group.Get("/zip-navigation", apiServer.GetZipNavigationAnalytics)
}

func NewAnalyticsRouter() *AnalyticsRouter {
	return &AnalyticsRouter{}
}
