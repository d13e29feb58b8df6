// handlers/dispenser_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"account-dispenser/middleware"
)

// SetupDispenserRoutes mounts the requester and staff routes. Gateway auth is
// expected to be applied globally before this is called.
func SetupDispenserRoutes(app *fiber.App, h *DispenserHandler, logger *zap.Logger) {
	// 🔐 Every route below needs user context from the gateway
	secured := app.Group("/", middleware.UserContextMiddleware(logger))

	secured.Post("/allocate", h.Allocate)
	secured.Get("/quota", h.Quota)
	secured.Get("/stock", h.Stock)
	secured.Get("/categories", h.Categories)
	secured.Get("/leaderboard", h.Leaderboard)
	secured.Get("/stats/me", h.MyStats)
	secured.Get("/boost-info", h.BoostInfo)

	secured.Post("/referrals/code", h.CreateReferralCode)
	secured.Post("/referrals/redeem", h.RedeemReferralCode)
	secured.Post("/reports", h.FileReport)

	// 🛡️ Staff only
	admin := secured.Group("/admin", middleware.RequireStaff())
	admin.Post("/records", h.IngestRecords)
	admin.Delete("/records/:id", h.RemoveRecord)
	admin.Post("/restock", h.Restock)
	admin.Get("/reports", h.ListReports)
	admin.Delete("/reports/:record_id", h.ClearReports)
	admin.Delete("/reports", h.ClearAllReports)
	admin.Get("/stats", h.GlobalStats)
}

// SetupMetricsRoute exposes the prometheus registry.
func SetupMetricsRoute(app *fiber.App, gatherer prometheus.Gatherer) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
