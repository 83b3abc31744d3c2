package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/lineage/cmd/lineage-api/container"
	"github.com/lyzr/lineage/cmd/lineage-api/handlers"
	"github.com/lyzr/lineage/common/middleware"
)

// NewRouter builds the Echo instance with middleware, health check and API routes
func NewRouter(c *container.Container) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	cfg := c.Components.Config

	e.Use(echomw.Recover())
	e.Use(middleware.RequestTrace())
	e.Use(middleware.RequestLogger(c.Components.Logger))
	if c.Components.RateLimiter != nil {
		e.Use(middleware.ClientRateLimitMiddleware(
			c.Components.RateLimiter,
			cfg.RateLimit.Limit,
			cfg.RateLimit.WindowSeconds,
		))
	}
	e.Use(middleware.RequestTimeout(cfg.Service.RequestTimeout))

	registerHealth(e, c)
	RegisterLineageRoutes(e, c)

	return e
}

func registerHealth(e *echo.Echo, c *container.Container) {
	e.GET("/health", func(ec echo.Context) error {
		if err := c.Components.Health(ec.Request().Context()); err != nil {
			return ec.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": c.Components.Config.Service.Name,
				"error":   err.Error(),
			})
		}
		return ec.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": c.Components.Config.Service.Name,
		})
	})
}

// RegisterLineageRoutes registers league lineage routes
func RegisterLineageRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewLineageHandler(c)

	leagues := e.Group("/api/v1/leagues")
	{
		// GET /api/v1/leagues/{league_id}/timeline
		leagues.GET("/:league_id/timeline", h.GetTimeline)
		// GET /api/v1/leagues/{league_id}/transactions
		leagues.GET("/:league_id/transactions", h.GetTransactions)
		// GET /api/v1/leagues/{league_id}/rosters/{roster_id}/chains/{asset_id}
		leagues.GET("/:league_id/rosters/:roster_id/chains/:asset_id", h.GetChain)
		// GET /api/v1/leagues/{league_id}/players/{player_id}/lifecycle?roster_id=
		leagues.GET("/:league_id/players/:player_id/lifecycle", h.GetLifecycle)
	}
}
