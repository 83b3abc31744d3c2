package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/lineage/cmd/lineage-api/container"
	"github.com/lyzr/lineage/cmd/lineage-api/service"
	"github.com/lyzr/lineage/common/logger"
)

// LineageHandler handles league timeline and asset chain requests
type LineageHandler struct {
	logger         *logger.Logger
	lineageService *service.LineageService
}

// NewLineageHandler creates a new lineage handler
func NewLineageHandler(c *container.Container) *LineageHandler {
	return &LineageHandler{
		logger:         c.Components.Logger,
		lineageService: c.LineageService,
	}
}

// GetTimeline returns the league's linked seasons
// GET /api/v1/leagues/:league_id/timeline
func (h *LineageHandler) GetTimeline(c echo.Context) error {
	ctx := c.Request().Context()
	leagueID := c.Param("league_id")

	if leagueID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "league_id is required",
		})
	}

	timeline, err := h.lineageService.Timeline(ctx, leagueID)
	if err != nil {
		h.logFailure(c, "failed to resolve timeline", err, "league_id", leagueID)
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"league_id": leagueID,
		"seasons":   timeline,
	})
}

// GetTransactions returns the league's full transaction history
// GET /api/v1/leagues/:league_id/transactions
func (h *LineageHandler) GetTransactions(c echo.Context) error {
	ctx := c.Request().Context()
	leagueID := c.Param("league_id")

	if leagueID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "league_id is required",
		})
	}

	txs, err := h.lineageService.Transactions(ctx, leagueID)
	if err != nil {
		h.logFailure(c, "failed to list transactions", err, "league_id", leagueID)
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"league_id":    leagueID,
		"count":        len(txs),
		"transactions": txs,
	})
}

// GetChain returns the comprehensive asset chain
// GET /api/v1/leagues/:league_id/rosters/:roster_id/chains/:asset_id
func (h *LineageHandler) GetChain(c echo.Context) error {
	ctx := c.Request().Context()
	leagueID := c.Param("league_id")
	assetID := c.Param("asset_id")

	rosterID, err := strconv.Atoi(c.Param("roster_id"))
	if err != nil || rosterID < 1 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "roster_id must be a positive integer",
		})
	}
	if leagueID == "" || assetID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "league_id and asset_id are required",
		})
	}

	chain, err := h.lineageService.Chain(ctx, leagueID, rosterID, assetID)
	if err != nil {
		h.logFailure(c, "failed to resolve asset chain", err,
			"league_id", leagueID,
			"roster_id", rosterID,
			"asset_id", assetID)
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, chain)
}

// GetLifecycle returns the flat history of a player or pick.
// An optional roster_id query narrows it to one roster.
// GET /api/v1/leagues/:league_id/players/:player_id/lifecycle
func (h *LineageHandler) GetLifecycle(c echo.Context) error {
	ctx := c.Request().Context()
	leagueID := c.Param("league_id")
	assetID := c.Param("player_id")

	if leagueID == "" || assetID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "league_id and player_id are required",
		})
	}

	rosterID := 0
	if raw := c.QueryParam("roster_id"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "roster_id must be a positive integer",
			})
		}
		rosterID = n
	}

	lifecycle, err := h.lineageService.Lifecycle(ctx, leagueID, assetID, rosterID)
	if err != nil {
		h.logFailure(c, "failed to resolve asset lifecycle", err,
			"league_id", leagueID,
			"roster_id", rosterID,
			"asset_id", assetID)
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, lifecycle)
}

// logFailure logs server-side failures as errors and expected misses at debug
func (h *LineageHandler) logFailure(c echo.Context, msg string, err error, args ...any) {
	log := h.logger.WithContext(c.Request().Context())
	args = append(args, "error", err)

	status, _ := statusFor(err)
	switch {
	case status >= 500:
		log.Error(msg, args...)
	case status == http.StatusNotFound:
		log.Debug(msg, args...)
	default:
		log.Warn(msg, args...)
	}
}
