// Package lineage resolves how a roster acquired an asset and what became of
// everything it was traded for, across every linked season of a league.
package lineage

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/lineage/common/metrics"
	"github.com/lyzr/lineage/common/sleeper"
)

// DefaultWeeksPerSeason covers the regular season plus playoffs
const DefaultWeeksPerSeason = 18

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Options configures an Engine
type Options struct {
	WeeksPerSeason int
	// PlayerNames loads the full player directory to name assets
	PlayerNames bool
	Metrics     *metrics.Metrics
	Logger      Logger
}

// Engine exposes timeline resolution, index building and chain resolution
type Engine struct {
	client      *sleeper.Client
	weeks       int
	playerNames bool
	metrics     *metrics.Metrics
	log         Logger
}

// NewEngine creates an engine reading the upstream through client
func NewEngine(client *sleeper.Client, opts Options) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("sleeper client is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.WeeksPerSeason <= 0 {
		opts.WeeksPerSeason = DefaultWeeksPerSeason
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}

	return &Engine{
		client:      client,
		weeks:       opts.WeeksPerSeason,
		playerNames: opts.PlayerNames,
		metrics:     opts.Metrics,
		log:         opts.Logger,
	}, nil
}

// ResolveChain builds the index for timeline and resolves assetID for rosterID
func (e *Engine) ResolveChain(ctx context.Context, timeline []SeasonRecord, rosterID int, assetID string) (*ComprehensiveAssetChain, error) {
	asset, err := ParseAsset(assetID)
	if err != nil {
		e.metrics.ChainsResolved.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if rosterID < 1 || !rosterInLeague(timeline, rosterID) {
		e.metrics.ChainsResolved.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %d", ErrInvalidRoster, rosterID)
	}

	start := time.Now()
	idx, err := e.BuildIndex(ctx, timeline)
	if err != nil {
		e.metrics.ChainsResolved.WithLabelValues("error").Inc()
		return nil, err
	}

	chain, err := Resolve(idx, rosterID, asset)
	if err != nil {
		e.metrics.ChainsResolved.WithLabelValues("error").Inc()
		e.log.Warn("chain resolution failed", "roster_id", rosterID, "asset_id", assetID, "error", err)
		return nil, err
	}

	e.metrics.ChainsResolved.WithLabelValues("ok").Inc()
	e.log.Info("resolved asset chain",
		"league_id", chain.LeagueID,
		"roster_id", rosterID,
		"asset_id", assetID,
		"branches", len(chain.Branches),
		"duration_ms", time.Since(start).Milliseconds())
	return chain, nil
}

// rosterInLeague reports whether the newest season has a roster slot for
// rosterID. Seasons that do not report a roster count accept any id.
func rosterInLeague(timeline []SeasonRecord, rosterID int) bool {
	if len(timeline) == 0 {
		return true
	}
	total := timeline[len(timeline)-1].TotalRosters
	return total <= 0 || rosterID <= total
}
