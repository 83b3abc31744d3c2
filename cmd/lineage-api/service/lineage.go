package service

import (
	"context"
	"fmt"

	"github.com/lyzr/lineage/common/lineage"
	"github.com/lyzr/lineage/common/logger"
)

// LineageService answers league-level lineage queries. It holds no state
// between requests; every call rebuilds what it needs from cached upstream data.
type LineageService struct {
	engine *lineage.Engine
	logger *logger.Logger
}

// NewLineageService creates a new lineage service
func NewLineageService(engine *lineage.Engine, log *logger.Logger) *LineageService {
	return &LineageService{
		engine: engine,
		logger: log,
	}
}

// Timeline returns the league's seasons, earliest first
func (s *LineageService) Timeline(ctx context.Context, leagueID string) ([]lineage.SeasonRecord, error) {
	return s.engine.ResolveTimeline(ctx, leagueID)
}

// Transactions returns every indexed transaction of the league, oldest first
func (s *LineageService) Transactions(ctx context.Context, leagueID string) ([]lineage.Transaction, error) {
	timeline, err := s.engine.ResolveTimeline(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	idx, err := s.engine.BuildIndex(ctx, timeline)
	if err != nil {
		return nil, fmt.Errorf("build index for league %s: %w", leagueID, err)
	}
	return idx.Transactions(), nil
}

// Chain resolves the provenance tree of assetID for rosterID in the league
func (s *LineageService) Chain(ctx context.Context, leagueID string, rosterID int, assetID string) (*lineage.ComprehensiveAssetChain, error) {
	log := s.logger.WithContext(ctx).WithLeague(leagueID).WithFields(map[string]any{
		"roster_id": rosterID,
		"asset_id":  assetID,
	})

	timeline, err := s.engine.ResolveTimeline(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	log.Debug("timeline resolved", "seasons", len(timeline))

	return s.engine.ResolveChain(ctx, timeline, rosterID, assetID)
}

// Lifecycle returns the flat history of assetID in the league. rosterID 0
// keeps every roster's events.
func (s *LineageService) Lifecycle(ctx context.Context, leagueID, assetID string, rosterID int) (*lineage.AssetLifecycle, error) {
	timeline, err := s.engine.ResolveTimeline(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return s.engine.Lifecycle(ctx, timeline, assetID, rosterID)
}
