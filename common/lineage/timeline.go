package lineage

import (
	"context"
	"fmt"

	"github.com/lyzr/lineage/common/fetch"
	"github.com/lyzr/lineage/common/sleeper"
)

// MaxSeasonDepth caps the predecessor walk
const MaxSeasonDepth = 50

// ResolveTimeline returns seasonID and all its predecessors, earliest first.
// A predecessor that is not found ends the walk; the newest season must exist.
func (e *Engine) ResolveTimeline(ctx context.Context, seasonID string) ([]SeasonRecord, error) {
	var newestFirst []SeasonRecord
	seen := make(map[string]bool)

	current := seasonID
	for depth := 0; current != ""; depth++ {
		if depth >= MaxSeasonDepth || seen[current] {
			return nil, fmt.Errorf("%w: at season %s after %d links", ErrRecursionLimitExceeded, current, depth)
		}
		seen[current] = true

		league, err := e.client.GetLeague(ctx, current)
		if err != nil {
			if fetch.IsNotFound(err) && depth > 0 {
				e.log.Debug("predecessor season not found, timeline ends", "season_id", current)
				break
			}
			return nil, fmt.Errorf("resolve season %s: %w", current, err)
		}

		record := seasonFromLeague(league)
		if record.SeasonID == "" {
			record.SeasonID = current
		}
		newestFirst = append(newestFirst, record)
		current = record.PreviousSeasonID
	}

	timeline := make([]SeasonRecord, len(newestFirst))
	for i, rec := range newestFirst {
		timeline[len(newestFirst)-1-i] = rec
	}

	e.log.Debug("resolved timeline", "season_id", seasonID, "seasons", len(timeline))
	return timeline, nil
}

func seasonFromLeague(l *sleeper.League) SeasonRecord {
	return SeasonRecord{
		SeasonID:         l.LeagueID,
		Season:           string(l.Season),
		Name:             l.Name,
		TotalRosters:     l.TotalRosters,
		Status:           l.Status,
		PreviousSeasonID: l.PreviousID(),
		DraftID:          string(l.DraftID),
	}
}
