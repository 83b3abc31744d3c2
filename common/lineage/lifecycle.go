package lineage

import (
	"context"
	"fmt"
)

// EventDraft is the kind of a lifecycle event recording a draft selection
const EventDraft = "draft"

// LifecycleEvent is one moment in an asset's history: the draft that
// selected it or a transaction that added or dropped it
type LifecycleEvent struct {
	// Kind is EventDraft or the transaction type
	Kind          string         `json:"kind"`
	Season        string         `json:"season"`
	Week          int            `json:"week,omitempty"`
	Timestamp     int64          `json:"timestamp,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	RosterIDs     []int          `json:"roster_ids,omitempty"`
	Adds          map[string]int `json:"adds,omitempty"`
	Drops         map[string]int `json:"drops,omitempty"`
	Selection     *Selection     `json:"selection,omitempty"`
}

// AssetLifecycle is the flat chronological history of one asset across a timeline
type AssetLifecycle struct {
	LeagueID string           `json:"league_id"`
	Asset    Asset            `json:"asset"`
	RosterID int              `json:"roster_id,omitempty"`
	Seasons  []string         `json:"seasons"`
	Events   []LifecycleEvent `json:"events"`
}

// Lifecycle lists the draft selection and every transaction touching asset,
// oldest first. With rosterID > 0 only that roster's side of the history is kept.
func (idx *Index) Lifecycle(asset Asset, rosterID int) []LifecycleEvent {
	var sels []selectionAt
	if asset.IsPick() {
		if entry, ok := idx.byPick[asset.ID]; ok {
			sels = append(sels, entry)
		}
	} else {
		sels = idx.byPlayer[asset.ID]
	}

	positions := idx.touched[asset.ID]
	if rosterID > 0 {
		positions = idx.touchingPositions(rosterID, asset.ID)
	}

	events := make([]LifecycleEvent, 0, len(sels)+len(positions))
	addSelection := func(entry selectionAt) {
		if rosterID > 0 && entry.sel.RosterID != rosterID {
			return
		}
		sel := *entry.sel
		events = append(events, LifecycleEvent{
			Kind:      EventDraft,
			Season:    sel.Season,
			Timestamp: sel.Time,
			RosterIDs: []int{sel.RosterID},
			Selection: &sel,
		})
	}

	next := 0
	for _, pos := range positions {
		// a selection at pos happened after transaction pos and before pos+1
		for next < len(sels) && sels[next].pos < pos {
			addSelection(sels[next])
			next++
		}
		tx := idx.txs[pos]
		events = append(events, LifecycleEvent{
			Kind:          tx.Type,
			Season:        tx.Season,
			Week:          tx.Week,
			Timestamp:     tx.Timestamp,
			TransactionID: tx.ID,
			RosterIDs:     tx.RosterIDs,
			Adds:          tx.Adds,
			Drops:         tx.Drops,
		})
	}
	for ; next < len(sels); next++ {
		addSelection(sels[next])
	}
	return events
}

// Lifecycle builds the index for timeline and returns assetID's history.
// rosterID 0 returns every roster's events.
func (e *Engine) Lifecycle(ctx context.Context, timeline []SeasonRecord, assetID string, rosterID int) (*AssetLifecycle, error) {
	asset, err := ParseAsset(assetID)
	if err != nil {
		return nil, err
	}
	if rosterID < 0 || (rosterID > 0 && !rosterInLeague(timeline, rosterID)) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRoster, rosterID)
	}

	idx, err := e.BuildIndex(ctx, timeline)
	if err != nil {
		return nil, err
	}

	r := &resolver{idx: idx}
	out := &AssetLifecycle{
		Asset:    r.describe(asset),
		RosterID: rosterID,
		Events:   idx.Lifecycle(asset, rosterID),
	}
	if len(timeline) > 0 {
		out.LeagueID = timeline[len(timeline)-1].SeasonID
		for _, s := range timeline {
			out.Seasons = append(out.Seasons, s.Season)
		}
	}

	e.log.Debug("resolved asset lifecycle", "asset_id", assetID, "roster_id", rosterID, "events", len(out.Events))
	return out, nil
}
