package lineage

import (
	"fmt"
	"strconv"
	"strings"
)

// AssetKind tags the Asset variant
type AssetKind string

const (
	AssetPlayer    AssetKind = "player"
	AssetDraftPick AssetKind = "draft_pick"
)

// Asset is a player or a draft pick.
// Pick fields are only set for AssetDraftPick; PlayerID is filled once the pick is used.
type Asset struct {
	Kind     AssetKind `json:"kind"`
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Position string    `json:"position,omitempty"`
	Team     string    `json:"team,omitempty"`

	Season           string `json:"season,omitempty"`
	Round            int    `json:"round,omitempty"`
	OriginalRosterID int    `json:"original_roster_id,omitempty"`
	PlayerID         string `json:"player_id,omitempty"`

	// DraftedWith is the pick id a player was selected with, when lineage passed through a draft
	DraftedWith string `json:"drafted_with,omitempty"`
}

// PlayerAsset builds a player asset
func PlayerAsset(playerID string) Asset {
	return Asset{Kind: AssetPlayer, ID: playerID}
}

// PickAsset builds a draft pick asset
func PickAsset(season string, round, originalRosterID int) Asset {
	return Asset{
		Kind:             AssetDraftPick,
		ID:               PickID(season, round, originalRosterID),
		Season:           season,
		Round:            round,
		OriginalRosterID: originalRosterID,
	}
}

// PickID formats a pick identity as "{season}_{round}_{original_roster_id}"
func PickID(season string, round, originalRosterID int) string {
	return fmt.Sprintf("%s_%d_%d", season, round, originalRosterID)
}

// ParseAsset turns an asset id into an Asset. Pick ids look like "2025_2_7";
// anything else is taken as a player id.
func ParseAsset(id string) (Asset, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, " /\t\n") {
		return Asset{}, fmt.Errorf("%w: %q", ErrInvalidAsset, id)
	}

	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return PlayerAsset(id), nil
	}

	if _, err := strconv.Atoi(parts[0]); err != nil || len(parts[0]) != 4 {
		return Asset{}, fmt.Errorf("%w: bad pick season in %q", ErrInvalidAsset, id)
	}
	round, err := strconv.Atoi(parts[1])
	if err != nil || round < 1 {
		return Asset{}, fmt.Errorf("%w: bad pick round in %q", ErrInvalidAsset, id)
	}
	roster, err := strconv.Atoi(parts[2])
	if err != nil || roster < 1 {
		return Asset{}, fmt.Errorf("%w: bad pick roster in %q", ErrInvalidAsset, id)
	}
	return PickAsset(parts[0], round, roster), nil
}

// IsPick reports whether the asset is a draft pick
func (a Asset) IsPick() bool {
	return a.Kind == AssetDraftPick
}

// isPickID is a cheap check used on transaction keys, which are already well formed
func isPickID(id string) bool {
	return strings.Count(id, "_") == 2
}

// lessAsset orders packages deterministically: players first, then by id
func lessAsset(a, b Asset) bool {
	if a.Kind != b.Kind {
		return a.Kind == AssetPlayer
	}
	return a.ID < b.ID
}
