// Package sleeper is a typed, read-only client for the upstream fantasy API.
// All requests go through a fetch.Getter, so they are cached and rate bounded.
package sleeper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/lyzr/lineage/common/fetch"
)

// DefaultBaseURL is the public v1 API
const DefaultBaseURL = "https://api.sleeper.app/v1"

// Client decodes upstream resources into typed models
type Client struct {
	getter fetch.Getter
}

// NewClient creates a client over getter
func NewClient(getter fetch.Getter) *Client {
	return &Client{getter: getter}
}

// GetLeague fetches one league-season
func (c *Client) GetLeague(ctx context.Context, leagueID string) (*League, error) {
	var league League
	if err := c.get(ctx, "/league/"+url.PathEscape(leagueID), &league); err != nil {
		return nil, err
	}
	return &league, nil
}

// GetTransactions fetches one week (leg) of a season's transactions
func (c *Client) GetTransactions(ctx context.Context, leagueID string, week int) ([]Transaction, error) {
	var txs []Transaction
	path := fmt.Sprintf("/league/%s/transactions/%d", url.PathEscape(leagueID), week)
	if err := c.get(ctx, path, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetDrafts lists a season's drafts
func (c *Client) GetDrafts(ctx context.Context, leagueID string) ([]Draft, error) {
	var drafts []Draft
	if err := c.get(ctx, "/league/"+url.PathEscape(leagueID)+"/drafts", &drafts); err != nil {
		return nil, err
	}
	return drafts, nil
}

// GetDraft fetches one draft, including its slot map
func (c *Client) GetDraft(ctx context.Context, draftID string) (*Draft, error) {
	var draft Draft
	if err := c.get(ctx, "/draft/"+url.PathEscape(draftID), &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// GetDraftPicks fetches every selection made in a draft
func (c *Client) GetDraftPicks(ctx context.Context, draftID string) ([]Pick, error) {
	var picks []Pick
	if err := c.get(ctx, "/draft/"+url.PathEscape(draftID)+"/picks", &picks); err != nil {
		return nil, err
	}
	return picks, nil
}

// GetRosters fetches a season's rosters
func (c *Client) GetRosters(ctx context.Context, leagueID string) ([]Roster, error) {
	var rosters []Roster
	if err := c.get(ctx, "/league/"+url.PathEscape(leagueID)+"/rosters", &rosters); err != nil {
		return nil, err
	}
	return rosters, nil
}

// GetUsers fetches a season's members
func (c *Client) GetUsers(ctx context.Context, leagueID string) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/league/"+url.PathEscape(leagueID)+"/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetPlayers fetches the full player directory keyed by player id
func (c *Client) GetPlayers(ctx context.Context) (map[string]Player, error) {
	var players map[string]Player
	if err := c.get(ctx, "/players/nfl", &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	payload, err := c.getter.Fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		// a payload we cannot read must not stay cached for a week
		if inv, ok := c.getter.(invalidator); ok {
			_ = inv.Invalidate(ctx, path)
		}
		return &fetch.UpstreamError{Path: path, StatusCode: 200, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

type invalidator interface {
	Invalidate(ctx context.Context, path string) error
}
