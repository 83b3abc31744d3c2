package sleeper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Transaction types as reported upstream
const (
	TypeTrade        = "trade"
	TypeWaiver       = "waiver"
	TypeFreeAgent    = "free_agent"
	TypeCommissioner = "commissioner"
)

// StatusComplete marks a transaction that actually moved assets
const StatusComplete = "complete"

// FlexInt decodes a number that the upstream sometimes sends as a string.
// null and "" decode to zero.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("flex int %q: %w", s, err)
		}
		*f = FlexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("flex int %s: %w", n, err)
		}
		i = int64(fl)
	}
	*f = FlexInt(i)
	return nil
}

// FlexString decodes a string that the upstream sometimes sends as a number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

// League is one league-season instance
type League struct {
	LeagueID         string          `json:"league_id"`
	Name             string          `json:"name"`
	Season           FlexString      `json:"season"`
	TotalRosters     int             `json:"total_rosters"`
	Status           string          `json:"status"`
	PreviousLeagueID FlexString      `json:"previous_league_id"`
	DraftID          FlexString      `json:"draft_id"`
	Settings         json.RawMessage `json:"settings,omitempty"`
}

// PreviousID returns the prior season's league id, or "" when there is none.
// The upstream uses both null and "0" for "no predecessor".
func (l *League) PreviousID() string {
	id := string(l.PreviousLeagueID)
	if id == "0" {
		return ""
	}
	return id
}

// DraftPickMovement is a pick changing hands inside a transaction.
// RosterID is the pick's original owner, not either side of the trade.
type DraftPickMovement struct {
	Season          FlexString `json:"season"`
	Round           int        `json:"round"`
	RosterID        FlexInt    `json:"roster_id"`
	PreviousOwnerID FlexInt    `json:"previous_owner_id"`
	OwnerID         FlexInt    `json:"owner_id"`
}

// Transaction is one asset movement event
type Transaction struct {
	TransactionID string              `json:"transaction_id"`
	Type          string              `json:"type"`
	Status        string              `json:"status"`
	StatusUpdated int64               `json:"status_updated"`
	Created       int64               `json:"created"`
	Leg           int                 `json:"leg"`
	RosterIDs     []int               `json:"roster_ids"`
	Adds          map[string]FlexInt  `json:"adds"`
	Drops         map[string]FlexInt  `json:"drops"`
	DraftPicks    []DraftPickMovement `json:"draft_picks"`
}

// Timestamp is the authoritative ordering time in unix ms
func (t *Transaction) Timestamp() int64 {
	if t.StatusUpdated != 0 {
		return t.StatusUpdated
	}
	return t.Created
}

// Completed reports whether the transaction moved assets.
// Failed waiver claims and pending trades never did.
func (t *Transaction) Completed() bool {
	return t.Status == "" || t.Status == StatusComplete
}

// Draft is a season's draft
type Draft struct {
	DraftID        string             `json:"draft_id"`
	Season         FlexString         `json:"season"`
	Type           string             `json:"type"`
	Status         string             `json:"status"`
	StartTime      int64              `json:"start_time"`
	SlotToRosterID map[string]FlexInt `json:"slot_to_roster_id"`
}

// PickMetadata carries the selected player's display fields
type PickMetadata struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
	Team      string `json:"team"`
}

// Pick is one draft selection. RosterID is the roster that made the selection.
type Pick struct {
	PlayerID  string       `json:"player_id"`
	RosterID  FlexInt      `json:"roster_id"`
	Round     int          `json:"round"`
	DraftSlot int          `json:"draft_slot"`
	PickNo    int          `json:"pick_no"`
	DraftID   string       `json:"draft_id"`
	Metadata  PickMetadata `json:"metadata"`
}

// Roster maps a roster slot to its owning user
type Roster struct {
	RosterID FlexInt    `json:"roster_id"`
	OwnerID  FlexString `json:"owner_id"`
	LeagueID string     `json:"league_id"`
	Players  []string   `json:"players"`
}

// UserMetadata holds optional user-facing fields
type UserMetadata struct {
	TeamName string `json:"team_name"`
}

// User is a league member
type User struct {
	UserID      string       `json:"user_id"`
	Username    string       `json:"username"`
	DisplayName string       `json:"display_name"`
	Metadata    UserMetadata `json:"metadata"`
}

// Player is an entry of the player directory
type Player struct {
	PlayerID  string `json:"player_id"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
	Team      string `json:"team"`
}

// Name returns the best available display name
func (p *Player) Name() string {
	if p.FullName != "" {
		return p.FullName
	}
	return joinName(p.FirstName, p.LastName)
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// Name returns the selected player's name from the pick metadata
func (m PickMetadata) Name() string {
	return joinName(m.FirstName, m.LastName)
}
