package lineage

// SeasonRecord is one league-season, linked to its predecessor
type SeasonRecord struct {
	SeasonID         string `json:"season_id"`
	Season           string `json:"season"`
	Name             string `json:"name"`
	TotalRosters     int    `json:"total_rosters"`
	Status           string `json:"status"`
	PreviousSeasonID string `json:"previous_season_id,omitempty"`
	DraftID          string `json:"draft_id,omitempty"`
}

// Transaction types
const (
	TxTrade        = "trade"
	TxWaiver       = "waiver"
	TxFreeAgent    = "free_agent"
	TxCommissioner = "commissioner"
)

// PickMove is a draft pick changing hands in a transaction
type PickMove struct {
	PickID string `json:"pick_id"`
	From   int    `json:"from_roster_id"`
	To     int    `json:"to_roster_id"`
}

// Transaction is a flattened upstream transaction.
// Adds and Drops are keyed by asset id and cover both players and picks.
type Transaction struct {
	ID         string         `json:"transaction_id"`
	SeasonID   string         `json:"season_id"`
	Season     string         `json:"season"`
	Week       int            `json:"week"`
	Type       string         `json:"type"`
	Timestamp  int64          `json:"timestamp"`
	RosterIDs  []int          `json:"roster_ids"`
	Adds       map[string]int `json:"adds"`
	Drops      map[string]int `json:"drops"`
	DraftPicks []PickMove     `json:"draft_picks,omitempty"`
}

// AcquisitionKind enumerates how a roster came to hold an asset
type AcquisitionKind string

const (
	AcquiredDrafted      AcquisitionKind = "drafted"
	AcquiredWaiver       AcquisitionKind = "waiver"
	AcquiredFreeAgent    AcquisitionKind = "free_agent"
	AcquiredTrade        AcquisitionKind = "trade"
	AcquiredCommissioner AcquisitionKind = "commissioner"
	AcquiredOriginal     AcquisitionKind = "original"
)

// Acquisition describes how RosterID obtained an asset
type Acquisition struct {
	Kind          AcquisitionKind `json:"kind"`
	RosterID      int             `json:"roster_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Season        string          `json:"season,omitempty"`
	Round         int             `json:"round,omitempty"`
	PickNo        int             `json:"pick_no,omitempty"`
	Timestamp     int64           `json:"timestamp,omitempty"`
}

// OutcomeStatus is the terminal state of a leaf asset
type OutcomeStatus string

const (
	OutcomeHeld         OutcomeStatus = "held"
	OutcomeReleased     OutcomeStatus = "released"
	OutcomePendingDraft OutcomeStatus = "pending_draft"
	OutcomeTraded       OutcomeStatus = "traded"
)

// FinalOutcome is where an asset ended up
type FinalOutcome struct {
	Asset         Asset         `json:"asset"`
	HolderID      int           `json:"holder_roster_id"`
	HolderName    string        `json:"holder_name,omitempty"`
	Acquisition   Acquisition   `json:"acquisition"`
	Status        OutcomeStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
}

// TradeSummary is the originating transaction of a branch
type TradeSummary struct {
	ID        string `json:"transaction_id"`
	Season    string `json:"season"`
	Week      int    `json:"week"`
	Timestamp int64  `json:"timestamp"`
	RosterIDs []int  `json:"roster_ids"`
}

// Branch is one trade in which Holder gave Asset away.
// Received assets that were traded again become Children; the rest are Outcomes.
type Branch struct {
	ID          string         `json:"id"`
	Asset       Asset          `json:"asset"`
	HolderID    int            `json:"holder_roster_id"`
	HolderName  string         `json:"holder_name,omitempty"`
	Transaction TradeSummary   `json:"transaction"`
	Given       []Asset        `json:"given"`
	Received    []Asset        `json:"received"`
	Destination FinalOutcome   `json:"destination"`
	Children    []*Branch      `json:"children,omitempty"`
	Outcomes    []FinalOutcome `json:"final_outcomes,omitempty"`
	MergedInto  string         `json:"merged_into,omitempty"`
}

// ComprehensiveAssetChain is the full provenance tree of one asset for one roster
type ComprehensiveAssetChain struct {
	LeagueID    string      `json:"league_id"`
	RosterID    int         `json:"roster_id"`
	ManagerName string      `json:"manager_name,omitempty"`
	Asset       Asset       `json:"asset"`
	Acquisition Acquisition `json:"acquisition"`
	Branches    []*Branch   `json:"branches"`
	// Outcome is the root asset's state after its last top-level branch, if the roster still has it
	Outcome *FinalOutcome `json:"outcome,omitempty"`
	Seasons []string      `json:"seasons"`
}

// Leaves returns every final outcome reachable from the chain, depth first
func (c *ComprehensiveAssetChain) Leaves() []FinalOutcome {
	var out []FinalOutcome
	var walk func(b *Branch)
	walk = func(b *Branch) {
		out = append(out, b.Outcomes...)
		for _, child := range b.Children {
			walk(child)
		}
	}
	for _, b := range c.Branches {
		walk(b)
	}
	return out
}
