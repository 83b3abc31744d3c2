package lineage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/lyzr/lineage/common/fetch"
	"github.com/lyzr/lineage/common/sleeper"
	"golang.org/x/sync/errgroup"
)

// Selection is one draft pick being used on a player
type Selection struct {
	DraftID          string `json:"draft_id"`
	Season           string `json:"season"`
	Round            int    `json:"round"`
	PickNo           int    `json:"pick_no"`
	Slot             int    `json:"draft_slot"`
	OriginalRosterID int    `json:"original_roster_id"`
	RosterID         int    `json:"roster_id"`
	PlayerID         string `json:"player_id"`
	PlayerName       string `json:"player_name,omitempty"`
	Position         string `json:"position,omitempty"`
	Team             string `json:"team,omitempty"`
	// Time is the draft start in unix ms; zero means unknown
	Time int64 `json:"time"`
}

// PickID is the identity of the pick that was used
func (s *Selection) PickID() string {
	return PickID(s.Season, s.Round, s.OriginalRosterID)
}

// PlayerInfo holds display fields for a player
type PlayerInfo struct {
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
	Team     string `json:"team,omitempty"`
}

// IndexInput is everything an Index is built from
type IndexInput struct {
	Timeline     []SeasonRecord
	Transactions []Transaction
	Selections   []Selection
	Managers     map[int]string
	Players      map[string]PlayerInfo
}

type rosterAsset struct {
	roster int
	asset  string
}

type selectionAt struct {
	sel *Selection
	// pos is the index of the last transaction strictly before the draft, -1 if none
	pos int
}

// Index is the frozen, chronologically ordered history of a timeline.
// It is read-only after NewIndex returns.
type Index struct {
	timeline []SeasonRecord
	txs      []*Transaction
	byID     map[string]int

	added   map[rosterAsset][]int
	removed map[rosterAsset][]int
	touched map[string][]int

	byPick   map[string]selectionAt
	byPicker map[rosterAsset]selectionAt
	byPlayer map[string][]selectionAt

	managers map[int]string
	players  map[string]PlayerInfo
}

// NewIndex sorts transactions by (timestamp, id) and builds the lookups
func NewIndex(in IndexInput) *Index {
	idx := &Index{
		timeline: in.Timeline,
		txs:      make([]*Transaction, 0, len(in.Transactions)),
		byID:     make(map[string]int, len(in.Transactions)),
		added:    make(map[rosterAsset][]int),
		removed:  make(map[rosterAsset][]int),
		touched:  make(map[string][]int),
		byPick:   make(map[string]selectionAt),
		byPicker: make(map[rosterAsset]selectionAt),
		byPlayer: make(map[string][]selectionAt),
		managers: in.Managers,
		players:  in.Players,
	}
	if idx.managers == nil {
		idx.managers = map[int]string{}
	}
	if idx.players == nil {
		idx.players = map[string]PlayerInfo{}
	}

	for i := range in.Transactions {
		tx := in.Transactions[i]
		if _, dup := idx.byID[tx.ID]; dup {
			continue
		}
		idx.byID[tx.ID] = -1
		idx.txs = append(idx.txs, &tx)
	}
	sort.SliceStable(idx.txs, func(i, j int) bool {
		a, b := idx.txs[i], idx.txs[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.ID < b.ID
	})

	seasonStart := make(map[string]int64)
	for pos, tx := range idx.txs {
		idx.byID[tx.ID] = pos
		for asset, roster := range tx.Adds {
			k := rosterAsset{roster, asset}
			idx.added[k] = append(idx.added[k], pos)
			idx.touched[asset] = appendOnce(idx.touched[asset], pos)
		}
		for asset, roster := range tx.Drops {
			k := rosterAsset{roster, asset}
			idx.removed[k] = append(idx.removed[k], pos)
			idx.touched[asset] = appendOnce(idx.touched[asset], pos)
		}
		if first, ok := seasonStart[tx.Season]; !ok || tx.Timestamp < first {
			seasonStart[tx.Season] = tx.Timestamp
		}
	}

	for i := range in.Selections {
		sel := in.Selections[i]
		if sel.PlayerID == "" {
			continue
		}
		at := sel.Time
		if at == 0 {
			if first, ok := seasonStart[sel.Season]; ok {
				at = first - 1
			}
		}
		entry := selectionAt{sel: &sel, pos: idx.positionBefore(at)}
		idx.byPick[sel.PickID()] = entry
		k := rosterAsset{sel.RosterID, sel.PlayerID}
		if prev, ok := idx.byPicker[k]; !ok || entry.pos < prev.pos {
			idx.byPicker[k] = entry
		}
		idx.byPlayer[sel.PlayerID] = append(idx.byPlayer[sel.PlayerID], entry)
		if _, ok := idx.players[sel.PlayerID]; !ok && sel.PlayerName != "" {
			idx.players[sel.PlayerID] = PlayerInfo{Name: sel.PlayerName, Position: sel.Position, Team: sel.Team}
		}
	}

	for _, entries := range idx.byPlayer {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].pos != entries[j].pos {
				return entries[i].pos < entries[j].pos
			}
			return entries[i].sel.PickNo < entries[j].sel.PickNo
		})
	}

	return idx
}

func appendOnce(positions []int, pos int) []int {
	if n := len(positions); n > 0 && positions[n-1] == pos {
		return positions
	}
	return append(positions, pos)
}

// positionBefore returns the index of the last transaction with timestamp < ts
func (idx *Index) positionBefore(ts int64) int {
	return sort.Search(len(idx.txs), func(i int) bool { return idx.txs[i].Timestamp >= ts }) - 1
}

// Len is the number of indexed transactions
func (idx *Index) Len() int {
	return len(idx.txs)
}

// Transactions returns the chronological history
func (idx *Index) Transactions() []Transaction {
	out := make([]Transaction, len(idx.txs))
	for i, tx := range idx.txs {
		out[i] = *tx
	}
	return out
}

// Timeline returns the seasons the index was built from, earliest first
func (idx *Index) Timeline() []SeasonRecord {
	return idx.timeline
}

// Touching returns the transactions in which rosterID added or removed assetID
func (idx *Index) Touching(rosterID int, assetID string) []Transaction {
	positions := idx.touchingPositions(rosterID, assetID)
	out := make([]Transaction, 0, len(positions))
	for _, pos := range positions {
		out = append(out, *idx.txs[pos])
	}
	return out
}

// touchingPositions merges the roster's additions and removals of assetID
func (idx *Index) touchingPositions(rosterID int, assetID string) []int {
	k := rosterAsset{rosterID, assetID}
	added, removed := idx.added[k], idx.removed[k]

	out := make([]int, 0, len(added)+len(removed))
	i, j := 0, 0
	for i < len(added) || j < len(removed) {
		var pos int
		switch {
		case j == len(removed) || (i < len(added) && added[i] < removed[j]):
			pos = added[i]
			i++
		case i == len(added) || removed[j] < added[i]:
			pos = removed[j]
			j++
		default:
			pos = added[i]
			i++
			j++
		}
		out = appendOnce(out, pos)
	}
	return out
}

// Selection returns the draft selection made with pickID, if the pick was used
func (idx *Index) Selection(pickID string) (*Selection, bool) {
	entry, ok := idx.byPick[pickID]
	if !ok {
		return nil, false
	}
	return entry.sel, true
}

// ManagerName returns the display name of a roster's manager
func (idx *Index) ManagerName(rosterID int) string {
	return idx.managers[rosterID]
}

// nextAfter returns the first position in positions that is > after
func nextAfter(positions []int, after int) (int, bool) {
	i := sort.SearchInts(positions, after+1)
	if i == len(positions) {
		return 0, false
	}
	return positions[i], true
}

func (idx *Index) nextRemoval(rosterID int, assetID string, after int) (int, bool) {
	return nextAfter(idx.removed[rosterAsset{rosterID, assetID}], after)
}

func (idx *Index) nextAddition(rosterID int, assetID string, after int) (int, bool) {
	return nextAfter(idx.added[rosterAsset{rosterID, assetID}], after)
}

// additions lists the assets rosterID received in tx
func additions(tx *Transaction, rosterID int) []string {
	var out []string
	for asset, roster := range tx.Adds {
		if roster == rosterID {
			out = append(out, asset)
		}
	}
	return out
}

// removals lists the assets rosterID gave up in tx
func removals(tx *Transaction, rosterID int) []string {
	var out []string
	for asset, roster := range tx.Drops {
		if roster == rosterID {
			out = append(out, asset)
		}
	}
	return out
}

// BuildIndex fetches every week's transactions and every draft of the
// timeline concurrently, then freezes them into an Index.
// A week that is not found contributes nothing; any other failure fails the
// build once every sibling fetch has finished.
func (e *Engine) BuildIndex(ctx context.Context, timeline []SeasonRecord) (*Index, error) {
	if len(timeline) == 0 {
		return nil, fmt.Errorf("build index: empty timeline")
	}

	var (
		mu         sync.Mutex
		txs        []Transaction
		selections []Selection
		managers   map[int]string
		players    map[string]PlayerInfo
	)

	// siblings keep running after a failure so their pages still land in the
	// cache; the first error still fails the build
	var g errgroup.Group

	for _, season := range timeline {
		for week := 1; week <= e.weeks; week++ {
			g.Go(func() error {
				batch, err := e.client.GetTransactions(ctx, season.SeasonID, week)
				if err != nil {
					if fetch.IsNotFound(err) {
						return nil
					}
					return fmt.Errorf("transactions for season %s week %d: %w", season.SeasonID, week, err)
				}
				converted := make([]Transaction, 0, len(batch))
				for i := range batch {
					if !batch[i].Completed() {
						continue
					}
					converted = append(converted, fromUpstream(season, week, &batch[i]))
				}
				mu.Lock()
				txs = append(txs, converted...)
				mu.Unlock()
				return nil
			})
		}

		g.Go(func() error {
			sels, err := e.draftSelections(ctx, season)
			if err != nil {
				return err
			}
			mu.Lock()
			selections = append(selections, sels...)
			mu.Unlock()
			return nil
		})
	}

	newest := timeline[len(timeline)-1]
	g.Go(func() error {
		names, err := e.managerNames(ctx, newest.SeasonID)
		if err != nil {
			return err
		}
		managers = names
		return nil
	})

	if e.playerNames {
		g.Go(func() error {
			dir, err := e.playerDirectory(ctx)
			if err != nil {
				return err
			}
			players = dir
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := NewIndex(IndexInput{
		Timeline:     timeline,
		Transactions: txs,
		Selections:   selections,
		Managers:     managers,
		Players:      players,
	})

	e.log.Debug("built transaction index",
		"seasons", len(timeline),
		"transactions", idx.Len(),
		"selections", len(selections))
	return idx, nil
}

func (e *Engine) draftSelections(ctx context.Context, season SeasonRecord) ([]Selection, error) {
	drafts, err := e.client.GetDrafts(ctx, season.SeasonID)
	if err != nil {
		if fetch.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("drafts for season %s: %w", season.SeasonID, err)
	}

	var out []Selection
	for i := range drafts {
		draft := drafts[i]
		if draft.SlotToRosterID == nil && draft.DraftID != "" {
			full, err := e.client.GetDraft(ctx, draft.DraftID)
			switch {
			case err == nil:
				draft.SlotToRosterID = full.SlotToRosterID
				if draft.StartTime == 0 {
					draft.StartTime = full.StartTime
				}
			case !fetch.IsNotFound(err):
				return nil, fmt.Errorf("draft %s: %w", draft.DraftID, err)
			}
		}

		picks, err := e.client.GetDraftPicks(ctx, draft.DraftID)
		if err != nil {
			if fetch.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("picks for draft %s: %w", draft.DraftID, err)
		}

		draftSeason := string(draft.Season)
		if draftSeason == "" {
			draftSeason = season.Season
		}
		for _, p := range picks {
			out = append(out, Selection{
				DraftID:          draft.DraftID,
				Season:           draftSeason,
				Round:            p.Round,
				PickNo:           p.PickNo,
				Slot:             p.DraftSlot,
				OriginalRosterID: slotOwner(draft.SlotToRosterID, p.DraftSlot),
				RosterID:         int(p.RosterID),
				PlayerID:         p.PlayerID,
				PlayerName:       p.Metadata.Name(),
				Position:         p.Metadata.Position,
				Team:             p.Metadata.Team,
				Time:             draft.StartTime,
			})
		}
	}
	return out, nil
}

// slotOwner maps a draft slot to the roster that owned it before any trades.
// Without a slot map the slot number doubles as the roster id.
func slotOwner(slots map[string]sleeper.FlexInt, slot int) int {
	if roster, ok := slots[strconv.Itoa(slot)]; ok && roster != 0 {
		return int(roster)
	}
	return slot
}

func (e *Engine) managerNames(ctx context.Context, seasonID string) (map[int]string, error) {
	rosters, err := e.client.GetRosters(ctx, seasonID)
	if err != nil {
		if fetch.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("rosters for season %s: %w", seasonID, err)
	}
	users, err := e.client.GetUsers(ctx, seasonID)
	if err != nil && !fetch.IsNotFound(err) {
		return nil, fmt.Errorf("users for season %s: %w", seasonID, err)
	}

	byUser := make(map[string]string, len(users))
	for _, u := range users {
		name := u.DisplayName
		if name == "" {
			name = u.Username
		}
		byUser[u.UserID] = name
	}

	names := make(map[int]string, len(rosters))
	for _, r := range rosters {
		if name, ok := byUser[string(r.OwnerID)]; ok && name != "" {
			names[int(r.RosterID)] = name
		}
	}
	return names, nil
}

func (e *Engine) playerDirectory(ctx context.Context) (map[string]PlayerInfo, error) {
	dir, err := e.client.GetPlayers(ctx)
	if err != nil {
		if fetch.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("player directory: %w", err)
	}
	out := make(map[string]PlayerInfo, len(dir))
	for id, p := range dir {
		out[id] = PlayerInfo{Name: p.Name(), Position: p.Position, Team: p.Team}
	}
	return out, nil
}

// fromUpstream flattens an upstream transaction; pick movements become adds and drops keyed by pick id
func fromUpstream(season SeasonRecord, week int, tx *sleeper.Transaction) Transaction {
	out := Transaction{
		ID:        tx.TransactionID,
		SeasonID:  season.SeasonID,
		Season:    season.Season,
		Week:      week,
		Type:      tx.Type,
		Timestamp: tx.Timestamp(),
		RosterIDs: tx.RosterIDs,
		Adds:      make(map[string]int, len(tx.Adds)+len(tx.DraftPicks)),
		Drops:     make(map[string]int, len(tx.Drops)+len(tx.DraftPicks)),
	}
	if tx.Leg != 0 {
		out.Week = tx.Leg
	}
	for player, roster := range tx.Adds {
		out.Adds[player] = int(roster)
	}
	for player, roster := range tx.Drops {
		out.Drops[player] = int(roster)
	}
	for _, dp := range tx.DraftPicks {
		id := PickID(string(dp.Season), dp.Round, int(dp.RosterID))
		from, to := int(dp.PreviousOwnerID), int(dp.OwnerID)
		out.DraftPicks = append(out.DraftPicks, PickMove{PickID: id, From: from, To: to})
		if to != 0 {
			out.Adds[id] = to
		}
		if from != 0 {
			out.Drops[id] = from
		}
	}
	return out
}
